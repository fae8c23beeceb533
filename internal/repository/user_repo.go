package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
)

// UserRepository 客户与管理员账户
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) first(query string, arg interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.Where(query, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	return r.first("id = ?", id)
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	return r.first("email = ?", email)
}

// GetByGithubID 按绑定的 GitHub 账号查找
func (r *UserRepository) GetByGithubID(githubID string) (*model.User, error) {
	return r.first("github_id = ?", githubID)
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var n int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

// ListByStatus 按注册状态查询，按姓名排序
func (r *UserRepository) ListByStatus(status string) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Where("status = ?", status).
		Order("full_name ASC").Order("id ASC").
		Find(&users).Error
	return users, err
}

// Decide 仅当用户仍为 pending 时写入审批结果，返回受影响行数
func (r *UserRepository) Decide(id int64, status, comment string, at time.Time) (int64, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND status = ?", id, model.UserStatusPending).
		Updates(map[string]interface{}{
			"status":            status,
			"rejection_comment": comment,
			"decided_at":        at,
		})
	return result.RowsAffected, result.Error
}
