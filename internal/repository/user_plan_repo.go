package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
)

type UserPlanRepository struct {
	db *gorm.DB
}

func NewUserPlanRepository(db *gorm.DB) *UserPlanRepository {
	return &UserPlanRepository{db: db}
}

func (r *UserPlanRepository) Create(up *model.UserPlan) error {
	return r.db.Create(up).Error
}

func (r *UserPlanRepository) GetByID(id int64) (*model.UserPlan, error) {
	var up model.UserPlan
	err := r.db.Where("id = ?", id).First(&up).Error
	if err != nil {
		return nil, err
	}
	return &up, nil
}

func (r *UserPlanRepository) Delete(id int64) error {
	return r.db.Delete(&model.UserPlan{}, id).Error
}

// ListByUserID 用户全部订阅，按申请先后排序
func (r *UserPlanRepository) ListByUserID(userID int64) ([]*model.UserPlan, error) {
	var ups []*model.UserPlan
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&ups).Error
	return ups, err
}

// ListApprovedByUserID 参与计费的订阅
func (r *UserPlanRepository) ListApprovedByUserID(userID int64) ([]*model.UserPlan, error) {
	var ups []*model.UserPlan
	err := r.db.Where("user_id = ? AND status = ?", userID, model.UserPlanStatusApproved).
		Order("id ASC").Find(&ups).Error
	return ups, err
}

// ListByStatus 管理员按状态查询
func (r *UserPlanRepository) ListByStatus(status string) ([]*model.UserPlan, error) {
	var ups []*model.UserPlan
	query := r.db.Model(&model.UserPlan{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("requested_date ASC").Order("id ASC").Find(&ups).Error
	return ups, err
}

// Decide 仅当订阅仍为 new 时写入审批结果，返回受影响行数
func (r *UserPlanRepository) Decide(id int64, status, comment string, at time.Time) (int64, error) {
	result := r.db.Model(&model.UserPlan{}).
		Where("id = ? AND status = ?", id, model.UserPlanStatusNew).
		Updates(map[string]interface{}{
			"status":            status,
			"rejection_comment": comment,
			"decided_at":        at,
		})
	return result.RowsAffected, result.Error
}

// ListUserIDsWithApproved 拥有已审批订阅的用户
func (r *UserPlanRepository) ListUserIDsWithApproved() ([]int64, error) {
	var ids []int64
	err := r.db.Model(&model.UserPlan{}).
		Where("status = ?", model.UserPlanStatusApproved).
		Distinct("user_id").Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListExpired 到期且开启自动终止的订阅，required_to 早于 today
func (r *UserPlanRepository) ListExpired(today time.Time) ([]*model.UserPlan, error) {
	var ups []*model.UserPlan
	err := r.db.Where("status = ? AND auto_terminated = ? AND required_to < ?",
		model.UserPlanStatusApproved, true, today).
		Order("id ASC").Find(&ups).Error
	return ups, err
}

// ListExpiring required_to 落在 [from, to] 且尚未提醒的订阅
func (r *UserPlanRepository) ListExpiring(from, to time.Time) ([]*model.UserPlan, error) {
	var ups []*model.UserPlan
	err := r.db.Where("status = ? AND alert_required = ? AND alert_sent_at IS NULL AND required_to >= ? AND required_to <= ?",
		model.UserPlanStatusApproved, true, from, to).
		Order("id ASC").Find(&ups).Error
	return ups, err
}

func (r *UserPlanRepository) MarkAlertSent(id int64, at time.Time) error {
	return r.db.Model(&model.UserPlan{}).Where("id = ?", id).Update("alert_sent_at", at).Error
}

// DeleteByIDs 批量删除，返回删除行数
func (r *UserPlanRepository) DeleteByIDs(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Where("id IN ?", ids).Delete(&model.UserPlan{})
	return result.RowsAffected, result.Error
}
