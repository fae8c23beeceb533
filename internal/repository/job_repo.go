package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
)

// JobRepository 账单归档任务
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.BillJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.BillJob, error) {
	job := new(model.BillJob)
	if err := r.db.First(job, id).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *JobRepository) Update(job *model.BillJob) error {
	return r.db.Save(job).Error
}

func (r *JobRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.BillJob{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateStep 记录 worker 当前所处步骤
func (r *JobRepository) UpdateStep(id int64, step string) error {
	return r.db.Model(&model.BillJob{}).Where("id = ?", id).Update("current_step", step).Error
}

// ListByUserID 用户的归档任务，最新的在前
func (r *JobRepository) ListByUserID(userID int64, page, pageSize int) ([]*model.BillJob, int64, error) {
	var jobs []*model.BillJob
	var total int64

	query := r.db.Model(&model.BillJob{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(pageSize).Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

// GetRetryableJobs 失败且未超过重试次数的任务，跳过标记为 NoRetry 的
func (r *JobRepository) GetRetryableJobs(maxAttempts, limit int) ([]*model.BillJob, error) {
	var jobs []*model.BillJob
	err := r.db.Where("status = ? AND attempts < ? AND no_retry = ?", model.JobStatusFailed, maxAttempts, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}
