package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(plan *model.Plan) error {
	return r.db.Create(plan).Error
}

func (r *PlanRepository) GetByID(id int64) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) Update(plan *model.Plan) error {
	return r.db.Save(plan).Error
}

func (r *PlanRepository) Delete(id int64) error {
	return r.db.Delete(&model.Plan{}, id).Error
}

// List 按地点、名称过滤，均为不区分大小写的子串匹配
func (r *PlanRepository) List(location, name string) ([]*model.Plan, error) {
	var plans []*model.Plan

	query := r.db.Model(&model.Plan{})
	if location = strings.TrimSpace(location); location != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(location)+"%")
	}
	if name = strings.TrimSpace(name); name != "" {
		query = query.Where("LOWER(plan_name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	err := query.Order("id ASC").Find(&plans).Error
	return plans, err
}
