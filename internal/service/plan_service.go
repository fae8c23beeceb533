package service

import (
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/repository"
)

var (
	ErrPlanNotFound = errors.New("套餐不存在")
	ErrInvalidPrice = errors.New("价格不能为负数")
)

const catalogCacheSize = 128

// PlanService 套餐目录，查询结果按过滤条件缓存，任何修改都会清空缓存
type PlanService struct {
	planRepo *repository.PlanRepository
	cache    *expirable.LRU[string, []*model.Plan]
}

func NewPlanService(planRepo *repository.PlanRepository, ttl time.Duration) *PlanService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PlanService{
		planRepo: planRepo,
		cache:    expirable.NewLRU[string, []*model.Plan](catalogCacheSize, nil, ttl),
	}
}

// List 查询套餐
func (s *PlanService) List(filter *dto.PlanFilter) ([]*model.Plan, error) {
	location := strings.ToLower(strings.TrimSpace(filter.Location))
	name := strings.ToLower(strings.TrimSpace(filter.Name))
	key := location + "|" + name

	if plans, ok := s.cache.Get(key); ok {
		return plans, nil
	}

	plans, err := s.planRepo.List(location, name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, plans)
	return plans, nil
}

// Get 获取单个套餐
func (s *PlanService) Get(id int64) (*model.Plan, error) {
	plan, err := s.planRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// Create 新增套餐
func (s *PlanService) Create(req *dto.PlanRequest) (*model.Plan, error) {
	if *req.Price < 0 {
		return nil, ErrInvalidPrice
	}

	plan := &model.Plan{
		PlanName:    strings.TrimSpace(req.PlanName),
		Location:    strings.TrimSpace(req.Location),
		Price:       *req.Price,
		Description: req.Description,
	}
	if err := s.planRepo.Create(plan); err != nil {
		return nil, err
	}

	s.cache.Purge()
	return plan, nil
}

// Update 修改套餐，已有订阅保留订阅时的名称和价格
func (s *PlanService) Update(id int64, req *dto.PlanRequest) (*model.Plan, error) {
	if *req.Price < 0 {
		return nil, ErrInvalidPrice
	}

	plan, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	plan.PlanName = strings.TrimSpace(req.PlanName)
	plan.Location = strings.TrimSpace(req.Location)
	plan.Price = *req.Price
	plan.Description = req.Description
	if err := s.planRepo.Update(plan); err != nil {
		return nil, err
	}

	s.cache.Purge()
	return plan, nil
}

// Delete 删除套餐
func (s *PlanService) Delete(id int64) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.planRepo.Delete(id); err != nil {
		return err
	}

	s.cache.Purge()
	return nil
}
