package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/email"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/pubsub"
	"github.com/qs3c/powerplan_server/internal/repository"
)

var (
	ErrUserPlanNotFound = errors.New("订阅不存在")
	ErrUserPlanNoAccess = errors.New("无权操作该订阅")
	ErrInvalidDate      = errors.New("日期格式应为 yyyy-MM-dd")
)

type UserPlanService struct {
	userPlanRepo *repository.UserPlanRepository
	planRepo     *repository.PlanRepository
	userRepo     *repository.UserRepository
	clock        clock.Clock
	mailer       *email.Service
	publisher    Publisher
	log          *logrus.Entry
}

func NewUserPlanService(
	userPlanRepo *repository.UserPlanRepository,
	planRepo *repository.PlanRepository,
	userRepo *repository.UserRepository,
	clk clock.Clock,
	mailer *email.Service,
	publisher Publisher,
	log logrus.FieldLogger,
) *UserPlanService {
	return &UserPlanService{
		userPlanRepo: userPlanRepo,
		planRepo:     planRepo,
		userRepo:     userRepo,
		clock:        clk,
		mailer:       mailer,
		publisher:    publisher,
		log:          logger.Component(log, "user_plan"),
	}
}

// Subscribe 订阅套餐，拷贝当前套餐名称、价格、地点，状态为 new
func (s *UserPlanService) Subscribe(ctx context.Context, userID int64, req *dto.SubscribeRequest) (*dto.UserPlanItem, error) {
	from, err := time.Parse(billing.DateLayout, req.RequiredFrom)
	if err != nil {
		return nil, ErrInvalidDate
	}
	to, err := time.Parse(billing.DateLayout, req.RequiredTo)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if to.Before(from) {
		return nil, billing.ErrInvalidRange
	}

	plan, err := s.planRepo.GetByID(req.PlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	up := &model.UserPlan{
		PlanID:         plan.ID,
		PlanName:       plan.PlanName,
		Price:          plan.Price,
		Location:       plan.Location,
		UserID:         userID,
		RequestedBy:    user.FullName,
		RequestedDate:  billing.DateOnly(s.clock.Now()),
		RequiredFrom:   from,
		RequiredTo:     to,
		AutoTerminated: req.AutoTerminated,
		AlertRequired:  req.AlertRequired,
		Status:         model.UserPlanStatusNew,
	}
	if err := s.userPlanRepo.Create(up); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"user_plan_id": up.ID,
		"plan_id":      plan.ID,
	}).Info("plan requested")

	publish(ctx, s.publisher, s.log, &pubsub.Message{
		Type:     pubsub.TypePlanRequested,
		Audience: pubsub.AudienceAdmin,
		UserID:   userID,
		RefID:    up.ID,
		Status:   up.Status,
		Message:  up.RequestedBy + ": " + up.PlanName,
	})

	return toUserPlanItem(up), nil
}

// List 按状态分组返回用户的订阅
func (s *UserPlanService) List(userID int64) (*dto.UserPlansResponse, error) {
	ups, err := s.userPlanRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.UserPlansResponse{
		Approved: make([]*dto.UserPlanItem, 0),
		Rejected: make([]*dto.UserPlanItem, 0),
		Pending:  make([]*dto.UserPlanItem, 0),
	}
	for _, up := range ups {
		item := toUserPlanItem(up)
		switch up.Status {
		case model.UserPlanStatusApproved:
			resp.Approved = append(resp.Approved, item)
		case model.UserPlanStatusRejected:
			resp.Rejected = append(resp.Rejected, item)
		default:
			resp.Pending = append(resp.Pending, item)
		}
	}
	return resp, nil
}

// Unsubscribe 取消订阅，只能删除自己的订阅
func (s *UserPlanService) Unsubscribe(userID, userPlanID int64) error {
	up, err := s.getOwned(userID, userPlanID)
	if err != nil {
		return err
	}
	return s.userPlanRepo.Delete(up.ID)
}

// getOwned 获取当前用户的订阅
func (s *UserPlanService) getOwned(userID, userPlanID int64) (*model.UserPlan, error) {
	up, err := s.userPlanRepo.GetByID(userPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserPlanNotFound
		}
		return nil, err
	}
	if up.UserID != userID {
		return nil, ErrUserPlanNoAccess
	}
	return up, nil
}

// AdminList 管理员按状态查询订阅，status 为空时返回全部
func (s *UserPlanService) AdminList(status string) ([]*dto.UserPlanItem, error) {
	ups, err := s.userPlanRepo.ListByStatus(status)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.UserPlanItem, 0, len(ups))
	for _, up := range ups {
		items = append(items, toUserPlanItem(up))
	}
	return items, nil
}

// Approve 审批通过订阅
func (s *UserPlanService) Approve(ctx context.Context, userPlanID int64) error {
	return s.decide(ctx, userPlanID, model.UserPlanStatusApproved, "")
}

// Reject 拒绝订阅，必须填写原因
func (s *UserPlanService) Reject(ctx context.Context, userPlanID int64, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return ErrCommentRequired
	}
	return s.decide(ctx, userPlanID, model.UserPlanStatusRejected, comment)
}

func (s *UserPlanService) decide(ctx context.Context, userPlanID int64, status, comment string) error {
	affected, err := s.userPlanRepo.Decide(userPlanID, status, comment, s.clock.Now())
	if err != nil {
		return err
	}

	up, err := s.userPlanRepo.GetByID(userPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserPlanNotFound
		}
		return err
	}
	if affected == 0 {
		return ErrAlreadyDecided
	}

	if s.mailer != nil {
		if user, err := s.userRepo.GetByID(up.UserID); err == nil {
			approved := status == model.UserPlanStatusApproved
			if err := s.mailer.SendPlanDecision(user.EmailAddress(), user.FullName, up.PlanName, approved, comment); err != nil {
				s.log.WithError(err).WithField("user_plan_id", up.ID).Warn("failed to send plan decision email")
			}
		}
	}
	publish(ctx, s.publisher, s.log, &pubsub.Message{
		Type:    pubsub.TypePlanDecision,
		UserID:  up.UserID,
		RefID:   up.ID,
		Status:  status,
		Message: comment,
	})

	return nil
}

func toUserPlanItem(up *model.UserPlan) *dto.UserPlanItem {
	return &dto.UserPlanItem{
		UserPlanID:       up.ID,
		PlanID:           up.PlanID,
		PlanName:         up.PlanName,
		Price:            up.Price,
		Location:         up.Location,
		UserID:           up.UserID,
		RequestedBy:      up.RequestedBy,
		RequestedDate:    up.RequestedDate.Format(billing.DateLayout),
		RequiredFrom:     up.RequiredFrom.Format(billing.DateLayout),
		RequiredTo:       up.RequiredTo.Format(billing.DateLayout),
		AutoTerminated:   up.AutoTerminated,
		AlertRequired:    up.AlertRequired,
		Status:           up.Status,
		RejectionComment: up.RejectionComment,
	}
}
