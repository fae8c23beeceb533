package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/email"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/metrics"
	"github.com/qs3c/powerplan_server/internal/repository"
)

// SweepResult 一次到期扫描的结果
type SweepResult struct {
	Terminated []*model.UserPlan
	Alerted    []*model.UserPlan
	DryRun     bool
}

// TerminationService 到期订阅自动终止和到期提醒
type TerminationService struct {
	userPlanRepo    *repository.UserPlanRepository
	userRepo        *repository.UserRepository
	mailer          *email.Service
	clock           clock.Clock
	alertDaysBefore int
	metrics         *metrics.Metrics
	log             *logrus.Entry
}

func NewTerminationService(
	userPlanRepo *repository.UserPlanRepository,
	userRepo *repository.UserRepository,
	mailer *email.Service,
	clk clock.Clock,
	alertDaysBefore int,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *TerminationService {
	return &TerminationService{
		userPlanRepo:    userPlanRepo,
		userRepo:        userRepo,
		mailer:          mailer,
		clock:           clk,
		alertDaysBefore: alertDaysBefore,
		metrics:         m,
		log:             logger.Component(log, "termination"),
	}
}

// Sweep 删除 required_to 早于今天且开启自动终止的订阅，
// 并给 alert_days_before 天内到期的订阅发送提醒；dryRun 时只统计不修改
func (s *TerminationService) Sweep(ctx context.Context, dryRun bool) (*SweepResult, error) {
	today := billing.DateOnly(s.clock.Now())
	result := &SweepResult{DryRun: dryRun}

	expired, err := s.userPlanRepo.ListExpired(today)
	if err != nil {
		return nil, err
	}
	result.Terminated = expired

	if !dryRun && len(expired) > 0 {
		ids := make([]int64, 0, len(expired))
		for _, up := range expired {
			ids = append(ids, up.ID)
		}
		deleted, err := s.userPlanRepo.DeleteByIDs(ids)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.PlansTerminated.Add(float64(deleted))
		}
	}

	if s.alertDaysBefore > 0 {
		expiring, err := s.userPlanRepo.ListExpiring(today, today.AddDate(0, 0, s.alertDaysBefore))
		if err != nil {
			return nil, err
		}
		for _, up := range expiring {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !dryRun {
				if err := s.alert(up); err != nil {
					s.log.WithError(err).WithField("user_plan_id", up.ID).Warn("failed to send expiry alert")
					continue
				}
				if err := s.userPlanRepo.MarkAlertSent(up.ID, s.clock.Now()); err != nil {
					return nil, err
				}
			}
			result.Alerted = append(result.Alerted, up)
		}
	}

	s.log.WithFields(logrus.Fields{
		"terminated": len(result.Terminated),
		"alerted":    len(result.Alerted),
		"dry_run":    dryRun,
	}).Info("expiry sweep finished")

	return result, nil
}

func (s *TerminationService) alert(up *model.UserPlan) error {
	if s.mailer == nil {
		return nil
	}
	user, err := s.userRepo.GetByID(up.UserID)
	if err != nil {
		return err
	}
	return s.mailer.SendExpiryAlert(user.EmailAddress(), user.FullName, up.PlanName, up.RequiredTo)
}
