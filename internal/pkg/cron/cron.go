package cron

import (
	"context"
	"time"

	robfig "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/service"
)

// MonthlyEnqueuer 月度账单归档入队
type MonthlyEnqueuer interface {
	EnqueueMonthly(ctx context.Context) (int, error)
}

// Sweeper 到期订阅扫描
type Sweeper interface {
	Sweep(ctx context.Context, dryRun bool) (*service.SweepResult, error)
}

type Service struct {
	cron        *robfig.Cron
	statements  MonthlyEnqueuer
	termination Sweeper
	timeout     time.Duration
	log         logrus.FieldLogger
}

// NewService 使用五段式 cron 表达式，loc 决定触发时刻所在时区
func NewService(statements MonthlyEnqueuer, termination Sweeper, loc *time.Location, log logrus.FieldLogger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		cron:        robfig.New(robfig.WithLocation(loc)),
		statements:  statements,
		termination: termination,
		timeout:     10 * time.Minute,
		log:         logger.Component(log, "cron"),
	}
}

// Register 注册定时任务，表达式为空时跳过对应任务
func (s *Service) Register(statementSpec, terminationSpec string) error {
	if statementSpec != "" && s.statements != nil {
		if _, err := s.cron.AddFunc(statementSpec, s.runMonthlyStatements); err != nil {
			return err
		}
		s.log.WithField("spec", statementSpec).Info("monthly statement job registered")
	}
	if terminationSpec != "" && s.termination != nil {
		if _, err := s.cron.AddFunc(terminationSpec, s.runTermination); err != nil {
			return err
		}
		s.log.WithField("spec", terminationSpec).Info("termination sweep registered")
	}
	return nil
}

// Start 启动定时任务
func (s *Service) Start() {
	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("cron service started")
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron service stopped")
}

// runMonthlyStatements 为上一自然月有已批准订阅的用户创建归档任务
func (s *Service) runMonthlyStatements() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.statements.EnqueueMonthly(ctx)
	if err != nil {
		s.log.WithError(err).Error("monthly statement enqueue failed")
		return
	}
	s.log.WithField("jobs", n).Info("monthly statements enqueued")
}

// runTermination 每日到期终止与提醒
func (s *Service) runTermination() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.termination.Sweep(ctx, false)
	if err != nil {
		s.log.WithError(err).Error("termination sweep failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"terminated": len(result.Terminated),
		"alerted":    len(result.Alerted),
	}).Info("termination sweep completed")
}

// RunNow 立即执行全部任务（用于测试或手动触发）
func (s *Service) RunNow() {
	if s.statements != nil {
		s.runMonthlyStatements()
	}
	if s.termination != nil {
		s.runTermination()
	}
}
