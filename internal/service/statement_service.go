package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/queue"
	"github.com/qs3c/powerplan_server/internal/repository"
)

var (
	ErrJobNotFound = errors.New("归档任务不存在")
	ErrJobNoAccess = errors.New("无权查看该归档任务")
)

// Enqueuer 归档任务队列，queue.Queue 实现了该接口
type Enqueuer interface {
	Push(ctx context.Context, msg *queue.StatementMessage) error
}

// StatementService 合并账单归档：建任务、入队，由 worker 渲染并上传
type StatementService struct {
	jobRepo      *repository.JobRepository
	userPlanRepo *repository.UserPlanRepository
	queue        Enqueuer
	clock        clock.Clock
	log          *logrus.Entry
}

func NewStatementService(
	jobRepo *repository.JobRepository,
	userPlanRepo *repository.UserPlanRepository,
	q Enqueuer,
	clk clock.Clock,
	log logrus.FieldLogger,
) *StatementService {
	return &StatementService{
		jobRepo:      jobRepo,
		userPlanRepo: userPlanRepo,
		queue:        q,
		clock:        clk,
		log:          logger.Component(log, "statement"),
	}
}

// Archive 为当前用户创建归档任务
func (s *StatementService) Archive(ctx context.Context, userID int64, q *dto.PeriodQuery) (*dto.ArchiveResponse, error) {
	period, err := billing.ResolvePeriod(q.Period, s.clock.Now(), q.Start, q.End)
	if err != nil {
		return nil, err
	}

	ups, err := s.userPlanRepo.ListApprovedByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(ups) == 0 {
		return nil, billing.ErrEmptyInput
	}

	job, err := s.enqueue(ctx, userID, period, model.JobSourceManual)
	if err != nil {
		return nil, err
	}
	return &dto.ArchiveResponse{JobID: job.ID}, nil
}

// EnqueueMonthly 为所有有已审批订阅的用户归档上个月的账单
func (s *StatementService) EnqueueMonthly(ctx context.Context) (int, error) {
	period, err := billing.ResolvePeriod(billing.PeriodPrevious, s.clock.Now(), "", "")
	if err != nil {
		return 0, err
	}

	userIDs, err := s.userPlanRepo.ListUserIDsWithApproved()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, userID := range userIDs {
		if _, err := s.enqueue(ctx, userID, period, model.JobSourceCron); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Error("failed to enqueue monthly statement")
			continue
		}
		count++
	}

	s.log.WithFields(logrus.Fields{
		"period_start": period.Start.Format(billing.DateLayout),
		"period_end":   period.End.Format(billing.DateLayout),
		"jobs":         count,
	}).Info("monthly statements enqueued")
	return count, nil
}

// RetryFailed 将未超过重试次数的失败任务重新入队
func (s *StatementService) RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error) {
	jobs, err := s.jobRepo.GetRetryableJobs(maxAttempts, limit)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, job := range jobs {
		if err := s.jobRepo.UpdateFields(job.ID, map[string]interface{}{
			"status":        model.JobStatusQueued,
			"error_message": "",
			"current_step":  "",
		}); err != nil {
			s.log.WithError(err).WithField("job_id", job.ID).Error("failed to reset job")
			continue
		}
		if err := s.push(ctx, job); err != nil {
			s.log.WithError(err).WithField("job_id", job.ID).Error("failed to requeue job")
			continue
		}
		count++
	}
	return count, nil
}

func (s *StatementService) enqueue(ctx context.Context, userID int64, period billing.Period, source string) (*model.BillJob, error) {
	job := &model.BillJob{
		UserID:      userID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Source:      source,
		Status:      model.JobStatusQueued,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}

	if err := s.push(ctx, job); err != nil {
		if uerr := s.jobRepo.UpdateFields(job.ID, map[string]interface{}{
			"status":        model.JobStatusFailed,
			"error_message": err.Error(),
		}); uerr != nil {
			s.log.WithError(uerr).WithField("job_id", job.ID).Error("failed to mark job failed")
		}
		return nil, fmt.Errorf("enqueue statement job: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"user_id": userID,
		"source":  source,
	}).Info("statement job queued")
	return job, nil
}

func (s *StatementService) push(ctx context.Context, job *model.BillJob) error {
	return s.queue.Push(ctx, &queue.StatementMessage{
		JobID:       job.ID,
		UserID:      job.UserID,
		PeriodStart: job.PeriodStart.Format(billing.DateLayout),
		PeriodEnd:   job.PeriodEnd.Format(billing.DateLayout),
		Attempt:     job.Attempts + 1,
	})
}

// List 当前用户的归档任务
func (s *StatementService) List(userID int64, page, pageSize int) ([]*dto.BillJobItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	jobs, total, err := s.jobRepo.ListByUserID(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.BillJobItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, toBillJobItem(job))
	}
	return items, total, nil
}

// Get 获取单个归档任务
func (s *StatementService) Get(userID, jobID int64) (*dto.BillJobItem, error) {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrJobNoAccess
	}
	return toBillJobItem(job), nil
}

func toBillJobItem(job *model.BillJob) *dto.BillJobItem {
	item := &dto.BillJobItem{
		ID:           job.ID,
		PeriodStart:  job.PeriodStart.Format(billing.DateLayout),
		PeriodEnd:    job.PeriodEnd.Format(billing.DateLayout),
		Source:       job.Source,
		Status:       job.Status,
		CurrentStep:  job.CurrentStep,
		FileName:     job.FileName,
		FileURL:      job.FileURL,
		TotalAmount:  job.TotalAmount,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		item.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return item
}
