package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/email"
	"github.com/qs3c/powerplan_server/internal/pkg/invoice"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/metrics"
	"github.com/qs3c/powerplan_server/internal/pkg/pubsub"
	"github.com/qs3c/powerplan_server/internal/pkg/queue"
	"github.com/qs3c/powerplan_server/internal/pkg/storage"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/service"
)

// StatementRenderer 生成合并账单，service.BillingService 实现了该接口
type StatementRenderer interface {
	RenderStatement(userID int64, period billing.Period, asOf time.Time) (*invoice.Document, error)
}

// Processor 归档任务处理器
type Processor struct {
	jobRepo   *repository.JobRepository
	userRepo  *repository.UserRepository
	renderer  StatementRenderer
	store     storage.Store
	publisher service.Publisher
	mailer    *email.Service
	clock     clock.Clock
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

// NewProcessor 创建任务处理器，publisher、mailer、metrics 可以为 nil
func NewProcessor(
	jobRepo *repository.JobRepository,
	userRepo *repository.UserRepository,
	renderer StatementRenderer,
	store storage.Store,
	publisher service.Publisher,
	mailer *email.Service,
	clk clock.Clock,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *Processor {
	return &Processor{
		jobRepo:   jobRepo,
		userRepo:  userRepo,
		renderer:  renderer,
		store:     store,
		publisher: publisher,
		mailer:    mailer,
		clock:     clk,
		metrics:   m,
		log:       logger.Component(log, "processor"),
	}
}

// Process 处理归档任务：生成合并账单、上传、通知用户
func (p *Processor) Process(ctx context.Context, msg *queue.StatementMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Status == model.JobStatusCompleted {
		p.log.WithField("job_id", job.ID).Info("job already completed, skipping")
		return nil
	}

	log := p.log.WithFields(logrus.Fields{"job_id": job.ID, "user_id": job.UserID})

	startedAt := p.clock.Now()
	job.Status = model.JobStatusProcessing
	job.StartedAt = &startedAt
	job.Attempts++
	job.ErrorMessage = ""
	job.NoRetry = false
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	progress := func(step string) {
		job.CurrentStep = step
		if err := p.jobRepo.UpdateStep(job.ID, step); err != nil {
			log.WithError(err).Warn("failed to update step")
		}
		p.notify(ctx, &pubsub.Message{
			Type:   pubsub.TypeStatementProgress,
			UserID: job.UserID,
			JobID:  job.ID,
			Status: model.JobStatusProcessing,
			Step:   step,
		})
	}

	handleError := func(step string, err error) error {
		completedAt := p.clock.Now()
		job.Status = model.JobStatusFailed
		job.CurrentStep = step
		job.ErrorMessage = err.Error()
		job.CompletedAt = &completedAt
		job.ElapsedSeconds = int(completedAt.Sub(startedAt).Seconds())
		if uerr := p.jobRepo.Update(job); uerr != nil {
			log.WithError(uerr).Error("failed to mark job failed")
		}
		p.count(model.JobStatusFailed)
		p.notify(ctx, &pubsub.Message{
			Type:   pubsub.TypeBillFailed,
			UserID: job.UserID,
			JobID:  job.ID,
			Status: model.JobStatusFailed,
			Step:   step,
			Error:  err.Error(),
		})
		log.WithError(err).WithField("step", step).Error("statement job failed")
		return err
	}

	// Step 1: 生成账单
	progress(pubsub.StepRendering)
	period := billing.Period{Start: job.PeriodStart, End: job.PeriodEnd}
	doc, err := p.renderer.RenderStatement(job.UserID, period, startedAt)
	if err != nil {
		if errors.Is(err, billing.ErrEmptyInput) {
			job.NoRetry = true
			err = fmt.Errorf("no approved plans to bill: %w", err)
		}
		return handleError(pubsub.StepRendering, err)
	}

	// Step 2: 上传
	progress(pubsub.StepUploading)
	key := storage.BillObjectKey(job.UserID, doc.Name)
	url, err := p.store.Put(ctx, key, doc.Content, storage.ContentTypePDF)
	if err != nil {
		return handleError(pubsub.StepUploading, fmt.Errorf("failed to upload bill: %w", err))
	}

	// Step 3: 更新任务
	completedAt := p.clock.Now()
	amount := billing.FormatMoney(doc.Total)
	job.Status = model.JobStatusCompleted
	job.CurrentStep = pubsub.StepDone
	job.FileName = doc.Name
	job.ObjectKey = key
	job.FileURL = url
	job.TotalAmount = amount
	job.CompletedAt = &completedAt
	job.ElapsedSeconds = int(completedAt.Sub(startedAt).Seconds())
	if err := p.jobRepo.Update(job); err != nil {
		return handleError(pubsub.StepDone, fmt.Errorf("failed to update job: %w", err))
	}
	p.count(model.JobStatusCompleted)

	p.notify(ctx, &pubsub.Message{
		Type:   pubsub.TypeBillReady,
		UserID: job.UserID,
		JobID:  job.ID,
		Status: model.JobStatusCompleted,
		Step:   pubsub.StepDone,
		URL:    url,
		Amount: amount,
	})
	p.sendReadyMail(job.UserID, url, amount)

	log.WithFields(logrus.Fields{
		"key":     key,
		"amount":  amount,
		"elapsed": job.ElapsedSeconds,
	}).Info("statement archived")
	return nil
}

func (p *Processor) notify(ctx context.Context, msg *pubsub.Message) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, msg); err != nil {
		p.log.WithError(err).WithField("job_id", msg.JobID).Warn("failed to publish notification")
	}
}

func (p *Processor) sendReadyMail(userID int64, url, amount string) {
	if p.mailer == nil {
		return
	}
	user, err := p.userRepo.GetByID(userID)
	if err != nil {
		p.log.WithError(err).WithField("user_id", userID).Warn("failed to load user for mail")
		return
	}
	if err := p.mailer.SendStatementReady(user.EmailAddress(), user.FullName, url, amount); err != nil {
		p.log.WithError(err).WithField("user_id", userID).Warn("failed to send statement mail")
	}
}

func (p *Processor) count(status string) {
	if p.metrics != nil {
		p.metrics.StatementJobs.WithLabelValues(status).Inc()
	}
}
