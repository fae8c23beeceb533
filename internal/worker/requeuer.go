package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/internal/pkg/logger"
)

const (
	requeueInterval = 5 * time.Minute
	requeueBatch    = 50
)

// Retrier 重新入队失败任务，service.StatementService 实现了该接口
type Retrier interface {
	RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error)
}

// Requeuer 后台定期重试失败的归档任务
type Requeuer struct {
	retrier     Retrier
	maxAttempts int
	interval    time.Duration
	log         *logrus.Entry
}

func NewRequeuer(retrier Retrier, maxAttempts int, log logrus.FieldLogger) *Requeuer {
	return &Requeuer{
		retrier:     retrier,
		maxAttempts: maxAttempts,
		interval:    requeueInterval,
		log:         logger.Component(log, "requeuer"),
	}
}

// Start 启动后台重试循环
func (r *Requeuer) Start(ctx context.Context) {
	// 启动后先执行一次
	r.run(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("requeuer stopped")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

func (r *Requeuer) run(ctx context.Context) {
	n, err := r.retrier.RetryFailed(ctx, r.maxAttempts, requeueBatch)
	if err != nil {
		r.log.WithError(err).Error("failed to requeue jobs")
		return
	}
	if n > 0 {
		r.log.WithField("jobs", n).Info("failed jobs requeued")
	}
}
