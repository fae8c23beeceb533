package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/queue"
)

const popTimeout = 5 * time.Second

// Source 任务来源，queue.Queue 实现了该接口
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.StatementMessage, error)
}

// Handler 处理单个任务
type Handler interface {
	Process(ctx context.Context, msg *queue.StatementMessage) error
}

// Pool 固定数量的 worker 从队列取任务
type Pool struct {
	source  Source
	handler Handler
	size    int
	timeout time.Duration
	log     *logrus.Entry
}

func NewPool(source Source, handler Handler, size int, log logrus.FieldLogger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		source:  source,
		handler: handler,
		size:    size,
		timeout: popTimeout,
		log:     logger.Component(log, "pool"),
	}
}

// Run 阻塞直到 ctx 结束且所有 worker 退出
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	p.log.WithField("workers", p.size).Info("worker pool started")
	wg.Wait()
	p.log.Info("worker pool stopped")
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	log := p.log.WithField("worker", workerID)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := p.source.Pop(ctx, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("failed to pop job")
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		log.WithField("job_id", msg.JobID).Info("processing job")
		if err := p.handler.Process(ctx, msg); err != nil {
			log.WithError(err).WithField("job_id", msg.JobID).Warn("job failed")
		}
	}
}
