package service

import (
	"context"
	"net/smtp"
	"sync"
	"time"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/email"
	"github.com/qs3c/powerplan_server/internal/pkg/metering"
	"github.com/qs3c/powerplan_server/internal/pkg/pubsub"
	"github.com/qs3c/powerplan_server/internal/pkg/queue"
)

var testNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() clock.Clock {
	return clock.Fixed(testNow)
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*pubsub.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg *pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type sentMail struct {
	to  []string
	msg string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) send(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, msg: string(msg)})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newTestMailer() (*email.Service, *recordingMailer) {
	rec := &recordingMailer{}
	svc := email.NewService(&config.EmailConfig{
		SMTPHost: "smtp.test",
		SMTPPort: 25,
		From:     "billing@powerplan.test",
	}).WithSendFunc(rec.send)
	return svc, rec
}

type fakeMeter struct {
	usage metering.Usage
	calls int
}

func (m *fakeMeter) CalculateAndStoreBill(_ context.Context, _ int64, _, _ time.Time) metering.Usage {
	m.calls++
	return m.usage
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []*queue.StatementMessage
	err      error
	onPush   func()
}

func (q *fakeQueue) Push(_ context.Context, msg *queue.StatementMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.onPush != nil {
		q.onPush()
	}
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

func clockAt(t time.Time) clock.Clock {
	return clock.Fixed(t)
}
