package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelNotifications = "powerplan_notifications"
)

// 消息类型
const (
	TypeStatementProgress = "statement_progress"
	TypeBillReady         = "bill_ready"
	TypeBillFailed        = "bill_failed"
	TypePlanDecision      = "plan_decision"
	TypeRegistration      = "registration_decision"
	TypePlanRequested     = "plan_requested"
)

// AudienceAdmin 发给全部在线管理员，此时忽略 UserID
const AudienceAdmin = "admin"

// Message 推送给用户的通知
type Message struct {
	Type     string `json:"type"`
	UserID   int64  `json:"user_id"`
	Audience string `json:"audience,omitempty"`
	JobID    int64  `json:"job_id,omitempty"`
	RefID    int64  `json:"ref_id,omitempty"`
	Status   string `json:"status,omitempty"`
	Step     string `json:"step,omitempty"`
	Progress int    `json:"progress,omitempty"`
	URL      string `json:"url,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// 归档阶段
const (
	StepRendering = "rendering"
	StepUploading = "uploading"
	StepDone      = "done"
)

var StepProgress = map[string]int{
	StepRendering: 30,
	StepUploading: 70,
	StepDone:      100,
}

var StepMessages = map[string]string{
	StepRendering: "正在生成账单",
	StepUploading: "正在上传账单",
	StepDone:      "账单已归档",
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布通知，进度类消息自动补齐百分比和文案
func (p *Publisher) Publish(ctx context.Context, msg *Message) error {
	if msg.Type == "" {
		msg.Type = TypeStatementProgress
	}
	if msg.Progress == 0 && msg.Step != "" {
		msg.Progress = StepProgress[msg.Step]
	}
	if msg.Message == "" && msg.Step != "" {
		msg.Message = StepMessages[msg.Step]
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return p.client.Publish(ctx, ChannelNotifications, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅通知，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*Message)) error {
	ps := s.client.Subscribe(ctx, ChannelNotifications)
	defer ps.Close()

	// 等待订阅确认，避免丢失紧随其后的发布
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var m Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				continue
			}
			handler(&m)
		}
	}
}
