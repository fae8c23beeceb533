package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/internal/pkg/pubsub"
)

// Publisher 用户通知发布，pubsub.Publisher 实现了该接口
type Publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) error
}

// publish 通知失败只记录日志，不影响业务结果
func publish(ctx context.Context, p Publisher, log logrus.FieldLogger, msg *pubsub.Message) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, msg); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"type":    msg.Type,
			"user_id": msg.UserID,
		}).Warn("failed to publish notification")
	}
}
