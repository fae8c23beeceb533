package ws

import (
	"github.com/qs3c/powerplan_server/internal/pkg/pubsub"
)

// Relay 把 pub/sub 通知转给在线连接：带 Audience 的按角色群发，否则发给 UserID
func (h *Hub) Relay(msg *pubsub.Message) {
	out := &Message{Type: msg.Type, Data: msg}

	if msg.Audience != "" {
		if _, err := h.SendToRole(msg.Audience, out); err != nil {
			h.log.WithError(err).WithField("audience", msg.Audience).Warn("failed to relay notification")
		}
		return
	}
	if err := h.SendToUser(msg.UserID, out); err != nil {
		h.log.WithError(err).WithField("user_id", msg.UserID).Warn("failed to relay notification")
	}
}
