package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/internal/pkg/logger"
)

// Hub 在线连接表，按用户索引，同一用户可以有多个连接
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	log     *logrus.Entry
}

// Client 单个连接，Role 来自登录 token
type Client struct {
	UserID int64
	Role   string
	Conn   *websocket.Conn

	writeMu sync.Mutex
}

// Message 推给前端的消息
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		log:     logger.Component(log, "ws"),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	conns := h.clients[client.UserID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
	n := len(conns)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"user_id": client.UserID,
		"role":    client.Role,
		"conns":   n,
	}).Debug("client connected")
}

// Unregister 移除连接，重复调用无副作用
func (h *Hub) Unregister(client *Client) {
	if h.remove(client) {
		h.log.WithField("user_id", client.UserID).Debug("client disconnected")
	}
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		return false
	}
	if _, ok := conns[client]; !ok {
		return false
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
	return true
}

// SendToUser 推送给用户的全部连接，用户离线时什么也不做
func (h *Hub) SendToUser(userID int64, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	h.deliver(targets, data)
	return nil
}

// SendToRole 推送给指定角色的全部在线连接，用于通知管理员有新的待审批申请
func (h *Hub) SendToRole(role string, msg *Message) (int, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	var targets []*Client
	for _, conns := range h.clients {
		for c := range conns {
			if c.Role == role {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	return h.deliver(targets, data), nil
}

// deliver 写入失败的连接视为已断开，关闭并移出连接表
func (h *Hub) deliver(targets []*Client, data []byte) int {
	sent := 0
	for _, c := range targets {
		c.writeMu.Lock()
		err := c.Conn.WriteMessage(websocket.TextMessage, data)
		c.writeMu.Unlock()
		if err != nil {
			h.log.WithError(err).WithField("user_id", c.UserID).Warn("write failed, dropping connection")
			h.remove(c)
			_ = c.Conn.Close()
			continue
		}
		sent++
	}
	return sent
}

// IsOnline 用户是否至少有一个连接
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// ConnectionCount 在线连接总数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
