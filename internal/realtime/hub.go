package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"maintenance-ops/backend/config"
	"maintenance-ops/backend/internal/model"
	"maintenance-ops/backend/pkg/metrics"
)

// Hub 按用户维护在线会话，实现 service.Dispatcher
// 推送只是尽力而为，收件箱以数据库为准
type Hub struct {
	cfg     *config.RealtimeConfig
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[int64]map[*Session]struct{}
}

// NewHub 创建 Hub
func NewHub(cfg *config.RealtimeConfig, m *metrics.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		metrics:  m,
		logger:   logger.Named("realtime"),
		sessions: make(map[int64]map[*Session]struct{}),
	}
}

// Message 推送帧
type Message struct {
	Type    string              `json:"type"`
	Payload *PushedNotification `json:"payload"`
}

// PushedNotification 推送给客户端的通知摘要
type PushedNotification struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	Type          string         `json:"notificationType"`
	Priority      model.Priority `json:"priority"`
	ReferenceType string         `json:"referenceType"`
	ReferenceID   *int64         `json:"referenceId"`
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	set, ok := h.sessions[s.userID]
	if !ok {
		set = make(map[*Session]struct{})
		h.sessions[s.userID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	h.metrics.LiveConnections.Inc()
	h.logger.Debug("会话已注册", zap.String("session_id", s.id), zap.Int64("user_id", s.userID))
}

// unregister 可重复调用
func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	set, ok := h.sessions[s.userID]
	if ok {
		if _, ok = set[s]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.sessions, s.userID)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		h.metrics.LiveConnections.Dec()
		h.logger.Debug("会话已注销", zap.String("session_id", s.id), zap.Int64("user_id", s.userID))
	}
}

// Count 用户当前在线会话数
func (h *Hub) Count(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Deliver 非阻塞地推送到用户的全部会话，发送缓冲满的会话被断开
func (h *Hub) Deliver(n *model.Notification) {
	if n == nil {
		return
	}
	frame, err := json.Marshal(Message{
		Type: "notification",
		Payload: &PushedNotification{
			ID:            n.ID,
			Title:         n.Title,
			Message:       n.Message,
			Type:          n.Type,
			Priority:      n.Priority,
			ReferenceType: n.ReferenceType,
			ReferenceID:   n.ReferenceID,
		},
	})
	if err != nil {
		h.logger.Error("序列化推送帧失败", zap.Int64("notification_id", n.ID), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions[n.UserID]))
	for s := range h.sessions[n.UserID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if s.enqueue(frame) {
			continue
		}
		h.metrics.DeliveryFailures.Inc()
		h.logger.Warn("会话发送缓冲已满，断开连接",
			zap.String("session_id", s.id),
			zap.Int64("user_id", n.UserID),
			zap.Int64("notification_id", n.ID),
		)
		s.close()
	}
}

// CloseAll 关闭全部会话，用于优雅停机
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Session
	for _, set := range h.sessions {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range all {
		s.close()
	}
}
