package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/realtime"
	"maintenance-ops/backend/internal/service"
	"maintenance-ops/backend/pkg/response"
)

// NotificationHandler 收件箱与实时推送 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
	hub             *realtime.Hub
	logger          *zap.Logger
}

// NewNotificationHandler 创建 NotificationHandler，hub 为 nil 时不开放 /ws
func NewNotificationHandler(notificationSvc service.NotificationService, hub *realtime.Hub, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc, hub: hub, logger: logger}
}

// List 收件箱
// GET /notifications?userId=&unreadOnly=
func (h *NotificationHandler) List(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// CountUnread 未读数
// GET /notifications/unread-count?userId=
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || userID <= 0 {
		response.BadRequest(c, 16001, "userId 必须为正整数")
		return
	}

	result, err := h.notificationSvc.CountUnread(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// MarkRead 标记已读，仅限所属用户
// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.NotificationOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	result, err := h.notificationSvc.MarkRead(c.Request.Context(), id, req.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// MarkAllRead 全部标记已读
// PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	var req dto.NotificationOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	result, err := h.notificationSvc.MarkAllRead(c.Request.Context(), req.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// ServeWS 建立实时推送连接
// GET /ws?user_id=
func (h *NotificationHandler) ServeWS(c *gin.Context) {
	if h.hub == nil {
		response.ServiceUnavailable(c, 16503, "实时推送未启用")
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.BadRequest(c, 16001, "user_id 必须为正整数")
		return
	}

	// 升级失败时 gorilla 已写入响应
	if err := h.hub.ServeWS(c.Writer, c.Request, userID); err != nil {
		h.logger.Warn("WebSocket 升级失败", zap.Int64("user_id", userID), zap.Error(err))
	}
}
