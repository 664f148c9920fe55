package dto

// ── 通知模块 DTO ──

// NotificationListRequest 收件箱查询参数
type NotificationListRequest struct {
	PaginationRequest
	UserID     int64 `form:"userId"     binding:"required,min=1"`
	UnreadOnly bool  `form:"unreadOnly"`
}

// NotificationOwnerRequest 标记已读请求，userId 必须为通知所属人
type NotificationOwnerRequest struct {
	UserID int64 `json:"userId" binding:"required,min=1"`
}

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"userId"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	Type          string `json:"type"`
	Priority      string `json:"priority"`
	ReferenceType string `json:"referenceType,omitempty"`
	ReferenceID   *int64 `json:"referenceId,omitempty"`
	IsRead        bool   `json:"isRead"`
	ReadAt        string `json:"readAt,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// UnreadCountResponse 未读数
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// MarkAllReadResponse 批量已读结果
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
