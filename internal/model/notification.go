package model

import "time"

// 通知类型
const (
	NotificationMaintenanceReminder = "MAINTENANCE_REMINDER"
	NotificationMaintenanceOverdue  = "MAINTENANCE_OVERDUE"
	NotificationOrderGenerated      = "SERVICE_ORDER_GENERATED"
)

// 通知引用类型
const (
	ReferenceMaintenanceSchedule = "maintenance_schedule"
	ReferenceServiceOrder        = "service_order"
)

// Notification 通知消息表 — 对应 notifications
// 创建后仅允许所属用户标记已读
type Notification struct {
	ID            int64      `gorm:"primaryKey;autoIncrement"                json:"id"`
	UserID        int64      `gorm:"not null;index"                          json:"userId"`
	Title         string     `gorm:"type:varchar(200);not null"              json:"title"`
	Message       string     `gorm:"type:text;not null"                      json:"message"`
	Type          string     `gorm:"type:varchar(50);not null"               json:"type"`
	Priority      Priority   `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	ReferenceType string     `gorm:"type:varchar(50);not null;default:''"    json:"referenceType"`
	ReferenceID   *int64     `json:"referenceId,omitempty"`
	IsRead        bool       `gorm:"not null;default:false"                  json:"isRead"`
	ReadAt        *time.Time `json:"readAt,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"      json:"createdAt"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// NotificationFilter 收件箱查询条件
type NotificationFilter struct {
	UserID     int64
	UnreadOnly bool
	Offset     int
	Limit      int
}
