package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction 审计动作类型
type AuditAction string

const (
	ActionScheduleCreated       AuditAction = "SCHEDULE_CREATED"
	ActionScheduleStarted       AuditAction = "SCHEDULE_STARTED"
	ActionScheduleCompleted     AuditAction = "SCHEDULE_COMPLETED"
	ActionScheduleCancelled     AuditAction = "SCHEDULE_CANCELLED"
	ActionServiceOrderGenerated AuditAction = "SERVICE_ORDER_GENERATED"
	ActionServiceOrderStarted   AuditAction = "SERVICE_ORDER_STARTED"
	ActionServiceOrderCompleted AuditAction = "SERVICE_ORDER_COMPLETED"
	ActionPDFGenerated          AuditAction = "PDF_GENERATED"
)

// AuditEvent 审计事件 — 对应 audit_events（只追加，应用代码不更新不删除）
type AuditEvent struct {
	ID             int64             `gorm:"primaryKey;autoIncrement"           json:"id"`
	EquipmentID    int64             `gorm:"not null;index"                     json:"equipmentId"`
	ScheduleID     *int64            `gorm:"index"                              json:"scheduleId,omitempty"`
	ServiceOrderID *int64            `gorm:"index"                              json:"serviceOrderId,omitempty"`
	ActionType     AuditAction       `gorm:"type:varchar(40);not null"          json:"actionType"`
	Description    string            `gorm:"type:text;not null;default:''"      json:"description"`
	PerformedBy    int64             `gorm:"not null"                           json:"performedBy"`
	PerformedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"performedAt"`
	AdditionalData datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"   json:"additionalData"`
}

// TableName 指定表名
func (AuditEvent) TableName() string { return "audit_events" }
