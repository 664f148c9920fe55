package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ServiceOrder 工单 — 对应 service_orders
type ServiceOrder struct {
	ID          int64               `gorm:"primaryKey;autoIncrement"                   json:"id"`
	OrderNumber string              `gorm:"type:varchar(32);not null;uniqueIndex"      json:"orderNumber"`
	ScheduleID  *int64              `gorm:"uniqueIndex:uq_service_orders_schedule_id"  json:"scheduleId,omitempty"`
	EquipmentID int64               `gorm:"not null"                                   json:"equipmentId"`
	CompanyID   *int64              `json:"companyId,omitempty"`
	Status      ServiceOrderStatus  `gorm:"type:varchar(30);not null;default:'ABERTA'" json:"status"`
	Priority    Priority            `gorm:"type:varchar(20);not null"                  json:"priority"`
	Cost        decimal.NullDecimal `gorm:"type:numeric(12,2)"                         json:"cost"`
	Description string              `gorm:"type:text;not null;default:''"              json:"description"`
	CreatedBy   int64               `gorm:"not null"                                   json:"createdBy"`
	AssignedTo  *int64              `json:"assignedTo,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (ServiceOrder) TableName() string { return "service_orders" }

// ServiceOrderFilter 工单列表查询条件
type ServiceOrderFilter struct {
	Status      *ServiceOrderStatus
	EquipmentID *int64
	Offset      int
	Limit       int
}

// FormatOrderNumber 工单号 OS-{序号三位补零}-{年}，序号超过 999 时自然变长
func FormatOrderNumber(seq int64, year int) string {
	return fmt.Sprintf("OS-%03d-%d", seq, year)
}
