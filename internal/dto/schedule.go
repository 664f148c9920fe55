package dto

import "github.com/shopspring/decimal"

// ── 维护排程模块 DTO ──

// CreateScheduleRequest 创建维护排程请求
type CreateScheduleRequest struct {
	EquipmentID     int64            `json:"equipmentId"     binding:"required,min=1"`
	CompanyID       *int64           `json:"companyId"`
	AssignedUserID  *int64           `json:"assignedUserId"`
	ScheduledDate   string           `json:"scheduledDate"   binding:"required"`
	MaintenanceType string           `json:"maintenanceType" binding:"required,max=50"`
	Priority        string           `json:"priority"`
	EstimatedCost   *decimal.Decimal `json:"estimatedCost"`
	Observations    string           `json:"observations"    binding:"omitempty,max=2000"`
	ActorID         int64            `json:"actorId"         binding:"required,min=1"`
}

// UpdateScheduleRequest 更新排程请求（仅 SCHEDULED / IN_PROGRESS 可改）
type UpdateScheduleRequest struct {
	ScheduledDate   *string          `json:"scheduledDate"`
	AssignedUserID  *int64           `json:"assignedUserId"`
	MaintenanceType *string          `json:"maintenanceType" binding:"omitempty,max=50"`
	Priority        *string          `json:"priority"`
	EstimatedCost   *decimal.Decimal `json:"estimatedCost"`
	Observations    *string          `json:"observations"    binding:"omitempty,max=2000"`
	ActorID         int64            `json:"actorId"         binding:"required,min=1"`
}

// ScheduleListRequest 排程列表查询参数
type ScheduleListRequest struct {
	PaginationRequest
	Status         string `form:"status"`
	EquipmentID    *int64 `form:"equipmentId"`
	AssignedUserID *int64 `form:"assignedUserId"`
	Overdue        bool   `form:"overdue"`
}

// TransitionRequest 状态迁移请求，targetStatus 接受旧版字面量
type TransitionRequest struct {
	TargetStatus string `json:"targetStatus" binding:"required"`
	ActorID      int64  `json:"actorId"      binding:"required,min=1"`
}

// ConvertRequest 排程转工单请求
type ConvertRequest struct {
	ActorID int64 `json:"actorId" binding:"required,min=1"`
}

// ScheduleResponse 排程信息响应，overdue 为查询时派生
type ScheduleResponse struct {
	ID              int64               `json:"id"`
	EquipmentID     int64               `json:"equipmentId"`
	CompanyID       *int64              `json:"companyId,omitempty"`
	AssignedUserID  *int64              `json:"assignedUserId,omitempty"`
	ScheduledDate   string              `json:"scheduledDate"`
	MaintenanceType string              `json:"maintenanceType"`
	Priority        string              `json:"priority"`
	Status          string              `json:"status"`
	Overdue         bool                `json:"overdue"`
	EstimatedCost   decimal.NullDecimal `json:"estimatedCost"`
	Observations    string              `json:"observations"`
	CreatedBy       int64               `json:"createdBy"`
	Version         int                 `json:"version"`
	CreatedAt       string              `json:"createdAt"`
	UpdatedAt       string              `json:"updatedAt"`
}

// ConvertResponse 转换结果
type ConvertResponse struct {
	OrderNumber  string               `json:"orderNumber"`
	ServiceOrder ServiceOrderResponse `json:"serviceOrder"`
}
