package dto

import "github.com/shopspring/decimal"

// ── 工单模块 DTO ──

// ServiceOrderListRequest 工单列表查询参数
type ServiceOrderListRequest struct {
	PaginationRequest
	Status      string `form:"status"`
	EquipmentID *int64 `form:"equipmentId"`
}

// OrderTransitionRequest 工单状态迁移请求
type OrderTransitionRequest struct {
	TargetStatus string `json:"targetStatus" binding:"required"`
	ActorID      int64  `json:"actorId"      binding:"required,min=1"`
}

// ServiceOrderResponse 工单信息响应
type ServiceOrderResponse struct {
	ID          int64               `json:"id"`
	OrderNumber string              `json:"orderNumber"`
	ScheduleID  *int64              `json:"scheduleId,omitempty"`
	EquipmentID int64               `json:"equipmentId"`
	CompanyID   *int64              `json:"companyId,omitempty"`
	Status      string              `json:"status"`
	Priority    string              `json:"priority"`
	Cost        decimal.NullDecimal `json:"cost"`
	Description string              `json:"description"`
	CreatedBy   int64               `json:"createdBy"`
	AssignedTo  *int64              `json:"assignedTo,omitempty"`
	Version     int                 `json:"version"`
	CreatedAt   string              `json:"createdAt"`
	UpdatedAt   string              `json:"updatedAt"`
}
