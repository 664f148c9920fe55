package dto

// ── 审计模块 DTO ──

// AuditListRequest 审计事件查询参数
type AuditListRequest struct {
	PaginationRequest
	ActionType string `form:"actionType"`
}

// CreateAuditEventRequest 外部生产者写入审计事件（目前只接受 PDF_GENERATED）
type CreateAuditEventRequest struct {
	EquipmentID    int64                  `json:"equipmentId"    binding:"required,min=1"`
	ScheduleID     *int64                 `json:"scheduleId"`
	ServiceOrderID *int64                 `json:"serviceOrderId"`
	ActionType     string                 `json:"actionType"     binding:"required"`
	Description    string                 `json:"description"    binding:"omitempty,max=2000"`
	PerformedBy    int64                  `json:"performedBy"    binding:"required,min=1"`
	AdditionalData map[string]interface{} `json:"additionalData"`
}

// AuditEventResponse 审计事件响应
type AuditEventResponse struct {
	ID             int64                  `json:"id"`
	EquipmentID    int64                  `json:"equipmentId"`
	ScheduleID     *int64                 `json:"scheduleId,omitempty"`
	ServiceOrderID *int64                 `json:"serviceOrderId,omitempty"`
	ActionType     string                 `json:"actionType"`
	Description    string                 `json:"description"`
	PerformedBy    int64                  `json:"performedBy"`
	PerformedAt    string                 `json:"performedAt"`
	AdditionalData map[string]interface{} `json:"additionalData"`
}

// CascadeResponse 级联操作影响行数
type CascadeResponse struct {
	Affected int64 `json:"affected"`
}
