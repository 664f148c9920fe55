package handler

import (
	"github.com/gin-gonic/gin"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/service"
	"maintenance-ops/backend/pkg/response"
)

// AuditHandler 审计事件 HTTP 处理器
type AuditHandler struct {
	auditSvc service.AuditService
}

// NewAuditHandler 创建 AuditHandler
func NewAuditHandler(auditSvc service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// Create 外部写入审计事件（目前仅 PDF_GENERATED）
// POST /audit-events
func (h *AuditHandler) Create(c *gin.Context) {
	var req dto.CreateAuditEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	result, err := h.auditSvc.RecordExternal(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// ListByEquipment 设备审计轨迹
// GET /equipment/:id/audit-events
func (h *AuditHandler) ListByEquipment(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	list, total, err := h.auditSvc.ListByEquipment(c.Request.Context(), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// DeleteByEquipment 设备删除回调：移除该设备全部事件
// DELETE /equipment/:id/audit-events
func (h *AuditHandler) DeleteByEquipment(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	n, err := h.auditSvc.OnEquipmentDeleted(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, dto.CascadeResponse{Affected: n})
}
