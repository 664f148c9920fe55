package handler

import (
	"github.com/gin-gonic/gin"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/service"
	"maintenance-ops/backend/pkg/response"
)

// ServiceOrderHandler 工单 HTTP 处理器
type ServiceOrderHandler struct {
	orderSvc service.ServiceOrderService
	auditSvc service.AuditService
}

// NewServiceOrderHandler 创建 ServiceOrderHandler
func NewServiceOrderHandler(orderSvc service.ServiceOrderService, auditSvc service.AuditService) *ServiceOrderHandler {
	return &ServiceOrderHandler{orderSvc: orderSvc, auditSvc: auditSvc}
}

// List 工单列表
// GET /service-orders
func (h *ServiceOrderHandler) List(c *gin.Context) {
	var req dto.ServiceOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	list, total, err := h.orderSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 工单详情
// GET /service-orders/:id
func (h *ServiceOrderHandler) Get(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	result, err := h.orderSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// Transition 工单状态迁移
// POST /service-orders/:id/transition
func (h *ServiceOrderHandler) Transition(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.OrderTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	result, err := h.orderSvc.Transition(c.Request.Context(), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// ListAuditEvents 工单审计轨迹
// GET /service-orders/:id/audit-events
func (h *ServiceOrderHandler) ListAuditEvents(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	list, total, err := h.auditSvc.ListByServiceOrder(c.Request.Context(), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
