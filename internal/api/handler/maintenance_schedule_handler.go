package handler

import (
	"github.com/gin-gonic/gin"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/service"
	"maintenance-ops/backend/pkg/response"
)

// MaintenanceScheduleHandler 维护排程 HTTP 处理器
type MaintenanceScheduleHandler struct {
	scheduleSvc   service.ScheduleService
	conversionSvc service.ConversionService
	orderSvc      service.ServiceOrderService
	auditSvc      service.AuditService
}

// NewMaintenanceScheduleHandler 创建 MaintenanceScheduleHandler
func NewMaintenanceScheduleHandler(
	scheduleSvc service.ScheduleService,
	conversionSvc service.ConversionService,
	orderSvc service.ServiceOrderService,
	auditSvc service.AuditService,
) *MaintenanceScheduleHandler {
	return &MaintenanceScheduleHandler{
		scheduleSvc:   scheduleSvc,
		conversionSvc: conversionSvc,
		orderSvc:      orderSvc,
		auditSvc:      auditSvc,
	}
}

// Create 创建排程
// POST /maintenance-schedules
func (h *MaintenanceScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// List 排程列表
// GET /maintenance-schedules?status=&equipmentId=&overdue=
func (h *MaintenanceScheduleHandler) List(c *gin.Context) {
	var req dto.ScheduleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.scheduleSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 排程详情
// GET /maintenance-schedules/:id
func (h *MaintenanceScheduleHandler) Get(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	result, err := h.scheduleSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 修改排程
// PUT /maintenance-schedules/:id
func (h *MaintenanceScheduleHandler) Update(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// Transition 状态迁移
// POST /maintenance-schedules/:id/transition
func (h *MaintenanceScheduleHandler) Transition(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.Transition(c.Request.Context(), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// ConvertToServiceOrder 已完成排程转工单
// POST /maintenance-schedules/:id/convert-to-service-order
func (h *MaintenanceScheduleHandler) ConvertToServiceOrder(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.conversionSvc.Convert(c.Request.Context(), id, req.ActorID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// GetServiceOrder 排程生成的工单
// GET /maintenance-schedules/:id/service-order
func (h *MaintenanceScheduleHandler) GetServiceOrder(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	result, err := h.orderSvc.GetBySchedule(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// ListAuditEvents 排程审计轨迹
// GET /maintenance-schedules/:id/audit-events
func (h *MaintenanceScheduleHandler) ListAuditEvents(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.auditSvc.ListBySchedule(c.Request.Context(), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// DetachAuditEvents 排程删除回调：保留事件，解除关联
// POST /maintenance-schedules/:id/audit-events/detach
func (h *MaintenanceScheduleHandler) DetachAuditEvents(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	n, err := h.auditSvc.OnScheduleDeleted(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, dto.CascadeResponse{Affected: n})
}
