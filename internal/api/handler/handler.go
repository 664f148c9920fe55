package handler

import (
	"go.uber.org/zap"

	"maintenance-ops/backend/internal/realtime"
	"maintenance-ops/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Schedule     *MaintenanceScheduleHandler
	ServiceOrder *ServiceOrderHandler
	Audit        *AuditHandler
	Notification *NotificationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Schedule:     NewMaintenanceScheduleHandler(svc.Schedule, svc.Conversion, svc.ServiceOrder, svc.Audit),
		ServiceOrder: NewServiceOrderHandler(svc.ServiceOrder, svc.Audit),
		Audit:        NewAuditHandler(svc.Audit),
		Notification: NewNotificationHandler(svc.Notification, hub, logger),
	}
}
