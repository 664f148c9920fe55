package service

import (
	"go.uber.org/zap"

	"maintenance-ops/backend/config"
	"maintenance-ops/backend/internal/repository"
	"maintenance-ops/backend/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Schedule     ScheduleService
	Conversion   ConversionService
	ServiceOrder ServiceOrderService
	Audit        AuditService
	Notification NotificationService
	Scheduler    *NotificationScheduler
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	dispatcher Dispatcher,
	guard SlotAcquirer,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	conversion := NewConversionService(cfg, repo, dispatcher, m, logger)
	return &Service{
		Schedule:     NewScheduleService(cfg, repo, conversion, m, logger),
		Conversion:   conversion,
		ServiceOrder: NewServiceOrderService(repo, logger),
		Audit:        NewAuditService(repo, logger),
		Notification: NewNotificationService(repo, logger),
		Scheduler:    NewNotificationScheduler(&cfg.Scheduler, repo, dispatcher, guard, m, logger),
	}
}
