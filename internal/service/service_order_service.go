package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/model"
	"maintenance-ops/backend/internal/repository"
	pkgerrors "maintenance-ops/backend/pkg/errors"
)

// ── 工单模块业务错误 ──

var (
	ErrServiceOrderNotFound = fmt.Errorf("%w: 工单不存在", pkgerrors.ErrNotFound)
)

// ServiceOrderService 工单业务接口
type ServiceOrderService interface {
	Get(ctx context.Context, id int64) (*dto.ServiceOrderResponse, error)
	GetBySchedule(ctx context.Context, scheduleID int64) (*dto.ServiceOrderResponse, error)
	List(ctx context.Context, req *dto.ServiceOrderListRequest) ([]dto.ServiceOrderResponse, int64, error)
	Transition(ctx context.Context, id int64, req *dto.OrderTransitionRequest) (*dto.ServiceOrderResponse, error)
}

type serviceOrderService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewServiceOrderService 创建 ServiceOrderService 实例
func NewServiceOrderService(repo *repository.Repository, logger *zap.Logger) ServiceOrderService {
	return &serviceOrderService{repo: repo, logger: logger, now: time.Now}
}

func (s *serviceOrderService) Get(ctx context.Context, id int64) (*dto.ServiceOrderResponse, error) {
	order, err := s.repo.ServiceOrder.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceOrderNotFound
		}
		s.logger.Error("查询工单失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toServiceOrderResponse(order), nil
}

func (s *serviceOrderService) GetBySchedule(ctx context.Context, scheduleID int64) (*dto.ServiceOrderResponse, error) {
	order, err := s.repo.ServiceOrder.GetByScheduleID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceOrderNotFound
		}
		s.logger.Error("按排程查询工单失败", zap.Int64("schedule_id", scheduleID), zap.Error(err))
		return nil, err
	}
	return toServiceOrderResponse(order), nil
}

func (s *serviceOrderService) List(ctx context.Context, req *dto.ServiceOrderListRequest) ([]dto.ServiceOrderResponse, int64, error) {
	filter := model.ServiceOrderFilter{
		EquipmentID: req.EquipmentID,
		Offset:      req.GetOffset(),
		Limit:       req.GetPageSize(),
	}
	if req.Status != "" {
		st, err := model.ParseServiceOrderStatus(req.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &st
	}

	orders, total, err := s.repo.ServiceOrder.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出工单失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ServiceOrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, *toServiceOrderResponse(&orders[i]))
	}
	return result, total, nil
}

func (s *serviceOrderService) Transition(ctx context.Context, id int64, req *dto.OrderTransitionRequest) (*dto.ServiceOrderResponse, error) {
	target, err := model.ParseServiceOrderStatus(req.TargetStatus)
	if err != nil {
		return nil, err
	}

	var order *model.ServiceOrder
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		order, err = tx.ServiceOrder.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrServiceOrderNotFound
			}
			return err
		}

		from := order.Status
		if !model.CanTransitionOrder(from, target) {
			return fmt.Errorf("%w: %s → %s", pkgerrors.ErrInvalidTransition, from, target)
		}

		order.Status = target
		if err := tx.ServiceOrder.Update(ctx, order); err != nil {
			return err
		}

		action, ok := model.OrderTransitionAction(from, target)
		if !ok {
			return nil
		}
		oid := order.ID
		return recordAudit(ctx, tx, s.now(), &model.AuditEvent{
			EquipmentID:    order.EquipmentID,
			ScheduleID:     order.ScheduleID,
			ServiceOrderID: &oid,
			ActionType:     action,
			Description:    fmt.Sprintf("工单 %s 状态 %s → %s", order.OrderNumber, from, target),
			PerformedBy:    req.ActorID,
			AdditionalData: datatypes.JSONMap{
				"orderNumber": order.OrderNumber,
				"from":        string(from),
				"to":          string(target),
			},
		})
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) && !errors.Is(err, pkgerrors.ErrInvalidTransition) {
			s.logger.Error("工单状态迁移失败", zap.Int64("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("工单状态已迁移", zap.Int64("id", id), zap.String("to", string(target)))
	return toServiceOrderResponse(order), nil
}
