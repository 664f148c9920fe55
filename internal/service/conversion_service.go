package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"maintenance-ops/backend/config"
	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/model"
	"maintenance-ops/backend/internal/repository"
	pkgerrors "maintenance-ops/backend/pkg/errors"
	"maintenance-ops/backend/pkg/metrics"
)

// ── 转换模块业务错误 ──

var (
	ErrScheduleNotCompleted = fmt.Errorf("%w: 只有已完成的排程可以生成工单", pkgerrors.ErrInvalidState)
	errOrderNumberTaken     = errors.New("工单号已被占用")
)

// ConversionService 排程转工单
type ConversionService interface {
	// Convert 在单个事务内：取号、建单、更新排程状态、写审计、为负责人建通知。
	// 同一排程并发调用只有一个成功，其余返回 ErrAlreadyConverted。
	Convert(ctx context.Context, scheduleID, actorID int64) (*dto.ConvertResponse, error)
}

type conversionService struct {
	repo       *repository.Repository
	cfg        *config.ConversionConfig
	loc        *time.Location
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewConversionService 创建 ConversionService 实例
func NewConversionService(
	cfg *config.Config,
	repo *repository.Repository,
	dispatcher Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) ConversionService {
	return &conversionService{
		repo:       repo,
		cfg:        &cfg.Conversion,
		loc:        cfg.Scheduler.Location(),
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

type conversionResult struct {
	order        *model.ServiceOrder
	notification *model.Notification
}

func (s *conversionService) Convert(ctx context.Context, scheduleID, actorID int64) (*dto.ConvertResponse, error) {
	if actorID <= 0 {
		return nil, pkgerrors.Validationf("actorId 必须为正整数")
	}

	var result conversionResult
	err := s.withRetry(ctx, scheduleID, func() error {
		result = conversionResult{}
		return s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
			return s.convertInTx(ctx, tx, scheduleID, actorID, &result)
		})
	})
	if err != nil {
		return nil, s.finishWithError(ctx, scheduleID, err)
	}

	s.metrics.Conversions.WithLabelValues("success").Inc()
	s.logger.Info("排程已转换为工单",
		zap.Int64("schedule_id", scheduleID),
		zap.String("order_number", result.order.OrderNumber),
		zap.Int64("actor_id", actorID),
	)

	// 事务已提交，推送不占用连接
	if result.notification != nil {
		s.metrics.NotificationsCreated.WithLabelValues(result.notification.Type).Inc()
		s.dispatcher.Deliver(result.notification)
	}

	return &dto.ConvertResponse{
		OrderNumber:  result.order.OrderNumber,
		ServiceOrder: *toServiceOrderResponse(result.order),
	}, nil
}

func (s *conversionService) convertInTx(ctx context.Context, tx *repository.Repository, scheduleID, actorID int64, out *conversionResult) error {
	schedule, err := tx.Schedule.GetForUpdate(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleNotFound
		}
		return err
	}

	existing, err := tx.ServiceOrder.GetByScheduleID(ctx, scheduleID)
	switch {
	case err == nil:
		return &pkgerrors.ConflictError{
			ScheduleID:     scheduleID,
			ServiceOrderID: existing.ID,
			OrderNumber:    existing.OrderNumber,
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	switch schedule.Status {
	case model.ScheduleCompleted:
	case model.ScheduleServiceOrderGenerated:
		// 状态已生成但工单被删除或解除关联，仍视为已转换
		return &pkgerrors.ConflictError{ScheduleID: scheduleID}
	default:
		return fmt.Errorf("%w（当前状态 %s）", ErrScheduleNotCompleted, schedule.Status)
	}

	now := s.now()
	year := now.In(s.loc).Year()
	seq, err := tx.Sequence.Next(ctx, model.SequenceServiceOrder, year)
	if err != nil {
		return fmt.Errorf("生成工单序号失败: %w", err)
	}
	orderNumber := model.FormatOrderNumber(seq, year)

	sid := schedule.ID
	order := &model.ServiceOrder{
		OrderNumber: orderNumber,
		ScheduleID:  &sid,
		EquipmentID: schedule.EquipmentID,
		CompanyID:   schedule.CompanyID,
		Status:      model.OrderOpen,
		Priority:    schedule.Priority,
		Cost:        schedule.EstimatedCost,
		Description: fmt.Sprintf("由维护排程 #%d（%s）生成", schedule.ID, schedule.MaintenanceType),
		CreatedBy:   actorID,
		AssignedTo:  schedule.AssignedUserID,
	}
	if err := tx.ServiceOrder.Create(ctx, order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errOrderNumberTaken
		}
		return err
	}

	schedule.Status = model.ScheduleServiceOrderGenerated
	if err := tx.Schedule.Update(ctx, schedule); err != nil {
		return err
	}

	oid := order.ID
	event := &model.AuditEvent{
		EquipmentID:    schedule.EquipmentID,
		ScheduleID:     &sid,
		ServiceOrderID: &oid,
		ActionType:     model.ActionServiceOrderGenerated,
		Description:    fmt.Sprintf("排程 #%d 已转换为工单 %s", schedule.ID, orderNumber),
		PerformedBy:    actorID,
		AdditionalData: datatypes.JSONMap{
			"orderNumber":    orderNumber,
			"scheduleId":     schedule.ID,
			"previousStatus": string(model.ScheduleCompleted),
		},
	}
	if err := recordAudit(ctx, tx, now, event); err != nil {
		return fmt.Errorf("记录转换审计失败: %w", err)
	}

	if schedule.AssignedUserID != nil {
		n := &model.Notification{
			UserID:        *schedule.AssignedUserID,
			Title:         fmt.Sprintf("工单 %s 已生成", orderNumber),
			Message:       fmt.Sprintf("维护排程 #%d 已转换为工单 %s，请及时处理。", schedule.ID, orderNumber),
			Type:          model.NotificationOrderGenerated,
			Priority:      schedule.Priority,
			ReferenceType: model.ReferenceServiceOrder,
			ReferenceID:   &oid,
			CreatedAt:     now.UTC(),
		}
		if err := tx.Notification.Create(ctx, n); err != nil {
			return fmt.Errorf("创建工单通知失败: %w", err)
		}
		out.notification = n
	}

	out.order = order
	return nil
}

// finishWithError 统一记录失败结果；唯一约束冲突时补查已存在的工单号
func (s *conversionService) finishWithError(ctx context.Context, scheduleID int64, err error) error {
	if errors.Is(err, errOrderNumberTaken) {
		existing, lookupErr := s.repo.ServiceOrder.GetByScheduleID(ctx, scheduleID)
		if lookupErr == nil {
			err = &pkgerrors.ConflictError{
				ScheduleID:     scheduleID,
				ServiceOrderID: existing.ID,
				OrderNumber:    existing.OrderNumber,
			}
		}
	}

	switch {
	case errors.Is(err, pkgerrors.ErrAlreadyConverted):
		s.metrics.Conversions.WithLabelValues("already_converted").Inc()
		s.logger.Info("排程已转换，拒绝重复转换", zap.Int64("schedule_id", scheduleID), zap.Error(err))
	case errors.Is(err, pkgerrors.ErrNotFound), errors.Is(err, pkgerrors.ErrInvalidState):
		s.metrics.Conversions.WithLabelValues("rejected").Inc()
	default:
		s.metrics.Conversions.WithLabelValues("error").Inc()
		s.logger.Error("排程转换工单失败", zap.Int64("schedule_id", scheduleID), zap.Error(err))
	}
	return err
}

// withRetry 序列化失败、死锁与乐观锁冲突按退避重试，其余错误立即返回
func (s *conversionService) withRetry(ctx context.Context, scheduleID int64, fn func() error) error {
	attempts := s.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) || attempt == attempts {
			return err
		}

		s.logger.Warn("转换遇到瞬时冲突，准备重试",
			zap.Int64("schedule_id", scheduleID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		timer := time.NewTimer(s.cfg.RetryBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// isTransient 40001 serialization_failure / 40P01 deadlock_detected
func isTransient(err error) bool {
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
