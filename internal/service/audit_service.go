package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/model"
	"maintenance-ops/backend/internal/repository"
	pkgerrors "maintenance-ops/backend/pkg/errors"
)

// ── 审计模块业务错误 ──

var (
	ErrAuditActionNotAllowed = fmt.Errorf("%w: 外部只允许写入 PDF_GENERATED", pkgerrors.ErrValidation)
)

// AuditService 审计日志业务接口。只追加，不提供修改与删除；
// 删除只来自外部实体删除时的显式级联。
type AuditService interface {
	Record(ctx context.Context, event *model.AuditEvent) error
	// RecordExternal 外部生产者（报表导出）写入事件
	RecordExternal(ctx context.Context, req *dto.CreateAuditEventRequest) (*dto.AuditEventResponse, error)
	ListBySchedule(ctx context.Context, scheduleID int64, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error)
	ListByEquipment(ctx context.Context, equipmentID int64, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error)
	ListByServiceOrder(ctx context.Context, orderID int64, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error)
	// OnScheduleDeleted 排程删除：事件保留，schedule_id 置空
	OnScheduleDeleted(ctx context.Context, scheduleID int64) (int64, error)
	// OnEquipmentDeleted 设备删除：移除该设备全部事件
	OnEquipmentDeleted(ctx context.Context, equipmentID int64) (int64, error)
}

type auditService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService 创建 AuditService 实例
func NewAuditService(repo *repository.Repository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger, now: time.Now}
}

// recordAudit 在给定仓储（可能绑定事务）上追加一条事件
func recordAudit(ctx context.Context, repo *repository.Repository, now time.Time, event *model.AuditEvent) error {
	if event.PerformedAt.IsZero() {
		event.PerformedAt = now.UTC()
	}
	if event.AdditionalData == nil {
		event.AdditionalData = datatypes.JSONMap{}
	}
	return repo.AuditEvent.Create(ctx, event)
}

// ────────────────────── Record ──────────────────────

func (s *auditService) Record(ctx context.Context, event *model.AuditEvent) error {
	if event.EquipmentID <= 0 {
		return pkgerrors.Validationf("审计事件缺少 equipmentId")
	}
	if err := recordAudit(ctx, s.repo, s.now(), event); err != nil {
		s.logger.Error("记录审计事件失败",
			zap.Int64("equipment_id", event.EquipmentID),
			zap.String("action", string(event.ActionType)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *auditService) RecordExternal(ctx context.Context, req *dto.CreateAuditEventRequest) (*dto.AuditEventResponse, error) {
	if model.AuditAction(req.ActionType) != model.ActionPDFGenerated {
		return nil, ErrAuditActionNotAllowed
	}

	event := &model.AuditEvent{
		EquipmentID:    req.EquipmentID,
		ScheduleID:     req.ScheduleID,
		ServiceOrderID: req.ServiceOrderID,
		ActionType:     model.ActionPDFGenerated,
		Description:    req.Description,
		PerformedBy:    req.PerformedBy,
		AdditionalData: datatypes.JSONMap(req.AdditionalData),
	}
	if err := s.Record(ctx, event); err != nil {
		return nil, err
	}
	return toAuditEventResponse(event), nil
}

// ────────────────────── List ──────────────────────

func (s *auditService) ListBySchedule(ctx context.Context, scheduleID int64, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error) {
	return s.list(ctx, repository.AuditEventFilter{ScheduleID: &scheduleID}, req)
}

func (s *auditService) ListByEquipment(ctx context.Context, equipmentID int64, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error) {
	return s.list(ctx, repository.AuditEventFilter{EquipmentID: &equipmentID}, req)
}

func (s *auditService) ListByServiceOrder(ctx context.Context, orderID int64, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error) {
	return s.list(ctx, repository.AuditEventFilter{ServiceOrderID: &orderID}, req)
}

func (s *auditService) list(ctx context.Context, filter repository.AuditEventFilter, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error) {
	if req.ActionType != "" {
		action := model.AuditAction(req.ActionType)
		filter.ActionType = &action
	}
	filter.Offset = req.GetOffset()
	filter.Limit = req.GetPageSize()

	events, total, err := s.repo.AuditEvent.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询审计事件失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AuditEventResponse, 0, len(events))
	for i := range events {
		result = append(result, *toAuditEventResponse(&events[i]))
	}
	return result, total, nil
}

// ────────────────────── 级联 ──────────────────────

func (s *auditService) OnScheduleDeleted(ctx context.Context, scheduleID int64) (int64, error) {
	n, err := s.repo.AuditEvent.DetachSchedule(ctx, scheduleID)
	if err != nil {
		s.logger.Error("解除审计事件与排程关联失败", zap.Int64("schedule_id", scheduleID), zap.Error(err))
		return 0, err
	}
	s.logger.Info("排程删除，审计事件已解除关联", zap.Int64("schedule_id", scheduleID), zap.Int64("affected", n))
	return n, nil
}

func (s *auditService) OnEquipmentDeleted(ctx context.Context, equipmentID int64) (int64, error) {
	n, err := s.repo.AuditEvent.DeleteByEquipment(ctx, equipmentID)
	if err != nil {
		s.logger.Error("删除设备审计事件失败", zap.Int64("equipment_id", equipmentID), zap.Error(err))
		return 0, err
	}
	s.logger.Info("设备删除，审计事件已移除", zap.Int64("equipment_id", equipmentID), zap.Int64("affected", n))
	return n, nil
}
