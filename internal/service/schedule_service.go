package service

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// ── 排程模块业务错误 ──

var (
	ErrScheduleNotFound = fmt.Errorf("%w: 维护排程不存在", pkgerrors.ErrNotFound)
	ErrScheduleLocked   = fmt.Errorf("%w: 排程已完成或已关闭，不能再修改", pkgerrors.ErrInvalidState)
)

// ScheduleService 维护排程业务接口
type ScheduleService interface {
	Create(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	Get(ctx context.Context, id int64) (*dto.ScheduleResponse, error)
	List(ctx context.Context, req *dto.ScheduleListRequest) ([]dto.ScheduleResponse, int64, error)
	Update(ctx context.Context, id int64, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	// Transition 按状态机迁移并写入一条对应的审计事件；
	// 目标为 SERVICE_ORDER_GENERATED 时走转换流程
	Transition(ctx context.Context, id int64, req *dto.TransitionRequest) (*dto.ScheduleResponse, error)
}

type scheduleService struct {
	repo       *repository.Repository
	conversion ConversionService
	loc        *time.Location
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(
	cfg *config.Config,
	repo *repository.Repository,
	conversion ConversionService,
	m *metrics.Metrics,
	logger *zap.Logger,
) ScheduleService {
	return &scheduleService{
		repo:       repo,
		conversion: conversion,
		loc:        cfg.Scheduler.Location(),
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *scheduleService) today() time.Time {
	return model.DateOf(s.now(), s.loc)
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(dto.DateLayout, raw)
	if err != nil {
		return time.Time{}, pkgerrors.Validationf("日期格式应为 YYYY-MM-DD: %q", raw)
	}
	return d, nil
}

// ────────────────────── Create ──────────────────────

func (s *scheduleService) Create(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	date, err := parseDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return nil, err
	}
	if req.EstimatedCost != nil && req.EstimatedCost.IsNegative() {
		return nil, pkgerrors.Validationf("estimatedCost 不能为负数")
	}

	schedule := &model.MaintenanceSchedule{
		EquipmentID:     req.EquipmentID,
		CompanyID:       req.CompanyID,
		AssignedUserID:  req.AssignedUserID,
		ScheduledDate:   date,
		MaintenanceType: req.MaintenanceType,
		Priority:        priority,
		Status:          model.ScheduleScheduled,
		Observations:    req.Observations,
		CreatedBy:       req.ActorID,
	}
	if req.EstimatedCost != nil {
		schedule.EstimatedCost.Decimal = *req.EstimatedCost
		schedule.EstimatedCost.Valid = true
	}

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Schedule.Create(ctx, schedule); err != nil {
			return err
		}
		sid := schedule.ID
		return recordAudit(ctx, tx, s.now(), &model.AuditEvent{
			EquipmentID: schedule.EquipmentID,
			ScheduleID:  &sid,
			ActionType:  model.ActionScheduleCreated,
			Description: fmt.Sprintf("创建维护排程 #%d，计划日期 %s", schedule.ID, req.ScheduledDate),
			PerformedBy: req.ActorID,
		})
	})
	if err != nil {
		s.logger.Error("创建维护排程失败", zap.Int64("equipment_id", req.EquipmentID), zap.Error(err))
		return nil, err
	}

	return toScheduleResponse(schedule, s.today()), nil
}

// ────────────────────── Get / List ──────────────────────

func (s *scheduleService) Get(ctx context.Context, id int64) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询维护排程失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toScheduleResponse(schedule, s.today()), nil
}

func (s *scheduleService) List(ctx context.Context, req *dto.ScheduleListRequest) ([]dto.ScheduleResponse, int64, error) {
	today := s.today()
	filter := model.ScheduleFilter{
		EquipmentID:    req.EquipmentID,
		AssignedUserID: req.AssignedUserID,
		Offset:         req.GetOffset(),
		Limit:          req.GetPageSize(),
	}
	if req.Status != "" {
		st, err := model.ParseScheduleStatus(req.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &st
	}
	if req.Overdue {
		filter.OverdueAsOf = &today
	}

	schedules, total, err := s.repo.Schedule.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出维护排程失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		result = append(result, *toScheduleResponse(&schedules[i], today))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *scheduleService) Update(ctx context.Context, id int64, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询维护排程失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	if schedule.Status != model.ScheduleScheduled && schedule.Status != model.ScheduleInProgress {
		return nil, ErrScheduleLocked
	}

	var changed []string
	if req.ScheduledDate != nil {
		date, err := parseDate(*req.ScheduledDate)
		if err != nil {
			return nil, err
		}
		schedule.ScheduledDate = date
		changed = append(changed, "scheduledDate")
	}
	if req.AssignedUserID != nil {
		schedule.AssignedUserID = req.AssignedUserID
		changed = append(changed, "assignedUserId")
	}
	if req.MaintenanceType != nil {
		schedule.MaintenanceType = *req.MaintenanceType
		changed = append(changed, "maintenanceType")
	}
	if req.Priority != nil {
		p, err := model.ParsePriority(*req.Priority)
		if err != nil {
			return nil, err
		}
		schedule.Priority = p
		changed = append(changed, "priority")
	}
	if req.EstimatedCost != nil {
		if req.EstimatedCost.IsNegative() {
			return nil, pkgerrors.Validationf("estimatedCost 不能为负数")
		}
		schedule.EstimatedCost.Decimal = *req.EstimatedCost
		schedule.EstimatedCost.Valid = true
		changed = append(changed, "estimatedCost")
	}
	if req.Observations != nil {
		schedule.Observations = *req.Observations
		changed = append(changed, "observations")
	}

	if err := s.repo.Schedule.Update(ctx, schedule); err != nil {
		s.logger.Error("更新维护排程失败", zap.Int64("id", id), zap.Int64("actor_id", req.ActorID), zap.Error(err))
		return nil, err
	}

	// 审计动作集合不含字段修改，操作人只记入日志
	s.logger.Info("维护排程已修改",
		zap.Int64("id", id),
		zap.Int64("actor_id", req.ActorID),
		zap.Strings("fields", changed),
		zap.Int("version", schedule.Version),
	)

	return toScheduleResponse(schedule, s.today()), nil
}

// ────────────────────── Transition ──────────────────────

func (s *scheduleService) Transition(ctx context.Context, id int64, req *dto.TransitionRequest) (*dto.ScheduleResponse, error) {
	target, err := model.ParseScheduleStatus(req.TargetStatus)
	if err != nil {
		return nil, err
	}

	if target == model.ScheduleServiceOrderGenerated {
		return s.transitionByConversion(ctx, id, req.ActorID)
	}

	var schedule *model.MaintenanceSchedule
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		schedule, err = tx.Schedule.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrScheduleNotFound
			}
			return err
		}

		from := schedule.Status
		action, ok := model.ScheduleTransitionAction(from, target)
		if !ok {
			return fmt.Errorf("%w: %s → %s", pkgerrors.ErrInvalidTransition, from, target)
		}

		schedule.Status = target
		if err := tx.Schedule.Update(ctx, schedule); err != nil {
			return err
		}

		sid := schedule.ID
		return recordAudit(ctx, tx, s.now(), &model.AuditEvent{
			EquipmentID: schedule.EquipmentID,
			ScheduleID:  &sid,
			ActionType:  action,
			Description: fmt.Sprintf("排程 #%d 状态 %s → %s", schedule.ID, from, target),
			PerformedBy: req.ActorID,
			AdditionalData: datatypes.JSONMap{
				"from": string(from),
				"to":   string(target),
			},
		})
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) && !errors.Is(err, pkgerrors.ErrInvalidTransition) {
			s.logger.Error("排程状态迁移失败", zap.Int64("id", id), zap.String("target", string(target)), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.Transitions.WithLabelValues(string(target)).Inc()
	s.logger.Info("排程状态已迁移",
		zap.Int64("id", id),
		zap.String("to", string(target)),
		zap.Int64("actor_id", req.ActorID),
	)
	return toScheduleResponse(schedule, s.today()), nil
}

// transitionByConversion COMPLETED → SERVICE_ORDER_GENERATED 只能经由转换完成，
// 以保证工单、状态与审计同时落库
func (s *scheduleService) transitionByConversion(ctx context.Context, id, actorID int64) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	// 已转换的排程交给 Convert 返回带工单号的冲突
	_, ok := model.ScheduleTransitionAction(schedule.Status, model.ScheduleServiceOrderGenerated)
	if !ok && schedule.Status != model.ScheduleServiceOrderGenerated {
		return nil, fmt.Errorf("%w: %s → %s", pkgerrors.ErrInvalidTransition, schedule.Status, model.ScheduleServiceOrderGenerated)
	}

	if _, err := s.conversion.Convert(ctx, id, actorID); err != nil {
		return nil, err
	}
	s.metrics.Transitions.WithLabelValues(string(model.ScheduleServiceOrderGenerated)).Inc()

	return s.Get(ctx, id)
}
