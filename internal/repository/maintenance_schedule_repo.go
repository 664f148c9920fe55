package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maintenance-ops/backend/internal/model"
	pkgerrors "maintenance-ops/backend/pkg/errors"
)

// ScheduleRepository 维护排程数据访问接口
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.MaintenanceSchedule) error
	GetByID(ctx context.Context, id int64) (*model.MaintenanceSchedule, error)
	// GetForUpdate 行级锁读取，只能在事务内使用
	GetForUpdate(ctx context.Context, id int64) (*model.MaintenanceSchedule, error)
	List(ctx context.Context, filter model.ScheduleFilter) ([]model.MaintenanceSchedule, int64, error)
	// ListDueBetween SCHEDULED 且 scheduled_date ∈ [from, to]
	ListDueBetween(ctx context.Context, from, to time.Time, limit int) ([]model.MaintenanceSchedule, error)
	// ListOverdue SCHEDULED 且 scheduled_date < today
	ListOverdue(ctx context.Context, today time.Time, limit int) ([]model.MaintenanceSchedule, error)
	Update(ctx context.Context, schedule *model.MaintenanceSchedule) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Create(ctx context.Context, schedule *model.MaintenanceSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scheduleRepo) GetByID(ctx context.Context, id int64) (*model.MaintenanceSchedule, error) {
	var schedule model.MaintenanceSchedule
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) GetForUpdate(ctx context.Context, id int64) (*model.MaintenanceSchedule, error) {
	var schedule model.MaintenanceSchedule
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) List(ctx context.Context, filter model.ScheduleFilter) ([]model.MaintenanceSchedule, int64, error) {
	var schedules []model.MaintenanceSchedule
	var total int64

	db := r.db.WithContext(ctx).Model(&model.MaintenanceSchedule{})
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.EquipmentID != nil {
		db = db.Where("equipment_id = ?", *filter.EquipmentID)
	}
	if filter.AssignedUserID != nil {
		db = db.Where("assigned_user_id = ?", *filter.AssignedUserID)
	}
	if filter.OverdueAsOf != nil {
		db = db.Where("status = ? AND scheduled_date < ?", model.ScheduleScheduled, *filter.OverdueAsOf)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	err := db.Offset(filter.Offset).Limit(limit).
		Order("scheduled_date ASC, id ASC").
		Find(&schedules).Error
	return schedules, total, err
}

func (r *scheduleRepo) ListDueBetween(ctx context.Context, from, to time.Time, limit int) ([]model.MaintenanceSchedule, error) {
	var schedules []model.MaintenanceSchedule
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_date >= ? AND scheduled_date <= ?", model.ScheduleScheduled, from, to).
		Order("scheduled_date ASC, id ASC").
		Limit(limit).
		Find(&schedules).Error
	return schedules, err
}

func (r *scheduleRepo) ListOverdue(ctx context.Context, today time.Time, limit int) ([]model.MaintenanceSchedule, error) {
	var schedules []model.MaintenanceSchedule
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_date < ?", model.ScheduleScheduled, today).
		Order("scheduled_date ASC, id ASC").
		Limit(limit).
		Find(&schedules).Error
	return schedules, err
}

func (r *scheduleRepo) Update(ctx context.Context, schedule *model.MaintenanceSchedule) error {
	oldVersion := schedule.Version
	now := time.Now()
	// 空模型承载更新，冲突时调用方对象保持原样
	result := r.db.WithContext(ctx).
		Model(&model.MaintenanceSchedule{}).
		Where("id = ? AND version = ?", schedule.ID, oldVersion).
		Updates(map[string]interface{}{
			"assigned_user_id": schedule.AssignedUserID,
			"scheduled_date":   schedule.ScheduledDate,
			"maintenance_type": schedule.MaintenanceType,
			"priority":         schedule.Priority,
			"status":           schedule.Status,
			"estimated_cost":   schedule.EstimatedCost,
			"observations":     schedule.Observations,
			"version":          oldVersion + 1,
			"updated_at":       now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	schedule.Version = oldVersion + 1
	schedule.UpdatedAt = now
	return nil
}
