package repository

import (
	"context"

	"gorm.io/gorm"

	"maintenance-ops/backend/internal/model"
)

// AuditEventRepository 审计事件数据访问接口。
// 不提供 Update；删除只来自外部实体删除时的显式级联。
type AuditEventRepository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
	List(ctx context.Context, filter AuditEventFilter) ([]model.AuditEvent, int64, error)
	// DetachSchedule 排程被删除时将其事件的 schedule_id 置空，事件本身保留
	DetachSchedule(ctx context.Context, scheduleID int64) (int64, error)
	// DeleteByEquipment 设备被删除时移除其全部事件
	DeleteByEquipment(ctx context.Context, equipmentID int64) (int64, error)
}

// AuditEventFilter 审计事件查询条件，至少指定一个归属
type AuditEventFilter struct {
	EquipmentID    *int64
	ScheduleID     *int64
	ServiceOrderID *int64
	ActionType     *model.AuditAction
	Offset         int
	Limit          int
}

type auditEventRepo struct {
	db *gorm.DB
}

// NewAuditEventRepo 创建 AuditEventRepository 实例
func NewAuditEventRepo(db *gorm.DB) AuditEventRepository {
	return &auditEventRepo{db: db}
}

func (r *auditEventRepo) Create(ctx context.Context, event *model.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditEventRepo) List(ctx context.Context, filter AuditEventFilter) ([]model.AuditEvent, int64, error) {
	var events []model.AuditEvent
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AuditEvent{})
	if filter.EquipmentID != nil {
		db = db.Where("equipment_id = ?", *filter.EquipmentID)
	}
	if filter.ScheduleID != nil {
		db = db.Where("schedule_id = ?", *filter.ScheduleID)
	}
	if filter.ServiceOrderID != nil {
		db = db.Where("service_order_id = ?", *filter.ServiceOrderID)
	}
	if filter.ActionType != nil {
		db = db.Where("action_type = ?", *filter.ActionType)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	err := db.Offset(filter.Offset).Limit(limit).
		Order("performed_at DESC, id DESC").
		Find(&events).Error
	return events, total, err
}

func (r *auditEventRepo) DetachSchedule(ctx context.Context, scheduleID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AuditEvent{}).
		Where("schedule_id = ?", scheduleID).
		Update("schedule_id", nil)
	return result.RowsAffected, result.Error
}

func (r *auditEventRepo) DeleteByEquipment(ctx context.Context, equipmentID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Delete(&model.AuditEvent{})
	return result.RowsAffected, result.Error
}
