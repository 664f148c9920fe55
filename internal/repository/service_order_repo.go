package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"maintenance-ops/backend/internal/model"
	pkgerrors "maintenance-ops/backend/pkg/errors"
)

// ServiceOrderRepository 工单数据访问接口
type ServiceOrderRepository interface {
	// Create 违反 schedule_id / order_number 唯一约束时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, order *model.ServiceOrder) error
	GetByID(ctx context.Context, id int64) (*model.ServiceOrder, error)
	GetByScheduleID(ctx context.Context, scheduleID int64) (*model.ServiceOrder, error)
	List(ctx context.Context, filter model.ServiceOrderFilter) ([]model.ServiceOrder, int64, error)
	Update(ctx context.Context, order *model.ServiceOrder) error
}

type serviceOrderRepo struct {
	db *gorm.DB
}

// NewServiceOrderRepo 创建 ServiceOrderRepository 实例
func NewServiceOrderRepo(db *gorm.DB) ServiceOrderRepository {
	return &serviceOrderRepo{db: db}
}

func (r *serviceOrderRepo) Create(ctx context.Context, order *model.ServiceOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *serviceOrderRepo) GetByID(ctx context.Context, id int64) (*model.ServiceOrder, error) {
	var order model.ServiceOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *serviceOrderRepo) GetByScheduleID(ctx context.Context, scheduleID int64) (*model.ServiceOrder, error) {
	var order model.ServiceOrder
	if err := r.db.WithContext(ctx).Where("schedule_id = ?", scheduleID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *serviceOrderRepo) List(ctx context.Context, filter model.ServiceOrderFilter) ([]model.ServiceOrder, int64, error) {
	var orders []model.ServiceOrder
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ServiceOrder{})
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.EquipmentID != nil {
		db = db.Where("equipment_id = ?", *filter.EquipmentID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	err := db.Offset(filter.Offset).Limit(limit).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, total, err
}

func (r *serviceOrderRepo) Update(ctx context.Context, order *model.ServiceOrder) error {
	oldVersion := order.Version
	now := time.Now()
	// 空模型承载更新，冲突时调用方对象保持原样
	result := r.db.WithContext(ctx).
		Model(&model.ServiceOrder{}).
		Where("id = ? AND version = ?", order.ID, oldVersion).
		Updates(map[string]interface{}{
			"status":      order.Status,
			"priority":    order.Priority,
			"cost":        order.Cost,
			"assigned_to": order.AssignedTo,
			"description": order.Description,
			"version":     oldVersion + 1,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	order.Version = oldVersion + 1
	order.UpdatedAt = now
	return nil
}
