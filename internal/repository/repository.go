package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Schedule     ScheduleRepository
	ServiceOrder ServiceOrderRepository
	AuditEvent   AuditEventRepository
	Sequence     SequenceRepository
	Notification NotificationRepository

	// Tx 在单个数据库事务内执行 fn，fn 收到的 Repository 全部绑定到该事务
	Tx Transactor
}

// Transactor 事务执行器
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Schedule:     NewScheduleRepo(db),
		ServiceOrder: NewServiceOrderRepo(db),
		AuditEvent:   NewAuditEventRepo(db),
		Sequence:     NewSequenceRepo(db),
		Notification: NewNotificationRepo(db),
		Tx:           &gormTransactor{db: db},
	}
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
