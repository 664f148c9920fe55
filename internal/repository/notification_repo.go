package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"maintenance-ops/backend/internal/model"
)

// NotificationRepository 通知收件箱数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id int64) (*model.Notification, error)
	List(ctx context.Context, filter model.NotificationFilter) ([]model.Notification, int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	// ExistsUnread 接收人是否已有同一引用的未读通知
	ExistsUnread(ctx context.Context, userID int64, refType string, refID int64) (bool, error)
	// ExistsSince 接收人在 since 之后是否收到过同一引用的通知（不论已读）
	ExistsSince(ctx context.Context, userID int64, refType string, refID int64, since time.Time) (bool, error)
	// MarkRead 仅当通知属于 userID 时生效，返回受影响行数
	MarkRead(ctx context.Context, id, userID int64, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) GetByID(ctx context.Context, id int64) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) List(ctx context.Context, filter model.NotificationFilter) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		db = db.Where("is_read = ?", false)
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
		Find(&list).Error
	return list, total, err
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&total).Error
	return total, err
}

func (r *notificationRepo) ExistsUnread(ctx context.Context, userID int64, refType string, refID int64) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND reference_type = ? AND reference_id = ? AND is_read = ?", userID, refType, refID, false).
		Count(&total).Error
	return total > 0, err
}

func (r *notificationRepo) ExistsSince(ctx context.Context, userID int64, refType string, refID int64, since time.Time) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND reference_type = ? AND reference_id = ? AND created_at >= ?", userID, refType, refID, since).
		Count(&total).Error
	return total > 0, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID int64, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return result.RowsAffected, result.Error
}
