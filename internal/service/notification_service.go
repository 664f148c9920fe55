package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/model"
	"maintenance-ops/backend/internal/repository"
	pkgerrors "maintenance-ops/backend/pkg/errors"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound  = fmt.Errorf("%w: 通知不存在", pkgerrors.ErrNotFound)
	ErrNotificationForbidden = fmt.Errorf("%w: 只能标记自己的通知", pkgerrors.ErrForbidden)
)

// Dispatcher 把已落库的通知推送给在线会话。
// 实现必须非阻塞，且不返回错误：推送失败只记录日志。
type Dispatcher interface {
	Deliver(n *model.Notification)
}

// NopDispatcher 不推送（实时通道关闭时使用）
type NopDispatcher struct{}

// Deliver 丢弃
func (NopDispatcher) Deliver(*model.Notification) {}

// NotificationService 收件箱业务接口
type NotificationService interface {
	List(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	CountUnread(ctx context.Context, userID int64) (*dto.UnreadCountResponse, error)
	MarkRead(ctx context.Context, id, userID int64) (*dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID int64) (*dto.MarkAllReadResponse, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger, now: time.Now}
}

func (s *notificationService) List(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.List(ctx, model.NotificationFilter{
		UserID:     req.UserID,
		UnreadOnly: req.UnreadOnly,
		Offset:     req.GetOffset(),
		Limit:      req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("查询通知失败", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, *toNotificationResponse(&list[i]))
	}
	return result, total, nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID int64) (*dto.UnreadCountResponse, error) {
	n, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.UnreadCountResponse{Unread: n}, nil
}

// MarkRead 已读的通知重复标记直接返回，不改 read_at
func (s *notificationService) MarkRead(ctx context.Context, id, userID int64) (*dto.NotificationResponse, error) {
	n, err := s.repo.Notification.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		s.logger.Error("查询通知失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrNotificationForbidden
	}
	if n.IsRead {
		return toNotificationResponse(n), nil
	}

	at := s.now().UTC()
	if _, err := s.repo.Notification.MarkRead(ctx, id, userID, at); err != nil {
		s.logger.Error("标记通知已读失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &at
	return toNotificationResponse(n), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID int64) (*dto.MarkAllReadResponse, error) {
	updated, err := s.repo.Notification.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		s.logger.Error("批量标记已读失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.MarkAllReadResponse{Updated: updated}, nil
}
