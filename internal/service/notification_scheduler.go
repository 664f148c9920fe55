package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"maintenance-ops/backend/config"
	"maintenance-ops/backend/internal/model"
	"maintenance-ops/backend/internal/repository"
	"maintenance-ops/backend/pkg/logger"
	"maintenance-ops/backend/pkg/metrics"
)

// SlotAcquirer 数据库并发槽位（PoolGuard）
type SlotAcquirer interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// ScanResult 单次扫描统计
type ScanResult struct {
	Reminders   int // 新建的到期提醒
	Escalations int // 新建的逾期升级
	Skipped     int // 去重或无接收人而跳过
	Failed      int // 单条失败（已记录日志，不影响其他候选）
}

type candidateKind int

const (
	kindReminder candidateKind = iota
	kindOverdue
)

// NotificationScheduler 周期扫描维护排程，生成到期提醒与逾期升级通知。
// 与 HTTP 处理相互独立；单条失败只记日志，下个周期自然重试。
type NotificationScheduler struct {
	repo       *repository.Repository
	cfg        *config.SchedulerConfig
	loc        *time.Location
	dispatcher Dispatcher
	guard      SlotAcquirer
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time

	mu sync.Mutex
	c  *cron.Cron
}

// NewNotificationScheduler 创建调度器；guard 可为 nil
func NewNotificationScheduler(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	dispatcher Dispatcher,
	guard SlotAcquirer,
	m *metrics.Metrics,
	log *zap.Logger,
) *NotificationScheduler {
	return &NotificationScheduler{
		repo:       repo,
		cfg:        cfg,
		loc:        cfg.Location(),
		dispatcher: dispatcher,
		guard:      guard,
		metrics:    m,
		logger:     log.Named("scheduler"),
		now:        time.Now,
	}
}

// Start 启动周期扫描，重复调用无效果
func (s *NotificationScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	cl := logger.NewCronLogger(s.logger)
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	spec := fmt.Sprintf("@every %s", s.cfg.Interval.String())
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("注册通知扫描任务失败: %w", err)
	}
	c.Start()
	s.c = c

	s.logger.Info("通知调度器已启动",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("lookahead", s.cfg.Lookahead),
		zap.String("tz", s.loc.String()),
	)
	return nil
}

// Stop 停止调度并等待正在执行的扫描结束，ctx 到期则不再等待
func (s *NotificationScheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
		s.logger.Info("通知调度器已停止")
	case <-ctx.Done():
		s.logger.Warn("等待通知扫描结束超时")
	}
}

func (s *NotificationScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
	defer cancel()

	start := time.Now()
	res, err := s.RunOnce(ctx)
	if err != nil {
		s.metrics.SchedulerTicks.WithLabelValues("error").Inc()
		s.logger.Warn("通知扫描失败，等待下个周期", zap.Error(err))
		return
	}
	s.metrics.SchedulerTicks.WithLabelValues("ok").Inc()

	if res.Reminders+res.Escalations+res.Failed > 0 {
		s.logger.Info("通知扫描完成",
			zap.Int("reminders", res.Reminders),
			zap.Int("escalations", res.Escalations),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// RunOnce 执行一次扫描。只有候选查询失败才返回错误，单条候选失败计入 Failed。
func (s *NotificationScheduler) RunOnce(ctx context.Context) (ScanResult, error) {
	var res ScanResult

	if s.guard != nil {
		release, err := s.guard.Acquire(ctx)
		if err != nil {
			return res, err
		}
		defer release()
	}

	now := s.now()
	today := model.DateOf(now, s.loc)
	until := model.DateOf(now.Add(s.cfg.Lookahead), s.loc)

	due, err := s.repo.Schedule.ListDueBetween(ctx, today, until, s.cfg.BatchLimit)
	if err != nil {
		return res, fmt.Errorf("查询到期排程失败: %w", err)
	}
	overdue, err := s.repo.Schedule.ListOverdue(ctx, today, s.cfg.BatchLimit)
	if err != nil {
		return res, fmt.Errorf("查询逾期排程失败: %w", err)
	}

	for i := range due {
		s.handleCandidate(ctx, &due[i], kindReminder, today, now, &res)
	}
	for i := range overdue {
		s.handleCandidate(ctx, &overdue[i], kindOverdue, today, now, &res)
	}
	return res, nil
}

func (s *NotificationScheduler) recipients(schedule *model.MaintenanceSchedule) []int64 {
	if schedule.AssignedUserID != nil {
		return []int64{*schedule.AssignedUserID}
	}
	return s.cfg.FallbackUserIDs
}

func (s *NotificationScheduler) handleCandidate(
	ctx context.Context,
	schedule *model.MaintenanceSchedule,
	kind candidateKind,
	today, now time.Time,
	res *ScanResult,
) {
	recipients := s.recipients(schedule)
	if len(recipients) == 0 {
		s.logger.Warn("排程未指派且未配置兜底接收人，跳过", zap.Int64("schedule_id", schedule.ID))
		res.Skipped++
		return
	}

	for _, userID := range recipients {
		created, err := s.notify(ctx, schedule, kind, userID, today, now)
		switch {
		case err != nil:
			res.Failed++
			s.logger.Error("生成维护通知失败",
				zap.Int64("schedule_id", schedule.ID),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		case !created:
			res.Skipped++
		case kind == kindOverdue:
			res.Escalations++
		default:
			res.Reminders++
		}
	}
}

// notify 去重后落库并推送；返回是否新建
func (s *NotificationScheduler) notify(
	ctx context.Context,
	schedule *model.MaintenanceSchedule,
	kind candidateKind,
	userID int64,
	today, now time.Time,
) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	exists, err := s.repo.Notification.ExistsUnread(ctx, userID, model.ReferenceMaintenanceSchedule, schedule.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if s.cfg.DedupWindow > 0 {
		recent, err := s.repo.Notification.ExistsSince(ctx, userID, model.ReferenceMaintenanceSchedule, schedule.ID, now.Add(-s.cfg.DedupWindow))
		if err != nil {
			return false, err
		}
		if recent {
			return false, nil
		}
	}

	n := buildScheduleNotification(schedule, kind, userID, today)
	n.CreatedAt = now.UTC()
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		return false, fmt.Errorf("保存通知失败: %w", err)
	}
	s.metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()

	s.dispatcher.Deliver(n)
	return true, nil
}

func buildScheduleNotification(schedule *model.MaintenanceSchedule, kind candidateKind, userID int64, today time.Time) *model.Notification {
	sid := schedule.ID
	date := schedule.ScheduledDate.Format("2006-01-02")
	n := &model.Notification{
		UserID:        userID,
		ReferenceType: model.ReferenceMaintenanceSchedule,
		ReferenceID:   &sid,
	}

	if kind == kindOverdue {
		days := int(today.Sub(model.DateOf(schedule.ScheduledDate, time.UTC)).Hours() / 24)
		n.Type = model.NotificationMaintenanceOverdue
		n.Title = "维护已逾期"
		n.Message = fmt.Sprintf("设备 #%d 的%s维护原定于 %s，已逾期 %d 天。", schedule.EquipmentID, schedule.MaintenanceType, date, days)
		n.Priority = model.PriorityHigh
		if schedule.Priority == model.PriorityCritical {
			n.Priority = model.PriorityCritical
		}
		return n
	}

	n.Type = model.NotificationMaintenanceReminder
	n.Title = "维护即将到期"
	n.Message = fmt.Sprintf("设备 #%d 的%s维护计划于 %s 执行。", schedule.EquipmentID, schedule.MaintenanceType, date)
	n.Priority = schedule.Priority
	return n
}
