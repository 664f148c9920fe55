package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/model"
	pkgerrors "maintenance-ops/backend/pkg/errors"
	"maintenance-ops/backend/pkg/metrics"
)

// ── 测试辅助 ──

func setupTestScheduleService() (*mockStore, ScheduleService) {
	store := newMockStore()
	repo := store.repository()
	cfg := testConfig()
	m := metrics.Nop()

	conv := NewConversionService(cfg, repo, &mockDispatcher{}, m, zap.NewNop()).(*conversionService)
	conv.now = func() time.Time { return fixedNow }

	svc := NewScheduleService(cfg, repo, conv, m, zap.NewNop()).(*scheduleService)
	svc.now = func() time.Time { return fixedNow }
	return store, svc
}

// ── Create ──

func TestScheduleService_Create_Success(t *testing.T) {
	store, svc := setupTestScheduleService()
	cost := decimal.RequireFromString("99.90")

	result, err := svc.Create(context.Background(), &dto.CreateScheduleRequest{
		EquipmentID:     23,
		ScheduledDate:   "2026-10-20",
		MaintenanceType: "preventiva",
		Priority:        "alta",
		EstimatedCost:   &cost,
		ActorID:         1,
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.Status != string(model.ScheduleScheduled) {
		t.Errorf("新排程状态应为 SCHEDULED，实际 %s", result.Status)
	}
	if result.Priority != string(model.PriorityHigh) {
		t.Errorf("优先级应归一化为 HIGH，实际 %s", result.Priority)
	}
	if result.ScheduledDate != "2026-10-20" || result.Overdue {
		t.Errorf("日期/逾期字段错误: %+v", result)
	}
	if n := len(store.eventsOf(model.ActionScheduleCreated)); n != 1 {
		t.Errorf("应记录 SCHEDULE_CREATED，实际 %d", n)
	}
}

func TestScheduleService_Create_InvalidInput(t *testing.T) {
	_, svc := setupTestScheduleService()
	neg := decimal.NewFromInt(-1)

	cases := []*dto.CreateScheduleRequest{
		{EquipmentID: 1, ScheduledDate: "20/10/2026", MaintenanceType: "x", ActorID: 1},
		{EquipmentID: 1, ScheduledDate: "2026-10-20", MaintenanceType: "x", Priority: "extreme", ActorID: 1},
		{EquipmentID: 1, ScheduledDate: "2026-10-20", MaintenanceType: "x", EstimatedCost: &neg, ActorID: 1},
	}
	for i, req := range cases {
		if _, err := svc.Create(context.Background(), req); !errors.Is(err, pkgerrors.ErrValidation) {
			t.Errorf("用例 %d 期望 ErrValidation，实际 %v", i, err)
		}
	}
}

// ── Get / List ──

func TestScheduleService_Get_OverdueDerived(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(scheduledOn(1, today.AddDate(0, 0, -1), nil))

	result, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if !result.Overdue || result.Status != string(model.ScheduleScheduled) {
		t.Errorf("昨天的 SCHEDULED 排程应派生为逾期，状态仍为 SCHEDULED: %+v", result)
	}
}

func TestScheduleService_Get_NotFound(t *testing.T) {
	_, svc := setupTestScheduleService()

	_, err := svc.Get(context.Background(), 99)
	if !errors.Is(err, ErrScheduleNotFound) || !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrScheduleNotFound，实际 %v", err)
	}
}

func TestScheduleService_List_Filters(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(scheduledOn(1, today.AddDate(0, 0, -1), nil))
	store.putSchedule(scheduledOn(2, today.AddDate(0, 0, 5), nil))
	sc := scheduledOn(3, today.AddDate(0, 0, -5), nil)
	sc.Status = model.ScheduleCancelled
	store.putSchedule(sc)

	list, total, err := svc.List(context.Background(), &dto.ScheduleListRequest{Overdue: true})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || list[0].ID != 1 {
		t.Errorf("逾期过滤应只返回排程 1，实际 total=%d", total)
	}

	_, total, _ = svc.List(context.Background(), &dto.ScheduleListRequest{Status: "cancelado"})
	if total != 1 {
		t.Errorf("旧版状态字面量应可用于过滤，实际 total=%d", total)
	}

	if _, _, err := svc.List(context.Background(), &dto.ScheduleListRequest{Status: "OVERDUE"}); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("OVERDUE 不是存储状态，应返回 ErrValidation，实际 %v", err)
	}
}

// ── Update ──

func TestScheduleService_Update_RescheduleClearsOverdue(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(scheduledOn(1, today.AddDate(0, 0, -1), nil))
	date := "2026-10-30"

	result, err := svc.Update(context.Background(), 1, &dto.UpdateScheduleRequest{ScheduledDate: &date, ActorID: 1})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.Overdue {
		t.Error("改期后不应再逾期")
	}
	if result.Version != 2 {
		t.Errorf("版本号应递增到 2，实际 %d", result.Version)
	}
}

func TestScheduleService_Update_LogsActorAndFields(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(scheduledOn(1, today, nil))
	core, logs := observer.New(zap.InfoLevel)
	svc.(*scheduleService).logger = zap.New(core)

	assignee := int64(42)
	obs := "trocar filtro"
	_, err := svc.Update(context.Background(), 1, &dto.UpdateScheduleRequest{
		AssignedUserID: &assignee,
		Observations:   &obs,
		ActorID:        7,
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}

	entries := logs.FilterMessage("维护排程已修改").All()
	if len(entries) != 1 {
		t.Fatalf("应记录 1 条修改日志，实际 %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["actor_id"] != int64(7) {
		t.Errorf("日志应带操作人 7，实际 %v", fields["actor_id"])
	}
	if got, ok := fields["fields"].([]interface{}); !ok || len(got) != 2 || got[0] != "assignedUserId" || got[1] != "observations" {
		t.Errorf("日志应列出修改字段，实际 %v", fields["fields"])
	}
	if fields["version"] != int64(2) {
		t.Errorf("日志应带新版本号 2，实际 %v", fields["version"])
	}
}

func TestScheduleService_Update_LockedAfterCompletion(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(completedSchedule(1, 23))
	obs := "late note"

	_, err := svc.Update(context.Background(), 1, &dto.UpdateScheduleRequest{Observations: &obs, ActorID: 1})
	if !errors.Is(err, pkgerrors.ErrInvalidState) {
		t.Errorf("已完成排程不可修改，实际 %v", err)
	}
}

// ── Transition ──

func TestScheduleService_Transition_FullLifecycle(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(scheduledOn(8, today, nil))

	steps := []struct {
		target string
		want   model.ScheduleStatus
		action model.AuditAction
	}{
		{"em andamento", model.ScheduleInProgress, model.ActionScheduleStarted},
		{"COMPLETED", model.ScheduleCompleted, model.ActionScheduleCompleted},
		{"os_gerada", model.ScheduleServiceOrderGenerated, model.ActionServiceOrderGenerated},
	}
	for _, st := range steps {
		result, err := svc.Transition(context.Background(), 8, &dto.TransitionRequest{TargetStatus: st.target, ActorID: 1})
		if err != nil {
			t.Fatalf("迁移到 %s 失败: %v", st.target, err)
		}
		if result.Status != string(st.want) {
			t.Errorf("期望状态 %s，实际 %s", st.want, result.Status)
		}
		if n := len(store.eventsOf(st.action)); n != 1 {
			t.Errorf("迁移到 %s 应记录 1 条 %s，实际 %d", st.want, st.action, n)
		}
	}

	if n := len(store.ordersForSchedule(8)); n != 1 {
		t.Errorf("经状态迁移生成工单应恰好 1 张，实际 %d", n)
	}
}

func TestScheduleService_Transition_Invalid(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(scheduledOn(1, today, nil))

	_, err := svc.Transition(context.Background(), 1, &dto.TransitionRequest{TargetStatus: "COMPLETED", ActorID: 1})
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("SCHEDULED→COMPLETED 应返回 ErrInvalidTransition，实际 %v", err)
	}

	_, err = svc.Transition(context.Background(), 1, &dto.TransitionRequest{TargetStatus: "SERVICE_ORDER_GENERATED", ActorID: 1})
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("SCHEDULED→SERVICE_ORDER_GENERATED 应返回 ErrInvalidTransition，实际 %v", err)
	}

	if st := store.schedule(1).Status; st != model.ScheduleScheduled {
		t.Errorf("非法迁移不应改变状态，实际 %s", st)
	}
	if n := len(store.events); n != 0 {
		t.Errorf("非法迁移不应写审计，实际 %d", n)
	}
}

func TestScheduleService_Transition_CancelledNeverConverts(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(scheduledOn(1, today, nil))

	if _, err := svc.Transition(context.Background(), 1, &dto.TransitionRequest{TargetStatus: "cancelado", ActorID: 1}); err != nil {
		t.Fatalf("取消应成功: %v", err)
	}
	if n := len(store.eventsOf(model.ActionScheduleCancelled)); n != 1 {
		t.Errorf("取消应记录 SCHEDULE_CANCELLED，实际 %d", n)
	}

	for _, target := range []string{"IN_PROGRESS", "COMPLETED", "SERVICE_ORDER_GENERATED"} {
		_, err := svc.Transition(context.Background(), 1, &dto.TransitionRequest{TargetStatus: target, ActorID: 1})
		if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
			t.Errorf("CANCELLED→%s 应被拒绝，实际 %v", target, err)
		}
	}
	if n := len(store.ordersForSchedule(1)); n != 0 {
		t.Errorf("已取消排程不应生成工单，实际 %d", n)
	}
}

func TestScheduleService_Transition_UnknownStatus(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(scheduledOn(1, today, nil))

	_, err := svc.Transition(context.Background(), 1, &dto.TransitionRequest{TargetStatus: "OVERDUE", ActorID: 1})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("未知状态应返回 ErrValidation，实际 %v", err)
	}
}

func TestScheduleService_Transition_NotFound(t *testing.T) {
	_, svc := setupTestScheduleService()

	_, err := svc.Transition(context.Background(), 9, &dto.TransitionRequest{TargetStatus: "IN_PROGRESS", ActorID: 1})
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际 %v", err)
	}
}

func TestScheduleService_Transition_AlreadyConvertedCarriesOrderNumber(t *testing.T) {
	store, svc := setupTestScheduleService()
	store.putSchedule(completedSchedule(8, 23))

	if _, err := svc.Transition(context.Background(), 8, &dto.TransitionRequest{TargetStatus: "SERVICE_ORDER_GENERATED", ActorID: 1}); err != nil {
		t.Fatalf("首次迁移应成功: %v", err)
	}
	_, err := svc.Transition(context.Background(), 8, &dto.TransitionRequest{TargetStatus: "SERVICE_ORDER_GENERATED", ActorID: 1})
	var conflict *pkgerrors.ConflictError
	if !errors.As(err, &conflict) || conflict.OrderNumber != "OS-001-2026" {
		t.Errorf("重复转换应返回带工单号的冲突，实际 %v", err)
	}
}
