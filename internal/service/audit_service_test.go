package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/model"
	pkgerrors "maintenance-ops/backend/pkg/errors"
)

func setupTestAuditService() (*mockStore, AuditService) {
	store := newMockStore()
	svc := NewAuditService(store.repository(), zap.NewNop()).(*auditService)
	return store, svc
}

func TestAuditService_RecordExternal_OnlyPDF(t *testing.T) {
	store, svc := setupTestAuditService()

	result, err := svc.RecordExternal(context.Background(), &dto.CreateAuditEventRequest{
		EquipmentID:    23,
		ScheduleID:     int64Ptr(8),
		ActionType:     "PDF_GENERATED",
		PerformedBy:    5,
		AdditionalData: map[string]interface{}{"file": "os-001.pdf"},
	})
	if err != nil {
		t.Fatalf("RecordExternal 应成功: %v", err)
	}
	if result.ActionType != string(model.ActionPDFGenerated) || result.PerformedAt == "" {
		t.Errorf("返回事件不符: %+v", result)
	}

	_, err = svc.RecordExternal(context.Background(), &dto.CreateAuditEventRequest{
		EquipmentID: 23,
		ActionType:  "SERVICE_ORDER_GENERATED",
		PerformedBy: 5,
	})
	if !errors.Is(err, ErrAuditActionNotAllowed) || !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("外部不能伪造生命周期事件，实际 %v", err)
	}
	if n := len(store.events); n != 1 {
		t.Errorf("应只写入 1 条事件，实际 %d", n)
	}
}

func TestAuditService_ListBySchedule(t *testing.T) {
	_, svc := setupTestAuditService()
	ctx := context.Background()
	_ = svc.Record(ctx, &model.AuditEvent{EquipmentID: 23, ScheduleID: int64Ptr(8), ActionType: model.ActionScheduleCreated, PerformedBy: 1})
	_ = svc.Record(ctx, &model.AuditEvent{EquipmentID: 23, ScheduleID: int64Ptr(9), ActionType: model.ActionScheduleCreated, PerformedBy: 1})

	list, total, err := svc.ListBySchedule(ctx, 8, &dto.AuditListRequest{})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("按排程查询应返回 1 条，total=%d err=%v", total, err)
	}
	if list[0].AdditionalData == nil {
		t.Error("additionalData 应为空对象而非 null")
	}
}

func TestAuditService_Cascades(t *testing.T) {
	store, svc := setupTestAuditService()
	ctx := context.Background()
	_ = svc.Record(ctx, &model.AuditEvent{EquipmentID: 23, ScheduleID: int64Ptr(8), ActionType: model.ActionScheduleCreated, PerformedBy: 1})
	_ = svc.Record(ctx, &model.AuditEvent{EquipmentID: 23, ScheduleID: int64Ptr(8), ActionType: model.ActionScheduleStarted, PerformedBy: 1})
	_ = svc.Record(ctx, &model.AuditEvent{EquipmentID: 24, ActionType: model.ActionPDFGenerated, PerformedBy: 1})

	n, err := svc.OnScheduleDeleted(ctx, 8)
	if err != nil || n != 2 {
		t.Fatalf("排程删除应解除 2 条事件关联，n=%d err=%v", n, err)
	}
	if len(store.events) != 3 {
		t.Error("解除关联不应删除事件")
	}

	n, err = svc.OnEquipmentDeleted(ctx, 23)
	if err != nil || n != 2 {
		t.Fatalf("设备删除应移除 2 条事件，n=%d err=%v", n, err)
	}
	if len(store.events) != 1 || store.events[0].EquipmentID != 24 {
		t.Error("其他设备的事件应保留")
	}
}

func TestAuditService_Record_RequiresEquipment(t *testing.T) {
	_, svc := setupTestAuditService()

	err := svc.Record(context.Background(), &model.AuditEvent{ActionType: model.ActionPDFGenerated, PerformedBy: 1})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("缺少设备应返回 ErrValidation，实际 %v", err)
	}
}
