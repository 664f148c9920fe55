package service

import (
	"time"

	"maintenance-ops/backend/internal/dto"
	"maintenance-ops/backend/internal/model"
)

// ── model → dto ──

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dto.TimeLayout)
}

func toScheduleResponse(s *model.MaintenanceSchedule, today time.Time) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		ID:              s.ID,
		EquipmentID:     s.EquipmentID,
		CompanyID:       s.CompanyID,
		AssignedUserID:  s.AssignedUserID,
		ScheduledDate:   s.ScheduledDate.Format(dto.DateLayout),
		MaintenanceType: s.MaintenanceType,
		Priority:        string(s.Priority),
		Status:          string(s.Status),
		Overdue:         s.IsOverdue(today),
		EstimatedCost:   s.EstimatedCost,
		Observations:    s.Observations,
		CreatedBy:       s.CreatedBy,
		Version:         s.Version,
		CreatedAt:       formatTime(s.CreatedAt),
		UpdatedAt:       formatTime(s.UpdatedAt),
	}
}

func toServiceOrderResponse(o *model.ServiceOrder) *dto.ServiceOrderResponse {
	return &dto.ServiceOrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		ScheduleID:  o.ScheduleID,
		EquipmentID: o.EquipmentID,
		CompanyID:   o.CompanyID,
		Status:      string(o.Status),
		Priority:    string(o.Priority),
		Cost:        o.Cost,
		Description: o.Description,
		CreatedBy:   o.CreatedBy,
		AssignedTo:  o.AssignedTo,
		Version:     o.Version,
		CreatedAt:   formatTime(o.CreatedAt),
		UpdatedAt:   formatTime(o.UpdatedAt),
	}
}

func toAuditEventResponse(e *model.AuditEvent) *dto.AuditEventResponse {
	data := map[string]interface{}(e.AdditionalData)
	if data == nil {
		data = map[string]interface{}{}
	}
	return &dto.AuditEventResponse{
		ID:             e.ID,
		EquipmentID:    e.EquipmentID,
		ScheduleID:     e.ScheduleID,
		ServiceOrderID: e.ServiceOrderID,
		ActionType:     string(e.ActionType),
		Description:    e.Description,
		PerformedBy:    e.PerformedBy,
		PerformedAt:    formatTime(e.PerformedAt),
		AdditionalData: data,
	}
}

func toNotificationResponse(n *model.Notification) *dto.NotificationResponse {
	resp := &dto.NotificationResponse{
		ID:            n.ID,
		UserID:        n.UserID,
		Title:         n.Title,
		Message:       n.Message,
		Type:          n.Type,
		Priority:      string(n.Priority),
		ReferenceType: n.ReferenceType,
		ReferenceID:   n.ReferenceID,
		IsRead:        n.IsRead,
		CreatedAt:     formatTime(n.CreatedAt),
	}
	if n.ReadAt != nil {
		resp.ReadAt = formatTime(*n.ReadAt)
	}
	return resp
}
