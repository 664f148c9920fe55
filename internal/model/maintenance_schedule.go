package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaintenanceSchedule 维护排程 — 对应 maintenance_schedules
type MaintenanceSchedule struct {
	ID              int64               `gorm:"primaryKey;autoIncrement"                      json:"id"`
	EquipmentID     int64               `gorm:"not null;index"                                json:"equipmentId"`
	CompanyID       *int64              `json:"companyId,omitempty"`
	AssignedUserID  *int64              `json:"assignedUserId,omitempty"`
	ScheduledDate   time.Time           `gorm:"type:date;not null"                            json:"scheduledDate"`
	MaintenanceType string              `gorm:"type:varchar(50);not null"                     json:"maintenanceType"`
	Priority        Priority            `gorm:"type:varchar(20);not null;default:'MEDIUM'"    json:"priority"`
	Status          ScheduleStatus      `gorm:"type:varchar(30);not null;default:'SCHEDULED'" json:"status"`
	EstimatedCost   decimal.NullDecimal `gorm:"type:numeric(12,2)"                            json:"estimatedCost"`
	Observations    string              `gorm:"type:text;not null;default:''"                 json:"observations"`
	CreatedBy       int64               `gorm:"not null"                                      json:"createdBy"`
	VersionedModel
}

// TableName 指定表名
func (MaintenanceSchedule) TableName() string { return "maintenance_schedules" }

// IsOverdue 逾期是派生分类：仍为 SCHEDULED 且排程日期早于 today。
// 每次查询时计算，不落库。
func (s *MaintenanceSchedule) IsOverdue(today time.Time) bool {
	return s.Status == ScheduleScheduled && civilDate(s.ScheduledDate).Before(civilDate(today))
}

// IsDueWithin 仍为 SCHEDULED 且排程日期落在 [today, until] 内（提醒候选）
func (s *MaintenanceSchedule) IsDueWithin(today, until time.Time) bool {
	if s.Status != ScheduleScheduled {
		return false
	}
	d := civilDate(s.ScheduledDate)
	return !d.Before(civilDate(today)) && !d.After(civilDate(until))
}

// ScheduleFilter 排程列表查询条件
type ScheduleFilter struct {
	Status         *ScheduleStatus
	EquipmentID    *int64
	AssignedUserID *int64
	// OverdueAsOf 非 nil 时只返回该日期下逾期的排程
	OverdueAsOf *time.Time
	Offset      int
	Limit       int
}
