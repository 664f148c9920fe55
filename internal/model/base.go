package model

import (
	"time"
)

// Timestamps 通用时间字段
type Timestamps struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	Timestamps
	Version int `gorm:"not null;default:1" json:"version"`
}

// ── 日期工具 ──
// scheduled_date 为 DATE 列，逾期判断只比较日历日期，统一以 UTC 零点表示。

// DateOf 取 t 在 loc 时区下的日历日期
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// civilDate 去掉时区与时分秒，保留存储值本身的年月日
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
