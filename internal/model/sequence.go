package model

import "time"

// 序列实体类型
const (
	SequenceServiceOrder = "service_order"
)

// EntitySequence 按实体类型、自然年分区的计数器 — 对应 entity_sequences
// 在消费序号的同一事务内通过 UPSERT 推进，回滚即归还
type EntitySequence struct {
	EntityType string    `gorm:"type:varchar(50);primaryKey"        json:"entityType"`
	Year       int       `gorm:"primaryKey"                         json:"year"`
	LastValue  int64     `gorm:"not null"                           json:"lastValue"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName 指定表名
func (EntitySequence) TableName() string { return "entity_sequences" }
