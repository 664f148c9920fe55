package repository

import (
	"context"

	"gorm.io/gorm"
)

// SequenceRepository 事务内序号生成
type SequenceRepository interface {
	// Next 推进 (entityType, year) 计数器并返回新值。
	// 必须在消费序号的同一事务中调用：UPSERT 持有行锁直到提交，回滚即归还序号。
	Next(ctx context.Context, entityType string, year int) (int64, error)
}

type sequenceRepo struct {
	db *gorm.DB
}

// NewSequenceRepo 创建 SequenceRepository 实例
func NewSequenceRepo(db *gorm.DB) SequenceRepository {
	return &sequenceRepo{db: db}
}

const nextSequenceSQL = `
INSERT INTO entity_sequences (entity_type, year, last_value, updated_at)
VALUES (?, ?, 1, CURRENT_TIMESTAMP)
ON CONFLICT (entity_type, year)
DO UPDATE SET last_value = entity_sequences.last_value + 1, updated_at = CURRENT_TIMESTAMP
RETURNING last_value`

func (r *sequenceRepo) Next(ctx context.Context, entityType string, year int) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(nextSequenceSQL, entityType, year).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}
