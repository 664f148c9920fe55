package database

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	pkgerrors "maintenance-ops/backend/pkg/errors"
)

// PoolGuard 限制同时占用数据库的请求数。
// 超出 capacity 的请求排队，排队人数超过 maxWaiting 或等待超过 timeout 时返回 ErrBackpressure，
// 避免连接池饱和时请求无限期挂起。
type PoolGuard struct {
	sem        *semaphore.Weighted
	capacity   int64
	maxWaiting int64
	timeout    time.Duration
	waiting    atomic.Int64
	inFlight   atomic.Int64
}

// NewPoolGuard capacity 通常取 db.max_open_conns
func NewPoolGuard(capacity, maxWaiting int, timeout time.Duration) *PoolGuard {
	if capacity <= 0 {
		capacity = 1
	}
	if maxWaiting < 0 {
		maxWaiting = 0
	}
	return &PoolGuard{
		sem:        semaphore.NewWeighted(int64(capacity)),
		capacity:   int64(capacity),
		maxWaiting: int64(maxWaiting),
		timeout:    timeout,
	}
}

// Acquire 获取一个槽位，成功后必须调用返回的 release
func (g *PoolGuard) Acquire(ctx context.Context) (release func(), err error) {
	if g.sem.TryAcquire(1) {
		g.inFlight.Add(1)
		return g.release, nil
	}

	if g.waiting.Add(1) > g.maxWaiting {
		g.waiting.Add(-1)
		return nil, pkgerrors.ErrBackpressure
	}
	defer g.waiting.Add(-1)

	waitCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		// 调用方自身取消时透传原因，超时则视为背压
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.ErrBackpressure
		}
		return nil, err
	}
	g.inFlight.Add(1)
	return g.release, nil
}

func (g *PoolGuard) release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Stats 当前占用与排队人数
func (g *PoolGuard) Stats() (inFlight, waiting int64) {
	return g.inFlight.Load(), g.waiting.Load()
}
