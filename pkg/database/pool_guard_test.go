package database

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "maintenance-ops/backend/pkg/errors"
)

func TestPoolGuard_AcquireWithinCapacity(t *testing.T) {
	g := NewPoolGuard(2, 0, 0)

	r1, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("第一次获取应成功: %v", err)
	}
	r2, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("第二次获取应成功: %v", err)
	}
	if inFlight, _ := g.Stats(); inFlight != 2 {
		t.Errorf("期望 inFlight=2，实际=%d", inFlight)
	}
	r1()
	r2()
	if inFlight, _ := g.Stats(); inFlight != 0 {
		t.Errorf("释放后期望 inFlight=0，实际=%d", inFlight)
	}
}

func TestPoolGuard_QueueFullFailsFast(t *testing.T) {
	g := NewPoolGuard(1, 0, time.Second)

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("获取应成功: %v", err)
	}
	defer release()

	start := time.Now()
	_, err = g.Acquire(context.Background())
	if !errors.Is(err, pkgerrors.ErrBackpressure) {
		t.Fatalf("排队已满时期望 ErrBackpressure，实际=%v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("排队已满时应立即失败，不应等待")
	}
}

func TestPoolGuard_WaitTimeout(t *testing.T) {
	g := NewPoolGuard(1, 5, 20*time.Millisecond)

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("获取应成功: %v", err)
	}
	defer release()

	_, err = g.Acquire(context.Background())
	if !errors.Is(err, pkgerrors.ErrBackpressure) {
		t.Fatalf("等待超时期望 ErrBackpressure，实际=%v", err)
	}
	if _, waiting := g.Stats(); waiting != 0 {
		t.Errorf("超时后排队计数应归零，实际=%d", waiting)
	}
}

func TestPoolGuard_WaiterProceedsAfterRelease(t *testing.T) {
	g := NewPoolGuard(1, 1, time.Second)

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("获取应成功: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		r, err := g.Acquire(context.Background())
		if err == nil {
			r()
		}
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	release()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("释放后排队者应获取成功: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("排队者未能在释放后获取槽位")
	}
}

func TestPoolGuard_CallerCancelled(t *testing.T) {
	g := NewPoolGuard(1, 1, time.Second)

	release, _ := g.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("调用方取消时期望 context.Canceled，实际=%v", err)
	}
}
