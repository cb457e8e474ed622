package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWorkerPoolFastLane(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 2, MaxSlowWorkers: 1})

	ctx := context.Background()
	if err := pool.AcquireFast(ctx); err != nil {
		t.Fatalf("Failed to acquire fast worker: %v", err)
	}
	if stats := pool.Stats(); stats.ActiveFast != 1 || stats.ActiveSlow != 0 {
		t.Errorf("Stats() = %+v, want one active fast worker", stats)
	}

	pool.ReleaseFast()
	stats := pool.Stats()
	if stats.ActiveFast != 0 || stats.TotalFast != 1 {
		t.Errorf("after release Stats() = %+v, want 0 active, 1 total", stats)
	}
}

func TestWorkerPoolSlowLaneFull(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 10, MaxSlowWorkers: 2})

	for i := 0; i < 2; i++ {
		if !pool.TryAcquireSlow() {
			t.Fatalf("TryAcquireSlow() %d failed on a free lane", i)
		}
	}
	if pool.TryAcquireSlow() {
		t.Error("acquired a third slow slot")
	}
	if !pool.TryAcquireFast() {
		t.Error("a full slow lane blocked the fast lane")
	}

	pool.ReleaseSlow()
	pool.ReleaseSlow()
	pool.ReleaseFast()

	if stats := pool.Stats(); stats.TotalSlow != 2 || stats.TotalFast != 1 {
		t.Errorf("Stats() = %+v, want 2 slow and 1 fast processed", stats)
	}
}

func TestWorkerPoolContextCancellation(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 1, MaxSlowWorkers: 1})

	if err := pool.AcquireFast(context.Background()); err != nil {
		t.Fatalf("Failed to acquire fast worker: %v", err)
	}
	defer pool.ReleaseFast()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pool.AcquireFast(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("AcquireFast() = %v, want context.Canceled", err)
	}
	if stats := pool.Stats(); stats.QueuedFast != 0 {
		t.Errorf("QueuedFast = %d after a cancelled wait, want 0", stats.QueuedFast)
	}
}

func TestWorkerPoolQueued(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 1, MaxSlowWorkers: 1})
	if err := pool.AcquireSlow(context.Background()); err != nil {
		t.Fatalf("AcquireSlow() = %v", err)
	}

	done := make(chan error)
	go func() { done <- pool.AcquireSlow(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for pool.Stats().QueuedSlow != 1 {
		if time.Now().After(deadline) {
			t.Fatal("waiting request never showed up as queued")
		}
		time.Sleep(time.Millisecond)
	}

	pool.ReleaseSlow()
	if err := <-done; err != nil {
		t.Fatalf("queued AcquireSlow() = %v", err)
	}
	pool.ReleaseSlow()
}

func TestWorkerPoolConcurrency(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 5, MaxSlowWorkers: 2})

	var wg sync.WaitGroup
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pool.AcquireFast(ctx); err != nil {
				t.Errorf("Failed to acquire fast worker: %v", err)
				return
			}
			if active := pool.Stats().ActiveFast; active > 5 {
				t.Errorf("ActiveFast = %d, over the limit", active)
			}
			time.Sleep(5 * time.Millisecond)
			pool.ReleaseFast()
		}()
	}
	wg.Wait()

	if stats := pool.Stats(); stats.TotalFast != 10 {
		t.Errorf("TotalFast = %d, want 10", stats.TotalFast)
	}
}

func TestWorkerPoolTimeout(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 1, MaxSlowWorkers: 1})

	if err := pool.AcquireSlow(context.Background()); err != nil {
		t.Fatalf("Failed to acquire slow worker: %v", err)
	}
	defer pool.ReleaseSlow()

	if err := pool.AcquireSlowWithTimeout(10 * time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AcquireSlowWithTimeout() = %v, want context.DeadlineExceeded", err)
	}
}

func TestWorkerPoolDefaults(t *testing.T) {
	stats := NewWorkerPool(PoolConfig{}).Stats()
	want := DefaultPoolConfig()
	if stats.MaxFast != want.MaxFastWorkers || stats.MaxSlow != want.MaxSlowWorkers {
		t.Errorf("MaxFast, MaxSlow = %d, %d, want %d, %d",
			stats.MaxFast, stats.MaxSlow, want.MaxFastWorkers, want.MaxSlowWorkers)
	}
}
