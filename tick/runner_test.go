package tick

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartupRunsOnceInOrder(t *testing.T) {
	r := NewRunner(time.Millisecond)

	var order []int
	r.OnStartup(func(context.Context) error {
		order = append(order, 1)
		return nil
	})
	r.OnStartup(func(context.Context) error {
		order = append(order, 2)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("Expected startup hooks in order, got %v", order)
	}
}

func TestStartupErrorAbortsRun(t *testing.T) {
	r := NewRunner(time.Millisecond)

	wantErr := errors.New("bind failed")
	r.OnStartup(func(context.Context) error { return wantErr })

	ticked := false
	r.OnUpdate(func(context.Context) { ticked = true })

	if err := r.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Expected startup error, got %v", err)
	}
	if ticked {
		t.Error("Expected no ticks after a failed startup")
	}
}

func TestUpdateTicksUntilCancelled(t *testing.T) {
	r := NewRunner(time.Millisecond)

	var ticks atomic.Int64
	r.OnUpdate(func(context.Context) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for ticks.Load() < 5 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context canceled, got %v", err)
	}
	if ticks.Load() < 5 {
		t.Errorf("Expected at least 5 ticks, got %d", ticks.Load())
	}
}

func TestDefaultInterval(t *testing.T) {
	if r := NewRunner(0); r.interval != defaultInterval {
		t.Errorf("Expected default interval %v, got %v", defaultInterval, r.interval)
	}
	if r := NewRunner(-time.Second); r.interval != defaultInterval {
		t.Error("Expected negative interval to select the default")
	}
}
