package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"framekit/internal/dispatch"
)

func startLoop(t *testing.T) (*dispatch.Loop, context.CancelFunc, <-chan error) {
	t.Helper()
	loop := dispatch.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	t.Cleanup(cancel)
	return loop, cancel, done
}

func TestInvokeRunsInOrder(t *testing.T) {
	loop, _, _ := startLoop(t)
	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	if err := loop.Invoke(context.Background(), func() {
		mu.Lock()
		order = append(order, 99)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []int{0, 1, 2, 3, 4, 99}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestInvokeReturnsPanics(t *testing.T) {
	loop, _, _ := startLoop(t)
	err := loop.Invoke(context.Background(), func() { panic("bad") })
	var pe *dispatch.PanicError
	if !errors.As(err, &pe) || pe.Value != "bad" {
		t.Fatalf("Invoke = %v, want PanicError", err)
	}
	loop.Post(func() { panic("posted") })
	if err := loop.Invoke(context.Background(), func() {}); err != nil {
		t.Fatalf("loop should survive a posted panic: %v", err)
	}
}

func TestInvokeHonoursContext(t *testing.T) {
	loop, _, _ := startLoop(t)
	release := make(chan struct{})
	loop.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := loop.Invoke(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Invoke = %v, want DeadlineExceeded", err)
	}
}

func TestInvokeRightAfterRunStarts(t *testing.T) {
	for i := 0; i < 20; i++ {
		loop, cancel, done := startLoop(t)
		ran := false
		if err := loop.Invoke(context.Background(), func() { ran = true }); err != nil {
			t.Fatalf("Invoke on starting loop = %v", err)
		}
		if !ran {
			t.Fatalf("invoked function did not run")
		}
		cancel()
		<-done
	}
}

func TestWorkQueuedBeforeRun(t *testing.T) {
	loop := dispatch.New(nil)
	var order []int
	loop.Post(func() { order = append(order, 1) })
	loop.Post(func() { order = append(order, 2) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	if err := loop.Invoke(context.Background(), func() { order = append(order, 3) }); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
	cancel()
	<-done
}

func TestStoppedLoop(t *testing.T) {
	loop, cancel, done := startLoop(t)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if loop.Running() || !loop.Stopped() {
		t.Fatalf("loop should report stopped after cancel")
	}
	if err := loop.Invoke(context.Background(), func() {}); !errors.Is(err, dispatch.ErrStopped) {
		t.Fatalf("Invoke on stopped loop = %v, want ErrStopped", err)
	}
	if loop.Post(func() {}) {
		t.Fatalf("Post on stopped loop should report false")
	}
	if err := loop.Run(context.Background()); !errors.Is(err, dispatch.ErrStopped) {
		t.Fatalf("Run after stop = %v, want ErrStopped", err)
	}
}
