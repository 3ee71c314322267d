// Package dispatch runs functions on one owner goroutine.
//
// The timeline is single-writer: every mutation happens on the goroutine
// running Loop.Run. Other goroutines, such as the playback clock, hand work
// to it with Invoke or Post.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"framekit/internal/logging"
)

// ErrStopped is returned by Invoke when the loop has stopped or stops
// before the function ran.
var ErrStopped = errors.New("dispatch loop stopped")

// PanicError carries a value recovered from an invoked function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatched function panicked: %v", e.Value)
}

type task struct {
	fn   func()
	fail func(error)
}

// Loop is a FIFO work queue drained by Run.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []task
	wake    chan struct{}
	running bool
	stopped bool
}

// New returns an idle loop. Work queued before Run starts is kept and runs
// first.
func New(logger *slog.Logger) *Loop {
	return &Loop{
		logger: logging.NewComponentLogger(logger, "dispatch"),
		wake:   make(chan struct{}, 1),
	}
}

// Run executes queued functions in order until ctx is done. Functions still
// queued when Run returns are dropped and their Invoke callers receive
// ErrStopped.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("dispatch loop already running")
	}
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.running = true
	l.mu.Unlock()

	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t, ok := l.next()
			if !ok {
				break
			}
			l.run(t)
		}
	}
}

func (l *Loop) next() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return task{}, false
	}
	t := l.queue[0]
	l.queue[0] = task{}
	l.queue = l.queue[1:]
	return t, true
}

func (l *Loop) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Value: r}
			if t.fail != nil {
				t.fail(err)
				return
			}
			l.logger.Error("posted function panicked", logging.Error(err))
		}
	}()
	t.fn()
}

func (l *Loop) stop() {
	l.mu.Lock()
	pending := l.queue
	l.queue = nil
	l.running = false
	l.stopped = true
	l.mu.Unlock()
	for _, t := range pending {
		if t.fail != nil {
			t.fail(ErrStopped)
		}
	}
}

func (l *Loop) enqueue(t task) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, t)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Post queues fn without waiting. It reports false once the loop has
// stopped.
func (l *Loop) Post(fn func()) bool {
	return l.enqueue(task{fn: fn})
}

// Invoke runs fn on the loop and waits for it. A panic in fn is returned as
// a *PanicError. It must not be called from the loop goroutine.
func (l *Loop) Invoke(ctx context.Context, fn func()) error {
	done := make(chan error, 1)
	ok := l.enqueue(task{
		fn: func() {
			fn()
			done <- nil
		},
		fail: func(err error) { done <- err },
	})
	if !ok {
		return ErrStopped
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Stopped reports whether Run has returned. A stopped loop rejects work.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}
