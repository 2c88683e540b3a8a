package reactive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrLoopClosed is returned by Settle and Run after Close.
var ErrLoopClosed = errors.New("reactive: loop closed")

// Loop is the single-writer task loop.
//
// CRITICAL: Drain, Settle and Run must be called from exactly one goroutine,
// the same one that mutates cells. Post, Go and After may be called from any
// goroutine; their callbacks always run on the loop goroutine.
type Loop struct {
	queue   *taskQueue
	pending atomic.Int64 // Go/After work not yet settled on the loop
	logger  *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the logger used for recovered task panics.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates an idle loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		queue:  newTaskQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post schedules fn to run on the loop goroutine.
// Returns false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	return l.queue.Enqueue(task{fn: fn})
}

// Go runs work on its own goroutine. The continuation returned by work (may
// be nil) runs on the loop goroutine. The loop is not idle until the
// continuation has run.
func (l *Loop) Go(work func() func()) {
	l.pending.Add(1)
	go func() {
		cont := work()
		l.enqueueSettling(func() {
			if cont != nil {
				cont()
			}
		})
	}()
}

// After runs fn on the loop goroutine once d has elapsed. The returned stop
// function cancels fn if it has not run yet; it must be called on the loop
// goroutine. A non-positive d schedules fn for the next drain.
func (l *Loop) After(d time.Duration, fn func()) (stop func()) {
	cancelled := false
	run := func() {
		if !cancelled {
			fn()
		}
	}

	l.pending.Add(1)
	if d <= 0 {
		l.enqueueSettling(run)
		return func() { cancelled = true }
	}

	t := time.AfterFunc(d, func() { l.enqueueSettling(run) })
	return func() {
		if cancelled {
			return
		}
		cancelled = true
		if t.Stop() {
			// Timer never fired, so no task will settle this increment
			l.pending.Add(-1)
		}
	}
}

func (l *Loop) enqueueSettling(fn func()) {
	if !l.queue.Enqueue(task{fn: fn, settles: true}) {
		l.pending.Add(-1)
	}
}

// Drain runs queued tasks until the queue is empty and returns how many ran.
// Tasks enqueued by running tasks are drained in the same call.
func (l *Loop) Drain() int {
	n := 0
	for {
		t, ok := l.queue.TryDequeue()
		if !ok {
			return n
		}
		l.runTask(t)
		n++
	}
}

// Idle reports whether there is no queued task and no outstanding Go/After work.
func (l *Loop) Idle() bool {
	return l.pending.Load() == 0 && l.queue.Len() == 0
}

// Settle drives the loop until it is idle or ctx is done.
func (l *Loop) Settle(ctx context.Context) error {
	for {
		l.Drain()
		if l.Idle() {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("settle: %w", ctx.Err())
		case _, ok := <-l.queue.Wait():
			if !ok {
				l.Drain()
				return ErrLoopClosed
			}
		}
	}
}

// Run drives the loop until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-l.queue.Wait():
			if !ok {
				l.Drain()
				return ErrLoopClosed
			}
		}
	}
}

// Close stops accepting tasks. Work already started is dropped when it
// tries to post its continuation.
func (l *Loop) Close() {
	l.queue.Close()
}

// runTask executes one task. A panicking task is logged and the loop keeps
// going; one broken subscriber must not stall every other one.
func (l *Loop) runTask(t task) {
	if t.settles {
		defer l.pending.Add(-1)
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked", "panic", fmt.Sprint(r))
		}
	}()
	t.fn()
}
