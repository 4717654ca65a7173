package core

import (
	"context"
	"errors"
	"time"

	"pkt.systems/tilesync/internal/sched"
)

// ErrEngineStopped is returned by Do once Run has returned.
var ErrEngineStopped = errors.New("engine stopped")

// Run processes frames in arrival order until ctx is done or frames closes.
// Timer callbacks and Do closures run on the same goroutine, between frames.
func (e *Engine) Run(ctx context.Context, frames <-chan []byte) error {
	e.running.Store(true)
	defer func() {
		e.running.Store(false)
		close(e.done)
		e.Close()
	}()
	e.Start(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				e.log.Info("engine frame stream closed")
				return nil
			}
			e.HandleFrame(ctx, frame)
		case fn := <-e.tasks:
			fn()
		case <-e.wake:
			e.Flush()
		}
	}
}

// Do runs fn on the engine goroutine and waits for it. Without a running
// loop fn runs on the caller's goroutine after the queued timer callbacks.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	if !e.running.Load() {
		e.Flush()
		fn()
		return nil
	}
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case e.tasks <- wrapped:
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn for the engine goroutine without waiting. It is called from
// timer goroutines.
func (e *Engine) post(fn func()) {
	e.queueMu.Lock()
	e.queued = append(e.queued, fn)
	e.queueMu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Flush runs the queued timer callbacks on the caller's goroutine and returns
// how many ran. Callers driving the engine without Run call it after timers
// fire; HandleFrame and Dispatch flush on their own.
func (e *Engine) Flush() int {
	ran := 0
	for {
		e.queueMu.Lock()
		batch := e.queued
		e.queued = nil
		e.queueMu.Unlock()
		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			e.runTask(fn)
			ran++
		}
	}
}

func (e *Engine) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("engine task panic", "panic", r)
		}
	}()
	fn()
}

// loopScheduler runs timer callbacks on the engine goroutine.
type loopScheduler struct {
	inner  sched.Scheduler
	engine *Engine
}

func (s loopScheduler) AfterFunc(d time.Duration, fn func()) sched.Task {
	return s.inner.AfterFunc(d, func() { s.engine.post(fn) })
}
