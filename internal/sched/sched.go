// Package sched provides cancellable delayed tasks and a debounce handle.
package sched

import "time"

// Task is a scheduled callback.
type Task interface {
	// Stop cancels the task and reports whether it was still pending.
	Stop() bool
}

// Scheduler runs fn after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// Timers schedules on the runtime timer heap. Callbacks run on their own
// goroutine.
type Timers struct{}

// AfterFunc implements Scheduler.
func (Timers) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

// Debounce keeps at most one pending task; scheduling stops the previous one.
type Debounce struct {
	sched Scheduler
	delay time.Duration
	task  Task
}

// NewDebounce constructs a Debounce.
func NewDebounce(s Scheduler, delay time.Duration) *Debounce {
	return &Debounce{sched: s, delay: delay}
}

// Schedule cancels any pending task and schedules fn. A superseded task that
// already fired but has not run yet is skipped.
func (d *Debounce) Schedule(fn func()) {
	d.Stop()
	var self Task
	self = d.sched.AfterFunc(d.delay, func() {
		if d.task != self {
			return
		}
		d.task = nil
		fn()
	})
	d.task = self
}

// Stop cancels the pending task and reports whether there was one.
func (d *Debounce) Stop() bool {
	if d.task == nil {
		return false
	}
	stopped := d.task.Stop()
	d.task = nil
	return stopped
}

// Pending reports whether a task is scheduled and has not fired.
func (d *Debounce) Pending() bool {
	return d.task != nil
}
