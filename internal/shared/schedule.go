package shared

import "time"

// Scheduler runs deferred tasks. Scheduled tasks are never cancelled: once
// handed to a Scheduler they always run to completion.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler runs each task on its own timer goroutine.
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
