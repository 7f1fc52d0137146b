// Package antispam implements the per-user flood limiter that decides when a
// user is auto-ignored.
//
// Each user has a leaky counter. Every admitted message adds one and schedules
// its own decrement one window later, so short bursts are tolerated while a
// sustained rate of threshold messages per window trips the limiter.
package antispam

import (
	"sync"
	"time"

	"github.com/ashureev/modmail/internal/shared"
)

// Verdict is the outcome of counting one inbound message.
type Verdict int

const (
	// Admitted means the message may be relayed.
	Admitted Verdict = iota
	// Tripped means the user hit the threshold and must be auto-ignored.
	Tripped
)

func (v Verdict) String() string {
	if v == Tripped {
		return "tripped"
	}
	return "admitted"
}

// Limiter holds the per-user counters. Counters live in process memory only.
type Limiter struct {
	mu        sync.Mutex
	counts    map[uint64]int
	threshold int
	window    time.Duration
	sched     shared.Scheduler
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithScheduler replaces the timer used for deferred decrements.
func WithScheduler(s shared.Scheduler) Option {
	return func(l *Limiter) {
		l.sched = s
	}
}

// New creates a limiter that trips on the threshold-th message seen within
// roughly one window.
func New(threshold int, window time.Duration, opts ...Option) *Limiter {
	if threshold < 1 {
		threshold = 1
	}
	l := &Limiter{
		counts:    make(map[uint64]int),
		threshold: threshold,
		window:    window,
		sched:     shared.TimerScheduler{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Hit counts one message from userID. When the count reaches the threshold
// the counter is reset and Tripped is returned; the caller must not relay
// the message and must not call Release for it.
func (l *Limiter) Hit(userID uint64) Verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.counts[userID] + 1
	if n >= l.threshold {
		delete(l.counts, userID)
		return Tripped
	}
	l.counts[userID] = n
	return Admitted
}

// Release schedules the decrement that pairs with an admitted Hit.
func (l *Limiter) Release(userID uint64) {
	l.sched.AfterFunc(l.window, func() {
		l.decrement(userID)
	})
}

func (l *Limiter) decrement(userID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.counts[userID] - 1
	if n <= 0 {
		delete(l.counts, userID)
		return
	}
	l.counts[userID] = n
}

// Count returns the current counter for userID.
func (l *Limiter) Count(userID uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[userID]
}

// Threshold returns the configured threshold.
func (l *Limiter) Threshold() int {
	return l.threshold
}

// Window returns the configured decay window.
func (l *Limiter) Window() time.Duration {
	return l.window
}
