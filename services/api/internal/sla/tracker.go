// Package sla tracks the time left before a booking's response or payment
// deadline.
//
// The tracker is advisory: reaching zero only signals that the caller should
// re-read the booking from the authority, which alone decides expiry.
package sla

import (
	"sync"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
)

const (
	// DefaultInterval is the countdown cadence.
	DefaultInterval = time.Second
	// UrgencyThreshold marks a deadline as urgent for presentation only.
	UrgencyThreshold = 10 * time.Minute
)

// Remaining returns max(deadline-now, 0).
func Remaining(deadline, now time.Time) time.Duration {
	r := deadline.Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// IsUrgent reports whether remaining is below the urgency threshold.
func IsUrgent(remaining time.Duration) bool {
	return remaining < UrgencyThreshold
}

// Tracker recomputes the remaining time against a deadline on a fixed cadence
// and emits an expiry signal exactly once per Start.
type Tracker struct {
	clock    clock.Clock
	interval time.Duration
	onTick   func(time.Duration)
	onExpire func()

	mu        sync.Mutex
	deadline  time.Time
	remaining time.Duration
	expired   bool
	running   bool
	stop      chan struct{}
	done      chan struct{}
}

type Option func(*Tracker)

// WithInterval overrides the countdown cadence.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// OnTick registers a hook called with the remaining time after every
// recompute. It runs on the tracker goroutine and must not call Stop.
func OnTick(fn func(remaining time.Duration)) Option {
	return func(t *Tracker) { t.onTick = fn }
}

// OnExpire registers the hook called once when remaining reaches zero. It runs
// on the tracker goroutine after ticking has stopped, so it may call Start or
// Stop.
func OnExpire(fn func()) Option {
	return func(t *Tracker) { t.onExpire = fn }
}

func New(clk clock.Clock, opts ...Option) *Tracker {
	t := &Tracker{
		clock:    clk,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins counting down to deadline. Any previous countdown is stopped
// first and all elapsed state is reset from the fresh deadline.
func (t *Tracker) Start(deadline time.Time) {
	t.Stop()

	t.mu.Lock()
	t.deadline = deadline
	t.remaining = Remaining(deadline, t.clock.Now())
	t.expired = false
	t.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	t.stop, t.done = stop, done
	t.mu.Unlock()

	go t.run(stop, done)
}

// Stop halts the countdown and waits for the ticking goroutine to exit.
// It is safe to call repeatedly and on a tracker that was never started.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.running = false
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Remaining returns the last computed remaining time.
func (t *Tracker) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Urgent reports whether the current countdown is below the urgency threshold.
func (t *Tracker) Urgent() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running && IsUrgent(t.remaining)
}

// Running reports whether a countdown is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Deadline returns the deadline of the current or last countdown.
func (t *Tracker) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline
}

func (t *Tracker) run(stop, done chan struct{}) {
	fire := false
	defer func() {
		t.mu.Lock()
		if t.done == done {
			t.running = false
		}
		t.mu.Unlock()
		close(done)
		if !fire || t.onExpire == nil {
			return
		}
		select {
		case <-stop:
		default:
			t.onExpire()
		}
	}()

	if fire = t.recompute(); fire {
		return
	}

	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if fire = t.recompute(); fire {
				return
			}
		}
	}
}

// recompute refreshes remaining and reports whether expiry must be signalled.
func (t *Tracker) recompute() bool {
	t.mu.Lock()
	r := Remaining(t.deadline, t.clock.Now())
	// Never count back up within one countdown, even if the wall clock moves back.
	if r > t.remaining {
		r = t.remaining
	}
	t.remaining = r
	fire := r == 0 && !t.expired
	if fire {
		t.expired = true
	}
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(r)
	}
	return fire
}
