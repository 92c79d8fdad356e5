package resilience

import (
	"sync"
	"time"
)

// DefaultReconnectInterval is the fixed delay between an unexpected
// disconnect and the next connection attempt
const DefaultReconnectInterval = 3 * time.Second

// Stopper cancels a scheduled callback
type Stopper interface {
	Stop() bool
}

// Clock schedules callbacks; time.AfterFunc in production
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// RealClock returns the wall clock
func RealClock() Clock {
	return realClock{}
}

// ReconnectTimer holds at most one pending reconnect attempt.
// The interval is fixed: no exponential growth, no attempt limit.
type ReconnectTimer struct {
	interval time.Duration
	clock    Clock

	mu      sync.Mutex
	pending Stopper
	token   uint64
}

// NewReconnectTimer creates a reconnect timer with the given interval
func NewReconnectTimer(interval time.Duration, clock Clock) *ReconnectTimer {
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}
	if clock == nil {
		clock = RealClock()
	}
	return &ReconnectTimer{
		interval: interval,
		clock:    clock,
	}
}

// Schedule arranges for fn to run once after the interval.
// It returns false, scheduling nothing, if an attempt is already pending.
func (r *ReconnectTimer) Schedule(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending != nil {
		return false
	}

	r.token++
	token := r.token
	r.pending = r.clock.AfterFunc(r.interval, func() {
		r.mu.Lock()
		if r.token != token || r.pending == nil {
			// Cancelled after the timer had already fired
			r.mu.Unlock()
			return
		}
		r.pending = nil
		r.mu.Unlock()

		fn()
	})
	return true
}

// Cancel drops the pending attempt, if any. Safe to call repeatedly.
func (r *ReconnectTimer) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		return false
	}
	r.pending.Stop()
	r.pending = nil
	r.token++
	return true
}

// Pending reports whether an attempt is scheduled
func (r *ReconnectTimer) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

// Interval returns the configured delay
func (r *ReconnectTimer) Interval() time.Duration {
	return r.interval
}
