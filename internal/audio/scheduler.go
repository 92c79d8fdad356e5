package audio

import (
	"sync"
	"time"
)

// DefaultFrameRate is the analysis tick rate, matching a typical display refresh
const DefaultFrameRate = 60

// FrameScheduler runs tick periodically until the returned stop function is
// called. Ticks are never run concurrently with each other. stop does not
// wait for an in-flight tick, so tick must tolerate running once after stop.
type FrameScheduler interface {
	Start(tick func()) (stop func())
}

// TickerScheduler drives ticks from a time.Ticker
type TickerScheduler struct {
	interval time.Duration
}

// NewTickerScheduler creates a scheduler ticking frameRate times per second
func NewTickerScheduler(frameRate int) *TickerScheduler {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return &TickerScheduler{interval: time.Second / time.Duration(frameRate)}
}

// Interval returns the time between ticks
func (s *TickerScheduler) Interval() time.Duration {
	return s.interval
}

// Start begins ticking on a new goroutine
func (s *TickerScheduler) Start(tick func()) func() {
	ticker := time.NewTicker(s.interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// Prefer stopping over a tick that raced with it
				select {
				case <-done:
					return
				default:
				}
				tick()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
