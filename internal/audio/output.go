package audio

import (
	"sync"
	"time"
)

// Output renders PCM to a device
type Output interface {
	// Start begins playing pcm and returns a handle for the session
	Start(pcm *PCM) (Playback, error)
	// Close releases the device. No Start calls are valid afterwards.
	Close() error
}

// Playback is one playing clip
type Playback interface {
	// Position is the index of the sample currently being heard
	Position() int
	// Done is closed once playback has finished or been stopped
	Done() <-chan struct{}
	// Stop halts playback immediately. Safe to call repeatedly.
	Stop()
}

// ClockOutput is a silent output whose position advances with the wall
// clock. It stands in for a speaker on headless hosts so lip-sync still
// follows real time.
type ClockOutput struct {
	now func() time.Time
}

// NewClockOutput creates a silent output
func NewClockOutput() *ClockOutput {
	return &ClockOutput{now: time.Now}
}

// Start schedules the end of the clip
func (o *ClockOutput) Start(pcm *PCM) (Playback, error) {
	p := &clockPlayback{
		now:        o.now,
		started:    o.now(),
		sampleRate: pcm.SampleRate,
		total:      pcm.Len(),
		done:       make(chan struct{}),
	}
	p.timer = time.AfterFunc(pcm.Duration(), p.finish)
	return p, nil
}

// Close is a no-op
func (o *ClockOutput) Close() error {
	return nil
}

type clockPlayback struct {
	now        func() time.Time
	started    time.Time
	sampleRate int
	total      int
	timer      *time.Timer

	once sync.Once
	done chan struct{}
}

func (p *clockPlayback) Position() int {
	pos := int(p.now().Sub(p.started).Seconds() * float64(p.sampleRate))
	if pos > p.total {
		return p.total
	}
	return pos
}

func (p *clockPlayback) Done() <-chan struct{} {
	return p.done
}

func (p *clockPlayback) Stop() {
	p.timer.Stop()
	p.finish()
}

func (p *clockPlayback) finish() {
	p.once.Do(func() { close(p.done) })
}
