package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lexiqai/avatar-link/internal/avatar"
	"github.com/lexiqai/avatar-link/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualScheduler runs ticks only when the test asks
type manualScheduler struct {
	mu     sync.Mutex
	ticks  []func()
	starts int
	stops  int
}

func (s *manualScheduler) Start(tick func()) func() {
	s.mu.Lock()
	s.ticks = append(s.ticks, tick)
	s.starts++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.stops++
			s.mu.Unlock()
		})
	}
}

func (s *manualScheduler) tick() {
	s.mu.Lock()
	tick := s.ticks[len(s.ticks)-1]
	s.mu.Unlock()
	tick()
}

func (s *manualScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts - s.stops
}

type fakePlayback struct {
	mu      sync.Mutex
	pos     int
	stopped bool
	once    sync.Once
	done    chan struct{}
}

func (p *fakePlayback) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *fakePlayback) Done() <-chan struct{} {
	return p.done
}

func (p *fakePlayback) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.finish()
}

func (p *fakePlayback) finish() {
	p.once.Do(func() { close(p.done) })
}

func (p *fakePlayback) setPos(pos int) {
	p.mu.Lock()
	p.pos = pos
	p.mu.Unlock()
}

func (p *fakePlayback) wasStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

type fakeOutput struct {
	mu        sync.Mutex
	playbacks []*fakePlayback
	startErr  error
	closed    int
}

func (o *fakeOutput) Start(pcm *PCM) (Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.startErr != nil {
		return nil, o.startErr
	}
	p := &fakePlayback{done: make(chan struct{})}
	o.playbacks = append(o.playbacks, p)
	return p, nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
	return nil
}

func (o *fakeOutput) playback(i int) *fakePlayback {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playbacks[i]
}

type signalRecorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *signalRecorder) observe(v float64) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *signalRecorder) list() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values...)
}

type paramSink struct {
	mu     sync.Mutex
	params []avatar.Param
}

func (s *paramSink) ApplyParameters(params []avatar.Param) {
	s.mu.Lock()
	s.params = append(s.params, params...)
	s.mu.Unlock()
}

func (s *paramSink) TriggerMotion(group string, index, priority int) {}

func (s *paramSink) last() avatar.Param {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params[len(s.params)-1]
}

type engineFixture struct {
	engine    *Engine
	output    *fakeOutput
	scheduler *manualScheduler
	signals   *signalRecorder
	sink      *paramSink
}

func newEngineFixture(opts ...Option) *engineFixture {
	f := &engineFixture{
		output:    &fakeOutput{},
		scheduler: &manualScheduler{},
		signals:   &signalRecorder{},
		sink:      &paramSink{},
	}
	opts = append([]Option{WithScheduler(f.scheduler), WithSignalObserver(f.signals.observe)}, opts...)
	f.engine = NewEngine(f.output, f.sink, opts...)
	return f
}

func speechClip() protocol.AudioPayload {
	return wavClip(sineSamples(440, 0.5, 24000, 0.5), 24000, 1)
}

func TestEngine_PlaybackDrivesSignalAndEndsAtZero(t *testing.T) {
	f := newEngineFixture()

	require.NoError(t, f.engine.Play(speechClip()))
	assert.True(t, f.engine.Playing())
	assert.Equal(t, 1, f.scheduler.active())

	playback := f.output.playback(0)
	for i := 1; i <= 10; i++ {
		playback.setPos(i * 1000)
		f.scheduler.tick()
	}

	values := f.signals.list()
	require.Len(t, values, 10)
	for _, v := range values {
		assert.True(t, v >= 0 && v <= 1, "signal %v out of range", v)
	}
	assert.Greater(t, values[len(values)-1], 0.0)
	assert.InDelta(t, values[len(values)-1], f.engine.Signal(), 1e-12)

	// Clip plays out
	playback.finish()
	assert.Eventually(t, func() bool { return !f.engine.Playing() }, time.Second, 5*time.Millisecond)

	values = f.signals.list()
	require.Len(t, values, 11)
	assert.Equal(t, 0.0, values[10])
	assert.Equal(t, 0.0, f.engine.Signal())
	assert.Equal(t, avatar.Param{Name: avatar.MouthOpenParam, Value: 0}, f.sink.last())
	assert.Zero(t, f.scheduler.active())
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	f := newEngineFixture()

	f.engine.Stop()
	assert.Empty(t, f.signals.list(), "stopping an idle engine notifies nothing")

	require.NoError(t, f.engine.Play(speechClip()))
	f.output.playback(0).setPos(2048)
	f.scheduler.tick()

	f.engine.Stop()
	f.engine.Stop()

	values := f.signals.list()
	require.Len(t, values, 2)
	assert.Equal(t, 0.0, values[1])
	assert.True(t, f.output.playback(0).wasStopped())
	assert.False(t, f.engine.Playing())

	// A tick that raced with stop is ignored
	f.scheduler.tick()
	assert.Len(t, f.signals.list(), 2)
}

func TestEngine_PlayReplacesSession(t *testing.T) {
	f := newEngineFixture()

	require.NoError(t, f.engine.Play(speechClip()))
	require.NoError(t, f.engine.Play(speechClip()))

	assert.Equal(t, 1, f.scheduler.active(), "only one analysis loop may run")
	assert.True(t, f.output.playback(0).wasStopped())
	assert.False(t, f.output.playback(1).wasStopped())

	// The first session's reset, then nothing from its stale loop
	assert.Equal(t, []float64{0}, f.signals.list())
	f.scheduler.mu.Lock()
	staleTick := f.scheduler.ticks[0]
	f.scheduler.mu.Unlock()
	staleTick()
	assert.Equal(t, []float64{0}, f.signals.list())

	f.output.playback(1).setPos(4096)
	f.scheduler.tick()
	assert.Len(t, f.signals.list(), 2)
}

func TestEngine_DecodeFailure(t *testing.T) {
	f := newEngineFixture()

	err := f.engine.Play(protocol.AudioPayload{Audio: "%%%", Format: "wav"})
	require.Error(t, err)
	assert.True(t, protocol.IsDecodeError(err))
	assert.False(t, f.engine.Playing())
	assert.Empty(t, f.signals.list())

	// A bad clip still ends the previous one cleanly
	require.NoError(t, f.engine.Play(speechClip()))
	require.Error(t, f.engine.Play(protocol.AudioPayload{Audio: "AAAA", Format: "mp3"}))
	assert.False(t, f.engine.Playing())
	assert.Equal(t, []float64{0}, f.signals.list())
	assert.Zero(t, f.scheduler.active())
}

func TestEngine_OutputFailure(t *testing.T) {
	f := newEngineFixture()
	f.output.startErr = errors.New("device busy")

	err := f.engine.Play(speechClip())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device busy")
	assert.False(t, f.engine.Playing())
	assert.Zero(t, f.scheduler.active())
}

func TestEngine_Dispose(t *testing.T) {
	f := newEngineFixture()
	require.NoError(t, f.engine.Play(speechClip()))

	require.NoError(t, f.engine.Dispose())
	require.NoError(t, f.engine.Dispose())

	assert.Equal(t, 1, f.output.closed)
	assert.False(t, f.engine.Playing())
	assert.Equal(t, []float64{0}, f.signals.list())
	assert.ErrorIs(t, f.engine.Play(speechClip()), ErrDisposed)
}

func TestEngine_LipSyncDisabled(t *testing.T) {
	f := newEngineFixture(WithLipSync(false))

	require.NoError(t, f.engine.Play(speechClip()))
	assert.Zero(t, f.scheduler.starts)

	f.output.playback(0).finish()
	assert.Eventually(t, func() bool { return !f.engine.Playing() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []float64{0}, f.signals.list())
}

func TestEngine_ClockOutputEndsOnItsOwn(t *testing.T) {
	signals := &signalRecorder{}
	engine := NewEngine(NewClockOutput(), nil,
		WithScheduler(NewTickerScheduler(200)),
		WithSignalObserver(signals.observe),
	)
	defer engine.Dispose()

	require.NoError(t, engine.Play(wavClip(sineSamples(440, 0.5, 24000, 0.1), 24000, 1)))
	assert.Eventually(t, func() bool { return !engine.Playing() }, 2*time.Second, 5*time.Millisecond)

	values := signals.list()
	require.NotEmpty(t, values)
	for _, v := range values {
		assert.True(t, v >= 0 && v <= 1)
	}
	assert.Equal(t, 0.0, values[len(values)-1])
}
