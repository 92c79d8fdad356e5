package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lexiqai/avatar-link/internal/avatar"
	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/lexiqai/avatar-link/internal/protocol"
	"github.com/rs/zerolog"
)

// ErrDisposed is returned by Play after Dispose
var ErrDisposed = errors.New("audio engine disposed")

// DefaultSampleRate is the analysis context rate clips are resampled to
const DefaultSampleRate = 24000

// SignalObserver receives every lip-sync value emitted, including the 0
// reset on stop
type SignalObserver func(value float64)

// Engine plays speech clips and drives the lip-sync signal while a clip is
// playing. At most one session exists at a time; Play replaces it.
//
// Sink and observer calls are made with the engine lock held so that no
// value from a finished session can follow its reset. They must not call
// back into the Engine.
type Engine struct {
	output     Output
	sink       avatar.Sink
	scheduler  FrameScheduler
	observer   SignalObserver
	sampleRate int
	fftSize    int
	smoothing  float64
	lipSync    bool
	logger     zerolog.Logger

	mu       sync.Mutex
	session  *session
	signal   float64
	disposed bool
}

type session struct {
	pcm      *PCM
	playback Playback
	analyser *Analyser
	stopTick func()
}

// Option configures an Engine
type Option func(*Engine)

// WithScheduler sets the frame scheduler driving the analysis loop
func WithScheduler(scheduler FrameScheduler) Option {
	return func(e *Engine) {
		if scheduler != nil {
			e.scheduler = scheduler
		}
	}
}

// WithSignalObserver registers a lip-sync observer
func WithSignalObserver(observer SignalObserver) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithLipSync enables or disables the analysis loop
func WithLipSync(enabled bool) Option {
	return func(e *Engine) {
		e.lipSync = enabled
	}
}

// WithSampleRate sets the rate clips are resampled to before analysis
func WithSampleRate(rate int) Option {
	return func(e *Engine) {
		if rate > 0 {
			e.sampleRate = rate
		}
	}
}

// WithAnalyser sets the FFT size and time smoothing of the spectrum analyser
func WithAnalyser(fftSize int, smoothing float64) Option {
	return func(e *Engine) {
		e.fftSize = fftSize
		e.smoothing = smoothing
	}
}

// NewEngine creates an engine playing through output and emitting the mouth
// parameter to sink
func NewEngine(output Output, sink avatar.Sink, opts ...Option) *Engine {
	e := &Engine{
		output:     output,
		sink:       sink,
		scheduler:  NewTickerScheduler(DefaultFrameRate),
		sampleRate: DefaultSampleRate,
		fftSize:    DefaultFFTSize,
		smoothing:  DefaultSmoothing,
		lipSync:    true,
		logger:     observability.Component("audio"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Play stops any clip in flight, decodes clip and starts playing it.
// A decode failure leaves the engine stopped and returns a DecodeError.
func (e *Engine) Play(clip protocol.AudioPayload) error {
	e.mu.Lock()
	disposed := e.disposed
	e.mu.Unlock()
	if disposed {
		return ErrDisposed
	}

	e.Stop()

	pcm, err := DecodeClip(clip, e.sampleRate)
	if err != nil {
		observability.RecordDecodeError(protocol.KindAudio)
		observability.RecordPlayback("failed")
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}

	// Another Play may have started while decoding
	e.stopLocked()

	playback, err := e.output.Start(pcm)
	if err != nil {
		observability.RecordPlayback("failed")
		return fmt.Errorf("failed to start playback: %w", err)
	}

	s := &session{
		pcm:      pcm,
		playback: playback,
	}
	e.session = s
	e.signal = 0

	if e.lipSync {
		s.analyser = NewAnalyser(e.fftSize, e.smoothing)
		s.stopTick = e.scheduler.Start(func() { e.tick(s) })
	}

	go e.awaitEnd(s)

	observability.RecordPlayback("started")
	observability.RecordPlaybackDuration(pcm.Duration().Seconds())
	e.logger.Debug().
		Dur("duration", pcm.Duration()).
		Int("sample_rate", pcm.SampleRate).
		Float64("rms", CalculateRMS(pcm.Samples)).
		Bool("lip_sync", e.lipSync).
		Msg("Playback started")
	return nil
}

// Stop halts playback and resets the signal to 0. Safe to call when idle;
// the reset is only emitted if a clip was playing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopLocked() {
		observability.RecordPlayback("stopped")
	}
}

// Dispose stops playback and releases the output. Play returns ErrDisposed
// afterwards. Safe to call repeatedly.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	if e.disposed {
		return nil
	}
	e.disposed = true
	return e.output.Close()
}

// Signal returns the current lip-sync value
func (e *Engine) Signal() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signal
}

// Playing reports whether a clip is in flight
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// tick runs one analysis step. A tick for a replaced or stopped session
// does nothing.
func (e *Engine) tick(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != s {
		return
	}

	bins := s.analyser.ByteFrequencyData(s.pcm.Samples, s.playback.Position())
	target := TargetFromEnergy(SpeechEnergy(bins))
	e.signal = Smooth(e.signal, target)
	e.emitLocked(e.signal)
}

// awaitEnd stops the session once its clip has played out
func (e *Engine) awaitEnd(s *session) {
	<-s.playback.Done()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != s {
		return
	}
	e.stopLocked()
	observability.RecordPlayback("completed")
	e.logger.Debug().Msg("Playback completed")
}

// stopLocked tears down the current session and emits the reset. It reports
// whether a session was active. Caller holds mu.
func (e *Engine) stopLocked() bool {
	s := e.session
	if s == nil {
		return false
	}
	e.session = nil

	if s.stopTick != nil {
		s.stopTick()
	}
	s.playback.Stop()

	e.signal = 0
	e.emitLocked(0)
	return true
}

func (e *Engine) emitLocked(value float64) {
	if e.sink != nil {
		e.sink.ApplyParameters([]avatar.Param{{Name: avatar.MouthOpenParam, Value: value}})
	}
	if e.observer != nil {
		e.observer(value)
	}
	observability.SetLipSyncSignal(value)
}
