//go:build !nocgo

package device

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/lexiqai/avatar-link/internal/audio"
	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/rs/zerolog"
)

// pollInterval is how often a playback checks whether the device drained
const pollInterval = 10 * time.Millisecond

// Output plays mono 16-bit PCM on the default audio device
type Output struct {
	ctx        *oto.Context
	sampleRate int
	logger     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewOutput opens the audio device at sampleRate. oto allows a single
// context per process, so create one Output and share it.
func NewOutput(sampleRate int) (*Output, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	logger := observability.Component("audio_device")
	logger.Info().Int("sample_rate", sampleRate).Msg("Audio device ready")

	return &Output{
		ctx:        ctx,
		sampleRate: sampleRate,
		logger:     logger,
	}, nil
}

// Start plays pcm from the beginning
func (o *Output) Start(pcm *audio.PCM) (audio.Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, errors.New("audio device closed")
	}
	if pcm.SampleRate != o.sampleRate {
		return nil, fmt.Errorf("clip rate %d does not match device rate %d", pcm.SampleRate, o.sampleRate)
	}
	if err := o.ctx.Err(); err != nil {
		return nil, fmt.Errorf("audio device error: %w", err)
	}

	reader := &countingReader{r: bytes.NewReader(pcm.Int16LE())}
	player := o.ctx.NewPlayer(reader)

	p := &playback{
		player: player,
		reader: reader,
		total:  pcm.Len(),
		done:   make(chan struct{}),
	}
	player.Play()
	go p.watch()

	return p, nil
}

// Close suspends the device. oto contexts cannot be destroyed, only
// suspended.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.ctx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend audio device: %w", err)
	}
	o.logger.Info().Msg("Audio device suspended")
	return nil
}

type playback struct {
	player *oto.Player
	reader *countingReader
	total  int

	once sync.Once
	done chan struct{}
}

func (p *playback) Position() int {
	return samplePosition(p.reader.count(), int64(p.player.BufferedSize()), p.total)
}

func (p *playback) Done() <-chan struct{} {
	return p.done
}

func (p *playback) Stop() {
	p.finish()
}

// watch closes done once the player has drained its source
func (p *playback) watch() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if !p.player.IsPlaying() {
				p.finish()
				return
			}
		}
	}
}

func (p *playback) finish() {
	p.once.Do(func() {
		p.player.Pause()
		p.player.Close()
		close(p.done)
	})
}
