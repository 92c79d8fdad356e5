package avatar

import (
	"errors"
	"sync"

	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/lexiqai/avatar-link/internal/protocol"
	"github.com/rs/zerolog"
)

// DefaultClipQueueDepth bounds the clips waiting behind the one being started
const DefaultClipQueueDepth = 4

var (
	// ErrClipQueueFull is returned when a clip arrives with the queue at capacity
	ErrClipQueueFull = errors.New("clip queue full")
	// ErrClipQueueClosed is returned by Play after Close
	ErrClipQueueClosed = errors.New("clip queue closed")
)

// ClipQueue hands clips to a player from its own goroutine, in arrival
// order. Play never blocks on decoding, so the connection read loop keeps
// answering heartbeats while a long clip is prepared.
type ClipQueue struct {
	player ClipPlayer
	clips  chan protocol.AudioPayload
	done   chan struct{}
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClipQueue starts a queue feeding player
func NewClipQueue(player ClipPlayer, depth int) *ClipQueue {
	if depth <= 0 {
		depth = DefaultClipQueueDepth
	}
	q := &ClipQueue{
		player: player,
		clips:  make(chan protocol.AudioPayload, depth),
		done:   make(chan struct{}),
		logger: observability.Component("clips"),
	}
	go q.run()
	return q
}

// Play enqueues clip without waiting for it to start
func (q *ClipQueue) Play(clip protocol.AudioPayload) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClipQueueClosed
	}
	select {
	case q.clips <- clip:
		return nil
	default:
		observability.RecordPlayback("dropped")
		return ErrClipQueueFull
	}
}

// Close stops accepting clips, discards those not yet started and waits
// for the one being started to return. Safe to call repeatedly.
func (q *ClipQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.clips)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *ClipQueue) run() {
	defer close(q.done)
	for clip := range q.clips {
		if q.isClosed() {
			continue
		}
		if err := q.player.Play(clip); err != nil {
			q.logger.Warn().Err(err).Str("format", clip.Format).Msg("Audio playback failed")
		}
	}
}

func (q *ClipQueue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
