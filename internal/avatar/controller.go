package avatar

import (
	"strings"
	"sync"
	"time"

	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/lexiqai/avatar-link/internal/protocol"
	"github.com/rs/zerolog"
)

// ClipPlayer plays one speech clip, replacing any clip already playing
type ClipPlayer interface {
	Play(clip protocol.AudioPayload) error
}

// Controller applies routed messages to the avatar. It implements
// router.Handler.
type Controller struct {
	sink    Sink
	profile Profile
	history *History
	player  ClipPlayer
	onState func(State)
	now     func() time.Time
	logger  zerolog.Logger

	mu            sync.RWMutex
	state         State
	emotion       Emotion
	lastHeartbeat time.Time
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithProfile replaces the built-in emotion table
func WithProfile(profile Profile) ControllerOption {
	return func(c *Controller) {
		if profile != nil {
			c.profile = profile
		}
	}
}

// WithHistory sets the conversation history to append to
func WithHistory(history *History) ControllerOption {
	return func(c *Controller) {
		if history != nil {
			c.history = history
		}
	}
}

// WithPlayer enables audio playback. Without a player audio messages are dropped.
func WithPlayer(player ClipPlayer) ControllerOption {
	return func(c *Controller) {
		c.player = player
	}
}

// WithStateObserver registers a callback for avatar state changes
func WithStateObserver(fn func(State)) ControllerOption {
	return func(c *Controller) {
		c.onState = fn
	}
}

// WithNow overrides the clock used for history and heartbeat timestamps
func WithNow(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates a controller driving sink
func NewController(sink Sink, opts ...ControllerOption) *Controller {
	c := &Controller{
		sink:    sink,
		profile: DefaultProfile(),
		history: NewHistory(100),
		now:     time.Now,
		logger:  observability.Component("avatar"),
		state:   StateIdle,
		emotion: EmotionNeutral,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleState records the avatar's current state
func (c *Controller) HandleState(payload protocol.StatePayload) {
	state := State(payload.State)
	if !state.Valid() {
		c.logger.Warn().Str("state", payload.State).Msg("Ignoring unknown avatar state")
		return
	}

	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.mu.Unlock()

	c.logger.Debug().Str("state", string(state)).Bool("changed", changed).Msg("Avatar state")
	if c.onState != nil {
		c.onState(state)
	}
}

// HandleText appends a dialogue line to the history
func (c *Controller) HandleText(payload protocol.TextPayload) {
	c.appendLine(payload.Text, payload.IsUser)
}

// RecordUserLine appends a locally typed line. It reports false for blank input.
func (c *Controller) RecordUserLine(text string) bool {
	return c.appendLine(text, true)
}

func (c *Controller) appendLine(text string, isUser bool) bool {
	text = normalizeText(text)
	if text == "" {
		return false
	}
	c.history.Append(Line{Text: text, IsUser: isUser, At: c.now()})
	c.logger.Info().Bool("is_user", isUser).Str("text", text).Msg("Dialogue")
	return true
}

// normalizeText treats the literal strings "undefined" and "null", which
// some backends emit for missing text, as empty
func normalizeText(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "undefined" || trimmed == "null" {
		return ""
	}
	return trimmed
}

// HandleEmotion applies the parameter batch for the named emotion
func (c *Controller) HandleEmotion(payload protocol.EmotionPayload) {
	name := Emotion(strings.ToLower(strings.TrimSpace(payload.Emotion)))
	if _, ok := c.profile[name]; !ok {
		c.logger.Warn().Str("emotion", payload.Emotion).Msg("Unknown emotion, using neutral")
		name = EmotionNeutral
	}

	c.mu.Lock()
	c.emotion = name
	c.mu.Unlock()

	event := c.logger.Debug().Str("emotion", string(name))
	if payload.Intensity != nil {
		event = event.Float64("intensity", *payload.Intensity)
	}
	event.Msg("Applying emotion")

	c.sink.ApplyParameters(c.profile.Params(string(name)))
}

// HandleMotion triggers a motion, defaulting the priority
func (c *Controller) HandleMotion(payload protocol.MotionPayload) {
	priority := DefaultMotionPriority
	if payload.Priority != nil {
		priority = *payload.Priority
	}
	c.sink.TriggerMotion(payload.Group, payload.Index, priority)
}

// HandleParams applies a parameter batch directly
func (c *Controller) HandleParams(payload protocol.ParamPayload) {
	if len(payload.Params) == 0 {
		return
	}
	c.sink.ApplyParameters(payload.Params)
}

// HandleAudio hands the clip to the player. Playback failures leave the
// dialogue untouched.
func (c *Controller) HandleAudio(payload protocol.AudioPayload) {
	if c.player == nil {
		c.logger.Debug().Msg("Audio disabled, dropping clip")
		return
	}
	if err := c.player.Play(payload); err != nil {
		c.logger.Warn().Err(err).Str("format", payload.Format).Msg("Audio playback failed")
	}
}

// HandleHeartbeat records when the server last pinged
func (c *Controller) HandleHeartbeat(timestamp *int64) {
	c.mu.Lock()
	c.lastHeartbeat = c.now()
	c.mu.Unlock()
}

// State returns the last avatar state received
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Emotion returns the last emotion applied
func (c *Controller) Emotion() Emotion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emotion
}

// LastHeartbeat returns the time of the last server ping, zero if none
func (c *Controller) LastHeartbeat() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHeartbeat
}

// History returns the conversation history
func (c *Controller) History() *History {
	return c.history
}
