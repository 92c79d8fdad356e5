package avatar

import "github.com/lexiqai/avatar-link/internal/protocol"

// Param is a single named model parameter
type Param = protocol.Param

// MouthOpenParam receives the lip-sync signal
const MouthOpenParam = "ParamMouthOpenY"

// DefaultMotionPriority is used when a motion message carries no priority
const DefaultMotionPriority = 3

// Sink is the avatar rendering engine boundary. Implementations must be safe
// for use from multiple goroutines.
type Sink interface {
	ApplyParameters(params []Param)
	TriggerMotion(group string, index, priority int)
}

// State is what the avatar is currently doing
type State string

const (
	StateIdle       State = "idle"
	StateThinking   State = "thinking"
	StateSpeaking   State = "speaking"
	StateProcessing State = "processing"
	StateListening  State = "listening"
)

// Valid reports whether s is a known avatar state
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateThinking, StateSpeaking, StateProcessing, StateListening:
		return true
	}
	return false
}

// Emotion names an entry of the emotion profile
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionSurprised Emotion = "surprised"
)
