package protocol

import "encoding/json"

// MessageType identifies the payload carried by an Envelope
type MessageType string

// Message types exchanged with the backend
const (
	TypeState   MessageType = "state"
	TypeAudio   MessageType = "audio"
	TypeText    MessageType = "text"
	TypeEmotion MessageType = "emotion"
	TypeMotion  MessageType = "motion"
	TypeParam   MessageType = "param"
	TypePing    MessageType = "ping"
	TypePong    MessageType = "pong"

	// Sent by the server for its own bookkeeping; logged, never acted on
	TypeConnected MessageType = "connected"
	TypeUserText  MessageType = "user_text"
)

var recognized = map[MessageType]bool{
	TypeState:     true,
	TypeAudio:     true,
	TypeText:      true,
	TypeEmotion:   true,
	TypeMotion:    true,
	TypeParam:     true,
	TypePing:      true,
	TypePong:      true,
	TypeConnected: true,
	TypeUserText:  true,
}

// IsRecognized reports whether t belongs to the closed set of wire types
func (t MessageType) IsRecognized() bool {
	return recognized[t]
}

// Envelope is the typed wrapper exchanged over the connection.
// Data stays raw until a consumer asks for a typed payload.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp *int64          `json:"timestamp,omitempty"`
}

// StatePayload carries an avatar state change
type StatePayload struct {
	State    string                 `json:"state"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AudioPayload carries one encoded speech clip
type AudioPayload struct {
	Audio      string `json:"audio"` // base64, optionally with a data URL prefix
	Format     string `json:"format"`
	SampleRate int    `json:"sampleRate"`
}

// TextPayload carries one dialogue line
type TextPayload struct {
	Text   string `json:"text"`
	IsUser bool   `json:"isUser"`
}

// EmotionPayload names an emotion to apply
type EmotionPayload struct {
	Emotion    string   `json:"emotion"`
	Intensity  *float64 `json:"intensity,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// MotionPayload triggers a motion from a named group
type MotionPayload struct {
	Group    string `json:"group"`
	Index    int    `json:"index"`
	Priority *int   `json:"priority,omitempty"`
}

// Param is a single named numeric model parameter
type Param struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ParamPayload carries a batch of parameters to apply directly
type ParamPayload struct {
	Params []Param `json:"params"`
}

// PongPayload answers a server ping
type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}
