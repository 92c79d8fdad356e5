package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the required fields of a state payload
func (p StatePayload) Validate() error {
	if p.State == "" {
		return errors.New("state is required")
	}
	return nil
}

// Validate accepts any text payload; empty lines are filtered by consumers
func (p TextPayload) Validate() error {
	return nil
}

// Validate checks the required fields of an audio payload
func (p AudioPayload) Validate() error {
	if p.Audio == "" {
		return errors.New("audio is required")
	}
	switch strings.ToLower(p.Format) {
	case "", "wav", "mp3":
	default:
		return fmt.Errorf("unsupported audio format %q", p.Format)
	}
	if p.SampleRate < 0 {
		return fmt.Errorf("invalid sample rate %d", p.SampleRate)
	}
	return nil
}

// Validate checks the required fields of an emotion payload
func (p EmotionPayload) Validate() error {
	if p.Emotion == "" {
		return errors.New("emotion is required")
	}
	return nil
}

// Validate checks the required fields of a motion payload
func (p MotionPayload) Validate() error {
	if p.Group == "" {
		return errors.New("motion group is required")
	}
	if p.Index < 0 {
		return fmt.Errorf("invalid motion index %d", p.Index)
	}
	return nil
}

// Validate checks every parameter carries a name
func (p ParamPayload) Validate() error {
	for i, param := range p.Params {
		if param.Name == "" {
			return fmt.Errorf("param %d has no name", i)
		}
	}
	return nil
}
