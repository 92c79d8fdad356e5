package protocol

import (
	"errors"
	"fmt"
)

// DecodeError kinds
const (
	KindEnvelope = "envelope"
	KindPayload  = "payload"
	KindAudio    = "audio"
)

// DecodeError reports inbound data that could not be understood.
// The offending message or clip is dropped; no state changes.
type DecodeError struct {
	Kind string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError wraps err as a DecodeError of the given kind
func NewDecodeError(kind string, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Kind: kind, Err: err}
}

// IsDecodeError checks if err is, or wraps, a DecodeError
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}
