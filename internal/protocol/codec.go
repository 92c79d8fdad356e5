package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// wireEnvelope accepts both field spellings used by backends for the payload
type wireEnvelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp json.Number     `json:"timestamp"`
}

// Decode parses one inbound frame into an Envelope.
// Only the envelope is validated; an unrecognized type is not an error.
func Decode(data []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewDecodeError(KindEnvelope, errors.New("empty message"))
	}

	var wire wireEnvelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return nil, NewDecodeError(KindEnvelope, err)
	}
	if wire.Type == "" {
		return nil, NewDecodeError(KindEnvelope, errors.New("missing type"))
	}

	env := &Envelope{
		Type: MessageType(wire.Type),
		Data: wire.Data,
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		env.Data = wire.Payload
	}

	if wire.Timestamp != "" {
		ts, err := parseTimestamp(wire.Timestamp)
		if err != nil {
			return nil, NewDecodeError(KindEnvelope, err)
		}
		env.Timestamp = &ts
	}

	return env, nil
}

// parseTimestamp tolerates float epoch-millis from loosely typed backends
func parseTimestamp(n json.Number) (int64, error) {
	if ts, err := n.Int64(); err == nil {
		return ts, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid timestamp %q", n.String())
	}
	return int64(f), nil
}

// Encode serializes an outbound envelope stamped with now
func Encode(msgType MessageType, payload interface{}, now time.Time) ([]byte, error) {
	if msgType == "" {
		return nil, errors.New("message type is required")
	}

	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		data = raw
	}

	ts := now.UnixMilli()
	return json.Marshal(&Envelope{
		Type:      msgType,
		Data:      data,
		Timestamp: &ts,
	})
}

// DecodePayload unmarshals the envelope data into T.
// A missing payload decodes to the zero value.
func DecodePayload[T any](env *Envelope) (T, error) {
	var payload T
	if env == nil {
		return payload, NewDecodeError(KindPayload, errors.New("nil envelope"))
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return payload, nil
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return payload, NewDecodeError(KindPayload, fmt.Errorf("%s: %w", env.Type, err))
	}
	return payload, nil
}
