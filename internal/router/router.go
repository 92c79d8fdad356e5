package router

import (
	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/lexiqai/avatar-link/internal/protocol"
	"github.com/rs/zerolog"
)

// Handler is the capability set the router dispatches to.
// Each method is invoked at most once per envelope.
type Handler interface {
	HandleState(payload protocol.StatePayload)
	HandleText(payload protocol.TextPayload)
	HandleEmotion(payload protocol.EmotionPayload)
	HandleMotion(payload protocol.MotionPayload)
	HandleParams(payload protocol.ParamPayload)
	HandleAudio(payload protocol.AudioPayload)
	HandleHeartbeat(timestamp *int64)
}

// Router classifies decoded envelopes by type and forwards them.
// It holds no state of its own and never retries.
type Router struct {
	handler Handler
	logger  zerolog.Logger
}

// New creates a router forwarding to handler
func New(handler Handler) *Router {
	return &Router{
		handler: handler,
		logger:  observability.Component("router"),
	}
}

type validator interface {
	Validate() error
}

// decode unmarshals and validates the payload, logging and counting failures
func decode[T validator](r *Router, env *protocol.Envelope) (T, bool) {
	payload, err := protocol.DecodePayload[T](env)
	if err == nil {
		if verr := payload.Validate(); verr != nil {
			err = protocol.NewDecodeError(protocol.KindPayload, verr)
		}
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("type", string(env.Type)).Msg("Dropping invalid payload")
		observability.RecordDecodeError(protocol.KindPayload)
		return payload, false
	}
	return payload, true
}

// Dispatch invokes the handler matching env.Type. Unknown types and invalid
// payloads are logged and dropped.
func (r *Router) Dispatch(env *protocol.Envelope) {
	if env == nil {
		return
	}

	switch env.Type {
	case protocol.TypeState:
		if p, ok := decode[protocol.StatePayload](r, env); ok {
			r.handler.HandleState(p)
		}
	case protocol.TypeText:
		if p, ok := decode[protocol.TextPayload](r, env); ok {
			r.handler.HandleText(p)
		}
	case protocol.TypeEmotion:
		if p, ok := decode[protocol.EmotionPayload](r, env); ok {
			r.handler.HandleEmotion(p)
		}
	case protocol.TypeMotion:
		if p, ok := decode[protocol.MotionPayload](r, env); ok {
			r.handler.HandleMotion(p)
		}
	case protocol.TypeParam:
		if p, ok := decode[protocol.ParamPayload](r, env); ok {
			r.handler.HandleParams(p)
		}
	case protocol.TypeAudio:
		if p, ok := decode[protocol.AudioPayload](r, env); ok {
			r.handler.HandleAudio(p)
		}
	case protocol.TypePing:
		r.handler.HandleHeartbeat(env.Timestamp)
	case protocol.TypePong, protocol.TypeConnected, protocol.TypeUserText:
		r.logger.Debug().Str("type", string(env.Type)).Msg("Ignoring server bookkeeping message")
	default:
		r.logger.Warn().Str("type", string(env.Type)).Msg("Unknown message type")
	}
}
