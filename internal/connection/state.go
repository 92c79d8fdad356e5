package connection

// State represents the connection state. Exactly one is current at any time.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

// String returns the wire/presentation name of the state
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Indicator buckets the state for a status light: ok, pending or down
func (s State) Indicator() string {
	switch s {
	case StateConnected:
		return "ok"
	case StateConnecting, StateReconnecting:
		return "pending"
	default:
		return "down"
	}
}
