package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "avatar_link"

var (
	// Connection metrics
	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connection_state",
		Help:      "Current connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=error)",
	})

	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_transitions_total",
		Help:      "Connection state transitions by target state",
	}, []string{"state"})

	reconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnect_attempts_total",
		Help:      "Reconnect attempts fired by the reconnect timer",
	})

	// Message metrics
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_received_total",
		Help:      "Decoded inbound messages by type",
	}, []string{"type"})

	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Outbound messages by type",
	}, []string{"type"})

	decodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_errors_total",
		Help:      "Dropped inbound data by decode failure kind",
	}, []string{"kind"})

	sendsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sends_suppressed_total",
		Help:      "Sends dropped because the connection was not open",
	})

	// Audio metrics
	playbackSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_sessions_total",
		Help:      "Playback sessions by result (started, completed, stopped, failed, dropped)",
	}, []string{"result"})

	playbackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "playback_duration_seconds",
		Help:      "Decoded clip duration in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	})

	lipSyncSignal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lipsync_signal",
		Help:      "Most recent lip-sync signal value in [0,1]",
	})
)

// RecordStateChange records a connection state transition
func RecordStateChange(state string, value int) {
	connectionState.Set(float64(value))
	stateTransitions.WithLabelValues(state).Inc()
}

// RecordReconnectAttempt records a fired reconnect attempt
func RecordReconnectAttempt() {
	reconnectAttempts.Inc()
}

// RecordMessageReceived records a decoded inbound message
func RecordMessageReceived(msgType string) {
	messagesReceived.WithLabelValues(msgType).Inc()
}

// RecordMessageSent records a transmitted message
func RecordMessageSent(msgType string) {
	messagesSent.WithLabelValues(msgType).Inc()
}

// RecordDecodeError records dropped inbound data
func RecordDecodeError(kind string) {
	decodeErrors.WithLabelValues(kind).Inc()
}

// RecordSendSuppressed records a send attempted while not connected
func RecordSendSuppressed() {
	sendsSuppressed.Inc()
}

// RecordPlayback records a playback session outcome
func RecordPlayback(result string) {
	playbackSessions.WithLabelValues(result).Inc()
}

// RecordPlaybackDuration records the length of a decoded clip
func RecordPlaybackDuration(seconds float64) {
	playbackDuration.Observe(seconds)
}

// SetLipSyncSignal publishes the latest lip-sync value
func SetLipSyncSignal(value float64) {
	lipSyncSignal.Set(value)
}
