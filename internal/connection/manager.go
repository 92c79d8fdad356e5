package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/lexiqai/avatar-link/internal/protocol"
	"github.com/lexiqai/avatar-link/internal/resilience"
	"github.com/rs/zerolog"
)

// Observer receives connection events.
//
// OnStateChange is called once per transition, in transition order.
// OnMessage is called once per decoded inbound envelope, in arrival order,
// from the connection's read goroutine. Neither is called while the Manager
// holds its lock, so observers may call back into the Manager.
type Observer interface {
	OnStateChange(state State)
	OnMessage(env *protocol.Envelope)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	StateChange func(State)
	Message     func(*protocol.Envelope)
}

func (o ObserverFuncs) OnStateChange(state State) {
	if o.StateChange != nil {
		o.StateChange(state)
	}
}

func (o ObserverFuncs) OnMessage(env *protocol.Envelope) {
	if o.Message != nil {
		o.Message(env)
	}
}

// Options configures a Manager
type Options struct {
	URL               string
	AutoReconnect     bool
	ReconnectInterval time.Duration
	DialTimeout       time.Duration

	// Seams for tests; zero values select production implementations
	Dialer Dialer
	Clock  resilience.Clock
	Now    func() time.Time
}

// Manager owns one channel at a time and runs the reconnect state machine
type Manager struct {
	url           string
	autoReconnect bool
	dialTimeout   time.Duration
	dialer        Dialer
	observer      Observer
	reconnect     *resilience.ReconnectTimer
	now           func() time.Time
	logger        zerolog.Logger

	mu    sync.Mutex
	state State
	conn  Conn
	gen   uint64 // bumped whenever the current channel is superseded

	// State notifications queued under mu and delivered by flush
	pending  []State
	flushing bool

	// gorilla/websocket allows one concurrent writer
	writeMu sync.Mutex
}

// NewManager creates a disconnected Manager
func NewManager(opts Options, observer Observer) *Manager {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = NewWebsocketDialer(opts.DialTimeout)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if observer == nil {
		observer = ObserverFuncs{}
	}

	return &Manager{
		url:           opts.URL,
		autoReconnect: opts.AutoReconnect,
		dialTimeout:   opts.DialTimeout,
		dialer:        opts.Dialer,
		observer:      observer,
		reconnect:     resilience.NewReconnectTimer(opts.ReconnectInterval, opts.Clock),
		now:           opts.Now,
		logger:        observability.Component("connection").With().Str("url", opts.URL).Logger(),
		state:         StateDisconnected,
	}
}

// State returns the current connection state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReconnectPending reports whether a reconnect attempt is scheduled
func (m *Manager) ReconnectPending() bool {
	return m.reconnect.Pending()
}

// Connect opens a channel to the configured address. It is a no-op while
// connected or already connecting. A failed open leaves the Manager in
// StateError (then StateReconnecting when auto-reconnect is on) and returns
// the transport error for the caller's information only.
func (m *Manager) Connect(ctx context.Context) error {
	return m.connect(ctx, false)
}

// connect runs one connection attempt. A timer-driven attempt only proceeds
// while the Manager is still Reconnecting, checked in the same lock hold
// that moves it to Connecting, so a Disconnect that lands after the timer
// fired still prevents the dial.
func (m *Manager) connect(ctx context.Context, fromTimer bool) error {
	m.mu.Lock()
	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	if fromTimer && m.state != StateReconnecting {
		state := m.state
		m.mu.Unlock()
		m.logger.Debug().Str("state", state.String()).Msg("Reconnect abandoned")
		return nil
	}
	m.reconnect.Cancel()
	m.gen++
	gen := m.gen
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()
	m.flush()

	logger := observability.WithConnectionID(m.logger, observability.NewConnectionID())
	logger.Info().Msg("Connecting")

	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	conn, err := m.dialer.Dial(dialCtx, m.url)
	cancel()

	m.mu.Lock()
	if gen != m.gen {
		// Disconnect ran while the dial was in flight
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		logger.Debug().Msg("Dial superseded by disconnect")
		return nil
	}

	if err != nil {
		m.setStateLocked(StateError)
		if m.autoReconnect {
			m.scheduleReconnectLocked()
		}
		m.mu.Unlock()
		m.flush()
		logger.Warn().Err(err).Bool("auto_reconnect", m.autoReconnect).Msg("Connection failed")
		return fmt.Errorf("connect: %w", err)
	}

	m.conn = conn
	m.reconnect.Cancel()
	m.setStateLocked(StateConnected)
	m.mu.Unlock()
	m.flush()

	logger.Info().Msg("Connected")
	go m.readLoop(conn, gen, logger)
	return nil
}

// Disconnect cancels any pending reconnect, closes the channel and moves to
// StateDisconnected. It never triggers a reconnect and is safe to repeat.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.reconnect.Cancel()
	m.gen++
	conn := m.conn
	m.conn = nil
	if m.state != StateDisconnected {
		m.setStateLocked(StateDisconnected)
	}
	m.mu.Unlock()

	if conn != nil {
		closeConn(conn)
		m.logger.Info().Msg("Disconnected")
	}
	m.flush()
}

// Send transmits an envelope with a fresh timestamp. While not connected the
// message is dropped with a warning and nil is returned; nothing is queued.
func (m *Manager) Send(msgType protocol.MessageType, payload interface{}) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || conn == nil {
		m.logger.Warn().
			Str("type", string(msgType)).
			Str("state", state.String()).
			Msg("Cannot send message: not connected")
		observability.RecordSendSuppressed()
		return nil
	}

	data, err := protocol.Encode(msgType, payload, m.now())
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	m.writeMu.Unlock()
	if err != nil {
		// The read loop observes the broken channel and drives reconnection
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	observability.RecordMessageSent(string(msgType))
	return nil
}

// SendText sends a dialogue line
func (m *Manager) SendText(text string, isUser bool) error {
	return m.Send(protocol.TypeText, protocol.TextPayload{Text: text, IsUser: isUser})
}

// readLoop forwards inbound envelopes in arrival order until the channel closes
func (m *Manager) readLoop(conn Conn, gen uint64, logger zerolog.Logger) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClosed(conn, gen, err, logger)
			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			logger.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping malformed message")
			observability.RecordDecodeError(protocol.KindEnvelope)
			continue
		}

		if !m.isCurrent(gen) {
			return
		}
		observability.RecordMessageReceived(string(env.Type))

		// Heartbeat is answered before any application handling
		if env.Type == protocol.TypePing {
			pong := protocol.PongPayload{Timestamp: m.now().UnixMilli()}
			if err := m.Send(protocol.TypePong, pong); err != nil {
				logger.Warn().Err(err).Msg("Failed to answer ping")
			}
		}

		m.observer.OnMessage(env)
	}
}

// handleClosed runs the close transition unless a disconnect already did
func (m *Manager) handleClosed(conn Conn, gen uint64, err error, logger zerolog.Logger) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	if m.autoReconnect {
		m.scheduleReconnectLocked()
	} else {
		m.setStateLocked(StateDisconnected)
	}
	m.mu.Unlock()

	conn.Close()

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logger.Warn().Err(err).Bool("auto_reconnect", m.autoReconnect).Msg("Connection closed unexpectedly")
	} else {
		logger.Info().Err(err).Bool("auto_reconnect", m.autoReconnect).Msg("Connection closed")
	}
	m.flush()
}

// scheduleReconnectLocked arms the single reconnect slot and moves to
// StateReconnecting. Caller holds mu.
func (m *Manager) scheduleReconnectLocked() {
	m.reconnect.Schedule(m.onReconnectTimer)
	if m.state != StateReconnecting {
		m.setStateLocked(StateReconnecting)
	}
}

func (m *Manager) onReconnectTimer() {
	observability.RecordReconnectAttempt()
	m.logger.Info().Dur("interval", m.reconnect.Interval()).Msg("Reconnecting")
	_ = m.connect(context.Background(), true)
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

// setStateLocked records a transition for delivery by flush. Caller holds mu.
func (m *Manager) setStateLocked(state State) {
	m.state = state
	m.pending = append(m.pending, state)
	observability.RecordStateChange(state.String(), int(state))
}

// flush delivers queued state notifications in order. Only one goroutine
// delivers at a time; a reentrant call from an observer returns immediately
// and its transitions are picked up by the loop already running.
func (m *Manager) flush() {
	m.mu.Lock()
	if m.flushing {
		m.mu.Unlock()
		return
	}
	m.flushing = true
	for len(m.pending) > 0 {
		state := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		m.observer.OnStateChange(state)
		m.mu.Lock()
	}
	m.flushing = false
	m.mu.Unlock()
}

// closeConn sends a normal close frame when the channel supports control
// frames, then releases it
func closeConn(conn Conn) {
	type controlWriter interface {
		WriteControl(messageType int, data []byte, deadline time.Time) error
	}
	if cw, ok := conn.(controlWriter); ok {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = cw.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	conn.Close()
}
