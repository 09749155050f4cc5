package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/minelotto/lotto-client/internal/auth"
)

// StateListener is notified on connected/disconnected transitions.
type StateListener func(connected bool)

// Manager owns the single push channel for a session. It establishes the
// connection with the session credential, reconnects after unexpected drops,
// and replays joined rooms on every reconnect.
type Manager struct {
	cfg    ManagerConfig
	creds  *auth.Credentials
	logger *slog.Logger

	// Parsed inbound envelopes
	events chan Envelope

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu        sync.Mutex
	client    Client
	rooms     map[string]struct{}
	listeners []StateListener
	connected bool
	started   bool
}

// NewManager creates a channel manager. It does not connect until Start.
func NewManager(cfg ManagerConfig, creds *auth.Credentials, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:    cfg,
		creds:  creds,
		logger: logger,
		events: make(chan Envelope, cfg.EventBufferSize),
		rooms:  make(map[string]struct{}),
	}
}

// Start connects the push channel. A missing credential is a hard failure:
// there is no anonymous mode.
func (m *Manager) Start(ctx context.Context) error {
	if m.creds == nil || m.creds.Token == "" {
		return auth.ErrUnauthenticated
	}

	m.ctx, m.cancel = context.WithCancel(ctx)

	client := NewClient(m.clientConfig(), m.logger)
	if err := client.Connect(m.ctx); err != nil {
		m.cancel()
		return fmt.Errorf("connect push channel: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.connected = true
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.readLoop(client)

	m.notifyState(true)
	m.logger.Info("channel manager started", "url", m.cfg.WSURL)

	return nil
}

// Stop gracefully shuts down.
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	m.mu.Lock()
	client := m.client
	m.connected = false
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// The read loop may still be mid-send on m.events; closing the
		// channel now could panic it. Leave the channel open, it exits
		// through the manager context.
		m.logger.Warn("channel manager stop timed out")
		return ctx.Err()
	}

	m.closeOnce.Do(func() { close(m.events) })
	m.logger.Info("channel manager stopped")
	return nil
}

// Events returns the channel of inbound push envelopes.
func (m *Manager) Events() <-chan Envelope {
	return m.events
}

// IsConnected returns the current channel state.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// OnStateChange registers a listener for connected/disconnected transitions.
func (m *Manager) OnStateChange(fn StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Send marshals and writes an event envelope to the channel.
func (m *Manager) Send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	env := Envelope{Event: event, Data: raw}
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		return ErrNotConnected
	}
	return client.Send(frame)
}

// JoinRoom declares interest in a server-side delivery room. The room is
// recorded before the join is sent so a reconnect replays it even when the
// first send is lost to a dropped connection.
func (m *Manager) JoinRoom(room string) error {
	m.mu.Lock()
	m.rooms[room] = struct{}{}
	m.mu.Unlock()

	if err := m.Send(EventJoin, room); err != nil {
		return fmt.Errorf("join room %s: %w", room, err)
	}
	return nil
}

// LeaveRoom withdraws interest in a room. The leave message is best effort;
// what matters is that the room is no longer replayed on reconnect.
func (m *Manager) LeaveRoom(room string) {
	m.mu.Lock()
	delete(m.rooms, room)
	m.mu.Unlock()

	if err := m.Send(EventLeave, room); err != nil {
		m.logger.Debug("failed to send leave", "room", room, "error", err)
	}
}

// clientConfig derives the websocket client config.
func (m *Manager) clientConfig() ClientConfig {
	return ClientConfig{
		URL:          m.cfg.WSURL,
		Token:        m.creds.QueryParam(),
		PingTimeout:  m.cfg.PingTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.EventBufferSize,
	}
}

// readLoop forwards parsed envelopes until the connection errors or the
// manager stops.
func (m *Manager) readLoop(client Client) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case err := <-client.Errors():
			m.logger.Warn("push channel error", "error", err)

			m.mu.Lock()
			m.connected = false
			m.mu.Unlock()
			m.notifyState(false)

			m.wg.Add(1)
			go m.reconnect()
			return

		case msg, ok := <-client.Messages():
			if !ok {
				return
			}

			var env Envelope
			if err := json.Unmarshal(msg.Data, &env); err != nil {
				m.logger.Warn("unparseable push message", "error", err)
				continue
			}
			if env.Event == "" {
				continue
			}

			select {
			case m.events <- env:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

// reconnect re-establishes the channel with exponential backoff and replays
// room membership. The server forgets subscriptions when a connection dies;
// without the replay, correlated completions would silently never arrive.
func (m *Manager) reconnect() {
	defer m.wg.Done()

	wait := m.cfg.ReconnectBaseWait
	maxWait := m.cfg.ReconnectMaxWait

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(wait):
		}

		m.logger.Info("attempting reconnection")

		m.mu.Lock()
		old := m.client
		m.mu.Unlock()
		if old != nil {
			old.Close()
		}

		client := NewClient(m.clientConfig(), m.logger)
		if err := client.Connect(m.ctx); err != nil {
			m.logger.Warn("reconnection failed", "error", err)

			wait *= 2
			if wait > maxWait {
				wait = maxWait
			}
			continue
		}

		m.mu.Lock()
		m.client = client
		m.connected = true
		rooms := make([]string, 0, len(m.rooms))
		for room := range m.rooms {
			rooms = append(rooms, room)
		}
		m.mu.Unlock()

		for _, room := range rooms {
			if err := m.Send(EventJoin, room); err != nil {
				m.logger.Warn("failed to rejoin room", "room", room, "error", err)
			}
		}

		m.logger.Info("reconnected", "rooms_rejoined", len(rooms))

		m.wg.Add(1)
		go m.readLoop(client)

		m.notifyState(true)
		return
	}
}

// notifyState invokes state listeners outside the manager lock.
func (m *Manager) notifyState(connected bool) {
	m.mu.Lock()
	listeners := make([]StateListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(connected)
	}
}
