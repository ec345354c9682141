package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// writeTimeout bounds a single socket write so one stalled client cannot
// hold up fan-out to the rest of a board's subscribers indefinitely.
const writeTimeout = 10 * time.Second

// MessageWriter is the transport-level write surface of one connection.
// *websocket.Conn satisfies it; tests substitute their own recorder.
type MessageWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// Conn is an opaque handle to one live client connection. It is owned by
// exactly one authenticated user for its lifetime.
type Conn struct {
	sock       MessageWriter
	remoteAddr string
}

// NewConn wraps an accepted websocket connection.
func NewConn(sock MessageWriter, remoteAddr string) *Conn {
	return &Conn{sock: sock, remoteAddr: remoteAddr}
}

// RemoteAddr returns the client address recorded at accept time.
func (c *Conn) RemoteAddr() string { return c.remoteAddr }

func (c *Conn) send(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.sock.Write(ctx, websocket.MessageText, payload)
}

// Manager is the authoritative registry of live connections, board access
// grants and board subscriptions. It is instantiated once at startup and
// injected into every component that needs it; it is the sole writer of
// its three tables.
//
// One mutex guards all tables. Fan-out writes happen outside the lock on
// a snapshot so a slow socket never blocks registry mutations.
type Manager struct {
	mu sync.Mutex

	// conns maps user ID -> that user's live connections (a user may
	// hold several: multiple tabs or devices).
	conns map[int64]map[*Conn]struct{}

	// access maps board ID -> user IDs known to have at least read
	// access. Populated on demand when a user attempts to subscribe;
	// not invalidated automatically when access is revoked elsewhere.
	access map[int64]map[int64]struct{}

	// subs maps board ID -> user IDs opted in to receive its events.
	subs map[int64]map[int64]struct{}
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{
		conns:  make(map[int64]map[*Conn]struct{}),
		access: make(map[int64]map[int64]struct{}),
		subs:   make(map[int64]map[int64]struct{}),
	}
}

// Connect registers an accepted connection under the user's connection set.
func (m *Manager) Connect(c *Conn, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.conns[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		m.conns[userID] = set
	}
	set[c] = struct{}{}

	log.Info().Int64("user_id", userID).Str("remote", c.remoteAddr).Msg("ws: user connected")
}

// Disconnect removes the connection from the user's set; the user's entry
// disappears entirely with its last connection. Idempotent: removing an
// already-removed connection is a no-op. Board subscriptions are NOT
// touched; callers unsubscribe explicitly where that is wanted.
func (m *Manager) Disconnect(c *Conn, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.conns[userID]
	if !ok {
		return
	}
	if _, present := set[c]; !present {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m.conns, userID)
	}

	log.Info().Int64("user_id", userID).Str("remote", c.remoteAddr).Msg("ws: user disconnected")
}

// SetBoardAccess grants or revokes a user's membership in the board's
// access set. Revoking access does not unsubscribe an already-subscribed
// user; the subscription survives until disconnect or explicit
// unsubscribe.
func (m *Manager) SetBoardAccess(userID, boardID int64, hasAccess bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hasAccess {
		set, ok := m.access[boardID]
		if !ok {
			set = make(map[int64]struct{})
			m.access[boardID] = set
		}
		set[userID] = struct{}{}
		return
	}

	if set, ok := m.access[boardID]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(m.access, boardID)
		}
	}
}

// CheckBoardAccess reports whether the user is in the board's access set.
func (m *Manager) CheckBoardAccess(userID, boardID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.access[boardID]
	if !ok {
		return false
	}
	_, present := set[userID]
	return present
}

// Subscribe adds the user to the board's subscription set. It fails if
// the user is not currently in the board's access set.
func (m *Manager) Subscribe(userID, boardID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	accessSet, ok := m.access[boardID]
	if !ok {
		log.Warn().Int64("user_id", userID).Int64("board_id", boardID).Msg("ws: subscribe denied, no board access")
		return false
	}
	if _, present := accessSet[userID]; !present {
		log.Warn().Int64("user_id", userID).Int64("board_id", boardID).Msg("ws: subscribe denied, no board access")
		return false
	}

	set, ok := m.subs[boardID]
	if !ok {
		set = make(map[int64]struct{})
		m.subs[boardID] = set
	}
	set[userID] = struct{}{}

	log.Info().Int64("user_id", userID).Int64("board_id", boardID).Msg("ws: subscribed to board")
	return true
}

// Unsubscribe removes the user from the board's subscription set.
// No-op if absent.
func (m *Manager) Unsubscribe(userID, boardID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.subs[boardID]
	if !ok {
		return
	}
	if _, present := set[userID]; !present {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(m.subs, boardID)
	}

	log.Info().Int64("user_id", userID).Int64("board_id", boardID).Msg("ws: unsubscribed from board")
}

// BroadcastToBoard validates the message, serializes it once, and pushes
// it to every live connection of every current subscriber. Invalid
// messages are logged and dropped before any socket write. A board with
// zero subscribers is a cheap no-op: no serialization, no I/O.
func (m *Manager) BroadcastToBoard(ctx context.Context, boardID int64, msg Message) {
	m.mu.Lock()
	set, ok := m.subs[boardID]
	if !ok || len(set) == 0 {
		m.mu.Unlock()
		return
	}
	subscribers := make([]int64, 0, len(set))
	for userID := range set {
		subscribers = append(subscribers, userID)
	}
	m.mu.Unlock()

	if err := msg.Validate(); err != nil {
		log.Error().Err(err).Str("event", string(msg.Event)).Int64("board_id", boardID).Msg("ws: dropping invalid broadcast")
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", string(msg.Event)).Int64("board_id", boardID).Msg("ws: marshal broadcast")
		return
	}

	log.Info().Str("event", string(msg.Event)).Int64("board_id", boardID).Int("subscribers", len(subscribers)).Msg("ws: broadcasting")

	for _, userID := range subscribers {
		m.SendToUser(ctx, userID, payload)
	}
}

// SendToUser delivers an already-serialized message to every connection
// in the user's set. Connections whose write fails are pruned after the
// delivery loop; one dead connection never blocks delivery to the rest.
func (m *Manager) SendToUser(ctx context.Context, userID int64, payload []byte) {
	m.mu.Lock()
	set, ok := m.conns[userID]
	if !ok {
		m.mu.Unlock()
		return
	}
	targets := make([]*Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	m.mu.Unlock()

	var dead []*Conn
	for _, c := range targets {
		if err := c.send(ctx, payload); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Str("remote", c.remoteAddr).Msg("ws: send failed, pruning connection")
			dead = append(dead, c)
		}
	}

	for _, c := range dead {
		m.Disconnect(c, userID)
	}
}
