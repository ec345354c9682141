package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanvas/internal/auth"
	"github.com/gosuda/kanvas/internal/domain"
)

// TokenVerifier resolves the bearer token passed in the connection's
// query parameters. Verification happens exactly once per connection.
type TokenVerifier interface {
	VerifyToken(token string) (auth.Identity, error)
}

// RoleLookup resolves a user's effective role on a board. Subscribe
// commands always consult it fresh rather than trusting the access
// cache. domain.BoardRepository satisfies it.
type RoleLookup interface {
	GetMemberRole(ctx context.Context, boardID, userID int64) (domain.Role, error)
}

// Handler serves the two WebSocket entry points: the general updates
// endpoint where clients subscribe explicitly, and the board-scoped
// endpoint that auto-subscribes to one board at connect time.
type Handler struct {
	manager  *Manager
	verifier TokenVerifier
	roles    RoleLookup
}

// NewHandler creates a WebSocket session handler.
func NewHandler(manager *Manager, verifier TokenVerifier, roles RoleLookup) *Handler {
	return &Handler{manager: manager, verifier: verifier, roles: roles}
}

// boardRole returns the caller's effective role on a board. Elevated
// identities always resolve to owner regardless of membership rows.
func (h *Handler) boardRole(ctx context.Context, ident auth.Identity, boardID int64) (domain.Role, bool) {
	if ident.Superuser {
		return domain.RoleOwner, true
	}
	role, err := h.roles.GetMemberRole(ctx, boardID, ident.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotMember) && !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Int64("board_id", boardID).Int64("user_id", ident.UserID).Msg("ws: role lookup")
		}
		return "", false
	}
	return role, true
}

// authenticate extracts and verifies the token query parameter. On any
// failure it completes the handshake anyway, purely to deliver a
// structured error, then closes with a policy-violation code.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (auth.Identity, *websocket.Conn, *Conn, bool) {
	token := r.URL.Query().Get("token")

	ident, authErr := auth.Identity{}, error(nil)
	if token == "" {
		authErr = auth.ErrInvalidToken
	} else {
		ident, authErr = h.verifier.VerifyToken(token)
	}

	sock, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("ws: accept")
		return auth.Identity{}, nil, nil, false
	}
	conn := NewConn(sock, r.RemoteAddr)

	if authErr != nil {
		log.Warn().Str("remote", r.RemoteAddr).Msg("ws: authentication failed")
		_ = sendMessage(r.Context(), conn, errorMessage("Authentication failed", http.StatusUnauthorized))
		_ = sock.Close(websocket.StatusPolicyViolation, "authentication failed")
		return auth.Identity{}, nil, nil, false
	}

	log.Info().Int64("user_id", ident.UserID).Str("remote", r.RemoteAddr).Msg("ws: authenticated")
	return ident, sock, conn, true
}

// ServeUpdates is the general-purpose endpoint. Clients authenticate via
// the token query parameter and then subscribe to boards explicitly:
//
//	ws://host/ws/updates?token=<access_token>
//	{"command": "subscribe", "data": {"board_id": 3}}
func (h *Handler) ServeUpdates(w http.ResponseWriter, r *http.Request) {
	ident, sock, conn, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	defer sock.CloseNow()

	ctx := r.Context()
	h.manager.Connect(conn, ident.UserID)
	defer h.manager.Disconnect(conn, ident.UserID)

	_ = sendMessage(ctx, conn, infoMessage("Connected to the updates stream"))

	h.run(ctx, sock, conn, ident, 0)
}

// ServeBoard is the board-scoped endpoint. It auto-subscribes to the one
// board in the path after a fresh access check and accepts only ping
// thereafter:
//
//	ws://host/ws/board/3?token=<access_token>
func (h *Handler) ServeBoard(w http.ResponseWriter, r *http.Request) {
	// IDs start at 1; zero is the run loop's general-endpoint sentinel
	// and must never arrive as a real board scope.
	boardID, err := strconv.ParseInt(chi.URLParam(r, "boardID"), 10, 64)
	if err != nil || boardID < 1 {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}

	ident, sock, conn, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	defer sock.CloseNow()

	ctx := r.Context()

	if _, hasAccess := h.boardRole(ctx, ident, boardID); !hasAccess {
		log.Warn().Int64("user_id", ident.UserID).Int64("board_id", boardID).Msg("ws: board endpoint access denied")
		_ = sendMessage(ctx, conn, errorMessage("Access denied to this board", http.StatusForbidden))
		_ = sock.Close(websocket.StatusPolicyViolation, "access denied")
		return
	}

	h.manager.Connect(conn, ident.UserID)
	h.manager.SetBoardAccess(ident.UserID, boardID, true)
	h.manager.Subscribe(ident.UserID, boardID)
	defer func() {
		h.manager.Disconnect(conn, ident.UserID)
		h.manager.Unsubscribe(ident.UserID, boardID)
	}()

	_ = sendMessage(ctx, conn, infoMessage(fmt.Sprintf("Connected to board %d updates stream", boardID)))

	h.run(ctx, sock, conn, ident, boardID)
}

// clientMessage is the inbound wire shape: a command ({"command", "data"})
// or a client-originated event ({"event", ...}).
type clientMessage struct {
	Command string `json:"command"`
	Event   string `json:"event"`
	Data    struct {
		BoardID int64 `json:"board_id"`
	} `json:"data"`
}

// run is the per-connection message loop shared by both endpoints.
// scopedBoard is zero for the general endpoint; when set, subscribe and
// unsubscribe commands are rejected (the board endpoint is ping-only).
//
// Failures are isolated to this connection: a panic while processing a
// message is recovered here, a best-effort 500 is sent, and the deferred
// teardown in the caller unregisters the connection. Nothing propagates
// to other connections or the registry tables.
func (h *Handler) run(ctx context.Context, sock *websocket.Conn, conn *Conn, ident auth.Identity, scopedBoard int64) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Any("panic", rec).Int64("user_id", ident.UserID).Msg("ws: session panic")
			_ = sendMessage(ctx, conn, errorMessage(fmt.Sprintf("Error: %v", rec), http.StatusInternalServerError))
		}
	}()

	for {
		_, raw, err := sock.Read(ctx)
		if err != nil {
			// Client disconnect or transport error; deferred cleanup
			// in the caller handles unregistration.
			log.Info().Int64("user_id", ident.UserID).Msg("ws: connection closed")
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = sendMessage(ctx, conn, errorMessage("Invalid message format", http.StatusBadRequest))
			continue
		}

		switch {
		case msg.Command != "":
			h.handleCommand(ctx, conn, ident, msg, scopedBoard)
		case msg.Event != "":
			h.handleClientEvent(ctx, conn, ident, msg.Event)
		default:
			_ = sendMessage(ctx, conn, errorMessage("Invalid message format", http.StatusBadRequest))
		}
	}
}

func (h *Handler) handleCommand(ctx context.Context, conn *Conn, ident auth.Identity, msg clientMessage, scopedBoard int64) {
	log.Info().Str("command", msg.Command).Int64("user_id", ident.UserID).Msg("ws: command received")

	if msg.Command == "ping" {
		_ = sendMessage(ctx, conn, pongMessage())
		return
	}

	// The board-scoped endpoint supports only ping.
	if scopedBoard != 0 {
		_ = sendMessage(ctx, conn, errorMessage(fmt.Sprintf("Unknown command: %s", msg.Command), http.StatusBadRequest))
		return
	}

	switch msg.Command {
	case "subscribe":
		if msg.Data.BoardID == 0 {
			log.Warn().Int64("user_id", ident.UserID).Msg("ws: subscribe without board_id")
			_ = sendMessage(ctx, conn, errorMessage("Missing board_id", http.StatusBadRequest))
			return
		}

		// Fresh access check against the domain; the manager's access
		// cache is populated from this result, never the other way
		// around.
		if _, hasAccess := h.boardRole(ctx, ident, msg.Data.BoardID); !hasAccess {
			log.Warn().Int64("user_id", ident.UserID).Int64("board_id", msg.Data.BoardID).Msg("ws: subscribe access denied")
			_ = sendMessage(ctx, conn, errorMessage("Access denied to this board", http.StatusForbidden))
			return
		}

		h.manager.SetBoardAccess(ident.UserID, msg.Data.BoardID, true)
		h.manager.Subscribe(ident.UserID, msg.Data.BoardID)
		_ = sendMessage(ctx, conn, infoMessage(fmt.Sprintf("Subscribed to board %d", msg.Data.BoardID)))

	case "unsubscribe":
		if msg.Data.BoardID == 0 {
			_ = sendMessage(ctx, conn, errorMessage("Missing board_id", http.StatusBadRequest))
			return
		}

		h.manager.Unsubscribe(ident.UserID, msg.Data.BoardID)
		_ = sendMessage(ctx, conn, infoMessage(fmt.Sprintf("Unsubscribed from board %d", msg.Data.BoardID)))

	default:
		log.Warn().Str("command", msg.Command).Int64("user_id", ident.UserID).Msg("ws: unknown command")
		_ = sendMessage(ctx, conn, errorMessage(fmt.Sprintf("Unknown command: %s", msg.Command), http.StatusBadRequest))
	}
}

// handleClientEvent acknowledges client-originated telemetry events.
// They are logged but not acted upon; server-side state only ever
// changes through REST mutations.
func (h *Handler) handleClientEvent(ctx context.Context, conn *Conn, ident auth.Identity, event string) {
	switch event {
	case "card_moved", "column_updated", "columns_reordered":
		log.Info().Str("event", event).Int64("user_id", ident.UserID).Msg("ws: client event received")
		_ = sendMessage(ctx, conn, infoMessage("Event received"))
	default:
		_ = sendMessage(ctx, conn, errorMessage(fmt.Sprintf("Unknown event: %s", event), http.StatusBadRequest))
	}
}

func sendMessage(ctx context.Context, conn *Conn, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ws.sendMessage: %w", err)
	}
	return conn.send(ctx, payload)
}
