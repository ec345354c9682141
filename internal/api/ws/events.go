package ws

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanvas/internal/domain"
)

// EventType is the closed tag identifying the shape and meaning of a
// message travelling over a board's update stream.
type EventType string

const (
	EventBoardUpdated        EventType = "board_updated"
	EventBoardDeleted        EventType = "board_deleted"
	EventColumnCreated       EventType = "column_created"
	EventColumnUpdated       EventType = "column_updated"
	EventColumnDeleted       EventType = "column_deleted"
	EventColumnsReordered    EventType = "columns_reordered"
	EventCardCreated         EventType = "card_created"
	EventCardUpdated         EventType = "card_updated"
	EventCardDeleted         EventType = "card_deleted"
	EventCardMoved           EventType = "card_moved"
	EventCardDeadlineUpdated EventType = "card_deadline_updated"
	EventUserAdded           EventType = "user_added"
	EventUserRemoved         EventType = "user_removed"
	EventUserRoleChanged     EventType = "user_role_changed"
	EventCommentAdded        EventType = "comment_added"
	EventCommentUpdated      EventType = "comment_updated"
	EventCommentDeleted      EventType = "comment_deleted"

	// Control events; these carry no domain payload and skip
	// structural validation.
	EventError EventType = "error"
	EventPing  EventType = "ping"
	EventPong  EventType = "pong"
)

// requiredFields maps each domain event type to the top-level keys its
// data must carry. A broadcast whose data is missing any required key is
// rejected before any socket write; silently fanning out a malformed
// payload to every client on a board would be far worse than dropping it.
// Event types absent from this table (ping/pong/error) skip validation.
var requiredFields = map[EventType][]string{
	EventBoardUpdated:        {"board_id", "board"},
	EventBoardDeleted:        {"board_id"},
	EventColumnCreated:       {"board_id", "column"},
	EventColumnUpdated:       {"board_id", "column"},
	EventColumnDeleted:       {"board_id", "column_id"},
	EventColumnsReordered:    {"columns"},
	EventCardCreated:         {"board_id", "card"},
	EventCardUpdated:         {"board_id", "card"},
	EventCardDeleted:         {"board_id", "card_id"},
	EventCardMoved:           {"board_id", "card", "from_column_id", "to_column_id"},
	EventCardDeadlineUpdated: {"board_id", "card_id", "deadline"},
	EventUserAdded:           {"board_id", "user"},
	EventUserRemoved:         {"board_id", "user_id"},
	EventUserRoleChanged:     {"board_id", "user_id", "role"},
	EventCommentAdded:        {"board_id", "card_id", "comment"},
	EventCommentUpdated:      {"board_id", "card_id", "comment"},
	EventCommentDeleted:      {"board_id", "card_id", "comment_id"},
}

// Message is the wire envelope for server-to-client traffic:
// {"event": <type>, "data": {...}}.
type Message struct {
	Event EventType      `json:"event"`
	Data  map[string]any `json:"data"`
}

// Validate checks the data mapping against the event type's required-key
// set. Every required key must be present; event types outside the table
// pass unconditionally.
func (m Message) Validate() error {
	fields, ok := requiredFields[m.Event]
	if !ok {
		return nil
	}
	for _, f := range fields {
		if _, present := m.Data[f]; !present {
			return fmt.Errorf("ws: missing required field %q for event %q", f, m.Event)
		}
	}
	return nil
}

// Payload is a typed event body. Exactly one implementation exists per
// domain event, its fields mirroring that event's required keys, so a
// structurally incomplete event cannot be constructed — the compiler
// enforces what the requiredFields table checks at runtime for messages
// arriving as raw maps (e.g. off the relay).
type Payload interface {
	eventType() EventType
}

type BoardUpdatedPayload struct {
	BoardID int64         `json:"board_id"`
	Board   *domain.Board `json:"board"`
}

type BoardDeletedPayload struct {
	BoardID int64 `json:"board_id"`
}

type ColumnCreatedPayload struct {
	BoardID int64          `json:"board_id"`
	Column  *domain.Column `json:"column"`
}

type ColumnUpdatedPayload struct {
	BoardID int64          `json:"board_id"`
	Column  *domain.Column `json:"column"`
}

type ColumnDeletedPayload struct {
	BoardID  int64 `json:"board_id"`
	ColumnID int64 `json:"column_id"`
}

type ColumnsReorderedPayload struct {
	Columns []*domain.Column `json:"columns"`
}

type CardCreatedPayload struct {
	BoardID int64        `json:"board_id"`
	Card    *domain.Card `json:"card"`
}

type CardUpdatedPayload struct {
	BoardID int64        `json:"board_id"`
	Card    *domain.Card `json:"card"`
}

type CardDeletedPayload struct {
	BoardID int64 `json:"board_id"`
	CardID  int64 `json:"card_id"`
}

type CardMovedPayload struct {
	BoardID      int64        `json:"board_id"`
	Card         *domain.Card `json:"card"`
	FromColumnID int64        `json:"from_column_id"`
	ToColumnID   int64        `json:"to_column_id"`
}

// Deadline is any so an explicit null reaches the wire when the
// deadline is cleared.
type CardDeadlineUpdatedPayload struct {
	BoardID  int64 `json:"board_id"`
	CardID   int64 `json:"card_id"`
	Deadline any   `json:"deadline"`
}

type UserAddedPayload struct {
	BoardID int64        `json:"board_id"`
	User    *domain.User `json:"user"`
}

type UserRemovedPayload struct {
	BoardID int64 `json:"board_id"`
	UserID  int64 `json:"user_id"`
}

type UserRoleChangedPayload struct {
	BoardID int64       `json:"board_id"`
	UserID  int64       `json:"user_id"`
	Role    domain.Role `json:"role"`
}

type CommentAddedPayload struct {
	BoardID int64           `json:"board_id"`
	CardID  int64           `json:"card_id"`
	Comment *domain.Comment `json:"comment"`
}

type CommentUpdatedPayload struct {
	BoardID int64           `json:"board_id"`
	CardID  int64           `json:"card_id"`
	Comment *domain.Comment `json:"comment"`
}

type CommentDeletedPayload struct {
	BoardID   int64 `json:"board_id"`
	CardID    int64 `json:"card_id"`
	CommentID int64 `json:"comment_id"`
}

func (BoardUpdatedPayload) eventType() EventType        { return EventBoardUpdated }
func (BoardDeletedPayload) eventType() EventType        { return EventBoardDeleted }
func (ColumnCreatedPayload) eventType() EventType       { return EventColumnCreated }
func (ColumnUpdatedPayload) eventType() EventType       { return EventColumnUpdated }
func (ColumnDeletedPayload) eventType() EventType       { return EventColumnDeleted }
func (ColumnsReorderedPayload) eventType() EventType    { return EventColumnsReordered }
func (CardCreatedPayload) eventType() EventType         { return EventCardCreated }
func (CardUpdatedPayload) eventType() EventType         { return EventCardUpdated }
func (CardDeletedPayload) eventType() EventType         { return EventCardDeleted }
func (CardMovedPayload) eventType() EventType           { return EventCardMoved }
func (CardDeadlineUpdatedPayload) eventType() EventType { return EventCardDeadlineUpdated }
func (UserAddedPayload) eventType() EventType           { return EventUserAdded }
func (UserRemovedPayload) eventType() EventType         { return EventUserRemoved }
func (UserRoleChangedPayload) eventType() EventType     { return EventUserRoleChanged }
func (CommentAddedPayload) eventType() EventType        { return EventCommentAdded }
func (CommentUpdatedPayload) eventType() EventType      { return EventCommentUpdated }
func (CommentDeletedPayload) eventType() EventType      { return EventCommentDeleted }

// newMessage wraps a typed payload in the wire envelope. The struct's
// json tags are the event's required keys, so the resulting data
// mapping always satisfies Validate; keys with null values (a cleared
// deadline) stay present, as required.
func newMessage(p Payload) Message {
	raw, err := json.Marshal(p)
	if err != nil {
		// Payload structs hold plain values; this is unreachable
		// short of a programmer putting a channel in one.
		log.Error().Err(err).Str("event", string(p.eventType())).Msg("ws: marshal payload")
		return Message{Event: p.eventType(), Data: map[string]any{}}
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Error().Err(err).Str("event", string(p.eventType())).Msg("ws: unmarshal payload")
		return Message{Event: p.eventType(), Data: map[string]any{}}
	}
	return Message{Event: p.eventType(), Data: data}
}

// errorMessage builds the coded error envelope sent to a single client:
// {"event":"error","data":{"message":...,"code":...}}.
func errorMessage(text string, code int) Message {
	return Message{
		Event: EventError,
		Data:  map[string]any{"message": text, "code": code},
	}
}

// infoMessage builds the informational ping envelope the protocol uses
// for welcomes, subscribe confirmations and client-event acks.
func infoMessage(text string) Message {
	return Message{
		Event: EventPing,
		Data:  map[string]any{"message": text},
	}
}

func pongMessage() Message {
	return Message{Event: EventPong, Data: map[string]any{}}
}
