package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanvas/internal/domain"
)

// EventsChannel is the Redis channel carrying board events between
// instances.
const EventsChannel = "kanvas:board-events"

// Broadcaster is the fan-out surface the dispatcher drives.
// *Manager satisfies it.
type Broadcaster interface {
	BroadcastToBoard(ctx context.Context, boardID int64, msg Message)
}

// Relay is an optional cross-instance message bus. *redis.PubSub
// satisfies it; a nil relay keeps fan-out local to this process.
type Relay interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// envelope wraps a board message for the relay so instances can skip
// events they originated themselves.
type envelope struct {
	Origin  uuid.UUID `json:"origin"`
	BoardID int64     `json:"board_id"`
	Message Message   `json:"message"`
}

type queued struct {
	boardID int64
	msg     Message
}

// Dispatcher is the typed construction side of the notification core.
// REST handlers call one wrapper per domain event after committing a
// mutation; the wrapper shapes the payload and enqueues it. A single
// background goroutine drains the queue into the Manager, so broadcast
// latency or failure never couples back into the REST response path.
// When the queue is full the event is dropped and logged rather than
// blocking the caller.
type Dispatcher struct {
	broadcaster Broadcaster
	relay       Relay // nil when Redis is not configured
	instanceID  uuid.UUID
	queue       chan queued
}

// NewDispatcher creates a dispatcher. Call Start before using the
// Notify wrappers.
func NewDispatcher(b Broadcaster, relay Relay, queueSize int) *Dispatcher {
	return &Dispatcher{
		broadcaster: b,
		relay:       relay,
		instanceID:  uuid.New(),
		queue:       make(chan queued, queueSize),
	}
}

// Start launches the drain goroutine and, when a relay is configured,
// the cross-instance subscription loop. Both exit when ctx is cancelled;
// events still queued at shutdown are dropped (fire-and-forget side
// channel, never part of the REST contract).
func (d *Dispatcher) Start(ctx context.Context) {
	go d.drain(ctx)
	if d.relay != nil {
		go d.relayLoop(ctx)
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-d.queue:
			d.broadcaster.BroadcastToBoard(ctx, item.boardID, item.msg)
			d.publish(ctx, item)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, item queued) {
	if d.relay == nil {
		return
	}

	payload, err := json.Marshal(envelope{Origin: d.instanceID, BoardID: item.boardID, Message: item.msg})
	if err != nil {
		log.Error().Err(err).Str("event", string(item.msg.Event)).Msg("ws: marshal relay envelope")
		return
	}
	if err := d.relay.Publish(ctx, EventsChannel, payload); err != nil {
		log.Error().Err(err).Str("event", string(item.msg.Event)).Msg("ws: relay publish")
	}
}

// relayLoop re-broadcasts events published by other instances to this
// instance's local subscribers.
func (d *Dispatcher) relayLoop(ctx context.Context) {
	messages, cleanup, err := d.relay.Subscribe(ctx, EventsChannel)
	if err != nil {
		log.Error().Err(err).Msg("ws: relay subscribe")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				log.Warn().Err(err).Msg("ws: relay envelope unmarshal")
				continue
			}
			if env.Origin == d.instanceID {
				continue
			}
			d.broadcaster.BroadcastToBoard(ctx, env.BoardID, env.Message)
		}
	}
}

// enqueue hands a message to the drain goroutine without blocking.
func (d *Dispatcher) enqueue(boardID int64, msg Message) {
	select {
	case d.queue <- queued{boardID: boardID, msg: msg}:
	default:
		log.Error().Str("event", string(msg.Event)).Int64("board_id", boardID).Msg("ws: event queue full, dropping")
	}
}

// One wrapper exists per domain event, each building that event's
// typed payload, so a call site cannot construct a structurally
// incomplete event.

func (d *Dispatcher) NotifyBoardUpdated(boardID int64, board *domain.Board) {
	d.enqueue(boardID, newMessage(BoardUpdatedPayload{BoardID: boardID, Board: board}))
}

func (d *Dispatcher) NotifyBoardDeleted(boardID int64) {
	d.enqueue(boardID, newMessage(BoardDeletedPayload{BoardID: boardID}))
}

func (d *Dispatcher) NotifyColumnCreated(boardID int64, column *domain.Column) {
	d.enqueue(boardID, newMessage(ColumnCreatedPayload{BoardID: boardID, Column: column}))
}

func (d *Dispatcher) NotifyColumnUpdated(boardID int64, column *domain.Column) {
	d.enqueue(boardID, newMessage(ColumnUpdatedPayload{BoardID: boardID, Column: column}))
}

func (d *Dispatcher) NotifyColumnDeleted(boardID, columnID int64) {
	d.enqueue(boardID, newMessage(ColumnDeletedPayload{BoardID: boardID, ColumnID: columnID}))
}

func (d *Dispatcher) NotifyColumnsReordered(boardID int64, columns []*domain.Column) {
	d.enqueue(boardID, newMessage(ColumnsReorderedPayload{Columns: columns}))
}

func (d *Dispatcher) NotifyCardCreated(boardID int64, card *domain.Card) {
	d.enqueue(boardID, newMessage(CardCreatedPayload{BoardID: boardID, Card: card}))
}

func (d *Dispatcher) NotifyCardUpdated(boardID int64, card *domain.Card) {
	d.enqueue(boardID, newMessage(CardUpdatedPayload{BoardID: boardID, Card: card}))
}

func (d *Dispatcher) NotifyCardDeleted(boardID, cardID int64) {
	d.enqueue(boardID, newMessage(CardDeletedPayload{BoardID: boardID, CardID: cardID}))
}

func (d *Dispatcher) NotifyCardMoved(boardID int64, card *domain.Card, fromColumnID, toColumnID int64) {
	d.enqueue(boardID, newMessage(CardMovedPayload{
		BoardID:      boardID,
		Card:         card,
		FromColumnID: fromColumnID,
		ToColumnID:   toColumnID,
	}))
}

func (d *Dispatcher) NotifyCardDeadlineUpdated(boardID, cardID int64, deadline any) {
	d.enqueue(boardID, newMessage(CardDeadlineUpdatedPayload{BoardID: boardID, CardID: cardID, Deadline: deadline}))
}

func (d *Dispatcher) NotifyUserAdded(boardID int64, user *domain.User) {
	d.enqueue(boardID, newMessage(UserAddedPayload{BoardID: boardID, User: user}))
}

func (d *Dispatcher) NotifyUserRemoved(boardID, userID int64) {
	d.enqueue(boardID, newMessage(UserRemovedPayload{BoardID: boardID, UserID: userID}))
}

func (d *Dispatcher) NotifyUserRoleChanged(boardID, userID int64, role domain.Role) {
	d.enqueue(boardID, newMessage(UserRoleChangedPayload{BoardID: boardID, UserID: userID, Role: role}))
}

func (d *Dispatcher) NotifyCommentAdded(boardID, cardID int64, comment *domain.Comment) {
	d.enqueue(boardID, newMessage(CommentAddedPayload{BoardID: boardID, CardID: cardID, Comment: comment}))
}

func (d *Dispatcher) NotifyCommentUpdated(boardID, cardID int64, comment *domain.Comment) {
	d.enqueue(boardID, newMessage(CommentUpdatedPayload{BoardID: boardID, CardID: cardID, Comment: comment}))
}

func (d *Dispatcher) NotifyCommentDeleted(boardID, cardID, commentID int64) {
	d.enqueue(boardID, newMessage(CommentDeletedPayload{BoardID: boardID, CardID: cardID, CommentID: commentID}))
}
