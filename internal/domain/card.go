package domain

import (
	"context"
	"time"
)

type Card struct {
	ID          int64      `json:"id"`
	ColumnID    int64      `json:"column_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Color       string     `json:"color,omitempty"` // hex, e.g. #RRGGBB
	Position    int        `json:"position"`
	Completed   bool       `json:"completed"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Archived    bool       `json:"is_archived"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Assignees []*User `json:"assigned_users,omitempty"`
	Tags      []*Tag  `json:"tags,omitempty"`
}

type CardRepository interface {
	Create(ctx context.Context, c *Card) error
	GetByID(ctx context.Context, id int64) (*Card, error)
	ListByColumn(ctx context.Context, columnID int64) ([]*Card, error)
	Update(ctx context.Context, c *Card) error
	// Move places the card into toColumnID at position, shifting
	// positions of the other cards in both columns.
	Move(ctx context.Context, id, toColumnID int64, position int) error
	Delete(ctx context.Context, id int64) error

	AssignUser(ctx context.Context, cardID, userID int64) error
	UnassignUser(ctx context.Context, cardID, userID int64) error

	// BoardID resolves the board a card belongs to via its column.
	BoardID(ctx context.Context, cardID int64) (int64, error)
}
