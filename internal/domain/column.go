package domain

import (
	"context"
	"time"
)

type Column struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ColumnRepository interface {
	Create(ctx context.Context, c *Column) error
	GetByID(ctx context.Context, id int64) (*Column, error)
	ListByBoard(ctx context.Context, boardID int64) ([]*Column, error)
	Update(ctx context.Context, c *Column) error
	// Reorder rewrites positions for the given board so that orderedIDs
	// appear in slice order. IDs not belonging to the board are rejected.
	Reorder(ctx context.Context, boardID int64, orderedIDs []int64) error
	Delete(ctx context.Context, id int64) error
}
