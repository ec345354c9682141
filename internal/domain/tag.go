package domain

import "context"

type Tag struct {
	ID      int64  `json:"id"`
	BoardID int64  `json:"board_id"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
}

type TagRepository interface {
	Create(ctx context.Context, t *Tag) error
	GetByID(ctx context.Context, id int64) (*Tag, error)
	ListByBoard(ctx context.Context, boardID int64) ([]*Tag, error)
	ListByCard(ctx context.Context, cardID int64) ([]*Tag, error)
	Update(ctx context.Context, t *Tag) error
	Delete(ctx context.Context, id int64) error

	AttachToCard(ctx context.Context, tagID, cardID int64) error
	DetachFromCard(ctx context.Context, tagID, cardID int64) error
}
