package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/kanvas/internal/domain"
)

type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO cards (column_id, title, description, color, position, completed, deadline, is_archived)
		 VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, 0),
		     (SELECT COALESCE(MAX(position), 0) + 1 FROM cards WHERE column_id = $1)),
		     $6, $7, $8)
		 RETURNING id, position, created_at, updated_at`,
		c.ColumnID, c.Title, nilIfEmpty(c.Description), nilIfEmpty(c.Color),
		c.Position, c.Completed, c.Deadline, c.Archived,
	).Scan(&c.ID, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}

	return nil
}

func (r *CardRepo) GetByID(ctx context.Context, id int64) (*domain.Card, error) {
	var c domain.Card
	var description, color *string

	err := r.pool.QueryRow(ctx,
		`SELECT id, column_id, title, description, color, position, completed, deadline, is_archived, created_at, updated_at
		 FROM cards WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ColumnID, &c.Title, &description, &color, &c.Position,
		&c.Completed, &c.Deadline, &c.Archived, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", err)
	}

	c.Description = derefStr(description)
	c.Color = derefStr(color)

	if err := r.loadRelations(ctx, []*domain.Card{&c}); err != nil {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *CardRepo) ListByColumn(ctx context.Context, columnID int64) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, column_id, title, description, color, position, completed, deadline, is_archived, created_at, updated_at
		 FROM cards WHERE column_id = $1
		 ORDER BY position, id`,
		columnID,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListByColumn: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		var c domain.Card
		var description, color *string

		err = rows.Scan(&c.ID, &c.ColumnID, &c.Title, &description, &color, &c.Position,
			&c.Completed, &c.Deadline, &c.Archived, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("cardRepo.ListByColumn: scan: %w", err)
		}

		c.Description = derefStr(description)
		c.Color = derefStr(color)
		cards = append(cards, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cardRepo.ListByColumn: rows: %w", err)
	}

	if err := r.loadRelations(ctx, cards); err != nil {
		return nil, fmt.Errorf("cardRepo.ListByColumn: %w", err)
	}

	return cards, nil
}

// loadRelations batch-fetches assignees and tags for the given cards.
func (r *CardRepo) loadRelations(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Card, len(cards))
	ids := make([]int64, 0, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT cu.card_id, u.id, u.username, u.email, u.is_superuser, u.created_at, u.updated_at
		 FROM card_users cu
		 JOIN users u ON u.id = cu.user_id
		 WHERE cu.card_id = ANY($1)
		 ORDER BY u.username`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("assignees: %w", err)
	}
	for rows.Next() {
		var cardID int64
		var u domain.User
		var email *string

		if err := rows.Scan(&cardID, &u.ID, &u.Username, &email, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("assignees: scan: %w", err)
		}

		u.Email = derefStr(email)
		byID[cardID].Assignees = append(byID[cardID].Assignees, &u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("assignees: rows: %w", err)
	}

	rows, err = r.pool.Query(ctx,
		`SELECT ct.card_id, t.id, t.board_id, t.name, t.color
		 FROM card_tags ct
		 JOIN tags t ON t.id = ct.tag_id
		 WHERE ct.card_id = ANY($1)
		 ORDER BY t.name`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cardID int64
		var t domain.Tag
		var color *string

		if err := rows.Scan(&cardID, &t.ID, &t.BoardID, &t.Name, &color); err != nil {
			return fmt.Errorf("tags: scan: %w", err)
		}

		t.Color = derefStr(color)
		byID[cardID].Tags = append(byID[cardID].Tags, &t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("tags: rows: %w", err)
	}

	return nil
}

func (r *CardRepo) Update(ctx context.Context, c *domain.Card) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cards SET title = $1, description = $2, color = $3, position = $4,
		        completed = $5, deadline = $6, is_archived = $7, updated_at = now()
		 WHERE id = $8`,
		c.Title, nilIfEmpty(c.Description), nilIfEmpty(c.Color), c.Position,
		c.Completed, c.Deadline, c.Archived, c.ID,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

// Move places the card into toColumnID at position, closing the gap in
// the source column and opening one in the destination.
func (r *CardRepo) Move(ctx context.Context, id, toColumnID int64, position int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cardRepo.Move: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var fromColumnID int64
	var fromPosition int
	err = tx.QueryRow(ctx,
		`SELECT column_id, position FROM cards WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&fromColumnID, &fromPosition)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("cardRepo.Move: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("cardRepo.Move: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM columns WHERE id = $1)`,
		toColumnID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("cardRepo.Move: %w", err)
	}
	if !exists {
		return fmt.Errorf("cardRepo.Move: destination column: %w", domain.ErrNotFound)
	}

	_, err = tx.Exec(ctx,
		`UPDATE cards SET position = position - 1
		 WHERE column_id = $1 AND position > $2`,
		fromColumnID, fromPosition,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Move: close gap: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE cards SET position = position + 1
		 WHERE column_id = $1 AND position >= $2`,
		toColumnID, position,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Move: open gap: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE cards SET column_id = $1, position = $2, updated_at = now() WHERE id = $3`,
		toColumnID, position, id,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Move: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cardRepo.Move: commit: %w", err)
	}

	return nil
}

func (r *CardRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CardRepo) AssignUser(ctx context.Context, cardID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO card_users (card_id, user_id) VALUES ($1, $2)`,
		cardID, userID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("cardRepo.AssignUser: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("cardRepo.AssignUser: %w", err)
	}

	return nil
}

func (r *CardRepo) UnassignUser(ctx context.Context, cardID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM card_users WHERE card_id = $1 AND user_id = $2`,
		cardID, userID,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.UnassignUser: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.UnassignUser: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CardRepo) BoardID(ctx context.Context, cardID int64) (int64, error) {
	var boardID int64

	err := r.pool.QueryRow(ctx,
		`SELECT c.board_id FROM columns c
		 JOIN cards ca ON ca.column_id = c.id
		 WHERE ca.id = $1`,
		cardID,
	).Scan(&boardID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("cardRepo.BoardID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("cardRepo.BoardID: %w", err)
	}

	return boardID, nil
}
