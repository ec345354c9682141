package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/kanvas/internal/domain"
)

type TagRepo struct {
	pool *pgxpool.Pool
}

func NewTagRepo(pool *pgxpool.Pool) *TagRepo {
	return &TagRepo{pool: pool}
}

func (r *TagRepo) Create(ctx context.Context, t *domain.Tag) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tags (board_id, name, color)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		t.BoardID, t.Name, nilIfEmpty(t.Color),
	).Scan(&t.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("tagRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("tagRepo.Create: %w", err)
	}

	return nil
}

func (r *TagRepo) GetByID(ctx context.Context, id int64) (*domain.Tag, error) {
	var t domain.Tag
	var color *string

	err := r.pool.QueryRow(ctx,
		`SELECT id, board_id, name, color FROM tags WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.BoardID, &t.Name, &color)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tagRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tagRepo.GetByID: %w", err)
	}

	t.Color = derefStr(color)

	return &t, nil
}

func (r *TagRepo) ListByBoard(ctx context.Context, boardID int64) ([]*domain.Tag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, board_id, name, color FROM tags
		 WHERE board_id = $1 ORDER BY name`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("tagRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	return scanTags(rows, "tagRepo.ListByBoard")
}

func (r *TagRepo) ListByCard(ctx context.Context, cardID int64) ([]*domain.Tag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.board_id, t.name, t.color
		 FROM card_tags ct
		 JOIN tags t ON t.id = ct.tag_id
		 WHERE ct.card_id = $1
		 ORDER BY t.name`,
		cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("tagRepo.ListByCard: %w", err)
	}
	defer rows.Close()

	return scanTags(rows, "tagRepo.ListByCard")
}

func (r *TagRepo) Update(ctx context.Context, t *domain.Tag) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tags SET name = $1, color = $2 WHERE id = $3`,
		t.Name, nilIfEmpty(t.Color), t.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("tagRepo.Update: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("tagRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tagRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TagRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("tagRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tagRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TagRepo) AttachToCard(ctx context.Context, tagID, cardID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO card_tags (card_id, tag_id) VALUES ($1, $2)`,
		cardID, tagID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("tagRepo.AttachToCard: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("tagRepo.AttachToCard: %w", err)
	}

	return nil
}

func (r *TagRepo) DetachFromCard(ctx context.Context, tagID, cardID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM card_tags WHERE card_id = $1 AND tag_id = $2`,
		cardID, tagID,
	)
	if err != nil {
		return fmt.Errorf("tagRepo.DetachFromCard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tagRepo.DetachFromCard: %w", domain.ErrNotFound)
	}

	return nil
}

func scanTags(rows pgx.Rows, caller string) ([]*domain.Tag, error) {
	var tags []*domain.Tag
	for rows.Next() {
		var t domain.Tag
		var color *string

		if err := rows.Scan(&t.ID, &t.BoardID, &t.Name, &color); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}

		t.Color = derefStr(color)
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return tags, nil
}
