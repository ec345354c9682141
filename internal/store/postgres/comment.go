package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/kanvas/internal/domain"
)

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO comments (card_id, user_id, text)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		c.CardID, c.UserID, c.Text,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("commentRepo.Create: %w", err)
	}

	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var c domain.Comment

	err := r.pool.QueryRow(ctx,
		`SELECT id, card_id, user_id, text, created_at, updated_at
		 FROM comments WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.CardID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("commentRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *CommentRepo) ListByCard(ctx context.Context, cardID int64) ([]*domain.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, card_id, user_id, text, created_at, updated_at
		 FROM comments WHERE card_id = $1
		 ORDER BY created_at, id
		 LIMIT 1000`,
		cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("commentRepo.ListByCard: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.CardID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("commentRepo.ListByCard: scan: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("commentRepo.ListByCard: rows: %w", err)
	}

	return comments, nil
}

func (r *CommentRepo) Update(ctx context.Context, c *domain.Comment) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE comments SET text = $1, updated_at = now() WHERE id = $2`,
		c.Text, c.ID,
	)
	if err != nil {
		return fmt.Errorf("commentRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commentRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CommentRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("commentRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commentRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
