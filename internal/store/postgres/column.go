package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/kanvas/internal/domain"
)

type ColumnRepo struct {
	pool *pgxpool.Pool
}

func NewColumnRepo(pool *pgxpool.Pool) *ColumnRepo {
	return &ColumnRepo{pool: pool}
}

// Create appends the column at the end of the board unless an explicit
// position was set.
func (r *ColumnRepo) Create(ctx context.Context, c *domain.Column) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO columns (board_id, title, position)
		 VALUES ($1, $2, COALESCE(NULLIF($3, 0),
		     (SELECT COALESCE(MAX(position), 0) + 1 FROM columns WHERE board_id = $1)))
		 RETURNING id, position, created_at, updated_at`,
		c.BoardID, c.Title, c.Position,
	).Scan(&c.ID, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("columnRepo.Create: %w", err)
	}

	return nil
}

func (r *ColumnRepo) GetByID(ctx context.Context, id int64) (*domain.Column, error) {
	var c domain.Column

	err := r.pool.QueryRow(ctx,
		`SELECT id, board_id, title, position, created_at, updated_at
		 FROM columns WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.BoardID, &c.Title, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("columnRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("columnRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *ColumnRepo) ListByBoard(ctx context.Context, boardID int64) ([]*domain.Column, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, board_id, title, position, created_at, updated_at
		 FROM columns WHERE board_id = $1
		 ORDER BY position, id`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("columnRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	var columns []*domain.Column
	for rows.Next() {
		var c domain.Column
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Title, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("columnRepo.ListByBoard: scan: %w", err)
		}
		columns = append(columns, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("columnRepo.ListByBoard: rows: %w", err)
	}

	return columns, nil
}

func (r *ColumnRepo) Update(ctx context.Context, c *domain.Column) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE columns SET title = $1, position = $2, updated_at = now()
		 WHERE id = $3`,
		c.Title, c.Position, c.ID,
	)
	if err != nil {
		return fmt.Errorf("columnRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("columnRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

// Reorder rewrites positions so orderedIDs appear in slice order. The
// list must cover exactly the board's columns; anything else aborts the
// transaction.
func (r *ColumnRepo) Reorder(ctx context.Context, boardID int64, orderedIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("columnRepo.Reorder: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM columns WHERE board_id = $1 AND id = ANY($2)`,
		boardID, orderedIDs,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("columnRepo.Reorder: %w", err)
	}
	if count != len(orderedIDs) {
		return fmt.Errorf("columnRepo.Reorder: ids do not match board: %w", domain.ErrConflict)
	}

	for i, id := range orderedIDs {
		_, err = tx.Exec(ctx,
			`UPDATE columns SET position = $1, updated_at = now() WHERE board_id = $2 AND id = $3`,
			i+1, boardID, id,
		)
		if err != nil {
			return fmt.Errorf("columnRepo.Reorder: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("columnRepo.Reorder: commit: %w", err)
	}

	return nil
}

func (r *ColumnRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM columns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("columnRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("columnRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
