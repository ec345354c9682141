package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/kanvas/internal/domain"
)

type BoardRepo struct {
	pool *pgxpool.Pool
}

func NewBoardRepo(pool *pgxpool.Pool) *BoardRepo {
	return &BoardRepo{pool: pool}
}

// Create inserts the board and the owner's membership row in one
// transaction so a board can never exist without an owner member.
func (r *BoardRepo) Create(ctx context.Context, b *domain.Board) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("boardRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO boards (title, description, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		b.Title, nilIfEmpty(b.Description), b.OwnerID,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("boardRepo.Create: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO board_users (board_id, user_id, role) VALUES ($1, $2, $3)`,
		b.ID, b.OwnerID, domain.RoleOwner,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.Create: owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("boardRepo.Create: commit: %w", err)
	}

	return nil
}

func (r *BoardRepo) GetByID(ctx context.Context, id int64) (*domain.Board, error) {
	var b domain.Board
	var description *string

	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, owner_id, created_at, updated_at
		 FROM boards WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Title, &description, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", err)
	}

	b.Description = derefStr(description)

	return &b, nil
}

func (r *BoardRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.Board, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.title, b.description, b.owner_id, b.created_at, b.updated_at
		 FROM boards b
		 JOIN board_users bu ON bu.board_id = b.id
		 WHERE bu.user_id = $1
		 ORDER BY b.created_at, b.id
		 LIMIT 500`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("boardRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	return scanBoards(rows, "boardRepo.ListByUser")
}

func (r *BoardRepo) ListAll(ctx context.Context) ([]*domain.Board, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, owner_id, created_at, updated_at
		 FROM boards ORDER BY created_at, id
		 LIMIT 500`,
	)
	if err != nil {
		return nil, fmt.Errorf("boardRepo.ListAll: %w", err)
	}
	defer rows.Close()

	return scanBoards(rows, "boardRepo.ListAll")
}

func (r *BoardRepo) Update(ctx context.Context, b *domain.Board) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE boards SET title = $1, description = $2, owner_id = $3, updated_at = now()
		 WHERE id = $4`,
		b.Title, nilIfEmpty(b.Description), b.OwnerID, b.ID,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *BoardRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("boardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

// --- Membership ---

func (r *BoardRepo) AddMember(ctx context.Context, boardID, userID int64, role domain.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO board_users (board_id, user_id, role) VALUES ($1, $2, $3)`,
		boardID, userID, role,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("boardRepo.AddMember: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("boardRepo.AddMember: %w", err)
	}

	return nil
}

func (r *BoardRepo) RemoveMember(ctx context.Context, boardID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM board_users WHERE board_id = $1 AND user_id = $2`,
		boardID, userID,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.RemoveMember: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.RemoveMember: %w", domain.ErrNotMember)
	}

	return nil
}

func (r *BoardRepo) UpdateMemberRole(ctx context.Context, boardID, userID int64, role domain.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE board_users SET role = $1 WHERE board_id = $2 AND user_id = $3`,
		role, boardID, userID,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.UpdateMemberRole: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.UpdateMemberRole: %w", domain.ErrNotMember)
	}

	return nil
}

func (r *BoardRepo) GetMemberRole(ctx context.Context, boardID, userID int64) (domain.Role, error) {
	var role domain.Role

	err := r.pool.QueryRow(ctx,
		`SELECT role FROM board_users WHERE board_id = $1 AND user_id = $2`,
		boardID, userID,
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("boardRepo.GetMemberRole: %w", domain.ErrNotMember)
	}
	if err != nil {
		return "", fmt.Errorf("boardRepo.GetMemberRole: %w", err)
	}

	return role, nil
}

func (r *BoardRepo) ListMembers(ctx context.Context, boardID int64) ([]*domain.BoardMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, u.email, u.is_superuser, u.created_at, u.updated_at, bu.role
		 FROM board_users bu
		 JOIN users u ON u.id = bu.user_id
		 WHERE bu.board_id = $1
		 ORDER BY u.username`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("boardRepo.ListMembers: %w", err)
	}
	defer rows.Close()

	var members []*domain.BoardMember
	for rows.Next() {
		var m domain.BoardMember
		var u domain.User
		var email *string

		err = rows.Scan(&u.ID, &u.Username, &email, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt, &m.Role)
		if err != nil {
			return nil, fmt.Errorf("boardRepo.ListMembers: scan: %w", err)
		}

		u.Email = derefStr(email)
		m.User = &u
		members = append(members, &m)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("boardRepo.ListMembers: rows: %w", err)
	}

	return members, nil
}

func scanBoards(rows pgx.Rows, caller string) ([]*domain.Board, error) {
	var boards []*domain.Board
	for rows.Next() {
		var b domain.Board
		var description *string

		if err := rows.Scan(&b.ID, &b.Title, &description, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}

		b.Description = derefStr(description)
		boards = append(boards, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return boards, nil
}
