package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/kanvas/internal/domain"
)

type Store struct {
	pool     *pgxpool.Pool
	users    *UserRepo
	boards   *BoardRepo
	columns  *ColumnRepo
	cards    *CardRepo
	comments *CommentRepo
	tags     *TagRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:     pool,
		users:    NewUserRepo(pool),
		boards:   NewBoardRepo(pool),
		columns:  NewColumnRepo(pool),
		cards:    NewCardRepo(pool),
		comments: NewCommentRepo(pool),
		tags:     NewTagRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Users() domain.UserRepository       { return s.users }
func (s *Store) Boards() domain.BoardRepository     { return s.boards }
func (s *Store) Columns() domain.ColumnRepository   { return s.columns }
func (s *Store) Cards() domain.CardRepository       { return s.cards }
func (s *Store) Comments() domain.CommentRepository { return s.comments }
func (s *Store) Tags() domain.TagRepository         { return s.tags }

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
