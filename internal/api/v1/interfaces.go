package v1

import (
	"context"

	"github.com/gosuda/kanvas/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Boards() domain.BoardRepository
	Columns() domain.ColumnRepository
	Cards() domain.CardRepository
	Comments() domain.CommentRepository
	Tags() domain.TagRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
}

// Notifier fans out board events to live connections after a mutation
// has been committed. Calls are fire-and-forget; a failed or dropped
// notification never affects the REST response. *ws.Dispatcher
// satisfies this interface.
type Notifier interface {
	NotifyBoardUpdated(boardID int64, board *domain.Board)
	NotifyBoardDeleted(boardID int64)
	NotifyColumnCreated(boardID int64, column *domain.Column)
	NotifyColumnUpdated(boardID int64, column *domain.Column)
	NotifyColumnDeleted(boardID, columnID int64)
	NotifyColumnsReordered(boardID int64, columns []*domain.Column)
	NotifyCardCreated(boardID int64, card *domain.Card)
	NotifyCardUpdated(boardID int64, card *domain.Card)
	NotifyCardDeleted(boardID, cardID int64)
	NotifyCardMoved(boardID int64, card *domain.Card, fromColumnID, toColumnID int64)
	NotifyCardDeadlineUpdated(boardID, cardID int64, deadline any)
	NotifyUserAdded(boardID int64, user *domain.User)
	NotifyUserRemoved(boardID, userID int64)
	NotifyUserRoleChanged(boardID, userID int64, role domain.Role)
	NotifyCommentAdded(boardID, cardID int64, comment *domain.Comment)
	NotifyCommentUpdated(boardID, cardID int64, comment *domain.Comment)
	NotifyCommentDeleted(boardID, cardID, commentID int64)
}

// AccessCache is the live-connection access table. Membership mutations
// push revocations into it so a removed user cannot start new
// subscriptions against stale cached access. *ws.Manager satisfies
// this interface.
type AccessCache interface {
	SetBoardAccess(userID, boardID int64, hasAccess bool)
}
