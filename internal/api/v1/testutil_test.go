package v1_test

import (
	"context"
	"sync"

	"github.com/gosuda/kanvas/internal/domain"
	"github.com/gosuda/kanvas/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject identity into context for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID int64) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	return ctx
}

func superuserCtx(userID int64) context.Context {
	ctx := userCtx(userID)
	ctx = context.WithValue(ctx, middleware.ContextKeySuperuser, true)
	return ctx
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	users    domain.UserRepository
	boards   domain.BoardRepository
	columns  domain.ColumnRepository
	cards    domain.CardRepository
	comments domain.CommentRepository
	tags     domain.TagRepository
}

func (m *mockDataStore) Users() domain.UserRepository       { return m.users }
func (m *mockDataStore) Boards() domain.BoardRepository     { return m.boards }
func (m *mockDataStore) Columns() domain.ColumnRepository   { return m.columns }
func (m *mockDataStore) Cards() domain.CardRepository       { return m.cards }
func (m *mockDataStore) Comments() domain.CommentRepository { return m.comments }
func (m *mockDataStore) Tags() domain.TagRepository         { return m.tags }

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	createFunc        func(ctx context.Context, u *domain.User) error
	getByIDFunc       func(ctx context.Context, id int64) (*domain.User, error)
	getByUsernameFunc func(ctx context.Context, username string) (*domain.User, error)
	getByEmailFunc    func(ctx context.Context, email string) (*domain.User, error)
	updateFunc        func(ctx context.Context, u *domain.User) error
	listFunc          func(ctx context.Context) ([]*domain.User, error)
	deleteFunc        func(ctx context.Context, id int64) error
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.createFunc(ctx, u)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.getByUsernameFunc(ctx, username)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockUserRepo) Update(ctx context.Context, u *domain.User) error {
	return m.updateFunc(ctx, u)
}

func (m *mockUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	return m.listFunc(ctx)
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock BoardRepository
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	createFunc           func(ctx context.Context, b *domain.Board) error
	getByIDFunc          func(ctx context.Context, id int64) (*domain.Board, error)
	listByUserFunc       func(ctx context.Context, userID int64) ([]*domain.Board, error)
	listAllFunc          func(ctx context.Context) ([]*domain.Board, error)
	updateFunc           func(ctx context.Context, b *domain.Board) error
	deleteFunc           func(ctx context.Context, id int64) error
	addMemberFunc        func(ctx context.Context, boardID, userID int64, role domain.Role) error
	removeMemberFunc     func(ctx context.Context, boardID, userID int64) error
	updateMemberRoleFunc func(ctx context.Context, boardID, userID int64, role domain.Role) error
	getMemberRoleFunc    func(ctx context.Context, boardID, userID int64) (domain.Role, error)
	listMembersFunc      func(ctx context.Context, boardID int64) ([]*domain.BoardMember, error)
}

func (m *mockBoardRepo) Create(ctx context.Context, b *domain.Board) error {
	return m.createFunc(ctx, b)
}

func (m *mockBoardRepo) GetByID(ctx context.Context, id int64) (*domain.Board, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBoardRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.Board, error) {
	return m.listByUserFunc(ctx, userID)
}

func (m *mockBoardRepo) ListAll(ctx context.Context) ([]*domain.Board, error) {
	return m.listAllFunc(ctx)
}

func (m *mockBoardRepo) Update(ctx context.Context, b *domain.Board) error {
	return m.updateFunc(ctx, b)
}

func (m *mockBoardRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockBoardRepo) AddMember(ctx context.Context, boardID, userID int64, role domain.Role) error {
	return m.addMemberFunc(ctx, boardID, userID, role)
}

func (m *mockBoardRepo) RemoveMember(ctx context.Context, boardID, userID int64) error {
	return m.removeMemberFunc(ctx, boardID, userID)
}

func (m *mockBoardRepo) UpdateMemberRole(ctx context.Context, boardID, userID int64, role domain.Role) error {
	return m.updateMemberRoleFunc(ctx, boardID, userID, role)
}

func (m *mockBoardRepo) GetMemberRole(ctx context.Context, boardID, userID int64) (domain.Role, error) {
	return m.getMemberRoleFunc(ctx, boardID, userID)
}

func (m *mockBoardRepo) ListMembers(ctx context.Context, boardID int64) ([]*domain.BoardMember, error) {
	return m.listMembersFunc(ctx, boardID)
}

// roleTable builds a mockBoardRepo whose GetMemberRole answers from a
// static boardID -> userID -> role table.
func roleTable(members map[int64]map[int64]domain.Role) *mockBoardRepo {
	return &mockBoardRepo{
		getMemberRoleFunc: func(_ context.Context, boardID, userID int64) (domain.Role, error) {
			role, ok := members[boardID][userID]
			if !ok {
				return "", domain.ErrNotMember
			}
			return role, nil
		},
	}
}

// ---------------------------------------------------------------------------
// Mock ColumnRepository
// ---------------------------------------------------------------------------

type mockColumnRepo struct {
	createFunc      func(ctx context.Context, c *domain.Column) error
	getByIDFunc     func(ctx context.Context, id int64) (*domain.Column, error)
	listByBoardFunc func(ctx context.Context, boardID int64) ([]*domain.Column, error)
	updateFunc      func(ctx context.Context, c *domain.Column) error
	reorderFunc     func(ctx context.Context, boardID int64, orderedIDs []int64) error
	deleteFunc      func(ctx context.Context, id int64) error
}

func (m *mockColumnRepo) Create(ctx context.Context, c *domain.Column) error {
	return m.createFunc(ctx, c)
}

func (m *mockColumnRepo) GetByID(ctx context.Context, id int64) (*domain.Column, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockColumnRepo) ListByBoard(ctx context.Context, boardID int64) ([]*domain.Column, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockColumnRepo) Update(ctx context.Context, c *domain.Column) error {
	return m.updateFunc(ctx, c)
}

func (m *mockColumnRepo) Reorder(ctx context.Context, boardID int64, orderedIDs []int64) error {
	return m.reorderFunc(ctx, boardID, orderedIDs)
}

func (m *mockColumnRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock CardRepository
// ---------------------------------------------------------------------------

type mockCardRepo struct {
	createFunc       func(ctx context.Context, c *domain.Card) error
	getByIDFunc      func(ctx context.Context, id int64) (*domain.Card, error)
	listByColumnFunc func(ctx context.Context, columnID int64) ([]*domain.Card, error)
	updateFunc       func(ctx context.Context, c *domain.Card) error
	moveFunc         func(ctx context.Context, id, toColumnID int64, position int) error
	deleteFunc       func(ctx context.Context, id int64) error
	assignUserFunc   func(ctx context.Context, cardID, userID int64) error
	unassignUserFunc func(ctx context.Context, cardID, userID int64) error
	boardIDFunc      func(ctx context.Context, cardID int64) (int64, error)
}

func (m *mockCardRepo) Create(ctx context.Context, c *domain.Card) error {
	return m.createFunc(ctx, c)
}

func (m *mockCardRepo) GetByID(ctx context.Context, id int64) (*domain.Card, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCardRepo) ListByColumn(ctx context.Context, columnID int64) ([]*domain.Card, error) {
	return m.listByColumnFunc(ctx, columnID)
}

func (m *mockCardRepo) Update(ctx context.Context, c *domain.Card) error {
	return m.updateFunc(ctx, c)
}

func (m *mockCardRepo) Move(ctx context.Context, id, toColumnID int64, position int) error {
	return m.moveFunc(ctx, id, toColumnID, position)
}

func (m *mockCardRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockCardRepo) AssignUser(ctx context.Context, cardID, userID int64) error {
	return m.assignUserFunc(ctx, cardID, userID)
}

func (m *mockCardRepo) UnassignUser(ctx context.Context, cardID, userID int64) error {
	return m.unassignUserFunc(ctx, cardID, userID)
}

func (m *mockCardRepo) BoardID(ctx context.Context, cardID int64) (int64, error) {
	return m.boardIDFunc(ctx, cardID)
}

// ---------------------------------------------------------------------------
// Mock CommentRepository
// ---------------------------------------------------------------------------

type mockCommentRepo struct {
	createFunc     func(ctx context.Context, c *domain.Comment) error
	getByIDFunc    func(ctx context.Context, id int64) (*domain.Comment, error)
	listByCardFunc func(ctx context.Context, cardID int64) ([]*domain.Comment, error)
	updateFunc     func(ctx context.Context, c *domain.Comment) error
	deleteFunc     func(ctx context.Context, id int64) error
}

func (m *mockCommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	return m.createFunc(ctx, c)
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCommentRepo) ListByCard(ctx context.Context, cardID int64) ([]*domain.Comment, error) {
	return m.listByCardFunc(ctx, cardID)
}

func (m *mockCommentRepo) Update(ctx context.Context, c *domain.Comment) error {
	return m.updateFunc(ctx, c)
}

func (m *mockCommentRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock TagRepository
// ---------------------------------------------------------------------------

type mockTagRepo struct {
	createFunc         func(ctx context.Context, t *domain.Tag) error
	getByIDFunc        func(ctx context.Context, id int64) (*domain.Tag, error)
	listByBoardFunc    func(ctx context.Context, boardID int64) ([]*domain.Tag, error)
	listByCardFunc     func(ctx context.Context, cardID int64) ([]*domain.Tag, error)
	updateFunc         func(ctx context.Context, t *domain.Tag) error
	deleteFunc         func(ctx context.Context, id int64) error
	attachToCardFunc   func(ctx context.Context, tagID, cardID int64) error
	detachFromCardFunc func(ctx context.Context, tagID, cardID int64) error
}

func (m *mockTagRepo) Create(ctx context.Context, t *domain.Tag) error {
	return m.createFunc(ctx, t)
}

func (m *mockTagRepo) GetByID(ctx context.Context, id int64) (*domain.Tag, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTagRepo) ListByBoard(ctx context.Context, boardID int64) ([]*domain.Tag, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockTagRepo) ListByCard(ctx context.Context, cardID int64) ([]*domain.Tag, error) {
	return m.listByCardFunc(ctx, cardID)
}

func (m *mockTagRepo) Update(ctx context.Context, t *domain.Tag) error {
	return m.updateFunc(ctx, t)
}

func (m *mockTagRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockTagRepo) AttachToCard(ctx context.Context, tagID, cardID int64) error {
	return m.attachToCardFunc(ctx, tagID, cardID)
}

func (m *mockTagRepo) DetachFromCard(ctx context.Context, tagID, cardID int64) error {
	return m.detachFromCardFunc(ctx, tagID, cardID)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, username, email, password string) (*domain.User, error)
	loginFunc        func(ctx context.Context, username, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
	getUserFunc      func(ctx context.Context, userID int64) (*domain.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	return m.registerFunc(ctx, username, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, username, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

func (m *mockAuthService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return m.getUserFunc(ctx, userID)
}

// ---------------------------------------------------------------------------
// Recording Notifier and AccessCache
// ---------------------------------------------------------------------------

type notifierCall struct {
	event   string
	boardID int64
	args    []any
}

// recordingNotifier records every notification for assertion.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *recordingNotifier) record(event string, boardID int64, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{event: event, boardID: boardID, args: args})
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.calls))
	for i, c := range n.calls {
		out[i] = c.event
	}
	return out
}

func (n *recordingNotifier) NotifyBoardUpdated(boardID int64, board *domain.Board) {
	n.record("board_updated", boardID, board)
}

func (n *recordingNotifier) NotifyBoardDeleted(boardID int64) {
	n.record("board_deleted", boardID)
}

func (n *recordingNotifier) NotifyColumnCreated(boardID int64, column *domain.Column) {
	n.record("column_created", boardID, column)
}

func (n *recordingNotifier) NotifyColumnUpdated(boardID int64, column *domain.Column) {
	n.record("column_updated", boardID, column)
}

func (n *recordingNotifier) NotifyColumnDeleted(boardID, columnID int64) {
	n.record("column_deleted", boardID, columnID)
}

func (n *recordingNotifier) NotifyColumnsReordered(boardID int64, columns []*domain.Column) {
	n.record("columns_reordered", boardID, columns)
}

func (n *recordingNotifier) NotifyCardCreated(boardID int64, card *domain.Card) {
	n.record("card_created", boardID, card)
}

func (n *recordingNotifier) NotifyCardUpdated(boardID int64, card *domain.Card) {
	n.record("card_updated", boardID, card)
}

func (n *recordingNotifier) NotifyCardDeleted(boardID, cardID int64) {
	n.record("card_deleted", boardID, cardID)
}

func (n *recordingNotifier) NotifyCardMoved(boardID int64, card *domain.Card, fromColumnID, toColumnID int64) {
	n.record("card_moved", boardID, card, fromColumnID, toColumnID)
}

func (n *recordingNotifier) NotifyCardDeadlineUpdated(boardID, cardID int64, deadline any) {
	n.record("card_deadline_updated", boardID, cardID, deadline)
}

func (n *recordingNotifier) NotifyUserAdded(boardID int64, user *domain.User) {
	n.record("user_added", boardID, user)
}

func (n *recordingNotifier) NotifyUserRemoved(boardID, userID int64) {
	n.record("user_removed", boardID, userID)
}

func (n *recordingNotifier) NotifyUserRoleChanged(boardID, userID int64, role domain.Role) {
	n.record("user_role_changed", boardID, userID, role)
}

func (n *recordingNotifier) NotifyCommentAdded(boardID, cardID int64, comment *domain.Comment) {
	n.record("comment_added", boardID, cardID, comment)
}

func (n *recordingNotifier) NotifyCommentUpdated(boardID, cardID int64, comment *domain.Comment) {
	n.record("comment_updated", boardID, cardID, comment)
}

func (n *recordingNotifier) NotifyCommentDeleted(boardID, cardID, commentID int64) {
	n.record("comment_deleted", boardID, cardID, commentID)
}

// recordingAccessCache records access revocations/grants.
type recordingAccessCache struct {
	mu    sync.Mutex
	calls []struct {
		UserID, BoardID int64
		HasAccess       bool
	}
}

func (c *recordingAccessCache) SetBoardAccess(userID, boardID int64, hasAccess bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, struct {
		UserID, BoardID int64
		HasAccess       bool
	}{userID, boardID, hasAccess})
}
