package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// CanGrant checks whether a holder of this role may assign target to
// another member. Members grant nothing; admins may grant member but
// never touch admins or the owner; the owner may grant anything below
// owner (ownership moves only via TransferOwnership).
func (r Role) CanGrant(target Role) bool {
	switch r {
	case RoleOwner:
		return target != RoleOwner
	case RoleAdmin:
		return target == RoleMember
	default:
		return false
	}
}

// AtLeast reports whether the role ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	rank := map[Role]int{RoleMember: 1, RoleAdmin: 2, RoleOwner: 3}
	return rank[r] >= rank[other]
}

type Board struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership is one row of the board_users association table.
type Membership struct {
	BoardID int64 `json:"board_id"`
	UserID  int64 `json:"user_id"`
	Role    Role  `json:"role"`
}

// BoardMember is a membership joined with the user it belongs to,
// as returned to API clients.
type BoardMember struct {
	User *User `json:"user"`
	Role Role  `json:"role"`
}

type BoardRepository interface {
	Create(ctx context.Context, b *Board) error
	GetByID(ctx context.Context, id int64) (*Board, error)
	ListByUser(ctx context.Context, userID int64) ([]*Board, error)
	ListAll(ctx context.Context) ([]*Board, error)
	Update(ctx context.Context, b *Board) error
	Delete(ctx context.Context, id int64) error

	// Membership
	AddMember(ctx context.Context, boardID, userID int64, role Role) error
	RemoveMember(ctx context.Context, boardID, userID int64) error
	UpdateMemberRole(ctx context.Context, boardID, userID int64, role Role) error
	GetMemberRole(ctx context.Context, boardID, userID int64) (Role, error)
	ListMembers(ctx context.Context, boardID int64) ([]*BoardMember, error)
}
