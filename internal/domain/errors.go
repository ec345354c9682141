package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound  = errors.New("domain: not found")
	ErrConflict  = errors.New("domain: conflict")
	ErrForbidden = errors.New("domain: forbidden")

	// ErrNotMember is returned by GetMemberRole when the user has no
	// membership row on the board.
	ErrNotMember = errors.New("domain: not a board member")
)
