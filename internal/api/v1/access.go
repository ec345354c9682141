package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanvas/internal/domain"
	"github.com/gosuda/kanvas/internal/server/middleware"
)

// caller resolves the authenticated user from the request context.
func caller(ctx context.Context) (int64, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return 0, huma.Error401Unauthorized("authentication required")
	}
	return userID, nil
}

// requireBoardRole resolves the caller's role on a board and checks it
// against min. Superusers always resolve to owner. The returned error
// is a ready-to-return huma error.
func requireBoardRole(ctx context.Context, store DataStore, boardID int64, min domain.Role) (int64, domain.Role, error) {
	userID, err := caller(ctx)
	if err != nil {
		return 0, "", err
	}

	if middleware.SuperuserFromContext(ctx) {
		return userID, domain.RoleOwner, nil
	}

	role, err := store.Boards().GetMemberRole(ctx, boardID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotMember) || errors.Is(err, domain.ErrNotFound) {
			return 0, "", huma.Error403Forbidden("not a member of this board")
		}
		return 0, "", huma.Error500InternalServerError("failed to resolve board role", err)
	}

	if !role.AtLeast(min) {
		return 0, "", huma.Error403Forbidden("insufficient role for this operation")
	}

	return userID, role, nil
}

// cardBoard resolves the board a card lives on, mapping a missing card
// to 404.
func cardBoard(ctx context.Context, store DataStore, cardID int64) (int64, error) {
	boardID, err := store.Cards().BoardID(ctx, cardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, huma.Error404NotFound("card not found")
		}
		return 0, huma.Error500InternalServerError("failed to resolve card", err)
	}
	return boardID, nil
}
