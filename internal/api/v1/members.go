package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanvas/internal/domain"
)

type ListMembersInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
}

type ListMembersOutput struct {
	Body []*domain.BoardMember
}

type AddMemberInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
	Body    struct {
		UserID int64       `json:"user_id,omitempty" doc:"User to add"`
		Email  string      `json:"email,omitempty" format:"email" doc:"Email of the user to add (alternative to user_id)"`
		Role   domain.Role `json:"role,omitempty" enum:"admin,member" doc:"Role to grant (default member)"`
	}
}

type AddMemberOutput struct {
	Body *domain.BoardMember
}

type RemoveMemberInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
	UserID  int64 `path:"userID" doc:"User to remove"`
}

type ChangeMemberRoleInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
	UserID  int64 `path:"userID" doc:"Member whose role changes"`
	Body    struct {
		Role domain.Role `json:"role" enum:"admin,member" doc:"New role"`
	}
}

type ChangeMemberRoleOutput struct {
	Body *domain.Membership
}

type TransferOwnershipInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
	Body    struct {
		UserID int64 `json:"user_id" doc:"Member receiving ownership"`
	}
}

type TransferOwnershipOutput struct {
	Body *domain.Board
}

func RegisterMemberRoutes(api huma.API, store DataStore, notifier Notifier, access AccessCache) {
	huma.Register(api, huma.Operation{
		OperationID: "list-board-members",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/members",
		Summary:     "List board members",
		Tags:        []string{"Members"},
	}, func(ctx context.Context, input *ListMembersInput) (*ListMembersOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		members, err := store.Boards().ListMembers(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list members", err)
		}

		return &ListMembersOutput{Body: members}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-board-member",
		Method:      http.MethodPost,
		Path:        "/boards/{boardID}/members",
		Summary:     "Add a user to a board",
		Tags:        []string{"Members"},
	}, func(ctx context.Context, input *AddMemberInput) (*AddMemberOutput, error) {
		_, callerRole, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleAdmin)
		if err != nil {
			return nil, err
		}

		role := input.Body.Role
		if role == "" {
			role = domain.RoleMember
		}
		if !callerRole.CanGrant(role) {
			return nil, huma.Error403Forbidden("cannot grant this role")
		}

		var user *domain.User
		switch {
		case input.Body.UserID != 0:
			user, err = store.Users().GetByID(ctx, input.Body.UserID)
		case input.Body.Email != "":
			user, err = store.Users().GetByEmail(ctx, input.Body.Email)
		default:
			return nil, huma.Error422UnprocessableEntity("user_id or email is required")
		}
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("user not found")
			}
			return nil, huma.Error500InternalServerError("failed to load user", err)
		}

		if err := store.Boards().AddMember(ctx, input.BoardID, user.ID, role); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("user is already a member")
			}
			return nil, huma.Error500InternalServerError("failed to add member", err)
		}

		notifier.NotifyUserAdded(input.BoardID, user)

		return &AddMemberOutput{Body: &domain.BoardMember{User: user, Role: role}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-board-member",
		Method:      http.MethodDelete,
		Path:        "/boards/{boardID}/members/{userID}",
		Summary:     "Remove a user from a board",
		Tags:        []string{"Members"},
	}, func(ctx context.Context, input *RemoveMemberInput) (*struct{}, error) {
		callerID, callerRole, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleMember)
		if err != nil {
			return nil, err
		}

		// Plain members may only remove themselves (leave the board).
		if input.UserID != callerID && !callerRole.AtLeast(domain.RoleAdmin) {
			return nil, huma.Error403Forbidden("insufficient role for this operation")
		}

		targetRole, err := store.Boards().GetMemberRole(ctx, input.BoardID, input.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotMember) {
				return nil, huma.Error404NotFound("user is not a member of this board")
			}
			return nil, huma.Error500InternalServerError("failed to resolve member role", err)
		}
		if targetRole == domain.RoleOwner {
			return nil, huma.Error403Forbidden("the owner cannot be removed; transfer ownership first")
		}
		if targetRole == domain.RoleAdmin && callerRole != domain.RoleOwner && input.UserID != callerID {
			return nil, huma.Error403Forbidden("only the owner can remove an admin")
		}

		if err := store.Boards().RemoveMember(ctx, input.BoardID, input.UserID); err != nil {
			return nil, huma.Error500InternalServerError("failed to remove member", err)
		}

		// Revoke cached access so the user cannot open new subscriptions;
		// an already standing subscription lives until their connection
		// drops or they unsubscribe.
		access.SetBoardAccess(input.UserID, input.BoardID, false)
		notifier.NotifyUserRemoved(input.BoardID, input.UserID)

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-member-role",
		Method:      http.MethodPut,
		Path:        "/boards/{boardID}/members/{userID}",
		Summary:     "Change a member's role",
		Tags:        []string{"Members"},
	}, func(ctx context.Context, input *ChangeMemberRoleInput) (*ChangeMemberRoleOutput, error) {
		_, callerRole, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleAdmin)
		if err != nil {
			return nil, err
		}

		if !callerRole.CanGrant(input.Body.Role) {
			return nil, huma.Error403Forbidden("cannot grant this role")
		}

		targetRole, err := store.Boards().GetMemberRole(ctx, input.BoardID, input.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotMember) {
				return nil, huma.Error404NotFound("user is not a member of this board")
			}
			return nil, huma.Error500InternalServerError("failed to resolve member role", err)
		}
		if targetRole == domain.RoleOwner {
			return nil, huma.Error403Forbidden("the owner's role cannot be changed; transfer ownership instead")
		}
		if targetRole == domain.RoleAdmin && callerRole != domain.RoleOwner {
			return nil, huma.Error403Forbidden("only the owner can change an admin's role")
		}

		if err := store.Boards().UpdateMemberRole(ctx, input.BoardID, input.UserID, input.Body.Role); err != nil {
			return nil, huma.Error500InternalServerError("failed to change role", err)
		}

		notifier.NotifyUserRoleChanged(input.BoardID, input.UserID, input.Body.Role)

		out := &ChangeMemberRoleOutput{}
		out.Body = &domain.Membership{BoardID: input.BoardID, UserID: input.UserID, Role: input.Body.Role}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transfer-board-ownership",
		Method:      http.MethodPost,
		Path:        "/boards/{boardID}/transfer-ownership",
		Summary:     "Transfer board ownership to another member",
		Tags:        []string{"Members"},
	}, func(ctx context.Context, input *TransferOwnershipInput) (*TransferOwnershipOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleOwner); err != nil {
			return nil, err
		}

		if _, err := store.Boards().GetMemberRole(ctx, input.BoardID, input.Body.UserID); err != nil {
			if errors.Is(err, domain.ErrNotMember) {
				return nil, huma.Error404NotFound("user is not a member of this board")
			}
			return nil, huma.Error500InternalServerError("failed to resolve member role", err)
		}

		board, err := store.Boards().GetByID(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load board", err)
		}

		prevOwnerID := board.OwnerID

		// The previous owner keeps working on the board as an admin.
		if err := store.Boards().UpdateMemberRole(ctx, input.BoardID, input.Body.UserID, domain.RoleOwner); err != nil {
			return nil, huma.Error500InternalServerError("failed to transfer ownership", err)
		}
		if err := store.Boards().UpdateMemberRole(ctx, input.BoardID, prevOwnerID, domain.RoleAdmin); err != nil {
			return nil, huma.Error500InternalServerError("failed to demote previous owner", err)
		}

		board.OwnerID = input.Body.UserID
		if err := store.Boards().Update(ctx, board); err != nil {
			return nil, huma.Error500InternalServerError("failed to update board", err)
		}

		notifier.NotifyUserRoleChanged(input.BoardID, input.Body.UserID, domain.RoleOwner)
		notifier.NotifyUserRoleChanged(input.BoardID, prevOwnerID, domain.RoleAdmin)

		return &TransferOwnershipOutput{Body: board}, nil
	})
}
