package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanvas/internal/auth"
	"github.com/gosuda/kanvas/internal/domain"
	"github.com/gosuda/kanvas/internal/server/middleware"
)

type ListUsersInput struct{}

type ListUsersOutput struct {
	Body []*domain.User
}

type UpdateUserInput struct {
	UserID int64 `path:"userID" doc:"User ID"`
	Body   struct {
		Username string `json:"username,omitempty" doc:"New username"`
		Email    string `json:"email,omitempty" format:"email" doc:"New email"`
		Password string `json:"password,omitempty" minLength:"8" doc:"New password"`
	}
}

type UpdateUserOutput struct {
	Body *domain.User
}

type DeleteUserInput struct {
	UserID int64 `path:"userID" doc:"User ID"`
}

func RegisterUserRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *ListUsersInput) (*ListUsersOutput, error) {
		if _, err := caller(ctx); err != nil {
			return nil, err
		}

		users, err := store.Users().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list users", err)
		}

		return &ListUsersOutput{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPut,
		Path:        "/users/{userID}",
		Summary:     "Update a user's profile",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UpdateUserInput) (*UpdateUserOutput, error) {
		callerID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		if input.UserID != callerID && !middleware.SuperuserFromContext(ctx) {
			return nil, huma.Error403Forbidden("users may only update their own profile")
		}

		user, err := store.Users().GetByID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("user not found")
			}
			return nil, huma.Error500InternalServerError("failed to load user", err)
		}

		if input.Body.Username != "" {
			user.Username = input.Body.Username
		}
		if input.Body.Email != "" {
			user.Email = input.Body.Email
		}
		if input.Body.Password != "" {
			hash, err := auth.HashPassword(input.Body.Password)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to hash password", err)
			}
			user.PasswordHash = hash
		}
		user.UpdatedAt = time.Now()

		if err := store.Users().Update(ctx, user); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("username or email is already taken")
			}
			return nil, huma.Error500InternalServerError("failed to update user", err)
		}

		return &UpdateUserOutput{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-user",
		Method:      http.MethodDelete,
		Path:        "/users/{userID}",
		Summary:     "Delete a user account",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *DeleteUserInput) (*struct{}, error) {
		callerID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		if input.UserID != callerID && !middleware.SuperuserFromContext(ctx) {
			return nil, huma.Error403Forbidden("users may only delete their own account")
		}

		if err := store.Users().Delete(ctx, input.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("user not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete user", err)
		}

		return nil, nil
	})
}
