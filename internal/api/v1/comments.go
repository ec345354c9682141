package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanvas/internal/domain"
	"github.com/gosuda/kanvas/internal/server/middleware"
)

type CreateCommentInput struct {
	CardID int64 `path:"cardID" doc:"Card ID"`
	Body   struct {
		Text string `json:"text" minLength:"1" maxLength:"5000" doc:"Comment text"`
	}
}

type CreateCommentOutput struct {
	Body *domain.Comment
}

type ListCommentsInput struct {
	CardID int64 `path:"cardID" doc:"Card ID"`
}

type ListCommentsOutput struct {
	Body []*domain.Comment
}

type UpdateCommentInput struct {
	ID   int64 `path:"id" doc:"Comment ID"`
	Body struct {
		Text string `json:"text" minLength:"1" maxLength:"5000" doc:"Comment text"`
	}
}

type UpdateCommentOutput struct {
	Body *domain.Comment
}

type DeleteCommentInput struct {
	ID int64 `path:"id" doc:"Comment ID"`
}

// loadComment fetches a comment and the board it belongs to, checking
// the caller is at least a member there.
func loadComment(ctx context.Context, store DataStore, commentID int64) (*domain.Comment, int64, domain.Role, int64, error) {
	comment, err := store.Comments().GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, "", 0, huma.Error404NotFound("comment not found")
		}
		return nil, 0, "", 0, huma.Error500InternalServerError("failed to load comment", err)
	}

	boardID, err := cardBoard(ctx, store, comment.CardID)
	if err != nil {
		return nil, 0, "", 0, err
	}

	callerID, role, err := requireBoardRole(ctx, store, boardID, domain.RoleMember)
	if err != nil {
		return nil, 0, "", 0, err
	}

	return comment, boardID, role, callerID, nil
}

func RegisterCommentRoutes(api huma.API, store DataStore, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-comment",
		Method:      http.MethodPost,
		Path:        "/cards/{cardID}/comments",
		Summary:     "Comment on a card",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *CreateCommentInput) (*CreateCommentOutput, error) {
		boardID, err := cardBoard(ctx, store, input.CardID)
		if err != nil {
			return nil, err
		}
		userID, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember)
		if err != nil {
			return nil, err
		}

		comment := &domain.Comment{
			CardID: input.CardID,
			UserID: userID,
			Text:   input.Body.Text,
		}
		if err := store.Comments().Create(ctx, comment); err != nil {
			return nil, huma.Error500InternalServerError("failed to create comment", err)
		}

		notifier.NotifyCommentAdded(boardID, input.CardID, comment)

		return &CreateCommentOutput{Body: comment}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/cards/{cardID}/comments",
		Summary:     "List a card's comments",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *ListCommentsInput) (*ListCommentsOutput, error) {
		boardID, err := cardBoard(ctx, store, input.CardID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		comments, err := store.Comments().ListByCard(ctx, input.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list comments", err)
		}

		return &ListCommentsOutput{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-comment",
		Method:      http.MethodPut,
		Path:        "/comments/{id}",
		Summary:     "Edit a comment",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *UpdateCommentInput) (*UpdateCommentOutput, error) {
		comment, boardID, _, callerID, err := loadComment(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		// Only the author can edit the text.
		if comment.UserID != callerID && !middleware.SuperuserFromContext(ctx) {
			return nil, huma.Error403Forbidden("only the author can edit a comment")
		}

		comment.Text = input.Body.Text
		if err := store.Comments().Update(ctx, comment); err != nil {
			return nil, huma.Error500InternalServerError("failed to update comment", err)
		}

		notifier.NotifyCommentUpdated(boardID, comment.CardID, comment)

		return &UpdateCommentOutput{Body: comment}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-comment",
		Method:      http.MethodDelete,
		Path:        "/comments/{id}",
		Summary:     "Delete a comment",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *DeleteCommentInput) (*struct{}, error) {
		comment, boardID, role, callerID, err := loadComment(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		// The author or a board admin may delete.
		if comment.UserID != callerID && !role.AtLeast(domain.RoleAdmin) {
			return nil, huma.Error403Forbidden("only the author or an admin can delete a comment")
		}

		if err := store.Comments().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete comment", err)
		}

		notifier.NotifyCommentDeleted(boardID, comment.CardID, comment.ID)

		return nil, nil
	})
}
