package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanvas/internal/domain"
	"github.com/gosuda/kanvas/internal/server/middleware"
)

type CreateBoardInput struct {
	Body struct {
		Title       string `json:"title" minLength:"1" maxLength:"255" doc:"Board title"`
		Description string `json:"description,omitempty" maxLength:"2000" doc:"Board description"`
	}
}

type CreateBoardOutput struct {
	Body *domain.Board
}

type ListBoardsInput struct{}

type ListBoardsOutput struct {
	Body []*domain.Board
}

type GetBoardInput struct {
	ID int64 `path:"id" doc:"Board ID"`
}

// ColumnDetail is a column with its cards, as rendered on a board view.
type ColumnDetail struct {
	*domain.Column
	Cards []*domain.Card `json:"cards"`
}

type BoardDetail struct {
	*domain.Board
	Columns []*ColumnDetail `json:"columns"`
}

type GetBoardOutput struct {
	Body *BoardDetail
}

type UpdateBoardInput struct {
	ID   int64 `path:"id" doc:"Board ID"`
	Body struct {
		Title       string  `json:"title,omitempty" maxLength:"255" doc:"Board title"`
		Description *string `json:"description,omitempty" maxLength:"2000" doc:"Board description"`
	}
}

type UpdateBoardOutput struct {
	Body *domain.Board
}

type DeleteBoardInput struct {
	ID int64 `path:"id" doc:"Board ID"`
}

func RegisterBoardRoutes(api huma.API, store DataStore, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/boards",
		Summary:     "Create a new board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*CreateBoardOutput, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}

		b := &domain.Board{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			OwnerID:     userID,
		}
		if err := store.Boards().Create(ctx, b); err != nil {
			return nil, huma.Error500InternalServerError("failed to create board", err)
		}

		return &CreateBoardOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards visible to the caller",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, _ *ListBoardsInput) (*ListBoardsOutput, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}

		var boards []*domain.Board
		if middleware.SuperuserFromContext(ctx) {
			boards, err = store.Boards().ListAll(ctx)
		} else {
			boards, err = store.Boards().ListByUser(ctx, userID)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list boards", err)
		}

		return &ListBoardsOutput{Body: boards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{id}",
		Summary:     "Get a board with its columns and cards",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.ID, domain.RoleMember); err != nil {
			return nil, err
		}

		board, err := store.Boards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to load board", err)
		}

		columns, err := store.Columns().ListByBoard(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load columns", err)
		}

		detail := &BoardDetail{Board: board, Columns: make([]*ColumnDetail, 0, len(columns))}
		for _, col := range columns {
			cards, err := store.Cards().ListByColumn(ctx, col.ID)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to load cards", err)
			}
			if cards == nil {
				cards = make([]*domain.Card, 0)
			}
			detail.Columns = append(detail.Columns, &ColumnDetail{Column: col, Cards: cards})
		}

		return &GetBoardOutput{Body: detail}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-board",
		Method:      http.MethodPut,
		Path:        "/boards/{id}",
		Summary:     "Update board title or description",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *UpdateBoardInput) (*UpdateBoardOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.ID, domain.RoleAdmin); err != nil {
			return nil, err
		}

		board, err := store.Boards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to load board", err)
		}

		if input.Body.Title != "" {
			board.Title = input.Body.Title
		}
		if input.Body.Description != nil {
			board.Description = *input.Body.Description
		}

		if err := store.Boards().Update(ctx, board); err != nil {
			return nil, huma.Error500InternalServerError("failed to update board", err)
		}

		notifier.NotifyBoardUpdated(board.ID, board)

		return &UpdateBoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-board",
		Method:      http.MethodDelete,
		Path:        "/boards/{id}",
		Summary:     "Delete a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *DeleteBoardInput) (*struct{}, error) {
		if _, _, err := requireBoardRole(ctx, store, input.ID, domain.RoleOwner); err != nil {
			return nil, err
		}

		if err := store.Boards().Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete board", err)
		}

		notifier.NotifyBoardDeleted(input.ID)

		return nil, nil
	})
}
