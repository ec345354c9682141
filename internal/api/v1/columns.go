package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanvas/internal/domain"
)

type CreateColumnInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
	Body    struct {
		Title    string `json:"title" minLength:"1" maxLength:"255" doc:"Column title"`
		Position int    `json:"position,omitempty" minimum:"0" doc:"Position (0 appends at the end)"`
	}
}

type CreateColumnOutput struct {
	Body *domain.Column
}

type ListColumnsInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
}

type ListColumnsOutput struct {
	Body []*domain.Column
}

type UpdateColumnInput struct {
	ID   int64 `path:"id" doc:"Column ID"`
	Body struct {
		Title    string `json:"title,omitempty" maxLength:"255" doc:"Column title"`
		Position *int   `json:"position,omitempty" minimum:"1" doc:"Position"`
	}
}

type UpdateColumnOutput struct {
	Body *domain.Column
}

type ReorderColumnsInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
	Body    struct {
		ColumnIDs []int64 `json:"column_ids" minItems:"1" doc:"Column IDs in the desired order"`
	}
}

type ReorderColumnsOutput struct {
	Body []*domain.Column
}

type DeleteColumnInput struct {
	ID int64 `path:"id" doc:"Column ID"`
}

// columnBoard resolves the board a column lives on, mapping a missing
// column to 404.
func columnBoard(ctx context.Context, store DataStore, columnID int64) (*domain.Column, error) {
	col, err := store.Columns().GetByID(ctx, columnID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("column not found")
		}
		return nil, huma.Error500InternalServerError("failed to load column", err)
	}
	return col, nil
}

func RegisterColumnRoutes(api huma.API, store DataStore, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-column",
		Method:      http.MethodPost,
		Path:        "/boards/{boardID}/columns",
		Summary:     "Create a column on a board",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *CreateColumnInput) (*CreateColumnOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		col := &domain.Column{
			BoardID:  input.BoardID,
			Title:    input.Body.Title,
			Position: input.Body.Position,
		}
		if err := store.Columns().Create(ctx, col); err != nil {
			return nil, huma.Error500InternalServerError("failed to create column", err)
		}

		notifier.NotifyColumnCreated(input.BoardID, col)

		return &CreateColumnOutput{Body: col}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-columns",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/columns",
		Summary:     "List a board's columns in position order",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *ListColumnsInput) (*ListColumnsOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		columns, err := store.Columns().ListByBoard(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list columns", err)
		}

		return &ListColumnsOutput{Body: columns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-column",
		Method:      http.MethodPut,
		Path:        "/columns/{id}",
		Summary:     "Update a column",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *UpdateColumnInput) (*UpdateColumnOutput, error) {
		col, err := columnBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, col.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		if input.Body.Title != "" {
			col.Title = input.Body.Title
		}
		if input.Body.Position != nil {
			col.Position = *input.Body.Position
		}

		if err := store.Columns().Update(ctx, col); err != nil {
			return nil, huma.Error500InternalServerError("failed to update column", err)
		}

		notifier.NotifyColumnUpdated(col.BoardID, col)

		return &UpdateColumnOutput{Body: col}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-columns",
		Method:      http.MethodPost,
		Path:        "/boards/{boardID}/columns/reorder",
		Summary:     "Reorder a board's columns",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *ReorderColumnsInput) (*ReorderColumnsOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		if err := store.Columns().Reorder(ctx, input.BoardID, input.Body.ColumnIDs); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error422UnprocessableEntity("column ids do not match the board")
			}
			return nil, huma.Error500InternalServerError("failed to reorder columns", err)
		}

		columns, err := store.Columns().ListByBoard(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list columns", err)
		}

		notifier.NotifyColumnsReordered(input.BoardID, columns)

		return &ReorderColumnsOutput{Body: columns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-column",
		Method:      http.MethodDelete,
		Path:        "/columns/{id}",
		Summary:     "Delete a column and its cards",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *DeleteColumnInput) (*struct{}, error) {
		col, err := columnBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, col.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		if err := store.Columns().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete column", err)
		}

		notifier.NotifyColumnDeleted(col.BoardID, col.ID)

		return nil, nil
	})
}
