package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanvas/internal/domain"
)

type CreateCardInput struct {
	ColumnID int64 `path:"columnID" doc:"Column ID"`
	Body     struct {
		Title       string     `json:"title" minLength:"1" maxLength:"500" doc:"Card title"`
		Description string     `json:"description,omitempty" doc:"Card description"`
		Color       string     `json:"color,omitempty" pattern:"^#[0-9a-fA-F]{6}$" doc:"Card color as #RRGGBB"`
		Position    int        `json:"position,omitempty" minimum:"0" doc:"Position (0 appends at the end)"`
		Deadline    *time.Time `json:"deadline,omitempty" doc:"Deadline"`
	}
}

type CreateCardOutput struct {
	Body *domain.Card
}

type GetCardInput struct {
	ID int64 `path:"id" doc:"Card ID"`
}

type GetCardOutput struct {
	Body *domain.Card
}

type UpdateCardInput struct {
	ID   int64 `path:"id" doc:"Card ID"`
	Body struct {
		Title       string  `json:"title,omitempty" maxLength:"500" doc:"Card title"`
		Description *string `json:"description,omitempty" doc:"Card description"`
		Color       *string `json:"color,omitempty" doc:"Card color as #RRGGBB, empty clears"`
		Completed   *bool   `json:"completed,omitempty" doc:"Completion state"`
		Archived    *bool   `json:"is_archived,omitempty" doc:"Archive state"`
	}
}

type UpdateCardOutput struct {
	Body *domain.Card
}

type MoveCardInput struct {
	ID   int64 `path:"id" doc:"Card ID"`
	Body struct {
		ColumnID int64 `json:"column_id" doc:"Destination column"`
		Position int   `json:"position" minimum:"1" doc:"Position in the destination column"`
	}
}

type MoveCardOutput struct {
	Body *domain.Card
}

type UpdateCardDeadlineInput struct {
	ID   int64 `path:"id" doc:"Card ID"`
	Body struct {
		Deadline *time.Time `json:"deadline" doc:"New deadline, null clears it"`
	}
}

type UpdateCardDeadlineOutput struct {
	Body *domain.Card
}

type DeleteCardInput struct {
	ID int64 `path:"id" doc:"Card ID"`
}

type CardAssigneeInput struct {
	ID     int64 `path:"id" doc:"Card ID"`
	UserID int64 `path:"userID" doc:"User ID"`
}

type CardAssigneeOutput struct {
	Body *domain.Card
}

func RegisterCardRoutes(api huma.API, store DataStore, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-card",
		Method:      http.MethodPost,
		Path:        "/columns/{columnID}/cards",
		Summary:     "Create a card in a column",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CreateCardInput) (*CreateCardOutput, error) {
		col, err := columnBoard(ctx, store, input.ColumnID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, col.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		card := &domain.Card{
			ColumnID:    input.ColumnID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Color:       input.Body.Color,
			Position:    input.Body.Position,
			Deadline:    input.Body.Deadline,
		}
		if err := store.Cards().Create(ctx, card); err != nil {
			return nil, huma.Error500InternalServerError("failed to create card", err)
		}

		notifier.NotifyCardCreated(col.BoardID, card)

		return &CreateCardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-card",
		Method:      http.MethodGet,
		Path:        "/cards/{id}",
		Summary:     "Get a card with assignees and tags",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *GetCardInput) (*GetCardOutput, error) {
		boardID, err := cardBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		card, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load card", err)
		}

		return &GetCardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-card",
		Method:      http.MethodPut,
		Path:        "/cards/{id}",
		Summary:     "Update a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *UpdateCardInput) (*UpdateCardOutput, error) {
		boardID, err := cardBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		card, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load card", err)
		}

		if input.Body.Title != "" {
			card.Title = input.Body.Title
		}
		if input.Body.Description != nil {
			card.Description = *input.Body.Description
		}
		if input.Body.Color != nil {
			card.Color = *input.Body.Color
		}
		if input.Body.Completed != nil {
			card.Completed = *input.Body.Completed
		}
		if input.Body.Archived != nil {
			card.Archived = *input.Body.Archived
		}

		if err := store.Cards().Update(ctx, card); err != nil {
			return nil, huma.Error500InternalServerError("failed to update card", err)
		}

		notifier.NotifyCardUpdated(boardID, card)

		return &UpdateCardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-card",
		Method:      http.MethodPost,
		Path:        "/cards/{id}/move",
		Summary:     "Move a card to another column or position",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *MoveCardInput) (*MoveCardOutput, error) {
		boardID, err := cardBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		// Cards only move within their board.
		destCol, err := columnBoard(ctx, store, input.Body.ColumnID)
		if err != nil {
			return nil, err
		}
		if destCol.BoardID != boardID {
			return nil, huma.Error422UnprocessableEntity("destination column belongs to another board")
		}

		card, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load card", err)
		}
		fromColumnID := card.ColumnID

		if err := store.Cards().Move(ctx, input.ID, input.Body.ColumnID, input.Body.Position); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card or destination column not found")
			}
			return nil, huma.Error500InternalServerError("failed to move card", err)
		}

		card, err = store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to reload card", err)
		}

		notifier.NotifyCardMoved(boardID, card, fromColumnID, input.Body.ColumnID)

		return &MoveCardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-card-deadline",
		Method:      http.MethodPut,
		Path:        "/cards/{id}/deadline",
		Summary:     "Set or clear a card's deadline",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *UpdateCardDeadlineInput) (*UpdateCardDeadlineOutput, error) {
		boardID, err := cardBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		card, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load card", err)
		}

		card.Deadline = input.Body.Deadline
		if err := store.Cards().Update(ctx, card); err != nil {
			return nil, huma.Error500InternalServerError("failed to update deadline", err)
		}

		var deadline any
		if card.Deadline != nil {
			deadline = card.Deadline
		}
		notifier.NotifyCardDeadlineUpdated(boardID, card.ID, deadline)

		return &UpdateCardDeadlineOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-card",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}",
		Summary:     "Delete a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *DeleteCardInput) (*struct{}, error) {
		boardID, err := cardBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		if err := store.Cards().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete card", err)
		}

		notifier.NotifyCardDeleted(boardID, input.ID)

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-card-user",
		Method:      http.MethodPost,
		Path:        "/cards/{id}/assignees/{userID}",
		Summary:     "Assign a board member to a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CardAssigneeInput) (*CardAssigneeOutput, error) {
		boardID, err := cardBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		// Only board members can be assigned.
		if _, err := store.Boards().GetMemberRole(ctx, boardID, input.UserID); err != nil {
			if errors.Is(err, domain.ErrNotMember) {
				return nil, huma.Error422UnprocessableEntity("assignee is not a member of this board")
			}
			return nil, huma.Error500InternalServerError("failed to resolve member role", err)
		}

		if err := store.Cards().AssignUser(ctx, input.ID, input.UserID); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("user is already assigned to this card")
			}
			return nil, huma.Error500InternalServerError("failed to assign user", err)
		}

		card, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to reload card", err)
		}

		notifier.NotifyCardUpdated(boardID, card)

		return &CardAssigneeOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-card-user",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}/assignees/{userID}",
		Summary:     "Remove a card assignee",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CardAssigneeInput) (*CardAssigneeOutput, error) {
		boardID, err := cardBoard(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		if err := store.Cards().UnassignUser(ctx, input.ID, input.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("user is not assigned to this card")
			}
			return nil, huma.Error500InternalServerError("failed to unassign user", err)
		}

		card, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to reload card", err)
		}

		notifier.NotifyCardUpdated(boardID, card)

		return &CardAssigneeOutput{Body: card}, nil
	})
}
