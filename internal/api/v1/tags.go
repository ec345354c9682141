package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanvas/internal/domain"
)

type CreateTagInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
	Body    struct {
		Name  string `json:"name" minLength:"1" maxLength:"64" doc:"Tag name, unique per board"`
		Color string `json:"color,omitempty" pattern:"^#[0-9a-fA-F]{6}$" doc:"Tag color as #RRGGBB"`
	}
}

type CreateTagOutput struct {
	Body *domain.Tag
}

type ListTagsInput struct {
	BoardID int64 `path:"boardID" doc:"Board ID"`
}

type ListTagsOutput struct {
	Body []*domain.Tag
}

type UpdateTagInput struct {
	ID   int64 `path:"id" doc:"Tag ID"`
	Body struct {
		Name  string  `json:"name,omitempty" maxLength:"64" doc:"Tag name"`
		Color *string `json:"color,omitempty" doc:"Tag color as #RRGGBB, empty clears"`
	}
}

type UpdateTagOutput struct {
	Body *domain.Tag
}

type DeleteTagInput struct {
	ID int64 `path:"id" doc:"Tag ID"`
}

type CardTagInput struct {
	CardID int64 `path:"cardID" doc:"Card ID"`
	TagID  int64 `path:"tagID" doc:"Tag ID"`
}

type CardTagOutput struct {
	Body *domain.Card
}

// loadTag fetches a tag and checks board membership.
func loadTag(ctx context.Context, store DataStore, tagID int64) (*domain.Tag, error) {
	tag, err := store.Tags().GetByID(ctx, tagID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tag not found")
		}
		return nil, huma.Error500InternalServerError("failed to load tag", err)
	}
	if _, _, err := requireBoardRole(ctx, store, tag.BoardID, domain.RoleMember); err != nil {
		return nil, err
	}
	return tag, nil
}

func RegisterTagRoutes(api huma.API, store DataStore, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-tag",
		Method:      http.MethodPost,
		Path:        "/boards/{boardID}/tags",
		Summary:     "Create a tag on a board",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, input *CreateTagInput) (*CreateTagOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		tag := &domain.Tag{
			BoardID: input.BoardID,
			Name:    input.Body.Name,
			Color:   input.Body.Color,
		}
		if err := store.Tags().Create(ctx, tag); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("a tag with this name already exists on the board")
			}
			return nil, huma.Error500InternalServerError("failed to create tag", err)
		}

		return &CreateTagOutput{Body: tag}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/tags",
		Summary:     "List a board's tags",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
		if _, _, err := requireBoardRole(ctx, store, input.BoardID, domain.RoleMember); err != nil {
			return nil, err
		}

		tags, err := store.Tags().ListByBoard(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tags", err)
		}

		return &ListTagsOutput{Body: tags}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tag",
		Method:      http.MethodPut,
		Path:        "/tags/{id}",
		Summary:     "Update a tag",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, input *UpdateTagInput) (*UpdateTagOutput, error) {
		tag, err := loadTag(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		if input.Body.Name != "" {
			tag.Name = input.Body.Name
		}
		if input.Body.Color != nil {
			tag.Color = *input.Body.Color
		}

		if err := store.Tags().Update(ctx, tag); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("a tag with this name already exists on the board")
			}
			return nil, huma.Error500InternalServerError("failed to update tag", err)
		}

		return &UpdateTagOutput{Body: tag}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-tag",
		Method:      http.MethodDelete,
		Path:        "/tags/{id}",
		Summary:     "Delete a tag",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, input *DeleteTagInput) (*struct{}, error) {
		if _, err := loadTag(ctx, store, input.ID); err != nil {
			return nil, err
		}

		if err := store.Tags().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete tag", err)
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-tag",
		Method:      http.MethodPost,
		Path:        "/cards/{cardID}/tags/{tagID}",
		Summary:     "Attach a tag to a card",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, input *CardTagInput) (*CardTagOutput, error) {
		boardID, err := cardBoard(ctx, store, input.CardID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		tag, err := store.Tags().GetByID(ctx, input.TagID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("tag not found")
			}
			return nil, huma.Error500InternalServerError("failed to load tag", err)
		}
		if tag.BoardID != boardID {
			return nil, huma.Error422UnprocessableEntity("tag belongs to another board")
		}

		if err := store.Tags().AttachToCard(ctx, input.TagID, input.CardID); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("tag is already attached to this card")
			}
			return nil, huma.Error500InternalServerError("failed to attach tag", err)
		}

		card, err := store.Cards().GetByID(ctx, input.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to reload card", err)
		}

		notifier.NotifyCardUpdated(boardID, card)

		return &CardTagOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "detach-tag",
		Method:      http.MethodDelete,
		Path:        "/cards/{cardID}/tags/{tagID}",
		Summary:     "Detach a tag from a card",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, input *CardTagInput) (*CardTagOutput, error) {
		boardID, err := cardBoard(ctx, store, input.CardID)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireBoardRole(ctx, store, boardID, domain.RoleMember); err != nil {
			return nil, err
		}

		if err := store.Tags().DetachFromCard(ctx, input.TagID, input.CardID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("tag is not attached to this card")
			}
			return nil, huma.Error500InternalServerError("failed to detach tag", err)
		}

		card, err := store.Cards().GetByID(ctx, input.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to reload card", err)
		}

		notifier.NotifyCardUpdated(boardID, card)

		return &CardTagOutput{Body: card}, nil
	})
}
