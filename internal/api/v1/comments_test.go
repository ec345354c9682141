package v1_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/kanvas/internal/api/v1"
	"github.com/gosuda/kanvas/internal/domain"
)

// commentFixture wires comment 31 by user 7 on card 21, board 3.
// User 7 is the author, user 8 an admin, user 9 another member.
func commentFixture() (*mockDataStore, *mockCommentRepo) {
	comments := &mockCommentRepo{
		getByIDFunc: func(_ context.Context, id int64) (*domain.Comment, error) {
			return &domain.Comment{ID: id, CardID: 21, UserID: 7, Text: "looks good"}, nil
		},
	}
	store := &mockDataStore{
		boards: roleTable(map[int64]map[int64]domain.Role{
			3: {7: domain.RoleMember, 8: domain.RoleAdmin, 9: domain.RoleMember},
		}),
		cards: &mockCardRepo{
			boardIDFunc: func(_ context.Context, _ int64) (int64, error) { return 3, nil },
		},
		comments: comments,
	}
	return store, comments
}

func TestCreateComment(t *testing.T) {
	t.Parallel()

	t.Run("member_comments_and_notifies", func(t *testing.T) {
		t.Parallel()

		notifier := &recordingNotifier{}
		_, api := humatest.New(t)
		store, comments := commentFixture()
		comments.createFunc = func(_ context.Context, c *domain.Comment) error {
			assert.Equal(t, int64(21), c.CardID)
			assert.Equal(t, int64(9), c.UserID)
			assert.Equal(t, "ship it today?", c.Text)
			c.ID = 32
			return nil
		}
		v1.RegisterCommentRoutes(api, store, notifier)

		resp := api.PostCtx(userCtx(9), "/cards/21/comments", map[string]any{"text": "ship it today?"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{"comment_added"}, notifier.events())
	})

	t.Run("non_member_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, _ := commentFixture()
		v1.RegisterCommentRoutes(api, store, &recordingNotifier{})

		resp := api.PostCtx(userCtx(42), "/cards/21/comments", map[string]any{"text": "hi"})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestUpdateComment(t *testing.T) {
	t.Parallel()

	t.Run("author_edits", func(t *testing.T) {
		t.Parallel()

		notifier := &recordingNotifier{}
		_, api := humatest.New(t)
		store, comments := commentFixture()
		comments.updateFunc = func(_ context.Context, c *domain.Comment) error {
			assert.Equal(t, "revised", c.Text)
			return nil
		}
		v1.RegisterCommentRoutes(api, store, notifier)

		resp := api.PutCtx(userCtx(7), "/comments/31", map[string]any{"text": "revised"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{"comment_updated"}, notifier.events())
	})

	t.Run("admin_cannot_edit_anothers_comment", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, _ := commentFixture()
		v1.RegisterCommentRoutes(api, store, &recordingNotifier{})

		resp := api.PutCtx(userCtx(8), "/comments/31", map[string]any{"text": "revised"})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("superuser_edits_any_comment", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, comments := commentFixture()
		comments.updateFunc = func(_ context.Context, _ *domain.Comment) error { return nil }
		v1.RegisterCommentRoutes(api, store, &recordingNotifier{})

		resp := api.PutCtx(superuserCtx(1), "/comments/31", map[string]any{"text": "moderated"})
		require.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestDeleteComment(t *testing.T) {
	t.Parallel()

	t.Run("author_deletes", func(t *testing.T) {
		t.Parallel()

		notifier := &recordingNotifier{}
		_, api := humatest.New(t)
		store, comments := commentFixture()
		comments.deleteFunc = func(_ context.Context, id int64) error {
			assert.Equal(t, int64(31), id)
			return nil
		}
		v1.RegisterCommentRoutes(api, store, notifier)

		resp := api.DeleteCtx(userCtx(7), "/comments/31")
		require.Equal(t, http.StatusNoContent, resp.Code)
		assert.Equal(t, []string{"comment_deleted"}, notifier.events())
	})

	t.Run("admin_deletes_anothers_comment", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, comments := commentFixture()
		comments.deleteFunc = func(_ context.Context, _ int64) error { return nil }
		v1.RegisterCommentRoutes(api, store, &recordingNotifier{})

		resp := api.DeleteCtx(userCtx(8), "/comments/31")
		require.Equal(t, http.StatusNoContent, resp.Code)
	})

	t.Run("other_member_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, _ := commentFixture()
		v1.RegisterCommentRoutes(api, store, &recordingNotifier{})

		resp := api.DeleteCtx(userCtx(9), "/comments/31")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}
