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

func TestAddMember(t *testing.T) {
	t.Parallel()

	newStore := func(callerRole domain.Role) (*mockDataStore, *mockBoardRepo) {
		boards := roleTable(map[int64]map[int64]domain.Role{3: {7: callerRole}})
		store := &mockDataStore{
			boards: boards,
			users: &mockUserRepo{
				getByIDFunc: func(_ context.Context, id int64) (*domain.User, error) {
					return &domain.User{ID: id, Username: "mallory"}, nil
				},
			},
		}
		return store, boards
	}

	t.Run("admin_adds_member", func(t *testing.T) {
		t.Parallel()

		notifier := &recordingNotifier{}
		_, api := humatest.New(t)
		store, boards := newStore(domain.RoleAdmin)
		boards.addMemberFunc = func(_ context.Context, boardID, userID int64, role domain.Role) error {
			assert.Equal(t, int64(3), boardID)
			assert.Equal(t, int64(9), userID)
			assert.Equal(t, domain.RoleMember, role)
			return nil
		}
		v1.RegisterMemberRoutes(api, store, notifier, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/members", map[string]any{"user_id": 9})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{"user_added"}, notifier.events())
	})

	t.Run("admin_cannot_grant_admin", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, _ := newStore(domain.RoleAdmin)
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/members", map[string]any{
			"user_id": 9,
			"role":    "admin",
		})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("owner_grants_admin", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, boards := newStore(domain.RoleOwner)
		boards.addMemberFunc = func(_ context.Context, _, _ int64, role domain.Role) error {
			assert.Equal(t, domain.RoleAdmin, role)
			return nil
		}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/members", map[string]any{
			"user_id": 9,
			"role":    "admin",
		})
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("member_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, _ := newStore(domain.RoleMember)
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/members", map[string]any{"user_id": 9})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("duplicate_member_conflict", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, boards := newStore(domain.RoleAdmin)
		boards.addMemberFunc = func(_ context.Context, _, _ int64, _ domain.Role) error {
			return domain.ErrConflict
		}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/members", map[string]any{"user_id": 9})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("admin_adds_member_by_email", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, boards := newStore(domain.RoleAdmin)
		store.users = &mockUserRepo{
			getByEmailFunc: func(_ context.Context, email string) (*domain.User, error) {
				require.Equal(t, "mallory@example.com", email)
				return &domain.User{ID: 9, Username: "mallory", Email: email}, nil
			},
		}
		boards.addMemberFunc = func(_ context.Context, _, userID int64, role domain.Role) error {
			assert.Equal(t, int64(9), userID)
			assert.Equal(t, domain.RoleMember, role)
			return nil
		}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/members", map[string]any{"email": "mallory@example.com"})
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("unknown_email_not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, _ := newStore(domain.RoleAdmin)
		store.users = &mockUserRepo{
			getByEmailFunc: func(_ context.Context, _ string) (*domain.User, error) {
				return nil, domain.ErrNotFound
			},
		}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/members", map[string]any{"email": "ghost@example.com"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("neither_user_id_nor_email", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store, _ := newStore(domain.RoleAdmin)
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/members", map[string]any{"role": "member"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

func TestRemoveMember(t *testing.T) {
	t.Parallel()

	t.Run("admin_removes_member_and_revokes_access", func(t *testing.T) {
		t.Parallel()

		notifier := &recordingNotifier{}
		cache := &recordingAccessCache{}
		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{
			3: {7: domain.RoleAdmin, 9: domain.RoleMember},
		})
		boards.removeMemberFunc = func(_ context.Context, boardID, userID int64) error {
			assert.Equal(t, int64(9), userID)
			return nil
		}
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, notifier, cache)

		resp := api.DeleteCtx(userCtx(7), "/boards/3/members/9")
		require.Equal(t, http.StatusNoContent, resp.Code)
		assert.Equal(t, []string{"user_removed"}, notifier.events())

		require.Len(t, cache.calls, 1)
		assert.Equal(t, int64(9), cache.calls[0].UserID)
		assert.Equal(t, int64(3), cache.calls[0].BoardID)
		assert.False(t, cache.calls[0].HasAccess)
	})

	t.Run("member_leaves_board", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{3: {9: domain.RoleMember}})
		boards.removeMemberFunc = func(_ context.Context, _, userID int64) error {
			assert.Equal(t, int64(9), userID)
			return nil
		}
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.DeleteCtx(userCtx(9), "/boards/3/members/9")
		require.Equal(t, http.StatusNoContent, resp.Code)
	})

	t.Run("member_cannot_remove_others", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{
			3: {9: domain.RoleMember, 5: domain.RoleMember},
		})
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.DeleteCtx(userCtx(9), "/boards/3/members/5")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("owner_cannot_be_removed", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{
			3: {7: domain.RoleAdmin, 1: domain.RoleOwner},
		})
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.DeleteCtx(userCtx(7), "/boards/3/members/1")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("admin_cannot_remove_admin", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{
			3: {7: domain.RoleAdmin, 8: domain.RoleAdmin},
		})
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.DeleteCtx(userCtx(7), "/boards/3/members/8")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestChangeMemberRole(t *testing.T) {
	t.Parallel()

	t.Run("owner_promotes_member", func(t *testing.T) {
		t.Parallel()

		notifier := &recordingNotifier{}
		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{
			3: {1: domain.RoleOwner, 9: domain.RoleMember},
		})
		boards.updateMemberRoleFunc = func(_ context.Context, boardID, userID int64, role domain.Role) error {
			assert.Equal(t, int64(9), userID)
			assert.Equal(t, domain.RoleAdmin, role)
			return nil
		}
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, notifier, &recordingAccessCache{})

		resp := api.PutCtx(userCtx(1), "/boards/3/members/9", map[string]any{"role": "admin"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{"user_role_changed"}, notifier.events())
	})

	t.Run("admin_cannot_demote_admin", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{
			3: {7: domain.RoleAdmin, 8: domain.RoleAdmin},
		})
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PutCtx(userCtx(7), "/boards/3/members/8", map[string]any{"role": "member"})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestTransferOwnership(t *testing.T) {
	t.Parallel()

	t.Run("owner_transfers", func(t *testing.T) {
		t.Parallel()

		notifier := &recordingNotifier{}
		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{
			3: {1: domain.RoleOwner, 9: domain.RoleMember},
		})
		boards.getByIDFunc = func(_ context.Context, id int64) (*domain.Board, error) {
			return &domain.Board{ID: id, OwnerID: 1}, nil
		}
		var roleChanges []struct {
			UserID int64
			Role   domain.Role
		}
		boards.updateMemberRoleFunc = func(_ context.Context, _, userID int64, role domain.Role) error {
			roleChanges = append(roleChanges, struct {
				UserID int64
				Role   domain.Role
			}{userID, role})
			return nil
		}
		boards.updateFunc = func(_ context.Context, b *domain.Board) error {
			assert.Equal(t, int64(9), b.OwnerID)
			return nil
		}
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, notifier, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(1), "/boards/3/transfer-ownership", map[string]any{"user_id": 9})
		require.Equal(t, http.StatusOK, resp.Code)

		require.Len(t, roleChanges, 2)
		assert.Equal(t, domain.RoleOwner, roleChanges[0].Role)
		assert.Equal(t, int64(9), roleChanges[0].UserID)
		assert.Equal(t, domain.RoleAdmin, roleChanges[1].Role)
		assert.Equal(t, int64(1), roleChanges[1].UserID)
		assert.Equal(t, []string{"user_role_changed", "user_role_changed"}, notifier.events())
	})

	t.Run("admin_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{3: {7: domain.RoleAdmin}})
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(7), "/boards/3/transfer-ownership", map[string]any{"user_id": 9})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("target_must_be_member", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		boards := roleTable(map[int64]map[int64]domain.Role{3: {1: domain.RoleOwner}})
		store := &mockDataStore{boards: boards}
		v1.RegisterMemberRoutes(api, store, &recordingNotifier{}, &recordingAccessCache{})

		resp := api.PostCtx(userCtx(1), "/boards/3/transfer-ownership", map[string]any{"user_id": 42})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
