package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/kanvas/internal/api/v1"
	"github.com/gosuda/kanvas/internal/api/ws"
	"github.com/gosuda/kanvas/internal/auth"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store v1.DataStore, notifier v1.Notifier, access v1.AccessCache) {
	v1.RegisterUserRoutes(api, store)
	v1.RegisterBoardRoutes(api, store, notifier)
	v1.RegisterMemberRoutes(api, store, notifier, access)
	v1.RegisterColumnRoutes(api, store, notifier)
	v1.RegisterCardRoutes(api, store, notifier)
	v1.RegisterCommentRoutes(api, store, notifier)
	v1.RegisterTagRoutes(api, store, notifier)
}

func registerWSRoutes(r chi.Router, handler *ws.Handler) {
	r.Get("/ws/updates", handler.ServeUpdates)
	r.Get("/ws/board/{boardID}", handler.ServeBoard)
}
