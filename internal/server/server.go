package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/gosuda/kanvas/internal/api/ws"
	"github.com/gosuda/kanvas/internal/auth"
	"github.com/gosuda/kanvas/internal/config"
	"github.com/gosuda/kanvas/internal/server/middleware"
	"github.com/gosuda/kanvas/internal/store/postgres"
	redisstore "github.com/gosuda/kanvas/internal/store/redis"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	store      *postgres.Store
	auth       *auth.Service
	pubsub     *redisstore.PubSub // nil when Redis is not configured
	manager    *ws.Manager
	dispatcher *ws.Dispatcher
	cfg        *config.Config
}

// dispatcherQueueSize bounds the number of board events waiting for
// fan-out before new ones are dropped.
const dispatcherQueueSize = 256

// New creates a Server with all routes wired. ctx bounds the lifetime
// of the dispatcher's background goroutines; cancel it on shutdown.
// pubsub may be nil, which disables cross-instance event relay.
func New(ctx context.Context, cfg *config.Config, store *postgres.Store, pubsub *redisstore.PubSub, authSvc *auth.Service) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	manager := ws.NewManager()

	// The relay is a concrete pointer; pass nil explicitly so the
	// dispatcher's nil check works on the interface value.
	var relay ws.Relay
	if pubsub != nil {
		relay = pubsub
	}
	dispatcher := ws.NewDispatcher(manager, relay, dispatcherQueueSize)
	dispatcher.Start(ctx)

	s := &Server{
		router:     router,
		store:      store,
		auth:       authSvc,
		pubsub:     pubsub,
		manager:    manager,
		dispatcher: dispatcher,
		cfg:        cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Unauthenticated group for auth endpoints.
	// 2. Authenticated group for all other endpoints.
	router.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated auth routes (register, login, refresh).
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, 5, 10))

			authConfig := huma.DefaultConfig("Kanvas Auth API", "1.0.0")
			authConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			authAPI := humachi.New(r, authConfig)
			registerAuthRoutes(authAPI, authSvc)
		})

		// Authenticated routes (everything else).
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authSvc))
			r.Use(middleware.RateLimit(ctx, 100, 200))

			apiConfig := huma.DefaultConfig("Kanvas API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, store, dispatcher, manager)
		})
	})

	// WebSocket routes authenticate inside the handshake so clients
	// that cannot set headers get a structured error frame instead of
	// a plain 401.
	wsHandler := ws.NewHandler(manager, authSvc, store.Boards())
	registerWSRoutes(router, wsHandler)

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
