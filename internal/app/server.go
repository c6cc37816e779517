package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/AmityBot/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/AmityBot/internal/api/middlewares"
	"github.com/markdave123-py/AmityBot/internal/config"
	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/metrics"
	"github.com/markdave123-py/AmityBot/internal/services"
)

const requestTimeout = 90 * time.Second

// Deps are the components the HTTP routes are built from.
type Deps struct {
	Orchestrator handlers.Answerer
	Leads        core.LeadStore
	Uploads      handlers.Uploader
	Reindexer    handlers.Reindexer
	Users        handlers.Accounts
	Tokens       *services.TokenService
	Metrics      *metrics.Metrics
	Checks       map[string]handlers.Check
	Logger       *slog.Logger
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewRouter builds and wires all routes.
func NewRouter(cfg *config.Config, d Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, d.Logger)
	chatHandler := handlers.NewChatHandler(d.Orchestrator, d.Logger)
	docHandler := handlers.NewDocumentHandler(d.Uploads, d.Reindexer, d.Logger)
	leadHandler := handlers.NewLeadHandler(d.Leads, d.Logger)
	healthHandler := handlers.NewHealthHandler(d.Checks, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/deep", healthHandler.DeepHealth)
	r.Handle("/metrics", d.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(appMiddleware.RoleMiddleware(d.Tokens))

		// streaming answers outlive the request timeout
		api.Post("/chat/stream", chatHandler.ChatStream)

		api.Group(func(public chi.Router) {
			public.Use(middleware.Timeout(requestTimeout))
			public.Post("/login", authHandler.Login)
			public.Post("/register", authHandler.Register)
			public.Get("/check-session", authHandler.CheckSession)
			public.Post("/chat", chatHandler.Chat)
			public.Get("/sessions/{id}", chatHandler.History)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.RequireAuthenticated)
			protected.Use(middleware.Timeout(requestTimeout))
			protected.Post("/kb/upload", docHandler.UploadDocument)
			protected.Delete("/kb/{name}", docHandler.DeleteDocument)
			protected.Post("/reindex", docHandler.Reindex)
			protected.Get("/leads", leadHandler.ListLeads)
			protected.Get("/leads/{id}", leadHandler.GetLead)
			protected.Patch("/leads/{id}", leadHandler.UpdateLead)
		})
	})

	return r
}

func NewServer(cfg *config.Config, d Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, d),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: d.Logger,
	}
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
