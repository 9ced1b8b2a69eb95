// Package http exposes the sync admin, settings and event surfaces over HTTP.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProjectResolver maps project keys onto project IDs for settings scoping.
type ProjectResolver interface {
	ResolveProjectID(ctx context.Context, projectKey string) string
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	logger     *slog.Logger

	// Services
	admin    driving.SyncAdmin
	settings driving.SettingsService
	events   driving.FieldEvents
	resolver ProjectResolver

	// Infrastructure health
	db    Pinger
	redis Pinger
}

// Config holds server configuration
type Config struct {
	Host string
	Port int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 8080,
	}
}

// ServerDeps bundles the services and health checks the server exposes.
// The db and redis pingers may be nil.
type ServerDeps struct {
	Admin    driving.SyncAdmin
	Settings driving.SettingsService
	Events   driving.FieldEvents
	Resolver ProjectResolver
	DB       Pinger
	Redis    Pinger
	Logger   *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:   http.NewServeMux(),
		logger:   logger,
		admin:    deps.Admin,
		settings: deps.Settings,
		events:   deps.Events,
		resolver: deps.Resolver,
		db:       deps.DB,
		redis:    deps.Redis,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)

	// Sync admin endpoints
	s.router.HandleFunc("GET /api/v1/sync/status", s.handleGetSyncStatus)
	s.router.HandleFunc("GET /api/v1/sync/log", s.handleGetSyncLog)
	s.router.HandleFunc("POST /api/v1/sync/start", s.handleStartSync)
	s.router.HandleFunc("POST /api/v1/sync/stop", s.handleStopSync)
	s.router.HandleFunc("POST /api/v1/sync/force-reset", s.handleForceResetSync)
	s.router.HandleFunc("POST /api/v1/sync/force-stop-all", s.handleForceStopAllSyncs)

	// Settings endpoints
	s.router.HandleFunc("GET /api/v1/settings", s.handleGetSettings)
	s.router.HandleFunc("PUT /api/v1/settings", s.handleSaveSettings)

	// Event webhook
	s.router.HandleFunc("POST /api/v1/events/comment", s.handleCommentEvent)
}

// Handler returns the route handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. It blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
