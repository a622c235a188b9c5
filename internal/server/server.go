package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/loggov/internal/config"
	"github.com/raaihank/loggov/internal/governance"
	"github.com/raaihank/loggov/internal/logger"
	"github.com/raaihank/loggov/internal/metrics"
	"github.com/raaihank/loggov/internal/security"
	"github.com/raaihank/loggov/internal/websocket"
)

// Deps are the collaborators a Server needs. Store and Logger are required.
type Deps struct {
	Store *governance.Store

	// Reload rebuilds the governance config from its document.
	Reload func() (*governance.Config, error)

	// OnReload is told about every reload attempt made through the API.
	OnReload func(*governance.Config, error)

	// Logger is the ungoverned diagnostics logger.
	Logger *logger.Logger

	// AccessLog receives request logs. Defaults to Logger.
	AccessLog *logger.Logger

	Hub     *websocket.Hub
	Metrics *metrics.Collector
	Limiter *security.RateLimiter

	Version string
}

// Server serves the governance inspection API
type Server struct {
	config    *config.Config
	deps      Deps
	logger    *logger.Logger
	accessLog *logger.Logger
	router    *mux.Router
	server    *http.Server
	started   time.Time
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: governance store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Wrap(zap.NewNop())
	}
	if deps.AccessLog == nil {
		deps.AccessLog = deps.Logger
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	s := &Server{
		config:    cfg,
		deps:      deps,
		logger:    deps.Logger.WithComponent("server"),
		accessLog: deps.AccessLog.WithComponent("http"),
		router:    mux.NewRouter(),
		started:   time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	if s.deps.Metrics != nil && s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	if s.deps.Hub != nil && s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.deps.Hub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	api.HandleFunc("/apply", s.handleApply).Methods(http.MethodPost)
	api.HandleFunc("/detect", s.handleDetect).Methods(http.MethodPost)
	api.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	cfg := s.deps.Store.Config()
	s.logger.Info("Starting loggov server",
		zap.Int("port", s.config.Server.Port),
		zap.String("governance_version", cfg.Version()),
		zap.String("governance_source", cfg.Source()),
		zap.Int("rules", len(cfg.Rules())),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping loggov server")
	return s.server.Shutdown(ctx)
}
