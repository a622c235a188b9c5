package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/loggov/internal/config"
	"github.com/raaihank/loggov/internal/governance"
	"github.com/raaihank/loggov/internal/logger"
	"github.com/raaihank/loggov/internal/metrics"
	"github.com/raaihank/loggov/internal/security"
	"github.com/raaihank/loggov/internal/server"
	"github.com/raaihank/loggov/internal/websocket"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the governance inspection server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting loggov",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.String("config_file", loader.ConfigFile()),
	)

	// An invalid document is fatal at startup
	govCfg, err := governance.LoadFile(cfg.Governance.Document)
	if err != nil {
		return fmt.Errorf("failed to load governance document: %w", err)
	}
	if cfg.Governance.Document != "" && govCfg.Source() == governance.SourceBuiltin {
		log.Warn("Governance document not found, using built-in rules",
			zap.String("path", cfg.Governance.Document),
		)
	}
	store := governance.NewStore(govCfg)

	collector := metrics.NewCollector(&cfg.Metrics, nil)
	collector.SetActiveRules(len(govCfg.Rules()))

	hub := websocket.NewHub(websocket.HubConfigFrom(cfg.WebSocket), log.Logger)

	onReload := func(active *governance.Config, err error) {
		collector.RecordReload(active, err)
		hub.ReportReload(active, err)
	}

	appLog := log
	if cfg.Logging.Governed {
		appLog = log.Governed(store, collector, hub)
	}

	limiter := security.NewRateLimiter(cfg.RateLimit)
	limiter.StartCleanupRoutine(ctx)

	var reload func() (*governance.Config, error)
	if cfg.Governance.Document != "" {
		reload = func() (*governance.Config, error) {
			return governance.ReloadFile(cfg.Governance.Document)
		}
	}

	srv, err := server.New(cfg, server.Deps{
		Store:     store,
		Reload:    reload,
		OnReload:  onReload,
		Logger:    log,
		AccessLog: appLog,
		Hub:       hub,
		Metrics:   collector,
		Limiter:   limiter,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	go hub.Run(ctx)

	if cfg.Governance.Watch && cfg.Governance.Document != "" {
		watcher, err := governance.NewWatcher(cfg.Governance.Document, store, governance.WatcherOptions{
			Debounce: cfg.Governance.Debounce,
			Logger:   log.WithComponent("governance").Logger,
			OnReload: onReload,
		})
		if err != nil {
			return fmt.Errorf("failed to create governance watcher: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Error("Governance watcher stopped", zap.Error(err))
			}
		}()
	}

	// Application config changes only adjust the log level; everything else
	// needs a restart.
	if loader.ConfigFile() != "" {
		loader.Watch(func(next *config.Config) {
			if err := log.SetLevel(next.Logging.Level); err != nil {
				log.Warn("Ignoring log level change", zap.Error(err))
				return
			}
			log.Info("Configuration reloaded", zap.String("log_level", next.Logging.Level))
		}, func(err error) {
			log.Warn("Configuration reload rejected", zap.Error(err))
		})
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	log.Info("Server shutdown complete")
	return nil
}
