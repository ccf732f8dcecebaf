// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/finalquest/itinera/internal/api"
	"github.com/finalquest/itinera/internal/auth"
	"github.com/finalquest/itinera/internal/barcode"
	"github.com/finalquest/itinera/internal/findingservice"
	"github.com/finalquest/itinera/internal/index"
	"github.com/finalquest/itinera/internal/kmlsource"
	"github.com/finalquest/itinera/internal/mcpserver"
	"github.com/finalquest/itinera/internal/sse"
	"github.com/finalquest/itinera/internal/storage"
	"github.com/finalquest/itinera/internal/vision"
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("kml_mode", cfg.KML.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the data directory and collections.
	store, err := storage.New(cfg.Data.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the search index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// Auth service and seeded admin.
	authSvc := auth.New(store.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	if err := authSvc.EnsureAdmin(cfg.Auth.AdminUser, cfg.Auth.AdminPass); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Collaborators.
	kmls, err := newKMLSource(cfg)
	if err != nil {
		return fmt.Errorf("init kml source: %w", err)
	}
	looker := barcode.NewClient()
	extractor := vision.NewExtractor(cfg.Vision.BaseURL, cfg.Vision.APIKey, cfg.Vision.Model)
	findings := findingservice.New(store, db, broker, looker, logger)

	// Build API handler and router.
	h := api.NewHandler(findings, authSvc, kmls, looker, extractor, logger)
	apiRouter := api.NewRouter(h, authSvc, store.Photos, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// CORS wraps everything; the web client runs on another origin.
	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: handler,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start data-dir watcher with SSE callback.
	g.Go(func() error {
		index.Watch(gCtx, db, store, logger, func() {
			broker.Publish(sse.Event{Type: "findings.changed", Data: map[string]string{}})
		})
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tool surface over stdio. Logs go to stderr so stdout
// stays clean for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	store, err := storage.New(cfg.Data.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	kmls, err := newKMLSource(cfg)
	if err != nil {
		return fmt.Errorf("init kml source: %w", err)
	}

	findings := findingservice.New(store, db, nil, barcode.NewClient(), logger)
	srv := mcpserver.New(findings, kmls)

	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// newKMLSource builds the configured itinerary source. The local directory
// is created when missing so a fresh checkout runs out of the box.
func newKMLSource(cfg *Config) (kmlsource.Source, error) {
	if cfg.KML.Mode == KMLModeGitHub {
		return kmlsource.NewGitHub(cfg.KML.Owner, cfg.KML.Repo, cfg.KML.Branch, cfg.KML.Folder), nil
	}
	if err := os.MkdirAll(cfg.KML.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create kml dir: %w", err)
	}
	return kmlsource.NewDir(cfg.KML.Path)
}
