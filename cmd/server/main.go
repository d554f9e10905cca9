// Package main provides the main entry point for the certquiz backend server.
// It boots observability, the databases, the background worker, and the quiz
// session manager, then serves the API until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certquiz/internal/config"
	"certquiz/internal/database"
	"certquiz/internal/handlers"
	"certquiz/internal/localstore"
	"certquiz/internal/observability"
	"certquiz/internal/services"
	"certquiz/internal/session"
	contextutils "certquiz/internal/utils"
	"certquiz/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "certquiz: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		return contextutils.WrapError(err, "failed to load configuration")
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "certquiz-backend")
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize observability")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if tp, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
		_ = logger.Sync()
	}()

	logger.Info(ctx, "Starting certquiz backend service", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
	})

	// Postgres: questions, AI content cache, progress, history
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithConfig(cfg.Database)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize database")
	}
	defer func() { _ = db.Close() }()

	// Local answer store (SQLite): the persisted answer map
	store, err := localstore.New(cfg.LocalStore.Path, logger)
	if err != nil {
		return contextutils.WrapError(err, "failed to open local answer store")
	}
	defer func() { _ = store.Close() }()

	// Background worker for fire-and-forget remote writes
	tasks := worker.NewWorker(0, logger)
	tasks.Start(ctx)

	// Services
	generationClient := services.NewGenerationClientWithLogger(cfg, logger)
	contentCache := services.NewContentCacheRepository(db, logger)
	contentService := services.NewContentServiceWithLogger(contentCache, generationClient, logger)
	questionRepo := services.NewSQLQuestionRepository(db)
	questionService := services.NewQuestionServiceWithLogger(questionRepo, cfg.Quiz.QuestionPageSize, logger)
	progressRepo := services.NewProgressRepository(db, logger)
	historyService := services.NewHistoryServiceWithLogger(db, logger)
	detector := services.NewLanguageDetectorWithLogger(cfg, logger)

	manager := session.NewManager(session.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Content:  contentService,
		Progress: progressRepo,
		History:  historyService,
		Store:    store,
		Tasks:    tasks,
	}, questionService)

	// An empty or unreachable question bank is the one fatal startup condition
	if err := manager.LoadQuestionBank(ctx); err != nil {
		return contextutils.WrapError(err, "failed to load question bank")
	}
	logger.Info(ctx, "Question bank loaded", map[string]interface{}{
		"questions": len(manager.Questions()),
	})

	router := handlers.NewRouter(cfg, manager, historyService, detector, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", nil)
	case err := <-serverErr:
		return contextutils.WrapError(err, "server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Error shutting down HTTP server", map[string]interface{}{"error": err.Error()})
	}
	// Drain pending progress and history writes before closing stores
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Background worker did not drain in time", map[string]interface{}{"error": err.Error()})
	}

	logger.Info(ctx, "Shutdown complete", nil)
	return nil
}
