package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"construction-api/internal"
	"construction-api/internal/config"
	"construction-api/internal/logging"
	"construction-api/internal/store"
	"construction-api/pkg/importer"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load and validate configuration
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	db, err := store.Open(ctx, store.Options{
		Driver:         cfg.StoreDriver,
		MongoURI:       cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		PostgresDSN:    cfg.PostgresDSN,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	logger.Info("Connected to store", zap.String("driver", db.Driver))

	if cfg.ImportOnStart {
		importer.Run(context.Background(), db, importer.Options{Dir: cfg.ImportDir}, logger)
	}

	server := internal.NewServer(db, cfg, logger)
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Router,
	}

	go func() {
		logger.Info("Server is running", zap.String("addr", srv.Addr), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := server.Close(shutdownCtx); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}
	logger.Info("Server exited")
}
