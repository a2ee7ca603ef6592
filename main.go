package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-tracker/config"
	"paper-tracker/handlers"
	"paper-tracker/middleware"
	"paper-tracker/repositories"
	"paper-tracker/services"
	"paper-tracker/storage"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Datenbank
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to papers database.")

	logging.Info("Running database auto-migration...")
	if err := repositories.Migrate(db); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Objektspeicher
	blobs, err := storage.Open(ctx, cfg)
	if err != nil {
		logging.Fatal("Blob store setup failed", zap.Error(err), zap.String("driver", cfg.BlobDriver))
	}
	logging.Info("Blob store ready", zap.String("driver", cfg.BlobDriver), zap.String("bucket", cfg.S3Bucket))

	// Services
	paperService := services.NewPaperService(repositories.NewPaperRepository(db), blobs, logging, cfg.PresignTTL)
	sweeper := services.NewSweeper(paperService, logging, cfg.SweepSchedule, cfg.SweepDebounce)
	if err := sweeper.Start(ctx); err != nil {
		logging.Fatal("Invalid sweep schedule", zap.Error(err), zap.String("schedule", cfg.SweepSchedule))
	}
	defer sweeper.Stop()

	if cfg.AuthDisabled {
		logging.Warn("AUTH_DISABLED is set, all /papers endpoints are open")
	}
	auth := middleware.NewAuthenticator(cfg)
	router := handlers.NewRouter(
		handlers.NewPaperHandler(paperService, sweeper, logging, cfg.MaxUploadBytes()),
		auth,
		logging,
	)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", zap.Error(err))
	}
}
