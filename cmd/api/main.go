package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpdelivery "github.com/gtsurkav-sudo/JOJIAI/internal/delivery/http"
	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/config"
	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/logger"
	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/postgres"
	repo "github.com/gtsurkav-sudo/JOJIAI/internal/repository/postgres"
	"github.com/gtsurkav-sudo/JOJIAI/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("")
	if err != nil {
		panic(err)
	}

	isDevelopment := os.Getenv("APP_ENV") != "production"
	l, err := logger.NewLogger(isDevelopment, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	log := l.Named("main")

	db, err := postgres.NewPostgresDB(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer postgres.CloseDB(db, log)

	// Wire the layers
	retentionRepo := repo.NewRetentionRepository(db, log.Named("repository"))
	retentionUseCase := usecase.NewRetentionUseCase(
		retentionRepo,
		log.Named("usecase"),
		postgres.RedactedEndpoint(cfg.DatabaseURL),
	)
	handler := httpdelivery.NewHandler(
		retentionUseCase,
		log.Named("handler"),
		cfg.DefaultBatchSize,
		cfg.DefaultDaysOld,
		cfg.MaxRequestTime,
	)

	server := httpdelivery.NewServer(handler, log.Named("server"), cfg.ServerPort)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Application started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down application...")

	// Give in-flight requests 30 seconds to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Application stopped")
}
