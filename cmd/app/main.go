package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viaacode/teamleader2db/internal/config"
	"github.com/viaacode/teamleader2db/internal/database"
	"github.com/viaacode/teamleader2db/internal/database/migrations"
	"github.com/viaacode/teamleader2db/internal/database/postgres"
	"github.com/viaacode/teamleader2db/internal/domain"
	"github.com/viaacode/teamleader2db/internal/export"
	"github.com/viaacode/teamleader2db/internal/handler"
	"github.com/viaacode/teamleader2db/internal/server"
	"github.com/viaacode/teamleader2db/internal/sync"
	"github.com/viaacode/teamleader2db/internal/teamleader"
	"github.com/viaacode/teamleader2db/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	initLogger(cfg)

	pool, err := database.NewPool(cfg.GetDBConnString(),
		database.DefaultMaxConnections, database.DefaultMaxIdleTime, database.DefaultMaxLifetime)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := migrations.Up(pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	tokenRepo := postgres.NewTokenRepository(pool)
	resourceRepo := postgres.NewResourceRepository(pool)

	authManager := teamleader.NewAuthManager(teamleader.AuthConfig{
		AuthURI:      cfg.AuthURI,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Seed: domain.Credential{
			Code:         cfg.Code,
			AuthToken:    cfg.AuthToken,
			RefreshToken: cfg.RefreshToken,
		},
	}, tokenRepo)

	ctx := context.Background()
	if err := authManager.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize auth manager: %v", err)
	}

	client := teamleader.NewClient(cfg.APIURI, authManager, cfg.RateLimitWait)
	syncService := sync.NewService(client, resourceRepo, cfg.PageSize)
	exportService := export.NewService(resourceRepo, cfg.ExportPath)

	syncRunner := worker.NewRunner("teamleader-sync")
	exportRunner := worker.NewRunner("contacts-export")

	syncHandler := handler.NewSyncHandler(syncService, syncRunner, authManager)
	exportHandler := handler.NewExportHandler(exportService, exportRunner)

	srv := server.NewServer(cfg.Port, pool, syncHandler, exportHandler)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	if err := syncRunner.Shutdown(shutdownCtx); err != nil {
		slog.Error("Sync job shutdown timed out", "error", err)
	}
	if err := exportRunner.Shutdown(shutdownCtx); err != nil {
		slog.Error("Export job shutdown timed out", "error", err)
	}

	slog.Info("Shutdown complete")
}
