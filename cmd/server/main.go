// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/marketlens/backend-go/internal/api"
	"github.com/andresuchdata/marketlens/backend-go/internal/app"
	"github.com/andresuchdata/marketlens/backend-go/internal/config"
	"github.com/andresuchdata/marketlens/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetFormat(cfg.Server.LogFormat)
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := app.Migrate(cfg, true); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// Initialize database and services
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	router := api.NewRouter(&api.Services{
		Workspaces: application.Workspaces,
		Ingest:     application.Ingest,
		KPI:        application.KPI,
		Catalog:    application.Catalog,
		Rollups:    application.Rollups,
		Forecasts:  application.Forecasts,
		Actions:    application.Actions,
	}, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadMB:    cfg.Ingest.MaxUploadMB,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	stop()
	logger.Log.Info().Msg("Shutting down server...")

	// in-flight uploads get 30 seconds to commit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}
