// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/marketlens/backend-go/internal/cache"
	"github.com/andresuchdata/marketlens/backend-go/internal/config"
	"github.com/andresuchdata/marketlens/backend-go/internal/ingest"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
	"github.com/andresuchdata/marketlens/backend-go/internal/storage"
)

type App struct {
	Config *config.Config
	DB     *postgres.DB
	Cache  cache.KPICache
	Store  storage.ObjectStorage

	Workspaces *service.WorkspaceService
	Ingest     *service.IngestService
	KPI        *service.KPIService
	Catalog    *service.CatalogService
	Rollups    *service.RollupService
	Forecasts  *service.ForecastService
	Actions    *service.ActionService
}

// New connects to the database and builds every service. Redis and object
// storage are optional: when they cannot be reached the app runs without
// them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := postgres.NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, db), nil
}

// Build wires services on top of an open database.
func Build(ctx context.Context, cfg *config.Config, db *postgres.DB) *App {
	kpiCache, err := cache.NewKPICache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, kpi cache disabled")
		kpiCache = cache.NewNoopKPICache()
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Warn().Err(err).Msg("object storage unavailable, upload archiving disabled")
		store = storage.NewNoopStorage()
	}

	classifier := reason.NewClassifier(reason.DefaultTable())

	workspaceRepo := postgres.NewWorkspaceRepository(db)
	factRepo := postgres.NewFactRepository(db, cfg.Ingest.BatchSize)
	attributionRepo := postgres.NewAttributionRepository(db)
	rollupRepo := postgres.NewRollupRepository(db)
	forecastRepo := postgres.NewForecastRepository(db)
	actionRepo := postgres.NewActionRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)

	workspaces := service.NewWorkspaceService(workspaceRepo)

	return &App{
		Config:     cfg,
		DB:         db,
		Cache:      kpiCache,
		Store:      store,
		Workspaces: workspaces,
		Ingest: service.NewIngestService(db, workspaces, factRepo, rollupRepo,
			ingest.NewParser(classifier), kpiCache, store, cfg.Ingest.ArchivePrefix),
		KPI:       service.NewKPIService(workspaces, attributionRepo, classifier, kpiCache),
		Catalog:   service.NewCatalogService(workspaces, catalogRepo),
		Rollups:   service.NewRollupService(db, workspaces, rollupRepo, kpiCache),
		Forecasts: service.NewForecastService(workspaces, forecastRepo),
		Actions:   service.NewActionService(workspaces, actionRepo, attributionRepo),
	}
}

// Migrate applies (or, with up=false, rolls back) the embedded schema.
func Migrate(cfg *config.Config, up bool) error {
	if err := postgres.Migrate(cfg.Database.DSN(), up); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
