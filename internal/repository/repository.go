// Package repository declares the storage contracts used by the services.
// The PostgreSQL implementations live in repository/postgres.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

type WorkspaceRepository interface {
	// Resolve returns the workspace for slug, creating it on first reference.
	Resolve(ctx context.Context, slug string) (*domain.Workspace, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Workspace, error)
	List(ctx context.Context) ([]domain.Workspace, error)
	Create(ctx context.Context, slug, name string) (*domain.Workspace, error)
	Counts(ctx context.Context, id uuid.UUID) (domain.WorkspaceCounts, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FactTable names a raw fact table that uploads can replace.
type FactTable string

const (
	SalesTable      FactTable = "sales_raw"
	ReturnsTable    FactTable = "returns_raw"
	CatalogTable    FactTable = "catalog_raw"
	StockTable      FactTable = "stock_raw"
	WeeklyPerfTable FactTable = "myntra_weekly_perf_raw"
	TrafficTable    FactTable = "flipkart_traffic_raw"
)

// FactRepository writes raw facts. Every method runs on the caller's
// transaction so an upload commits or rolls back as a whole.
type FactRepository interface {
	// DeletePortal removes the workspace rows of table that belong to p.
	DeletePortal(ctx context.Context, tx sqlx.ExtContext, table FactTable, workspaceID uuid.UUID, p portal.Portal) (int64, error)
	InsertSales(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.SalesRow) (int64, error)
	InsertReturns(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.ReturnRow) (int64, error)
	UpsertCatalog(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.CatalogRow) (int64, error)
	InsertStock(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.StockRow, at time.Time) (int64, error)
	InsertWeeklyPerf(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.WeeklyPerfRow, at time.Time) (int64, error)
	InsertTraffic(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.TrafficRow, at time.Time) (int64, error)
}

// CatalogRepository reads catalog_raw on its own and against sales.
type CatalogRepository interface {
	Brands(ctx context.Context, workspaceID uuid.UUID, p portal.Portal) ([]string, error)
	// ZeroSales lists styles live for at least minDaysLive days on asOf
	// that have no order at all. Brand is matched case-insensitively on catalog_raw.brand.
	ZeroSales(ctx context.Context, workspaceID uuid.UUID, q ZeroSalesQuery) ([]domain.ZeroSalesStyle, error)
}

type ZeroSalesQuery struct {
	AsOf        time.Time
	MinDaysLive int
	Portal      portal.Portal
	Brand       string
	Limit       int
	Ascending   bool
}

// AttributionRepository aggregates orders and returns. styles is the resolved
// brand filter: nil means no brand filter, an empty slice matches nothing.
type AttributionRepository interface {
	BrandStyles(ctx context.Context, workspaceID uuid.UUID, brand string) ([]string, error)
	Orders(ctx context.Context, q attribution.Query, styles []string) ([]attribution.OrderAgg, error)
	Returns(ctx context.Context, q attribution.Query, styles []string) ([]attribution.ReturnAgg, error)
	PriceUnits(ctx context.Context, q attribution.Query, styles []string) ([]domain.PriceUnits, error)
	ReasonUnits(ctx context.Context, q attribution.Query, styles []string) ([]domain.ReasonUnits, error)
	// ReasonCells groups returned units by q.GroupBy (style or sku), raw
	// reason and return type.
	ReasonCells(ctx context.Context, q attribution.Query, styles []string) ([]domain.ReasonCell, error)
	// Cohort joins returns to their order lines and counts them by sale month
	// and return month. Both dates must fall inside the window.
	Cohort(ctx context.Context, q attribution.Query, styles []string) ([]domain.CohortCell, error)
	StyleMeta(ctx context.Context, workspaceID uuid.UUID, styles []string) ([]domain.StyleMeta, error)
}

type RollupRepository interface {
	// Refresh rebuilds style_monthly for months, or for every month when full
	// is set.
	Refresh(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, months []time.Time, full bool) (int64, error)
	List(ctx context.Context, workspaceID uuid.UUID, from, to time.Time, styleKey string, p portal.Portal) ([]domain.StyleMonthly, error)
}

type ForecastRepository interface {
	Inputs(ctx context.Context, workspaceID uuid.UUID, styleKey string, w attribution.Window, brand string) (*domain.ForecastInputs, error)
}

type ActionRepository interface {
	Signals(ctx context.Context, workspaceID uuid.UUID, asOf time.Time, p portal.Portal, styles []string) ([]domain.BoardSignals, error)
}
