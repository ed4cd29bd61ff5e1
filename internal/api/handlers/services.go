package handlers

import (
	"context"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
)

// The handlers depend on these narrow views of the services so they can be
// tested without a database.

type WorkspaceService interface {
	List(ctx context.Context) ([]domain.Workspace, error)
	Create(ctx context.Context, slug, name string) (*domain.Workspace, error)
	Delete(ctx context.Context, slug string, force bool) (domain.WorkspaceCounts, error)
}

type IngestService interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*service.IngestResult, error)
}

type KPIService interface {
	Summary(ctx context.Context, p service.KPIParams) (*service.Summary, error)
	ReturnsTrend(ctx context.Context, p service.KPIParams) (*service.Trend, error)
	TopReturnStyles(ctx context.Context, p service.KPIParams, minOrders int64, topN int) (*service.TopReturns, error)
	TopReturnSKUs(ctx context.Context, p service.KPIParams, minOrders int64, topN int) (*service.TopReturns, error)
	ReturnReasons(ctx context.Context, p service.KPIParams, topN int) (*service.ReasonBreakdown, error)
	ReturnsHeatmap(ctx context.Context, req service.HeatmapRequest) (*service.Heatmap, error)
	ReturnsCohort(ctx context.Context, p service.KPIParams) (*service.Cohort, error)
}

type CatalogService interface {
	Brands(ctx context.Context, workspaceSlug string, p portal.Portal) (*service.Brands, error)
	ZeroSalesSinceLive(ctx context.Context, req service.ZeroSalesRequest) (*service.ZeroSales, error)
}

type RollupService interface {
	Refresh(ctx context.Context, workspaceSlug string, months []string, full bool) (*service.RefreshResult, error)
	StyleMonthly(ctx context.Context, q service.StyleMonthlyQuery) (*service.StyleMonthlyResponse, error)
}

type ForecastService interface {
	Forecast(ctx context.Context, req service.ForecastRequest) (*service.ForecastResponse, error)
}

type ActionService interface {
	Board(ctx context.Context, req service.BoardRequest) (*service.Board, error)
}
