package service

import (
	"context"
	"time"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

const (
	DefaultZeroSalesMinDays = 7
	DefaultZeroSalesTopN    = 100
	maxZeroSalesTopN        = 1000
)

type Brands struct {
	WorkspaceSlug string   `json:"workspace_slug"`
	Portal        string   `json:"portal"`
	Brands        []string `json:"brands"`
}

type ZeroSalesRequest struct {
	WorkspaceSlug string
	Portal        portal.Portal
	Brand         string
	MinDaysLive   int
	TopN          int
	Ascending     bool
	// AsOf defaults to today (UTC).
	AsOf time.Time
}

type ZeroSales struct {
	WorkspaceSlug string         `json:"workspace_slug"`
	AsOf          string         `json:"as_of"`
	MinDaysLive   int            `json:"min_days_live"`
	Rows          []ZeroSalesRow `json:"rows"`
}

type ZeroSalesRow struct {
	domain.ZeroSalesStyle
	LiveDate string `json:"live_date"`
}

type CatalogService struct {
	workspaces *WorkspaceService
	repo       repository.CatalogRepository
}

func NewCatalogService(workspaces *WorkspaceService, repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{workspaces: workspaces, repo: repo}
}

func (s *CatalogService) Brands(ctx context.Context, workspaceSlug string, p portal.Portal) (*Brands, error) {
	ws, err := s.workspaces.Resolve(ctx, workspaceSlug)
	if err != nil {
		return nil, err
	}
	brands, err := s.repo.Brands(ctx, ws.ID, p)
	if err != nil {
		return nil, err
	}
	return &Brands{WorkspaceSlug: ws.Slug, Portal: p.String(), Brands: brands}, nil
}

// ZeroSalesSinceLive lists catalogued styles that have been live for at least
// MinDaysLive days and never recorded an order, oldest first unless Ascending.
func (s *CatalogService) ZeroSalesSinceLive(ctx context.Context, req ZeroSalesRequest) (*ZeroSales, error) {
	if req.MinDaysLive < 0 {
		return nil, domain.NewValidationError("min_days_live", "must not be negative")
	}
	if req.TopN <= 0 {
		req.TopN = DefaultZeroSalesTopN
	}
	if req.TopN > maxZeroSalesTopN {
		req.TopN = maxZeroSalesTopN
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now().UTC()
	}
	asOf := time.Date(req.AsOf.Year(), req.AsOf.Month(), req.AsOf.Day(), 0, 0, 0, 0, time.UTC)

	ws, err := s.workspaces.Resolve(ctx, req.WorkspaceSlug)
	if err != nil {
		return nil, err
	}

	styles, err := s.repo.ZeroSales(ctx, ws.ID, repository.ZeroSalesQuery{
		AsOf:        asOf,
		MinDaysLive: req.MinDaysLive,
		Portal:      req.Portal,
		Brand:       req.Brand,
		Limit:       req.TopN,
		Ascending:   req.Ascending,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]ZeroSalesRow, 0, len(styles))
	for _, st := range styles {
		rows = append(rows, ZeroSalesRow{ZeroSalesStyle: st, LiveDate: st.LiveDate.Format("2006-01-02")})
	}
	return &ZeroSales{
		WorkspaceSlug: ws.Slug,
		AsOf:          asOf.Format("2006-01-02"),
		MinDaysLive:   req.MinDaysLive,
		Rows:          rows,
	}, nil
}
