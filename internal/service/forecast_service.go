package service

import (
	"context"
	"strings"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/forecast"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

type ForecastRequest struct {
	WorkspaceSlug string
	StyleKey      string
	Window        attribution.Window
	Brand         string
	Bucketing     forecast.Bucketing
	Params        forecast.Params
}

type ForecastResponse struct {
	WorkspaceSlug string             `json:"workspace_slug"`
	StyleKey      string             `json:"style_key"`
	Brand         string             `json:"brand,omitempty"`
	Window        WindowJSON         `json:"window"`
	Bucketing     forecast.Bucketing `json:"bucketing"`
	CatalogSKUs   []string           `json:"catalog_skus"`
	HasSnapshot   bool               `json:"has_stock_snapshot"`
	forecast.Result
}

type ForecastService struct {
	workspaces *WorkspaceService
	repo       repository.ForecastRepository
	calc       *forecast.Calculator
}

func NewForecastService(workspaces *WorkspaceService, repo repository.ForecastRepository) *ForecastService {
	return &ForecastService{workspaces: workspaces, repo: repo, calc: forecast.NewCalculator()}
}

// Forecast computes the required on-hand quantity for one style, allocated
// across sizes or SKUs by their share of window orders.
func (s *ForecastService) Forecast(ctx context.Context, req ForecastRequest) (*ForecastResponse, error) {
	styleKey := strings.ToLower(strings.TrimSpace(req.StyleKey))
	if styleKey == "" {
		return nil, domain.NewValidationError("style_key", "is required")
	}
	if err := req.Window.Validate(); err != nil {
		return nil, err
	}
	switch req.Bucketing {
	case forecast.BySize, forecast.BySKU:
	default:
		return nil, domain.NewValidationError("bucketing", "unsupported bucketing %q", req.Bucketing)
	}

	ws, err := s.workspaces.Resolve(ctx, req.WorkspaceSlug)
	if err != nil {
		return nil, err
	}

	in, err := s.repo.Inputs(ctx, ws.ID, styleKey, req.Window, req.Brand)
	if err != nil {
		return nil, err
	}

	result := s.calc.Calculate(forecast.Input{
		WindowDays:  req.Window.Days(),
		Orders:      in.Orders,
		RTOUnits:    in.RTOUnits,
		Stock:       in.Stock,
		HasSnapshot: in.HasSnapshot,
		Bucketing:   req.Bucketing,
	}, req.Params)

	return &ForecastResponse{
		WorkspaceSlug: ws.Slug,
		StyleKey:      styleKey,
		Brand:         strings.TrimSpace(req.Brand),
		Window:        windowJSON(req.Window),
		Bucketing:     req.Bucketing,
		CatalogSKUs:   in.CatalogSKUs,
		HasSnapshot:   in.HasSnapshot,
		Result:        result,
	}, nil
}
