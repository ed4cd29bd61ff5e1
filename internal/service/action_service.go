package service

import (
	"context"
	"time"

	"github.com/andresuchdata/marketlens/backend-go/internal/action"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

type BoardRequest struct {
	WorkspaceSlug string
	// AsOf is the last day of the recent window; zero means today (UTC).
	AsOf        time.Time
	Portal      portal.Portal
	Brand       string
	Thresholds  action.Thresholds
	InStockOnly bool
	TopN        int
}

type BoardRow struct {
	Key             string     `json:"key"`
	Portal          string     `json:"portal"`
	Brand           string     `json:"brand,omitempty"`
	ProductName     string     `json:"product_name,omitempty"`
	Tag             action.Tag `json:"tag"`
	Why             string     `json:"why"`
	Orders30d       int64      `json:"orders_30d"`
	OrdersPrev30d   int64      `json:"orders_prev_30d"`
	Momentum        float64    `json:"momentum"`
	ReturnsTotal30d int64      `json:"returns_total_30d"`
	ReturnUnits30d  int64      `json:"return_units_30d"`
	RTOUnits30d     int64      `json:"rto_units_30d"`
	ReturnPct30d    *float64   `json:"return_pct_30d"`
	LiveDate        *string    `json:"live_date"`
	AgeDays         *int       `json:"age_days"`
	OrdersSinceLive int64      `json:"orders_since_live"`
	Impressions     int64      `json:"impressions"`
	Clicks          int64      `json:"clicks"`
	StockQty        *int64     `json:"stock_qty"`
}

type Board struct {
	WorkspaceSlug string             `json:"workspace_slug"`
	AsOf          string             `json:"as_of"`
	Portal        string             `json:"portal"`
	Thresholds    action.Thresholds  `json:"thresholds"`
	Counts        map[action.Tag]int `json:"counts"`
	Rows          []BoardRow         `json:"rows"`
}

type ActionService struct {
	workspaces  *WorkspaceService
	signals     repository.ActionRepository
	attribution repository.AttributionRepository
}

func NewActionService(workspaces *WorkspaceService, signals repository.ActionRepository, attr repository.AttributionRepository) *ActionService {
	return &ActionService{workspaces: workspaces, signals: signals, attribution: attr}
}

// Board tags every catalog key as of req.AsOf and orders the result by tag
// urgency, then recent orders.
func (s *ActionService) Board(ctx context.Context, req BoardRequest) (*Board, error) {
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	th := req.Thresholds
	if th.HighReturnPct < 0 || th.HighReturnPct > 100 {
		return nil, domain.NewValidationError("high_return_pct", "must be between 0 and 100")
	}

	ws, err := s.workspaces.Resolve(ctx, req.WorkspaceSlug)
	if err != nil {
		return nil, err
	}

	board := &Board{
		WorkspaceSlug: ws.Slug,
		AsOf:          asOf.Format("2006-01-02"),
		Portal:        req.Portal.String(),
		Thresholds:    th,
		Counts:        map[action.Tag]int{},
		Rows:          []BoardRow{},
	}

	var styles []string
	if req.Brand != "" {
		styles, err = s.attribution.BrandStyles(ctx, ws.ID, req.Brand)
		if err != nil {
			return nil, err
		}
		if len(styles) == 0 {
			return board, nil
		}
	}

	signals, err := s.signals.Signals(ctx, ws.ID, asOf, req.Portal, styles)
	if err != nil {
		return nil, err
	}

	for _, sig := range signals {
		if req.InStockOnly && (!sig.HasStock || sig.StockQty <= 0) {
			continue
		}
		row := boardRow(sig, asOf, th)
		board.Counts[row.Tag]++
		board.Rows = append(board.Rows, row)
	}

	action.Sort(board.Rows, func(r BoardRow) (action.Tag, int64, string) {
		return r.Tag, r.Orders30d, r.Key
	})
	if req.TopN > 0 && len(board.Rows) > req.TopN {
		board.Rows = board.Rows[:req.TopN]
	}
	return board, nil
}

func boardRow(sig domain.BoardSignals, asOf time.Time, th action.Thresholds) BoardRow {
	p := portal.Portal(sig.Portal)
	if p == portal.All {
		p = portal.Infer(sig.Key)
	}

	s := action.Signals{
		Portal:        p,
		Orders30d:     sig.Orders30d,
		OrdersPrev30d: sig.OrdersPrev30d,
		// return percentage counts every return type
		ReturnUnits30d:     sig.ReturnsTotal30d,
		RTOUnits30d:        sig.RTOUnits30d,
		AgeDays:            ageDays(sig.LiveDate, asOf),
		OrdersSinceLive:    sig.OrdersSinceLive,
		Impressions:        sig.Impressions,
		HasTrafficSnapshot: sig.HasTrafficSnapshot,
	}
	tag, why := action.Classify(s, th)

	row := BoardRow{
		Key:             sig.Key,
		Portal:          string(p),
		Brand:           sig.Brand,
		ProductName:     sig.ProductName,
		Tag:             tag,
		Why:             why,
		Orders30d:       sig.Orders30d,
		OrdersPrev30d:   sig.OrdersPrev30d,
		Momentum:        roundPct(action.Momentum(sig.Orders30d, sig.OrdersPrev30d)),
		ReturnsTotal30d: sig.ReturnsTotal30d,
		ReturnUnits30d:  sig.ReturnUnits30d,
		RTOUnits30d:     sig.RTOUnits30d,
		AgeDays:         s.AgeDays,
		OrdersSinceLive: sig.OrdersSinceLive,
		Impressions:     sig.Impressions,
		Clicks:          sig.Clicks,
	}
	if pct := s.ReturnPct30d(); pct != nil {
		v := roundPct(*pct)
		row.ReturnPct30d = &v
	}
	if sig.LiveDate != nil {
		d := sig.LiveDate.Format("2006-01-02")
		row.LiveDate = &d
	}
	if sig.HasStock {
		qty := sig.StockQty
		row.StockQty = &qty
	}
	return row
}

// ageDays is whole days from the live date to asOf, never negative.
func ageDays(live *time.Time, asOf time.Time) *int {
	if live == nil {
		return nil
	}
	l := time.Date(live.Year(), live.Month(), live.Day(), 0, 0, 0, 0, time.UTC)
	days := int(asOf.Sub(l).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}
