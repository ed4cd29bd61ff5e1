package service

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/cache"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

const (
	DefaultTopN        = 50
	DefaultMinOrders   = 10
	DefaultReasonsTopN = 20
	maxTopN            = 1000
)

// KPIParams are the filters shared by every KPI endpoint.
type KPIParams struct {
	WorkspaceSlug string
	Window        attribution.Window
	Mode          attribution.Mode
	Brand         string
	Portal        portal.Portal
}

func (p KPIParams) cacheParams(extra map[string]string) map[string]string {
	m := map[string]string{
		"start":  p.Window.Start.Format("2006-01-02"),
		"end":    p.Window.End.Format("2006-01-02"),
		"mode":   string(p.Mode),
		"brand":  p.Brand,
		"portal": string(p.Portal),
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

type WindowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func windowJSON(w attribution.Window) WindowJSON {
	return WindowJSON{Start: w.Start.Format("2006-01-02"), End: w.End.Format("2006-01-02")}
}

type Summary struct {
	WorkspaceSlug     string           `json:"workspace_slug"`
	Window            WindowJSON       `json:"window"`
	ReturnMode        attribution.Mode `json:"return_mode"`
	Orders            int64            `json:"orders"`
	ReturnsTotalUnits int64            `json:"returns_total_units"`
	ReturnUnits       int64            `json:"return_units"`
	RTOUnits          int64            `json:"rto_units"`
	ReturnPct         *float64         `json:"return_pct"`
	ReturnOnlyPct     *float64         `json:"return_only_pct"`
	RTOPct            *float64         `json:"rto_pct"`
	GMV               decimal.Decimal  `json:"gmv"`
	PricedUnits       int64            `json:"priced_units"`
	ASP               *decimal.Decimal `json:"asp"`
}

type TrendPoint struct {
	Date              string   `json:"date"`
	Orders            int64    `json:"orders"`
	ReturnsTotalUnits int64    `json:"returns_total_units"`
	ReturnUnits       int64    `json:"return_units"`
	RTOUnits          int64    `json:"rto_units"`
	ReturnPct         *float64 `json:"return_pct"`
}

type Trend struct {
	WorkspaceSlug string           `json:"workspace_slug"`
	Window        WindowJSON       `json:"window"`
	ReturnMode    attribution.Mode `json:"return_mode"`
	Series        []TrendPoint     `json:"series"`
}

type TopReturns struct {
	WorkspaceSlug string              `json:"workspace_slug"`
	Window        WindowJSON          `json:"window"`
	ReturnMode    attribution.Mode    `json:"return_mode"`
	GroupBy       attribution.GroupBy `json:"group_by"`
	MinOrders     int64               `json:"min_orders"`
	TopN          int                 `json:"top_n"`
	Rows          []attribution.Row   `json:"rows"`
}

type ReasonRow struct {
	Reason            string  `json:"reason"`
	ReturnsTotalUnits int64   `json:"returns_units"`
	ReturnUnits       int64   `json:"return_units"`
	RTOUnits          int64   `json:"rto_units"`
	PctOfTotal        float64 `json:"pct_of_total"`
}

type ReasonBreakdown struct {
	WorkspaceSlug string      `json:"workspace_slug"`
	Window        WindowJSON  `json:"window"`
	Portal        string      `json:"portal"`
	TotalUnits    int64       `json:"total_units"`
	TopN          int         `json:"top_n"`
	Rows          []ReasonRow `json:"rows"`
}

type KPIService struct {
	workspaces *WorkspaceService
	repo       repository.AttributionRepository
	reasons    *reason.Classifier
	cache      cache.KPICache
}

func NewKPIService(workspaces *WorkspaceService, repo repository.AttributionRepository, reasons *reason.Classifier, kpiCache cache.KPICache) *KPIService {
	if kpiCache == nil {
		kpiCache = cache.NewNoopKPICache()
	}
	if reasons == nil {
		reasons = reason.NewClassifier(reason.DefaultTable())
	}
	return &KPIService{workspaces: workspaces, repo: repo, reasons: reasons, cache: kpiCache}
}

// prepare validates p, resolves the workspace and the brand style set. A nil
// style set means no brand filter; an empty one means nothing matches.
func (s *KPIService) prepare(ctx context.Context, p KPIParams, g attribution.GroupBy) (*domain.Workspace, attribution.Query, []string, error) {
	ws, err := s.workspaces.Resolve(ctx, p.WorkspaceSlug)
	if err != nil {
		return nil, attribution.Query{}, nil, err
	}

	q := attribution.Query{
		WorkspaceID: ws.ID,
		Window:      p.Window,
		Mode:        p.Mode,
		GroupBy:     g,
		Brand:       p.Brand,
		Portal:      p.Portal,
	}
	if q.Mode == "" {
		q.Mode = attribution.Overall
	}
	if err := q.Validate(); err != nil {
		return nil, attribution.Query{}, nil, err
	}

	var styles []string
	if q.NormalizedBrand() != "" {
		styles, err = s.repo.BrandStyles(ctx, ws.ID, q.Brand)
		if err != nil {
			return nil, attribution.Query{}, nil, err
		}
		if styles == nil {
			styles = []string{}
		}
	}
	return ws, q, styles, nil
}

func noMatch(styles []string) bool {
	return styles != nil && len(styles) == 0
}

// cached serves name from the KPI cache or computes and stores it. The
// generation is read before computing, so a result computed across an upload
// is stored under the superseded generation and never served.
func cached[T any](ctx context.Context, c cache.KPICache, workspaceID uuid.UUID, name string, params map[string]string, compute func() (*T, error)) (*T, error) {
	gen, err := c.Generation(ctx, workspaceID)
	if err != nil {
		log.Warn().Err(err).Str("kpi", name).Msg("kpi: cache generation failed, bypassing cache")
		return compute()
	}

	var hit T
	if ok, err := c.Get(ctx, workspaceID, gen, name, params, &hit); err != nil {
		log.Warn().Err(err).Str("kpi", name).Msg("kpi: cache get failed")
	} else if ok {
		return &hit, nil
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, workspaceID, gen, name, params, v); err != nil {
		log.Warn().Err(err).Str("kpi", name).Msg("kpi: cache set failed")
	}
	return v, nil
}

// aggregate runs the order and return aggregations concurrently and merges
// them per key.
func (s *KPIService) aggregate(ctx context.Context, q attribution.Query, styles []string) ([]attribution.Row, error) {
	if noMatch(styles) {
		return []attribution.Row{}, nil
	}

	var (
		orders  []attribution.OrderAgg
		returns []attribution.ReturnAgg
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.repo.Orders(gctx, q, styles)
		return err
	})
	g.Go(func() error {
		var err error
		returns, err = s.repo.Returns(gctx, q, styles)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attribution.Merge(orders, returns), nil
}

func (s *KPIService) Summary(ctx context.Context, p KPIParams) (*Summary, error) {
	ws, q, styles, err := s.prepare(ctx, p, attribution.GroupNone)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s.cache, ws.ID, "summary", p.cacheParams(nil), func() (*Summary, error) {
		var (
			rows   []attribution.Row
			prices []domain.PriceUnits
		)
		if !noMatch(styles) {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				rows, err = s.aggregate(gctx, q, styles)
				return err
			})
			g.Go(func() error {
				var err error
				prices, err = s.repo.PriceUnits(gctx, q, styles)
				return err
			})
			if err := g.Wait(); err != nil {
				return nil, err
			}
		}

		total := attribution.Total(rows)
		gmv, priced := GMV(prices)
		out := &Summary{
			WorkspaceSlug:     ws.Slug,
			Window:            windowJSON(q.Window),
			ReturnMode:        q.Mode,
			Orders:            total.Orders,
			ReturnsTotalUnits: total.ReturnsTotal,
			ReturnUnits:       total.ReturnUnits,
			RTOUnits:          total.RTOUnits,
			ReturnPct:         total.ReturnPct,
			ReturnOnlyPct:     attribution.ReturnPct(total.ReturnUnits, total.Orders),
			RTOPct:            attribution.ReturnPct(total.RTOUnits, total.Orders),
			GMV:               gmv,
			PricedUnits:       priced,
		}
		if priced > 0 {
			asp := gmv.Div(decimal.NewFromInt(priced)).Round(2)
			out.ASP = &asp
		}
		return out, nil
	})
}

// GMV sums price x units over rows whose price parses. Units without a usable
// price are excluded from the ASP denominator.
func GMV(rows []domain.PriceUnits) (decimal.Decimal, int64) {
	gmv := decimal.Zero
	var units int64
	for _, r := range rows {
		price, ok := domain.Attributes{domain.AttrSellerPrice: r.Price}.SellerPrice()
		if !ok || r.Units <= 0 {
			continue
		}
		gmv = gmv.Add(price.Mul(decimal.NewFromInt(r.Units)))
		units += r.Units
	}
	return gmv.Round(2), units
}

// ReturnsTrend is the daily series of orders and returns in the window.
// Returns are dated by return_date.
func (s *KPIService) ReturnsTrend(ctx context.Context, p KPIParams) (*Trend, error) {
	ws, q, styles, err := s.prepare(ctx, p, attribution.GroupDay)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s.cache, ws.ID, "returns-trend", p.cacheParams(nil), func() (*Trend, error) {
		rows, err := s.aggregate(ctx, q, styles)
		if err != nil {
			return nil, err
		}
		series := make([]TrendPoint, 0, len(rows))
		for _, r := range rows {
			series = append(series, TrendPoint{
				Date:              r.Key,
				Orders:            r.Orders,
				ReturnsTotalUnits: r.ReturnsTotal,
				ReturnUnits:       r.ReturnUnits,
				RTOUnits:          r.RTOUnits,
				ReturnPct:         r.ReturnPct,
			})
		}
		return &Trend{WorkspaceSlug: ws.Slug, Window: windowJSON(q.Window), ReturnMode: q.Mode, Series: series}, nil
	})
}

func (s *KPIService) TopReturnStyles(ctx context.Context, p KPIParams, minOrders int64, topN int) (*TopReturns, error) {
	return s.topReturns(ctx, p, attribution.GroupStyle, minOrders, topN)
}

func (s *KPIService) TopReturnSKUs(ctx context.Context, p KPIParams, minOrders int64, topN int) (*TopReturns, error) {
	return s.topReturns(ctx, p, attribution.GroupSKU, minOrders, topN)
}

func (s *KPIService) topReturns(ctx context.Context, p KPIParams, g attribution.GroupBy, minOrders int64, topN int) (*TopReturns, error) {
	if minOrders < 0 {
		minOrders = 0
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > maxTopN {
		topN = maxTopN
	}

	ws, q, styles, err := s.prepare(ctx, p, g)
	if err != nil {
		return nil, err
	}

	params := p.cacheParams(map[string]string{
		"min_orders": strconv.FormatInt(minOrders, 10),
		"top_n":      strconv.Itoa(topN),
	})
	return cached(ctx, s.cache, ws.ID, "top-"+string(g), params, func() (*TopReturns, error) {
		rows, err := s.aggregate(ctx, q, styles)
		if err != nil {
			return nil, err
		}
		return &TopReturns{
			WorkspaceSlug: ws.Slug,
			Window:        windowJSON(q.Window),
			ReturnMode:    q.Mode,
			GroupBy:       g,
			MinOrders:     minOrders,
			TopN:          topN,
			Rows:          attribution.Top(rows, minOrders, topN),
		}, nil
	})
}

// ReturnReasons buckets returned units in the window with the reason
// classifier and splits each bucket into customer returns and RTO.
func (s *KPIService) ReturnReasons(ctx context.Context, p KPIParams, topN int) (*ReasonBreakdown, error) {
	if topN <= 0 {
		topN = DefaultReasonsTopN
	}
	ws, q, styles, err := s.prepare(ctx, p, attribution.GroupNone)
	if err != nil {
		return nil, err
	}

	params := p.cacheParams(map[string]string{"top_n": strconv.Itoa(topN)})
	return cached(ctx, s.cache, ws.ID, "return-reasons", params, func() (*ReasonBreakdown, error) {
		var units []domain.ReasonUnits
		if !noMatch(styles) {
			units, err = s.repo.ReasonUnits(ctx, q, styles)
			if err != nil {
				return nil, err
			}
		}

		rows, total := s.bucketReasons(units)
		if len(rows) > topN {
			rows = rows[:topN]
		}
		return &ReasonBreakdown{
			WorkspaceSlug: ws.Slug,
			Window:        windowJSON(q.Window),
			Portal:        q.Portal.String(),
			TotalUnits:    total,
			TopN:          topN,
			Rows:          rows,
		}, nil
	})
}

func (s *KPIService) bucketReasons(units []domain.ReasonUnits) ([]ReasonRow, int64) {
	byBucket := make(map[string]*ReasonRow)
	var total int64
	for _, u := range units {
		bucket := s.reasons.Classify(u.Reason, u.ReturnType, portal.Portal(u.Portal))
		row, ok := byBucket[bucket]
		if !ok {
			row = &ReasonRow{Reason: bucket}
			byBucket[bucket] = row
		}
		row.ReturnsTotalUnits += u.Units
		switch attribution.ClassifyType(u.ReturnType) {
		case attribution.CustomerReturn:
			row.ReturnUnits += u.Units
		case attribution.RTO:
			row.RTOUnits += u.Units
		}
		total += u.Units
	}

	rows := make([]ReasonRow, 0, len(byBucket))
	for _, r := range byBucket {
		if total > 0 {
			r.PctOfTotal = roundPct(float64(r.ReturnsTotalUnits) * 100 / float64(total))
		}
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ReturnsTotalUnits != rows[j].ReturnsTotalUnits {
			return rows[i].ReturnsTotalUnits > rows[j].ReturnsTotalUnits
		}
		return rows[i].Reason < rows[j].Reason
	})
	return rows, total
}

func roundPct(v float64) float64 {
	return math.Round(v*100) / 100
}
