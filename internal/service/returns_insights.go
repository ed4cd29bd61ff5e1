package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

const (
	DefaultHeatmapReasons = 10
	DefaultHeatmapRows    = 30
	maxHeatmapReasons     = 10
	minHeatmapRows        = 5
	maxHeatmapRows        = 200
)

// HeatmapRequest selects a reason heatmap. By is GroupStyle or GroupSKU.
type HeatmapRequest struct {
	KPIParams
	By         attribution.GroupBy
	TopReasons int
	TopRows    int
}

type HeatmapRow struct {
	Key         string `json:"key"`
	StyleKey    string `json:"style_key"`
	Brand       string `json:"brand"`
	ProductName string `json:"product_name"`
	Orders      int64  `json:"orders"`
	ReturnUnits int64  `json:"returns_units"`
}

// Heatmap is a rows x reasons matrix of returned units. MatrixPct divides by
// the row's orders in the window and is null where the row has none.
type Heatmap struct {
	WorkspaceSlug string              `json:"workspace_slug"`
	Window        WindowJSON          `json:"window"`
	Portal        string              `json:"portal"`
	RowDim        attribution.GroupBy `json:"row_dim"`
	TopReasons    int                 `json:"top_reasons"`
	TopRows       int                 `json:"top_rows"`
	Rows          []HeatmapRow        `json:"rows"`
	Cols          []string            `json:"cols"`
	MatrixUnits   [][]int64           `json:"matrix_units"`
	MatrixPct     [][]*float64        `json:"matrix_pct"`
}

func (r *HeatmapRequest) validate() error {
	if r.By != attribution.GroupStyle && r.By != attribution.GroupSKU {
		return domain.NewValidationError("row_dim", "must be style or sku, got %q", r.By)
	}
	if r.TopReasons == 0 {
		r.TopReasons = DefaultHeatmapReasons
	}
	if r.TopRows == 0 {
		r.TopRows = DefaultHeatmapRows
	}
	if r.TopReasons < 1 || r.TopReasons > maxHeatmapReasons {
		return domain.NewValidationError("top_reasons", "must be between 1 and %d", maxHeatmapReasons)
	}
	if r.TopRows < minHeatmapRows || r.TopRows > maxHeatmapRows {
		return domain.NewValidationError("top_rows", "must be between %d and %d", minHeatmapRows, maxHeatmapRows)
	}
	return nil
}

// ReturnsHeatmap crosses the top returned styles or SKUs with the top reason
// buckets. Returns are counted by return date.
func (s *KPIService) ReturnsHeatmap(ctx context.Context, req HeatmapRequest) (*Heatmap, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	req.Mode = attribution.Overall
	ws, q, styles, err := s.prepare(ctx, req.KPIParams, req.By)
	if err != nil {
		return nil, err
	}

	params := req.cacheParams(map[string]string{
		"top_reasons": strconv.Itoa(req.TopReasons),
		"top_rows":    strconv.Itoa(req.TopRows),
	})
	return cached(ctx, s.cache, ws.ID, "heatmap-"+string(req.By), params, func() (*Heatmap, error) {
		out := &Heatmap{
			WorkspaceSlug: ws.Slug,
			Window:        windowJSON(q.Window),
			Portal:        q.Portal.String(),
			RowDim:        req.By,
			TopReasons:    req.TopReasons,
			TopRows:       req.TopRows,
			Rows:          []HeatmapRow{},
			Cols:          []string{},
			MatrixUnits:   [][]int64{},
			MatrixPct:     [][]*float64{},
		}
		if noMatch(styles) {
			return out, nil
		}

		var (
			cells  []domain.ReasonCell
			orders []attribution.OrderAgg
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			cells, err = s.repo.ReasonCells(gctx, q, styles)
			return err
		})
		g.Go(func() error {
			var err error
			orders, err = s.repo.Orders(gctx, q, styles)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		ordersByKey := make(map[string]int64, len(orders))
		for _, o := range orders {
			ordersByKey[o.Key] = o.Orders
		}
		s.fillHeatmap(out, cells, ordersByKey)

		rowStyles := make([]string, 0, len(out.Rows))
		for _, r := range out.Rows {
			if r.StyleKey != "" {
				rowStyles = append(rowStyles, r.StyleKey)
			}
		}
		meta, err := s.repo.StyleMeta(ctx, ws.ID, rowStyles)
		if err != nil {
			return nil, err
		}
		byStyle := make(map[string]domain.StyleMeta, len(meta))
		for _, m := range meta {
			byStyle[m.StyleKey] = m
		}
		for i := range out.Rows {
			if m, ok := byStyle[out.Rows[i].StyleKey]; ok {
				out.Rows[i].Brand = m.Brand
				out.Rows[i].ProductName = m.ProductName
			}
		}
		return out, nil
	})
}

// fillHeatmap picks the top reason buckets over all rows, then the top rows by
// units within those buckets, and lays out both matrices.
func (s *KPIService) fillHeatmap(out *Heatmap, cells []domain.ReasonCell, orders map[string]int64) {
	type cellKey struct{ row, reason string }

	bucketed := make(map[cellKey]int64)
	reasonTotals := make(map[string]int64)
	styleOf := make(map[string]string)
	for _, c := range cells {
		bucket := s.reasons.Classify(c.Reason, c.ReturnType, portal.Portal(c.Portal))
		bucketed[cellKey{c.Key, bucket}] += c.Units
		reasonTotals[bucket] += c.Units
		if styleOf[c.Key] < c.StyleKey {
			styleOf[c.Key] = c.StyleKey
		}
	}

	reasons := topKeys(reasonTotals, out.TopReasons)
	keep := make(map[string]bool, len(reasons))
	for _, r := range reasons {
		keep[r] = true
	}

	rowTotals := make(map[string]int64)
	for k, units := range bucketed {
		if keep[k.reason] {
			rowTotals[k.row] += units
		}
	}
	rows := topKeys(rowTotals, out.TopRows)

	out.Cols = reasons
	for _, key := range rows {
		o := orders[key]
		out.Rows = append(out.Rows, HeatmapRow{
			Key:         key,
			StyleKey:    styleOf[key],
			Orders:      o,
			ReturnUnits: rowTotals[key],
		})
		units := make([]int64, len(reasons))
		pcts := make([]*float64, len(reasons))
		for j, reason := range reasons {
			units[j] = bucketed[cellKey{key, reason}]
			pcts[j] = attribution.ReturnPct(units[j], o)
		}
		out.MatrixUnits = append(out.MatrixUnits, units)
		out.MatrixPct = append(out.MatrixPct, pcts)
	}
}

// topKeys orders keys by total descending, then by name, and keeps n.
func topKeys(totals map[string]int64, n int) []string {
	keys := make([]string, 0, len(totals))
	for k, v := range totals {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if totals[keys[i]] != totals[keys[j]] {
			return totals[keys[i]] > totals[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

type CohortRow struct {
	SaleMonth         string   `json:"sale_month"`
	ReturnMonth       string   `json:"return_month"`
	MonthsAfterSale   int      `json:"months_after_sale"`
	SaleMonthOrders   int64    `json:"sale_month_orders"`
	ReturnsTotalUnits int64    `json:"returns_units"`
	ReturnUnits       int64    `json:"return_units"`
	RTOUnits          int64    `json:"rto_units"`
	ReturnPct         *float64 `json:"return_pct"`
}

type Cohort struct {
	WorkspaceSlug string      `json:"workspace_slug"`
	Window        WindowJSON  `json:"window"`
	Portal        string      `json:"portal"`
	Rows          []CohortRow `json:"rows"`
}

// ReturnsCohort attributes returns to the month their order line sold in.
// Both the sale and the return must fall inside the window. ReturnPct is over
// the orders of the sale month.
func (s *KPIService) ReturnsCohort(ctx context.Context, p KPIParams) (*Cohort, error) {
	p.Mode = attribution.Overall
	ws, q, styles, err := s.prepare(ctx, p, attribution.GroupMonth)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s.cache, ws.ID, "returns-cohort", p.cacheParams(nil), func() (*Cohort, error) {
		out := &Cohort{
			WorkspaceSlug: ws.Slug,
			Window:        windowJSON(q.Window),
			Portal:        q.Portal.String(),
			Rows:          []CohortRow{},
		}
		if noMatch(styles) {
			return out, nil
		}

		var (
			cells  []domain.CohortCell
			orders []attribution.OrderAgg
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			cells, err = s.repo.Cohort(gctx, q, styles)
			return err
		})
		g.Go(func() error {
			var err error
			orders, err = s.repo.Orders(gctx, q, styles)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		monthOrders := make(map[string]int64, len(orders))
		for _, o := range orders {
			monthOrders[o.Key] = o.Orders
		}
		for _, c := range cells {
			o := monthOrders[c.SaleMonth]
			out.Rows = append(out.Rows, CohortRow{
				SaleMonth:         c.SaleMonth,
				ReturnMonth:       c.ReturnMonth,
				MonthsAfterSale:   monthsBetween(c.SaleMonth, c.ReturnMonth),
				SaleMonthOrders:   o,
				ReturnsTotalUnits: c.ReturnsTotal,
				ReturnUnits:       c.ReturnUnits,
				RTOUnits:          c.RTOUnits,
				ReturnPct:         attribution.ReturnPct(c.ReturnsTotal, o),
			})
		}
		return out, nil
	})
}

// monthsBetween counts calendar months from one YYYY-MM to another.
func monthsBetween(from, to string) int {
	a, err := time.Parse("2006-01", from)
	if err != nil {
		return 0
	}
	b, err := time.Parse("2006-01", to)
	if err != nil {
		return 0
	}
	return (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
}
