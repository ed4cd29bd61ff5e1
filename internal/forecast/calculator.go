// Package forecast turns a historical order window and the latest stock
// snapshot into a required-on-hand quantity and a shortfall per size or SKU.
package forecast

import (
	"math"
	"sort"
	"strings"
)

// Bucketing selects the granularity of forecast rows.
type Bucketing string

const (
	BySize Bucketing = "size"
	BySKU  Bucketing = "sku"
)

// Risk labels, in priority order.
const (
	RiskNoStockSnapshot = "NO_STOCK_SNAPSHOT"
	RiskOOS             = "OOS"
	RiskLowStock        = "LOW_STOCK"
	RiskOK              = "OK"
)

// Input is the demand and stock observed for one style. Map keys are
// normalized seller SKU codes.
type Input struct {
	WindowDays  int
	Orders      map[string]int64
	RTOUnits    map[string]int64
	Stock       map[string]int64
	HasSnapshot bool
	Bucketing   Bucketing
}

type Row struct {
	Bucket         string   `json:"bucket"`
	Orders         int64    `json:"orders"`
	ShareOrders    float64  `json:"share_orders"`
	StockQty       int64    `json:"stock_qty"`
	AvgDailyOrders float64  `json:"avg_daily_orders"`
	DaysCover      *float64 `json:"days_cover"`
	Risk           string   `json:"risk"`
	RequiredQty    float64  `json:"required_qty"`
	GapQty         float64  `json:"gap_qty"`
}

type Totals struct {
	OrdersGross        int64   `json:"orders_gross"`
	RTOUnitsSubtracted int64   `json:"rto_units_subtracted"`
	OrdersNet          int64   `json:"orders_net"`
	StockQty           int64   `json:"stock_qty"`
	AvgDaily           float64 `json:"avg_daily"`
	ForecastUnits      float64 `json:"forecast_units"`
	RequiredOnHand     float64 `json:"required_on_hand"`
	GapQty             float64 `json:"gap_qty"`
}

type Result struct {
	Params     Params `json:"inputs"`
	WindowDays int    `json:"window_days"`
	Totals     Totals `json:"totals"`
	Rows       []Row  `json:"rows"`
}

// Calculator applies the two-regime demand model to style inputs.
type Calculator struct {
	lowStockDays float64
}

func NewCalculator() *Calculator {
	return &Calculator{lowStockDays: LowStockDays}
}

// Calculate computes the forecast. Params are clamped first.
func (c *Calculator) Calculate(in Input, params Params) Result {
	p := params.Clamped()
	windowDays := in.WindowDays
	if windowDays < 1 {
		windowDays = 1
	}
	bucketOf := bucketFunc(in.Bucketing)

	// 1. Demand per bucket, optionally net of RTO units in the same window
	orders := make(map[string]int64)
	for sku, n := range in.Orders {
		if strings.TrimSpace(sku) == "" {
			continue
		}
		orders[bucketOf(sku)] += n
	}
	var gross int64
	for _, n := range orders {
		gross += n
	}

	var rtoSubtracted int64
	if p.ExcludeRTO {
		rto := make(map[string]int64)
		for sku, n := range in.RTOUnits {
			if n > 0 && strings.TrimSpace(sku) != "" {
				rto[bucketOf(sku)] += n
			}
		}
		for b, n := range rto {
			have, ok := orders[b]
			if !ok {
				continue
			}
			take := n
			if take > have {
				take = have
			}
			orders[b] = have - take
			rtoSubtracted += take
		}
	}

	var net int64
	for _, n := range orders {
		net += n
	}

	// 2. Stock per bucket from the latest snapshot
	stock := make(map[string]int64)
	if in.HasSnapshot {
		for sku, q := range in.Stock {
			if strings.TrimSpace(sku) == "" {
				continue
			}
			stock[bucketOf(sku)] += q
		}
	}
	var totalStock int64
	for _, q := range stock {
		totalStock += q
	}

	// 3. Two-regime forecast over the horizon
	avgDaily := float64(net) / float64(windowDays)
	baseDays := p.ForecastDays - p.SalesDays
	forecastUnits := avgDaily*float64(baseDays) + avgDaily*p.SpikeMultiplier*float64(p.SalesDays)
	forecastUnits = math.Max(0, forecastUnits)
	forecastAvgDaily := forecastUnits / float64(p.ForecastDays)

	// 4. Required on hand and the style-level gap
	coverDays := float64(p.LeadTimeDays + p.TargetCoverDays)
	requiredOnHand := math.Max(0, forecastAvgDaily*coverDays*(1+p.SafetyStockPct/100))
	gap := math.Max(0, requiredOnHand-float64(totalStock))

	// 5. Allocate the requirement by share of historical orders
	buckets := make(map[string]struct{})
	for b := range orders {
		buckets[b] = struct{}{}
	}
	for b := range stock {
		buckets[b] = struct{}{}
	}

	rows := make([]Row, 0, len(buckets))
	for b := range buckets {
		o := orders[b]
		q := stock[b]

		share := 0.0
		required := 0.0
		if net > 0 {
			share = float64(o) / float64(net)
			required = requiredOnHand * share
		}
		bucketAvg := float64(o) / float64(windowDays)

		var daysCover *float64
		if bucketAvg > 0 {
			dc := roundFloat(float64(q)/bucketAvg, 2)
			daysCover = &dc
		}

		rows = append(rows, Row{
			Bucket:         b,
			Orders:         o,
			ShareOrders:    roundFloat(share*100, 2),
			StockQty:       q,
			AvgDailyOrders: roundFloat(bucketAvg, 4),
			DaysCover:      daysCover,
			Risk:           c.risk(in.HasSnapshot, q, bucketAvg),
			RequiredQty:    roundFloat(required, 2),
			GapQty:         roundFloat(math.Max(0, required-float64(q)), 2),
		})
	}
	sortRows(rows, in.Bucketing)

	return Result{
		Params:     p,
		WindowDays: windowDays,
		Totals: Totals{
			OrdersGross:        gross,
			RTOUnitsSubtracted: rtoSubtracted,
			OrdersNet:          net,
			StockQty:           totalStock,
			AvgDaily:           roundFloat(avgDaily, 4),
			ForecastUnits:      roundFloat(forecastUnits, 2),
			RequiredOnHand:     roundFloat(requiredOnHand, 2),
			GapQty:             roundFloat(gap, 2),
		},
		Rows: rows,
	}
}

func (c *Calculator) risk(hasSnapshot bool, stock int64, avgDaily float64) string {
	switch {
	case !hasSnapshot:
		return RiskNoStockSnapshot
	case stock <= 0:
		return RiskOOS
	case avgDaily > 0 && float64(stock)/avgDaily < c.lowStockDays:
		return RiskLowStock
	default:
		return RiskOK
	}
}

func bucketFunc(b Bucketing) func(string) string {
	if b == BySKU {
		return func(sku string) string { return strings.ToLower(strings.TrimSpace(sku)) }
	}
	return ExtractSize
}

func sortRows(rows []Row, b Bucketing) {
	sort.Slice(rows, func(i, j int) bool {
		if b != BySKU {
			ri, rj := SizeRank(rows[i].Bucket), SizeRank(rows[j].Bucket)
			if ri != rj {
				return ri < rj
			}
		}
		return rows[i].Bucket < rows[j].Bucket
	})
}

// Compute runs the default calculator.
func Compute(in Input, params Params) Result {
	return NewCalculator().Calculate(in, params)
}
