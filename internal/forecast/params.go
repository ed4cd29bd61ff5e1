package forecast

import "math"

// Bounds for forecast inputs. Out-of-range values are clamped, not rejected.
const (
	MinForecastDays    = 1
	MaxForecastDays    = 120
	MaxSalesDays       = 31
	MinSpikeMultiplier = 0.5
	MaxSpikeMultiplier = 20.0
	MaxLeadTimeDays    = 120
	MaxTargetCoverDays = 180
	MaxSafetyStockPct  = 500.0

	// LowStockDays is the days-of-cover threshold for LOW_STOCK.
	LowStockDays = 7.0
)

type Params struct {
	ForecastDays    int     `json:"forecast_days"`
	SalesDays       int     `json:"sales_days"`
	SpikeMultiplier float64 `json:"spike_multiplier"`
	LeadTimeDays    int     `json:"lead_time_days"`
	TargetCoverDays int     `json:"target_cover_days"`
	SafetyStockPct  float64 `json:"safety_stock_pct"`
	ExcludeRTO      bool    `json:"exclude_rto"`
}

func DefaultParams() Params {
	return Params{
		ForecastDays:    30,
		SpikeMultiplier: 1.0,
	}
}

// Clamped returns p with every field forced into its documented range.
// Sales days never exceed the horizon.
func (p Params) Clamped() Params {
	p.ForecastDays = clampInt(p.ForecastDays, MinForecastDays, MaxForecastDays)
	p.SalesDays = clampInt(p.SalesDays, 0, MaxSalesDays)
	if p.SalesDays > p.ForecastDays {
		p.SalesDays = p.ForecastDays
	}
	p.SpikeMultiplier = clampFloat(p.SpikeMultiplier, MinSpikeMultiplier, MaxSpikeMultiplier)
	p.LeadTimeDays = clampInt(p.LeadTimeDays, 0, MaxLeadTimeDays)
	p.TargetCoverDays = clampInt(p.TargetCoverDays, 0, MaxTargetCoverDays)
	p.SafetyStockPct = clampFloat(p.SafetyStockPct, 0, MaxSafetyStockPct)
	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
