package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSize(t *testing.T) {
	tests := map[string]string{
		"mx-em-001-wine-l": "L",
		"ABC_RED_XL":       "XL",
		"fk:kurta-2xl":     "XXL",
		"kurta-3XL":        "XXXL",
		"dupatta-free":     "FREE",
		"plain":            NoSize,
		"item-42":          NoSize,
		"":                 NoSize,
		"tee--m":           "M",
	}
	for sku, want := range tests {
		assert.Equal(t, want, ExtractSize(sku), sku)
	}
}

func TestParamsClamped(t *testing.T) {
	p := Params{
		ForecastDays:    500,
		SalesDays:       40,
		SpikeMultiplier: 0.1,
		LeadTimeDays:    -3,
		TargetCoverDays: 1000,
		SafetyStockPct:  900,
	}.Clamped()

	assert.Equal(t, 120, p.ForecastDays)
	assert.Equal(t, 31, p.SalesDays)
	assert.Equal(t, 0.5, p.SpikeMultiplier)
	assert.Equal(t, 0, p.LeadTimeDays)
	assert.Equal(t, 180, p.TargetCoverDays)
	assert.Equal(t, 500.0, p.SafetyStockPct)

	p = Params{ForecastDays: 0, SalesDays: 10, SpikeMultiplier: 2}.Clamped()
	assert.Equal(t, 1, p.ForecastDays)
	assert.Equal(t, 1, p.SalesDays, "sales days never exceed the horizon")
}

func baseInput() Input {
	return Input{
		WindowDays: 30,
		Orders: map[string]int64{
			"tee-s": 30,
			"tee-m": 60,
			"tee-l": 0,
		},
		RTOUnits: map[string]int64{"tee-m": 15, "tee-xl": 4},
		Stock: map[string]int64{
			"tee-s":  10,
			"tee-m":  0,
			"tee-l":  50,
			"tee-xl": 5,
		},
		HasSnapshot: true,
		Bucketing:   BySize,
	}
}

func TestCalculateTotals(t *testing.T) {
	calc := NewCalculator()
	res := calc.Calculate(baseInput(), Params{
		ForecastDays:    30,
		SalesDays:       10,
		SpikeMultiplier: 2,
		LeadTimeDays:    10,
		TargetCoverDays: 20,
		SafetyStockPct:  10,
	})

	// 90 orders over 30 days -> 3/day; 20 base days + 10 spike days at 2x
	assert.Equal(t, int64(90), res.Totals.OrdersNet)
	assert.Equal(t, 3.0, res.Totals.AvgDaily)
	assert.Equal(t, 120.0, res.Totals.ForecastUnits)
	// 4/day * 30 cover days * 1.1
	assert.Equal(t, 132.0, res.Totals.RequiredOnHand)
	assert.Equal(t, int64(65), res.Totals.StockQty)
	assert.Equal(t, 67.0, res.Totals.GapQty)

	require.Len(t, res.Rows, 4)
	assert.Equal(t, []string{"S", "M", "L", "XL"}, bucketNames(res.Rows))

	s, m, l, xl := res.Rows[0], res.Rows[1], res.Rows[2], res.Rows[3]
	assert.Equal(t, 33.33, s.ShareOrders)
	assert.Equal(t, 44.0, s.RequiredQty)
	assert.Equal(t, 34.0, s.GapQty)
	assert.Equal(t, RiskOK, s.Risk, "10 units at 1/day is 10 days of cover")

	assert.Equal(t, 88.0, m.RequiredQty)
	assert.Equal(t, RiskOOS, m.Risk)

	assert.Equal(t, 0.0, l.RequiredQty, "no history means no allocated requirement")
	assert.Nil(t, l.DaysCover)
	assert.Equal(t, RiskOK, l.Risk)

	assert.Equal(t, 0.0, xl.GapQty)
}

func TestCalculateExcludeRTO(t *testing.T) {
	calc := NewCalculator()
	res := calc.Calculate(baseInput(), Params{ForecastDays: 30, ExcludeRTO: true, SpikeMultiplier: 1})

	assert.Equal(t, int64(90), res.Totals.OrdersGross)
	// RTO for XL has no matching orders and is not subtracted
	assert.Equal(t, int64(15), res.Totals.RTOUnitsSubtracted)
	assert.Equal(t, int64(75), res.Totals.OrdersNet)
}

func TestCalculateRiskPriority(t *testing.T) {
	calc := NewCalculator()
	in := Input{
		WindowDays: 10,
		Orders:     map[string]int64{"a-s": 20, "a-m": 20},
		Stock:      map[string]int64{"a-s": 5, "a-m": 100},
		Bucketing:  BySize,
	}

	res := calc.Calculate(in, DefaultParams())
	for _, r := range res.Rows {
		assert.Equal(t, RiskNoStockSnapshot, r.Risk, "snapshot missing wins over stock levels")
		assert.Equal(t, int64(0), r.StockQty)
	}

	in.HasSnapshot = true
	res = calc.Calculate(in, DefaultParams())
	byBucket := map[string]Row{}
	for _, r := range res.Rows {
		byBucket[r.Bucket] = r
	}
	assert.Equal(t, RiskLowStock, byBucket["S"].Risk, "5 units at 2/day")
	assert.Equal(t, RiskOK, byBucket["M"].Risk)
}

func TestCalculateBySKU(t *testing.T) {
	calc := NewCalculator()
	in := Input{
		WindowDays:  7,
		Orders:      map[string]int64{"Tee-Red-M": 7, "tee-red-l": 14},
		Stock:       map[string]int64{"tee-red-m": 1},
		HasSnapshot: true,
		Bucketing:   BySKU,
	}
	res := calc.Calculate(in, DefaultParams())
	assert.Equal(t, []string{"tee-red-l", "tee-red-m"}, bucketNames(res.Rows))
	assert.Equal(t, RiskOOS, res.Rows[0].Risk)
	assert.Equal(t, RiskLowStock, res.Rows[1].Risk)
}

func TestGapMonotonicity(t *testing.T) {
	calc := NewCalculator()
	base := Params{ForecastDays: 30, SpikeMultiplier: 1.5, SalesDays: 5, LeadTimeDays: 7, SafetyStockPct: 20}

	prev := -1.0
	for cover := 0; cover <= 180; cover += 15 {
		p := base
		p.TargetCoverDays = cover
		gap := calc.Calculate(baseInput(), p).Totals.GapQty
		assert.GreaterOrEqual(t, gap, prev, "cover=%d", cover)
		prev = gap
	}

	p := base
	p.TargetCoverDays = 60
	prev = -1
	for extra := int64(200); extra >= 0; extra -= 20 {
		in := baseInput()
		in.Stock["tee-s"] += extra
		gap := calc.Calculate(in, p).Totals.GapQty
		assert.GreaterOrEqual(t, gap, prev, "less stock never shrinks the gap (extra=%d)", extra)
		prev = gap
	}
}

func bucketNames(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Bucket)
	}
	return out
}
