// Package action tags styles and SKUs for merchandising decisions from return
// rate, order momentum and catalog age.
package action

import (
	"sort"

	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

type Tag string

const (
	TagStop         Tag = "STOP (High Returns)"
	TagScale        Tag = "SCALE"
	TagTrending     Tag = "TRENDING PUSH"
	TagNewDiscovery Tag = "PUSH (New Discovery)"
	TagZeroSale     Tag = "PUSH (Zero-Sale)"
	TagWatch        Tag = "WATCH"
)

var tagRank = map[Tag]int{
	TagStop:         0,
	TagScale:        1,
	TagTrending:     2,
	TagNewDiscovery: 3,
	TagZeroSale:     4,
	TagWatch:        5,
}

// Rank orders tags by urgency, lowest first.
func (t Tag) Rank() int {
	if r, ok := tagRank[t]; ok {
		return r
	}
	return 99
}

// Thresholds configure the rules. HighReturnPct is a percentage (35 = 35%).
type Thresholds struct {
	MinOrders        int64   `json:"min_orders"`
	HighReturnPct    float64 `json:"high_return_pct"`
	TrendingMomentum float64 `json:"trending_momentum"`
	NewAgeDays       int     `json:"new_age_days"`
	RTOHeavyShare    float64 `json:"rto_heavy_share"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinOrders:        2,
		HighReturnPct:    35,
		TrendingMomentum: 0.2,
		NewAgeDays:       60,
		RTOHeavyShare:    0.6,
	}
}

// Signals are the observations for one style or SKU as of a reference date.
type Signals struct {
	Portal          portal.Portal
	Orders30d       int64
	OrdersPrev30d   int64
	ReturnUnits30d  int64
	RTOUnits30d     int64
	AgeDays         *int
	OrdersSinceLive int64
	Impressions     int64
	// HasTrafficSnapshot is true when a Myntra weekly performance snapshot
	// exists for the workspace, so zero impressions is a real observation.
	HasTrafficSnapshot bool
}

// Momentum compares the last 30 days of orders with the 30 days before. A
// first sale after an empty prior period counts as +100%.
func Momentum(current, previous int64) float64 {
	if previous > 0 {
		return float64(current-previous) / float64(previous)
	}
	if current > 0 {
		return 1.0
	}
	return 0.0
}

// ReturnPct30d is total returns over orders in percent, nil without orders.
func (s Signals) ReturnPct30d() *float64 {
	if s.Orders30d <= 0 {
		return nil
	}
	pct := float64(s.ReturnUnits30d) * 100 / float64(s.Orders30d)
	return &pct
}

// RTOShare is the fraction of returned units that were RTO, nil without returns.
func (s Signals) RTOShare() *float64 {
	if s.ReturnUnits30d <= 0 {
		return nil
	}
	share := float64(s.RTOUnits30d) / float64(s.ReturnUnits30d)
	return &share
}

// Classify assigns exactly one tag, evaluating rules in priority order, and a
// short explanation.
func Classify(s Signals, th Thresholds) (Tag, string) {
	pct := s.ReturnPct30d()
	enoughOrders := s.Orders30d >= th.MinOrders && s.Orders30d > 0

	switch {
	case enoughOrders && pct != nil && *pct >= th.HighReturnPct:
		if share := s.RTOShare(); share != nil && *share >= th.RTOHeavyShare {
			return TagStop, "High returns, RTO heavy"
		}
		return TagStop, "High returns, post-delivery returns"
	case enoughOrders && pct != nil && *pct < th.HighReturnPct:
		return TagScale, "Good orders and low returns"
	case s.Orders30d > 0 && Momentum(s.Orders30d, s.OrdersPrev30d) >= th.TrendingMomentum:
		return TagTrending, "Momentum up and demand building"
	case s.Portal == portal.Myntra && s.HasTrafficSnapshot && s.AgeDays != nil &&
		*s.AgeDays <= th.NewAgeDays && s.Orders30d < th.MinOrders && s.Impressions == 0:
		return TagNewDiscovery, "New style with zero impressions, needs exposure"
	case s.AgeDays != nil && *s.AgeDays > th.NewAgeDays && s.OrdersSinceLive == 0:
		return TagZeroSale, "Live with zero orders, push discovery"
	default:
		return TagWatch, "Monitor performance"
	}
}

// Sort orders rows by tag rank, then orders descending, then key.
func Sort[T any](rows []T, key func(T) (Tag, int64, string)) {
	sort.SliceStable(rows, func(i, j int) bool {
		ta, oa, ka := key(rows[i])
		tb, ob, kb := key(rows[j])
		if ta.Rank() != tb.Rank() {
			return ta.Rank() < tb.Rank()
		}
		if oa != ob {
			return oa > ob
		}
		return ka < kb
	})
}
