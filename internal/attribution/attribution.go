// Package attribution defines how returns are attributed to orders.
//
// Overall mode counts a return in the window it was returned, regardless of
// when the sale happened. Same-month mode only counts returns linked by order
// line to a sale in the same calendar month. The SQL lives in the postgres
// repository; this package holds the query model and the merge arithmetic.
package attribution

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

type Mode string

const (
	Overall   Mode = "overall"
	SameMonth Mode = "same_month"
)

// ParseMode defaults to Overall for an empty value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overall":
		return Overall, nil
	case "same_month", "same-month", "samemonth":
		return SameMonth, nil
	default:
		return "", domain.NewValidationError("return_mode", "must be overall or same_month, got %q", s)
	}
}

type GroupBy string

const (
	GroupNone  GroupBy = "none"
	GroupStyle GroupBy = "style"
	GroupSKU   GroupBy = "sku"
	GroupMonth GroupBy = "month"
	GroupDay   GroupBy = "day"
)

// Query selects what to aggregate.
type Query struct {
	WorkspaceID uuid.UUID
	Window      Window
	Mode        Mode
	GroupBy     GroupBy
	// Brand restricts aggregation to catalog style keys of this brand
	// (case-insensitive). Empty means no brand filter.
	Brand  string
	Portal portal.Portal
}

func (q Query) Validate() error {
	if q.WorkspaceID == uuid.Nil {
		return domain.NewValidationError("workspace", "is required")
	}
	if err := q.Window.Validate(); err != nil {
		return err
	}
	switch q.Mode {
	case Overall, SameMonth:
	default:
		return domain.NewValidationError("return_mode", "unsupported mode %q", q.Mode)
	}
	switch q.GroupBy {
	case GroupNone, GroupStyle, GroupSKU, GroupMonth, GroupDay:
	default:
		return domain.NewValidationError("group_by", "unsupported grouping %q", q.GroupBy)
	}
	return nil
}

// NormalizedBrand is the brand as matched against catalog rows.
func (q Query) NormalizedBrand() string {
	return strings.ToLower(strings.TrimSpace(q.Brand))
}

// OrderAgg is the sales side of one group.
type OrderAgg struct {
	Key           string     `db:"key"`
	Orders        int64      `db:"orders"`
	LastOrderDate *time.Time `db:"last_order_date"`
}

// ReturnAgg is the returns side of one group.
type ReturnAgg struct {
	Key         string `db:"key"`
	Total       int64  `db:"returns_total"`
	ReturnUnits int64  `db:"return_units"`
	RTOUnits    int64  `db:"rto_units"`
}

// Row is the attribution result for one group.
type Row struct {
	Key           string     `json:"key"`
	Orders        int64      `json:"orders"`
	ReturnsTotal  int64      `json:"returns_total_units"`
	ReturnUnits   int64      `json:"return_units"`
	RTOUnits      int64      `json:"rto_units"`
	ReturnPct     *float64   `json:"return_pct"`
	LastOrderDate *time.Time `json:"last_order_date,omitempty"`
}

// ReturnPct is returns/orders*100 rounded to two places, or nil when there are
// no orders.
func ReturnPct(returns, orders int64) *float64 {
	if orders <= 0 {
		return nil
	}
	pct := math.Round(float64(returns)*100/float64(orders)*100) / 100
	return &pct
}

// Merge joins both sides on key. Groups present on only one side get zeros on
// the other. The result is ordered by key.
func Merge(orders []OrderAgg, returns []ReturnAgg) []Row {
	byKey := make(map[string]*Row, len(orders)+len(returns))
	get := func(key string) *Row {
		r, ok := byKey[key]
		if !ok {
			r = &Row{Key: key}
			byKey[key] = r
		}
		return r
	}

	for _, o := range orders {
		r := get(o.Key)
		r.Orders += o.Orders
		if o.LastOrderDate != nil && (r.LastOrderDate == nil || o.LastOrderDate.After(*r.LastOrderDate)) {
			d := *o.LastOrderDate
			r.LastOrderDate = &d
		}
	}
	for _, ret := range returns {
		r := get(ret.Key)
		r.ReturnsTotal += ret.Total
		r.ReturnUnits += ret.ReturnUnits
		r.RTOUnits += ret.RTOUnits
	}

	rows := make([]Row, 0, len(byKey))
	for _, r := range byKey {
		r.ReturnPct = ReturnPct(r.ReturnsTotal, r.Orders)
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

// Total collapses rows into one row with an empty key.
func Total(rows []Row) Row {
	var t Row
	for _, r := range rows {
		t.Orders += r.Orders
		t.ReturnsTotal += r.ReturnsTotal
		t.ReturnUnits += r.ReturnUnits
		t.RTOUnits += r.RTOUnits
	}
	t.ReturnPct = ReturnPct(t.ReturnsTotal, t.Orders)
	return t
}

// Top keeps rows with at least minOrders orders and returns the n worst by
// return percentage. Ties break on returns, then orders, then key.
func Top(rows []Row, minOrders int64, n int) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Orders >= minOrders && r.Orders > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		pa, pb := pctOrNegative(a.ReturnPct), pctOrNegative(b.ReturnPct)
		if pa != pb {
			return pa > pb
		}
		if a.ReturnsTotal != b.ReturnsTotal {
			return a.ReturnsTotal > b.ReturnsTotal
		}
		if a.Orders != b.Orders {
			return a.Orders > b.Orders
		}
		return a.Key < b.Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func pctOrNegative(p *float64) float64 {
	if p == nil {
		return -1
	}
	return *p
}

// TypeBucket is the coarse class of a return_type value.
type TypeBucket int

const (
	OtherType TypeBucket = iota
	CustomerReturn
	RTO
)

// CustomerReturnTypes are the normalized return_type values counted as
// post-delivery customer returns.
var CustomerReturnTypes = []string{"RETURN", "CUSTOMER_RETURN"}

// ClassifyType normalizes a raw return type the same way the SQL does.
func ClassifyType(raw string) TypeBucket {
	t := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case t == "RTO":
		return RTO
	case t == CustomerReturnTypes[0] || t == CustomerReturnTypes[1]:
		return CustomerReturn
	default:
		return OtherType
	}
}

func (b TypeBucket) String() string {
	switch b {
	case CustomerReturn:
		return "customer_return"
	case RTO:
		return "rto"
	default:
		return "other"
	}
}
