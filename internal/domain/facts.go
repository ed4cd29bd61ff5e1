// backend-go/internal/domain/facts.go
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

// Workspace is the tenant boundary for every fact row.
type Workspace struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WorkspaceCounts is the number of fact rows a workspace owns.
type WorkspaceCounts struct {
	Sales       int64 `json:"sales_raw" db:"sales_raw"`
	Returns     int64 `json:"returns_raw" db:"returns_raw"`
	Catalog     int64 `json:"catalog_raw" db:"catalog_raw"`
	Stock       int64 `json:"stock_raw" db:"stock_raw"`
	WeeklyPerf  int64 `json:"myntra_weekly_perf_raw" db:"myntra_weekly_perf_raw"`
	Traffic     int64 `json:"flipkart_traffic_raw" db:"flipkart_traffic_raw"`
	StyleMonths int64 `json:"style_monthly" db:"style_monthly"`
}

func (c WorkspaceCounts) Total() int64 {
	return c.Sales + c.Returns + c.Catalog + c.Stock + c.WeeklyPerf + c.Traffic + c.StyleMonths
}

// SalesRow is one order line.
type SalesRow struct {
	Portal        portal.Portal
	OrderLineID   string
	StyleKey      string
	SellerSKUCode string
	OrderDate     time.Time
	Units         int
	Attributes    Attributes
}

// ReturnRow is one return or RTO event. Several rows may share an order line.
type ReturnRow struct {
	Portal        portal.Portal
	OrderLineID   string
	StyleKey      string
	SellerSKUCode string
	ReturnDate    time.Time
	ReturnType    string
	Units         int
	Attributes    Attributes
}

// CatalogRow describes a listed style/SKU and when it went live.
type CatalogRow struct {
	Portal              portal.Portal
	StyleKey            string
	SellerSKUCode       string
	Brand               string
	ProductName         string
	StyleCataloguedDate *time.Time
	Attributes          Attributes
}

// StockRow is one line of a stock snapshot.
type StockRow struct {
	Portal        portal.Portal
	SellerSKUCode string
	Qty           int
}

// WeeklyPerfRow is one style line of a Myntra weekly performance report.
type WeeklyPerfRow struct {
	StyleKey         string
	SellerID         *int64
	ArticleType      string
	Brand            string
	Gender           string
	SellerMRP        *float64
	InventoryAge     *int64
	RPLC             *float64
	Impressions      int64
	Clicks           int64
	AddToCarts       int64
	Purchases        int64
	ReturnPct        *float64
	ConsiderationPct *float64
	ConversionPct    *float64
	Rating           *float64
	Attributes       Attributes
}

// TrafficRow is one day of Flipkart search traffic for a SKU.
type TrafficRow struct {
	ImpressionDate time.Time
	SellerSKUCode  string
	ListingID      string
	ProductTitle   string
	ProductViews   int64
	ProductClicks  int64
	SalesQty       int64
	Revenue        float64
	CTRPct         *float64
	ConversionPct  *float64
	Attributes     Attributes
}

// StyleMonthly is the materialized per-(workspace, month, style) rollup.
type StyleMonthly struct {
	MonthStart    time.Time  `json:"month_start" db:"month_start"`
	StyleKey      string     `json:"style_key" db:"style_key"`
	Portal        *string    `json:"portal,omitempty" db:"portal"`
	Orders        int64      `json:"orders" db:"orders"`
	Returns       int64      `json:"returns" db:"returns"`
	ReturnPct     *float64   `json:"return_pct" db:"return_pct"`
	LastOrderDate *time.Time `json:"last_order_date" db:"last_order_date"`
}
