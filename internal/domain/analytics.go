package domain

import "time"

// PriceUnits is the number of units sold at one recorded seller price. Price
// is the raw attribute text; parse it with Attributes.SellerPrice.
type PriceUnits struct {
	Price string `db:"price"`
	Units int64  `db:"units"`
}

// ReasonUnits counts returned units per raw reason and return type.
type ReasonUnits struct {
	Reason     string `db:"reason"`
	ReturnType string `db:"return_type"`
	Portal     string `db:"portal"`
	Units      int64  `db:"units"`
}

// BoardSignals is everything the action board observes about one catalog key.
type BoardSignals struct {
	Key         string     `db:"key"`
	Portal      string     `db:"portal"`
	Brand       string     `db:"brand"`
	ProductName string     `db:"product_name"`
	LiveDate    *time.Time `db:"live_date"`

	Orders30d       int64
	OrdersPrev30d   int64
	OrdersSinceLive int64
	ReturnsTotal30d int64
	ReturnUnits30d  int64
	RTOUnits30d     int64

	Impressions        int64
	Clicks             int64
	HasTrafficSnapshot bool

	StockQty int64
	HasStock bool
}

// ForecastInputs are the raw demand and stock observations for one style.
type ForecastInputs struct {
	StyleKey    string
	Orders      map[string]int64
	RTOUnits    map[string]int64
	CatalogSKUs []string
	Stock       map[string]int64
	HasSnapshot bool
}

// ReasonCell counts returned units of one row key (style or SKU) per raw
// reason and return type.
type ReasonCell struct {
	Key        string `db:"key"`
	StyleKey   string `db:"style_key"`
	Reason     string `db:"reason"`
	ReturnType string `db:"return_type"`
	Portal     string `db:"portal"`
	Units      int64  `db:"units"`
}

// CohortCell is the returns of orders sold in SaleMonth that came back in
// ReturnMonth. Months are YYYY-MM.
type CohortCell struct {
	SaleMonth    string `db:"sale_month"`
	ReturnMonth  string `db:"return_month"`
	ReturnsTotal int64  `db:"returns_total"`
	ReturnUnits  int64  `db:"return_units"`
	RTOUnits     int64  `db:"rto_units"`
}

// StyleMeta is the catalog description of a style.
type StyleMeta struct {
	StyleKey    string `db:"style_key" json:"style_key"`
	Brand       string `db:"brand" json:"brand"`
	ProductName string `db:"product_name" json:"product_name"`
}

// ZeroSalesStyle is a catalogued style that never sold.
type ZeroSalesStyle struct {
	StyleKey    string    `db:"style_key" json:"style_key"`
	Portal      string    `db:"portal" json:"portal"`
	Brand       string    `db:"brand" json:"brand"`
	ProductName string    `db:"product_name" json:"product_name"`
	LiveDate    time.Time `db:"live_date" json:"-"`
	DaysLive    int       `db:"days_live" json:"days_live"`
}
