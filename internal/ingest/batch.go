package ingest

import (
	"fmt"
	"time"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

// Kind names an upload type. Values match the ingest route suffixes.
type Kind string

const (
	KindSales           Kind = "sales"
	KindReturns         Kind = "returns"
	KindCatalog         Kind = "catalog"
	KindStock           Kind = "stock"
	KindWeeklyPerf      Kind = "myntra-weekly-perf"
	KindFlipkartEvents  Kind = "flipkart-events"
	KindFlipkartListing Kind = "flipkart-listing"
	KindFlipkartTraffic Kind = "flipkart-traffic"
)

var allKinds = []Kind{
	KindSales, KindReturns, KindCatalog, KindStock, KindWeeklyPerf,
	KindFlipkartEvents, KindFlipkartListing, KindFlipkartTraffic,
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", domain.NewValidationError("kind", "unknown upload kind %q", s)
}

// Portal is the marketplace whose rows a kind produces.
func (k Kind) Portal() portal.Portal {
	switch k {
	case KindFlipkartEvents, KindFlipkartListing, KindFlipkartTraffic:
		return portal.Flipkart
	default:
		return portal.Myntra
	}
}

// TouchesOrders reports whether the kind writes sales or returns and
// therefore requires a rollup refresh.
func (k Kind) TouchesOrders() bool {
	switch k {
	case KindSales, KindReturns, KindFlipkartEvents:
		return true
	default:
		return false
	}
}

// Batch is the parsed content of one upload.
type Batch struct {
	Kind       Kind
	RowsInFile int
	Skipped    int
	Detected   map[string]string

	Sales      []domain.SalesRow
	Returns    []domain.ReturnRow
	Catalog    []domain.CatalogRow
	Stock      []domain.StockRow
	WeeklyPerf []domain.WeeklyPerfRow
	Traffic    []domain.TrafficRow
}

// Len is the number of fact rows the batch will write.
func (b *Batch) Len() int {
	return len(b.Sales) + len(b.Returns) + len(b.Catalog) + len(b.Stock) + len(b.WeeklyPerf) + len(b.Traffic)
}

// Months returns the distinct month starts of sale and return dates.
func (b *Batch) Months() []time.Time {
	dates := make([]time.Time, 0, len(b.Sales)+len(b.Returns))
	for _, s := range b.Sales {
		dates = append(dates, s.OrderDate)
	}
	for _, r := range b.Returns {
		dates = append(dates, r.ReturnDate)
	}
	return attribution.DistinctMonths(dates)
}

func (b *Batch) String() string {
	return fmt.Sprintf("%s: %d rows in file, %d skipped, %d sales, %d returns, %d catalog, %d stock, %d weekly, %d traffic",
		b.Kind, b.RowsInFile, b.Skipped, len(b.Sales), len(b.Returns), len(b.Catalog), len(b.Stock), len(b.WeeklyPerf), len(b.Traffic))
}
