package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/ingest"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

func TestGMV(t *testing.T) {
	gmv, units := GMV([]domain.PriceUnits{
		{Price: "499.50", Units: 2},
		{Price: "1,299", Units: 1},
		{Price: "", Units: 7},
		{Price: "n/a", Units: 3},
		{Price: "100", Units: 0},
	})
	assert.Equal(t, "2298", gmv.String())
	assert.Equal(t, int64(3), units)

	gmv, units = GMV(nil)
	assert.True(t, gmv.IsZero())
	assert.Zero(t, units)
}

func TestBucketReasons(t *testing.T) {
	s := &KPIService{reasons: reason.NewClassifier(reason.DefaultTable())}
	rows, total := s.bucketReasons([]domain.ReasonUnits{
		{Reason: "", ReturnType: "RTO", Portal: "myntra", Units: 3},
		{Reason: "", ReturnType: "RTO", Portal: "myntra", Units: 3},
		{Reason: "", ReturnType: "RETURN", Portal: "myntra", Units: 2},
	})

	assert.Equal(t, int64(8), total)
	require.Len(t, rows, 2)
	assert.Equal(t, ReasonRow{Reason: reason.RTONoReason, ReturnsTotalUnits: 6, RTOUnits: 6, PctOfTotal: 75}, rows[0])
	assert.Equal(t, ReasonRow{Reason: reason.Unknown, ReturnsTotalUnits: 2, ReturnUnits: 2, PctOfTotal: 25}, rows[1])
}

func TestReplaceTables(t *testing.T) {
	assert.Equal(t, []repository.FactTable{repository.SalesTable, repository.ReturnsTable},
		replaceTables(ingest.KindFlipkartEvents))
	assert.Equal(t, []repository.FactTable{repository.CatalogTable, repository.StockTable},
		replaceTables(ingest.KindFlipkartListing))
	assert.Equal(t, []repository.FactTable{repository.TrafficTable},
		replaceTables(ingest.KindFlipkartTraffic))
	assert.Nil(t, replaceTables(ingest.Kind("bogus")))
}

func TestAgeDays(t *testing.T) {
	asOf := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	live := time.Date(2024, 12, 1, 15, 30, 0, 0, time.UTC)
	future := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, ageDays(nil, asOf))
	assert.Equal(t, 89, *ageDays(&live, asOf))
	assert.Equal(t, 0, *ageDays(&future, asOf))
}

func TestSlugs(t *testing.T) {
	assert.Equal(t, DefaultWorkspace, NormalizeSlug("  "))
	assert.Equal(t, "shop-1", NormalizeSlug(" Shop-1 "))
	assert.True(t, ValidSlug("shop_1"))
	assert.False(t, ValidSlug("-shop"))
	assert.False(t, ValidSlug("shop one"))
}
