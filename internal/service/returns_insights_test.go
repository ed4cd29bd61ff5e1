package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
)

func TestFillHeatmap(t *testing.T) {
	s := &KPIService{reasons: reason.NewClassifier(reason.DefaultTable())}
	out := &Heatmap{TopReasons: 2, TopRows: 5}

	s.fillHeatmap(out, []domain.ReasonCell{
		{Key: "101", StyleKey: "101", Reason: "Size is too large", ReturnType: "RETURN", Portal: "myntra", Units: 4},
		{Key: "101", StyleKey: "101", Reason: "size too big", ReturnType: "RETURN", Portal: "myntra", Units: 1},
		{Key: "101", StyleKey: "101", Reason: "", ReturnType: "RTO", Portal: "myntra", Units: 2},
		{Key: "202", StyleKey: "202", Reason: "Size is too small", ReturnType: "RETURN", Portal: "myntra", Units: 1},
		{Key: "202", StyleKey: "202", Reason: "", ReturnType: "RTO", Portal: "myntra", Units: 3},
		{Key: "fk:sku-9", StyleKey: "fk:sku-9", Reason: "damaged product", ReturnType: "CUSTOMER_RETURN", Portal: "flipkart", Units: 1},
	}, map[string]int64{"101": 10, "202": 0})

	// SIZE_TOO_BIG (5) and RTO_NO_REASON (5) tie on units and break by name
	require.Equal(t, []string{reason.RTONoReason, reason.SizeTooBig}, out.Cols)

	require.Len(t, out.Rows, 2)
	assert.Equal(t, HeatmapRow{Key: "101", StyleKey: "101", Orders: 10, ReturnUnits: 7}, out.Rows[0])
	assert.Equal(t, HeatmapRow{Key: "202", StyleKey: "202", Orders: 0, ReturnUnits: 3}, out.Rows[1])

	assert.Equal(t, [][]int64{{2, 5}, {3, 0}}, out.MatrixUnits)
	require.NotNil(t, out.MatrixPct[0][1])
	assert.Equal(t, 50.0, *out.MatrixPct[0][1])
	assert.Nil(t, out.MatrixPct[1][0], "rows without orders have no percentage")
}

func TestFillHeatmapLimitsRows(t *testing.T) {
	s := &KPIService{reasons: reason.NewClassifier(reason.DefaultTable())}
	out := &Heatmap{TopReasons: 10, TopRows: 1}

	s.fillHeatmap(out, []domain.ReasonCell{
		{Key: "a", Reason: "", ReturnType: "RETURN", Portal: "myntra", Units: 1},
		{Key: "b", Reason: "", ReturnType: "RETURN", Portal: "myntra", Units: 3},
	}, nil)

	require.Len(t, out.Rows, 1)
	assert.Equal(t, "b", out.Rows[0].Key)
	assert.Equal(t, []string{reason.Unknown}, out.Cols)
}

func TestHeatmapRequestValidate(t *testing.T) {
	req := HeatmapRequest{By: attribution.GroupSKU}
	require.NoError(t, req.validate())
	assert.Equal(t, DefaultHeatmapReasons, req.TopReasons)
	assert.Equal(t, DefaultHeatmapRows, req.TopRows)

	for _, bad := range []HeatmapRequest{
		{By: attribution.GroupMonth},
		{By: attribution.GroupStyle, TopReasons: 11},
		{By: attribution.GroupStyle, TopRows: 4},
		{By: attribution.GroupStyle, TopRows: 201},
	} {
		assert.True(t, domain.IsValidation(bad.validate()), "%+v", bad)
	}
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 0, monthsBetween("2025-02", "2025-02"))
	assert.Equal(t, 1, monthsBetween("2025-01", "2025-02"))
	assert.Equal(t, 3, monthsBetween("2024-11", "2025-02"))
	assert.Equal(t, 0, monthsBetween("bad", "2025-02"))
}
