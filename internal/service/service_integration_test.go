package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/marketlens/backend-go/internal/action"
	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/forecast"
	"github.com/andresuchdata/marketlens/backend-go/internal/ingest"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/marketlens/backend-go/internal/testhelpers"
)

type services struct {
	workspaces *WorkspaceService
	ingest     *IngestService
	kpi        *KPIService
	rollups    *RollupService
	forecasts  *ForecastService
	actions    *ActionService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testhelpers.GetTestDB(t).DB

	classifier := reason.NewClassifier(reason.DefaultTable())
	workspaces := NewWorkspaceService(postgres.NewWorkspaceRepository(db))
	facts := postgres.NewFactRepository(db, 2)
	attr := postgres.NewAttributionRepository(db)
	rollups := postgres.NewRollupRepository(db)

	return &services{
		workspaces: workspaces,
		ingest:     NewIngestService(db, workspaces, facts, rollups, ingest.NewParser(classifier), nil, nil, ""),
		kpi:        NewKPIService(workspaces, attr, classifier, nil),
		rollups:    NewRollupService(db, workspaces, rollups, nil),
		forecasts:  NewForecastService(workspaces, postgres.NewForecastRepository(db)),
		actions:    NewActionService(workspaces, postgres.NewActionRepository(db), attr),
	}
}

const (
	salesCSV = "order line id,Style ID,Created On,Seller SKU Code,Seller Price,Brand\n" +
		"1,101,2025-01-05,S1-M,500,Acme\n" +
		"2,101,2025-01-05,S1-L,500,Acme\n" +
		"3,101,2025-02-10,S1-M,600,Acme\n" +
		"4,101,2025-02-10,S1-M,600,Acme\n" +
		"5,101,2025-02-10,S1-L,,Acme\n"

	// line 3 sold and returned in February; line 1 sold in January and
	// returned in February
	returnsCSV = "order_line_id,style_id,type,quantity,return_created_date,order_rto_date,seller_sku_code,return_reason\n" +
		"3,101,Return,1,2025-02-20,,S1-M,Size is too large\n" +
		"1,101,Return,1,2025-02-03,,S1-M,Quality issue\n"

	catalogCSV = "Style ID,Style Catalogued Date,Brand,Style Name,Seller SKU Code\n" +
		"101,01-12-2024,Acme,Tee,S1-M\n" +
		"101,01-12-2024,Acme,Tee,S1-L\n"

	stockCSV = "seller_sku_code,qty\nS1-M,4\nS1-L,0\n"
)

func upload(t *testing.T, s *services, ws string, kind ingest.Kind, csv string, replace bool) *IngestResult {
	t.Helper()
	res, err := s.ingest.Ingest(context.Background(), IngestRequest{
		Kind:          kind,
		WorkspaceSlug: ws,
		Filename:      string(kind) + ".csv",
		Data:          []byte(csv),
		Replace:       replace,
	})
	require.NoError(t, err)
	return res
}

func seed(t *testing.T, s *services, ws string) {
	t.Helper()
	upload(t, s, ws, ingest.KindCatalog, catalogCSV, false)
	upload(t, s, ws, ingest.KindSales, salesCSV, false)
	upload(t, s, ws, ingest.KindReturns, returnsCSV, false)
	upload(t, s, ws, ingest.KindStock, stockCSV, false)
}

func window(t *testing.T, start, end string) attribution.Window {
	t.Helper()
	w, err := attribution.ParseWindow(start, end)
	require.NoError(t, err)
	return w
}

func pct(v float64) *float64 { return &v }

func TestSameMonthAttribution(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	seed(t, s, ws)
	ctx := context.Background()

	feb := window(t, "2025-02-01", "2025-02-28")
	sameMonth, err := s.kpi.Summary(ctx, KPIParams{WorkspaceSlug: ws, Window: feb, Mode: attribution.SameMonth})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sameMonth.Orders)
	assert.Equal(t, int64(1), sameMonth.ReturnUnits)
	assert.Equal(t, int64(1), sameMonth.ReturnsTotalUnits)
	assert.Equal(t, pct(33.33), sameMonth.ReturnPct)

	overall, err := s.kpi.Summary(ctx, KPIParams{WorkspaceSlug: ws, Window: feb, Mode: attribution.Overall})
	require.NoError(t, err)
	assert.Equal(t, int64(3), overall.Orders)
	assert.Equal(t, int64(2), overall.ReturnsTotalUnits)
	assert.Equal(t, pct(66.67), overall.ReturnPct)

	jan, err := s.kpi.Summary(ctx, KPIParams{WorkspaceSlug: ws, Window: window(t, "2025-01-01", "2025-01-31"), Mode: attribution.SameMonth})
	require.NoError(t, err)
	assert.Equal(t, int64(2), jan.Orders)
	assert.Equal(t, int64(0), jan.ReturnsTotalUnits)
	assert.Equal(t, pct(0), jan.ReturnPct)
}

func TestSameMonthNeverExceedsOverall(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	seed(t, s, ws)
	ctx := context.Background()

	w := window(t, "2025-01-01", "2025-02-28")
	for _, top := range []func(context.Context, KPIParams, int64, int) (*TopReturns, error){
		s.kpi.TopReturnStyles, s.kpi.TopReturnSKUs,
	} {
		overall, err := top(ctx, KPIParams{WorkspaceSlug: ws, Window: w, Mode: attribution.Overall}, 0, 100)
		require.NoError(t, err)
		same, err := top(ctx, KPIParams{WorkspaceSlug: ws, Window: w, Mode: attribution.SameMonth}, 0, 100)
		require.NoError(t, err)

		byKey := map[string]attribution.Row{}
		for _, r := range overall.Rows {
			byKey[r.Key] = r
		}
		require.NotEmpty(t, same.Rows)
		for _, r := range same.Rows {
			o, ok := byKey[r.Key]
			require.True(t, ok, r.Key)
			assert.Equal(t, o.Orders, r.Orders, r.Key)
			assert.LessOrEqual(t, r.ReturnsTotal, o.ReturnsTotal, r.Key)
		}
	}
}

func TestStyleMonthlyMatchesRecompute(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	seed(t, s, ws)
	ctx := context.Background()

	check := func() {
		resp, err := s.rollups.StyleMonthly(ctx, StyleMonthlyQuery{
			WorkspaceSlug: ws,
			From:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			To:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Len(t, resp.Rows, 2)

		for _, row := range resp.Rows {
			top, err := s.kpi.TopReturnStyles(ctx, KPIParams{
				WorkspaceSlug: ws,
				Window:        attribution.MonthWindow(row.MonthStart),
				Mode:          attribution.Overall,
			}, 0, 100)
			require.NoError(t, err)
			require.Len(t, top.Rows, 1)
			assert.Equal(t, row.StyleKey, top.Rows[0].Key)
			assert.Equal(t, row.Orders, top.Rows[0].Orders)
			assert.Equal(t, row.Returns, top.Rows[0].ReturnsTotal)
			assert.Equal(t, row.ReturnPct, top.Rows[0].ReturnPct)
		}
	}

	check()

	res, err := s.rollups.Refresh(ctx, ws, nil, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows)
	check()

	_, err = s.rollups.Refresh(ctx, ws, nil, false)
	assert.True(t, domain.IsValidation(err))
}

func TestConcurrentUploadsKeepStyleMonthlyConsistent(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	ctx := context.Background()
	upload(t, s, ws, ingest.KindCatalog, catalogCSV, false)

	// sales and returns of the same months refresh the same style_monthly
	// rows from separate transactions
	for round := 0; round < 5; round++ {
		g, gctx := errgroup.WithContext(ctx)
		for _, file := range []struct {
			kind ingest.Kind
			csv  string
		}{
			{ingest.KindSales, salesCSV},
			{ingest.KindReturns, returnsCSV},
			{ingest.KindSales, salesCSV},
		} {
			file := file
			g.Go(func() error {
				_, err := s.ingest.Ingest(gctx, IngestRequest{
					Kind:          file.kind,
					WorkspaceSlug: ws,
					Filename:      string(file.kind) + ".csv",
					Data:          []byte(file.csv),
					Replace:       true,
				})
				return err
			})
		}
		g.Go(func() error {
			_, err := s.rollups.Refresh(gctx, ws, nil, true)
			return err
		})
		require.NoError(t, g.Wait(), "round %d", round)
	}

	resp, err := s.rollups.StyleMonthly(ctx, StyleMonthlyQuery{
		WorkspaceSlug: ws,
		From:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 2)

	orders := map[string]int64{}
	returns := map[string]int64{}
	for _, row := range resp.Rows {
		orders[row.MonthStart.Format("2006-01")] = row.Orders
		returns[row.MonthStart.Format("2006-01")] = row.Returns
	}
	assert.Equal(t, map[string]int64{"2025-01": 2, "2025-02": 3}, orders)
	assert.Equal(t, map[string]int64{"2025-01": 0, "2025-02": 2}, returns)
}

func TestReplaceUploadIsIdempotent(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	ctx := context.Background()

	first := upload(t, s, ws, ingest.KindSales, salesCSV, true)
	assert.Equal(t, int64(5), first.Inserted)
	assert.True(t, first.FullRefresh)
	assert.Equal(t, []string{"2025-01", "2025-02"}, first.MonthsRefreshed)

	again := upload(t, s, ws, ingest.KindSales, salesCSV, false)
	assert.Equal(t, int64(0), again.Inserted, "order lines are unique")

	replaced := upload(t, s, ws, ingest.KindSales, salesCSV, true)
	assert.Equal(t, int64(5), replaced.Deleted)
	assert.Equal(t, int64(5), replaced.Inserted)

	sum, err := s.kpi.Summary(ctx, KPIParams{WorkspaceSlug: ws, Window: window(t, "2025-01-01", "2025-02-28")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum.Orders)
	assert.Equal(t, "2200", sum.GMV.String())
	assert.Equal(t, int64(4), sum.PricedUnits)
	require.NotNil(t, sum.ASP)
	assert.Equal(t, "550", sum.ASP.String())
}

func TestSummaryWithoutOrdersHasNullPct(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	seed(t, s, ws)

	sum, err := s.kpi.Summary(context.Background(), KPIParams{WorkspaceSlug: ws, Window: window(t, "2024-06-01", "2024-06-30")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.Orders)
	assert.Nil(t, sum.ReturnPct)
	assert.Nil(t, sum.ASP)
	assert.True(t, sum.GMV.IsZero())
}

func TestBrandFilter(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	seed(t, s, ws)
	ctx := context.Background()
	w := window(t, "2025-01-01", "2025-02-28")

	acme, err := s.kpi.Summary(ctx, KPIParams{WorkspaceSlug: ws, Window: w, Brand: " ACME "})
	require.NoError(t, err)
	assert.Equal(t, int64(5), acme.Orders)

	other, err := s.kpi.Summary(ctx, KPIParams{WorkspaceSlug: ws, Window: w, Brand: "Nobody"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), other.Orders)
	assert.Nil(t, other.ReturnPct)
}

func TestReturnReasons(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	seed(t, s, ws)

	out, err := s.kpi.ReturnReasons(context.Background(), KPIParams{WorkspaceSlug: ws, Window: window(t, "2025-02-01", "2025-02-28")}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.TotalUnits)
	assert.Equal(t, "all", out.Portal)

	var units int64
	for _, r := range out.Rows {
		units += r.ReturnsTotalUnits
		assert.Equal(t, r.ReturnsTotalUnits, r.ReturnUnits+r.RTOUnits)
	}
	assert.Equal(t, int64(2), units)
}

func TestDeleteWorkspace(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	ctx := context.Background()
	upload(t, s, ws, ingest.KindSales, salesCSV, false)

	counts, err := s.workspaces.Delete(ctx, ws, false)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(5), counts.Sales)

	counts, err = s.workspaces.Delete(ctx, ws, true)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts.Sales)

	_, err = s.workspaces.Delete(ctx, ws, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActionBoard(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	seed(t, s, ws)

	board, err := s.actions.Board(context.Background(), BoardRequest{
		WorkspaceSlug: ws,
		AsOf:          time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		Thresholds:    action.DefaultThresholds(),
	})
	require.NoError(t, err)
	require.Len(t, board.Rows, 1)

	row := board.Rows[0]
	assert.Equal(t, "101", row.Key)
	assert.Equal(t, int64(3), row.Orders30d)
	assert.Equal(t, int64(2), row.OrdersPrev30d)
	assert.Equal(t, int64(2), row.ReturnsTotal30d)
	require.NotNil(t, row.StockQty)
	assert.Equal(t, int64(4), *row.StockQty)
	require.NotNil(t, row.AgeDays)
	assert.Equal(t, 89, *row.AgeDays)
}

func TestSKUForecast(t *testing.T) {
	s := newServices(t)
	ws := testhelpers.WorkspaceSlug(t)
	seed(t, s, ws)

	out, err := s.forecasts.Forecast(context.Background(), ForecastRequest{
		WorkspaceSlug: ws,
		StyleKey:      "101",
		Window:        window(t, "2025-01-01", "2025-02-28"),
		Bucketing:     forecast.BySKU,
		Params:        forecast.DefaultParams(),
	})
	require.NoError(t, err)
	assert.True(t, out.HasSnapshot)
	assert.Equal(t, []string{"s1-l", "s1-m"}, out.CatalogSKUs)
	assert.Equal(t, int64(5), out.Totals.OrdersGross)
	assert.Equal(t, int64(4), out.Totals.StockQty)
	assert.Len(t, out.Rows, 2)
}
