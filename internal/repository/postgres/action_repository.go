package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

// BoardWindowDays is the length of the recent and the previous window.
const BoardWindowDays = 30

type actionRepository struct {
	db *DB
}

func NewActionRepository(db *DB) *actionRepository {
	return &actionRepository{db: db}
}

type keyOrders struct {
	Key       string `db:"key"`
	Recent    int64  `db:"orders_30d"`
	Previous  int64  `db:"orders_prev_30d"`
	SinceLive int64  `db:"orders_since_live"`
}

type keyReturns struct {
	Key         string `db:"key"`
	Total       int64  `db:"returns_total"`
	ReturnUnits int64  `db:"return_units"`
	RTOUnits    int64  `db:"rto_units"`
}

type keyTraffic struct {
	Key         string `db:"key"`
	Impressions int64  `db:"impressions"`
	Clicks      int64  `db:"clicks"`
}

type keyStock struct {
	Key string `db:"key"`
	Qty int64  `db:"qty"`
}

// Signals collects board observations for every catalog key as of asOf
// (inclusive). Myntra rows are keyed by style, Flipkart rows by seller SKU.
func (r *actionRepository) Signals(ctx context.Context, workspaceID uuid.UUID, asOf time.Time, p portal.Portal, styles []string) ([]domain.BoardSignals, error) {
	endExcl := asOf.AddDate(0, 0, 1)
	recentStart := endExcl.AddDate(0, 0, -BoardWindowDays)
	prevStart := recentStart.AddDate(0, 0, -BoardWindowDays)
	f := factFilter{Portal: p, Styles: styles}

	// 1. catalog keys
	catalogFilter, catalogArgs := buildFactFilterClause(f, "c", "style_key", 2)
	catalogQuery := fmt.Sprintf(`
		SELECT %s AS key,
		       MAX(%s) AS portal,
		       COALESCE(MAX(c.brand), '') AS brand,
		       COALESCE(MAX(c.product_name), '') AS product_name,
		       MIN(c.style_catalogued_date) AS live_date
		FROM catalog_raw c
		WHERE c.workspace_id = $1
		  %s
		GROUP BY 1
	`, boardKeyExpr("c"), portalExpr("c", "style_key"), catalogFilter)

	var catalog []domain.BoardSignals
	if err := r.db.SelectContext(ctx, &catalog, catalogQuery, append([]interface{}{workspaceID}, catalogArgs...)...); err != nil {
		return nil, fmt.Errorf("error getting board catalog keys: %w", err)
	}

	byKey := make(map[string]*domain.BoardSignals, len(catalog))
	keys := make([]string, 0, len(catalog))
	for i := range catalog {
		c := &catalog[i]
		if c.Key == "" || c.Key == portal.FlipkartPrefix {
			continue
		}
		byKey[c.Key] = c
		keys = append(keys, c.Key)
	}
	if len(keys) == 0 {
		return []domain.BoardSignals{}, nil
	}

	// 2. orders in both windows and since the live date
	salesFilter, salesArgs := buildFactFilterClause(f, "s", "style_key", 5)
	ordersQuery := fmt.Sprintf(`
		WITH live AS (
		    SELECT %[1]s AS key, MIN(c.style_catalogued_date) AS live_date
		    FROM catalog_raw c
		    WHERE c.workspace_id = $1
		    GROUP BY 1
		)
		SELECT %[2]s AS key,
		       COALESCE(SUM(CASE WHEN s.order_date >= $3 THEN %[3]s ELSE 0 END), 0) AS orders_30d,
		       COALESCE(SUM(CASE WHEN s.order_date >= $2 AND s.order_date < $3 THEN %[3]s ELSE 0 END), 0) AS orders_prev_30d,
		       COALESCE(SUM(CASE WHEN l.live_date IS NULL OR s.order_date >= l.live_date THEN %[3]s ELSE 0 END), 0) AS orders_since_live
		FROM sales_raw s
		LEFT JOIN live l ON l.key = %[2]s
		WHERE s.workspace_id = $1
		  AND s.order_date < $4
		  %[4]s
		GROUP BY 1
	`, boardKeyExpr("c"), boardKeyExpr("s"), unitsExpr("s"), salesFilter)

	var orders []keyOrders
	ordersArgs := append([]interface{}{workspaceID, prevStart, recentStart, endExcl}, salesArgs...)
	if err := r.db.SelectContext(ctx, &orders, ordersQuery, ordersArgs...); err != nil {
		return nil, fmt.Errorf("error getting board orders: %w", err)
	}
	for _, o := range orders {
		if s, ok := byKey[o.Key]; ok {
			s.Orders30d = o.Recent
			s.OrdersPrev30d = o.Previous
			s.OrdersSinceLive = o.SinceLive
		}
	}

	// 3. returns in the recent window
	returnsFilter, returnsArgs := buildFactFilterClause(f, "r", "style_key", 4)
	returnsQuery := fmt.Sprintf(`
		SELECT %s AS key,
		    %s
		FROM returns_raw r
		WHERE r.workspace_id = $1
		  AND r.return_date >= $2
		  AND r.return_date < $3
		  %s
		GROUP BY 1
	`, boardKeyExpr("r"), returnSplitColumns("r"), returnsFilter)

	var returns []keyReturns
	if err := r.db.SelectContext(ctx, &returns, returnsQuery,
		append([]interface{}{workspaceID, recentStart, endExcl}, returnsArgs...)...); err != nil {
		return nil, fmt.Errorf("error getting board returns: %w", err)
	}
	for _, ret := range returns {
		if s, ok := byKey[ret.Key]; ok {
			s.ReturnsTotal30d = ret.Total
			s.ReturnUnits30d = ret.ReturnUnits
			s.RTOUnits30d = ret.RTOUnits
		}
	}

	// 4. traffic: latest Myntra weekly snapshot, Flipkart daily views in the window
	if p != portal.Flipkart {
		if err := r.applyWeeklyPerf(ctx, workspaceID, byKey); err != nil {
			return nil, err
		}
	}
	if p != portal.Myntra {
		if err := r.applyFlipkartTraffic(ctx, workspaceID, recentStart, endExcl, byKey); err != nil {
			return nil, err
		}
	}

	// 5. stock from the latest snapshot of each portal
	if err := r.applyStock(ctx, workspaceID, byKey); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	out := make([]domain.BoardSignals, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byKey[k])
	}
	return out, nil
}

func (r *actionRepository) applyWeeklyPerf(ctx context.Context, workspaceID uuid.UUID, byKey map[string]*domain.BoardSignals) error {
	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest,
		`SELECT MAX(ingested_at) FROM myntra_weekly_perf_raw WHERE workspace_id = $1`, workspaceID); err != nil {
		return fmt.Errorf("error getting latest weekly snapshot: %w", err)
	}
	if !latest.Valid {
		return nil
	}
	for _, s := range byKey {
		if s.Portal == string(portal.Myntra) {
			s.HasTrafficSnapshot = true
		}
	}

	query := `
		SELECT LOWER(TRIM(style_key)) AS key,
		       COALESCE(SUM(impressions), 0) AS impressions,
		       COALESCE(SUM(clicks), 0) AS clicks
		FROM myntra_weekly_perf_raw
		WHERE workspace_id = $1 AND ingested_at = $2
		GROUP BY 1
	`
	var rows []keyTraffic
	if err := r.db.SelectContext(ctx, &rows, query, workspaceID, latest.Time); err != nil {
		return fmt.Errorf("error getting weekly impressions: %w", err)
	}
	for _, t := range rows {
		if s, ok := byKey[t.Key]; ok && s.Portal == string(portal.Myntra) {
			s.Impressions = t.Impressions
			s.Clicks = t.Clicks
		}
	}
	return nil
}

func (r *actionRepository) applyFlipkartTraffic(ctx context.Context, workspaceID uuid.UUID, from, to time.Time, byKey map[string]*domain.BoardSignals) error {
	query := `
		SELECT LOWER(TRIM(seller_sku_code)) AS key,
		       COALESCE(SUM(product_views), 0) AS impressions,
		       COALESCE(SUM(product_clicks), 0) AS clicks
		FROM flipkart_traffic_raw
		WHERE workspace_id = $1
		  AND impression_date >= $2
		  AND impression_date < $3
		GROUP BY 1
	`
	var rows []keyTraffic
	if err := r.db.SelectContext(ctx, &rows, query, workspaceID, from, to); err != nil {
		return fmt.Errorf("error getting flipkart traffic: %w", err)
	}
	for _, t := range rows {
		if s, ok := byKey[t.Key]; ok && s.Portal == string(portal.Flipkart) {
			s.Impressions = t.Impressions
			s.Clicks = t.Clicks
		}
	}
	return nil
}

func (r *actionRepository) applyStock(ctx context.Context, workspaceID uuid.UUID, byKey map[string]*domain.BoardSignals) error {
	var snapshots int
	if err := r.db.GetContext(ctx, &snapshots,
		`SELECT COUNT(*) FROM stock_raw WHERE workspace_id = $1`, workspaceID); err != nil {
		return fmt.Errorf("error checking stock snapshot: %w", err)
	}
	if snapshots == 0 {
		return nil
	}
	for _, s := range byKey {
		s.HasStock = true
	}

	query := fmt.Sprintf(`
		WITH %s
		SELECT %s AS key, COALESCE(SUM(ls.qty), 0) AS qty
		FROM catalog_raw c
		JOIN latest_stock ls ON LOWER(TRIM(ls.seller_sku_code)) = LOWER(TRIM(c.seller_sku_code))
		WHERE c.workspace_id = $1
		  AND TRIM(c.seller_sku_code) <> ''
		GROUP BY 1
	`, latestStockCTE, boardKeyExpr("c"))

	var rows []keyStock
	if err := r.db.SelectContext(ctx, &rows, query, workspaceID); err != nil {
		return fmt.Errorf("error getting board stock: %w", err)
	}
	for _, st := range rows {
		if s, ok := byKey[st.Key]; ok {
			s.StockQty = st.Qty
		}
	}
	return nil
}
