package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
)

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) *forecastRepository {
	return &forecastRepository{db: db}
}

type skuUnits struct {
	SKU   string `db:"sku"`
	Units int64  `db:"units"`
}

// Inputs loads per-SKU orders and RTO units for one style in the window, the
// style's catalog SKUs and their quantities in the latest stock snapshot.
// A non-empty brand keeps orders and RTO units only when the style is
// catalogued under that brand.
// When the style has no catalog rows, stock is looked up for the SKUs that
// sold instead.
func (r *forecastRepository) Inputs(ctx context.Context, workspaceID uuid.UUID, styleKey string, w attribution.Window, brand string) (*domain.ForecastInputs, error) {
	styleKey = strings.ToLower(strings.TrimSpace(styleKey))
	in := &domain.ForecastInputs{
		StyleKey: styleKey,
		Orders:   map[string]int64{},
		RTOUnits: map[string]int64{},
		Stock:    map[string]int64{},
	}

	salesQuery := fmt.Sprintf(`
		SELECT LOWER(TRIM(s.seller_sku_code)) AS sku, COALESCE(SUM(%s), 0) AS units
		FROM sales_raw s
		WHERE s.workspace_id = $1
		  AND LOWER(TRIM(s.style_key)) = $2
		  AND s.order_date >= $3
		  AND s.order_date < $4
		  AND TRIM(s.seller_sku_code) <> ''
		  AND %s
		GROUP BY 1
	`, unitsExpr("s"), catalogBrandCondition("s", 1, 5))
	brand = strings.ToLower(strings.TrimSpace(brand))
	var sales []skuUnits
	if err := r.db.SelectContext(ctx, &sales, salesQuery,
		workspaceID, styleKey, w.Start, w.EndExclusive(), brand); err != nil {
		return nil, fmt.Errorf("error getting orders by sku: %w", err)
	}
	for _, s := range sales {
		in.Orders[s.SKU] += s.Units
	}

	rtoQuery := fmt.Sprintf(`
		SELECT LOWER(TRIM(r.seller_sku_code)) AS sku, COALESCE(SUM(%s), 0) AS units
		FROM returns_raw r
		WHERE r.workspace_id = $1
		  AND LOWER(TRIM(r.style_key)) = $2
		  AND r.return_date >= $3
		  AND r.return_date < $4
		  AND TRIM(r.seller_sku_code) <> ''
		  AND %s = 'RTO'
		  AND %s
		GROUP BY 1
	`, unitsExpr("r"), returnTypeExpr("r"), catalogBrandCondition("r", 1, 5))
	var rto []skuUnits
	if err := r.db.SelectContext(ctx, &rto, rtoQuery, workspaceID, styleKey, w.Start, w.EndExclusive(), brand); err != nil {
		return nil, fmt.Errorf("error getting rto units by sku: %w", err)
	}
	for _, s := range rto {
		in.RTOUnits[s.SKU] += s.Units
	}

	catalogQuery := `
		SELECT DISTINCT LOWER(TRIM(seller_sku_code))
		FROM catalog_raw
		WHERE workspace_id = $1
		  AND LOWER(TRIM(style_key)) = $2
		  AND TRIM(seller_sku_code) <> ''
		ORDER BY 1
	`
	in.CatalogSKUs = []string{}
	if err := r.db.SelectContext(ctx, &in.CatalogSKUs, catalogQuery, workspaceID, styleKey); err != nil {
		return nil, fmt.Errorf("error getting catalog skus: %w", err)
	}

	var snapshots int
	if err := r.db.GetContext(ctx, &snapshots,
		`SELECT COUNT(*) FROM stock_raw WHERE workspace_id = $1`, workspaceID); err != nil {
		return nil, fmt.Errorf("error checking stock snapshot: %w", err)
	}
	in.HasSnapshot = snapshots > 0
	if !in.HasSnapshot {
		return in, nil
	}

	candidates := in.CatalogSKUs
	if len(candidates) == 0 {
		for sku := range in.Orders {
			candidates = append(candidates, sku)
		}
	}
	if len(candidates) == 0 {
		return in, nil
	}

	stockQuery := `
		WITH ` + latestStockCTE + `
		SELECT LOWER(TRIM(seller_sku_code)) AS sku, COALESCE(SUM(qty), 0) AS units
		FROM latest_stock
		WHERE LOWER(TRIM(seller_sku_code)) = ANY($2)
		GROUP BY 1
	`
	var stock []skuUnits
	if err := r.db.SelectContext(ctx, &stock, stockQuery, workspaceID, pq.Array(candidates)); err != nil {
		return nil, fmt.Errorf("error getting latest stock: %w", err)
	}
	for _, s := range stock {
		in.Stock[s.SKU] += s.Units
	}
	return in, nil
}
