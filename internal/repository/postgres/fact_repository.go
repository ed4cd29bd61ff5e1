package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

// maxParams is the PostgreSQL limit on bind parameters per statement.
const maxParams = 65535

type factRepository struct {
	db        *DB
	batchSize int
}

func NewFactRepository(db *DB, batchSize int) *factRepository {
	if batchSize <= 0 {
		batchSize = 2000
	}
	return &factRepository{db: db, batchSize: batchSize}
}

// portal key columns used by the fk: shim for rows with a NULL portal
var factKeyColumn = map[repository.FactTable]string{
	repository.SalesTable:      "style_key",
	repository.ReturnsTable:    "style_key",
	repository.CatalogTable:    "style_key",
	repository.StockTable:      "seller_sku_code",
	repository.WeeklyPerfTable: "",
	repository.TrafficTable:    "",
}

func (r *factRepository) DeletePortal(ctx context.Context, tx sqlx.ExtContext, table repository.FactTable, workspaceID uuid.UUID, p portal.Portal) (int64, error) {
	keyColumn, ok := factKeyColumn[table]
	if !ok {
		return 0, fmt.Errorf("unknown fact table %q", table)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE workspace_id = $1", table)
	args := []interface{}{workspaceID}
	// weekly perf and traffic tables hold a single portal
	if keyColumn != "" {
		clause, portalArgs := portal.Predicate("", keyColumn, p, 2)
		if clause != "" {
			query += " AND " + clause
			args = append(args, portalArgs...)
		}
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s rows: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *factRepository) InsertSales(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.SalesRow) (int64, error) {
	insert := `INSERT INTO sales_raw (workspace_id, portal, order_line_id, style_key, seller_sku_code, order_date, units, raw_json) VALUES `
	conflict := ` ON CONFLICT (workspace_id, order_line_id) DO NOTHING`
	return r.bulkInsert(ctx, tx, "sales_raw", insert, conflict, 8, len(rows), func(i int) []interface{} {
		s := rows[i]
		return []interface{}{workspaceID, nullablePortal(s.Portal), s.OrderLineID, s.StyleKey, s.SellerSKUCode, s.OrderDate, s.Units, s.Attributes}
	})
}

func (r *factRepository) InsertReturns(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.ReturnRow) (int64, error) {
	insert := `INSERT INTO returns_raw (workspace_id, portal, order_line_id, style_key, seller_sku_code, return_date, return_type, units, raw_json) VALUES `
	return r.bulkInsert(ctx, tx, "returns_raw", insert, "", 9, len(rows), func(i int) []interface{} {
		ret := rows[i]
		return []interface{}{workspaceID, nullablePortal(ret.Portal), ret.OrderLineID, ret.StyleKey, ret.SellerSKUCode, ret.ReturnDate, ret.ReturnType, ret.Units, ret.Attributes}
	})
}

// UpsertCatalog expects rows deduplicated on (style_key, seller_sku_code).
func (r *factRepository) UpsertCatalog(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.CatalogRow) (int64, error) {
	insert := `INSERT INTO catalog_raw (workspace_id, portal, style_key, seller_sku_code, brand, product_name, style_catalogued_date, raw_json, updated_at) VALUES `
	conflict := `
		ON CONFLICT (workspace_id, style_key, seller_sku_code)
		DO UPDATE SET
			portal = EXCLUDED.portal,
			brand = EXCLUDED.brand,
			product_name = EXCLUDED.product_name,
			style_catalogued_date = COALESCE(EXCLUDED.style_catalogued_date, catalog_raw.style_catalogued_date),
			raw_json = EXCLUDED.raw_json,
			updated_at = NOW()`
	now := time.Now().UTC()
	return r.bulkInsert(ctx, tx, "catalog_raw", insert, conflict, 9, len(rows), func(i int) []interface{} {
		c := rows[i]
		return []interface{}{workspaceID, nullablePortal(c.Portal), c.StyleKey, c.SellerSKUCode, nullString(c.Brand), nullString(c.ProductName), c.StyleCataloguedDate, c.Attributes, now}
	})
}

func (r *factRepository) InsertStock(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.StockRow, at time.Time) (int64, error) {
	insert := `INSERT INTO stock_raw (workspace_id, portal, seller_sku_code, qty, ingested_at) VALUES `
	return r.bulkInsert(ctx, tx, "stock_raw", insert, "", 5, len(rows), func(i int) []interface{} {
		s := rows[i]
		return []interface{}{workspaceID, nullablePortal(s.Portal), s.SellerSKUCode, s.Qty, at}
	})
}

func (r *factRepository) InsertWeeklyPerf(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.WeeklyPerfRow, at time.Time) (int64, error) {
	insert := `INSERT INTO myntra_weekly_perf_raw (
		workspace_id, style_key, seller_id, article_type, brand, gender, seller_mrp, inventory_age, rplc,
		impressions, clicks, add_to_carts, purchases, return_pct, consideration_pct, conversion_pct, rating,
		raw_json, ingested_at
	) VALUES `
	return r.bulkInsert(ctx, tx, "myntra_weekly_perf_raw", insert, "", 19, len(rows), func(i int) []interface{} {
		w := rows[i]
		return []interface{}{
			workspaceID, w.StyleKey, w.SellerID, nullString(w.ArticleType), nullString(w.Brand), nullString(w.Gender),
			w.SellerMRP, w.InventoryAge, w.RPLC,
			w.Impressions, w.Clicks, w.AddToCarts, w.Purchases,
			w.ReturnPct, w.ConsiderationPct, w.ConversionPct, w.Rating,
			w.Attributes, at,
		}
	})
}

func (r *factRepository) InsertTraffic(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, rows []domain.TrafficRow, at time.Time) (int64, error) {
	insert := `INSERT INTO flipkart_traffic_raw (
		workspace_id, impression_date, seller_sku_code, listing_id, product_title,
		product_views, product_clicks, sales_qty, revenue, ctr_pct, conversion_pct,
		raw_json, ingested_at
	) VALUES `
	return r.bulkInsert(ctx, tx, "flipkart_traffic_raw", insert, "", 13, len(rows), func(i int) []interface{} {
		t := rows[i]
		return []interface{}{
			workspaceID, t.ImpressionDate, t.SellerSKUCode, nullString(t.ListingID), nullString(t.ProductTitle),
			t.ProductViews, t.ProductClicks, t.SalesQty, t.Revenue, t.CTRPct, t.ConversionPct,
			t.Attributes, at,
		}
	})
}

// bulkInsert writes n rows as multi-row VALUES statements, chunked so that a
// statement never exceeds the bind parameter limit. It returns the number of
// rows actually inserted, which excludes conflicts skipped by DO NOTHING.
func (r *factRepository) bulkInsert(ctx context.Context, tx sqlx.ExtContext, table, insert, suffix string, cols, n int, row func(i int) []interface{}) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	chunk := r.batchSize
	if chunk*cols > maxParams {
		chunk = maxParams / cols
	}

	var total int64
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}

		var sb strings.Builder
		sb.WriteString(insert)
		args := make([]interface{}, 0, (end-start)*cols)
		for i := start; i < end; i++ {
			if i > start {
				sb.WriteString(",")
			}
			sb.WriteString("(")
			for c := 0; c < cols; c++ {
				if c > 0 {
					sb.WriteString(",")
				}
				fmt.Fprintf(&sb, "$%d", len(args)+c+1)
			}
			sb.WriteString(")")

			values := row(i)
			if len(values) != cols {
				return total, fmt.Errorf("%s: row %d has %d values, want %d", table, i, len(values), cols)
			}
			args = append(args, values...)
		}
		sb.WriteString(suffix)

		res, err := tx.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return total, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		affected, _ := res.RowsAffected()
		total += affected
	}
	return total, nil
}

func nullablePortal(p portal.Portal) interface{} {
	if p == portal.All {
		return nil
	}
	return string(p)
}

func nullString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
