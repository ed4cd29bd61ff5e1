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

type attributionRepository struct {
	db *DB
}

func NewAttributionRepository(db *DB) *attributionRepository {
	return &attributionRepository{db: db}
}

// BrandStyles returns the normalized catalog style keys of brand.
func (r *attributionRepository) BrandStyles(ctx context.Context, workspaceID uuid.UUID, brand string) ([]string, error) {
	query := `
		SELECT DISTINCT LOWER(TRIM(style_key))
		FROM catalog_raw
		WHERE workspace_id = $1
		  AND LOWER(TRIM(brand)) = $2
		  AND TRIM(style_key) <> ''
	`
	styles := []string{}
	if err := r.db.SelectContext(ctx, &styles, query, workspaceID, strings.ToLower(strings.TrimSpace(brand))); err != nil {
		return nil, fmt.Errorf("error resolving styles for brand %q: %w", brand, err)
	}
	return styles, nil
}

// groupKeyExpr is the grouping column for alias, dated by dateColumn.
func groupKeyExpr(g attribution.GroupBy, alias, dateColumn string) string {
	a := normalizeAlias(alias)
	switch g {
	case attribution.GroupStyle:
		return fmt.Sprintf("LOWER(TRIM(%sstyle_key))", a)
	case attribution.GroupSKU:
		return fmt.Sprintf("LOWER(TRIM(%sseller_sku_code))", a)
	case attribution.GroupMonth:
		return fmt.Sprintf("TO_CHAR(DATE_TRUNC('month', %s%s), 'YYYY-MM')", a, dateColumn)
	case attribution.GroupDay:
		return fmt.Sprintf("TO_CHAR(%s%s, 'YYYY-MM-DD')", a, dateColumn)
	default:
		return "''::text"
	}
}

func (r *attributionRepository) Orders(ctx context.Context, q attribution.Query, styles []string) ([]attribution.OrderAgg, error) {
	filter, filterArgs := buildFactFilterClause(factFilter{Portal: q.Portal, Styles: styles}, "s", "style_key", 4)
	query := fmt.Sprintf(`
		SELECT %s AS key,
		       COALESCE(SUM(%s), 0) AS orders,
		       MAX(s.order_date) AS last_order_date
		FROM sales_raw s
		WHERE s.workspace_id = $1
		  AND s.order_date >= $2
		  AND s.order_date < $3
		  %s
		GROUP BY 1
	`, groupKeyExpr(q.GroupBy, "s", "order_date"), unitsExpr("s"), filter)

	args := append([]interface{}{q.WorkspaceID, q.Window.Start, q.Window.EndExclusive()}, filterArgs...)
	orders := []attribution.OrderAgg{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("error aggregating orders: %w", err)
	}
	return orders, nil
}

// Returns aggregates returns in the window. In same-month mode a return only
// counts when its order line sold inside the window in the same calendar
// month. Groups are always keyed from the return row, so same-month results
// are a subset of overall results for every key.
func (r *attributionRepository) Returns(ctx context.Context, q attribution.Query, styles []string) ([]attribution.ReturnAgg, error) {
	f := factFilter{Portal: q.Portal, Styles: styles}
	returnsFilter, filterArgs := buildFactFilterClause(f, "r", "style_key", 4)
	key := groupKeyExpr(q.GroupBy, "r", "return_date")

	var query string
	if q.Mode == attribution.SameMonth {
		// both sides bind the same $4.. arguments
		salesFilter, _ := buildFactFilterClause(f, "s", "style_key", 4)
		query = fmt.Sprintf(`
			WITH sales_one AS (
			    SELECT s.order_line_id, MIN(s.order_date) AS order_date
			    FROM sales_raw s
			    WHERE s.workspace_id = $1
			      AND s.order_date >= $2
			      AND s.order_date < $3
			      %s
			    GROUP BY s.order_line_id
			)
			SELECT %s AS key,
			    %s
			FROM returns_raw r
			JOIN sales_one so ON so.order_line_id = r.order_line_id
			WHERE r.workspace_id = $1
			  AND r.return_date >= $2
			  AND r.return_date < $3
			  AND DATE_TRUNC('month', so.order_date) = DATE_TRUNC('month', r.return_date)
			  %s
			GROUP BY 1
		`, salesFilter, key, returnSplitColumns("r"), returnsFilter)
	} else {
		query = fmt.Sprintf(`
			SELECT %s AS key,
			    %s
			FROM returns_raw r
			WHERE r.workspace_id = $1
			  AND r.return_date >= $2
			  AND r.return_date < $3
			  %s
			GROUP BY 1
		`, key, returnSplitColumns("r"), returnsFilter)
	}

	args := append([]interface{}{q.WorkspaceID, q.Window.Start, q.Window.EndExclusive()}, filterArgs...)
	returns := []attribution.ReturnAgg{}
	if err := r.db.SelectContext(ctx, &returns, query, args...); err != nil {
		return nil, fmt.Errorf("error aggregating returns (%s): %w", q.Mode, err)
	}
	return returns, nil
}

// PriceUnits groups units sold in the window by their recorded seller price.
func (r *attributionRepository) PriceUnits(ctx context.Context, q attribution.Query, styles []string) ([]domain.PriceUnits, error) {
	filter, filterArgs := buildFactFilterClause(factFilter{Portal: q.Portal, Styles: styles}, "s", "style_key", 4)
	query := fmt.Sprintf(`
		SELECT COALESCE(s.raw_json->>'%s', '') AS price,
		       COALESCE(SUM(%s), 0) AS units
		FROM sales_raw s
		WHERE s.workspace_id = $1
		  AND s.order_date >= $2
		  AND s.order_date < $3
		  %s
		GROUP BY 1
	`, domain.AttrSellerPrice, unitsExpr("s"), filter)

	args := append([]interface{}{q.WorkspaceID, q.Window.Start, q.Window.EndExclusive()}, filterArgs...)
	rows := []domain.PriceUnits{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error aggregating seller prices: %w", err)
	}
	return rows, nil
}

// ReasonUnits groups returned units in the window by raw reason text, return
// type and portal. Bucketing happens in the classifier.
func (r *attributionRepository) ReasonUnits(ctx context.Context, q attribution.Query, styles []string) ([]domain.ReasonUnits, error) {
	filter, filterArgs := buildFactFilterClause(factFilter{Portal: q.Portal, Styles: styles}, "r", "style_key", 4)
	query := fmt.Sprintf(`
		SELECT COALESCE(r.raw_json->>'%s', '') AS reason,
		       %s AS return_type,
		       %s AS portal,
		       COALESCE(SUM(%s), 0) AS units
		FROM returns_raw r
		WHERE r.workspace_id = $1
		  AND r.return_date >= $2
		  AND r.return_date < $3
		  %s
		GROUP BY 1, 2, 3
	`, domain.AttrReturnReason, returnTypeExpr("r"), portalExpr("r", "style_key"), unitsExpr("r"), filter)

	args := append([]interface{}{q.WorkspaceID, q.Window.Start, q.Window.EndExclusive()}, filterArgs...)
	rows := []domain.ReasonUnits{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error aggregating return reasons: %w", err)
	}
	return rows, nil
}

func (r *attributionRepository) ReasonCells(ctx context.Context, q attribution.Query, styles []string) ([]domain.ReasonCell, error) {
	if q.GroupBy != attribution.GroupStyle && q.GroupBy != attribution.GroupSKU {
		return nil, fmt.Errorf("reason cells need a style or sku grouping, got %q", q.GroupBy)
	}
	filter, filterArgs := buildFactFilterClause(factFilter{Portal: q.Portal, Styles: styles}, "r", "style_key", 4)
	key := groupKeyExpr(q.GroupBy, "r", "return_date")
	query := fmt.Sprintf(`
		SELECT %s AS key,
		       MAX(LOWER(TRIM(r.style_key))) AS style_key,
		       COALESCE(r.raw_json->>'%s', '') AS reason,
		       %s AS return_type,
		       %s AS portal,
		       COALESCE(SUM(%s), 0) AS units
		FROM returns_raw r
		WHERE r.workspace_id = $1
		  AND r.return_date >= $2
		  AND r.return_date < $3
		  AND %s <> ''
		  %s
		GROUP BY 1, 3, 4, 5
	`, key, domain.AttrReturnReason, returnTypeExpr("r"), portalExpr("r", "style_key"), unitsExpr("r"), key, filter)

	args := append([]interface{}{q.WorkspaceID, q.Window.Start, q.Window.EndExclusive()}, filterArgs...)
	cells := []domain.ReasonCell{}
	if err := r.db.SelectContext(ctx, &cells, query, args...); err != nil {
		return nil, fmt.Errorf("error aggregating return reasons by %s: %w", q.GroupBy, err)
	}
	return cells, nil
}

func (r *attributionRepository) Cohort(ctx context.Context, q attribution.Query, styles []string) ([]domain.CohortCell, error) {
	f := factFilter{Portal: q.Portal, Styles: styles}
	returnsFilter, filterArgs := buildFactFilterClause(f, "r", "style_key", 4)
	// both sides bind the same $4.. arguments
	salesFilter, _ := buildFactFilterClause(f, "s", "style_key", 4)
	query := fmt.Sprintf(`
		SELECT TO_CHAR(DATE_TRUNC('month', s.order_date), 'YYYY-MM') AS sale_month,
		       TO_CHAR(DATE_TRUNC('month', r.return_date), 'YYYY-MM') AS return_month,
		       %s
		FROM returns_raw r
		JOIN sales_raw s
		  ON s.workspace_id = r.workspace_id
		 AND s.order_line_id = r.order_line_id
		WHERE r.workspace_id = $1
		  AND s.order_date >= $2
		  AND s.order_date < $3
		  AND r.return_date >= $2
		  AND r.return_date < $3
		  %s
		  %s
		GROUP BY 1, 2
		ORDER BY 1, 2
	`, returnSplitColumns("r"), salesFilter, returnsFilter)

	args := append([]interface{}{q.WorkspaceID, q.Window.Start, q.Window.EndExclusive()}, filterArgs...)
	cells := []domain.CohortCell{}
	if err := r.db.SelectContext(ctx, &cells, query, args...); err != nil {
		return nil, fmt.Errorf("error aggregating return cohorts: %w", err)
	}
	return cells, nil
}

// StyleMeta returns brand and product name for the given normalized style keys.
func (r *attributionRepository) StyleMeta(ctx context.Context, workspaceID uuid.UUID, styles []string) ([]domain.StyleMeta, error) {
	meta := []domain.StyleMeta{}
	if len(styles) == 0 {
		return meta, nil
	}
	query := `
		SELECT LOWER(TRIM(style_key)) AS style_key,
		       COALESCE(MAX(brand), '') AS brand,
		       COALESCE(MAX(product_name), '') AS product_name
		FROM catalog_raw
		WHERE workspace_id = $1
		  AND LOWER(TRIM(style_key)) = ANY($2)
		GROUP BY 1
	`
	if err := r.db.SelectContext(ctx, &meta, query, workspaceID, pq.Array(styles)); err != nil {
		return nil, fmt.Errorf("error getting style metadata: %w", err)
	}
	return meta, nil
}
