package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

// Brands lists the catalog brands of the workspace. These are the values the
// brand filter resolves against.
func (r *catalogRepository) Brands(ctx context.Context, workspaceID uuid.UUID, p portal.Portal) ([]string, error) {
	filter, filterArgs := buildFactFilterClause(factFilter{Portal: p}, "c", "style_key", 2)
	query := fmt.Sprintf(`
		SELECT DISTINCT TRIM(c.brand)
		FROM catalog_raw c
		WHERE c.workspace_id = $1 AND COALESCE(TRIM(c.brand), '') <> ''
		  %s
		ORDER BY 1
	`, filter)

	brands := []string{}
	if err := r.db.SelectContext(ctx, &brands, query, append([]interface{}{workspaceID}, filterArgs...)...); err != nil {
		return nil, fmt.Errorf("error getting brands: %w", err)
	}
	return brands, nil
}

func (r *catalogRepository) ZeroSales(ctx context.Context, workspaceID uuid.UUID, q repository.ZeroSalesQuery) ([]domain.ZeroSalesStyle, error) {
	// catalog and sales bind the same portal arguments
	catalogFilter, filterArgs := buildFactFilterClause(factFilter{Portal: q.Portal}, "c", "style_key", 4)
	salesFilter, _ := buildFactFilterClause(factFilter{Portal: q.Portal}, "s", "style_key", 4)

	args := append([]interface{}{workspaceID, q.AsOf, q.MinDaysLive}, filterArgs...)
	idx := 4 + len(filterArgs)

	brandClause := ""
	if brand := strings.ToLower(strings.TrimSpace(q.Brand)); brand != "" {
		brandClause = fmt.Sprintf("AND LOWER(TRIM(c.brand)) = $%d", idx)
		args = append(args, brand)
		idx++
	}
	args = append(args, q.Limit)

	direction := "DESC"
	if q.Ascending {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		WITH cat AS (
		    SELECT LOWER(TRIM(c.style_key)) AS style_key,
		           %s AS portal,
		           COALESCE(MAX(c.brand), '') AS brand,
		           COALESCE(MAX(c.product_name), '') AS product_name,
		           MIN(c.style_catalogued_date) AS live_date
		    FROM catalog_raw c
		    WHERE c.workspace_id = $1
		      AND TRIM(c.style_key) <> ''
		      %s
		      %s
		    GROUP BY 1, 2
		), sold AS (
		    SELECT DISTINCT LOWER(TRIM(s.style_key)) AS style_key
		    FROM sales_raw s
		    WHERE s.workspace_id = $1
		      %s
		)
		SELECT cat.style_key, cat.portal, cat.brand, cat.product_name, cat.live_date,
		       ($2::date - cat.live_date) AS days_live
		FROM cat
		LEFT JOIN sold ON sold.style_key = cat.style_key
		WHERE sold.style_key IS NULL
		  AND cat.live_date IS NOT NULL
		  AND ($2::date - cat.live_date) >= $3
		ORDER BY days_live %s, cat.style_key
		LIMIT $%d
	`, portalExpr("c", "style_key"), catalogFilter, brandClause, salesFilter, direction, idx)

	rows := []domain.ZeroSalesStyle{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error listing zero-sales styles: %w", err)
	}
	return rows, nil
}
