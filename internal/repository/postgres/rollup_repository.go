package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

// rollupLockClass namespaces the style_monthly advisory locks.
const rollupLockClass = 7301

type rollupRepository struct {
	db *DB
}

func NewRollupRepository(db *DB) *rollupRepository {
	return &rollupRepository{db: db}
}

// Refresh deletes and recomputes style_monthly. Orders count sales by
// order_date month; returns count every return type by return_date month.
// Styles with returns but no sales get zero orders and a NULL percentage.
//
// Refreshes of one workspace are serialized on a transaction-scoped advisory
// lock. Without it two uploads of the same month both delete, then collide on
// the primary key when the second inserts.
func (r *rollupRepository) Refresh(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, months []time.Time, full bool) (int64, error) {
	if !full && len(months) == 0 {
		return 0, nil
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`,
		rollupLockClass, workspaceID.String()); err != nil {
		return 0, fmt.Errorf("failed to lock style_monthly: %w", err)
	}

	monthArgs := make([]string, 0, len(months))
	for _, m := range months {
		monthArgs = append(monthArgs, m.Format("2006-01-02"))
	}
	args := []interface{}{workspaceID, full, pq.Array(monthArgs)}

	deleteQuery := `
		DELETE FROM style_monthly
		WHERE workspace_id = $1
		  AND ($2 OR month_start = ANY($3::date[]))
	`
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return 0, fmt.Errorf("failed to clear style_monthly: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		WITH sales AS (
		    SELECT DATE_TRUNC('month', s.order_date)::date AS month_start,
		           LOWER(TRIM(s.style_key)) AS style_key,
		           MAX(%[1]s) AS portal,
		           SUM(%[2]s) AS orders,
		           MAX(s.order_date) AS last_order_date
		    FROM sales_raw s
		    WHERE s.workspace_id = $1
		      AND ($2 OR DATE_TRUNC('month', s.order_date)::date = ANY($3::date[]))
		      AND TRIM(s.style_key) <> ''
		    GROUP BY 1, 2
		),
		rets AS (
		    SELECT DATE_TRUNC('month', r.return_date)::date AS month_start,
		           LOWER(TRIM(r.style_key)) AS style_key,
		           MAX(%[3]s) AS portal,
		           SUM(%[4]s) AS returns
		    FROM returns_raw r
		    WHERE r.workspace_id = $1
		      AND ($2 OR DATE_TRUNC('month', r.return_date)::date = ANY($3::date[]))
		      AND TRIM(r.style_key) <> ''
		    GROUP BY 1, 2
		)
		INSERT INTO style_monthly (workspace_id, month_start, style_key, portal, orders, returns, return_pct, last_order_date)
		SELECT $1,
		       COALESCE(s.month_start, r.month_start),
		       COALESCE(s.style_key, r.style_key),
		       COALESCE(s.portal, r.portal),
		       COALESCE(s.orders, 0),
		       COALESCE(r.returns, 0),
		       CASE WHEN COALESCE(s.orders, 0) > 0
		            THEN ROUND(COALESCE(r.returns, 0) * 100.0 / s.orders, 2)::float8
		       END,
		       s.last_order_date
		FROM sales s
		FULL OUTER JOIN rets r
		  ON r.month_start = s.month_start AND r.style_key = s.style_key
	`, portalExpr("s", "style_key"), unitsExpr("s"), portalExpr("r", "style_key"), unitsExpr("r"))

	res, err := tx.ExecContext(ctx, insertQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild style_monthly: %w", err)
	}
	n, _ := res.RowsAffected()

	log.Debug().
		Str("workspace_id", workspaceID.String()).
		Bool("full", full).
		Int("months", len(months)).
		Int64("rows", n).
		Msg("style_monthly refreshed")
	return n, nil
}

func (r *rollupRepository) List(ctx context.Context, workspaceID uuid.UUID, from, to time.Time, styleKey string, p portal.Portal) ([]domain.StyleMonthly, error) {
	query := `
		SELECT month_start, style_key, portal, orders, returns, return_pct, last_order_date
		FROM style_monthly
		WHERE workspace_id = $1
		  AND month_start >= $2
		  AND month_start <= $3
	`
	args := []interface{}{workspaceID, from, to}
	idx := 4

	if key := strings.ToLower(strings.TrimSpace(styleKey)); key != "" {
		query += fmt.Sprintf(" AND style_key = $%d", idx)
		args = append(args, key)
		idx++
	}
	if clause, portalArgs := portal.Predicate("", "style_key", p, idx); clause != "" {
		query += " AND " + clause
		args = append(args, portalArgs...)
	}
	query += " ORDER BY month_start, style_key"

	rows := []domain.StyleMonthly{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting style_monthly: %w", err)
	}
	return rows, nil
}
