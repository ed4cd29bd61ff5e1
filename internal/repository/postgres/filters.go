package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

// factFilter narrows a fact table to a portal and, when Styles is non-nil, to
// a set of normalized style keys (the catalog styles of a brand).
type factFilter struct {
	Portal portal.Portal
	Styles []string
}

// buildFactFilterClause returns " AND ..." conditions for alias, numbering
// placeholders from startIndex. keyColumn is the column the fk: shim and the
// style filter look at.
func buildFactFilterClause(f factFilter, alias, keyColumn string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex

	if clause, portalArgs := portal.Predicate(strings.TrimSuffix(alias, "."), keyColumn, f.Portal, idx); clause != "" {
		clauses = append(clauses, clause)
		args = append(args, portalArgs...)
		idx += len(portalArgs)
	}

	if f.Styles != nil {
		clauses = append(clauses, fmt.Sprintf("LOWER(TRIM(%sstyle_key)) = ANY($%d)", normalizeAlias(alias), idx))
		args = append(args, pq.Array(f.Styles))
		idx++
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

// catalogBrandCondition matches rows of alias whose style is catalogued under
// the brand bound at brandArg, or every row when that argument is empty. It
// resolves brands the same way as BrandStyles.
func catalogBrandCondition(alias string, workspaceArg, brandArg int) string {
	a := normalizeAlias(alias)
	return fmt.Sprintf(`($%[3]d = '' OR EXISTS (
	        SELECT 1 FROM catalog_raw bc
	        WHERE bc.workspace_id = $%[2]d
	          AND LOWER(TRIM(bc.style_key)) = LOWER(TRIM(%[1]sstyle_key))
	          AND LOWER(TRIM(bc.brand)) = $%[3]d
	    ))`, a, workspaceArg, brandArg)
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}

// portalExpr resolves the portal of a row, falling back to the key prefix for
// rows stored before the portal column existed.
func portalExpr(alias, keyColumn string) string {
	a := normalizeAlias(alias)
	return fmt.Sprintf("COALESCE(%[1]sportal, CASE WHEN LOWER(TRIM(%[1]s%[2]s)) LIKE 'fk:%%' THEN 'flipkart' ELSE 'myntra' END)", a, keyColumn)
}

// boardKeyExpr is the action board key: the style for Myntra rows and the
// seller SKU for Flipkart rows.
func boardKeyExpr(alias string) string {
	a := normalizeAlias(alias)
	return fmt.Sprintf(`CASE WHEN %[2]s = 'flipkart'
	        THEN LOWER(TRIM(%[1]sseller_sku_code))
	        ELSE LOWER(TRIM(%[1]sstyle_key))
	    END`, a, portalExpr(alias, "style_key"))
}

// returnTypeExpr normalizes return_type the way every aggregate compares it.
func returnTypeExpr(alias string) string {
	return fmt.Sprintf("UPPER(TRIM(COALESCE(%sreturn_type, '')))", normalizeAlias(alias))
}

func unitsExpr(alias string) string {
	return fmt.Sprintf("COALESCE(%sunits, 1)", normalizeAlias(alias))
}

// returnSplitColumns sums units into the total, customer return and RTO
// columns scanned by ReturnAgg.
func returnSplitColumns(alias string) string {
	u, t := unitsExpr(alias), returnTypeExpr(alias)
	return fmt.Sprintf(`COALESCE(SUM(%[1]s), 0) AS returns_total,
	    COALESCE(SUM(CASE WHEN %[2]s IN ('RETURN', 'CUSTOMER_RETURN') THEN %[1]s ELSE 0 END), 0) AS return_units,
	    COALESCE(SUM(CASE WHEN %[2]s = 'RTO' THEN %[1]s ELSE 0 END), 0) AS rto_units`, u, t)
}

// latestStockCTE selects the rows of the newest stock snapshot of each portal
// in workspace $1.
const latestStockCTE = `latest_stock AS (
	    SELECT st.seller_sku_code, st.qty, st.portal
	    FROM stock_raw st
	    JOIN (
	        SELECT COALESCE(portal, CASE WHEN LOWER(TRIM(seller_sku_code)) LIKE 'fk:%' THEN 'flipkart' ELSE 'myntra' END) AS p,
	               MAX(ingested_at) AS at
	        FROM stock_raw
	        WHERE workspace_id = $1
	        GROUP BY 1
	    ) l ON l.at = st.ingested_at
	       AND l.p = COALESCE(st.portal, CASE WHEN LOWER(TRIM(st.seller_sku_code)) LIKE 'fk:%' THEN 'flipkart' ELSE 'myntra' END)
	    WHERE st.workspace_id = $1
	)`
