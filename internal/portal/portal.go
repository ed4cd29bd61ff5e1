// Package portal namespaces marketplace identifiers so that Myntra and Flipkart
// rows can share the same fact tables without key collisions.
package portal

import (
	"fmt"
	"strings"
)

// Portal identifies the marketplace a row came from. The zero value means
// "all portals" when used as a query filter.
type Portal string

const (
	All      Portal = ""
	Myntra   Portal = "myntra"
	Flipkart Portal = "flipkart"
)

// FlipkartPrefix marks every Flipkart key in shared tables.
const FlipkartPrefix = "fk:"

// Parse accepts the aliases used by the dashboards ("fk", "mn") and the empty
// string or "all" for no filter.
func Parse(s string) (Portal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "fk", "flipkart":
		return Flipkart, nil
	case "mn", "myntra":
		return Myntra, nil
	default:
		return All, fmt.Errorf("unknown portal %q (expected myntra, flipkart or all)", s)
	}
}

func (p Portal) String() string {
	if p == All {
		return "all"
	}
	return string(p)
}

// Infer recovers the portal of a stored key from its prefix.
func Infer(key string) Portal {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(key)), FlipkartPrefix) {
		return Flipkart
	}
	return Myntra
}

// NormalizeKey produces the canonical form of a style key, SKU or order line id.
//
// Flipkart keys are lowercased, trimmed and carry the "fk:" prefix exactly once,
// even when the raw value is blank. Myntra keys are lowercased, trimmed and lose
// a trailing ".0" left behind by spreadsheets that parsed numeric ids as floats.
// Normalizing an already-normalized key returns it unchanged.
func NormalizeKey(p Portal, raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if p == Flipkart {
		s = strings.TrimSpace(strings.TrimPrefix(s, FlipkartPrefix))
		return FlipkartPrefix + s
	}
	return stripFloatSuffix(s)
}

// NormalizeMyntra is shorthand for NormalizeKey(Myntra, raw).
func NormalizeMyntra(raw string) string {
	return NormalizeKey(Myntra, raw)
}

// NormalizeFlipkart is shorthand for NormalizeKey(Flipkart, raw).
func NormalizeFlipkart(raw string) string {
	return NormalizeKey(Flipkart, raw)
}

// FlipkartOrderLineID synthesizes an order line id that cannot collide with
// Myntra's numeric ids or with another workspace's Flipkart ids.
func FlipkartOrderLineID(workspaceSlug, orderItemID string) string {
	id := strings.TrimSpace(orderItemID)
	id = strings.TrimPrefix(id, "OI:")
	id = stripFloatSuffix(strings.ToLower(id))
	return fmt.Sprintf("%s%s:%s", FlipkartPrefix, strings.ToLower(strings.TrimSpace(workspaceSlug)), id)
}

func stripFloatSuffix(s string) string {
	for strings.HasSuffix(s, ".0") {
		s = strings.TrimSuffix(s, ".0")
	}
	return s
}

// Predicate returns a SQL boolean expression restricting alias's rows to p.
//
// Rows ingested with an explicit portal column use it directly; rows with a
// NULL portal fall back to the "fk:" prefix on keyColumn. The bound parameter
// is $argIndex and takes the portal name. For All the expression is empty and
// no argument is consumed.
func Predicate(alias, keyColumn string, p Portal, argIndex int) (string, []interface{}) {
	if p == All {
		return "", nil
	}
	col := keyColumn
	portalCol := "portal"
	if alias != "" {
		col = alias + "." + keyColumn
		portalCol = alias + ".portal"
	}
	clause := fmt.Sprintf(
		"COALESCE(%s, CASE WHEN LOWER(TRIM(%s)) LIKE 'fk:%%' THEN 'flipkart' ELSE 'myntra' END) = $%d",
		portalCol, col, argIndex,
	)
	return clause, []interface{}{string(p)}
}
