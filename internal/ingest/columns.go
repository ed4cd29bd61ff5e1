package ingest

import (
	"regexp"
	"strings"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
)

var nonHeaderChars = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader reduces a header to lowercase alphanumerics so that
// "Order Line ID", "order_line_id" and "order-line-id" compare equal.
func NormalizeHeader(s string) string {
	return nonHeaderChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// columns resolves logical column names against a table header and records
// which physical header matched each one.
type columns struct {
	index    map[string]int
	header   []string
	detected map[string]string
	missing  []string
}

func newColumns(t *Table) *columns {
	c := &columns{
		index:    make(map[string]int, len(t.Header)),
		header:   t.Header,
		detected: make(map[string]string),
	}
	for i, h := range t.Header {
		key := NormalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := c.index[key]; !dup {
			c.index[key] = i
		}
	}
	return c
}

func (c *columns) lookup(names ...string) int {
	for _, n := range names {
		if i, ok := c.index[NormalizeHeader(n)]; ok {
			return i
		}
	}
	return -1
}

// require returns the index of the first alias present. A miss is recorded
// and reported by err.
func (c *columns) require(key string, names ...string) int {
	i := c.lookup(names...)
	if i < 0 {
		c.missing = append(c.missing, names[0])
		return -1
	}
	c.detected[key] = c.header[i]
	return i
}

// optional returns the index of the first alias present, or -1.
func (c *columns) optional(key string, names ...string) int {
	i := c.lookup(names...)
	if i >= 0 {
		c.detected[key] = c.header[i]
	}
	return i
}

func (c *columns) err() error {
	if len(c.missing) == 0 {
		return nil
	}
	found := make([]string, 0, len(c.header))
	for _, h := range c.header {
		if strings.TrimSpace(h) != "" {
			found = append(found, h)
		}
	}
	if len(found) > 30 {
		found = found[:30]
	}
	return domain.NewValidationError("columns", "missing required column(s): %s; found: %s",
		strings.Join(c.missing, ", "), strings.Join(found, ", "))
}

// Detected returns a copy of the logical -> physical column mapping.
func (c *columns) Detected() map[string]string {
	out := make(map[string]string, len(c.detected))
	for k, v := range c.detected {
		out[k] = v
	}
	return out
}
