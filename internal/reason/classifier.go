// Package reason buckets free-text marketplace return reasons into a fixed
// taxonomy. Classification is pure so it can run during ingestion and again
// at query time.
package reason

import (
	"regexp"
	"strings"

	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

type Classifier struct {
	table Table
}

func NewClassifier(table Table) *Classifier {
	return &Classifier{table: table}
}

// Classify returns the bucket for a raw reason. Empty reasons on RTO rows map
// to RTO_NO_REASON, other empty reasons to UNKNOWN. Myntra text is looked up in
// the phrase table and falls back to OTHER; Flipkart codes are normalized to
// upper snake case.
func (c *Classifier) Classify(rawReason, returnType string, p portal.Portal) string {
	text := strings.TrimSpace(rawReason)
	if text == "" || text == unknownDisplayText {
		if IsRTO(returnType) {
			return RTONoReason
		}
		return Unknown
	}

	if p == portal.Flipkart {
		code := strings.Trim(nonAlnum.ReplaceAllString(text, "_"), "_")
		if code == "" {
			return Unknown
		}
		return strings.ToUpper(code)
	}

	if bucket, ok := c.table.Lookup(text); ok {
		return bucket
	}
	return Other
}

// IsRTO reports whether a raw return type denotes a return-to-origin.
func IsRTO(returnType string) bool {
	return strings.ToUpper(strings.TrimSpace(returnType)) == "RTO"
}

// Clean trims a raw reason and collapses the blank placeholder values that
// reports use into an empty string.
func Clean(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "-", strings.ToLower(unknownDisplayText):
		return ""
	}
	return s
}
