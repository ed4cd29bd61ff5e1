package reason

import "strings"

// Buckets of the Myntra return reason taxonomy.
const (
	SizeTooBig         = "SIZE_TOO_BIG"
	SizeTooSmall       = "SIZE_TOO_SMALL"
	SizeDifferent      = "SIZE_DIFFERENT"
	FitNotLiked        = "FIT_NOT_LIKED"
	QualityDefect      = "QUALITY_DEFECT_DAMAGE"
	WrongProduct       = "WRONG_PRODUCT_DELIVERED"
	NotAsExpected      = "NOT_AS_EXPECTED_COLOR_IMAGE"
	FoundBetterPrice   = "FOUND_BETTER_PRICE"
	DeliveryDelayed    = "DELIVERY_DELAYED"
	ChangedMind        = "CUSTOMER_CHANGED_MIND"
	GenericOther       = "GENERIC_OTHER"
	Other              = "OTHER"
	Unknown            = "UNKNOWN"
	RTONoReason        = "RTO_NO_REASON"
	unknownDisplayText = "(Unknown)"
)

// Table maps normalized free-text phrases to buckets. It is read-only after
// construction; use NewTable or DefaultTable to build one.
type Table struct {
	phrases map[string]string
}

// NewTable builds a lookup table from bucket -> phrases. Phrases are
// normalized the same way reasons are at lookup time.
func NewTable(buckets map[string][]string) Table {
	phrases := make(map[string]string)
	for bucket, list := range buckets {
		for _, p := range list {
			phrases[normalizePhrase(p)] = bucket
		}
	}
	return Table{phrases: phrases}
}

// Lookup returns the bucket for a phrase.
func (t Table) Lookup(phrase string) (string, bool) {
	bucket, ok := t.phrases[normalizePhrase(phrase)]
	return bucket, ok
}

// Len reports the number of known phrases.
func (t Table) Len() int {
	return len(t.phrases)
}

// DefaultTable is the phrase table for Myntra's customer return reasons.
func DefaultTable() Table {
	return NewTable(map[string][]string{
		SizeTooBig:    {"size too big", "size is too large"},
		SizeTooSmall:  {"size too small", "size is too small"},
		SizeDifferent: {"size is different"},
		FitNotLiked:   {"i did not like the fit"},
		QualityDefect: {
			"product was defective",
			"defective product was delivered",
			"product was damaged",
			"received a poor quality product",
			"product looked old",
			"product was dirty and had stains",
		},
		WrongProduct: {
			"received a completely different product",
			"received a different product",
			"different product was delivered",
		},
		NotAsExpected:    {"color is different", "product image was better than the actual product"},
		FoundBetterPrice: {"found a better price elsewhere", "found a better price on myntra"},
		DeliveryDelayed:  {"delivery was delayed"},
		ChangedMind:      {"i do not need it anymore", "it did not look good on me"},
		GenericOther:     {"generic return reason"},
	})
}

func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
