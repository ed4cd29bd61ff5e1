package ingest

import (
	"strings"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
)

// Options carry per-upload context into parsing.
type Options struct {
	WorkspaceSlug string
	SourceFile    string
}

// Parser maps report tables to fact rows. It classifies return reasons as
// rows are read so the clean reason is stored next to the raw one.
type Parser struct {
	reasons *reason.Classifier
}

func NewParser(reasons *reason.Classifier) *Parser {
	return &Parser{reasons: reasons}
}

// Parse dispatches on kind. Missing required columns fail the whole upload
// with a validation error; bad cells are coerced or the row is skipped.
func (p *Parser) Parse(kind Kind, t *Table, opts Options) (*Batch, error) {
	var (
		b   *Batch
		err error
	)
	switch kind {
	case KindSales:
		b, err = p.parseSales(t)
	case KindReturns:
		b, err = p.parseReturns(t)
	case KindCatalog:
		b, err = p.parseCatalog(t)
	case KindStock:
		b, err = p.parseStock(t)
	case KindWeeklyPerf:
		b, err = p.parseWeeklyPerf(t)
	case KindFlipkartEvents:
		b, err = p.parseFlipkartEvents(t, opts.WorkspaceSlug)
	case KindFlipkartListing:
		b, err = p.parseFlipkartListing(t)
	case KindFlipkartTraffic:
		b, err = p.parseFlipkartTraffic(t)
	default:
		return nil, domain.NewValidationError("kind", "unknown upload kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	b.Kind = kind
	b.RowsInFile = len(t.Rows)
	if opts.SourceFile != "" {
		tagSource(b, opts.SourceFile)
	}
	return b, nil
}

func tagSource(b *Batch, file string) {
	for i := range b.Sales {
		b.Sales[i].Attributes.Set(domain.AttrSourceFile, file)
	}
	for i := range b.Returns {
		b.Returns[i].Attributes.Set(domain.AttrSourceFile, file)
	}
	for i := range b.Catalog {
		b.Catalog[i].Attributes.Set(domain.AttrSourceFile, file)
	}
}

// normalizeReturnType folds free-text return types to RTO, RETURN or an
// upper-cased label.
func normalizeReturnType(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(t, "rto"):
		return "RTO"
	case strings.Contains(t, "return"):
		return "RETURN"
	case t == "":
		return "UNKNOWN"
	default:
		return strings.ToUpper(t)
	}
}

// units treats absent or non-positive quantities as one unit.
func units(s string) int {
	n := ParseInt(s)
	if n <= 0 {
		return 1
	}
	return int(n)
}

func orderLineID(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ".0") {
		s = strings.TrimSuffix(s, ".0")
	}
	return s
}
