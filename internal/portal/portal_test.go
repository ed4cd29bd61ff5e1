package portal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Portal
	}{
		{"", All},
		{"all", All},
		{" FK ", Flipkart},
		{"flipkart", Flipkart},
		{"mn", Myntra},
		{"Myntra", Myntra},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := Parse("amazon")
	assert.Error(t, err)
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name   string
		portal Portal
		in     string
		want   string
	}{
		{"myntra float artifact", Myntra, " 12345.0 ", "12345"},
		{"myntra case", Myntra, "ABC-12", "abc-12"},
		{"myntra keeps inner dots", Myntra, "1.05", "1.05"},
		{"flipkart adds prefix", Flipkart, " TSHFZ8GH ", "fk:tshfz8gh"},
		{"flipkart no double prefix", Flipkart, "FK:tshfz8gh", "fk:tshfz8gh"},
		{"flipkart blank still prefixed", Flipkart, "   ", "fk:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.portal, tt.in))
		})
	}
}

func TestNormalizeKeyIdempotent(t *testing.T) {
	inputs := []string{"", "  X.0", "fk:abc", "FK:ABC-L", "123.0.0", "Style 9", "mx-em-001-wine-l"}
	for _, p := range []Portal{Myntra, Flipkart} {
		for _, in := range inputs {
			once := NormalizeKey(p, in)
			assert.Equal(t, once, NormalizeKey(p, once), "%s %q", p, in)
			if p == Flipkart {
				assert.True(t, strings.HasPrefix(once, FlipkartPrefix), in)
			}
		}
	}
}

func TestFlipkartOrderLineID(t *testing.T) {
	assert.Equal(t, "fk:acme:312345678", FlipkartOrderLineID("Acme", "312345678.0"))
	assert.Equal(t, "fk:acme:3123", FlipkartOrderLineID("acme", "OI:3123"))
}

func TestInfer(t *testing.T) {
	assert.Equal(t, Flipkart, Infer("fk:abc"))
	assert.Equal(t, Myntra, Infer("12345"))
}

func TestPredicate(t *testing.T) {
	clause, args := Predicate("s", "style_key", All, 3)
	assert.Empty(t, clause)
	assert.Nil(t, args)

	clause, args = Predicate("r", "order_line_id", Flipkart, 4)
	assert.Contains(t, clause, "COALESCE(r.portal")
	assert.Contains(t, clause, "LOWER(TRIM(r.order_line_id)) LIKE 'fk:%'")
	assert.True(t, strings.HasSuffix(clause, "= $4"))
	assert.Equal(t, []interface{}{"flipkart"}, args)
}
