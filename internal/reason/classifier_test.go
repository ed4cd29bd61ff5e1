package reason

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

func TestClassifyMyntra(t *testing.T) {
	c := NewClassifier(DefaultTable())

	tests := []struct {
		reason     string
		returnType string
		want       string
	}{
		{"Size is too large", "RETURN", SizeTooBig},
		{"  size TOO small ", "CUSTOMER_RETURN", SizeTooSmall},
		{"Received a different product", "RETURN", WrongProduct},
		{"Product was dirty and had stains", "RETURN", QualityDefect},
		{"weird custom text", "RETURN", Other},
		{"", "RTO", RTONoReason},
		{"", " rto ", RTONoReason},
		{"", "RETURN", Unknown},
		{"(Unknown)", "RETURN", Unknown},
		{"Delivery was delayed", "RTO", DeliveryDelayed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.reason, tt.returnType, portal.Myntra), tt.reason)
	}
}

func TestClassifyFlipkart(t *testing.T) {
	c := NewClassifier(DefaultTable())

	assert.Equal(t, "SIZE_ISSUE", c.Classify("size issue", "CUSTOMER_RETURN", portal.Flipkart))
	assert.Equal(t, "QUALITY_ISSUE_DAMAGED", c.Classify(" quality-issue / damaged! ", "CUSTOMER_RETURN", portal.Flipkart))
	assert.Equal(t, RTONoReason, c.Classify("", "RTO", portal.Flipkart))
	assert.Equal(t, Unknown, c.Classify("***", "CUSTOMER_RETURN", portal.Flipkart))
}

func TestClassifyUsesInjectedTable(t *testing.T) {
	c := NewClassifier(NewTable(map[string][]string{"CUSTOM": {"too shiny"}}))

	assert.Equal(t, "CUSTOM", c.Classify("Too   Shiny", "RETURN", portal.Myntra))
	assert.Equal(t, Other, c.Classify("Size is too large", "RETURN", portal.Myntra))
}

func TestDefaultTableIsStable(t *testing.T) {
	a, b := DefaultTable(), DefaultTable()
	assert.Equal(t, a.Len(), b.Len())
	assert.Equal(t, 23, a.Len())
}

func TestClean(t *testing.T) {
	assert.Equal(t, "", Clean("  nan "))
	assert.Equal(t, "", Clean("(Unknown)"))
	assert.Equal(t, "Size is too large", Clean(" Size   is too large "))
}
