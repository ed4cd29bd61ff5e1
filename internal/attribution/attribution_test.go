package attribution

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Overall, m)

	m, err = ParseMode("Same-Month")
	require.NoError(t, err)
	assert.Equal(t, SameMonth, m)

	_, err = ParseMode("cohort")
	assert.True(t, domain.IsValidation(err))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2025-02-01", "2025-02-28")
	require.NoError(t, err)
	assert.Equal(t, date("2025-03-01"), w.EndExclusive())
	assert.Equal(t, 28, w.Days())

	w, err = ParseWindow("2025-02-10", "2025-02-10")
	require.NoError(t, err)
	assert.Equal(t, 1, w.Days())

	_, err = ParseWindow("2025-03-01", "2025-02-01")
	assert.True(t, domain.IsValidation(err), "inverted range")

	_, err = ParseWindow("01/02/2025", "2025-02-01")
	assert.True(t, domain.IsValidation(err), "unparsable start")

	_, err = ParseWindow("2025-02-01", "")
	assert.True(t, domain.IsValidation(err), "missing end")
}

func TestMonthHelpers(t *testing.T) {
	w := MonthWindow(date("2024-02-17"))
	assert.Equal(t, date("2024-02-01"), w.Start)
	assert.Equal(t, date("2024-02-29"), w.End)

	m, err := ParseMonth("2025-01")
	require.NoError(t, err)
	assert.Equal(t, date("2025-01-01"), m)

	m, err = ParseMonth("2025-01-20")
	require.NoError(t, err)
	assert.Equal(t, date("2025-01-01"), m)

	_, err = ParseMonth("jan")
	assert.Error(t, err)

	months := DistinctMonths([]time.Time{date("2025-02-10"), date("2025-01-05"), date("2025-02-20"), {}})
	assert.Equal(t, []time.Time{date("2025-01-01"), date("2025-02-01")}, months)
}

func TestReturnPct(t *testing.T) {
	assert.Nil(t, ReturnPct(5, 0), "no orders means no percentage")
	assert.Nil(t, ReturnPct(0, 0))

	pct := ReturnPct(1, 3)
	require.NotNil(t, pct)
	assert.Equal(t, 33.33, *pct)

	pct = ReturnPct(2, 1)
	require.NotNil(t, pct)
	assert.Equal(t, 200.0, *pct)
}

func TestMerge(t *testing.T) {
	last := date("2025-02-10")
	rows := Merge(
		[]OrderAgg{{Key: "s1", Orders: 3, LastOrderDate: &last}, {Key: "s2", Orders: 4}},
		[]ReturnAgg{{Key: "s1", Total: 2, ReturnUnits: 1, RTOUnits: 1}, {Key: "s3", Total: 1, ReturnUnits: 1}},
	)
	require.Len(t, rows, 3)

	assert.Equal(t, "s1", rows[0].Key)
	assert.Equal(t, int64(3), rows[0].Orders)
	assert.Equal(t, int64(2), rows[0].ReturnsTotal)
	assert.Equal(t, 66.67, *rows[0].ReturnPct)
	assert.Equal(t, &last, rows[0].LastOrderDate)

	assert.Equal(t, "s2", rows[1].Key)
	assert.Equal(t, 0.0, *rows[1].ReturnPct)

	assert.Equal(t, "s3", rows[2].Key)
	assert.Nil(t, rows[2].ReturnPct, "returns without orders")

	total := Total(rows)
	assert.Equal(t, int64(7), total.Orders)
	assert.Equal(t, int64(3), total.ReturnsTotal)
	assert.Equal(t, int64(2), total.ReturnUnits)
	assert.Equal(t, int64(1), total.RTOUnits)
	assert.Equal(t, 42.86, *total.ReturnPct)
}

func TestTotalOfNothing(t *testing.T) {
	total := Total(nil)
	assert.Zero(t, total.Orders)
	assert.Nil(t, total.ReturnPct)
}

func TestTop(t *testing.T) {
	rows := Merge(
		[]OrderAgg{{Key: "a", Orders: 10}, {Key: "b", Orders: 10}, {Key: "c", Orders: 1}, {Key: "d", Orders: 20}},
		[]ReturnAgg{{Key: "a", Total: 5}, {Key: "b", Total: 5}, {Key: "c", Total: 1}, {Key: "d", Total: 2}, {Key: "e", Total: 4}},
	)

	top := Top(rows, 2, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Key)
	assert.Equal(t, "b", top[1].Key)

	all := Top(rows, 0, 0)
	keys := make([]string, 0, len(all))
	for _, r := range all {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, keys, "rows without orders are dropped")
}

func TestClassifyType(t *testing.T) {
	assert.Equal(t, RTO, ClassifyType(" rto "))
	assert.Equal(t, CustomerReturn, ClassifyType("Return"))
	assert.Equal(t, CustomerReturn, ClassifyType("customer_return"))
	assert.Equal(t, OtherType, ClassifyType("EXCHANGE"))
	assert.Equal(t, OtherType, ClassifyType(""))
}

func TestQueryValidate(t *testing.T) {
	w, err := ParseWindow("2025-01-01", "2025-01-31")
	require.NoError(t, err)

	q := Query{WorkspaceID: uuid.New(), Window: w, Mode: Overall, GroupBy: GroupStyle, Brand: "  Roadster "}
	assert.NoError(t, q.Validate())
	assert.Equal(t, "roadster", q.NormalizedBrand())

	q.Mode = "weird"
	assert.True(t, domain.IsValidation(q.Validate()))

	q.Mode = SameMonth
	q.WorkspaceID = uuid.Nil
	assert.True(t, domain.IsValidation(q.Validate()))
}
