package ingest

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
)

func TestReadCSV(t *testing.T) {
	data := "\xef\xbb\xbfOrder Line ID,Style ID\n\n101,55.0\n102,56\n,\n"
	tbl, err := Read(strings.NewReader(data), "sales.csv")
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, tbl.Format)
	assert.Equal(t, []string{"Order Line ID", "Style ID"}, tbl.Header)
	assert.Len(t, tbl.Rows, 2, "blank lines are dropped")
	assert.Equal(t, "55.0", tbl.Cell(tbl.Rows[0], 1))
	assert.Equal(t, "", tbl.Cell(tbl.Rows[0], 7))
	assert.Equal(t, "", tbl.Cell(tbl.Rows[0], -1))
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader("  \n"), "x.csv")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"SKU Id", "Impression Date", "Product Views"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"ABC-M", "2025-03-01", 12}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, FormatXLSX, DetectFormat(buf.Bytes(), "traffic.xlsx"))
	assert.Equal(t, FormatCSV, DetectFormat([]byte("a,b\n1,2\n"), "traffic.xlsx"))

	tbl, err := Read(bytes.NewReader(buf.Bytes()), "traffic.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, tbl.Format)
	assert.Equal(t, []string{"SKU Id", "Impression Date", "Product Views"}, tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "12", tbl.Cell(tbl.Rows[0], 2))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "orderlineid", NormalizeHeader(" Order Line ID "))
	assert.Equal(t, "orderlineid", NormalizeHeader("order_line_id"))
	assert.Equal(t, "return", NormalizeHeader("Return %"))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2025-02-10",
		"2025-02-10 13:45:00",
		"2025-02-10T13:45:00Z",
		"10-02-2025",
		"10/02/2025",
		"10-02-2025 09:00",
		"10-Feb-2025",
		"2025-02-10 13:45:00.123 +0530 IST",
	} {
		got, ok := ParseDate(in)
		if assert.True(t, ok, in) {
			assert.True(t, want.Equal(got), "%s -> %s", in, got)
		}
	}

	_, ok := ParseDate("not a date")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}

func TestParseNumbers(t *testing.T) {
	assert.Equal(t, int64(1200), ParseInt("1,200"))
	assert.Equal(t, int64(3), ParseInt("3.9"))
	assert.Equal(t, int64(0), ParseInt("n/a"))

	f, ok := ParseFloat("₹ 1,499.50")
	assert.True(t, ok)
	assert.Equal(t, 1499.5, f)

	if p := ParsePct("17.55%"); assert.NotNil(t, p) {
		assert.Equal(t, 17.55, *p)
	}
	assert.Nil(t, ParsePct(""))
}
