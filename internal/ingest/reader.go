// Package ingest turns uploaded marketplace reports into fact rows.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
)

// Format is the detected container of an upload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Table is a header row plus data rows, all cells as text.
type Table struct {
	Format Format
	Header []string
	Rows   [][]string
}

// Read detects the upload format from its content and loads the first sheet
// (XLSX) or the whole file (CSV). The filename is only used as a tie breaker
// for zip containers that do not advertise themselves as workbooks.
func Read(r io.Reader, filename string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.NewValidationError("file", "upload is empty")
	}

	switch DetectFormat(data, filename) {
	case FormatXLSX:
		return readXLSX(data)
	default:
		return readCSV(data)
	}
}

// DetectFormat sniffs the content type of data.
func DetectFormat(data []byte, filename string) Format {
	mt := mimetype.Detect(data)
	if mt.Is(xlsxMIME) {
		return FormatXLSX
	}
	name := strings.ToLower(filename)
	if !strings.HasSuffix(name, ".xlsx") && !strings.HasSuffix(name, ".xlsm") {
		return FormatCSV
	}
	for ; mt != nil; mt = mt.Parent() {
		if mt.Is("application/zip") {
			return FormatXLSX
		}
	}
	return FormatCSV
}

func readCSV(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, domain.NewValidationError("file", "could not read CSV: %v", err)
	}
	return newTable(FormatCSV, records)
}

func readXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewValidationError("file", "could not read workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewValidationError("file", "workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from sheet %s: %w", sheets[0], err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in sheet %s: %w", sheets[0], err)
	}
	return newTable(FormatXLSX, records)
}

func newTable(format Format, records [][]string) (*Table, error) {
	// leading blank lines are common in exported workbooks
	for len(records) > 0 && blankRecord(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, domain.NewValidationError("file", "upload has no header row")
	}

	t := &Table{Format: format, Header: records[0]}
	for _, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Cell returns the trimmed value at column idx, or "" when idx is negative or
// the row is short.
func (t *Table) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Record returns the row as header -> value, used as the raw attributes of
// the stored fact.
func (t *Table) Record(row []string) domain.Attributes {
	attrs := make(domain.Attributes, len(t.Header))
	for i, h := range t.Header {
		h = strings.TrimSpace(h)
		if h == "" || i >= len(row) {
			continue
		}
		attrs.Set(h, row[i])
	}
	return attrs
}
