package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewReader wraps r so that a UTF-8 byte order mark is skipped and invalid
// UTF-8 sequences are replaced with U+FFFD.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// ReadDelimited reads a delimited text table. The first record is the header.
// Rows may be ragged; quotes are handled leniently.
func ReadDelimited(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(NewReader(r))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if comma == '\t' {
		cr.LazyQuotes = false
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read delimited: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read delimited: no header row")
	}
	return newTable(records), nil
}

// ReadCSV reads a comma separated table.
func ReadCSV(r io.Reader) (*Table, error) {
	return ReadDelimited(r, ',')
}

// ReadXLSX reads one sheet of a workbook. An empty sheet name selects the
// first sheet.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}
	return newTable(rows), nil
}

// ReadFile reads a table from path, choosing the format by extension:
// .xlsx/.xlsm as a workbook (first sheet), .tsv/.tab as tab separated,
// anything else as CSV.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		t, err = ReadXLSX(bytes.NewReader(data), "")
	case ".xls":
		return nil, fmt.Errorf("%s: legacy .xls workbooks are not supported, save as .xlsx", path)
	case ".tsv", ".tab":
		t, err = ReadDelimited(bytes.NewReader(data), '\t')
	default:
		t, err = ReadCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
