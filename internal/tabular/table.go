// Package tabular reads header-plus-rows tables from CSV, TSV and XLSX input.
//
// Every reader returns a *Table whose rows are padded to the header width,
// so callers can index cells without bounds checks.
package tabular

import "strings"

// Table is a header row plus data rows. Every row has len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// HeaderIndex maps column names to their position.
type HeaderIndex map[string]int

// Index returns the header positions of t. The first of duplicate names wins.
func (t *Table) Index() HeaderIndex {
	idx := make(HeaderIndex, len(t.Headers))
	for i, h := range t.Headers {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// Column returns the position of name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Distinct returns the distinct values of column col in first-seen order.
// Blank cells are missing values and are not counted.
func (t *Table) Distinct(col int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range t.Rows {
		v := row[col]
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Where returns a table with the rows whose column name equals value.
// Unknown columns yield an empty table with the same headers.
func (t *Table) Where(name, value string) *Table {
	out := &Table{Headers: t.Headers}
	col := t.Column(name)
	if col < 0 {
		return out
	}
	for _, row := range t.Rows {
		if row[col] == value {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// newTable builds a Table from raw records, cleaning header names and
// padding or truncating rows to the header width. Blank rows are skipped.
func newTable(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = CleanCell(h)
	}

	t := &Table{Headers: headers, Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make([]string, len(headers))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
