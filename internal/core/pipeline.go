package core

// pipeline.go holds the generic record operations used after normalization:
// filtering by selection, pivoting into a country x year matrix, and picking
// the latest observation per group.
//
// Duplicate (row key, year) pairs are always aggregated by summing valid
// values. Every source goes through the same Pivot, so the policy is uniform.

import (
	"sort"
	"strings"
)

// FilterSpec is a user selection applied to canonical records.
type FilterSpec struct {
	Countries  []string          // Country codes in the source's own code system
	FromYear   int               // Inclusive
	ToYear     int               // Inclusive
	Dimensions map[string]string // Dimension name -> required value
}

// Filter keeps records whose country is selected, whose year lies in the
// inclusive range and whose dimensions equal every requested value.
// A requested dimension missing from a record excludes that record.
func Filter(records []Record, spec FilterSpec) []Record {
	countries := make(map[string]struct{}, len(spec.Countries))
	for _, c := range spec.Countries {
		countries[c] = struct{}{}
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := countries[r.CountryCode]; !ok {
			continue
		}
		if r.Year < spec.FromYear || r.Year > spec.ToYear {
			continue
		}
		if !matchDims(r, spec.Dimensions) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchDims(r Record, want map[string]string) bool {
	for name, value := range want {
		got, ok := r.Dims.Get(name)
		if !ok || got != value {
			return false
		}
	}
	return true
}

// DropMissing removes records without a valid value.
func DropMissing(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Value.Valid {
			out = append(out, r)
		}
	}
	return out
}

// YearBounds returns the smallest and largest year among records with a
// valid value. ok is false when there are none.
func YearBounds(records []Record) (min, max int, ok bool) {
	for _, r := range records {
		if !r.Value.Valid {
			continue
		}
		if !ok {
			min, max, ok = r.Year, r.Year, true
			continue
		}
		if r.Year < min {
			min = r.Year
		}
		if r.Year > max {
			max = r.Year
		}
	}
	return min, max, ok
}

// SortByCountryYear orders records by (country_code, year) ascending.
// The sort is stable so dimension order within a pair is preserved.
func SortByCountryYear(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CountryCode != records[j].CountryCode {
			return records[i].CountryCode < records[j].CountryCode
		}
		return records[i].Year < records[j].Year
	})
}

// CountryCodes returns the distinct country codes of records in first-seen order.
func CountryCodes(records []Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if _, ok := seen[r.CountryCode]; ok {
			continue
		}
		seen[r.CountryCode] = struct{}{}
		out = append(out, r.CountryCode)
	}
	return out
}

// PivotRow is one row of a pivot table. Values align with PivotTable.Years.
type PivotRow struct {
	Key    []string    `json:"key"`
	Values []NullFloat `json:"values"`
}

// PivotTable is records reshaped into rows keyed by country (plus optional
// dimensions) and one column per year.
type PivotTable struct {
	Index []string   `json:"index"`
	Years []int      `json:"years"`
	Rows  []PivotRow `json:"rows"`
}

// Pivot reshapes records into a matrix indexed by country_code followed by
// the given dimensions. Duplicate cells are summed; records without a valid
// value are ignored, so a cell with no valid contribution is absent.
func Pivot(records []Record, index ...string) *PivotTable {
	type cellKey struct {
		row  string
		year int
	}

	sums := make(map[cellKey]float64)
	rowKeys := make(map[string][]string)
	years := make(map[int]struct{})

	for _, r := range records {
		if !r.Value.Valid {
			continue
		}
		key := make([]string, 0, len(index)+1)
		key = append(key, r.CountryCode)
		for _, name := range index {
			v, _ := r.Dims.Get(name)
			key = append(key, v)
		}
		joined := strings.Join(key, "\x00")
		rowKeys[joined] = key
		years[r.Year] = struct{}{}
		sums[cellKey{joined, r.Year}] += r.Value.Float64
	}

	p := &PivotTable{
		Index: append([]string{"country_code"}, index...),
		Years: make([]int, 0, len(years)),
	}
	for y := range years {
		p.Years = append(p.Years, y)
	}
	sort.Ints(p.Years)

	joinedKeys := make([]string, 0, len(rowKeys))
	for k := range rowKeys {
		joinedKeys = append(joinedKeys, k)
	}
	sort.Strings(joinedKeys)

	for _, k := range joinedKeys {
		row := PivotRow{Key: rowKeys[k], Values: make([]NullFloat, len(p.Years))}
		for i, y := range p.Years {
			if v, ok := sums[cellKey{k, y}]; ok {
				row.Values[i] = Float(v)
			}
		}
		p.Rows = append(p.Rows, row)
	}

	return p
}

// LatestPerCountry keeps, for each group of country plus groupKeys, the record
// with the largest year. The first record wins a tie. Output is sorted by group.
func LatestPerCountry(records []Record, groupKeys ...string) []Record {
	latest := make(map[string]Record)
	var order []string

	for _, r := range records {
		parts := make([]string, 0, len(groupKeys)+1)
		parts = append(parts, r.CountryCode)
		for _, k := range groupKeys {
			v, _ := r.Dims.Get(k)
			parts = append(parts, v)
		}
		key := strings.Join(parts, "\x00")

		cur, seen := latest[key]
		if !seen {
			order = append(order, key)
			latest[key] = r
			continue
		}
		if r.Year > cur.Year {
			latest[key] = r
		}
	}

	sort.Strings(order)
	out := make([]Record, 0, len(order))
	for _, k := range order {
		out = append(out, latest[k])
	}
	return out
}
