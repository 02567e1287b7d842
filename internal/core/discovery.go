package core

// discovery.go implements dimension discovery over wide tables.
//
// A wide table has one row per observation group and an arbitrary set of
// columns. Discovery decides, per dataset, which columns are filterable
// dimensions, which are constant metadata, which is the country column and
// which are period columns to unpivot. The classification is positional:
// with melting enabled, varying columns before the geo marker are dimensions
// and varying columns after it are periods. Reordering upstream columns
// changes the outcome; that is accepted.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/healthdash/internal/tabular"
)

// Default column markers.
const (
	GeoPrefix = "geo"
	SexColumn = "sex"
)

// WideTable is a header row plus data rows. Every row has len(Headers) cells.
type WideTable = tabular.Table

// DiscoverOptions controls how a wide table is classified.
type DiscoverOptions struct {
	// Melt treats the geo marker column as the boundary between dimension
	// columns and period columns. A missing marker is a SchemaError.
	Melt bool

	// GeoPrefix overrides the geo marker prefix (default "geo").
	GeoPrefix string

	// Exclude lists columns that are kept as data but never offered as filters.
	Exclude []string
}

// Discovery is the classification of one wide table.
type Discovery struct {
	IDColumns     []string // Varying non-period columns carried on every record, geo excluded
	GeoColumn     string   // Country column; empty when not melting
	PeriodColumns []string // Columns to unpivot into years
	Dimensions    DimensionRegistry
	SexSplit      bool
}

// Discover classifies the columns of t.
func Discover(t *WideTable, opts DiscoverOptions) (Discovery, error) {
	prefix := opts.GeoPrefix
	if prefix == "" {
		prefix = GeoPrefix
	}
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, e := range opts.Exclude {
		excluded[e] = true
	}

	var d Discovery
	inPeriods := false

	for i, name := range t.Headers {
		values := t.Distinct(i)
		if len(values) <= 1 {
			continue
		}

		if inPeriods {
			d.PeriodColumns = append(d.PeriodColumns, name)
			continue
		}

		if opts.Melt && strings.HasPrefix(name, prefix) {
			d.GeoColumn = name
			inPeriods = true
			continue
		}

		d.IDColumns = append(d.IDColumns, name)
		switch {
		case excluded[name]:
		case name == SexColumn:
			d.SexSplit = SexSplitOf(values)
		default:
			d.Dimensions = append(d.Dimensions, Dimension{Name: name, Values: values})
		}
	}

	if opts.Melt && d.GeoColumn == "" {
		return Discovery{}, &SchemaError{
			Reason: fmt.Sprintf("no varying column with prefix %q among %d columns", prefix, len(t.Headers)),
		}
	}

	return d, nil
}

// ValueParser converts a raw cell into an observation value.
type ValueParser func(string) NullFloat

// Melt unpivots t into canonical records using a Discovery with a geo column.
// Records are emitted period by period, rows in table order within a period.
// Rows with an empty country cell are dropped.
func Melt(t *WideTable, d Discovery, parse ValueParser) ([]Record, error) {
	if d.GeoColumn == "" {
		return nil, &SchemaError{Reason: "melt without geo column"}
	}
	if parse == nil {
		parse = func(s string) NullFloat { return ParseFloat(strings.TrimSpace(s)) }
	}

	idx := t.Index()
	geo := idx[d.GeoColumn]

	idCols := make([]int, len(d.IDColumns))
	for i, name := range d.IDColumns {
		idCols[i] = idx[name]
	}

	records := make([]Record, 0, len(t.Rows)*len(d.PeriodColumns))
	for _, period := range d.PeriodColumns {
		year, err := strconv.Atoi(strings.TrimSpace(period))
		if err != nil {
			return nil, &ParseError{Source: "wide table", Reason: fmt.Sprintf("period column %q is not a year", period), Err: err}
		}
		col := idx[period]

		for _, row := range t.Rows {
			country := strings.TrimSpace(row[geo])
			if country == "" {
				continue
			}
			var dims Dims
			if len(idCols) > 0 {
				dims = make(Dims, 0, len(idCols))
				for i, c := range idCols {
					dims = append(dims, Dim{Name: d.IDColumns[i], Value: row[c]})
				}
			}
			records = append(records, Record{
				CountryCode: country,
				Year:        year,
				Value:       parse(row[col]),
				Dims:        dims,
			})
		}
	}

	return records, nil
}
