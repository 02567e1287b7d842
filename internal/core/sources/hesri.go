package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/healthdash/internal/core"
	"github.com/JonMunkholm/healthdash/internal/tabular"
)

// HESRI workbook columns.
const (
	hesriIndicatorColumn = "indicator_abbr"
	hesriCountryColumn   = "Country Code"
	hesriYearColumn      = "Year"
	hesriValueColumn     = "Value"

	// HESRIAttributesColumn holds the stratifier level (Low/Medium/High).
	HESRIAttributesColumn = "Attributes"
)

const hesriLink = "http://worldhealthorg.shinyapps.io/european_health_equity_dataset/"

func init() {
	registerHESRI(TagHESRI, "WHO health equity (HESRI)", func(f core.DataFiles) string { return f.HESRIWorkbook1 },
		[]string{hesriCountryColumn, hesriYearColumn, hesriValueColumn, "population"})
	registerHESRI(TagHESRI2, "WHO health equity (HESRI 2)", func(f core.DataFiles) string { return f.HESRIWorkbook2 },
		[]string{hesriCountryColumn, hesriYearColumn, hesriValueColumn, "population", "Education", "Income"})
}

func registerHESRI(tag, label string, workbook func(core.DataFiles) string, structural []string) {
	core.Register(core.SourceDefinition{
		Info: core.SourceInfo{
			Tag:      tag,
			Label:    label,
			Offline:  true,
			LatestBy: []string{HESRIAttributesColumn},
		},
		LinkURL: func(string) string { return hesriLink },
		Normalize: func(ctx context.Context, env core.Env, code string) (core.Result, error) {
			path := workbook(env.Data)
			if path == "" {
				return core.Result{}, &core.FetchError{URL: tag, Err: errors.New("workbook path not configured")}
			}
			table, err := tabular.ReadFile(path)
			if err != nil {
				return core.Result{}, &core.FetchError{URL: path, Err: err}
			}
			return normalizeHESRI(ctx, tag, table, code, structural)
		},
	})
}

// normalizeHESRI selects the rows of one indicator, drops every row with a
// blank cell and discovers the dimensions of what remains, without melting.
// Structural columns are never offered as filters; when they vary and are
// not the canonical triple they stay on the records.
func normalizeHESRI(ctx context.Context, tag string, table *tabular.Table, code string, structural []string) (core.Result, error) {
	for _, col := range []string{hesriIndicatorColumn, hesriCountryColumn, hesriYearColumn, hesriValueColumn} {
		if table.Column(col) < 0 {
			return core.Result{}, &core.ParseError{Source: tag, Reason: fmt.Sprintf("workbook has no %q column", col)}
		}
	}

	selected := table.Where(hesriIndicatorColumn, code)
	idx := selected.Index()
	country, year, value := idx[hesriCountryColumn], idx[hesriYearColumn], idx[hesriValueColumn]

	rows := &tabular.Table{Headers: selected.Headers}
	dropped := 0
	for _, row := range selected.Rows {
		if incomplete(row) {
			dropped++
			continue
		}
		if _, ok := parseYear(row[year]); !ok {
			dropped++
			continue
		}
		if !core.ParseFloat(strings.TrimSpace(row[value])).Valid {
			dropped++
			continue
		}
		rows.Rows = append(rows.Rows, row)
	}
	if dropped > 0 {
		slog.DebugContext(ctx, "dropped incomplete rows", "source", tag, "indicator", code, "dropped", dropped)
	}

	d, err := core.Discover(rows, core.DiscoverOptions{Exclude: structural})
	if err != nil {
		return core.Result{}, err
	}

	var dimCols []int
	var dimNames []string
	for _, name := range d.IDColumns {
		switch name {
		case hesriCountryColumn, hesriYearColumn, hesriValueColumn:
			continue
		}
		dimCols = append(dimCols, idx[name])
		dimNames = append(dimNames, name)
	}

	records := make([]core.Record, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		y, _ := parseYear(row[year])
		r := core.Record{
			CountryCode: strings.TrimSpace(row[country]),
			Year:        y,
			Value:       core.ParseFloat(strings.TrimSpace(row[value])),
		}
		if len(dimCols) > 0 {
			r.Dims = make(core.Dims, len(dimCols))
			for i, c := range dimCols {
				r.Dims[i] = core.Dim{Name: dimNames[i], Value: strings.TrimSpace(row[c])}
			}
		}
		records = append(records, r)
	}

	return core.Result{
		Records:    records,
		Dimensions: d.Dimensions,
		SexSplit:   d.SexSplit,
	}, nil
}

// incomplete reports whether any cell of row is blank.
func incomplete(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) == "" {
			return true
		}
	}
	return false
}
