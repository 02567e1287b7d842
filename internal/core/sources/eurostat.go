package sources

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/healthdash/internal/core"
	"github.com/JonMunkholm/healthdash/internal/tabular"
)

func init() {
	registerEurostat()
}

func registerEurostat() {
	core.Register(core.SourceDefinition{
		Info: core.SourceInfo{
			Tag:         TagEurostat,
			Label:       "Eurostat",
			CountryCode: core.CountryISO2,
		},
		DataURL: eurostatURL,
		LinkURL: func(code string) string {
			return "https://ec.europa.eu/eurostat/web/products-datasets/-/" + code
		},
		Normalize: normalizeEurostat,
	})
}

func eurostatURL(code string) string {
	return "https://ec.europa.eu/eurostat/api/dissemination/sdmx/2.1/data/" + code + "?format=TSV"
}

func normalizeEurostat(ctx context.Context, env core.Env, code string) (core.Result, error) {
	body, err := env.Fetcher.Fetch(ctx, eurostatURL(code))
	if err != nil {
		return core.Result{}, err
	}

	table, err := parseEurostatTSV(body)
	if err != nil {
		return core.Result{}, err
	}

	d, err := core.Discover(table, core.DiscoverOptions{Melt: true})
	if err != nil {
		return core.Result{}, err
	}

	records, err := core.Melt(table, d, eurostatValue)
	if err != nil {
		return core.Result{}, err
	}

	return core.Result{
		Records:    records,
		Dimensions: d.Dimensions,
		SexSplit:   d.SexSplit,
	}, nil
}

// parseEurostatTSV expands the Eurostat TSV layout into a wide table.
// The first header cell packs the dimension names ("freq,unit,geo\TIME_PERIOD")
// and the first cell of each row packs their values ("A,PC,IT").
func parseEurostatTSV(body []byte) (*core.WideTable, error) {
	raw, err := tabular.ReadDelimited(bytes.NewReader(body), '\t')
	if err != nil {
		return nil, &core.ParseError{Source: TagEurostat, Reason: "tsv", Err: err}
	}
	if len(raw.Headers) < 2 {
		return nil, &core.ParseError{Source: TagEurostat, Reason: "tsv has no period columns"}
	}

	dims := strings.Split(raw.Headers[0], ",")
	for i := range dims {
		dims[i] = strings.TrimSpace(dims[i])
	}
	periods := raw.Headers[1:]

	t := &core.WideTable{
		Headers: append(append([]string{}, dims...), periods...),
		Rows:    make([][]string, 0, len(raw.Rows)),
	}
	for n, row := range raw.Rows {
		keys := strings.Split(row[0], ",")
		if len(keys) != len(dims) {
			return nil, &core.ParseError{
				Source: TagEurostat,
				Reason: fmt.Sprintf("row %d has %d keys, header declares %d", n+2, len(keys), len(dims)),
			}
		}
		out := make([]string, 0, len(t.Headers))
		for _, k := range keys {
			out = append(out, strings.TrimSpace(k))
		}
		out = append(out, row[1:]...)
		t.Rows = append(t.Rows, out)
	}
	return t, nil
}

// eurostatValue parses a TSV cell. ":" marks a missing value and trailing
// flags ("12.3 p", ": c") are dropped.
func eurostatValue(cell string) core.NullFloat {
	fields := strings.Fields(cell)
	if len(fields) == 0 || fields[0] == ":" {
		return core.NullFloat{}
	}
	return core.ParseFloat(fields[0])
}
