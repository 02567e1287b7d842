package sources

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/healthdash/internal/core"
)

func init() {
	registerWHOEurope()
}

func registerWHOEurope() {
	core.Register(core.SourceDefinition{
		Info: core.SourceInfo{
			Tag:   TagWHOEurope,
			Label: "WHO/Europe",
		},
		DataURL:   whoEuropeURL,
		LinkURL:   whoEuropeURL,
		Normalize: normalizeWHOEurope,
	})
}

func whoEuropeURL(code string) string {
	return "https://dw.euro.who.int/api/v3/Batch/Measures?codes=" + code
}

func normalizeWHOEurope(ctx context.Context, env core.Env, code string) (core.Result, error) {
	body, err := env.Fetcher.Fetch(ctx, whoEuropeURL(code))
	if err != nil {
		return core.Result{}, err
	}
	return parseWHOEurope(ctx, body)
}

// parseWHOEurope reads the first measure block. Sex is carried only when the
// block declares a SEX dimension, and the split holds only when both sexes
// actually occur.
func parseWHOEurope(ctx context.Context, body []byte) (core.Result, error) {
	var blocks []measureBlock
	if err := json.Unmarshal(body, &blocks); err != nil {
		return core.Result{}, &core.ParseError{Source: TagWHOEurope, Reason: "measure list", Err: err}
	}
	if len(blocks) == 0 {
		return core.Result{}, &core.ParseError{Source: TagWHOEurope, Reason: "no measure blocks"}
	}

	block := blocks[0]
	hasSex := block.declares("SEX")

	records := make([]core.Record, 0, len(block.Data))
	dropped := 0
	for _, p := range block.Data {
		country := strings.TrimSpace(string(p.Dimensions["COUNTRY"]))
		year, ok := parseYear(string(p.Dimensions["YEAR"]))
		if country == "" || !ok {
			dropped++
			continue
		}
		r := core.Record{CountryCode: country, Year: year}
		if p.Value.Numeric != nil {
			r.Value = core.Float(*p.Value.Numeric)
		}
		if hasSex {
			r.Dims = core.Dims{{Name: core.SexColumn, Value: string(p.Dimensions["SEX"])}}
		}
		records = append(records, r)
	}

	if dropped > 0 {
		slog.DebugContext(ctx, "dropped observations", "source", TagWHOEurope, "dropped", dropped)
	}

	core.SortByCountryYear(records)
	return core.Result{
		Records:  records,
		SexSplit: hasSex && core.SexSplitOf(core.SexValues(records)),
	}, nil
}
