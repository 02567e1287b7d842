package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/healthdash/internal/core"
	"github.com/JonMunkholm/healthdash/internal/tabular"
)

// DefaultOECDOfflineUnit is the unit kept from the offline OECD extract.
const DefaultOECDOfflineUnit = "Percentage of GDP"

func init() {
	registerOECD()
}

func registerOECD() {
	core.Register(core.SourceDefinition{
		Info: core.SourceInfo{
			Tag:   TagOECD,
			Label: "OECD",
		},
		DataURL: oecdURL,
		LinkURL: func(code string) string {
			return "https://data-explorer.oecd.org/vis?df[ds]=dsDisseminateFinalDMZ&df[id]=" + code + "&df[ag]=OECD.ELS.HD"
		},
		Normalize: normalizeOECD,
	})
}

func oecdURL(code string) string {
	return "https://sdmx.oecd.org/public/rest/data/" + code
}

func normalizeOECD(ctx context.Context, env core.Env, code string) (core.Result, error) {
	body, err := env.Fetcher.Fetch(ctx, oecdURL(code))
	if err != nil {
		var fe *core.FetchError
		if errors.As(err, &fe) && env.Data.OECDOfflineCSV != "" {
			slog.WarnContext(ctx, "OECD request failed, using offline extract",
				"code", code,
				"error", err,
				"file", env.Data.OECDOfflineCSV,
			)
			return readOECDOffline(env.Data.OECDOfflineCSV, env.Data.OECDOfflineUnit)
		}
		return core.Result{}, err
	}
	return parseOECD(ctx, body)
}

// parseOECD reads every series block. A SEX key on a data point is carried
// as the sex dimension.
func parseOECD(ctx context.Context, body []byte) (core.Result, error) {
	var blocks []measureBlock
	if err := json.Unmarshal(body, &blocks); err != nil {
		return core.Result{}, &core.ParseError{Source: TagOECD, Reason: "series list", Err: err}
	}
	if len(blocks) == 0 {
		return core.Result{}, &core.ParseError{Source: TagOECD, Reason: "no series blocks"}
	}

	var records []core.Record
	dropped := 0
	for _, block := range blocks {
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
			if sex, ok := p.Dimensions["SEX"]; ok {
				r.Dims = r.Dims.Set(core.SexColumn, string(sex))
			}
			records = append(records, r)
		}
	}

	if dropped > 0 {
		slog.DebugContext(ctx, "dropped observations", "source", TagOECD, "dropped", dropped)
	}

	core.SortByCountryYear(records)
	return core.Result{
		Records:  records,
		SexSplit: core.SexSplitOf(core.SexValues(records)),
	}, nil
}

// readOECDOffline reads the offline extract, keeping rows in unit.
func readOECDOffline(path, unit string) (core.Result, error) {
	if unit == "" {
		unit = DefaultOECDOfflineUnit
	}

	f, err := os.Open(path)
	if err != nil {
		return core.Result{}, &core.FetchError{URL: path, Err: err}
	}
	defer f.Close()

	t, err := tabular.ReadCSV(f)
	if err != nil {
		return core.Result{}, &core.ParseError{Source: TagOECD, Reason: "offline extract", Err: err}
	}

	area, period, value := t.Column("REF_AREA"), t.Column("TIME_PERIOD"), t.Column("OBS_VALUE")
	if area < 0 || period < 0 || value < 0 {
		return core.Result{}, &core.ParseError{
			Source: TagOECD,
			Reason: fmt.Sprintf("offline extract needs REF_AREA, TIME_PERIOD and OBS_VALUE, got %v", t.Headers),
		}
	}
	if t.Column("Unit of measure") >= 0 {
		t = t.Where("Unit of measure", unit)
	}

	records := make([]core.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		country := strings.TrimSpace(row[area])
		year, ok := parseYear(row[period])
		if country == "" || !ok {
			continue
		}
		records = append(records, core.Record{
			CountryCode: country,
			Year:        year,
			Value:       core.ParseFloat(strings.TrimSpace(row[value])),
		})
	}

	core.SortByCountryYear(records)
	return core.Result{Records: records}, nil
}
