package sources

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/JonMunkholm/healthdash/internal/core"
)

func init() {
	registerWorldBank()
}

func registerWorldBank() {
	core.Register(core.SourceDefinition{
		Info: core.SourceInfo{
			Tag:   TagWorldBank,
			Label: "World Bank",
		},
		DataURL: worldBankURL,
		LinkURL: func(code string) string {
			return "https://data.worldbank.org/indicator/" + code
		},
		Normalize: normalizeWorldBank,
	})
}

func worldBankURL(code string) string {
	return "https://api.worldbank.org/v2/country/all/indicator/" + code + "?format=json&per_page=20000"
}

type worldBankObservation struct {
	Date            string   `json:"date"`
	Value           *float64 `json:"value"`
	CountryISO3Code string   `json:"countryiso3code"`
}

func normalizeWorldBank(ctx context.Context, env core.Env, code string) (core.Result, error) {
	body, err := env.Fetcher.Fetch(ctx, worldBankURL(code))
	if err != nil {
		return core.Result{}, err
	}
	return parseWorldBank(ctx, body)
}

// parseWorldBank reads the [metadata, observations] envelope.
func parseWorldBank(ctx context.Context, body []byte) (core.Result, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.Result{}, &core.ParseError{Source: TagWorldBank, Reason: "envelope is not a JSON array", Err: err}
	}
	if len(envelope) < 2 {
		return core.Result{}, &core.ParseError{
			Source: TagWorldBank,
			Reason: "envelope has " + strconv.Itoa(len(envelope)) + " element(s), want metadata and observations",
		}
	}

	var observations []worldBankObservation
	if err := json.Unmarshal(envelope[1], &observations); err != nil {
		return core.Result{}, &core.ParseError{Source: TagWorldBank, Reason: "observations", Err: err}
	}

	records := make([]core.Record, 0, len(observations))
	dropped := 0
	for _, obs := range observations {
		country := strings.TrimSpace(obs.CountryISO3Code)
		year, err := strconv.Atoi(strings.TrimSpace(obs.Date))
		if country == "" || err != nil {
			dropped++
			continue
		}
		r := core.Record{CountryCode: country, Year: year}
		if obs.Value != nil {
			r.Value = core.Float(*obs.Value)
		}
		records = append(records, r)
	}

	if dropped > 0 {
		slog.DebugContext(ctx, "dropped observations", "source", TagWorldBank, "dropped", dropped)
	}

	return core.Result{Records: records}, nil
}
