package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/healthdash/internal/logging"
	"github.com/JonMunkholm/healthdash/internal/reference"
)

// ExploreRequest is one interaction in explore mode.
type ExploreRequest struct {
	SessionID  string
	Indicator  string            // Catalog code or short name
	Countries  []string          // ISO3, ISO2 or names; empty uses Group
	Group      string            // Country group when Countries is empty; empty means all
	FromYear   int               // Zero uses the first year with data
	ToYear     int               // Zero uses the last year with data
	Dimensions map[string]string // Unset dimensions default to their first value
}

// Series is one chart/table unit: everything, or one sex.
type Series struct {
	Label   string      `json:"label"` // "", "F" or "M"
	Records []Record    `json:"records"`
	Pivot   *PivotTable `json:"pivot"`
}

// ExploreResult is the normalized, filtered view of one indicator.
type ExploreResult struct {
	Indicator         reference.Indicator `json:"indicator"`
	Source            SourceInfo          `json:"source"`
	Dimensions        DimensionRegistry   `json:"dimensions"`
	AppliedDimensions map[string]string   `json:"applied_dimensions"`
	SexSplit          bool                `json:"sex_split"`
	YearMin           int                 `json:"year_min"`
	YearMax           int                 `json:"year_max"`
	FromYear          int                 `json:"from_year"`
	ToYear            int                 `json:"to_year"`
	Available         []reference.Country `json:"available_countries"`
	Selected          []reference.Country `json:"selected_countries"`
	Series            []Series            `json:"series"`
	DataLink          string              `json:"data_link"`
}

// Explore normalizes an indicator and applies the user's selection.
//
// A selection that leaves no records returns the partially filled result
// together with ErrEmptyResult.
func (s *Service) Explore(ctx context.Context, req ExploreRequest) (*ExploreResult, error) {
	start := time.Now()
	ref := s.Reference()

	ind, ok := ref.Indicator(req.Indicator)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndicator, req.Indicator)
	}
	def, ok := Get(ind.Datasource)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, ind.Datasource)
	}

	logger := logging.WithFields(ctx, "datasource", ind.Datasource, "indicator", ind.Code)

	sess := s.sessions.Get(req.SessionID)
	env := Env{Fetcher: sess.FetcherFor(ind.Datasource + "|" + ind.Code), Data: s.data}

	res, err := Normalize(ctx, env, ind.Datasource, ind.Code)
	if err != nil {
		return nil, err
	}

	out := &ExploreResult{
		Indicator:  ind,
		Source:     def.Info,
		Dimensions: res.Dimensions,
		SexSplit:   res.SexSplit,
	}
	if def.LinkURL != nil {
		out.DataLink = def.LinkURL(ind.Code)
	}

	records := DropMissing(res.Records)
	out.Available = availableCountries(ref, records, def.Info.CountryCode)

	lo, hi, ok := YearBounds(records)
	if !ok {
		return out, ErrEmptyResult
	}
	out.YearMin, out.YearMax = lo, hi
	out.FromYear, out.ToYear = clampYears(req.FromYear, req.ToYear, lo, hi)

	switch {
	case len(req.Countries) > 0:
		out.Selected, err = resolveCountries(ref, req.Countries)
		if err != nil {
			return nil, err
		}
	case req.Group != "":
		out.Selected = ref.CountriesInGroup(req.Group)
	default:
		out.Selected = out.Available
	}

	codes := make([]string, 0, len(out.Selected))
	for _, c := range out.Selected {
		codes = append(codes, countryKey(c, def.Info.CountryCode))
	}

	out.AppliedDimensions = appliedDimensions(res.Dimensions, req.Dimensions, def.Info.LatestBy)

	filtered := Filter(records, FilterSpec{
		Countries:  codes,
		FromYear:   out.FromYear,
		ToYear:     out.ToYear,
		Dimensions: out.AppliedDimensions,
	})
	if len(filtered) == 0 {
		logger.Info("explore selection is empty", "countries", len(codes))
		return out, ErrEmptyResult
	}

	if res.SexSplit {
		female, male := SplitBySex(filtered)
		out.Series = []Series{
			buildSeries("F", female, def.Info.LatestBy),
			buildSeries("M", male, def.Info.LatestBy),
		}
	} else {
		out.Series = []Series{buildSeries("", filtered, def.Info.LatestBy)}
	}

	logger.Info("explore completed",
		"records", len(filtered),
		"series", len(out.Series),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// buildSeries reduces to the latest year per group when latestBy is set,
// then pivots.
func buildSeries(label string, records []Record, latestBy []string) Series {
	if len(latestBy) > 0 {
		records = LatestPerCountry(records, latestBy...)
	}
	SortByCountryYear(records)
	return Series{
		Label:   label,
		Records: records,
		Pivot:   Pivot(records, latestBy...),
	}
}

// appliedDimensions returns the requested value for every discovered
// dimension, defaulting to the first value. Dimensions in skip are charted
// side by side and never defaulted. Requested names outside the registry are
// kept, so they filter everything out.
func appliedDimensions(reg DimensionRegistry, requested map[string]string, skip []string) map[string]string {
	skipped := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipped[k] = true
	}

	out := make(map[string]string, len(reg))
	for name, v := range requested {
		out[name] = v
	}
	for _, d := range reg {
		if _, ok := out[d.Name]; ok || skipped[d.Name] || len(d.Values) == 0 {
			continue
		}
		out[d.Name] = d.Values[0]
	}
	return out
}

// clampYears fills zero bounds from [lo, hi] and orders the pair.
func clampYears(from, to, lo, hi int) (int, int) {
	if from == 0 {
		from = lo
	}
	if to == 0 {
		to = hi
	}
	if from > to {
		from, to = to, from
	}
	return from, to
}

// availableCountries returns the reference countries present in records,
// in reference order.
func availableCountries(ref *reference.Data, records []Record, kind CountryCodeKind) []reference.Country {
	present := make(map[string]bool)
	for _, code := range CountryCodes(records) {
		present[code] = true
	}

	var out []reference.Country
	for _, c := range ref.Countries {
		if present[countryKey(c, kind)] {
			out = append(out, c)
		}
	}
	return out
}
