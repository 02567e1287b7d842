// Package reference holds the indicator catalog and the country table.
//
// Both are loaded once (and on scheduled reloads) and then only read. A Data
// value is never mutated after Load returns; reloads swap in a new value.
package reference

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Indicator is one row of the indicator catalog.
type Indicator struct {
	Datasource     string `json:"datasource"`
	Area           string `json:"area"`
	ShortName      string `json:"short_name"`
	LongName       string `json:"long_name"`
	Code           string `json:"code"`
	CountryProfile bool   `json:"country_profile"`
}

// Country is one row of the country reference table.
type Country struct {
	Code      string `json:"code"` // ISO3
	ISO2      string `json:"iso2"`
	ShortName string `json:"short_name"`
	Group     string `json:"group,omitempty"`
}

// Loader produces reference data.
type Loader interface {
	Load(ctx context.Context) (*Data, error)
}

// Data is a loaded catalog plus country table with lookup indexes.
type Data struct {
	Indicators []Indicator
	Countries  []Country

	byCode map[string]int
	byISO2 map[string]int
	byName map[string]int
}

// NewData builds lookup indexes over indicators and countries.
// Later duplicates of a code or name never replace earlier ones.
func NewData(indicators []Indicator, countries []Country) *Data {
	d := &Data{
		Indicators: indicators,
		Countries:  countries,
		byCode:     make(map[string]int, len(countries)),
		byISO2:     make(map[string]int, len(countries)),
		byName:     make(map[string]int, len(countries)),
	}
	for i, c := range countries {
		addIndex(d.byCode, strings.ToUpper(c.Code), i)
		addIndex(d.byISO2, strings.ToUpper(c.ISO2), i)
		addIndex(d.byName, FoldName(c.ShortName), i)
	}
	return d
}

func addIndex(m map[string]int, key string, i int) {
	if key == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = i
	}
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName lowercases s and strips diacritics, so "Türkiye" and "turkiye"
// compare equal.
func FoldName(s string) string {
	out, _, err := transform.String(foldTransformer, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return strings.ToLower(out)
}

// Country finds a country by ISO3 code, ISO2 code or name.
func (d *Data) Country(query string) (Country, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Country{}, false
	}
	if i, ok := d.byCode[strings.ToUpper(q)]; ok {
		return d.Countries[i], true
	}
	if i, ok := d.byISO2[strings.ToUpper(q)]; ok {
		return d.Countries[i], true
	}
	if i, ok := d.byName[FoldName(q)]; ok {
		return d.Countries[i], true
	}
	return Country{}, false
}

// CountriesInGroup returns the countries of a group. An empty group returns all.
func (d *Data) CountriesInGroup(group string) []Country {
	if group == "" {
		return append([]Country(nil), d.Countries...)
	}
	var out []Country
	for _, c := range d.Countries {
		if strings.EqualFold(c.Group, group) {
			out = append(out, c)
		}
	}
	return out
}

// Indicator finds a catalog entry by code or short name.
func (d *Data) Indicator(query string) (Indicator, bool) {
	q := strings.TrimSpace(query)
	for _, ind := range d.Indicators {
		if ind.Code == q {
			return ind, true
		}
	}
	for _, ind := range d.Indicators {
		if strings.EqualFold(ind.ShortName, q) {
			return ind, true
		}
	}
	return Indicator{}, false
}

// IndicatorsFor returns catalog entries for a datasource and area.
// Empty arguments match everything.
func (d *Data) IndicatorsFor(datasource, area string) []Indicator {
	var out []Indicator
	for _, ind := range d.Indicators {
		if datasource != "" && ind.Datasource != datasource {
			continue
		}
		if area != "" && ind.Area != area {
			continue
		}
		out = append(out, ind)
	}
	return out
}

// ProfileIndicators returns catalog entries flagged for the country profile,
// in catalog order.
func (d *Data) ProfileIndicators() []Indicator {
	var out []Indicator
	for _, ind := range d.Indicators {
		if ind.CountryProfile {
			out = append(out, ind)
		}
	}
	return out
}

// Datasources returns the distinct catalog datasources in catalog order.
func (d *Data) Datasources() []string {
	return distinct(d.Indicators, func(i Indicator) string { return i.Datasource })
}

// Areas returns the distinct areas of a datasource in catalog order.
func (d *Data) Areas(datasource string) []string {
	return distinct(d.IndicatorsFor(datasource, ""), func(i Indicator) string { return i.Area })
}

// Groups returns the distinct country groups, sorted.
func (d *Data) Groups() []string {
	groups := distinct(d.Countries, func(c Country) string { return c.Group })
	sort.Strings(groups)
	return groups
}

func distinct[T any](items []T, key func(T) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range items {
		k := key(it)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
