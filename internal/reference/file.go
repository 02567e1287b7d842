package reference

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/healthdash/internal/tabular"
)

// Catalog and country table column headers.
const (
	colDatasource     = "Indicator.datasource"
	colArea           = "Indicator.area"
	colShortName      = "Indicator.short_name"
	colLongName       = "Indicator.long_name"
	colIndicatorCode  = "Indicator_Code"
	colCountryProfile = "Country_Profile"

	colCountryCode  = "Countries.code"
	colCountryISO2  = "Countries.iso2"
	colCountryName  = "Countries.short_name"
	colCountryGroup = "group"
)

// FileLoader reads the catalog and country table from CSV or XLSX files.
type FileLoader struct {
	CatalogPath   string
	CountriesPath string
}

// Load implements Loader.
func (l FileLoader) Load(ctx context.Context) (*Data, error) {
	catalog, err := tabular.ReadFile(l.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load indicator catalog: %w", err)
	}
	indicators, err := ParseCatalog(catalog)
	if err != nil {
		return nil, fmt.Errorf("load indicator catalog: %w", err)
	}

	table, err := tabular.ReadFile(l.CountriesPath)
	if err != nil {
		return nil, fmt.Errorf("load country table: %w", err)
	}
	countries, err := ParseCountries(table)
	if err != nil {
		return nil, fmt.Errorf("load country table: %w", err)
	}

	slog.InfoContext(ctx, "reference data loaded",
		"source", "file",
		"indicators", len(indicators),
		"countries", len(countries),
	)
	return NewData(indicators, countries), nil
}

// ParseCatalog converts a catalog table into indicators. Rows without a code
// or datasource are skipped.
func ParseCatalog(t *tabular.Table) ([]Indicator, error) {
	cols, err := requireColumns(t, colDatasource, colArea, colShortName, colIndicatorCode)
	if err != nil {
		return nil, err
	}
	longName := t.Column(colLongName)
	profile := t.Column(colCountryProfile)

	var out []Indicator
	for _, row := range t.Rows {
		ind := Indicator{
			Datasource: tabular.CleanCell(row[cols[0]]),
			Area:       tabular.CleanCell(row[cols[1]]),
			ShortName:  tabular.CleanCell(row[cols[2]]),
			Code:       tabular.CleanCell(row[cols[3]]),
		}
		if ind.Code == "" || ind.Datasource == "" {
			continue
		}
		if longName >= 0 {
			ind.LongName = tabular.CleanCell(row[longName])
		}
		if ind.LongName == "" {
			ind.LongName = ind.ShortName
		}
		if profile >= 0 {
			ind.CountryProfile, _ = tabular.ParseBool(row[profile])
		}
		out = append(out, ind)
	}
	return out, nil
}

// ParseCountries converts a country table into countries. Rows without an
// ISO3 code are skipped. The group column is optional.
func ParseCountries(t *tabular.Table) ([]Country, error) {
	cols, err := requireColumns(t, colCountryCode, colCountryISO2, colCountryName)
	if err != nil {
		return nil, err
	}
	group := t.Column(colCountryGroup)

	var out []Country
	for _, row := range t.Rows {
		c := Country{
			Code:      tabular.CleanCell(row[cols[0]]),
			ISO2:      tabular.CleanCell(row[cols[1]]),
			ShortName: tabular.CleanCell(row[cols[2]]),
		}
		if c.Code == "" {
			continue
		}
		if group >= 0 {
			c.Group = tabular.CleanCell(row[group])
		}
		out = append(out, c)
	}
	return out, nil
}

func requireColumns(t *tabular.Table, names ...string) ([]int, error) {
	cols := make([]int, len(names))
	var missing []string
	for i, name := range names {
		cols[i] = t.Column(name)
		if cols[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %v", missing)
	}
	return cols, nil
}
