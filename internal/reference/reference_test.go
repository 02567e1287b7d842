package reference

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testData() *Data {
	return NewData(
		[]Indicator{
			{Datasource: "WORLD BANK", Area: "Economy", ShortName: "GDP", Code: "NY.GDP.MKTP.CD", CountryProfile: true},
			{Datasource: "EUROSTAT", Area: "Health", ShortName: "Life expectancy", Code: "demo_mlexpec"},
			{Datasource: "WORLD BANK", Area: "Health", ShortName: "Health spend", Code: "SH.XPD.CHEX.GD.ZS", CountryProfile: true},
		},
		[]Country{
			{Code: "ITA", ISO2: "IT", ShortName: "Italy", Group: "SCI"},
			{Code: "TUR", ISO2: "TR", ShortName: "Türkiye"},
			{Code: "FRA", ISO2: "FR", ShortName: "France", Group: "SCI"},
		},
	)
}

func TestData_Country(t *testing.T) {
	d := testData()

	tests := []struct {
		query string
		want  string
		found bool
	}{
		{"ITA", "ITA", true},
		{"ita", "ITA", true},
		{"IT", "ITA", true},
		{"Italy", "ITA", true},
		{"turkiye", "TUR", true},
		{" TÜRKIYE ", "TUR", true},
		{"Atlantis", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, ok := d.Country(tt.query)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, c.Code)
		})
	}
}

func TestData_Lookups(t *testing.T) {
	d := testData()

	assert.Len(t, d.CountriesInGroup("SCI"), 2)
	assert.Len(t, d.CountriesInGroup(""), 3)
	assert.Equal(t, []string{"SCI"}, d.Groups())

	ind, ok := d.Indicator("life expectancy")
	require.True(t, ok)
	assert.Equal(t, "demo_mlexpec", ind.Code)

	_, ok = d.Indicator("nope")
	assert.False(t, ok)

	assert.Len(t, d.IndicatorsFor("WORLD BANK", ""), 2)
	assert.Len(t, d.IndicatorsFor("WORLD BANK", "Health"), 1)
	assert.Equal(t, []string{"WORLD BANK", "EUROSTAT"}, d.Datasources())
	assert.Equal(t, []string{"Economy", "Health"}, d.Areas("WORLD BANK"))

	profile := d.ProfileIndicators()
	require.Len(t, profile, 2)
	assert.Equal(t, "GDP", profile[0].ShortName)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "turkiye", FoldName("Türkiye"))
	assert.Equal(t, "cote d'ivoire", FoldName(" Côte d'Ivoire "))
	assert.Equal(t, FoldName("Curaçao"), FoldName("curacao"))
}

func TestFileLoader_CSV(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "indicators.csv")
	countries := filepath.Join(dir, "countries.csv")

	require.NoError(t, os.WriteFile(catalog, []byte(
		"Indicator.datasource,Indicator.area,Indicator.short_name,Indicator.long_name,Indicator_Code,Country_Profile\n"+
			"WORLD BANK,Economy,GDP,Gross domestic product,NY.GDP.MKTP.CD,TRUE\n"+
			"OECD,Health,Spend,,DSD_SHA@DF_SHA,FALSE\n"+
			",Health,Broken,,,\n"), 0o600))
	require.NoError(t, os.WriteFile(countries, []byte(
		"Countries.code,Countries.iso2,Countries.short_name,group\n"+
			"ITA,IT,Italy,SCI\n"+
			"DEU,DE,Germany,\n"), 0o600))

	d, err := FileLoader{CatalogPath: catalog, CountriesPath: countries}.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, d.Indicators, 2)
	assert.True(t, d.Indicators[0].CountryProfile)
	assert.Equal(t, "Spend", d.Indicators[1].LongName, "long name falls back to short name")
	require.Len(t, d.Countries, 2)
	assert.Equal(t, "SCI", d.Countries[0].Group)
}

func TestFileLoader_XLSX(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "indicators.xlsx")
	countries := filepath.Join(dir, "countries.csv")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{
		"Indicator.datasource", "Indicator.area", "Indicator.short_name", "Indicator.long_name", "Indicator_Code", "Country_Profile",
	}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"WHO/HESRI", "Equity", "Poverty", "At risk of poverty", "POV", true}))
	require.NoError(t, f.SaveAs(catalog))

	require.NoError(t, os.WriteFile(countries, []byte("Countries.code,Countries.iso2,Countries.short_name\nITA,IT,Italy\n"), 0o600))

	d, err := FileLoader{CatalogPath: catalog, CountriesPath: countries}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, d.Indicators, 1)
	assert.Equal(t, "POV", d.Indicators[0].Code)
	assert.True(t, d.Indicators[0].CountryProfile)
}

func TestFileLoader_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "indicators.csv")
	require.NoError(t, os.WriteFile(catalog, []byte("a,b\n1,2\n"), 0o600))

	_, err := FileLoader{CatalogPath: catalog, CountriesPath: catalog}.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Indicator.datasource")
}
