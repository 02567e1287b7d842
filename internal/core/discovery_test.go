package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_MeltSexOnly(t *testing.T) {
	table := &WideTable{
		Headers: []string{"region", "sex", `geo\time`, "2019", "2020"},
		Rows: [][]string{
			{"EU", "F", "IT", "1.0", "2.0"},
			{"EU", "M", "IT", "3.0", "4.0"},
			{"EU", "F", "FR", "5.0", ""},
		},
	}

	d, err := Discover(table, DiscoverOptions{Melt: true})
	require.NoError(t, err)

	assert.Empty(t, d.Dimensions)
	assert.True(t, d.SexSplit)
	assert.Equal(t, `geo\time`, d.GeoColumn)
	assert.Equal(t, []string{"sex"}, d.IDColumns)
	assert.Equal(t, []string{"2019", "2020"}, d.PeriodColumns)

	records, err := Melt(table, d, nil)
	require.NoError(t, err)
	require.Len(t, records, 6)

	first := records[0]
	assert.Equal(t, "IT", first.CountryCode)
	assert.Equal(t, 2019, first.Year)
	assert.Equal(t, Float(1.0), first.Value)
	sex, ok := first.Dims.Get("sex")
	assert.True(t, ok)
	assert.Equal(t, "F", sex)
	_, hasRegion := first.Dims.Get("region")
	assert.False(t, hasRegion, "constant columns are not carried")

	last := records[5]
	assert.Equal(t, "FR", last.CountryCode)
	assert.Equal(t, 2020, last.Year)
	assert.False(t, last.Value.Valid)
}

func TestDiscover_DimensionsBeforeGeo(t *testing.T) {
	table := &WideTable{
		Headers: []string{"freq", "age", "unit", "geo", "2020"},
		Rows: [][]string{
			{"A", "Y15-64", "PC", "IT", "1"},
			{"A", "Y65-74", "PC", "IT", "2"},
			{"A", "Y15-64", "NR", "FR", "3"},
		},
	}

	d, err := Discover(table, DiscoverOptions{Melt: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "unit"}, d.Dimensions.Names())
	values, ok := d.Dimensions.Get("age")
	require.True(t, ok)
	assert.Equal(t, []string{"Y15-64", "Y65-74"}, values)
	assert.False(t, d.SexSplit)
}

func TestDiscover_NonVaryingPeriodDropped(t *testing.T) {
	table := &WideTable{
		Headers: []string{"geo", "2019", "2020"},
		Rows: [][]string{
			{"IT", "1", "5"},
			{"FR", "1", "6"},
		},
	}

	d, err := Discover(table, DiscoverOptions{Melt: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"2020"}, d.PeriodColumns)
}

func TestDiscover_BlankCellsAreMissing(t *testing.T) {
	table := &WideTable{
		Headers: []string{"Attributes", "Note", "Country Code", "Value"},
		Rows: [][]string{
			{"", "n", "ITA", "1"},
			{"Low", "", "ITA", "2"},
			{"Low", "n", "FRA", "3"},
			{"High", "n", "FRA", "4"},
		},
	}

	d, err := Discover(table, DiscoverOptions{Exclude: []string{"Country Code", "Value"}})
	require.NoError(t, err)

	assert.Equal(t, DimensionRegistry{{Name: "Attributes", Values: []string{"Low", "High"}}}, d.Dimensions)
	assert.Equal(t, []string{"Attributes", "Country Code", "Value"}, d.IDColumns, "a column constant apart from blanks does not vary")
}

func TestDiscover_MissingGeo(t *testing.T) {
	table := &WideTable{
		Headers: []string{"sex", "country", "2020"},
		Rows: [][]string{
			{"F", "IT", "1"},
			{"M", "FR", "2"},
		},
	}

	_, err := Discover(table, DiscoverOptions{Melt: true})
	var se *SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestDiscover_SingleCountryIsSchemaError(t *testing.T) {
	table := &WideTable{
		Headers: []string{"sex", "geo", "2020"},
		Rows: [][]string{
			{"F", "IT", "1"},
			{"M", "IT", "2"},
		},
	}

	_, err := Discover(table, DiscoverOptions{Melt: true})
	var se *SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestDiscover_NoMeltWithExclusions(t *testing.T) {
	table := &WideTable{
		Headers: []string{"Country Code", "Year", "Value", "Attributes", "population", "sex", "Source"},
		Rows: [][]string{
			{"ITA", "2019", "1", "Low", "100", "F", "X"},
			{"FRA", "2020", "2", "High", "200", "M", "X"},
		},
	}

	d, err := Discover(table, DiscoverOptions{
		Exclude: []string{"Country Code", "Year", "Value", "population"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Attributes"}, d.Dimensions.Names())
	assert.True(t, d.SexSplit)
	assert.Empty(t, d.GeoColumn)
	assert.Equal(t, []string{"Country Code", "Year", "Value", "Attributes", "population", "sex"}, d.IDColumns)
}

func TestDiscover_Idempotent(t *testing.T) {
	table := &WideTable{
		Headers: []string{"age", "geo", "2020"},
		Rows: [][]string{
			{"Y1", "IT", "1"},
			{"Y2", "FR", "2"},
		},
	}

	d1, err := Discover(table, DiscoverOptions{Melt: true})
	require.NoError(t, err)
	d2, err := Discover(table, DiscoverOptions{Melt: true})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	r1, err := Melt(table, d1, nil)
	require.NoError(t, err)
	r2, err := Melt(table, d2, nil)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestMelt_BadPeriodHeader(t *testing.T) {
	table := &WideTable{
		Headers: []string{"geo", "2020Q1"},
		Rows: [][]string{
			{"IT", "1"},
			{"FR", "2"},
		},
	}

	d, err := Discover(table, DiscoverOptions{Melt: true})
	require.NoError(t, err)

	_, err = Melt(table, d, nil)
	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestMelt_DropsEmptyCountry(t *testing.T) {
	table := &WideTable{
		Headers: []string{"geo", "2020"},
		Rows: [][]string{
			{"IT", "1"},
			{"", "2"},
			{"FR", "3"},
		},
	}

	d, err := Discover(table, DiscoverOptions{Melt: true})
	require.NoError(t, err)

	records, err := Melt(table, d, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"IT", "FR"}, CountryCodes(records))
}
