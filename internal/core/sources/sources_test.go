package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/healthdash/internal/core"
)

// stubFetcher serves fixed bodies by URL.
type stubFetcher struct {
	bodies map[string][]byte
	err    error
	calls  []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.calls = append(s.calls, url)
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.bodies[url]
	if !ok {
		return nil, &core.FetchError{URL: url, Status: 404}
	}
	return body, nil
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

func envFor(url string, body []byte) core.Env {
	return core.Env{Fetcher: &stubFetcher{bodies: map[string][]byte{url: body}}}
}

// assertCanonical checks that every record has a country and a year.
func assertCanonical(t *testing.T, records []core.Record) {
	t.Helper()
	for _, r := range records {
		assert.NotEmpty(t, r.CountryCode)
		assert.NotZero(t, r.Year)
	}
}

func TestRegistered(t *testing.T) {
	for _, tag := range []string{TagWorldBank, TagOECD, TagEurostat, TagWHOEurope, TagHESRI, TagHESRI2} {
		def, ok := core.Get(tag)
		require.True(t, ok, tag)
		assert.NotNil(t, def.LinkURL, tag)
	}

	def, _ := core.Get(TagEurostat)
	assert.Equal(t, core.CountryISO2, def.Info.CountryCode)
	def, _ = core.Get(TagHESRI)
	assert.True(t, def.Info.Offline)
	assert.Nil(t, def.DataURL)
}

func TestWorldBank_Scenario(t *testing.T) {
	body := []byte(`[{}, [{"date":"2020","value":1.5,"countryiso3code":"ITA"}]]`)
	res, err := parseWorldBank(context.Background(), body)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, core.Record{CountryCode: "ITA", Year: 2020, Value: core.Float(1.5)}, res.Records[0])
	assert.Empty(t, res.Dimensions)
	assert.False(t, res.SexSplit)
}

func TestWorldBank_Fixture(t *testing.T) {
	code := "SH.XPD.CHEX.GD.ZS"
	env := envFor(worldBankURL(code), fixture(t, "worldbank.json"))

	res, err := core.Normalize(context.Background(), env, TagWorldBank, code)
	require.NoError(t, err)

	require.Len(t, res.Records, 3, "empty country and non-numeric date are dropped")
	assertCanonical(t, res.Records)
	assert.False(t, res.Records[2].Value.Valid, "null value is absent")
}

func TestWorldBank_ErrorEnvelope(t *testing.T) {
	body := []byte(`[{"message":[{"id":"120","key":"Invalid value","value":"The provided parameter value is not valid"}]}]`)
	_, err := parseWorldBank(context.Background(), body)

	var pe *core.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestWorldBank_NoObservations(t *testing.T) {
	res, err := parseWorldBank(context.Background(), []byte(`[{"page":0}, null]`))
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestWorldBank_Idempotent(t *testing.T) {
	body := fixture(t, "worldbank.json")
	a, err := parseWorldBank(context.Background(), body)
	require.NoError(t, err)
	b, err := parseWorldBank(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWorldBank_FetchErrorPropagates(t *testing.T) {
	env := core.Env{Fetcher: &stubFetcher{err: &core.FetchError{URL: "x", Status: 500}}}
	_, err := core.Normalize(context.Background(), env, TagWorldBank, "X")

	var fe *core.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 500, fe.Status)
}

func TestOECD_Fixture(t *testing.T) {
	code := "OECD.ELS.HD,DSD_HEALTH_STAT@DF_LE,1.0/"
	env := envFor(oecdURL(code), fixture(t, "oecd.json"))

	res, err := core.Normalize(context.Background(), env, TagOECD, code)
	require.NoError(t, err)

	require.Len(t, res.Records, 4, "all blocks read, empty country dropped")
	assertCanonical(t, res.Records)
	assert.True(t, res.SexSplit)

	assert.Equal(t, "FRA", res.Records[0].CountryCode)
	assert.Equal(t, 2019, res.Records[1].Year, "sorted by country then year")

	sex, ok := res.Records[0].Dims.Get("sex")
	require.True(t, ok)
	assert.Equal(t, "M", sex)
}

func TestOECD_OfflineFallback(t *testing.T) {
	env := core.Env{
		Fetcher: &stubFetcher{err: &core.FetchError{URL: "x", Status: 503}},
		Data:    core.DataFiles{OECDOfflineCSV: filepath.Join("testdata", "oecd_offline.csv")},
	}

	res, err := core.Normalize(context.Background(), env, TagOECD, "ANY")
	require.NoError(t, err)

	require.Len(t, res.Records, 3, "only Percentage of GDP rows")
	assert.Equal(t, "DEU", res.Records[0].CountryCode)
	assert.Equal(t, 12.8, res.Records[0].Value.Float64)
	assert.False(t, res.Records[1].Value.Valid)
	assert.Equal(t, core.Float(9.4), res.Records[2].Value)
}

func TestOECD_NoFallbackConfigured(t *testing.T) {
	env := core.Env{Fetcher: &stubFetcher{err: &core.FetchError{URL: "x", Status: 503}}}
	_, err := core.Normalize(context.Background(), env, TagOECD, "ANY")

	var fe *core.FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestOECD_NotJSON(t *testing.T) {
	_, err := parseOECD(context.Background(), []byte("<html>maintenance</html>"))
	var pe *core.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestEurostat_Fixture(t *testing.T) {
	code := "demo_mlexpec"
	env := envFor(eurostatURL(code), fixture(t, "eurostat.tsv"))

	res, err := core.Normalize(context.Background(), env, TagEurostat, code)
	require.NoError(t, err)

	assert.Empty(t, res.Dimensions, "freq and unit are constant, sex is diverted")
	assert.True(t, res.SexSplit)
	require.Len(t, res.Records, 8)
	assertCanonical(t, res.Records)

	first := res.Records[0]
	assert.Equal(t, "FR", first.CountryCode)
	assert.Equal(t, 2019, first.Year)
	assert.Equal(t, core.Float(85.6), first.Value)

	flagged := res.Records[4]
	assert.Equal(t, 2020, flagged.Year)
	assert.Equal(t, core.Float(85.2), flagged.Value, "flag stripped")

	assert.False(t, res.Records[6].Value.Valid, "colon is missing")
	assert.False(t, res.Records[7].Value.Valid, "colon with flag is missing")
}

func TestEurostat_BadKeys(t *testing.T) {
	_, err := parseEurostatTSV([]byte("unit,geo\\TIME_PERIOD\t2020\nPC\t1\n"))
	var pe *core.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestEurostatValue(t *testing.T) {
	tests := []struct {
		in   string
		want core.NullFloat
	}{
		{"12.3", core.Float(12.3)},
		{"12.3 p", core.Float(12.3)},
		{" 4 ", core.Float(4)},
		{":", core.NullFloat{}},
		{": c", core.NullFloat{}},
		{"", core.NullFloat{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, eurostatValue(tt.in))
		})
	}
}

func TestWHOEurope_Fixture(t *testing.T) {
	code := "HFA_43"
	env := envFor(whoEuropeURL(code), fixture(t, "whoeurope.json"))

	res, err := core.Normalize(context.Background(), env, TagWHOEurope, code)
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assertCanonical(t, res.Records)
	assert.True(t, res.SexSplit)
	assert.Equal(t, "AND", res.Records[0].CountryCode)
	assert.Equal(t, 2016, res.Records[0].Year, "YEAR as string")
	assert.Equal(t, 2018, res.Records[2].Year, "YEAR as number")
}

func TestWHOEurope_DegenerateSex(t *testing.T) {
	res, err := parseWHOEurope(context.Background(), fixture(t, "whoeurope_female.json"))
	require.NoError(t, err)
	assert.False(t, res.SexSplit)
	assert.Len(t, res.Records, 2)
}

func TestWHOEurope_NoSexDeclared(t *testing.T) {
	body := []byte(`[{"dimensions":[{"code":"COUNTRY"},{"code":"YEAR"}],"data":[{"dimensions":{"COUNTRY":"MLT","YEAR":2020},"value":{"numeric":1}}]}]`)
	res, err := parseWHOEurope(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Empty(t, res.Records[0].Dims)
}

func writeHESRIWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	rows := [][]any{
		{"indicator_abbr", "Country Code", "Year", "Value", "sex", "dimension", "Attributes", "population", "Source"},
		{"POV", "ITA", 2018, 20.1, "F", "Education", "Low", 1000, "EU-SILC"},
		{"POV", "ITA", 2020, 19.5, "F", "Education", "Low", 1100, "EU-SILC"},
		{"POV", "ITA", 2020, 12.0, "M", "Income", "High", 1200, "EU-SILC"},
		{"POV", "FRA", 2019, "", "M", "Income", "High", 1300, "EU-SILC"},
		{"POV", "FRA", 2019, 15.2, "F", "Income", "", 1400, "EU-SILC"},
		{"UNEMP", "ITA", 2020, 9.9, "F", "Income", "Low", 1500, "LFS"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "hesri.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestHESRI_Workbook(t *testing.T) {
	env := core.Env{Data: core.DataFiles{HESRIWorkbook1: writeHESRIWorkbook(t)}}

	res, err := core.Normalize(context.Background(), env, TagHESRI, "POV")
	require.NoError(t, err)

	assert.Equal(t, []string{"dimension", "Attributes"}, res.Dimensions.Names(), "structural and constant columns are not filters")
	assert.True(t, res.SexSplit)

	require.Len(t, res.Records, 3, "rows with empty cells are dropped")
	assertCanonical(t, res.Records)

	pop, ok := res.Records[0].Dims.Get("population")
	assert.True(t, ok, "varying structural column stays on the record")
	assert.Equal(t, "1000", pop)
	_, ok = res.Records[0].Dims.Get("Source")
	assert.False(t, ok)
}

func TestHESRI_BlankCells(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"indicator_abbr", "Country Code", "Year", "Value", "Attributes", "Note", "Source"},
		{"POV", "ITA", 2019, 1.0, "", "n", "S"},
		{"POV", "ITA", 2020, 2.0, "Low", "", "S"},
		{"POV", "FRA", 2019, 3.0, "Low", "n", "S"},
		{"POV", "FRA", 2020, 4.0, "High", "n", "S"},
		{"POV", "DEU", 2020, 5.0, "Medium", "n", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "hesri_blanks.xlsx")
	require.NoError(t, f.SaveAs(path))

	env := core.Env{Data: core.DataFiles{HESRIWorkbook1: path}}
	res, err := core.Normalize(context.Background(), env, TagHESRI, "POV")
	require.NoError(t, err)

	assert.Equal(t, core.DimensionRegistry{{Name: "Attributes", Values: []string{"Low", "High"}}}, res.Dimensions,
		"blank cells are neither filters nor filter values")
	require.Len(t, res.Records, 2, "a blank cell in any column drops the row")
	for _, r := range res.Records {
		assert.Equal(t, "FRA", r.CountryCode)
		_, ok := r.Dims.Get("Note")
		assert.False(t, ok)
	}
}

func TestHESRI2_ExcludesEducationAndIncome(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"indicator_abbr", "Country Code", "Year", "Value", "Education", "Income", "Attributes"},
		{"X", "ITA", 2020, 1.0, "Low", "Q1", "Low"},
		{"X", "FRA", 2021, 2.0, "High", "Q5", "High"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "hesri2.xlsx")
	require.NoError(t, f.SaveAs(path))

	env := core.Env{Data: core.DataFiles{HESRIWorkbook2: path}}
	res, err := core.Normalize(context.Background(), env, TagHESRI2, "X")
	require.NoError(t, err)
	assert.Equal(t, []string{"Attributes"}, res.Dimensions.Names())
	assert.Len(t, res.Records, 2)
}

func TestHESRI_NotConfigured(t *testing.T) {
	_, err := core.Normalize(context.Background(), core.Env{}, TagHESRI, "POV")
	var fe *core.FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestParseYear(t *testing.T) {
	for in, want := range map[string]int{"2020": 2020, " 1999 ": 1999, "2018.0": 2018} {
		got, ok := parseYear(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "2020Q1", "2020.5"} {
		_, ok := parseYear(in)
		assert.False(t, ok, in)
	}
}
