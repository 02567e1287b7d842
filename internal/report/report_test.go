package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/healthdash/internal/core"
	"github.com/JonMunkholm/healthdash/internal/reference"
)

func testReport() *core.ProfileReport {
	failed := core.MapError(core.ErrEmptyResult)
	return &core.ProfileReport{
		ID:          "r-1",
		Country:     reference.Country{Code: "ITA", ISO2: "IT", ShortName: "Italy"},
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Narrative:   core.Narrative{Analysis: "Spending rose.", Advice: "Keep going.", Model: "m"},
		Sections: []core.ProfileSection{
			{
				Indicator: reference.Indicator{Datasource: "OECD", ShortName: "Health spending", LongName: "Health spending, % GDP", Code: "HS"},
				DataLink:  "https://example.org/HS",
				Pivot: &core.PivotTable{
					Index: []string{"country_code", "sex"},
					Years: []int{2019, 2020},
					Rows: []core.PivotRow{
						{Key: []string{"ITA", "F"}, Values: []core.NullFloat{core.Float(1.234), {}}},
						{Key: []string{"ITA", "M"}, Values: []core.NullFloat{core.Float(2), core.Float(2.5)}},
					},
				},
			},
			{
				Indicator: reference.Indicator{Datasource: "WORLD BANK", ShortName: "GDP", Code: "NY.GDP"},
				Error:     &failed,
			},
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Profile", "01 Health spending"}, f.GetSheetList())

	v, err := f.GetCellValue("Profile", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Italy", v)

	v, _ = f.GetCellValue("Profile", "B6")
	assert.Equal(t, "Spending rose.", v)

	rows, err := f.GetRows("Profile")
	require.NoError(t, err)
	var statuses []string
	for _, r := range rows {
		if len(r) >= 3 && (r[0] == "Health spending" || r[0] == "GDP") {
			statuses = append(statuses, r[2])
		}
	}
	assert.Equal(t, []string{"ok", "No data for this selection (DAT001)"}, statuses)

	rows, err = f.GetRows("01 Health spending")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 5)
	assert.Equal(t, []string{"country_code", "sex", "2019", "2020"}, rows[2])
	assert.Equal(t, []string{"ITA", "F", "1.23"}, rows[3])
	assert.Equal(t, []string{"ITA", "M", "2", "2.5"}, rows[4])

	pics, err := f.GetPictures("01 Health spending", "A8")
	require.NoError(t, err)
	require.Len(t, pics, 1)
	assert.Equal(t, ".png", pics[0].Extension)
}

func TestLineChart(t *testing.T) {
	png, err := LineChart("x", testReport().Sections[0].Pivot)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	single := &core.PivotTable{
		Index: []string{"country_code"},
		Years: []int{2020},
		Rows:  []core.PivotRow{{Key: []string{"ITA"}, Values: []core.NullFloat{core.Float(1)}}},
	}
	_, err = LineChart("single", single)
	assert.NoError(t, err)

	_, err = LineChart("empty", &core.PivotTable{})
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	used := make(map[string]bool)

	assert.Equal(t, "01 a b", sheetName(1, "a/b", used))

	long := strings.Repeat("x", 40)
	first := sheetName(2, long, used)
	assert.Len(t, first, 31)

	second := sheetName(2, long, used)
	assert.Len(t, second, 31)
	assert.True(t, strings.HasSuffix(second, "~2"))
	assert.NotEqual(t, first, second)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "profile_ITA_20240501.xlsx", Filename(testReport()))
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "F / 15-24", rowLabel([]string{"ITA", "F", "15-24"}))
	assert.Equal(t, "ITA", rowLabel([]string{"ITA"}))
}
