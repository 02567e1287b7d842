// Package report exports country profiles as Excel workbooks.
//
// A workbook has a summary sheet with the narrative and the outcome of every
// indicator, followed by one sheet per indicator with data. Indicator sheets
// hold the pivot table (values rounded to two decimals) and a line chart.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/healthdash/internal/core"
)

const (
	summarySheet  = "Profile"
	maxSheetName  = 31
	chartRowGap   = 2
	firstColWidth = 24
)

// Filename returns the download name for a report.
func Filename(r *core.ProfileReport) string {
	return fmt.Sprintf("profile_%s_%s.xlsx", r.Country.Code, r.GeneratedAt.Format("20060102"))
}

// WriteXLSX writes r as an xlsx workbook to w.
func WriteXLSX(w io.Writer, r *core.ProfileReport) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, r, bold, wrap); err != nil {
		return err
	}

	names := make(map[string]bool)
	for i, s := range r.Sections {
		if s.Error != nil || s.Pivot == nil {
			continue
		}
		name := sheetName(i+1, s.Indicator.ShortName, names)
		if err := writeSection(f, name, s, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *core.ProfileReport, bold, wrap int) error {
	rows := [][]any{
		{"Country profile", r.Country.ShortName},
		{"Country code", r.Country.Code},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04 MST")},
		{"Report id", r.ID},
		{},
		{"Analysis", r.Narrative.Analysis},
		{"Advice", r.Narrative.Advice},
	}
	if r.Narrative.Model != "" {
		rows = append(rows, []any{"Model", r.Narrative.Model})
	}
	if r.NarrativeError != "" {
		rows = append(rows, []any{"Narrative", r.NarrativeError})
	}
	rows = append(rows, []any{}, []any{"Indicator", "Source", "Status", "Data link"})

	for _, s := range r.Sections {
		status := "ok"
		if s.Error != nil {
			status = fmt.Sprintf("%s (%s)", s.Error.Message, s.Error.Code)
		}
		rows = append(rows, []any{s.Indicator.ShortName, s.Indicator.Datasource, status, s.DataLink})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
		if len(row) > 0 {
			if err := f.SetCellStyle(summarySheet, cell, cell, bold); err != nil {
				return fmt.Errorf("style summary: %w", err)
			}
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", firstColWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 100); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "B6", "B7", wrap); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	return nil
}

func writeSection(f *excelize.File, sheet string, s core.ProfileSection, bold int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}

	title := []any{s.Title(), s.Indicator.LongName}
	if err := f.SetSheetRow(sheet, "A1", &title); err != nil {
		return fmt.Errorf("write %q: %w", sheet, err)
	}

	header := make([]any, 0, len(s.Pivot.Index)+len(s.Pivot.Years))
	for _, name := range s.Pivot.Index {
		header = append(header, name)
	}
	for _, y := range s.Pivot.Years {
		header = append(header, y)
	}
	if err := f.SetSheetRow(sheet, "A3", &header); err != nil {
		return fmt.Errorf("write %q: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 3)
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return fmt.Errorf("style %q: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A3", last, bold); err != nil {
		return fmt.Errorf("style %q: %w", sheet, err)
	}

	for i, row := range s.Pivot.Rows {
		cells := make([]any, 0, len(row.Key)+len(row.Values))
		for _, k := range row.Key {
			cells = append(cells, k)
		}
		for _, v := range row.Values {
			if v.Valid {
				cells = append(cells, round2(v.Float64))
			} else {
				cells = append(cells, nil)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+4)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write %q: %w", sheet, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", firstColWidth/2); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	png, err := LineChart(s.Title(), s.Pivot)
	if err != nil {
		slog.Warn("profile chart skipped", "indicator", s.Indicator.Code, "error", err)
		return nil
	}
	anchor, _ := excelize.CoordinatesToCellName(1, len(s.Pivot.Rows)+4+chartRowGap)
	if err := f.AddPictureFromBytes(sheet, anchor, &excelize.Picture{
		Extension: ".png",
		File:      png,
		Format:    &excelize.GraphicOptions{AltText: s.Title()},
	}); err != nil {
		return fmt.Errorf("insert chart in %q: %w", sheet, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// sheetName builds a unique sheet name of at most 31 characters without the
// characters Excel rejects.
func sheetName(n int, short string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\', '\'':
			return ' '
		}
		return r
	}, short)
	clean = strings.Join(strings.Fields(clean), " ")

	name := fmt.Sprintf("%02d %s", n, clean)
	for utf8.RuneCountInString(name) > maxSheetName {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	name = strings.TrimSpace(name)

	for base, i := name, 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		name = base
		for utf8.RuneCountInString(name)+len(suffix) > maxSheetName {
			_, size := utf8.DecodeLastRuneInString(name)
			name = name[:len(name)-size]
		}
		name += suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
