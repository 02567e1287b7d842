package report

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/JonMunkholm/healthdash/internal/core"
)

// Chart dimensions in the exported workbook.
const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// LineChart renders a pivot table as a PNG with one line per row.
// Missing cells break nothing: the line joins the surrounding points.
func LineChart(title string, p *core.PivotTable) ([]byte, error) {
	if p == nil || len(p.Rows) == 0 {
		return nil, fmt.Errorf("chart %q: no data", title)
	}

	plt := plot.New()
	plt.Title.Text = title
	plt.Title.TextStyle.Font.Size = vg.Points(12)
	plt.X.Label.Text = "Year"
	plt.X.Tick.Marker = yearTicks{}
	plt.Legend.Top = true
	plt.Add(plotter.NewGrid())

	for i, row := range p.Rows {
		pts := make(plotter.XYs, 0, len(p.Years))
		for j, y := range p.Years {
			if v := row.Values[j]; v.Valid {
				pts = append(pts, plotter.XY{X: float64(y), Y: v.Float64})
			}
		}
		if len(pts) == 0 {
			continue
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("chart %q: %w", title, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		points.Radius = vg.Points(2)

		plt.Add(line, points)
		plt.Legend.Add(rowLabel(row.Key), line, points)
	}

	// A single year would give the axis zero width.
	if plt.X.Min == plt.X.Max {
		plt.X.Min--
		plt.X.Max++
	}

	w, err := plt.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("chart %q: %w", title, err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("chart %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// rowLabel drops the country when dimensions follow it, since a profile
// chart holds a single country.
func rowLabel(key []string) string {
	if len(key) > 1 {
		return strings.Join(key[1:], " / ")
	}
	if len(key) == 1 {
		return key[0]
	}
	return ""
}

// yearTicks labels whole years only.
type yearTicks struct{}

func (yearTicks) Ticks(min, max float64) []plot.Tick {
	lo, hi := int(math.Ceil(min)), int(math.Floor(max))
	step := 1
	for (hi-lo)/step > 10 {
		step++
	}

	var ticks []plot.Tick
	for y := lo; y <= hi; y++ {
		t := plot.Tick{Value: float64(y)}
		if (y-lo)%step == 0 {
			t.Label = strconv.Itoa(y)
		}
		ticks = append(ticks, t)
	}
	return ticks
}
