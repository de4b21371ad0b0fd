package chart

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	interactiveStack  = "speed"
	interactiveRotate = 28
)

// BuildInteractive returns an echarts bar chart of ds with one stacked
// series per diet, colored like the SVG legend.
func BuildInteractive(ds Dataset) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Species Speed",
			Width:     "100%",
			Height:    fmt.Sprintf("%dpx", Height),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Species Speed",
			Subtitle: fmt.Sprintf("Showing top %d animals.", TopN),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Animal",
			AxisLabel: &opts.AxisLabel{
				Rotate:   interactiveRotate,
				Interval: "0",
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Speed (km/h)"}),
	)
	bar.SetXAxis(ds.Names())

	var colors ColorScale
	for _, d := range colors.Domain() {
		data := make([]opts.BarData, len(ds))
		for i, r := range ds {
			if r.Diet == d {
				data[i] = opts.BarData{Name: r.Name, Value: math.Round(r.Speed*100) / 100}
				continue
			}
			data[i] = opts.BarData{Value: "-"}
		}
		bar.AddSeries(d.Label(), data,
			charts.WithBarChartOpts(opts.BarChart{Stack: interactiveStack}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colors.Color(d)}),
		)
	}
	return bar
}

// RenderInteractive writes a standalone HTML page with the echarts chart.
func RenderInteractive(w io.Writer, ds Dataset) error {
	if len(ds) == 0 {
		return ErrEmptyDataset
	}
	if err := BuildInteractive(ds).Render(w); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}
