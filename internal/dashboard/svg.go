package dashboard

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ecofinance/internal/core"
)

const (
	svgWidth  = 720
	svgHeight = 360
)

// RenderSVG draws spec with go-chart. Specs without data (or with only zero
// values) produce a placeholder image instead of an error.
func RenderSVG(w io.Writer, spec ChartSpec) error {
	if spec.Empty() || allZero(spec) {
		return writePlaceholderSVG(w, "Sin datos para el período")
	}
	switch spec.Kind {
	case KindBar:
		return renderBar(w, spec)
	case KindLine:
		return renderLine(w, spec)
	case KindDonut, KindPie:
		return renderSlices(w, spec)
	}
	return fmt.Errorf("%w for svg: %q", ErrUnsupportedKind, spec.Kind)
}

// FormatTick formats an axis value as es-CL pesos.
func FormatTick(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	return core.FormatCLP(core.NewMoney(decimal.NewFromFloat(f)))
}

func renderBar(w io.Writer, spec ChartSpec) error {
	ds := spec.Datasets[0]
	bars := make([]chart.Value, len(ds.Data))
	for i, v := range ds.Data {
		col := hexColor(pick(ds.BackgroundColor, i))
		bars[i] = chart.Value{
			Value: v,
			Label: pickLabel(spec.Labels, i),
			Style: chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1},
		}
	}
	bc := chart.BarChart{
		Width:    svgWidth,
		Height:   svgHeight,
		BarWidth: barWidth(len(bars)),
		Background: chart.Style{
			Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16},
		},
		YAxis: chart.YAxis{
			ValueFormatter: FormatTick,
			Range:          &chart.ContinuousRange{Min: 0, Max: maxValue(ds.Data)},
		},
		Bars: bars,
	}
	return bc.Render(chart.SVG, w)
}

// barWidth keeps BarThickness unless the bars would not fit.
func barWidth(n int) int {
	if n == 0 {
		return BarThickness
	}
	if fit := (svgWidth - 120) / n; fit < BarThickness {
		return fit * 3 / 4
	}
	return BarThickness
}

func renderLine(w io.Writer, spec ChartSpec) error {
	ds := spec.Datasets[0]
	xs := make([]float64, len(ds.Data))
	ticks := make([]chart.Tick, len(ds.Data))
	for i := range ds.Data {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: pickLabel(spec.Labels, i)}
	}
	ys := ds.Data
	if len(xs) == 1 {
		// go-chart needs a non-zero x range
		xs = []float64{0, 1}
		ys = []float64{ds.Data[0], ds.Data[0]}
		ticks = append(ticks, chart.Tick{Value: 1, Label: ""})
	}
	stroke := hexColor(pick(ds.BorderColor, 0))
	fill := hexColor(pick(ds.BackgroundColor, 0))
	ch := chart.Chart{
		Width:  svgWidth,
		Height: svgHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{Ticks: ticks},
		YAxis: chart.YAxis{
			ValueFormatter: FormatTick,
			Range:          &chart.ContinuousRange{Min: 0, Max: maxValue(ds.Data)},
		},
		Series: []chart.Series{chart.ContinuousSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: stroke,
				StrokeWidth: 2,
				FillColor:   fill,
				DotWidth:    3,
				DotColor:    stroke,
			},
		}},
	}
	return ch.Render(chart.SVG, w)
}

func renderSlices(w io.Writer, spec ChartSpec) error {
	ds := spec.Datasets[0]
	values := make([]chart.Value, 0, len(ds.Data))
	for i, v := range ds.Data {
		if v <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: v,
			Label: pickLabel(spec.Labels, i),
			Style: chart.Style{FillColor: hexColor(pick(ds.BackgroundColor, i))},
		})
	}
	if spec.Kind == KindDonut {
		dc := chart.DonutChart{Width: svgHeight, Height: svgHeight, Values: values}
		if spec.Center != nil {
			dc.Title = spec.Center.Caption + " " + spec.Center.Value
		}
		return dc.Render(chart.SVG, w)
	}
	pc := chart.PieChart{Width: svgHeight, Height: svgHeight, Values: values}
	return pc.Render(chart.SVG, w)
}

func writePlaceholderSVG(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
			`<rect width="100%%" height="100%%" fill="#f5f5f5"/>`+
			`<text x="50%%" y="50%%" text-anchor="middle" fill="#777" font-family="sans-serif" font-size="16">%s</text></svg>`,
		svgWidth, svgHeight, svgWidth, svgHeight, html.EscapeString(text))
	return err
}

func allZero(spec ChartSpec) bool {
	for _, d := range spec.Datasets {
		for _, v := range d.Data {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

func maxValue(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	if m == 0 {
		return 1
	}
	return m * 1.1
}

func pick(colors []string, i int) string {
	if len(colors) == 0 {
		return MonthlyPalette[0]
	}
	return colors[i%len(colors)]
}

func pickLabel(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return ""
}

// hexColor parses #RRGGBB or #RRGGBBAA.
func hexColor(s string) drawing.Color {
	s = strings.TrimPrefix(s, "#")
	c := drawing.Color{A: 255}
	parse := func(part string) uint8 {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return 0
		}
		return uint8(v)
	}
	if len(s) != 6 && len(s) != 8 {
		return c
	}
	c.R, c.G, c.B = parse(s[0:2]), parse(s[2:4]), parse(s[4:6])
	if len(s) == 8 {
		c.A = parse(s[6:8])
	}
	return c
}
