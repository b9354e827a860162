package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"ecofinance/internal/core"
)

// Kind selects the chart type. Values match Chart.js type names.
type Kind string

const (
	KindBar   Kind = "bar"
	KindLine  Kind = "line"
	KindDonut Kind = "doughnut"
	KindPie   Kind = "pie"
)

const (
	// BarThickness is the fixed bar width of the monthly chart, in pixels.
	BarThickness = 140
	// DonutCutout is the hole of the category donut, in percent.
	DonutCutout = 75
	// CenterCaption is drawn above the total inside the donut.
	CenterCaption = "Gastos totales"
)

// MonthlyPalette colors the monthly bars, cycled by index.
var MonthlyPalette = []string{"#007ACC", "#FF8C00", "#228B22"}

var ErrUnsupportedKind = errors.New("unsupported chart kind")

// ParseKind returns the chart kind named by s, or def when s is empty or
// unknown.
func ParseKind(s string, def Kind) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBar, KindLine, KindDonut, KindPie:
		return k
	}
	return def
}

type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor,omitempty"`
	BorderColor     []string  `json:"borderColor,omitempty"`
	BorderWidth     int       `json:"borderWidth,omitempty"`
	BarThickness    int       `json:"barThickness,omitempty"`
	Fill            bool      `json:"fill"`
}

// Center is the text overlay drawn in the donut hole.
type Center struct {
	Caption string `json:"caption"`
	Value   string `json:"value"`
}

// ChartSpec is the chart description handed to the browser (Chart.js) and
// to the SVG renderer. Currency marks axes and tooltips that are formatted
// as es-CL pesos.
type ChartSpec struct {
	Kind        Kind      `json:"type"`
	Labels      []string  `json:"labels"`
	Datasets    []Dataset `json:"datasets"`
	Cutout      int       `json:"cutoutPercentage,omitempty"`
	Legend      bool      `json:"legend"`
	Tooltips    bool      `json:"tooltips"`
	BeginAtZero bool      `json:"beginAtZero"`
	Currency    bool      `json:"currency"`
	Center      *Center   `json:"center,omitempty"`
}

// Points counts the plotted values across datasets.
func (s ChartSpec) Points() int {
	n := 0
	for _, d := range s.Datasets {
		n += len(d.Data)
	}
	return n
}

func (s ChartSpec) Empty() bool { return s.Points() == 0 }

// JS encodes the spec for a data attribute or script element.
func (s ChartSpec) JS() (template.JS, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode %s chart: %w", s.Kind, err)
	}
	return template.JS(b), nil
}

// BuildMonthlyChart builds the expenses-per-month chart. Bar charts use a
// fixed bar thickness and cycle MonthlyPalette; line charts fill the area
// under the line. An empty series yields a spec with an empty dataset.
func BuildMonthlyChart(kind Kind, series MonthlySeries) (ChartSpec, error) {
	spec := ChartSpec{
		Kind:        kind,
		Labels:      append([]string{}, series.Labels...),
		BeginAtZero: true,
		Currency:    true,
		Tooltips:    true,
	}
	data := make([]float64, len(series.Values))
	for i, v := range series.Values {
		data[i] = v.Float64()
	}

	ds := Dataset{Label: "Gastos", Data: data}
	switch kind {
	case KindBar:
		ds.BarThickness = BarThickness
		ds.BackgroundColor = cycle(MonthlyPalette, len(data))
		ds.BorderColor = ds.BackgroundColor
		ds.BorderWidth = 1
	case KindLine:
		ds.Fill = true
		ds.BackgroundColor = []string{MonthlyPalette[0] + "33"}
		ds.BorderColor = []string{MonthlyPalette[0]}
		ds.BorderWidth = 2
	default:
		return ChartSpec{}, fmt.Errorf("%w for monthly chart: %q", ErrUnsupportedKind, kind)
	}
	spec.Datasets = []Dataset{ds}
	return spec, nil
}

// BuildCategoryChart builds the category breakdown as a donut (with the
// total in the center) or a pie. Slice i is colored Palette[i mod 10].
func BuildCategoryChart(kind Kind, cats []CategoryAmount) (ChartSpec, error) {
	if kind != KindDonut && kind != KindPie {
		return ChartSpec{}, fmt.Errorf("%w for category chart: %q", ErrUnsupportedKind, kind)
	}
	spec := ChartSpec{Kind: kind, Labels: make([]string, 0, len(cats))}
	data := make([]float64, 0, len(cats))
	for _, c := range cats {
		spec.Labels = append(spec.Labels, c.Categoria)
		data = append(data, c.Monto.Float64())
	}
	spec.Datasets = []Dataset{{
		Data:            data,
		BackgroundColor: cycle(Palette, len(cats)),
		BorderWidth:     1,
	}}
	if kind == KindDonut {
		spec.Cutout = DonutCutout
		spec.Center = &Center{Caption: CenterCaption, Value: core.FormatCLP(Total(cats))}
	}
	return spec, nil
}

func cycle(palette []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = ColorAt(palette, i)
	}
	return out
}
