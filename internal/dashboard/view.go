package dashboard

import (
	"html/template"
	"net/url"
	"time"

	"ecofinance/internal/core"
)

// Options are the rendering inputs that do not come from the payloads.
type Options struct {
	Period         core.Period
	Latest         core.Period // newest month offered by the selector
	PeriodChoices  int
	MonthlyKind    Kind
	AlertHideAfter time.Duration
	CurrentURL     *url.URL
}

// Widget is one chart on the page.
type Widget struct {
	Skipped bool // payload absent, nothing rendered
	Failed  bool // payload malformed, Unavailable shown
	Spec    ChartSpec
	JS      template.JS
}

func (w Widget) Ready() bool { return !w.Skipped && !w.Failed }

func (w Widget) Placeholder() string { return Unavailable }

// View is everything the dashboard template needs.
type View struct {
	Period        core.Period
	PeriodOptions []PeriodOption
	Payloads      Payloads

	Alert         Alert
	BalanceFailed bool

	Donut  Widget
	Legend []LegendEntry
	Total  string

	Monthly Widget

	// Errors collects decode and build failures for logging.
	Errors []error
}

// Render decodes the payloads and builds every widget. It never fails as a
// whole: broken widgets are flagged and their errors collected.
func Render(p Payloads, opts Options) View {
	if opts.MonthlyKind == "" {
		opts.MonthlyKind = KindBar
	}
	if opts.PeriodChoices <= 0 {
		opts.PeriodChoices = 12
	}
	latest := opts.Latest
	if latest == (core.Period{}) {
		latest = opts.Period
	}

	v := View{
		Period:        opts.Period,
		PeriodOptions: PeriodOptions(opts.CurrentURL, latest, opts.Period, opts.PeriodChoices),
		Payloads:      p,
	}

	balance := DecodeBalance(p.Balance)
	switch {
	case balance.OK():
		v.Alert = CheckNegativeBalance(balance.Value, opts.AlertHideAfter)
	case balance.Failed():
		v.BalanceFailed = true
		v.Errors = append(v.Errors, balance.Err)
	}

	cats := DecodeCategories(p.Categories)
	switch {
	case cats.OK():
		v.Legend = BuildLegend(cats.Value)
		v.Total = core.FormatCLP(Total(cats.Value))
		spec, err := BuildCategoryChart(KindDonut, cats.Value)
		v.Donut = v.widget(spec, err)
	case cats.Missing():
		v.Donut.Skipped = true
	default:
		v.Donut.Failed = true
		v.Errors = append(v.Errors, cats.Err)
	}

	series := DecodeMonthlySeries(p.Monthly)
	switch {
	case series.OK():
		spec, err := BuildMonthlyChart(opts.MonthlyKind, series.Value)
		v.Monthly = v.widget(spec, err)
	case series.Missing():
		v.Monthly.Skipped = true
	default:
		v.Monthly.Failed = true
		v.Errors = append(v.Errors, series.Err)
	}
	return v
}

func (v *View) widget(spec ChartSpec, err error) Widget {
	if err != nil {
		v.Errors = append(v.Errors, err)
		return Widget{Failed: true}
	}
	js, err := spec.JS()
	if err != nil {
		v.Errors = append(v.Errors, err)
		return Widget{Failed: true}
	}
	return Widget{Spec: spec, JS: js}
}
