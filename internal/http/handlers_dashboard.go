package http

import (
	"context"
	"net/http"

	"ecofinance/internal/core"
	"ecofinance/internal/dashboard"
	applog "ecofinance/internal/log"
)

// chartParam selects the monthly chart variant (bar or line).
const chartParam = "grafico"

type dashboardPage struct {
	page
	View      dashboard.View
	Summary   core.DashboardSummary
	LoadError bool
	ChartKind dashboard.Kind
	Loading   string
}

func monthlyKind(r *http.Request) dashboard.Kind {
	if k := dashboard.ParseKind(r.URL.Query().Get(chartParam), dashboard.KindBar); k == dashboard.KindLine {
		return k
	}
	return dashboard.KindBar
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	logger := applog.FromContext(ctx)

	today := s.now()
	period, latest := s.selectedPeriod(r)

	data := dashboardPage{
		page:      s.newPage(r, "Dashboard", "dashboard"),
		ChartKind: monthlyKind(r),
		Loading:   dashboard.LoadingMessage,
	}

	var payloads dashboard.Payloads
	summary, err := s.dashboard.Load(ctx, user.ID, period, today)
	if err == nil {
		payloads, err = dashboard.EncodePayloads(summary)
	}
	if err != nil {
		logger.ErrorContext(ctx, "Dashboard data unavailable",
			applog.FieldPeriod, period.String(),
			applog.FieldError, err.Error())
		data.LoadError = true
		data.Error = "No se pudieron cargar los datos del período."
	}
	data.Summary = summary

	data.View = dashboard.Render(payloads, dashboard.Options{
		Period:         period,
		Latest:         latest,
		MonthlyKind:    data.ChartKind,
		AlertHideAfter: s.alertHideAfter,
		CurrentURL:     r.URL,
	})
	for _, e := range data.View.Errors {
		logger.WarnContext(ctx, "Dashboard widget degraded",
			applog.FieldPeriod, period.String(),
			applog.FieldError, e.Error())
	}

	s.render(w, r, http.StatusOK, "dashboard.html", data)
}

// handleCategoryChartSVG renders the category breakdown (donut, or pie with
// kind=pie) as SVG.
func (s *Server) handleCategoryChartSVG(w http.ResponseWriter, r *http.Request) {
	payloads, ok := s.loadPayloads(w, r)
	if !ok {
		return
	}
	kind := dashboard.KindDonut
	if dashboard.ParseKind(r.URL.Query().Get("kind"), kind) == dashboard.KindPie {
		kind = dashboard.KindPie
	}

	var spec dashboard.ChartSpec
	cats := dashboard.DecodeCategories(payloads.Categories)
	err := cats.Err
	if err == nil {
		spec, err = dashboard.BuildCategoryChart(kind, cats.Value)
	}
	s.writeSVG(w, r, spec, err)
}

// handleMonthlyChartSVG renders the monthly expenses (kind=bar|line) as SVG.
func (s *Server) handleMonthlyChartSVG(w http.ResponseWriter, r *http.Request) {
	payloads, ok := s.loadPayloads(w, r)
	if !ok {
		return
	}
	kind := dashboard.KindBar
	if dashboard.ParseKind(r.URL.Query().Get("kind"), kind) == dashboard.KindLine {
		kind = dashboard.KindLine
	}

	var spec dashboard.ChartSpec
	series := dashboard.DecodeMonthlySeries(payloads.Monthly)
	err := series.Err
	if err == nil {
		spec, err = dashboard.BuildMonthlyChart(kind, series.Value)
	}
	s.writeSVG(w, r, spec, err)
}

func (s *Server) loadPayloads(w http.ResponseWriter, r *http.Request) (dashboard.Payloads, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return dashboard.Payloads{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	period, _ := s.selectedPeriod(r)
	summary, err := s.dashboard.Load(ctx, user.ID, period, s.now())
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Chart data unavailable",
			applog.FieldPeriod, period.String(),
			applog.FieldError, err.Error())
		http.Error(w, dashboard.Unavailable, http.StatusInternalServerError)
		return dashboard.Payloads{}, false
	}
	payloads, err := dashboard.EncodePayloads(summary)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Chart payload encoding failed", applog.FieldError, err.Error())
		http.Error(w, dashboard.Unavailable, http.StatusInternalServerError)
		return dashboard.Payloads{}, false
	}
	return payloads, true
}

// writeSVG renders spec; a decode or build failure is logged and drawn as
// an empty chart.
func (s *Server) writeSVG(w http.ResponseWriter, r *http.Request, spec dashboard.ChartSpec, err error) {
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Chart spec failed, rendering placeholder",
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err.Error())
		spec = dashboard.ChartSpec{Kind: spec.Kind}
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := dashboard.RenderSVG(w, spec); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "SVG rendering failed", applog.FieldError, err.Error())
	}
}
