package http

import (
	"net/http"

	"ecofinance/internal/dashboard"
	applog "ecofinance/internal/log"
)

// handleGenerateRecommendations answers {"recomendaciones": markdown}, or
// 502 {"error": ...} when the generator fails.
func (s *Server) handleGenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	period, _ := s.selectedPeriod(r)
	ctx := r.Context()

	text, err := s.recommender.Recommend(ctx, user.ID, period)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Recommendation failed",
			applog.FieldPeriod, period.String(),
			applog.FieldError, err.Error())
		writeJSON(w, http.StatusBadGateway, dashboard.RecommendationResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dashboard.RecommendationResponse{Recomendaciones: &text})
}

// handleRecommendationPanel is the htmx variant: it renders the panel in
// its populated, fallback or error state. The button that requests it is
// disabled while the request is in flight.
func (s *Server) handleRecommendationPanel(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	period, _ := s.selectedPeriod(r)
	ctx := r.Context()

	var panel dashboard.Panel
	text, err := s.recommender.Recommend(ctx, user.ID, period)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Recommendation failed",
			applog.FieldPeriod, period.String(),
			applog.FieldError, err.Error())
		panel = dashboard.PanelFromError(err)
	} else {
		panel = dashboard.PanelFromResponse(dashboard.RecommendationResponse{Recomendaciones: &text}, s.markdown)
	}
	applog.FromContext(ctx).DebugContext(ctx, "Recommendation panel rendered", "state", panel.State.String())

	s.render(w, r, http.StatusOK, "recommendations_panel", panel)
}
