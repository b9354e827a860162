package dashboard

import (
	"html/template"
	"strings"
)

// PanelState is the recommendation panel lifecycle:
// hidden -> loading -> populated | fallback | error.
type PanelState int

const (
	PanelHidden PanelState = iota
	PanelLoading
	PanelPopulated
	PanelFallback
	PanelError
)

func (s PanelState) String() string {
	switch s {
	case PanelHidden:
		return "hidden"
	case PanelLoading:
		return "loading"
	case PanelPopulated:
		return "populated"
	case PanelFallback:
		return "fallback"
	case PanelError:
		return "error"
	}
	return "unknown"
}

const (
	LoadingMessage  = "Generando recomendaciones..."
	FallbackMessage = "No se pudieron generar recomendaciones."
)

// RecommendationResponse is the body of GET /generar-recomendaciones/.
type RecommendationResponse struct {
	Recomendaciones *string `json:"recomendaciones,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// MarkdownRenderer converts recommendation Markdown to safe HTML.
type MarkdownRenderer interface {
	Render(markdown string) (template.HTML, error)
}

// Panel is what the recommendation container shows.
type Panel struct {
	State PanelState
	HTML  template.HTML
	Text  string
}

func (p Panel) Visible() bool { return p.State != PanelHidden }

func LoadingPanel() Panel { return Panel{State: PanelLoading, Text: LoadingMessage} }

// PanelFromResponse renders a successful response. A missing or blank
// recomendaciones field shows FallbackMessage.
func PanelFromResponse(resp RecommendationResponse, md MarkdownRenderer) Panel {
	if resp.Recomendaciones == nil || strings.TrimSpace(*resp.Recomendaciones) == "" {
		return Panel{State: PanelFallback, Text: FallbackMessage}
	}
	html, err := md.Render(*resp.Recomendaciones)
	if err != nil {
		return PanelFromError(err)
	}
	return Panel{State: PanelPopulated, HTML: html}
}

// PanelFromError shows the failure inline.
func PanelFromError(err error) Panel {
	return Panel{State: PanelError, Text: "Error: " + err.Error()}
}
