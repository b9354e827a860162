package dashboard

import (
	"errors"
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// boldOnly is enough Markdown for panel state tests.
type boldOnly struct{ err error }

func (b boldOnly) Render(md string) (template.HTML, error) {
	if b.err != nil {
		return "", b.err
	}
	parts := strings.Split(md, "**")
	var sb strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			sb.WriteString("<strong>" + template.HTMLEscapeString(p) + "</strong>")
			continue
		}
		sb.WriteString(template.HTMLEscapeString(p))
	}
	return template.HTML("<p>" + sb.String() + "</p>"), nil
}

func ptr(s string) *string { return &s }

func TestPanelFromResponse(t *testing.T) {
	p := PanelFromResponse(RecommendationResponse{Recomendaciones: ptr("**bold**")}, boldOnly{})
	assert.Equal(t, PanelPopulated, p.State)
	assert.Contains(t, string(p.HTML), "<strong>bold</strong>")

	for _, resp := range []RecommendationResponse{{}, {Recomendaciones: ptr("  ")}} {
		p := PanelFromResponse(resp, boldOnly{})
		assert.Equal(t, PanelFallback, p.State)
		assert.Equal(t, FallbackMessage, p.Text)
	}

	p = PanelFromResponse(RecommendationResponse{Recomendaciones: ptr("x")}, boldOnly{err: errors.New("boom")})
	assert.Equal(t, PanelError, p.State)
}

func TestPanelFromError(t *testing.T) {
	p := PanelFromError(errors.New("connection refused"))
	assert.Equal(t, PanelError, p.State)
	assert.Equal(t, "Error: connection refused", p.Text)
	assert.True(t, p.Visible())
	assert.Equal(t, "error", p.State.String())
}

func TestLoadingPanel(t *testing.T) {
	p := LoadingPanel()
	assert.Equal(t, PanelLoading, p.State)
	assert.Equal(t, LoadingMessage, p.Text)
	assert.False(t, Panel{}.Visible())
}
