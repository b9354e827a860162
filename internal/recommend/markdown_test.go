package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecofinance/internal/dashboard"
)

func TestMarkdownRender(t *testing.T) {
	md := NewMarkdown()

	html, err := md.Render("**bold**")
	require.NoError(t, err)
	assert.Contains(t, string(html), "<strong>bold</strong>")

	html, err = md.Render("hola <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")

	html, err = md.Render("- uno\n- dos")
	require.NoError(t, err)
	assert.Contains(t, string(html), "<li>uno</li>")
}

func TestPanelWithMarkdown(t *testing.T) {
	text := "**bold**"
	p := dashboard.PanelFromResponse(dashboard.RecommendationResponse{Recomendaciones: &text}, NewMarkdown())
	assert.Equal(t, dashboard.PanelPopulated, p.State)
	assert.Contains(t, string(p.HTML), "<strong>bold</strong>")
}
