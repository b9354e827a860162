package recommend

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ecofinance/internal/dashboard"
)

// Markdown renders recommendation text to HTML. Raw HTML in the input is
// dropped and unsafe link schemes are not rendered.
type Markdown struct {
	md goldmark.Markdown
}

var _ dashboard.MarkdownRenderer = (*Markdown)(nil)

func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (m *Markdown) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
