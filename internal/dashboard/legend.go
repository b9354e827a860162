package dashboard

import "ecofinance/internal/core"

// Palette colors category slices and legend entries, cycled by index.
var Palette = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF",
	"#FF9F40", "#8DD17E", "#D7263D", "#6C3483", "#F7B731",
}

type LegendEntry struct {
	Label  string
	Color  string
	Amount string
}

// ColorAt returns palette[i mod len(palette)].
func ColorAt(palette []string, i int) string {
	if len(palette) == 0 {
		return ""
	}
	return palette[i%len(palette)]
}

// Total sums the category amounts.
func Total(cats []CategoryAmount) core.Money {
	total := core.Money{}
	for _, c := range cats {
		total = total.Add(c.Monto)
	}
	return total
}

// BuildLegend mirrors the donut slices: same order, same colors.
func BuildLegend(cats []CategoryAmount) []LegendEntry {
	out := make([]LegendEntry, len(cats))
	for i, c := range cats {
		out[i] = LegendEntry{
			Label:  c.Categoria,
			Color:  ColorAt(Palette, i),
			Amount: core.FormatCLP(c.Monto),
		}
	}
	return out
}
