package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ecofinance/internal/core"
)

// StaticGenerator produces rule-based advice locally. It is used when no
// LLM API key is configured.
type StaticGenerator struct{}

// concentration is the share of spending above which a category is called out.
var concentration = decimal.NewFromInt(40)

func (StaticGenerator) Generate(_ context.Context, txs []core.Transaction) (string, error) {
	var income, spent, saved core.Money
	byCat := map[string]core.Money{}
	for _, t := range txs {
		switch {
		case t.Type == core.Income:
			income = income.Add(t.Amount)
		case t.IsSavings():
			saved = saved.Add(t.Amount)
		default:
			spent = spent.Add(t.Amount)
			byCat[t.Category] = byCat[t.Category].Add(t.Amount)
		}
	}

	var b strings.Builder
	b.WriteString("### Resumen del período\n\n")
	fmt.Fprintf(&b, "- Ingresos: **%s**\n", core.FormatCLP(income))
	fmt.Fprintf(&b, "- Gastos: **%s**\n", core.FormatCLP(spent))
	fmt.Fprintf(&b, "- Aportes a objetivos: **%s**\n\n", core.FormatCLP(saved))
	b.WriteString("### Recomendaciones\n\n")

	if spent.Decimal().GreaterThan(income.Decimal()) {
		fmt.Fprintf(&b, "- **Tus gastos superan tus ingresos** por %s. Revisa los gastos no esenciales antes de fin de mes.\n",
			core.FormatCLP(spent.Sub(income)))
	}

	if top, amount := largest(byCat); spent.IsPositive() && top != "" {
		share := amount.Decimal().Div(spent.Decimal()).Shift(2).Round(0)
		if share.GreaterThanOrEqual(concentration) {
			fmt.Fprintf(&b, "- La categoría **%s** concentra el %s%% de tus gastos. Fija un límite mensual para ella.\n",
				top, share.String())
		}
	}

	switch {
	case !income.IsPositive():
		b.WriteString("- No registraste ingresos este período. Anótalos para tener un balance real.\n")
	case saved.IsZero():
		target := income.Decimal().Div(decimal.NewFromInt(10)).Round(0)
		fmt.Fprintf(&b, "- Intenta destinar al menos el 10%% de tus ingresos (%s) a un objetivo de ahorro.\n",
			core.FormatCLP(core.NewMoney(target)))
	default:
		rate := saved.Decimal().Div(income.Decimal()).Shift(2).Round(0)
		fmt.Fprintf(&b, "- Ahorraste el %s%% de tus ingresos. ¡Sigue así!\n", rate.String())
	}
	return b.String(), nil
}

func largest(m map[string]core.Money) (string, core.Money) {
	var name string
	var best core.Money
	for k, v := range m {
		if name == "" || v.Decimal().GreaterThan(best.Decimal()) ||
			(v.Equal(best) && k < name) {
			name, best = k, v
		}
	}
	return name, best
}
