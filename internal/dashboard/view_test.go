package dashboard

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecofinance/internal/core"
)

func summary() core.DashboardSummary {
	p := core.Period{Year: 2024, Month: 3}
	return core.DashboardSummary{
		Period:  p,
		Balance: core.MoneyFromInt(-5000),
		ByCategory: []core.CategoryAmount{
			{Name: "Comida", Amount: core.MoneyFromInt(1500)},
			{Name: "Ocio", Amount: core.MoneyFromInt(500)},
		},
		Monthly: []core.MonthAmount{
			{Period: p.Add(-1), Amount: core.MoneyFromInt(1000)},
			{Period: p, Amount: core.MoneyFromInt(2000)},
		},
	}
}

func TestRenderFromEncodedPayloads(t *testing.T) {
	payloads, err := EncodePayloads(summary())
	require.NoError(t, err)

	v := Render(payloads, Options{Period: core.Period{Year: 2024, Month: 3}, MonthlyKind: KindLine})
	assert.Empty(t, v.Errors)
	assert.True(t, v.Alert.Visible)
	assert.Equal(t, "$2.000", v.Total)
	require.Len(t, v.Legend, 2)
	assert.True(t, v.Donut.Ready())
	assert.True(t, v.Monthly.Ready())
	assert.Equal(t, KindLine, v.Monthly.Spec.Kind)
	assert.Equal(t, []string{"Feb 2024", "Mar 2024"}, v.Monthly.Spec.Labels)
	assert.NotEmpty(t, v.PeriodOptions)
}

func TestRenderIsolatesBrokenPayloads(t *testing.T) {
	payloads, err := EncodePayloads(summary())
	require.NoError(t, err)
	payloads.Categories = []byte(`{not json`)
	payloads.Monthly = nil

	v := Render(payloads, Options{Period: core.Period{Year: 2024, Month: 3}})
	assert.True(t, v.Donut.Failed)
	assert.Equal(t, Unavailable, v.Donut.Placeholder())
	assert.True(t, v.Monthly.Skipped)
	assert.True(t, v.Alert.Visible, "balance still rendered")
	require.Len(t, v.Errors, 1)
	assert.Contains(t, v.Errors[0].Error(), PayloadCategories)
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	spec, err := BuildMonthlyChart(KindBar, MonthlySeries{})
	require.NoError(t, err)
	require.NoError(t, RenderSVG(&buf, spec))
	assert.Contains(t, buf.String(), "Sin datos")

	for _, kind := range []Kind{KindBar, KindLine} {
		buf.Reset()
		spec, err := BuildMonthlyChart(kind, series([]string{"Ene", "Feb"}, 1000, 2500))
		require.NoError(t, err)
		require.NoError(t, RenderSVG(&buf, spec), kind)
		assert.Contains(t, buf.String(), "<svg", kind)
	}

	for _, kind := range []Kind{KindDonut, KindPie} {
		buf.Reset()
		spec, err := BuildCategoryChart(kind, []CategoryAmount{
			{Categoria: "Comida", Monto: core.MoneyFromInt(10)},
			{Categoria: "Ocio", Monto: core.MoneyFromInt(5)},
		})
		require.NoError(t, err)
		require.NoError(t, RenderSVG(&buf, spec), kind)
		assert.Contains(t, buf.String(), "<svg", kind)
	}
}

func TestFormatTick(t *testing.T) {
	assert.Equal(t, "$1.234.567", FormatTick(1234567.0))
	assert.Equal(t, "$0", FormatTick(0.0))
}
