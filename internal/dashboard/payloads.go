package dashboard

import (
	"encoding/json"
	"fmt"
	"html/template"

	"ecofinance/internal/core"
)

// Payloads holds the JSON documents embedded in the page under the
// PayloadBalance, PayloadCategories and PayloadMonthly ids.
type Payloads struct {
	Balance    []byte
	Categories []byte
	Monthly    []byte
}

type monthlyWire struct {
	Labels []string      `json:"labels"`
	Values []json.Number `json:"values"`
}

// EncodePayloads serialises the parts of a summary the page consumes.
func EncodePayloads(s core.DashboardSummary) (Payloads, error) {
	var p Payloads
	var err error

	if p.Balance, err = json.Marshal(json.Number(s.Balance.String())); err != nil {
		return Payloads{}, fmt.Errorf("encode balance: %w", err)
	}

	cats := make([]CategoryAmount, 0, len(s.ByCategory))
	for _, c := range s.ByCategory {
		cats = append(cats, CategoryAmount{Categoria: c.Name, Monto: c.Amount})
	}
	if p.Categories, err = json.Marshal(cats); err != nil {
		return Payloads{}, fmt.Errorf("encode categories: %w", err)
	}

	m := monthlyWire{Labels: []string{}, Values: []json.Number{}}
	for _, ma := range s.Monthly {
		m.Labels = append(m.Labels, ma.Period.ShortLabel())
		m.Values = append(m.Values, json.Number(ma.Amount.String()))
	}
	if p.Monthly, err = json.Marshal(m); err != nil {
		return Payloads{}, fmt.Errorf("encode monthly series: %w", err)
	}
	return p, nil
}

// json.Marshal escapes <, > and & so the documents are safe inside a
// <script type="application/json"> element.

func (p Payloads) BalanceJS() template.JS    { return template.JS(p.Balance) }
func (p Payloads) CategoriesJS() template.JS { return template.JS(p.Categories) }
func (p Payloads) MonthlyJS() template.JS    { return template.JS(p.Monthly) }
