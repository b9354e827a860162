package recommend

import (
	"fmt"
	"strings"

	"ecofinance/internal/core"
)

const promptTemplate = `Estas son las transacciones del mes:
%s

Por favor, analiza estas transacciones y proporciona recomendaciones para mejorar las finanzas personales.
Considera que este mensaje esta saliendo en la app de finanzas personales EcoFinance, por lo que las recomendaciones deben ser claras y concisas.
Los GASTOS marcados como %s son aportes a un objetivo de ahorro, por lo que no deben ser considerados como gastos en el analisis.`

// TransactionLine renders one row as "fecha - descripcion - categoria - tipo - $monto".
func TransactionLine(t core.Transaction) string {
	return fmt.Sprintf("%s - %s - %s - %s - $%s",
		t.Date.Format("2006-01-02"), t.Description, t.Category, t.Type, t.Amount.String())
}

// BuildPrompt lists the transactions and asks for concise advice.
func BuildPrompt(txs []core.Transaction) string {
	lines := make([]string, len(txs))
	for i, t := range txs {
		lines[i] = TransactionLine(t)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"), core.SavingsCategory)
}
