package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ecofinance/internal/core"
)

// Form field names of the ledger forms.
const (
	fieldTipo          = "tipo"
	fieldCategoria     = "categoria"
	fieldDescripcion   = "descripcion"
	fieldMonto         = "monto"
	fieldFecha         = "fecha"
	fieldRecurrente    = "esFijo"
	fieldPeriodicidad  = "periodicidad"
	fieldFechaInicio   = "fechaInicio"
	fieldFechaFin      = "fechaFin"
	fieldNombre        = "nombre"
	fieldMontoObjetivo = "monto_objetivo"
	fieldMontoActual   = "monto_actual"
	fieldFechaLimite   = "fecha_limite"
	fieldMostrarFutura = "mostrar_futuras"
)

// maxDescriptionBytes matches the description column limit.
const maxDescriptionBytes = 255

// FormError is a user-facing validation message for one field.
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string { return e.Message }

func formErr(field, msg string) error { return &FormError{Field: field, Message: msg} }

// ParseTransactionForm builds a transaction from the new-transaction form.
// One-off rows are dated fecha (today when empty); recurring rows are dated
// fechaInicio.
func ParseTransactionForm(form url.Values, userID int64, today time.Time) (core.Transaction, error) {
	t := core.Transaction{
		UserID:      userID,
		Description: sanitizeInput(form.Get(fieldDescripcion)),
		Category:    sanitizeInput(form.Get(fieldCategoria)),
	}

	typ, err := core.ParseTransactionType(form.Get(fieldTipo))
	if err != nil {
		return core.Transaction{}, formErr(fieldTipo, "Tipo inválido: debe ser INGRESO o GASTO")
	}
	t.Type = typ

	amount, err := core.ParseMoney(form.Get(fieldMonto))
	if err != nil || !amount.IsPositive() {
		return core.Transaction{}, formErr(fieldMonto, "Monto inválido")
	}
	t.Amount = amount

	if t.Description == "" {
		return core.Transaction{}, formErr(fieldDescripcion, "La descripción es obligatoria")
	}
	if len(t.Description) > maxDescriptionBytes {
		return core.Transaction{}, formErr(fieldDescripcion, "La descripción es demasiado larga")
	}

	if !isChecked(form, fieldRecurrente) {
		t.Date = core.Day(today)
		if v := strings.TrimSpace(form.Get(fieldFecha)); v != "" {
			if t.Date, err = core.ParseDate(v); err != nil {
				return core.Transaction{}, formErr(fieldFecha, "Fecha inválida")
			}
		}
		return t, nil
	}

	t.Recurring = true
	if t.Periodicity, err = core.ParsePeriodicity(form.Get(fieldPeriodicidad)); err != nil {
		return core.Transaction{}, formErr(fieldPeriodicidad, "Periodicidad inválida")
	}
	t.StartDate = core.Day(today)
	if v := strings.TrimSpace(form.Get(fieldFechaInicio)); v != "" {
		if t.StartDate, err = core.ParseDate(v); err != nil {
			return core.Transaction{}, formErr(fieldFechaInicio, "Fecha de inicio inválida")
		}
	}
	if v := strings.TrimSpace(form.Get(fieldFechaFin)); v != "" {
		if t.EndDate, err = core.ParseDate(v); err != nil {
			return core.Transaction{}, formErr(fieldFechaFin, "Fecha de fin inválida")
		}
		if t.EndDate.Before(t.StartDate) {
			return core.Transaction{}, formErr(fieldFechaFin, "La fecha de fin debe ser posterior a la de inicio")
		}
	}
	t.Date = t.StartDate
	return t, nil
}

// ParseGoalForm builds a savings goal; monto_actual defaults to zero.
func ParseGoalForm(form url.Values, userID int64) (core.Goal, error) {
	g := core.Goal{UserID: userID, Name: sanitizeInput(form.Get(fieldNombre))}
	if g.Name == "" {
		return core.Goal{}, formErr(fieldNombre, "El nombre es obligatorio")
	}

	target, err := core.ParseMoney(form.Get(fieldMontoObjetivo))
	if err != nil || !target.IsPositive() {
		return core.Goal{}, formErr(fieldMontoObjetivo, "El monto objetivo debe ser mayor que cero")
	}
	g.Target = target

	if v := strings.TrimSpace(form.Get(fieldMontoActual)); v != "" {
		current, err := core.ParseMoney(v)
		switch {
		case err == nil:
			g.Current = current
		case isZeroAmount(v):
		default:
			return core.Goal{}, formErr(fieldMontoActual, "El monto actual no puede ser negativo")
		}
	}

	if v := strings.TrimSpace(form.Get(fieldFechaLimite)); v != "" {
		if g.Deadline, err = core.ParseDate(v); err != nil {
			return core.Goal{}, formErr(fieldFechaLimite, "Fecha límite inválida")
		}
	}
	return g, nil
}

// ParseBudgetForm reads the budget amount.
func ParseBudgetForm(form url.Values) (core.Money, error) {
	amount, err := core.ParseMoney(form.Get(fieldMonto))
	if err != nil || !amount.IsPositive() {
		return core.Money{}, formErr(fieldMonto, "Monto inválido")
	}
	return amount, nil
}

func isZeroAmount(s string) bool {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return err == nil && f == 0
}

// ParseID parses a positive path id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// isChecked treats any non-empty value other than a false literal as on,
// matching how browsers submit checkboxes.
func isChecked(form url.Values, field string) bool {
	if _, ok := form[field]; !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(form.Get(field))) {
	case "0", "false", "off", "no":
		return false
	}
	return true
}

// userMessage returns the message a form error carries, or fallback.
func userMessage(err error, fallback string) string {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return fallback
}

// sanitizeInput trims and drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
