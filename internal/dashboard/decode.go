// Package dashboard turns the embedded dashboard payloads into the widgets
// the page shows: the category donut and its legend, the monthly chart, the
// negative-balance alert, the period selector and the recommendation panel.
//
// Every payload decode is fallible and returns a Decoded value; callers
// render Unavailable for a failed widget instead of aborting the page.
package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"ecofinance/internal/core"
)

// DOM ids of the embedded payloads.
const (
	PayloadBalance    = "saldo-total-data"
	PayloadCategories = "gastos-categorias-data"
	PayloadMonthly    = "gastos-mes-data"
)

// Unavailable is shown in place of a widget whose payload failed to decode.
const Unavailable = "Datos no disponibles"

// ErrPayloadMissing marks an absent payload; the widget is skipped silently.
var ErrPayloadMissing = errors.New("payload missing")

// DecodeError names the payload that could not be decoded.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Payload, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoded is either a value or the reason it is not available.
type Decoded[T any] struct {
	Value T
	Err   error
}

func (d Decoded[T]) OK() bool { return d.Err == nil }

// Missing reports whether the payload was absent rather than malformed.
func (d Decoded[T]) Missing() bool { return errors.Is(d.Err, ErrPayloadMissing) }

// Failed reports a malformed payload.
func (d Decoded[T]) Failed() bool { return d.Err != nil && !d.Missing() }

// CategoryAmount is one entry of the category payload. Monto is accepted as
// a JSON number or a numeric string.
type CategoryAmount struct {
	Categoria string     `json:"categoria"`
	Monto     core.Money `json:"monto"`
}

// MonthlySeries is the expenses-per-month payload; Labels and Values are
// parallel.
type MonthlySeries struct {
	Labels []string     `json:"labels"`
	Values []core.Money `json:"values"`
}

func (s MonthlySeries) Len() int { return len(s.Labels) }

func decode[T any](payload string, raw []byte, check func(T) error) Decoded[T] {
	var out Decoded[T]
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		out.Err = &DecodeError{Payload: payload, Err: ErrPayloadMissing}
		return out
	}
	if err := json.Unmarshal(raw, &out.Value); err != nil {
		out.Err = &DecodeError{Payload: payload, Err: err}
		return out
	}
	if check != nil {
		if err := check(out.Value); err != nil {
			var zero T
			out.Value = zero
			out.Err = &DecodeError{Payload: payload, Err: err}
		}
	}
	return out
}

// DecodeBalance decodes the total balance (a number or numeric string).
func DecodeBalance(raw []byte) Decoded[core.Money] {
	return decode[core.Money](PayloadBalance, raw, nil)
}

// DecodeCategories decodes the category breakdown array.
func DecodeCategories(raw []byte) Decoded[[]CategoryAmount] {
	return decode(PayloadCategories, raw, func(v []CategoryAmount) error {
		if v == nil {
			return errors.New("expected an array")
		}
		return nil
	})
}

// DecodeMonthlySeries decodes the monthly series; the label and value
// counts must match.
func DecodeMonthlySeries(raw []byte) Decoded[MonthlySeries] {
	return decode(PayloadMonthly, raw, func(v MonthlySeries) error {
		if len(v.Labels) != len(v.Values) {
			return fmt.Errorf("%d labels for %d values", len(v.Labels), len(v.Values))
		}
		return nil
	})
}
