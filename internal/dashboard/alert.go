package dashboard

import (
	"time"

	"ecofinance/internal/core"
)

// AlertHideAfter is how long the negative-balance alert stays on screen.
const AlertHideAfter = 5000 * time.Millisecond

// Alert is the negative-balance banner state for one render.
type Alert struct {
	Visible   bool
	Balance   string
	HideAfter time.Duration
}

// CheckNegativeBalance shows the alert when balance is below zero. A zero
// hideAfter uses AlertHideAfter.
func CheckNegativeBalance(balance core.Money, hideAfter time.Duration) Alert {
	if hideAfter <= 0 {
		hideAfter = AlertHideAfter
	}
	return Alert{
		Visible:   balance.IsNegative(),
		Balance:   core.FormatCLP(balance),
		HideAfter: hideAfter,
	}
}

// VisibleAt reports whether the alert is still on screen elapsed after the
// page rendered.
func (a Alert) VisibleAt(elapsed time.Duration) bool {
	return a.Visible && elapsed < a.HideAfter
}

// HideAfterMillis feeds the browser timer.
func (a Alert) HideAfterMillis() int64 { return a.HideAfter.Milliseconds() }
