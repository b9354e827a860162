package dashboard

import (
	"net/url"

	"ecofinance/internal/core"
)

// PeriodParam is the query parameter carrying the selected month.
const PeriodParam = "mes_anio"

type PeriodOption struct {
	Value    string
	Label    string
	URL      string
	Selected bool
}

// PeriodURL returns current with mes_anio set to value; every other query
// parameter is kept.
func PeriodURL(current *url.URL, value string) string {
	u := url.URL{Path: "/"}
	if current != nil {
		u = *current
	}
	q := u.Query()
	q.Set(PeriodParam, value)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// PeriodFromQuery reads mes_anio, falling back to def when it is absent or
// malformed.
func PeriodFromQuery(q url.Values, def core.Period) core.Period {
	if p, err := core.ParsePeriod(q.Get(PeriodParam)); err == nil {
		return p
	}
	return def
}

// PeriodOptions lists the n months ending at latest, newest first, each
// with the URL the selector navigates to. selected is always present in the
// list, appended when it falls outside the window.
func PeriodOptions(current *url.URL, latest, selected core.Period, n int) []PeriodOption {
	periods := core.RecentPeriods(latest, n)
	found := false
	out := make([]PeriodOption, 0, len(periods)+1)
	for i := len(periods) - 1; i >= 0; i-- {
		p := periods[i]
		if p == selected {
			found = true
		}
		out = append(out, periodOption(current, p, selected))
	}
	if !found {
		out = append(out, periodOption(current, selected, selected))
	}
	return out
}

func periodOption(current *url.URL, p, selected core.Period) PeriodOption {
	return PeriodOption{
		Value:    p.String(),
		Label:    p.Label(),
		URL:      PeriodURL(current, p.String()),
		Selected: p == selected,
	}
}
