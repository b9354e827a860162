package core

import (
	"strings"
	"time"
)

const (
	Daily      Periodicity = "diario"
	Weekly     Periodicity = "semanal"
	Fortnight  Periodicity = "quincenal"
	Monthly    Periodicity = "mensual"
	HalfYearly Periodicity = "semestral"
	Yearly     Periodicity = "anual"
)

// DefaultHorizonMonths bounds open ended series.
const DefaultHorizonMonths = 12

const (
	maxDailyOccurrences = 90
	maxOccurrences      = 1000
)

type Periodicity string

// increment is one step of a series. Month steps clamp to the last day of
// the target month, so a series started on Jan 31 lands on Feb 28/29.
type increment struct {
	days   int
	months int
}

var periodicityIncrements = map[Periodicity]increment{
	Daily:      {days: 1},
	Weekly:     {days: 7},
	Fortnight:  {days: 14},
	Monthly:    {months: 1},
	HalfYearly: {months: 6},
	Yearly:     {months: 12},
}

// Periodicities lists the valid values in display order.
func Periodicities() []Periodicity {
	return []Periodicity{Daily, Weekly, Fortnight, Monthly, HalfYearly, Yearly}
}

func ParsePeriodicity(s string) (Periodicity, error) {
	p := Periodicity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodicityIncrements[p]; !ok {
		return "", ErrInvalidPeriodicity
	}
	return p, nil
}

func (p Periodicity) Label() string {
	s := string(p)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Occurrence returns the n-th date of a series starting at start
// (n = 0 is start itself).
func (p Periodicity) Occurrence(start time.Time, n int) (time.Time, bool) {
	inc, ok := periodicityIncrements[p]
	if !ok {
		return time.Time{}, false
	}
	start = Day(start)
	if inc.months == 0 {
		return start.AddDate(0, 0, inc.days*n), true
	}
	return addMonthsClamped(start, inc.months*n), true
}

func (p Periodicity) maxOccurrences() int {
	if p == Daily {
		return maxDailyOccurrences
	}
	return maxOccurrences
}

func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// ScheduleDates returns the dates to generate for a recurring base
// transaction: from StartDate plus one step up to EndDate (or StartDate plus
// DefaultHorizonMonths), skipping dates in existing. The schedule holds at
// most 90 occurrences for daily series and 1000 for the others, so feeding
// the generated dates back in yields nothing.
func ScheduleDates(base Transaction, existing []time.Time) []time.Time {
	if !base.Recurring || base.StartDate.IsZero() {
		return nil
	}
	if _, ok := periodicityIncrements[base.Periodicity]; !ok {
		return nil
	}

	limit := Day(base.EndDate)
	if base.EndDate.IsZero() {
		limit = addMonthsClamped(Day(base.StartDate), DefaultHorizonMonths)
	}

	seen := make(map[time.Time]struct{}, len(existing)+1)
	seen[Day(base.Date)] = struct{}{}
	for _, d := range existing {
		seen[Day(d)] = struct{}{}
	}

	var out []time.Time
	maxRows := base.Periodicity.maxOccurrences()
	for n := 1; n <= maxRows; n++ {
		next, _ := base.Periodicity.Occurrence(base.StartDate, n)
		if next.After(limit) {
			break
		}
		if _, dup := seen[next]; dup {
			continue
		}
		seen[next] = struct{}{}
		out = append(out, next)
	}
	return out
}

// Occurrences builds the generated transactions for base.
func Occurrences(base Transaction, existing []time.Time) []Transaction {
	dates := ScheduleDates(base, existing)
	out := make([]Transaction, 0, len(dates))
	for _, d := range dates {
		t := base
		t.ID = 0
		t.Date = d
		out = append(out, t)
	}
	return out
}
