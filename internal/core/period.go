package core

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar month, carried in URLs as mes_anio=YYYY-MM.
type Period struct {
	Year  int
	Month time.Month
}

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodOf(t), nil
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Label is the Spanish display name, e.g. "Marzo 2024".
func (p Period) Label() string {
	if p.Month < time.January || p.Month > time.December {
		return p.String()
	}
	return fmt.Sprintf("%s %d", monthNames[p.Month-1], p.Year)
}

// ShortLabel is used on chart axes, e.g. "Mar 2024".
func (p Period) ShortLabel() string {
	if p.Month < time.January || p.Month > time.December {
		return p.String()
	}
	return fmt.Sprintf("%s %d", monthNames[p.Month-1][:3], p.Year)
}

// Start is the first day of the month.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the month.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

func (p Period) Add(months int) Period {
	return PeriodOf(p.Start().AddDate(0, months, 0))
}

func (p Period) Before(o Period) bool {
	return p.Year < o.Year || (p.Year == o.Year && p.Month < o.Month)
}

// RecentPeriods returns the n months ending at end, oldest first.
func RecentPeriods(end Period, n int) []Period {
	if n <= 0 {
		return nil
	}
	out := make([]Period, n)
	for i := 0; i < n; i++ {
		out[i] = end.Add(i - n + 1)
	}
	return out
}
