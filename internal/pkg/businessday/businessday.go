package businessday

import (
	"fmt"
	"time"
)

// DefaultCutoffHour is used when a store has no cutoff configured or the
// configured value is outside 0-23.
const DefaultCutoffHour = 6

const DateLayout = "2006-01-02"

// Calculator maps checkout timestamps to the operating day they belong to.
// A store's day runs from its cutoff hour until the next day's cutoff, so a
// checkout at 01:30 with a 06:00 cutoff belongs to the previous date.
type Calculator struct {
	loc *time.Location
}

func NewCalculator(loc *time.Location) Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return Calculator{loc: loc}
}

// Location returns the zone business days are evaluated in.
func (c Calculator) Location() *time.Location {
	return c.loc
}

// Date returns the business day label (YYYY-MM-DD) for ts.
func (c Calculator) Date(ts time.Time, cutoffHour int) string {
	cutoffHour = NormalizeCutoff(cutoffHour)
	local := ts.In(c.loc)
	if local.Hour() < cutoffHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(DateLayout)
}

// Today is Date applied to now.
func (c Calculator) Today(now time.Time, cutoffHour int) string {
	return c.Date(now, cutoffHour)
}

// Range returns the [start, end] timestamps covered by a business day.
// end is one millisecond before the next day's cutoff.
func (c Calculator) Range(date string, cutoffHour int) (time.Time, time.Time, error) {
	cutoffHour = NormalizeCutoff(cutoffHour)
	d, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid business date %q: %w", date, err)
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), cutoffHour, 0, 0, 0, c.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end, nil
}

// MonthRange returns the first and last calendar dates of the month containing date.
func MonthRange(date string) (string, string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout), nil
}

// PeriodRange returns the first and last dates of a payroll month.
func PeriodRange(year, month int) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}

// DatesBetween lists every date from `from` to `to` inclusive.
func DatesBetween(from, to string) ([]string, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", from, err)
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", to, err)
	}
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}

func NormalizeCutoff(hour int) int {
	if hour < 0 || hour > 23 {
		return DefaultCutoffHour
	}
	return hour
}
