package service

import (
	"fmt"
	"strings"
	"time"

	"anoa.com/coinexchange/pkg/apperror"
)

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Period is a ranking window. Start is inclusive and End exclusive.
type Period struct {
	Key   string
	Kind  string
	Start time.Time
	End   time.Time
}

func WeeklyKey(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%s:%04d-W%02d", PeriodWeekly, year, week)
}

func MonthlyKey(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%s:%04d-%02d", PeriodMonthly, t.Year(), int(t.Month()))
}

// PeriodKeys returns every period a point accrued at t counts towards.
func PeriodKeys(t time.Time, loc *time.Location) []string {
	return []string{WeeklyKey(t, loc), MonthlyKey(t, loc)}
}

// PreviousPeriodKeys returns the week and month that ended most recently before t.
func PreviousPeriodKeys(t time.Time, loc *time.Location) []string {
	t = t.In(loc)
	lastWeek := t.AddDate(0, 0, -7)
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return []string{WeeklyKey(lastWeek, loc), MonthlyKey(firstOfMonth.AddDate(0, 0, -1), loc)}
}

// ParsePeriod accepts only canonical keys such as weekly:2026-W07 or monthly:2026-02.
func ParsePeriod(key string, loc *time.Location) (Period, error) {
	p, err := parsePeriod(key, loc)
	if err != nil || p.Key != key {
		return Period{}, apperror.ErrInvalidPeriod
	}
	return p, nil
}

func parsePeriod(key string, loc *time.Location) (Period, error) {
	kind, rest, ok := strings.Cut(key, ":")
	if !ok {
		return Period{}, apperror.ErrInvalidPeriod
	}

	switch kind {
	case PeriodWeekly:
		var year, week int
		if n, err := fmt.Sscanf(rest, "%04d-W%02d", &year, &week); err != nil || n != 2 || week < 1 || week > 53 {
			return Period{}, apperror.ErrInvalidPeriod
		}
		start := isoWeekStart(year, week, loc)
		if y, w := start.ISOWeek(); y != year || w != week {
			return Period{}, apperror.ErrInvalidPeriod
		}
		return Period{Key: WeeklyKey(start, loc), Kind: kind, Start: start, End: start.AddDate(0, 0, 7)}, nil

	case PeriodMonthly:
		var year, month int
		if n, err := fmt.Sscanf(rest, "%04d-%02d", &year, &month); err != nil || n != 2 || month < 1 || month > 12 {
			return Period{}, apperror.ErrInvalidPeriod
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		return Period{Key: MonthlyKey(start, loc), Kind: kind, Start: start, End: start.AddDate(0, 1, 0)}, nil
	}

	return Period{}, apperror.ErrInvalidPeriod
}

// isoWeekStart returns the Monday of ISO week 1..53 of year. January 4th is always in week 1.
func isoWeekStart(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7)
}
