package core

import (
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether the day of t lies inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(r.From) && !d.After(r.To)
}

// MonthStart returns the first day of t's month at midnight UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first and last day of the month containing t.
func MonthBounds(t time.Time) (first, last time.Time) {
	first = MonthStart(t)
	last = first.AddDate(0, 1, -1)
	return first, last
}

func MonthRange(t time.Time) DateRange {
	first, last := MonthBounds(t)
	return DateRange{From: first, To: last}
}

// PreviousMonth returns the first day of the month before t.
func PreviousMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, -1, 0)
}

// DateOf drops the clock part of t, keeping its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// ParseMonth accepts YYYY-MM or YYYY-MM-DD and returns the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(MonthLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return MonthStart(t), nil
	}
	return time.Time{}, ErrInvalidMonth
}

// OrCurrentMonth returns MonthStart(month), or the current month when month is zero.
func OrCurrentMonth(month, now time.Time) time.Time {
	if month.IsZero() {
		return MonthStart(now)
	}
	return MonthStart(month)
}
