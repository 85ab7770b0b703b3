package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day key every record is filed under.
const DateLayout = "2006-01-02"

// MonthLayout identifies a calendar month, e.g. "2024-05".
const MonthLayout = "2006-01"

// ParseDate parses a YYYY-MM-DD key as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders t's calendar day in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidDate reports whether s is a well-formed calendar day key.
func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// WeekStart returns midnight of the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDate(0, 0, -offset)
}

// DaysBetween lists every day key from `from` to `to` inclusive.
func DaysBetween(from, to time.Time) []string {
	var out []string
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for d := start; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, FormatDate(d))
	}
	return out
}

// ParseMonth parses "YYYY-MM" and returns the first and last day of it.
func ParseMonth(s string) (time.Time, time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, want YYYY-MM", s)
	}
	return t, t.AddDate(0, 1, -1), nil
}
