// Package timeutil provides calendar helpers evaluated in a school's local
// time zone. Timetable filters compare whole days, so every helper takes the
// location explicitly instead of relying on time.Local.
package timeutil

import (
	"fmt"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Clock
// ═══════════════════════════════════════════════════════════════════════════

// Clock returns the current time. Handlers take a Clock so tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// ═══════════════════════════════════════════════════════════════════════════
// Locations
// ═══════════════════════════════════════════════════════════════════════════

// LoadLocation resolves an IANA zone name. An empty name means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// ═══════════════════════════════════════════════════════════════════════════
// Day arithmetic
// ═══════════════════════════════════════════════════════════════════════════

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(orUTC(loc))
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, lt.Location())
}

// EndOfDay returns the last nanosecond of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey encodes t's calendar day in loc as yyyymmdd, which orders the
// same way the days do.
func DayKey(t time.Time, loc *time.Location) int {
	lt := t.In(orUTC(loc))
	return lt.Year()*10000 + int(lt.Month())*100 + lt.Day()
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayKey(a, loc) == DayKey(b, loc)
}

// DayOnOrAfter reports whether t's day is not earlier than ref's day.
func DayOnOrAfter(t, ref time.Time, loc *time.Location) bool {
	return DayKey(t, loc) >= DayKey(ref, loc)
}

// DayOnOrBefore reports whether t's day is not later than ref's day.
func DayOnOrBefore(t, ref time.Time, loc *time.Location) bool {
	return DayKey(t, loc) <= DayKey(ref, loc)
}

// WeekdayLabel returns the English weekday name of t in loc, e.g. "Monday".
func WeekdayLabel(t time.Time, loc *time.Location) string {
	return t.In(orUTC(loc)).Weekday().String()
}

// ═══════════════════════════════════════════════════════════════════════════
// Parsing & Formatting
// ═══════════════════════════════════════════════════════════════════════════

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
	ClockLayout    = "15:04"
)

// ParseDate parses a yyyy-mm-dd value as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, orUTC(loc))
}

// ParseDateTime parses a "yyyy-mm-dd hh:mm" value in loc. RFC 3339 input
// is accepted too.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation(DateTimeLayout, value, orUTC(loc))
}

// FormatClock renders the wall-clock time of t in loc as hh:mm.
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(orUTC(loc)).Format(ClockLayout)
}

// FormatDate renders t's calendar day in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(orUTC(loc)).Format(DateLayout)
}
