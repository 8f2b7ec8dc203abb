// Package schedule holds the time guards and the daemon that triggers jobs.
package schedule

import (
	"fmt"
	"time"
)

// Clock is a time of day.
type Clock struct {
	Hour, Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Window is an inclusive time-of-day range evaluated in the time's own location.
type Window struct {
	Start, End Clock
}

// ParseWindow parses two "HH:MM" bounds.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e}, nil
}

// Contains reports whether t's wall clock, to the minute, lies within the window.
// A window whose end is before its start wraps past midnight.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	s, e := w.Start.minutes(), w.End.minutes()
	if s <= e {
		return m >= s && m <= e
	}
	return m >= s || m <= e
}

func (w Window) String() string { return w.Start.String() + "-" + w.End.String() }

// IsWeekday reports Monday to Friday in t's location.
func IsWeekday(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}
