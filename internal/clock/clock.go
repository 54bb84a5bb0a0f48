// Package clock provides the injectable time source and daily valid-hours
// window arithmetic the scheduler uses to compute due times (spec §4.1).
package clock

import "time"

// Clock is an injectable time source, following the same shape as the
// teacher's agent.Clock port so tests can swap in a fixed instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// System is the real wall clock, always in UTC so window arithmetic is
// deterministic regardless of host timezone configuration.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Window is a task's daily valid-hours range, inclusive of both ends at the
// hour granularity: executions may start any time during [StartHour,
// EndHour]. A nil *Window means "no restriction". Windows are same-day only;
// StartHour must be < EndHour.
type Window struct {
	StartHour int
	EndHour   int
}

// Valid reports whether the window's bounds are sane (spec §3: 0 ≤ start <
// end ≤ 23).
func (w *Window) Valid() bool {
	if w == nil {
		return true
	}
	return w.StartHour >= 0 && w.EndHour <= 23 && w.StartHour < w.EndHour
}

// InWindow reports whether t falls inside w. Inclusive at both ends per the
// design decision recorded in DESIGN.md (Open Question 9a): hour == EndHour
// counts as still inside the window, and it is the *next window start*
// computation that treats anything past EndHour:59:59 as out of window.
func InWindow(t time.Time, w *Window) bool {
	if w == nil {
		return true
	}
	h := t.Hour()
	return h >= w.StartHour && h <= w.EndHour
}

// NextWindowStart returns the next instant, at or after t, that begins a
// valid window for w:
//
//   - w == nil: returns t unchanged (no restriction to snap into).
//   - hour(t) < StartHour: StartHour:00:00 on the same local day as t.
//   - otherwise (hour(t) is inside or past the window): StartHour:00:00 on
//     the following day.
//
// Per spec §4.1, windows never wrap past midnight; callers must not pass an
// inverted range.
func NextWindowStart(t time.Time, w *Window) time.Time {
	if w == nil {
		return t
	}
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), w.StartHour, 0, 0, 0, t.Location())
	if t.Hour() < w.StartHour {
		return dayStart
	}
	return dayStart.AddDate(0, 0, 1)
}
