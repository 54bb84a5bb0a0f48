package dispatcher

import (
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
)

// ComputeNextExecution implements the scheduling rules of spec §4.9: given
// the task's cadence fields and the current instant, returns the next due
// time, or nil if the task's end date has already been reached. It is used
// both by the Scheduler core (C9) when advancing a task after a run, and by
// the Dispatcher store (C3) to recompute any stale next_execution_time it
// finds on load.
func ComputeNextExecution(now time.Time, last *time.Time, intervalSeconds int, w *clock.Window, endDate time.Time) *time.Time {
	var base time.Time
	if last == nil {
		base = baseForFreshStart(now, w)
	} else {
		base = last.Add(time.Duration(intervalSeconds) * time.Second)
		if !base.After(now) {
			base = baseForFreshStart(now, w)
			if !base.After(now) {
				base = now.Add(time.Duration(intervalSeconds) * time.Second)
				if w != nil && !clock.InWindow(base, w) {
					base = clock.NextWindowStart(base, w)
				}
			}
		}
	}

	if !endDate.IsZero() && !dateBefore(base, endDate) {
		return nil
	}

	if clock.InWindow(base, w) {
		return &base
	}
	snapped := clock.NextWindowStart(base, w)
	return &snapped
}

// baseForFreshStart implements rule 1: base = now if in window, else the
// next window start.
func baseForFreshStart(now time.Time, w *clock.Window) time.Time {
	if clock.InWindow(now, w) {
		return now
	}
	return clock.NextWindowStart(now, w)
}

// dateBefore reports whether t's calendar date is strictly before end's
// calendar date, comparing only the date component as spec §4.9 rule 3
// requires ("the date component of base ≥ end").
func dateBefore(t, end time.Time) bool {
	ty, tm, td := t.Date()
	ey, em, ed := end.Date()
	if ty != ey {
		return ty < ey
	}
	if tm != em {
		return tm < em
	}
	return td < ed
}
