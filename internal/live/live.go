// Package live computes how long today's shift has run.
package live

import (
	"time"

	"github.com/tartampluch/go-rota/internal/schedule"
	"github.com/tartampluch/go-rota/internal/shift"
)

// State of today's shift.
type State string

const (
	StateNone       State = "NONE"
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
)

// Result is the live view of today's shift. Hours is elapsed time for an
// in-progress shift and the static duration for a completed one.
type Result struct {
	State State
	Hours float64
}

// Compute inspects the day of n matching todayKey ("mon".."sun").
//
// An open-ended shift ("9:30.") is in progress with now minus start, clamped
// at zero. A closed range is completed with its static duration, under the
// same midday convention as shift.ParseHours. Anything else is StateNone.
// Callers refresh in-progress results by calling Compute again.
func Compute(n schedule.Normalized, now time.Time, todayKey string) Result {
	day, ok := n.Today(todayKey)
	if !ok || shift.IsOff(day.Shift) {
		return Result{State: StateNone}
	}

	if shift.IsOpenEnded(day.Shift) {
		start, ok := shift.ParseOpenEnded(day.Shift, now)
		if !ok {
			return Result{State: StateNone}
		}
		return Result{State: StateInProgress, Hours: max(0, now.Sub(start).Hours())}
	}

	start, end, ok := shift.ParseRange(day.Shift, now)
	if !ok {
		return Result{State: StateNone}
	}
	return Result{State: StateCompleted, Hours: max(0, end.Sub(start).Hours())}
}

// Projected adds the hours of an in-progress shift to a weekly total.
func (r Result) Projected(total float64) float64 {
	if r.State == StateInProgress {
		return total + r.Hours
	}
	return total
}
