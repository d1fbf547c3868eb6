package engine

import (
	"context"
	"time"

	"github.com/tartampluch/go-rota/internal/batch"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/schedule"
)

// Week is one week of an employee's history.
type Week struct {
	Offset   int
	Label    string
	Schedule schedule.Normalized
}

// History returns the current week and the weeks-1 previous ones, newest
// first. Weeks the backend cannot provide are not ok but still labelled.
func (c *Client) History(ctx context.Context, email string, weeks int) ([]Week, error) {
	if weeks < 1 {
		weeks = config.DefaultHistoryWeeks
	}
	offsets := make([]int, weeks)
	for i := range offsets {
		offsets[i] = i
	}

	now := c.clock.Now()
	results := batch.Run(ctx, offsets, c.limits.HistoryConcurrency, func(ctx context.Context, off, _ int) (schedule.Normalized, error) {
		return c.GetScheduleErr(ctx, email, off)
	})

	out := make([]Week, len(offsets))
	for i, off := range offsets {
		n := results[i].Value
		if results[i].Err != nil {
			n = schedule.NotOK()
		}
		label := n.WeekLabel
		if !n.OK || label == "" {
			label = WeekLabel(now, off)
		}
		out[i] = Week{Offset: off, Label: label, Schedule: n}
	}

	if err := ctx.Err(); err != nil {
		return out, cancelled(err)
	}
	return out, nil
}

// WeekStart returns midnight of the Monday of the week offset weeks before now.
func WeekStart(now time.Time, offset int) time.Time {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	back := (int(now.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -back-7*offset)
}

// WeekLabel renders the Monday to Sunday span of a week, e.g. "Nov 3 – Nov 9".
func WeekLabel(now time.Time, offset int) string {
	mon := WeekStart(now, offset)
	sun := mon.AddDate(0, 0, 6)
	return mon.Format(config.WeekLabelDateFormat) + config.WeekLabelSeparator + sun.Format(config.WeekLabelDateFormat)
}
