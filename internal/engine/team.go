package engine

import (
	"context"
	"time"

	"github.com/tartampluch/go-rota/internal/batch"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/identity"
	"github.com/tartampluch/go-rota/internal/live"
	"github.com/tartampluch/go-rota/internal/schedule"
	"github.com/tartampluch/go-rota/internal/shift"
)

// Section names.
const (
	SectionBack  = "back"
	SectionFront = "front"
	SectionCash  = "cash"
)

// Member is one employee in the team overview.
type Member struct {
	Record   identity.Record
	Schedule schedule.Normalized
	Today    schedule.Day
	Status   shift.Status
	Live     live.Result
}

// Stats counts today's shifts in a section.
type Stats struct {
	Scheduled int
	On        int
	Done      int
}

// Section is one team group with its members in directory order.
type Section struct {
	Name    string
	Members []Member
	Stats   Stats
}

// TeamOverview loads the current week of every employee in groups, at most
// TeamConcurrency at a time, and classifies today's shift of each.
func (c *Client) TeamOverview(ctx context.Context, groups identity.Groups) ([]Section, error) {
	named := []struct {
		name    string
		records []identity.Record
	}{
		{SectionBack, groups.Back},
		{SectionFront, groups.Front},
		{SectionCash, groups.Cash},
	}

	var all []identity.Record
	for _, g := range named {
		all = append(all, g.records...)
	}

	now := c.clock.Now()
	todayKey := shift.DayKey(now)
	results := batch.Run(ctx, all, c.limits.TeamConcurrency, func(ctx context.Context, rec identity.Record, _ int) (Member, error) {
		n, err := c.GetScheduleErr(ctx, rec.Email, 0)
		if err != nil {
			return Member{Record: rec, Schedule: n}, err
		}
		return member(rec, n, now, todayKey), nil
	})

	sections := make([]Section, 0, len(named))
	i := 0
	for _, g := range named {
		s := Section{Name: g.name, Members: make([]Member, 0, len(g.records))}
		for range g.records {
			m := results[i].Value
			if results[i].Err != nil {
				m = member(all[i], schedule.NotOK(), now, todayKey)
			}
			s.Members = append(s.Members, m)
			s.Stats.add(m)
			i++
		}
		sections = append(sections, s)
	}

	if err := ctx.Err(); err != nil {
		return sections, cancelled(err)
	}
	return sections, nil
}

func member(rec identity.Record, n schedule.Normalized, now time.Time, todayKey string) Member {
	m := Member{Record: rec, Schedule: n, Status: shift.StatusNone, Live: live.Result{State: live.StateNone}}
	if day, ok := n.Today(todayKey); ok {
		m.Today = day
		m.Status = shift.Classify(day.Shift, now)
		m.Live = live.Compute(n, now, todayKey)
	}
	return m
}

func (s *Stats) add(m Member) {
	if m.Status == shift.StatusNone {
		return
	}
	s.Scheduled++
	switch m.Status {
	case shift.StatusOn:
		s.On++
	case shift.StatusDone:
		s.Done++
	}
}

// SendOutcome is the result of one employee in SendForDay.
type SendOutcome struct {
	Email string
	// Skipped is true when the employee has no shift on the day sent.
	Skipped bool
	Result  MutationResult
	Err     error
}

// SendForDay sends today's or tomorrow's shift to every employee in emails
// who works that day, at most SendConcurrency at a time.
func (c *Client) SendForDay(ctx context.Context, action, actor string, emails []string) ([]SendOutcome, error) {
	if action != config.ActionSendToday && action != config.ActionSendTomorrow {
		return nil, ErrUnknownAction
	}

	day := c.clock.Now()
	offset := 0
	if action == config.ActionSendTomorrow {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Monday {
			// Tomorrow is in next week.
			offset = -1
		}
	}
	key := shift.DayKey(day)

	results := batch.Run(ctx, emails, c.limits.SendConcurrency, func(ctx context.Context, email string, _ int) (SendOutcome, error) {
		n, err := c.GetScheduleErr(ctx, email, offset)
		if err != nil {
			return SendOutcome{Email: email, Err: err}, err
		}
		if d, ok := n.Today(key); !ok || shift.IsOff(d.Shift) {
			return SendOutcome{Email: email, Skipped: true}, nil
		}
		res, err := c.SendShift(ctx, SendRequest{TargetEmail: email, Action: action, Actor: actor})
		return SendOutcome{Email: email, Result: res, Err: err}, err
	})

	out := make([]SendOutcome, len(emails))
	for i, r := range results {
		out[i] = r.Value
		out[i].Email = emails[i]
		if r.Err != nil {
			out[i].Err = r.Err
		}
	}

	if err := ctx.Err(); err != nil {
		return out, cancelled(err)
	}
	return out, nil
}

// DayChange is one edited day for UpdateMany.
type DayChange struct {
	Day   string
	Shift string
}

// UpdateMany applies changes one after another and reports how many were
// saved. A failed change does not prevent the next ones.
func (c *Client) UpdateMany(ctx context.Context, email, actor string, changes []DayChange) (int, []MutationResult, error) {
	saved := 0
	results := make([]MutationResult, 0, len(changes))
	for _, ch := range changes {
		res, err := c.UpdateShift(ctx, UpdateRequest{TargetEmail: email, Day: ch.Day, NewShift: ch.Shift, Actor: actor})
		if err != nil {
			return saved, results, err
		}
		if res.OK {
			saved++
		}
		results = append(results, res)
	}
	return saved, results, nil
}
