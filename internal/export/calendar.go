// Package export renders schedules as iCalendar feeds and the directory as vCards.
package export

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/schedule"
	"github.com/tartampluch/go-rota/internal/shift"
)

// Week is a schedule anchored to the Monday it starts on.
type Week struct {
	Start    time.Time
	Schedule schedule.Normalized
}

// SummaryFunc lets callers inject localized event titles.
type SummaryFunc func(name, shiftText string, inProgress bool) string

// Calendar builds an iCalendar feed with one event per worked day of weeks.
// Closed ranges become confirmed events; open-ended shifts become tentative
// events that start at the recorded time and have no end. Days that are off
// or unparseable are skipped. An empty feed is still a valid VCALENDAR.
func Calendar(name string, weeks []Week, now time.Time, summary SummaryFunc) ([]byte, error) {
	if summary == nil {
		summary = defaultSummary
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, fmt.Sprintf(config.FormatCalName, config.ICalCalName, name))
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, w := range weeks {
		if !w.Schedule.OK {
			continue
		}
		for i, day := range w.Schedule.Canonical().Days {
			date := w.Start.AddDate(0, 0, i)
			event, ok := dayEvent(name, day, date, summary)
			if !ok {
				continue
			}
			event.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, event.Component)
		}
	}

	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Debug(config.MsgCalendarBuilt,
		config.LogKeyComponent, config.CompExport,
		config.LogKeyCount, len(cal.Children),
	)
	return buf.Bytes(), nil
}

func dayEvent(name string, day schedule.Day, date time.Time, summary SummaryFunc) (*ical.Event, bool) {
	if shift.IsOff(day.Shift) {
		return nil, false
	}

	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, uid(name, date))

	if start, ok := shift.ParseOpenEnded(day.Shift, date); ok {
		event.Props.SetText(config.PropSummary, summary(name, day.Shift, true))
		event.Props.SetText(config.PropStatus, config.StatusTentative)
		setTime(event, config.PropDTStart, start)
		return event, true
	}

	start, end, ok := shift.ParseRange(day.Shift, date)
	if !ok || !end.After(start) {
		return nil, false
	}
	event.Props.SetText(config.PropSummary, summary(name, day.Shift, false))
	event.Props.SetText(config.PropStatus, config.StatusConfirmed)
	setTime(event, config.PropDTStart, start)
	setTime(event, config.PropDTEnd, end)
	return event, true
}

func setTime(event *ical.Event, name string, t time.Time) {
	p := ical.NewProp(name)
	p.SetDateTime(t.UTC())
	event.Props.Set(p)
}

// uid is stable per employee and day so calendar clients update events in
// place when a shift changes.
func uid(name string, date time.Time) string {
	day := date.Format(config.DateFormatBasic)
	hash := sha256.Sum256([]byte(fmt.Sprintf(config.FormatHashInput, name, day, config.ICalDomain)))
	return fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), day, config.ICalDomain)
}

func defaultSummary(name, shiftText string, _ bool) string {
	return fmt.Sprintf(config.FallbackSummary, name, shiftText)
}
