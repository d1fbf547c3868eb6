// Package schedule reconciles the payload shapes the backend uses for a week
// of shifts into one canonical model.
package schedule

import (
	"encoding/json"
	"strings"

	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/shift"
)

// Day is one weekday of a schedule.
type Day struct {
	Name  string  `json:"name"`
	Shift string  `json:"shift"`
	Hours float64 `json:"hours"`
}

// Normalized is a week of shifts whatever shape the backend returned.
// OK is true iff at least one day was extracted.
type Normalized struct {
	OK        bool    `json:"ok"`
	Days      []Day   `json:"days"`
	Total     float64 `json:"total"`
	RowAlias  string  `json:"rowAlias,omitempty"`
	WeekLabel string  `json:"weekLabel,omitempty"`

	// Extra holds the days Canonical could not place on a weekday.
	Extra []Day `json:"extra,omitempty"`

	// Raw is the decoded payload, kept for contact columns such as rowPhone.
	Raw map[string]any `json:"-"`
}

// NotOK is the empty, not-ok schedule.
func NotOK() Normalized {
	return Normalized{Days: []Day{}}
}

// flatKeys are the weekday keys of the flat payload shape, in reading order.
var flatKeys = []string{
	"mon", "tue", "wed", "thu", "fri", "sat", "sun",
	"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun",
}

// Normalize converts a decoded payload into a Normalized schedule. Days are
// read from the first list found among days, week.days, schedule and rows,
// else from flat weekday keys. Missing or unexpected data yields a not-ok
// result, never an error.
func Normalize(raw map[string]any) Normalized {
	if raw == nil {
		return NotOK()
	}

	entries := dayEntries(raw)
	days := make([]Day, 0, len(entries))
	sum := 0.0
	for _, e := range entries {
		d := decodeDay(e)
		sum += d.Hours
		days = append(days, d)
	}

	total := sum
	if t, ok := raw["total"].(float64); ok {
		total = t
	}

	return Normalized{
		OK:        len(days) > 0,
		Days:      days,
		Total:     total,
		RowAlias:  Field(raw, "rowAlias", "alias"),
		WeekLabel: Field(raw, "weekLabel", "label"),
		Raw:       raw,
	}
}

// Decode parses a JSON body and normalizes it. A top-level array is read as rows.
func Decode(body []byte) Normalized {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return NotOK()
	}
	switch x := v.(type) {
	case map[string]any:
		return Normalize(x)
	case []any:
		return Normalize(map[string]any{"rows": x})
	default:
		return NotOK()
	}
}

func dayEntries(raw map[string]any) []any {
	if l, ok := raw["days"].([]any); ok {
		return l
	}
	if week, ok := raw["week"].(map[string]any); ok {
		if l, ok := week["days"].([]any); ok {
			return l
		}
	}
	for _, k := range []string{"schedule", "rows"} {
		if l, ok := raw[k].([]any); ok {
			return l
		}
	}

	var out []any
	for _, k := range flatKeys {
		if v, ok := raw[k]; ok {
			out = append(out, map[string]any{"name": k, "shift": v})
		}
	}
	return out
}

func decodeDay(e any) Day {
	var d Day
	switch x := e.(type) {
	case map[string]any:
		d.Name = Field(x, "name", "day")
		d.Shift = Field(x, "shift", "text")
		if h, ok := number(x["hours"]); ok && h > 0 {
			d.Hours = h
		}
	default:
		d.Shift = text(x)
	}

	if d.Shift == "" {
		d.Shift = config.DefaultEmptyShift
	}
	if d.Hours == 0 {
		d.Hours = shift.ParseHours(d.Shift)
	}
	return d
}

// Today returns the day whose name maps to key ("mon".."sun", or any name
// DayFix understands).
func (n Normalized) Today(key string) (Day, bool) {
	want := shift.DayFix(key)
	for _, d := range n.Days {
		if d.Name != "" && strings.EqualFold(shift.DayFix(d.Name), want) {
			return d, true
		}
	}
	return Day{}, false
}

// Canonical returns a copy with exactly seven days in Mon..Sun order.
// Days absent from the source are filled with an empty shift. When a weekday
// appears twice the first occurrence wins and the other goes to Extra.
// When no day carries a recognised name, days are placed by position
// starting on Monday.
func (n Normalized) Canonical() Normalized {
	named := false
	for _, d := range n.Days {
		if weekday(d.Name) >= 0 {
			named = true
			break
		}
	}

	slots := make([]*Day, len(shift.Weekdays))
	extra := append([]Day(nil), n.Extra...)
	for i, d := range n.Days {
		idx := i
		if named {
			idx = weekday(d.Name)
		}
		if idx < 0 || idx >= len(slots) || slots[idx] != nil {
			extra = append(extra, d)
			continue
		}
		slots[idx] = &d
	}

	out := n
	out.Extra = extra
	out.Days = make([]Day, len(shift.Weekdays))
	for i, tag := range shift.Weekdays {
		d := Day{Shift: config.DefaultEmptyShift}
		if slots[i] != nil {
			d = *slots[i]
		}
		d.Name = tag
		out.Days[i] = d
	}
	return out
}

// weekday returns the Monday-based index of a day name, or -1 when the name
// is empty or not a weekday.
func weekday(name string) int {
	if strings.TrimSpace(name) == "" {
		return -1
	}
	return shift.DayIndex(shift.DayFix(name))
}
