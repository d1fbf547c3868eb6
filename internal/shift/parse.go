// Package shift turns free-text schedule cells into hours and instants.
//
// Cells come from a hand-edited spreadsheet, so every function here degrades
// to zero hours or "not ok" on input it does not understand and never panics.
package shift

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	offTokenRe    = regexp.MustCompile(`^(OFF|OFFR|CERRADO|N/A|APP)$`)
	statusTailRe  = regexp.MustCompile(`(?i)\s+(DONE|READY|SENT|UPDATE|UPDATED)\b`)
	trailingDotRe = regexp.MustCompile(`\.+\s*$`)
	dashRe        = regexp.MustCompile(`(?i)[–—]|to`)
	spacedDashRe  = regexp.MustCompile(`\s*-\s*`)
	rangeRe       = regexp.MustCompile(`(?i)^([0-9]{1,2}(?::[0-9]{2})?\s*(?:AM|PM)?)\s*-\s*([0-9]{1,2}(?::[0-9]{2})?\s*(?:AM|PM)?)$`)
	timeOfDayRe   = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{1,2}))?\s*(am|pm)?$`)
	sideRe        = regexp.MustCompile(`(?i)^([0-9]{1,2})(?::([0-9]{2}))?\s*(AM|PM)?$`)
)

const (
	minutesPerHour = 60
	halfDayMinutes = 12 * minutesPerHour
)

// ParseHours returns the number of hours described by a shift cell such as
// "9-5", "9:30AM - 2PM" or "10 to 6 DONE". Non-working tokens (OFF, OFFR,
// CERRADO, N/A, APP) and anything unparseable yield 0.
//
// When neither side carries AM/PM and the end is earlier than the start, the
// end is moved 12 hours later ("9-5" is 9:00-17:00). This is the business's
// midday convention, not midnight handling: "10-2" is 4 hours, not an overnight shift.
func ParseHours(cell string) float64 {
	start, end, ok := rangeMinutes(cell)
	if !ok || end <= start {
		return 0
	}
	return float64(end-start) / minutesPerHour
}

// ParseRange returns the instants of a closed range shift on the day of now,
// applying the same midday convention as ParseHours.
func ParseRange(cell string, now time.Time) (start, end time.Time, ok bool) {
	a, b, ok := rangeMinutes(cell)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	midnight := startOfDay(now)
	return midnight.Add(time.Duration(a) * time.Minute), midnight.Add(time.Duration(b) * time.Minute), true
}

// ParseTimeOfDay parses "9", "9:30", "9pm" or "12:15 am" into an instant on
// the day of now, in now's location.
func ParseTimeOfDay(text string, now time.Time) (time.Time, bool) {
	m := timeOfDayRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}
	h, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if h < 12 {
			h += 12
		}
	case "am":
		if h == 12 {
			h = 0
		}
	}
	if h > 23 || minute > 59 {
		return time.Time{}, false
	}
	return startOfDay(now).Add(time.Duration(h)*time.Hour + time.Duration(minute)*time.Minute), true
}

// IsOpenEnded reports whether cell records a shift that has started but not
// ended, written as a start time followed by a period ("9:30.").
func IsOpenEnded(cell string) bool {
	return strings.HasSuffix(strings.TrimSpace(cell), ".")
}

// ParseOpenEnded returns the start instant of an open-ended shift.
func ParseOpenEnded(cell string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	if !strings.HasSuffix(s, ".") {
		return time.Time{}, false
	}
	return ParseTimeOfDay(strings.TrimSuffix(s, "."), now)
}

// StripStatus removes a trailing workflow marker such as "DONE" or "SENT".
func StripStatus(cell string) string {
	s := strings.TrimSpace(cell)
	if loc := statusTailRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(s)
}

// rangeMinutes parses cell into start and end minutes after midnight.
func rangeMinutes(cell string) (start, end int, ok bool) {
	t := strings.ToUpper(strings.TrimSpace(cell))
	if t == "" || offTokenRe.MatchString(t) {
		return 0, 0, false
	}

	clean := trailingDotRe.ReplaceAllString(StripStatus(t), "")
	clean = dashRe.ReplaceAllString(clean, "-")
	clean = spacedDashRe.ReplaceAllString(clean, "-")

	m := rangeRe.FindStringSubmatch(clean)
	if m == nil {
		return 0, 0, false
	}

	start, startMeridiem, ok := sideMinutes(m[1])
	if !ok {
		return 0, 0, false
	}
	end, endMeridiem, ok := sideMinutes(m[2])
	if !ok {
		return 0, 0, false
	}
	if !startMeridiem && !endMeridiem && end < start {
		end += halfDayMinutes
	}
	return start, end, true
}

// sideMinutes converts one side of a range into minutes after midnight.
func sideMinutes(side string) (minutes int, meridiem bool, ok bool) {
	m := sideRe.FindStringSubmatch(strings.TrimSpace(side))
	if m == nil {
		return 0, false, false
	}
	h, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 || h > 23 || (m[3] != "" && h > 12) {
		return 0, false, false
	}
	switch strings.ToUpper(m[3]) {
	case "AM":
		if h == 12 {
			h = 0
		}
		meridiem = true
	case "PM":
		if h != 12 {
			h += 12
		}
		meridiem = true
	}
	return h*minutesPerHour + minute, meridiem, true
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
