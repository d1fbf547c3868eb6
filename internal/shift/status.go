package shift

import (
	"regexp"
	"strings"
	"time"
)

// Status classifies a shift cell relative to the current instant.
type Status string

const (
	StatusNone    Status = "none"
	StatusLater   Status = "later"
	StatusOn      Status = "on"
	StatusDone    Status = "done"
	StatusUnknown Status = "unknown"
)

var (
	dashesOnlyRe = regexp.MustCompile(`^-+$`)
	offRe        = regexp.MustCompile(`(?i)off`)
)

// IsOff reports whether a cell means no work that day: empty, only dashes,
// containing "off" or one of the non-working tokens.
func IsOff(cell string) bool {
	s := strings.TrimSpace(cell)
	if s == "" || dashesOnlyRe.MatchString(s) || offRe.MatchString(s) {
		return true
	}
	return offTokenRe.MatchString(strings.ToUpper(s))
}

// Classify tells whether the shift in cell is still ahead, running or over at now.
func Classify(cell string, now time.Time) Status {
	if IsOff(cell) {
		return StatusNone
	}

	if start, end, ok := ParseRange(cell, now); ok {
		switch {
		case now.Before(start):
			return StatusLater
		case now.After(end):
			return StatusDone
		default:
			return StatusOn
		}
	}

	single := trailingDotRe.ReplaceAllString(StripStatus(cell), "")
	if start, ok := ParseTimeOfDay(single, now); ok {
		if now.Before(start) {
			return StatusLater
		}
		return StatusOn
	}
	return StatusUnknown
}
