package shift

import (
	"strings"
	"time"
	"unicode"

	"github.com/tartampluch/go-rota/internal/config"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Weekdays is the canonical Monday-first order of 3-letter day tags.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// dayPrefixes maps folded 3-letter English and Spanish prefixes to canonical tags.
var dayPrefixes = map[string]string{
	"mon": "Mon", "tue": "Tue", "wed": "Wed", "thu": "Thu", "fri": "Fri", "sat": "Sat", "sun": "Sun",
	"lun": "Mon", "mar": "Tue", "mie": "Wed", "jue": "Thu", "vie": "Fri", "sab": "Sat", "dom": "Sun",
}

// DayFix maps an English or Spanish day name ("monday", "Lun", "miércoles",
// "SÁB") to its canonical tag "Mon".."Sun". Unrecognized input falls back to
// its first three characters, or "Mon" when empty.
func DayFix(day string) string {
	folded := []rune(fold(strings.ToLower(strings.TrimSpace(day))))
	if len(folded) >= 3 {
		if tag, ok := dayPrefixes[string(folded[:3])]; ok {
			return tag
		}
	}

	raw := []rune(day)
	if len(raw) == 0 {
		return config.DefaultWeekdayFallback
	}
	if len(raw) > 3 {
		raw = raw[:3]
	}
	return string(raw)
}

// DayKey returns the lowercase 3-letter tag for t's weekday ("mon".."sun").
func DayKey(t time.Time) string {
	return strings.ToLower(t.Weekday().String()[:3])
}

// DayIndex returns the Monday-based position of a canonical tag, or -1.
func DayIndex(tag string) int {
	for i, d := range Weekdays {
		if strings.EqualFold(d, tag) {
			return i
		}
	}
	return -1
}

// fold strips combining marks so "miércoles" compares equal to "miercoles".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
