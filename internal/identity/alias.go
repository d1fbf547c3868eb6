package identity

import (
	"regexp"
	"strings"
)

const nbsp = "\u00a0"

var (
	initialRe    = regexp.MustCompile(`^[A-ZÁÉÍÓÚÜÑ]\.?$`)
	aliasCharsRe = regexp.MustCompile(`[^A-ZÁÉÍÓÚÜÑ ]`)
)

// joiners are the particles kept in front of a surname ("DE LA CRUZ", "VON TRAPP").
var joiners = map[string]bool{
	"DE": true, "DEL": true, "DE LA": true, "DE LOS": true, "DE LAS": true,
	"DA": true, "DOS": true, "VON": true, "VAN": true, "DI": true, "DAL": true,
}

// nameParts collapses whitespace and drops bare initials such as "A." or "J".
func nameParts(full string) []string {
	fields := strings.Fields(full)
	parts := fields[:0]
	for _, f := range fields {
		if !initialRe.MatchString(f) {
			parts = append(parts, f)
		}
	}
	return parts
}

// surname returns the last part of a name together with any joiner in front
// of it. Two-word joiners win over one-word ones.
func surname(parts []string) string {
	n := len(parts)
	if n == 0 {
		return ""
	}
	last := parts[n-1]
	if n >= 3 {
		pair := parts[n-3] + " " + parts[n-2]
		if joiners[strings.ToUpper(pair)] {
			return pair + " " + last
		}
	}
	if n >= 2 && joiners[strings.ToUpper(parts[n-2])] {
		return parts[n-2] + " " + last
	}
	return last
}

// DeriveAlias computes the canonical display alias of a full name:
// "Johan A. Giraldo" gives "GIRALDO", "Maria De La Cruz" gives "DE LA CRUZ".
// It returns "" when nothing usable remains.
func DeriveAlias(full string) string {
	last := surname(nameParts(full))
	return strings.TrimSpace(aliasCharsRe.ReplaceAllString(strings.ToUpper(last), ""))
}

// BuildAliasVariants lists the spellings a spreadsheet row may use for full,
// for matching only: surname, initial with and without period and spacing
// (regular and non-breaking), first name plus surname and the whole name.
// The result is uppercase, trimmed and free of duplicates, in that order.
func BuildAliasVariants(full string) []string {
	parts := nameParts(full)
	if len(parts) == 0 {
		return nil
	}

	first := strings.ToUpper(parts[0])
	last := strings.ToUpper(surname(parts))
	fi := string([]rune(first)[:1])

	base := []string{
		last,
		fi + ". " + last,
		fi + "." + last,
		fi + nbsp + "." + nbsp + last,
		fi + nbsp + last,
		fi + " " + last,
		first + " " + last,
		strings.ToUpper(strings.Join(parts, " ")),
	}
	return dedupe(base)
}

// dedupe trims each entry and drops empties and repeats, keeping first occurrences.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
