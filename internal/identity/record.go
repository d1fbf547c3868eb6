package identity

import (
	"regexp"
	"strings"

	"github.com/tartampluch/go-rota/internal/schedule"
)

// Record is one employee row of the backend directory.
type Record struct {
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

// Directory is a decoded directory snapshot.
type Directory struct {
	OK      bool
	Records []Record
}

var nonDigitRe = regexp.MustCompile(`\D`)

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	return nonDigitRe.ReplaceAllString(phone, "")
}

// Key is the memo key of an identity: the normalized email, or the
// normalized phone when no email is given.
func Key(email, phone string) string {
	if e := NormalizeEmail(email); e != "" {
		return e
	}
	return NormalizePhone(phone)
}

// DecodeRecord reads a directory row, accepting the field aliases the backend
// has used over time. Numeric cells (phones typed as numbers) are stringified.
func DecodeRecord(m map[string]any) Record {
	return Record{
		Email:  schedule.Field(m, "email"),
		Phone:  schedule.Field(m, "phone"),
		Name:   schedule.Field(m, "name", "employee", "fullname"),
		Role:   schedule.Field(m, "role"),
		APIKey: schedule.Field(m, "apiKey", "apikey"),
	}
}

// DecodeDirectory extracts the records of a directory payload from its
// directory, employees or rows list. Non-object entries are skipped.
func DecodeDirectory(payload map[string]any) Directory {
	var list []any
	for _, k := range []string{"directory", "employees", "rows"} {
		if l, ok := payload[k].([]any); ok {
			list = l
			break
		}
	}

	records := make([]Record, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			records = append(records, DecodeRecord(m))
		}
	}

	ok := len(records) > 0
	if v, found := payload["ok"].(bool); found {
		ok = v && ok
	}
	return Directory{OK: ok, Records: records}
}

// Match reports whether r is the record identified by email or phone.
func (r Record) Match(email, phone string) bool {
	if e := NormalizeEmail(email); e != "" && NormalizeEmail(r.Email) == e {
		return true
	}
	p := NormalizePhone(phone)
	return p != "" && NormalizePhone(r.Phone) == p
}

// Find returns the first record matching email or phone.
func (d Directory) Find(email, phone string) (Record, bool) {
	for _, r := range d.Records {
		if r.Match(email, phone) {
			return r, true
		}
	}
	return Record{}, false
}
