// Package attendance defines the timesheet record entered by the user and
// its single-line CSV serialization.
package attendance

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DateLayout is the ISO calendar-day layout used in the CSV line.
const DateLayout = "2006-01-02"

// Field names, used in validation errors and as UI field identifiers.
const (
	FieldName     = "name"
	FieldShift    = "shift"
	FieldHours    = "hours"
	FieldPassword = "password"
)

// hoursPattern accepts plain non-negative decimals such as "8" or "7.5".
var hoursPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Shifts offered by the entry form. Other non-empty values are accepted.
var Shifts = []string{"Morning", "Afternoon", "Night"}

// Record is one timesheet entry. It is built per save and never persisted
// in plaintext.
type Record struct {
	Date  time.Time
	Name  string
	Shift string
	Hours string
}

// NewRecord builds a Record for the calendar day of now (UTC), trimming
// surrounding whitespace and normalizing name and shift to NFC so the same
// name typed on different keyboards serializes identically.
func NewRecord(now time.Time, name, shift, hours string) Record {
	return Record{
		Date:  now.UTC(),
		Name:  norm.NFC.String(strings.TrimSpace(name)),
		Shift: norm.NFC.String(strings.TrimSpace(shift)),
		Hours: strings.TrimSpace(hours),
	}
}

// CSVLine serializes r as `YYYY-MM-DD,"<name>","<shift>",<hours>\n`.
// Double quotes inside name and shift are written as-is.
func (r Record) CSVLine() string {
	return r.Date.Format(DateLayout) + `,"` + r.Name + `","` + r.Shift + `",` + r.Hours + "\n"
}

// Validate checks the record and the password that will encrypt it. All
// problems are reported together.
func Validate(r Record, password string) error {
	var missing []string

	if r.Name == "" {
		missing = append(missing, FieldName)
	}

	if r.Shift == "" {
		missing = append(missing, FieldShift)
	}

	if r.Hours == "" {
		missing = append(missing, FieldHours)
	}

	if password == "" {
		missing = append(missing, FieldPassword)
	}

	verr := &ValidationError{Missing: missing}

	// Each record must stay on one CSV line.
	if strings.ContainsAny(r.Name, "\r\n") {
		verr.Invalid = append(verr.Invalid, FieldName)
	}

	if strings.ContainsAny(r.Shift, "\r\n") {
		verr.Invalid = append(verr.Invalid, FieldShift)
	}

	if r.Hours != "" && !hoursPattern.MatchString(r.Hours) {
		verr.Invalid = append(verr.Invalid, FieldHours)
	}

	if len(verr.Missing) == 0 && len(verr.Invalid) == 0 {
		return nil
	}

	return verr
}

// ValidationError lists the fields that are missing or malformed.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}

	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}

	return "attendance: " + strings.Join(parts, "; ")
}
