package domain

import (
	"fmt"
	"regexp"
	"time"

	dErrors "beacon/pkg/domain-errors"
)

// CaseUID is the human-readable case reference quoted over radio and in
// reports, format CASE-<YYYYMMDD>-<4-digit sequence>.
type CaseUID string

var caseUIDPattern = regexp.MustCompile(`^CASE-(\d{8})-(\d{4})$`)

// FormatCaseUID builds a CaseUID from the creation date and the day's
// sequence number. The store owns sequence allocation; this only formats.
func FormatCaseUID(createdAt time.Time, seq int) CaseUID {
	return CaseUID(fmt.Sprintf("CASE-%s-%04d", createdAt.UTC().Format("20060102"), seq))
}

// ParseCaseUID validates an externally supplied case reference.
func ParseCaseUID(s string) (CaseUID, error) {
	m := caseUIDPattern.FindStringSubmatch(s)
	if m == nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid case uid")
	}
	if _, err := time.Parse("20060102", m[1]); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid case uid date")
	}
	return CaseUID(s), nil
}

// String returns the string representation of the case uid.
func (u CaseUID) String() string { return string(u) }
