package domain

import (
	"github.com/google/uuid"

	dErrors "beacon/pkg/domain-errors"
)

// Typed entity IDs. Distinct types stop a responder ID from being passed
// where a case ID is expected; the compiler enforces what code review would
// otherwise have to catch.
//
// Invariant: IDs are valid, non-nil UUIDs. Construct via the Parse functions
// at trust boundaries; direct conversion bypasses validation.
type (
	CaseID      uuid.UUID
	UserID      uuid.UUID
	ResponderID uuid.UUID
	AgencyID    uuid.UUID
	StationID   uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

// ParseCaseID constructs a CaseID from external input.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case id")
	return CaseID(u), err
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseResponderID constructs a ResponderID from external input.
func ParseResponderID(s string) (ResponderID, error) {
	u, err := parseUUID(s, "responder id")
	return ResponderID(u), err
}

// ParseAgencyID constructs an AgencyID from external input.
func ParseAgencyID(s string) (AgencyID, error) {
	u, err := parseUUID(s, "agency id")
	return AgencyID(u), err
}

// ParseStationID constructs a StationID from external input.
func ParseStationID(s string) (StationID, error) {
	u, err := parseUUID(s, "station id")
	return StationID(u), err
}

// NewCaseID mints a fresh random CaseID.
func NewCaseID() CaseID { return CaseID(uuid.New()) }

// NewUserID mints a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewResponderID mints a fresh random ResponderID.
func NewResponderID() ResponderID { return ResponderID(uuid.New()) }

// NewAgencyID mints a fresh random AgencyID.
func NewAgencyID() AgencyID { return AgencyID(uuid.New()) }

// NewStationID mints a fresh random StationID.
func NewStationID() StationID { return StationID(uuid.New()) }

func (id CaseID) String() string      { return uuid.UUID(id).String() }
func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id ResponderID) String() string { return uuid.UUID(id).String() }
func (id AgencyID) String() string    { return uuid.UUID(id).String() }
func (id StationID) String() string   { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ResponderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AgencyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id StationID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
