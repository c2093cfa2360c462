package domain

import dErrors "beacon/pkg/domain-errors"

// CaseStatus is the lifecycle state of an emergency case.
// Invariant: the value must be one of the supported statuses, and status
// changes must follow the transition graph below.
//
// Usage: construct via ParseCaseStatus at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type CaseStatus string

// Supported case statuses.
const (
	StatusPending   CaseStatus = "pending"
	StatusAssigned  CaseStatus = "assigned"
	StatusEnRoute   CaseStatus = "en_route"
	StatusOnScene   CaseStatus = "on_scene"
	StatusResolved  CaseStatus = "resolved"
	StatusCancelled CaseStatus = "cancelled"
)

// validCaseStatuses is the single source of truth for valid statuses.
var validCaseStatuses = map[CaseStatus]bool{
	StatusPending:   true,
	StatusAssigned:  true,
	StatusEnRoute:   true,
	StatusOnScene:   true,
	StatusResolved:  true,
	StatusCancelled: true,
}

// allowedTransitions is the explicit adjacency map for the lifecycle.
// Cancellation is reachable from every non-terminal state; resolved and
// cancelled are terminal.
var allowedTransitions = map[CaseStatus][]CaseStatus{
	StatusPending:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusEnRoute, StatusCancelled},
	StatusEnRoute:   {StatusOnScene, StatusCancelled},
	StatusOnScene:   {StatusResolved, StatusCancelled},
	StatusResolved:  {},
	StatusCancelled: {},
}

// ParseCaseStatus constructs a CaseStatus from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseCaseStatus(s string) (CaseStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	st := CaseStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status: "+s)
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s CaseStatus) IsValid() bool {
	return validCaseStatuses[s]
}

// IsTerminal reports whether no further transitions are allowed.
func (s CaseStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// IsClosed reports whether closed_at must be set for this status.
func (s CaseStatus) IsClosed() bool {
	return s.IsTerminal()
}

// CanTransitionTo reports whether the lifecycle graph permits moving from
// s to next.
func (s CaseStatus) CanTransitionTo(next CaseStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String returns the string representation of the status.
func (s CaseStatus) String() string {
	return string(s)
}
