// Package responders holds the responder directory consumed by assignment
// and verification. Write paths (onboarding, rostering) live elsewhere;
// this core only reads and checks.
package responders

import (
	"beacon/internal/crypto/password"
	"beacon/pkg/domain"
)

// Responder is a field unit that can be assigned to cases.
type Responder struct {
	ID        domain.ResponderID
	UserID    domain.UserID
	Name      string
	Role      domain.Role
	Active    bool
	AgencyID  domain.AgencyID
	StationID domain.StationID

	// IncidentTypes lists what this unit handles; empty means general only.
	IncidentTypes []domain.IncidentType

	// LastLocation and ServiceRadiusKm feed nearest-responder matching.
	LastLocation    *domain.Location
	ServiceRadiusKm float64

	// SharedCode is the PBKDF2 hash of the out-of-band verification code
	// used for method=code/manual checks. The plaintext code is issued to
	// the responder through a separate channel and never stored.
	SharedCode *password.Hash
}

// Handles reports whether the responder covers the given incident type.
func (r Responder) Handles(incidentType domain.IncidentType) bool {
	if len(r.IncidentTypes) == 0 {
		return incidentType == domain.IncidentGeneral
	}
	for _, t := range r.IncidentTypes {
		if t == incidentType {
			return true
		}
	}
	return false
}

// Assignable reports whether the responder may be assigned to a case at
// all: active and actually a responder.
func (r Responder) Assignable() bool {
	return r.Active && r.Role == domain.RoleResponder
}
