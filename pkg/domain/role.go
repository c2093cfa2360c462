package domain

import dErrors "beacon/pkg/domain-errors"

// Role is a user's function in the system, carried in access tokens and
// used by the case visibility predicate.
type Role string

// Supported roles.
const (
	RoleReporter   Role = "reporter"
	RoleResponder  Role = "responder"
	RoleDispatcher Role = "dispatcher"
	RoleAdmin      Role = "admin"
)

var validRoles = map[Role]bool{
	RoleReporter:   true,
	RoleResponder:  true,
	RoleDispatcher: true,
	RoleAdmin:      true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role: "+s)
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool { return validRoles[r] }

// String returns the string representation of the role.
func (r Role) String() string { return string(r) }
