package domain

import (
	"strings"

	dErrors "beacon/pkg/domain-errors"
)

// Actor identifies who performed an action: the system itself (automated
// assignment, scheduled transitions) or a specific user. This replaces the
// numeric-sentinel convention of "user id 0 means system".
//
// The zero value is not a valid actor; construct via SystemActor or
// UserActor.
type Actor struct {
	system bool
	userID UserID
}

// SystemActor marks a system-initiated action.
func SystemActor() Actor {
	return Actor{system: true}
}

// UserActor marks an action performed by the given user.
func UserActor(id UserID) Actor {
	return Actor{userID: id}
}

// IsSystem reports whether the action was system-initiated.
func (a Actor) IsSystem() bool { return a.system }

// UserID returns the acting user and whether one is present.
func (a Actor) UserID() (UserID, bool) {
	if a.system || a.userID.IsNil() {
		return UserID{}, false
	}
	return a.userID, true
}

// IsZero reports whether the actor was never constructed.
func (a Actor) IsZero() bool {
	return !a.system && a.userID.IsNil()
}

// String encodes the actor for storage: "system" or "user:<uuid>".
func (a Actor) String() string {
	if a.system {
		return "system"
	}
	return "user:" + a.userID.String()
}

// ParseActor decodes the storage form produced by String.
func ParseActor(s string) (Actor, error) {
	if s == "system" {
		return SystemActor(), nil
	}
	raw, ok := strings.CutPrefix(s, "user:")
	if !ok {
		return Actor{}, dErrors.New(dErrors.CodeInvalidInput, "invalid actor: "+s)
	}
	id, err := ParseUserID(raw)
	if err != nil {
		return Actor{}, err
	}
	return UserActor(id), nil
}
