// Package timeline is the append-only audit log of actions taken against a
// case. Entries are written by the lifecycle engine and the verification
// flow and are never mutated or deleted.
package timeline

import (
	"time"

	"beacon/pkg/domain"
)

// Action classifies a timeline entry.
type Action string

// Supported actions.
const (
	ActionCreated      Action = "created"
	ActionAssigned     Action = "assigned"
	ActionStatusUpdate Action = "status_update"
	ActionVerified     Action = "verified"
)

var validActions = map[Action]bool{
	ActionCreated:      true,
	ActionAssigned:     true,
	ActionStatusUpdate: true,
	ActionVerified:     true,
}

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool { return validActions[a] }

// Entry is a single timeline record. Keep it transport-agnostic so stores
// and sinks can fan out.
type Entry struct {
	CaseID      domain.CaseID
	Actor       domain.Actor
	Action      Action
	Description string
	OldValue    string
	NewValue    string
	Metadata    map[string]string
	CreatedAt   time.Time
}
