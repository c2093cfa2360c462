// Package notify carries case lifecycle events to downstream delivery
// (push, SMS, email) through a transactional outbox. Dispatch is
// fire-and-forget relative to the state transition that caused it: the
// transition commits regardless of delivery, and failed publishes retry in
// the background without touching case state.
package notify

import (
	"time"

	"github.com/google/uuid"

	"beacon/pkg/domain"
)

// EventType classifies a notification event.
type EventType string

// Supported event types.
const (
	EventCaseCreated       EventType = "case_created"
	EventResponderAssigned EventType = "responder_assigned"
	EventStatusChanged     EventType = "status_changed"
	EventResponderVerified EventType = "responder_verified"
)

// Event is emitted from the lifecycle engine to capture a case action.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Type      EventType
	CaseID    domain.CaseID
	CaseUID   domain.CaseUID
	Timestamp time.Time

	// Populated per type; empty fields are omitted on the wire.
	ResponderID string
	OldStatus   string
	NewStatus   string
	Method      string
	Priority    string
}

// NewEvent stamps identity and time onto an event.
func NewEvent(t EventType, caseID domain.CaseID, caseUID domain.CaseUID) Event {
	return Event{
		ID:        uuid.New(),
		Type:      t,
		CaseID:    caseID,
		CaseUID:   caseUID,
		Timestamp: time.Now().UTC(),
	}
}
