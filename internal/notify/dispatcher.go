package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"beacon/internal/notify/outbox"
)

// Dispatcher is the narrow interface the lifecycle engine calls. The engine
// never waits on delivery; implementations record the event and return.
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// wireEvent is the JSON published to the broker and handed to delivery
// backends.
type wireEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	CaseID      string `json:"case_id"`
	CaseUID     string `json:"case_uid"`
	Timestamp   string `json:"timestamp"`
	ResponderID string `json:"responder_id,omitempty"`
	OldStatus   string `json:"old_status,omitempty"`
	NewStatus   string `json:"new_status,omitempty"`
	Method      string `json:"method,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// OutboxDispatcher enqueues events into the transactional outbox; the
// worker publishes them after commit.
type OutboxDispatcher struct {
	store outbox.Store
}

// NewOutboxDispatcher creates a dispatcher over the given outbox store.
func NewOutboxDispatcher(store outbox.Store) *OutboxDispatcher {
	return &OutboxDispatcher{store: store}
}

func (d *OutboxDispatcher) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(wireEvent{
		ID:          event.ID.String(),
		Type:        string(event.Type),
		CaseID:      event.CaseID.String(),
		CaseUID:     event.CaseUID.String(),
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
		ResponderID: event.ResponderID,
		OldStatus:   event.OldStatus,
		NewStatus:   event.NewStatus,
		Method:      event.Method,
		Priority:    event.Priority,
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	return d.store.Enqueue(ctx, outbox.Entry{
		ID:          event.ID,
		EventType:   string(event.Type),
		AggregateID: event.CaseID.String(),
		Payload:     payload,
		CreatedAt:   event.Timestamp,
	})
}
