package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/notify/outbox"
	"beacon/pkg/domain"
)

func TestOutboxDispatcher_Notify(t *testing.T) {
	store := outbox.NewInMemoryStore()
	d := NewOutboxDispatcher(store)

	caseID := domain.NewCaseID()
	event := NewEvent(EventStatusChanged, caseID, domain.FormatCaseUID(time.Now(), 3))
	event.OldStatus = "assigned"
	event.NewStatus = "en_route"

	require.NoError(t, d.Notify(context.Background(), event))

	entries, err := store.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, event.ID, entry.ID)
	assert.Equal(t, "status_changed", entry.EventType)
	assert.Equal(t, caseID.String(), entry.AggregateID)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(entry.Payload, &wire))
	assert.Equal(t, "status_changed", wire["type"])
	assert.Equal(t, "assigned", wire["old_status"])
	assert.Equal(t, "en_route", wire["new_status"])
	assert.Equal(t, caseID.String(), wire["case_id"])

	// Empty per-type fields stay off the wire.
	_, hasMethod := wire["method"]
	assert.False(t, hasMethod)
}
