package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/pkg/domain"
)

func TestPublisher_EmitAndList(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	ctx := context.Background()
	caseID := domain.NewCaseID()

	require.NoError(t, pub.Emit(ctx, Entry{
		CaseID: caseID,
		Actor:  domain.SystemActor(),
		Action: ActionCreated,
	}))
	require.NoError(t, pub.Emit(ctx, Entry{
		CaseID:   caseID,
		Actor:    domain.UserActor(domain.NewUserID()),
		Action:   ActionStatusUpdate,
		OldValue: "pending",
		NewValue: "assigned",
	}))

	entries, err := pub.ListByCase(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionCreated, entries[0].Action)
	assert.Equal(t, ActionStatusUpdate, entries[1].Action)
	assert.False(t, entries[0].CreatedAt.IsZero(), "Emit must stamp CreatedAt")

	// Other cases are untouched.
	other, err := pub.ListByCase(ctx, domain.NewCaseID())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPublisher_EmitValidation(t *testing.T) {
	pub := NewPublisher(NewInMemoryStore())
	ctx := context.Background()

	t.Run("missing case id", func(t *testing.T) {
		err := pub.Emit(ctx, Entry{Actor: domain.SystemActor(), Action: ActionCreated})
		require.Error(t, err)
	})

	t.Run("invalid action", func(t *testing.T) {
		err := pub.Emit(ctx, Entry{CaseID: domain.NewCaseID(), Actor: domain.SystemActor(), Action: "deleted"})
		require.Error(t, err)
	})

	t.Run("missing actor", func(t *testing.T) {
		err := pub.Emit(ctx, Entry{CaseID: domain.NewCaseID(), Action: ActionCreated})
		require.Error(t, err)
	})
}

func TestPublisher_PreservesExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	ctx := context.Background()
	caseID := domain.NewCaseID()
	stamp := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(ctx, Entry{
		CaseID:    caseID,
		Actor:     domain.SystemActor(),
		Action:    ActionCreated,
		CreatedAt: stamp,
	}))

	entries, err := pub.ListByCase(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, stamp, entries[0].CreatedAt)
}
