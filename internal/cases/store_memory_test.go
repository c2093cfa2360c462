package cases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

func newTestCase(t *testing.T) Case {
	t.Helper()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return Case{
		ID:           domain.NewCaseID(),
		CaseUID:      domain.FormatCaseUID(now, 1),
		IncidentType: domain.IncidentGeneral,
		Priority:     domain.PriorityNormal,
		Status:       domain.StatusPending,
		Title:        "test case",
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestInMemoryStoreConditionalUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("stale version returns conflict", func(t *testing.T) {
		store := NewInMemoryStore()
		c := newTestCase(t)
		require.NoError(t, store.Create(ctx, c))

		c.Status = domain.StatusCancelled
		require.NoError(t, store.Update(ctx, c, 1))

		c.Status = domain.StatusAssigned
		err := store.Update(ctx, c, 1)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("successful update bumps the version", func(t *testing.T) {
		store := NewInMemoryStore()
		c := newTestCase(t)
		require.NoError(t, store.Create(ctx, c))
		require.NoError(t, store.Update(ctx, c, 1))

		got, err := store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
	})

	t.Run("unknown case returns not found", func(t *testing.T) {
		store := NewInMemoryStore()
		err := store.Update(ctx, newTestCase(t), 1)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("racing writers: exactly one wins per version", func(t *testing.T) {
		store := NewInMemoryStore()
		c := newTestCase(t)
		require.NoError(t, store.Create(ctx, c))

		const writers = 16
		var wg sync.WaitGroup
		results := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				update := c
				update.Status = domain.StatusCancelled
				results <- store.Update(ctx, update, 1)
			}()
		}
		wg.Wait()
		close(results)

		var wins, conflicts int
		for err := range results {
			switch {
			case err == nil:
				wins++
			default:
				require.ErrorIs(t, err, sentinel.ErrConflict)
				conflicts++
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, writers-1, conflicts)
	})
}

func TestInMemoryStoreNextSequence(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	day := time.Date(2025, 6, 15, 23, 50, 0, 0, time.UTC)

	t.Run("sequence is monotonic within a day", func(t *testing.T) {
		first, err := store.NextSequence(ctx, day)
		require.NoError(t, err)
		second, err := store.NextSequence(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, first+1, second)
	})

	t.Run("sequence resets across days", func(t *testing.T) {
		next, err := store.NextSequence(ctx, day.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("concurrent allocation never duplicates", func(t *testing.T) {
		fresh := NewInMemoryStore()
		const callers = 32
		var wg sync.WaitGroup
		seqs := make(chan int, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				seq, err := fresh.NextSequence(ctx, day)
				assert.NoError(t, err)
				seqs <- seq
			}()
		}
		wg.Wait()
		close(seqs)

		seen := make(map[int]bool)
		for seq := range seqs {
			assert.False(t, seen[seq], "sequence %d allocated twice", seq)
			seen[seq] = true
		}
		assert.Len(t, seen, callers)
	})
}

func TestInMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	reporter := domain.NewUserID()
	responder := domain.NewResponderID()

	mine := newTestCase(t)
	mine.ReporterID = &reporter
	require.NoError(t, store.Create(ctx, mine))

	assigned := newTestCase(t)
	assigned.ID = domain.NewCaseID()
	assigned.Status = domain.StatusAssigned
	assigned.AssignedResponderID = &responder
	require.NoError(t, store.Create(ctx, assigned))

	t.Run("filter by reporter", func(t *testing.T) {
		got, err := store.List(ctx, Filter{ReporterID: &reporter})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, mine.ID, got[0].ID)
	})

	t.Run("filter by responder", func(t *testing.T) {
		got, err := store.List(ctx, Filter{ResponderID: &responder})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, assigned.ID, got[0].ID)
	})

	t.Run("filter by status", func(t *testing.T) {
		status := domain.StatusAssigned
		got, err := store.List(ctx, Filter{Status: &status})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, assigned.ID, got[0].ID)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		got, err := store.List(ctx, Filter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
