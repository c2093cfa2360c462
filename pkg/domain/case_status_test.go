package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "beacon/pkg/domain-errors"
)

func TestParseCaseStatus(t *testing.T) {
	t.Run("accepts every supported status", func(t *testing.T) {
		for _, s := range []string{"pending", "assigned", "en_route", "on_scene", "resolved", "cancelled"} {
			st, err := ParseCaseStatus(s)
			require.NoError(t, err)
			assert.Equal(t, s, st.String())
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := ParseCaseStatus("dispatched")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects empty status", func(t *testing.T) {
		_, err := ParseCaseStatus("")
		require.Error(t, err)
	})
}

func TestCaseStatusTransitionGraph(t *testing.T) {
	allowed := []struct {
		from, to CaseStatus
	}{
		{StatusPending, StatusAssigned},
		{StatusPending, StatusCancelled},
		{StatusAssigned, StatusEnRoute},
		{StatusAssigned, StatusCancelled},
		{StatusEnRoute, StatusOnScene},
		{StatusEnRoute, StatusCancelled},
		{StatusOnScene, StatusResolved},
		{StatusOnScene, StatusCancelled},
	}
	for _, tr := range allowed {
		assert.True(t, tr.from.CanTransitionTo(tr.to), "%s -> %s should be allowed", tr.from, tr.to)
	}

	rejected := []struct {
		from, to CaseStatus
	}{
		{StatusPending, StatusEnRoute},
		{StatusPending, StatusOnScene},
		{StatusPending, StatusResolved},
		{StatusAssigned, StatusOnScene},
		{StatusAssigned, StatusResolved},
		{StatusEnRoute, StatusResolved},
		{StatusOnScene, StatusAssigned},
		{StatusOnScene, StatusEnRoute},
		{StatusResolved, StatusPending},
		{StatusResolved, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusAssigned},
	}
	for _, tr := range rejected {
		assert.False(t, tr.from.CanTransitionTo(tr.to), "%s -> %s should be rejected", tr.from, tr.to)
	}
}

func TestCaseStatusTerminal(t *testing.T) {
	assert.True(t, StatusResolved.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	for _, s := range []CaseStatus{StatusPending, StatusAssigned, StatusEnRoute, StatusOnScene} {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
		// Every non-terminal state can be cancelled.
		assert.True(t, s.CanTransitionTo(StatusCancelled))
	}
}
