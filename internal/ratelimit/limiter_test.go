package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterSlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("allows up to the limit", func(t *testing.T) {
		l := NewWithClock(3, time.Minute, clock)
		for i := 0; i < 3; i++ {
			assert.True(t, l.Allow(ctx, "device-a").Allowed)
		}
		result := l.Allow(ctx, "device-a")
		assert.False(t, result.Allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewWithClock(1, time.Minute, clock)
		assert.True(t, l.Allow(ctx, "device-a").Allowed)
		assert.True(t, l.Allow(ctx, "device-b").Allowed)
		assert.False(t, l.Allow(ctx, "device-a").Allowed)
	})

	t.Run("window slides rather than resetting at a boundary", func(t *testing.T) {
		l := NewWithClock(2, time.Minute, func() time.Time { return now })

		assert.True(t, l.Allow(ctx, "k").Allowed)
		now = now.Add(40 * time.Second)
		assert.True(t, l.Allow(ctx, "k").Allowed)
		assert.False(t, l.Allow(ctx, "k").Allowed)

		// First request ages out after a full window; one slot frees up.
		now = now.Add(25 * time.Second)
		assert.True(t, l.Allow(ctx, "k").Allowed)
		assert.False(t, l.Allow(ctx, "k").Allowed)
	})

	t.Run("remaining counts down", func(t *testing.T) {
		l := NewWithClock(3, time.Minute, clock)
		assert.Equal(t, 2, l.Allow(ctx, "k").Remaining)
		assert.Equal(t, 1, l.Allow(ctx, "k").Remaining)
		assert.Equal(t, 0, l.Allow(ctx, "k").Remaining)
	})

	t.Run("reset clears the window", func(t *testing.T) {
		l := NewWithClock(1, time.Minute, clock)
		assert.True(t, l.Allow(ctx, "k").Allowed)
		assert.False(t, l.Allow(ctx, "k").Allowed)
		l.Reset("k")
		assert.True(t, l.Allow(ctx, "k").Allowed)
	})
}
