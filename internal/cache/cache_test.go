package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSweepGuardHoldsUntilExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	g := NewLocalSweepGuard()
	g.now = func() time.Time { return now }

	ok, err := g.Acquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.Acquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, err = g.Acquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopSweepGuardAlwaysGrants(t *testing.T) {
	for range 3 {
		ok, err := NoopSweepGuard{}.Acquire(context.Background(), "purge", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
