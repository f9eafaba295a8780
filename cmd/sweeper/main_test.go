package main

import (
	"context"
	"testing"
	"time"

	"donodopedaco/internal/gate"
	"donodopedaco/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRefusesMemoryBackend(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("RATE_LIMIT_BACKEND", "memory")
	t.Setenv("CATALOG_SOURCE", "embedded")

	rootCmd.SetArgs([]string{"--once"})
	assert.ErrorIs(t, rootCmd.Execute(), ErrMemoryBackend)
}

func TestSweepClearsBothKinds(t *testing.T) {
	ctx := context.Background()
	store := ratelimit.NewInMemoryStore()
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	limiter := ratelimit.New(store, ratelimit.Config{MaxAttempts: 3, Window: 5 * time.Minute}, nil).WithClock(clock)
	spent := gate.NewSpent(store, nil).WithClock(clock)

	limiter.RegisterAttempt(ctx, limiter.Key("order", "b"))
	require.NoError(t, spent.Claim(ctx, "t1", now.Add(time.Minute)))

	now = now.Add(10 * time.Minute)
	sweeper{limiter: limiter, spent: spent, logger: zap.NewNop()}.sweep(ctx)

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
