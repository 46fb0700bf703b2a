package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPayloadCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryPayloadCache()
	cache.now = func() time.Time { return now }

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte("data")
	require.NoError(t, cache.Set(ctx, "k", payload, time.Minute))
	payload[0] = 'X'

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("data"), got)

	now = now.Add(2 * time.Minute)
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "forever", []byte("v"), 0))
	now = now.Add(24 * time.Hour)
	_, ok, _ = cache.Get(ctx, "forever")
	assert.True(t, ok)

	require.NoError(t, cache.Delete(ctx, "forever"))
	_, ok, _ = cache.Get(ctx, "forever")
	assert.False(t, ok)
}
