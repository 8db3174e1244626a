package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	v, err := store.Get(ctx, "entries")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, store.Set(ctx, "entries", "payload"))

	v, err = store.Get(ctx, "entries")
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
}

func TestMemoryStore_HonoursCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Set(ctx, "entries", "x"), context.Canceled)
}

type fakeCache struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func TestCacheStore_PrefixesKeysAndNeverExpires(t *testing.T) {
	cache := &fakeCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
	store := NewCacheStore(cache, "waitlist:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "entries", "[]"))

	assert.Equal(t, "[]", cache.values["waitlist:entries"])
	assert.Equal(t, time.Duration(0), cache.ttls["waitlist:entries"])

	v, err := store.Get(ctx, "entries")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
