package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorageMissingKeyIsNotAnError(t *testing.T) {
	store := NewMemoryStorage()
	value, found, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestMemoryStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	require.NoError(t, store.Set(ctx, "a", "1"))
	require.NoError(t, store.Set(ctx, "b", "2"))

	value, found, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", value)

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, store.Remove(ctx, "a"))
	_, found, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Clear(ctx))
	keys, err = store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestInstrumentedStorageReportsEveryOp(t *testing.T) {
	ctx := context.Background()
	var ops []string
	store := NewInstrumentedStorage(NewMemoryStorage(), func(op string, _ time.Duration) {
		ops = append(ops, op)
	})

	require.NoError(t, store.Set(ctx, "a", "1"))
	value, found, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", value)

	_, err = store.Keys(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, "a"))
	require.NoError(t, store.Clear(ctx))

	assert.Equal(t, []string{"set", "get", "keys", "remove", "clear"}, ops)
}

func TestInstrumentedStorageWithoutObserverIsPassthrough(t *testing.T) {
	inner := NewMemoryStorage()
	assert.Equal(t, DeviceStorage(inner), NewInstrumentedStorage(inner, nil))
}

func TestGetOrCreateDeviceIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	first, err := GetOrCreateDeviceID(ctx, store)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := GetOrCreateDeviceID(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeviceIDSurvivesEverythingButClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	id, err := GetOrCreateDeviceID(ctx, store)
	require.NoError(t, err)

	// Logout removes the cached user but keeps the device identifier.
	require.NoError(t, store.Remove(ctx, CachedUserIDKey))
	require.NoError(t, store.Remove(ctx, CachedUserKey))

	again, err := GetOrCreateDeviceID(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	require.NoError(t, store.Clear(ctx))
	fresh, err := GetOrCreateDeviceID(ctx, store)
	require.NoError(t, err)
	assert.NotEqual(t, id, fresh)
}
