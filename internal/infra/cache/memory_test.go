package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	store := NewMemoryStore(time.Minute, 10)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "key", []byte("value")))

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)
}

func TestMemoryStoreExpiredReadEvicts(t *testing.T) {
	store := NewMemoryStore(15*time.Minute, 10)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Set(ctx, "key", []byte("value")))

	store.now = func() time.Time { return now.Add(16 * time.Minute) }
	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrMiss)

	// The expired entry is gone even if time moves back.
	store.now = func() time.Time { return now }
	_, err = store.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreEvictsOldestWhenFull(t *testing.T) {
	store := NewMemoryStore(time.Minute, 2)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Set(ctx, "a", []byte("1")))

	store.now = func() time.Time { return now.Add(time.Second) }
	require.NoError(t, store.Set(ctx, "b", []byte("2")))

	store.now = func() time.Time { return now.Add(2 * time.Second) }
	require.NoError(t, store.Set(ctx, "c", []byte("3")))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)

	got, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Minute, 10)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []byte("value")))
	require.NoError(t, store.Delete(ctx, "key"))

	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrMiss)
}
