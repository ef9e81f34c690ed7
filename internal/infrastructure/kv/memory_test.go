package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAbsentKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	val, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	members, err := store.SMembers(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)

	count, err := store.SCard(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, count)

	entries, err := store.ZRangeByScore(ctx, "missing", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, entries)

	list, err := store.LRange(ctx, "missing", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStoreSortedSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.ZAdd(ctx, "z", 30, "c"))
	require.NoError(t, store.ZAdd(ctx, "z", 10, "a"))
	require.NoError(t, store.ZAdd(ctx, "z", 20, "b"))

	members, err := store.ZRangeByScore(ctx, "z", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)

	// Re-adding a member updates its score
	require.NoError(t, store.ZAdd(ctx, "z", 5, "c"))
	members, err = store.ZRangeByScore(ctx, "z", 0, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, members)
}

func TestMemoryStoreSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SAdd(ctx, "s", "u1"))
	require.NoError(t, store.SAdd(ctx, "s", "u2"))
	require.NoError(t, store.SAdd(ctx, "s", "u1"))

	count, err := store.SCard(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	members, err := store.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, members)
}

func TestMemoryStoreListPushTrim(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.LPush(ctx, "l", "a"))
	require.NoError(t, store.LPush(ctx, "l", "b"))
	require.NoError(t, store.LPush(ctx, "l", "c"))

	list, err := store.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, list)

	require.NoError(t, store.LTrim(ctx, "l", 0, 1))
	list, err = store.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, list)
}

func TestMemoryStoreIncr(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.SetEx(ctx, "k", time.Hour, "v"))
	require.NoError(t, store.ZAdd(ctx, "z", 1, "m"))
	require.NoError(t, store.Expire(ctx, "z", time.Hour))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	now = now.Add(2 * time.Hour)

	val, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	members, err := store.ZRangeByScore(ctx, "z", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMemoryStoreExpireRefreshes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.ZAdd(ctx, "z", 1, "m"))
	require.NoError(t, store.Expire(ctx, "z", time.Hour))

	now = now.Add(50 * time.Minute)
	require.NoError(t, store.Expire(ctx, "z", time.Hour))

	now = now.Add(50 * time.Minute)
	members, err := store.ZRangeByScore(ctx, "z", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, members)
}
