package kvengine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcache/flashcache/pkg/kvengine"
	"github.com/flashcache/flashcache/pkg/lib/cursors"
)

func TestStore_SetGet(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")

	store.Set("greeting", "hello")

	value, ok, err := store.Get("greeting")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", value)

	_, ok, err = store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_GetWrongType(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")

	_, err := store.LPush("mylist", "a")
	require.NoError(t, err)

	_, _, err = store.Get("mylist")
	require.ErrorIs(t, err, kvengine.ErrWrongType)
}

func TestStore_IncrDecr(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")

	n, err := store.Incr("counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Incr("counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.Decr("counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_IncrNotInteger(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")
	store.Set("name", "not-a-number")

	_, err := store.Incr("name")
	require.ErrorIs(t, err, kvengine.ErrNotInteger)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")
	store.Set("k", "v")

	assert.True(t, store.Delete("k"))
	assert.False(t, store.Delete("k"))
	assert.False(t, store.Exists("k"))
}

func TestStore_Rename(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")
	store.Set("src", "v")

	err := store.Rename("src", "dst")
	require.NoError(t, err)

	assert.False(t, store.Exists("src"))

	value, ok, err := store.Get("dst")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	err = store.Rename("nope", "dst2")
	require.ErrorIs(t, err, kvengine.ErrMissingKey)
}

func TestStore_ExpireAndTTL(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := &fakeClock{now: now}

	store := kvengine.NewStore("shard-0", kvengine.WithClock(clock.Now))
	store.Set("k", "v")

	err := store.Expire("k", 10*time.Second)
	require.NoError(t, err)

	remaining, err := store.TTL("k")
	require.NoError(t, err)
	assert.InDelta(t, float64(10*time.Second), float64(remaining), float64(time.Millisecond))

	clock.now = now.Add(11 * time.Second)

	_, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.False(t, ok, "key should have lazily expired")
}

func TestStore_ListOps(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")

	n, err := store.RPush("mylist", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.LPush("mylist", "z")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	front, ok, err := store.LPop("mylist")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "z", front)

	back, ok, err := store.RPop("mylist")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", back)

	_, ok, err = store.LPop("nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_HashOps(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")

	created, err := store.HSet("user:1", "name", "ada")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.HSet("user:1", "name", "ada2")
	require.NoError(t, err)
	assert.False(t, created)

	value, ok, err := store.HGet("user:1", "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ada2", value)

	n, err := store.HIncrBy("user:1", "visits", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := store.HGetAll("user:1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "ada2", "visits": "3"}, all)

	removed, err := store.HDel("user:1", "name", "visits")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.False(t, store.Exists("user:1"), "hash emptied by hdel should be removed")
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0", kvengine.WithMaxEntries(2))

	store.Set("a", "1")
	store.Set("b", "2")

	_, _, err := store.Get("a") // touch a, so b becomes least-recently-used
	require.NoError(t, err)

	store.Set("c", "3") // evicts b

	assert.True(t, store.Exists("a"))
	assert.False(t, store.Exists("b"))
	assert.True(t, store.Exists("c"))
}

func TestStore_KeysPagination(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		store.Set(k, "v")
	}

	page1, cursor1, err := store.Keys(cursors.NewCursor(2, nil))
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, []string{"a", "b"}, page1)
	require.NotNil(t, cursor1)

	page2, cursor2, err := store.Keys(cursors.NewCursor(2, cursor1))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, page2)
	require.NotNil(t, cursor2)

	page3, cursor3, err := store.Keys(cursors.NewCursor(2, cursor2))
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, page3)
	assert.Nil(t, cursor3)
}

func TestStore_PublishSubscribe(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")

	received := make(chan string, 1)
	sub := store.Subscribe("news", func(channel string, message string) {
		received <- message
	})

	n := store.Publish("news", "hello")
	assert.Equal(t, 1, n)
	assert.Equal(t, "hello", <-received)

	sub.Unsubscribe()

	n = store.Publish("news", "again")
	assert.Equal(t, 0, n)
}

func TestStore_FlushAll(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")
	store.Set("a", "1")
	store.Set("b", "2")

	store.FlushAll()

	assert.False(t, store.Exists("a"))
	assert.False(t, store.Exists("b"))
	assert.Equal(t, 0, store.Len())
}

func TestStore_FlushAllClearsSubscribers(t *testing.T) {
	t.Parallel()

	store := kvengine.NewStore("shard-0")

	received := make(chan string, 1)
	sub := store.Subscribe("news", func(channel string, message string) {
		received <- message
	})

	store.FlushAll()

	n := store.Publish("news", "hello")
	assert.Equal(t, 0, n, "flush should drop every channel's subscriber set")

	select {
	case msg := <-received:
		t.Fatalf("subscriber received %q after flush", msg)
	default:
	}

	sub.Unsubscribe()
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
