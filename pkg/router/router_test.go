package router_test

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcache/flashcache/pkg/kvengine"
	"github.com/flashcache/flashcache/pkg/lib/cursors"
	"github.com/flashcache/flashcache/pkg/router"
)

func referenceShard(key string, n int) int {
	sum := sha256.Sum256([]byte(key))
	prefix := hex.EncodeToString(sum[:])[:8]
	v, err := strconv.ParseUint(prefix, 16, 32)
	if err != nil {
		panic(err)
	}

	return int(v % uint64(n))
}

func TestShard_MatchesReferenceAlgorithm(t *testing.T) {
	t.Parallel()

	keys := []string{"a", "b", "hello", "user:1:profile", "", "🔑"}

	for _, key := range keys {
		assert.Equal(t, referenceShard(key, 3), router.Shard(key, 3), "key=%q", key)
	}
}

func TestShard_Deterministic(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		key := "key-" + strconv.Itoa(i)
		assert.Equal(t, router.Shard(key, 3), router.Shard(key, 3))
	}
}

func newTestRouter(n int) *router.Router {
	shards := make([]*kvengine.Store, n)
	for i := range shards {
		shards[i] = kvengine.NewStore("shard-" + strconv.Itoa(i))
	}

	return router.New(shards)
}

func TestRouter_SetGetRoutesConsistently(t *testing.T) {
	t.Parallel()

	r := newTestRouter(3)

	r.Set("alpha", "1")
	r.Set("beta", "2")
	r.Set("gamma", "3")

	for _, key := range []string{"alpha", "beta", "gamma"} {
		value, ok, err := r.Get(key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotEmpty(t, value)
	}
}

func TestRouter_RenameAcrossShards(t *testing.T) {
	t.Parallel()

	r := newTestRouter(3)

	// Find two keys landing on different shards.
	var oldKey, newKey string

	for i := 0; ; i++ {
		oldKey = "k" + strconv.Itoa(i)

		if router.Shard(oldKey, 3) == 0 {
			break
		}
	}

	for i := 0; ; i++ {
		newKey = "m" + strconv.Itoa(i)

		if router.Shard(newKey, 3) == 1 {
			break
		}
	}

	r.Set(oldKey, "payload")

	err := r.Rename(oldKey, newKey)
	require.NoError(t, err)

	assert.False(t, r.Exists(oldKey))

	value, ok, err := r.Get(newKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "payload", value)
}

func TestRouter_AllKeysAggregatesAcrossShards(t *testing.T) {
	t.Parallel()

	r := newTestRouter(3)

	keys := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		key := "item-" + strconv.Itoa(i)
		keys = append(keys, key)
		r.Set(key, "v")
	}

	seen := map[string]bool{}

	cursor := cursors.NewCursor(4, nil)

	for {
		page, next, err := r.AllKeys(cursor)
		require.NoError(t, err)

		for _, k := range page {
			seen[k] = true
		}

		if next == nil {
			break
		}

		cursor = cursors.NewCursor(4, next)
	}

	assert.Len(t, seen, len(keys))

	for _, k := range keys {
		assert.True(t, seen[k], "missing key %q", k)
	}
}

func TestRouter_PublishFansOutToAllShards(t *testing.T) {
	t.Parallel()

	r := newTestRouter(3)

	count := 0
	for i := 0; i < 3; i++ {
		r.Subscribe("broadcast", func(channel string, message string) {
			count++
		})
	}

	n := r.Publish("broadcast", "hello")
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, count)
}
