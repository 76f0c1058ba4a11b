// Package router implements the consistent-hash front door over a fixed set
// of kvengine.Store shards: every key maps deterministically to exactly one
// shard, and cross-shard aggregate operations (key listing, flush-all) fan
// out to every shard and merge the results.
package router

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flashcache/flashcache/pkg/kvengine"
	"github.com/flashcache/flashcache/pkg/lib/cursors"
)

// Shard returns the index in [0, shardCount) that key is routed to. The
// algorithm — first 8 hex characters of SHA-256(key), parsed as an unsigned
// 32-bit integer, modulo shardCount — is fixed: any implementation that
// computes shard placement differently is not interoperable with this one.
func Shard(key string, shardCount int) int {
	sum := sha256.Sum256([]byte(key))
	hexPrefix := hex.EncodeToString(sum[:])[:8]

	n, err := strconv.ParseUint(hexPrefix, 16, 32)
	if err != nil {
		// hex.EncodeToString of a fixed 4-byte prefix is always valid
		// 8-character lowercase hex; ParseUint cannot fail here.
		panic(fmt.Sprintf("router: unreachable: %v", err))
	}

	return int(n % uint64(shardCount)) //nolint:gosec
}

// Router fans a fixed key space out across a slice of independently-owned
// shards, each a *kvengine.Store, by consistent hash of the key.
type Router struct {
	shards []*kvengine.Store
}

func New(shards []*kvengine.Store) *Router {
	return &Router{shards: shards}
}

func (r *Router) ShardCount() int { return len(r.shards) }

// ShardFor returns the store that key is routed to.
func (r *Router) ShardFor(key string) *kvengine.Store {
	return r.shards[Shard(key, len(r.shards))]
}

// ShardAt returns the shard at index i, for admin/introspection use.
func (r *Router) ShardAt(i int) *kvengine.Store { return r.shards[i] }

func (r *Router) Set(key string, value string, ttl ...time.Duration) {
	r.ShardFor(key).Set(key, value, ttl...)
}

func (r *Router) Get(key string) (string, bool, error) {
	return r.ShardFor(key).Get(key)
}

func (r *Router) Delete(key string) bool {
	return r.ShardFor(key).Delete(key)
}

func (r *Router) Exists(key string) bool {
	return r.ShardFor(key).Exists(key)
}

func (r *Router) TTL(key string) (time.Duration, error) {
	return r.ShardFor(key).TTL(key)
}

func (r *Router) Expire(key string, ttl time.Duration) error {
	return r.ShardFor(key).Expire(key, ttl)
}

func (r *Router) Incr(key string) (int64, error) {
	return r.ShardFor(key).Incr(key)
}

func (r *Router) Decr(key string) (int64, error) {
	return r.ShardFor(key).Decr(key)
}

// Rename moves oldKey to newKey. When both keys hash to the same shard this
// delegates directly to that shard's atomic Rename; otherwise it performs a
// manual cross-shard move (read old, write new, delete old) which is not
// atomic with respect to concurrent readers of newKey. The cross-shard path
// moves string values only: a list or hash key fails with ErrWrongType and
// neither shard is changed.
func (r *Router) Rename(oldKey string, newKey string) error {
	srcShard := r.ShardFor(oldKey)
	dstShard := r.ShardFor(newKey)

	if srcShard == dstShard {
		return srcShard.Rename(oldKey, newKey) //nolint:wrapcheck
	}

	value, ok, err := srcShard.Get(oldKey)
	if err != nil {
		return fmt.Errorf("rename %q: %w", oldKey, err)
	}

	if !ok {
		return fmt.Errorf("rename %q: %w", oldKey, kvengine.ErrMissingKey)
	}

	ttl, err := srcShard.TTL(oldKey)
	if err != nil {
		return fmt.Errorf("rename %q: %w", oldKey, err)
	}

	dstShard.Set(newKey, value)

	if ttl >= 0 {
		if err := dstShard.Expire(newKey, ttl); err != nil {
			return fmt.Errorf("rename %q: %w", newKey, err)
		}
	}

	srcShard.Delete(oldKey)

	return nil
}

func (r *Router) LPush(key string, values ...string) (int, error) {
	return r.ShardFor(key).LPush(key, values...)
}

func (r *Router) RPush(key string, values ...string) (int, error) {
	return r.ShardFor(key).RPush(key, values...)
}

func (r *Router) LPop(key string) (string, bool, error) {
	return r.ShardFor(key).LPop(key)
}

func (r *Router) RPop(key string) (string, bool, error) {
	return r.ShardFor(key).RPop(key)
}

func (r *Router) HSet(key string, field string, value string) (bool, error) {
	return r.ShardFor(key).HSet(key, field, value)
}

func (r *Router) HGet(key string, field string) (string, bool, error) {
	return r.ShardFor(key).HGet(key, field)
}

func (r *Router) HDel(key string, fields ...string) (int, error) {
	return r.ShardFor(key).HDel(key, fields...)
}

func (r *Router) HGetAll(key string) (map[string]string, error) {
	return r.ShardFor(key).HGetAll(key)
}

func (r *Router) HIncrBy(key string, field string, delta int64) (int64, error) {
	return r.ShardFor(key).HIncrBy(key, field, delta)
}

func (r *Router) Publish(channel string, message string) int {
	// Pub/sub channels aren't keys; every shard gets its own independent
	// subscriber table, so a publish must fan out to all of them for every
	// subscriber in the cluster to see it.
	total := 0

	for _, shard := range r.shards {
		total += shard.Publish(channel, message)
	}

	return total
}

// Subscribe registers fn on the one shard that channel hashes to. Publish
// fans out to every shard, so fn receives each published message once.
func (r *Router) Subscribe(channel string, fn kvengine.Subscriber) []*kvengine.Subscription {
	return []*kvengine.Subscription{r.ShardFor(channel).Subscribe(channel, fn)}
}

func (r *Router) FlushAll() {
	for _, shard := range r.shards {
		shard.FlushAll()
	}
}

// AllKeys lists live keys across every shard in shard order, resuming from
// a composite cursor produced by a prior call. A nil returned cursor means
// every shard has been exhausted.
func (r *Router) AllKeys(cursor *cursors.Cursor) ([]string, *string, error) {
	limit := 20
	if cursor != nil && cursor.Limit > 0 {
		limit = cursor.Limit
	}

	startShard := 0

	var startKey *string

	if cursor != nil && cursor.Offset != nil {
		shardIdx, key, err := decodeCompositeOffset(*cursor.Offset)
		if err != nil {
			return nil, nil, err
		}

		startShard = shardIdx
		startKey = &key
	}

	var out []string

	for shardIdx := startShard; shardIdx < len(r.shards); shardIdx++ {
		remaining := limit - len(out)
		if remaining <= 0 {
			break
		}

		var offset *string
		if shardIdx == startShard {
			offset = startKey
		}

		page, nextKey, err := r.shards[shardIdx].Keys(cursors.NewCursor(remaining, offset))
		if err != nil {
			return nil, nil, fmt.Errorf("list keys on shard %d: %w", shardIdx, err)
		}

		out = append(out, page...)

		if nextKey != nil {
			composite := encodeCompositeOffset(shardIdx, *nextKey)

			return out, &composite, nil
		}

		// The page filled up exactly at the end of this shard; resume after
		// its last key so the remaining shards are still listed.
		if len(out) >= limit && shardIdx+1 < len(r.shards) {
			composite := encodeCompositeOffset(shardIdx, page[len(page)-1])

			return out, &composite, nil
		}
	}

	return out, nil, nil
}

func encodeCompositeOffset(shardIdx int, key string) string {
	return strconv.Itoa(shardIdx) + ":" + key
}

func decodeCompositeOffset(offset string) (int, string, error) {
	shardPart, key, found := strings.Cut(offset, ":")
	if !found {
		return 0, "", fmt.Errorf("router: malformed cursor offset %q", offset)
	}

	shardIdx, err := strconv.Atoi(shardPart)
	if err != nil {
		return 0, "", fmt.Errorf("router: malformed cursor offset %q: %w", offset, err)
	}

	return shardIdx, key, nil
}
