package kvengine

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/logfx"
	"github.com/flashcache/flashcache/pkg/lib/cursors"
)

// MutationFunc observes every successful mutating operation a Store applies,
// in application order. A ReplicationMaster wires one in to turn local
// writes into outbound wire records; it never reaches back into the Store.
type MutationFunc func(op string, args []string)

// Store is one shard: an in-memory key space with LRU eviction, per-key
// TTLs, and pub/sub channels, guarded by a single mutex. Operations are
// applied one at a time in call order, matching the single-owner
// concurrency model the wire protocol and replication log assume.
type Store struct {
	mu sync.Mutex

	name       string
	maxEntries int

	entries  map[string]*entry
	recency  *list.List
	ttlHeap  *ttlHeap
	channels map[string]map[*Subscription]struct{}

	onMutation MutationFunc
	clock      func() time.Time

	logger *logfx.Logger
}

// Option configures a Store at construction time.
type Option func(*Store)

func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func WithMutationFunc(fn MutationFunc) Option {
	return func(s *Store) { s.onMutation = fn }
}

// SetMutationFunc (re)binds the store's mutation observer after
// construction. A ReplicationMaster uses this to wire itself into a Store
// that was already built, rather than requiring replication to exist before
// the store does.
func (s *Store) SetMutationFunc(fn MutationFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onMutation = fn
}

func WithLogger(logger *logfx.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the Store's notion of "now"; used by tests to control
// TTL expiry deterministically.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// NewStore creates an empty Store named name (used in logs and as the
// default snapshot file stem).
func NewStore(name string, opts ...Option) *Store {
	h := make(ttlHeap, 0)

	s := &Store{ //nolint:exhaustruct
		name:       name,
		maxEntries: DefaultMaxEntries,

		entries:  make(map[string]*entry),
		recency:  list.New(),
		ttlHeap:  &h,
		channels: make(map[string]map[*Subscription]struct{}),

		onMutation: nil,
		clock:      time.Now,

		logger: logfx.NewLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) Name() string { return s.name }

func (s *Store) emit(op string, args ...string) {
	if s.onMutation != nil {
		s.onMutation(op, args)
	}
}

// touch moves e to the front of the recency list, marking it
// most-recently-used.
func (s *Store) touch(e *entry) {
	if e.recencyElem == nil {
		e.recencyElem = s.recency.PushFront(e)

		return
	}

	s.recency.MoveToFront(e.recencyElem)
}

// getLive returns the entry for key if present and not expired, lazily
// dropping it if its TTL has passed.
func (s *Store) getLive(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}

	if e.expired(s.clock()) {
		s.removeEntry(e)

		return nil
	}

	return e
}

func (s *Store) removeEntry(e *entry) {
	delete(s.entries, e.key)
	s.recency.Remove(e.recencyElem)
	s.ttlHeap.unscheduleTTL(e)
}

// evict removes least-recently-used entries until the store is back within
// maxEntries. Forward progress is guaranteed: every entry in s.entries has
// a recencyElem, so the list is never empty while over capacity.
func (s *Store) evict() {
	for len(s.entries) > s.maxEntries {
		back := s.recency.Back()
		if back == nil {
			return
		}

		victim, _ := back.Value.(*entry)
		s.removeEntry(victim)

		s.logger.DebugContext(context.Background(), "evicted key", "shard", s.name, "key", victim.key)
	}
}

func (s *Store) insert(key string, value Value) *entry {
	e := newEntry(key, value)
	s.entries[key] = e
	s.touch(e)
	s.evict()

	return e
}

func keyErr(op string, key string, err error) error {
	return fmt.Errorf("%s %q: %w", op, key, err)
}

// Set stores key as a string value, clearing any prior TTL or type, and
// atomically attaches a new expiration when ttl is given — one Store
// mutation rather than a separate Set+Expire pair, matching the replicated
// `set key value ttlSeconds?` record. Only the first ttl value is honored;
// a negative one is treated as "no expiration".
func (s *Store) Set(key string, value string, ttl ...time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt *time.Time

	ttlArg := ""
	if len(ttl) > 0 && ttl[0] >= 0 {
		deadline := s.clock().Add(ttl[0])
		expiresAt = &deadline
		ttlArg = formatTTLSeconds(ttl[0])
	}

	e := s.getLive(key)
	if e == nil {
		e = s.insert(key, NewStringValue(value))
	} else {
		s.ttlHeap.unscheduleTTL(e)
		e.value = NewStringValue(value)
		s.touch(e)
	}

	e.expiresAt = expiresAt

	if expiresAt != nil {
		s.ttlHeap.scheduleTTL(e)
	}

	s.emit("set", key, value, ttlArg)
}

// formatTTLSeconds renders ttl as the plain decimal seconds the wire and
// replay formats use for a ttlSeconds argument, never a Go duration string.
func formatTTLSeconds(ttl time.Duration) string {
	return strconv.FormatFloat(ttl.Seconds(), 'f', -1, 64)
}

// Get returns key's string value. ok is false if the key is absent or
// expired. err is ErrWrongType if key holds a non-string value.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLive(key)
	if e == nil {
		return "", false, nil
	}

	if e.value.Kind != ValueKindString {
		return "", false, keyErr("get", key, ErrWrongType)
	}

	s.touch(e)

	return e.value.Str, true, nil
}

// Delete removes key, returning whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLive(key)
	if e == nil {
		return false
	}

	s.removeEntry(e)
	s.emit("delete", key)

	return true
}

// Exists reports whether key is present and unexpired.
func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLive(key) != nil
}

// TTL returns the remaining time-to-live for key. remaining is -1 when the
// key has no expiry. err is ErrMissingKey when the key is absent.
func (s *Store) TTL(key string) (remaining time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLive(key)
	if e == nil {
		return 0, keyErr("ttl", key, ErrMissingKey)
	}

	if e.expiresAt == nil {
		return -1, nil
	}

	return (*e.expiresAt).Sub(s.clock()), nil
}

// Expire sets key's TTL to ttl from now. err is ErrMissingKey if absent.
func (s *Store) Expire(key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLive(key)
	if e == nil {
		return keyErr("expire", key, ErrMissingKey)
	}

	deadline := s.clock().Add(ttl)
	e.expiresAt = &deadline
	s.ttlHeap.scheduleTTL(e)

	s.emit("expire", key, formatTTLSeconds(ttl))

	return nil
}

func (s *Store) incrBy(key string, delta int64) (int64, error) {
	e := s.getLive(key)

	var current int64

	if e != nil {
		if e.value.Kind != ValueKindString {
			return 0, keyErr("incr", key, ErrWrongType)
		}

		parsed, parseErr := strconv.ParseInt(e.value.Str, 10, 64)
		if parseErr != nil {
			return 0, keyErr("incr", key, ErrNotInteger)
		}

		current = parsed
	}

	next := current + delta
	nextStr := strconv.FormatInt(next, 10)

	if e != nil {
		e.value = NewStringValue(nextStr)
		s.touch(e)
	} else {
		s.insert(key, NewStringValue(nextStr))
	}

	return next, nil
}

// Incr adds 1 to key's integer value, creating it as "1" if absent.
func (s *Store) Incr(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.incrBy(key, 1)
	if err != nil {
		return 0, err
	}

	s.emit("incr", key)

	return next, nil
}

// Decr subtracts 1 from key's integer value, creating it as "-1" if absent.
func (s *Store) Decr(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.incrBy(key, -1)
	if err != nil {
		return 0, err
	}

	s.emit("decr", key)

	return next, nil
}

// Rename moves oldKey's entry (value, TTL, recency) to newKey, overwriting
// any entry already at newKey. err is ErrMissingKey if oldKey is absent.
func (s *Store) Rename(oldKey string, newKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.getLive(oldKey)
	if src == nil {
		return keyErr("rename", oldKey, ErrMissingKey)
	}

	if oldKey == newKey {
		return nil
	}

	if dst := s.getLive(newKey); dst != nil {
		s.removeEntry(dst)
	}

	s.removeEntry(src)

	renamed := newEntry(newKey, src.value)
	renamed.expiresAt = src.expiresAt
	s.entries[newKey] = renamed
	s.touch(renamed)

	if renamed.expiresAt != nil {
		s.ttlHeap.scheduleTTL(renamed)
	}

	s.emit("rename", oldKey, newKey)

	return nil
}

func (s *Store) listEntry(op string, key string, createIfMissing bool) (*entry, error) {
	e := s.getLive(key)

	if e == nil {
		if !createIfMissing {
			return nil, keyErr(op, key, ErrMissingKey)
		}

		e = s.insert(key, NewListValue(nil))

		return e, nil
	}

	if e.value.Kind != ValueKindList {
		return nil, keyErr(op, key, ErrWrongType)
	}

	return e, nil
}

// LPush prepends values to key's list (in argument order, so the last value
// ends up at the head), creating the list if absent.
func (s *Store) LPush(key string, values ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.listEntry("lpush", key, true)
	if err != nil {
		return 0, err
	}

	list := e.value.List
	for _, v := range values {
		list = append([]string{v}, list...)
	}

	e.value.List = list
	s.touch(e)
	s.emit("lpush", append([]string{key}, values...)...)

	return len(list), nil
}

// RPush appends values to key's list, creating the list if absent.
func (s *Store) RPush(key string, values ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.listEntry("rpush", key, true)
	if err != nil {
		return 0, err
	}

	e.value.List = append(e.value.List, values...)
	s.touch(e)
	s.emit("rpush", append([]string{key}, values...)...)

	return len(e.value.List), nil
}

func (s *Store) popList(op string, key string, front bool) (string, bool, error) {
	e, err := s.listEntry(op, key, false)
	if err != nil {
		if errors.Is(err, ErrMissingKey) {
			return "", false, nil
		}

		return "", false, err
	}

	if len(e.value.List) == 0 {
		return "", false, nil
	}

	var popped string

	if front {
		popped = e.value.List[0]
		e.value.List = e.value.List[1:]
	} else {
		last := len(e.value.List) - 1
		popped = e.value.List[last]
		e.value.List = e.value.List[:last]
	}

	s.touch(e)

	if len(e.value.List) == 0 {
		s.removeEntry(e)
	}

	s.emit(op, key)

	return popped, true, nil
}

// LPop removes and returns key's first list element. ok is false if the
// key is absent or its list is empty.
func (s *Store) LPop(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.popList("lpop", key, true)
}

// RPop removes and returns key's last list element. ok is false if the key
// is absent or its list is empty.
func (s *Store) RPop(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.popList("rpop", key, false)
}

func (s *Store) hashEntry(op string, key string, createIfMissing bool) (*entry, error) {
	e := s.getLive(key)

	if e == nil {
		if !createIfMissing {
			return nil, keyErr(op, key, ErrMissingKey)
		}

		e = s.insert(key, NewHashValue(nil))

		return e, nil
	}

	if e.value.Kind != ValueKindHash {
		return nil, keyErr(op, key, ErrWrongType)
	}

	return e, nil
}

// HSet sets field within key's hash to value, creating the hash if absent.
// created reports whether field is new to the hash.
func (s *Store) HSet(key string, field string, value string) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashEntry("hset", key, true)
	if err != nil {
		return false, err
	}

	if e.value.Hash == nil {
		e.value.Hash = make(map[string]string)
	}

	_, existed := e.value.Hash[field]
	e.value.Hash[field] = value
	s.touch(e)
	s.emit("hset", key, field, value)

	return !existed, nil
}

// HGet returns field's value within key's hash.
func (s *Store) HGet(key string, field string) (value string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLive(key)
	if e == nil {
		return "", false, nil
	}

	if e.value.Kind != ValueKindHash {
		return "", false, keyErr("hget", key, ErrWrongType)
	}

	s.touch(e)

	v, ok := e.value.Hash[field]

	return v, ok, nil
}

// HDel removes fields from key's hash, returning the count actually
// removed. A hash left empty by the removal is deleted outright.
func (s *Store) HDel(key string, fields ...string) (removed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLive(key)
	if e == nil {
		return 0, nil
	}

	if e.value.Kind != ValueKindHash {
		return 0, keyErr("hdel", key, ErrWrongType)
	}

	for _, field := range fields {
		if _, ok := e.value.Hash[field]; ok {
			delete(e.value.Hash, field)
			removed++
		}
	}

	s.touch(e)

	if len(e.value.Hash) == 0 {
		s.removeEntry(e)
	}

	if removed > 0 {
		s.emit("hdel", append([]string{key}, fields...)...)
	}

	return removed, nil
}

// HGetAll returns a copy of key's hash fields.
func (s *Store) HGetAll(key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLive(key)
	if e == nil {
		return map[string]string{}, nil
	}

	if e.value.Kind != ValueKindHash {
		return nil, keyErr("hgetall", key, ErrWrongType)
	}

	s.touch(e)

	out := make(map[string]string, len(e.value.Hash))
	for k, v := range e.value.Hash {
		out[k] = v
	}

	return out, nil
}

// HIncrBy adds delta to field's integer value within key's hash, creating
// the hash and/or field as "0" first if absent.
func (s *Store) HIncrBy(key string, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashEntry("hincrby", key, true)
	if err != nil {
		return 0, err
	}

	if e.value.Hash == nil {
		e.value.Hash = make(map[string]string)
	}

	var current int64

	if raw, ok := e.value.Hash[field]; ok {
		parsed, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return 0, keyErr("hincrby", key+"."+field, ErrNotInteger)
		}

		current = parsed
	}

	next := current + delta
	e.value.Hash[field] = strconv.FormatInt(next, 10)
	s.touch(e)
	s.emit("hincrby", key, field, strconv.FormatInt(delta, 10))

	return next, nil
}

// Keys returns up to cursor.Limit live keys in ascending order, starting
// after cursor.Offset (exclusive) when set, plus the offset to resume from.
// A nil returned cursor means there are no more keys.
func (s *Store) Keys(cursor *cursors.Cursor) ([]string, *string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	all := make([]string, 0, len(s.entries))

	for k, e := range s.entries {
		if e.expired(now) {
			continue
		}

		all = append(all, k)
	}

	sortStrings(all)

	start := 0

	if cursor != nil && cursor.Offset != nil {
		start = upperBound(all, *cursor.Offset)
	}

	limit := 20
	if cursor != nil && cursor.Limit > 0 {
		limit = cursor.Limit
	}

	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	page := all[start:end]

	var next *string

	if end < len(all) {
		last := page[len(page)-1]
		next = &last
	}

	return page, next, nil
}

// FlushAll removes every key, TTL, and pub/sub subscriber set. Subscription
// handles taken out before the flush become inert: Unsubscribe on one is a
// harmless no-op afterward, since its channel no longer has any record of it.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.recency = list.New()
	h := make(ttlHeap, 0)
	s.ttlHeap = &h
	s.channels = make(map[string]map[*Subscription]struct{})

	s.emit("flushall")
}

// Len reports the number of live keys (expired entries not yet swept still
// count until the next access or Expirer sweep observes them).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// sweepExpired is called by Expirer; it removes every entry whose deadline
// has passed as of now and returns the keys removed.
func (s *Store) sweepExpired(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string

	for {
		e := s.ttlHeap.peekTTL()
		if e == nil || e.expiresAt.After(now) {
			break
		}

		s.removeEntry(e)
		removed = append(removed, e.key)
	}

	return removed
}

// nextDeadline returns the soonest scheduled expiry, if any.
func (s *Store) nextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ttlHeap.peekTTL()
	if e == nil {
		return time.Time{}, false
	}

	return *e.expiresAt, true
}
