package kvengine

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/logfx"
)

// storeRecord is one [key, value] pair in the snapshot's "store" array;
// value is whichever of Value's variants the entry holds, encoded as plain
// JSON (a string, an array of strings, or an object of string fields) —
// the same shape any other conforming implementation's snapshot reader
// expects, not a flashcache-specific envelope.
type storeRecord struct {
	Key   string
	Value Value
}

func (r storeRecord) MarshalJSON() ([]byte, error) {
	var raw any

	switch r.Value.Kind {
	case ValueKindList:
		raw = r.Value.List
	case ValueKindHash:
		raw = r.Value.Hash
	default:
		raw = r.Value.Str
	}

	data, err := json.Marshal([2]any{r.Key, raw})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot store record: %w", err)
	}

	return data, nil
}

func (r *storeRecord) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage

	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("unmarshal snapshot store record: %w", err)
	}

	if err := json.Unmarshal(tuple[0], &r.Key); err != nil {
		return fmt.Errorf("unmarshal snapshot store record key: %w", err)
	}

	r.Value = valueFromRaw(tuple[1])

	return nil
}

// valueFromRaw infers a Value's kind from the shape of its JSON encoding: a
// string, an array of strings, or an object of string fields.
func valueFromRaw(raw json.RawMessage) Value {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return NewStringValue(str)
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return NewListValue(items)
	}

	var hash map[string]string
	if err := json.Unmarshal(raw, &hash); err == nil {
		return NewHashValue(hash)
	}

	return NewStringValue("")
}

// expiryRecord is one [key, absoluteExpiryMillis] pair in the snapshot's
// "expiry" array.
type expiryRecord struct {
	Key    string
	Millis int64
}

func (r expiryRecord) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal([2]any{r.Key, r.Millis})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot expiry record: %w", err)
	}

	return data, nil
}

func (r *expiryRecord) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage

	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("unmarshal snapshot expiry record: %w", err)
	}

	if err := json.Unmarshal(tuple[0], &r.Key); err != nil {
		return fmt.Errorf("unmarshal snapshot expiry record key: %w", err)
	}

	if err := json.Unmarshal(tuple[1], &r.Millis); err != nil {
		return fmt.Errorf("unmarshal snapshot expiry record millis: %w", err)
	}

	return nil
}

// snapshotFile is a Store's entries and their absolute expirations, kept as
// two parallel arrays rather than one combined record per key so the
// format matches any other conforming implementation's snapshot reader
// bit-for-bit.
type snapshotFile struct {
	Store  []storeRecord  `json:"store"`
	Expiry []expiryRecord `json:"expiry"`
}

// Snapshotter persists a Store's contents to a JSON file and restores it on
// startup, coalescing overlapping Save calls into a single write.
type Snapshotter struct {
	store *Store
	path  string

	logger *logfx.Logger

	mu      sync.Mutex
	saving  bool
	pending bool
}

func NewSnapshotter(store *Store, path string, logger *logfx.Logger) *Snapshotter {
	return &Snapshotter{
		store: store,
		path:  path,

		logger: logger,

		saving:  false,
		pending: false,
	}
}

// Save writes the store's current contents to path atomically (temp file +
// rename). If a save is already in flight, this call is coalesced: the
// in-flight save is marked to re-run once more on completion, and this call
// returns immediately without writing twice concurrently.
func (snap *Snapshotter) Save() error {
	snap.mu.Lock()

	if snap.saving {
		snap.pending = true
		snap.mu.Unlock()

		return nil
	}

	snap.saving = true
	snap.mu.Unlock()

	var err error

	for {
		err = snap.saveOnce()

		snap.mu.Lock()

		if !snap.pending {
			snap.saving = false
			snap.mu.Unlock()

			break
		}

		snap.pending = false
		snap.mu.Unlock()
	}

	return err
}

func (snap *Snapshotter) saveOnce() error {
	file := snap.store.buildSnapshot()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}

	dir := filepath.Dir(snap.path)

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close() //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck

		return fmt.Errorf("write snapshot temp file: %w", writeErr)
	}

	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmpName) //nolint:errcheck

		return fmt.Errorf("close snapshot temp file: %w", closeErr)
	}

	if err := os.Rename(tmpName, snap.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck

		return fmt.Errorf("rename snapshot into place: %w", err)
	}

	snap.logger.InfoContext(context.Background(), "snapshot saved", "shard", snap.store.name, "path", snap.path)

	return nil
}

// Load restores the store's contents from path. A missing file is not an
// error: the store simply starts empty. Entries whose TTL already elapsed
// while the process was down are discarded rather than restored.
func (snap *Snapshotter) Load() error {
	data, err := os.ReadFile(snap.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("read snapshot file: %w", err)
	}

	var file snapshotFile

	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}

	discarded := snap.store.restoreSnapshot(file)

	snap.logger.InfoContext(
		context.Background(), "snapshot loaded",
		"shard", snap.store.name, "path", snap.path,
		"restored", len(file.Store)-discarded, "discarded_expired", discarded,
	)

	return nil
}

func (s *Store) buildSnapshot() snapshotFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	store := make([]storeRecord, 0, len(s.entries))

	var expiry []expiryRecord

	for key, e := range s.entries {
		if e.expired(now) {
			continue
		}

		store = append(store, storeRecord{Key: key, Value: e.value})

		if e.expiresAt != nil {
			expiry = append(expiry, expiryRecord{Key: key, Millis: e.expiresAt.UnixMilli()})
		}
	}

	return snapshotFile{Store: store, Expiry: expiry}
}

// restoreSnapshot replaces the store's contents with file's, skipping any
// entry whose expiry already elapsed, and returns how many were skipped.
func (s *Store) restoreSnapshot(file snapshotFile) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.recency = list.New()
	h := make(ttlHeap, 0)
	s.ttlHeap = &h

	expiryByKey := make(map[string]int64, len(file.Expiry))
	for _, rec := range file.Expiry {
		expiryByKey[rec.Key] = rec.Millis
	}

	now := s.clock()
	discarded := 0

	for _, rec := range file.Store {
		var expiresAt *time.Time

		if millis, ok := expiryByKey[rec.Key]; ok {
			t := time.UnixMilli(millis)
			if !now.Before(t) {
				discarded++

				continue
			}

			expiresAt = &t
		}

		e := newEntry(rec.Key, rec.Value)
		e.expiresAt = expiresAt
		s.entries[rec.Key] = e
		s.touch(e)

		if expiresAt != nil {
			s.ttlHeap.scheduleTTL(e)
		}
	}

	return discarded
}
