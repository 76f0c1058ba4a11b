package kvengine

import "errors"

// Error taxonomy for Store operations. Every per-operation error is one of
// these sentinels, wrapped with the offending key/field for context.
var (
	// ErrMissingKey is returned by operations that require an existing key
	// (e.g. rename's source) when the key is absent.
	ErrMissingKey = errors.New("missing key")

	// ErrWrongType is returned when an operation is applied to an entry of
	// an incompatible Value variant.
	ErrWrongType = errors.New("wrong type")

	// ErrNotInteger is returned by incr/decr/hincrby when the target value
	// cannot be parsed as a signed integer.
	ErrNotInteger = errors.New("not an integer")

	// ErrCapacityExhausted should never surface in normal operation:
	// eviction guarantees forward progress. It surfaces only when a
	// configuration error pins more entries than maxEntries allows.
	ErrCapacityExhausted = errors.New("capacity exhausted")

	// ErrTransport covers replication link failures.
	ErrTransport = errors.New("replication transport error")

	// ErrSnapshotCorrupt is returned when a snapshot file fails to parse.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")

	// ErrConfigError covers invalid Store configuration.
	ErrConfigError = errors.New("config error")
)
