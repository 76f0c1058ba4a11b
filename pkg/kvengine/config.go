package kvengine

import (
	"path/filepath"
	"time"
)

// DefaultMaxEntries matches the spec's per-shard default capacity.
const DefaultMaxEntries = 1000

// DefaultSnapshotInterval matches the spec's default periodic save cadence.
const DefaultSnapshotInterval = 30 * time.Second

// Config configures one Store instance (one shard).
type Config struct {
	// ShardName identifies this Store; used in log lines and as the default
	// snapshot file name (data_<ShardName>.json).
	ShardName string `conf:"shard_name"`

	// MaxEntries bounds the entry count. configfx parses it as a plain
	// decimal integer; shorthand such as "1k" is not accepted.
	MaxEntries int `conf:"max_entries" default:"1000"`

	// SnapshotPath is the file Snapshotter reads/writes. Defaults to
	// "data_<ShardName>.json" when empty.
	SnapshotPath string `conf:"snapshot_path"`

	// SnapshotInterval is how often the Store requests a periodic save.
	SnapshotInterval time.Duration `conf:"snapshot_interval" default:"30s"`
}

func (c Config) resolvedSnapshotPath() string {
	if c.SnapshotPath != "" {
		return c.SnapshotPath
	}

	return "data_" + c.ShardName + ".json"
}

func (c Config) resolvedMaxEntries() int {
	if c.MaxEntries <= 0 {
		return DefaultMaxEntries
	}

	return c.MaxEntries
}

func (c Config) resolvedSnapshotInterval() time.Duration {
	if c.SnapshotInterval <= 0 {
		return DefaultSnapshotInterval
	}

	return c.SnapshotInterval
}

// ForShard returns a copy of c scoped to one shard: name overrides
// ShardName, SnapshotPath is cleared so each shard falls back to its own
// data_<name>.json, and MaxEntries and SnapshotInterval keep their
// configured values (falling back to their defaults when unset), for
// callers that bootstrap several shards from one shared Config template.
func (c Config) ForShard(name string) Config {
	return Config{
		ShardName:        name,
		MaxEntries:       c.resolvedMaxEntries(),
		SnapshotPath:     "",
		SnapshotInterval: c.resolvedSnapshotInterval(),
	}
}

// ResolvedSnapshotPath returns SnapshotPath, or "data_<ShardName>.json"
// under dir when SnapshotPath is unset.
func (c Config) ResolvedSnapshotPath(dir string) string {
	if c.SnapshotPath != "" {
		return c.SnapshotPath
	}

	return filepath.Join(dir, c.resolvedSnapshotPath())
}
