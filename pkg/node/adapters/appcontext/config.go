package appcontext

import (
	"github.com/flashcache/flashcache/pkg/ajan"
	"github.com/flashcache/flashcache/pkg/kvengine"
)

// SnapshotConfig configures where each shard's snapshot file lives; how
// often and how large each shard is comes from ShardDefaults below, since
// both are really per-Store settings shared across every shard this node
// owns.
type SnapshotConfig struct {
	Dir string `conf:"dir" default:"./data"`
}

// ReplicationConfig configures the cluster's master replication listener
// and the pool of ports spawned slave processes use for their own admin
// surfaces.
type ReplicationConfig struct {
	Enabled            bool   `conf:"enabled"               default:"false"`
	MasterAddr         string `conf:"master_addr"           default:":7000"`
	SlaveBinaryPath    string `conf:"slave_binary_path"     default:"./flashcache-slave"`
	SlaveAdminBasePort int    `conf:"slave_admin_base_port" default:"7001"`

	// WriteStallMillis bounds how long a slave write is allowed to block the
	// mutation path before that slave is dropped. Default 0: drop on the
	// first blocked write, never block the main operation path.
	WriteStallMillis int `conf:"write_stall_millis" default:"0"`
}

// AppConfig is the root configuration for the flashcached node binary.
type AppConfig struct {
	ajan.BaseConfig

	ShardCount int `conf:"shard_count" default:"3"`

	// ShardDefaults carries the per-Store settings (capacity, snapshot
	// cadence) shared by every shard this node owns; only its ShardName
	// field is overridden per shard, at construction time.
	ShardDefaults kvengine.Config   `conf:"shard"`
	Snapshot      SnapshotConfig    `conf:"snapshot"`
	Replication   ReplicationConfig `conf:"replication"`
}
