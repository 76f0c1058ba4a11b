package appcontext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/configfx"
	"github.com/flashcache/flashcache/pkg/ajan/connfx"
	"github.com/flashcache/flashcache/pkg/ajan/logfx"
	"github.com/flashcache/flashcache/pkg/ajan/processfx"
	"github.com/flashcache/flashcache/pkg/kvengine"
	"github.com/flashcache/flashcache/pkg/replication"
	"github.com/flashcache/flashcache/pkg/router"
)

var ErrInitFailed = errors.New("failed to initialize app context")

// AppContext wires together one flashcached node: its shards, the router
// in front of them, their snapshot/expiry workers, and (if enabled) the
// replication master and the supervisor that spawns slave processes.
type AppContext struct {
	Config *AppConfig
	Logger *logfx.Logger
	Conn   *connfx.Registry

	Shards       []*kvengine.Store
	Snapshotters []*kvengine.Snapshotter
	Expirers     []*kvengine.Expirer
	Router       *router.Router

	// Masters holds one replication master per shard, each on its own
	// derived address (see replication.ShardAddrs), so the wire protocol
	// never needs to tag a frame with which shard it belongs to.
	Masters    []*replication.Master
	Supervisor *replication.SlaveSupervisor

	// ReplicationRole is "none", "master", or "slave", for NodeInfo
	// reporting; Init sets it to "none"/"master" from config, and the
	// standalone slave binary sets it to "slave" directly since a slave's
	// AppContext is built by hand rather than through Init.
	ReplicationRole string
}

func New() *AppContext {
	return &AppContext{} //nolint:exhaustruct
}

func (a *AppContext) Init(ctx context.Context) error { //nolint:cyclop
	cl := configfx.NewConfigManager()

	a.Config = &AppConfig{} //nolint:exhaustruct

	if err := cl.LoadDefaults(a.Config); err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	a.Logger = logfx.NewLogger(logfx.WithConfig(&a.Config.Log), logfx.WithWriter(os.Stdout))

	a.Logger.InfoContext(
		ctx, "initializing node",
		"name", a.Config.AppName, "environment", a.Config.AppEnv, "shard_count", a.Config.ShardCount,
	)

	a.Conn = connfx.NewRegistry()
	a.Conn.RegisterFactory(&storeFactory{logger: a.Logger})

	if err := os.MkdirAll(a.Config.Snapshot.Dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("%w: create snapshot dir: %w", ErrInitFailed, err)
	}

	for i := range a.Config.ShardCount {
		shardName := "shard-" + strconv.Itoa(i)
		shardConfig := a.Config.ShardDefaults.ForShard(shardName)

		target := &connfx.ConfigTarget{ //nolint:exhaustruct
			Protocol: "store",
			Properties: map[string]any{
				"shard_name":  shardName,
				"max_entries": shardConfig.MaxEntries,
			},
		}

		if _, err := a.Conn.AddConnection(ctx, shardName, target); err != nil {
			return fmt.Errorf("%w: add shard connection %s: %w", ErrInitFailed, shardName, err)
		}

		store, err := connfx.GetTypedConnection[*kvengine.Store](a.Conn, shardName)
		if err != nil {
			return fmt.Errorf("%w: resolve shard store %s: %w", ErrInitFailed, shardName, err)
		}

		snapshotPath := shardConfig.ResolvedSnapshotPath(a.Config.Snapshot.Dir)
		snap := kvengine.NewSnapshotter(store, snapshotPath, a.Logger)

		if err := snap.Load(); err != nil {
			return fmt.Errorf("%w: load snapshot for %s: %w", ErrInitFailed, shardName, err)
		}

		a.Shards = append(a.Shards, store)
		a.Snapshotters = append(a.Snapshotters, snap)
		a.Expirers = append(a.Expirers, kvengine.NewExpirer(store, a.Logger))
	}

	a.Router = router.New(a.Shards)
	a.ReplicationRole = "none"

	if a.Config.Replication.Enabled {
		a.ReplicationRole = "master"

		shardAddrs, err := replication.ShardAddrs(a.Config.Replication.MasterAddr, a.Config.ShardCount)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInitFailed, err)
		}

		writeStall := time.Duration(a.Config.Replication.WriteStallMillis) * time.Millisecond

		for i, store := range a.Shards {
			a.Masters = append(a.Masters, replication.NewMaster(shardAddrs[i], store, writeStall, a.Logger))
		}

		a.Supervisor = replication.NewSlaveSupervisor(
			a.Config.Replication.SlaveBinaryPath,
			a.Config.Replication.MasterAddr,
			a.Logger,
		)

		a.Conn.RegisterFactory(&replicationSlaveFactory{master: a})
	}

	return nil
}

// TrackSlaveConnection registers a spawned slave process with the
// connection registry so its liveness surfaces through health checks.
func (a *AppContext) TrackSlaveConnection(ctx context.Context, slaveID string) error {
	target := &connfx.ConfigTarget{ //nolint:exhaustruct
		Protocol:   "replication-slave",
		Properties: map[string]any{"slave_id": slaveID},
	}

	if _, err := a.Conn.AddConnection(ctx, slaveID, target); err != nil {
		return fmt.Errorf("track slave connection %s: %w", slaveID, err)
	}

	return nil
}

// UntrackSlaveConnection forgets a slave process that has been stopped or
// removed.
func (a *AppContext) UntrackSlaveConnection(ctx context.Context, slaveID string) {
	if err := a.Conn.RemoveConnection(ctx, slaveID); err != nil {
		a.Logger.WarnContext(ctx, "failed to untrack slave connection", "slave_id", slaveID, "error", err)
	}
}

// StartBackgroundWork registers every supervised goroutine (per-shard
// expirer, per-shard periodic snapshotter, and, if enabled, the
// replication master's accept loop) on process.
func (a *AppContext) StartBackgroundWork(process *processfx.Process) {
	for i := range a.Shards {
		shardName := a.Shards[i].Name()
		expirer := a.Expirers[i]

		process.StartGoroutine("expirer-"+shardName, expirer.Run)

		snap := a.Snapshotters[i]
		interval := a.Config.ShardDefaults.ForShard(shardName).SnapshotInterval

		process.StartGoroutine("snapshotter-"+shardName, func(ctx context.Context) error {
			return runPeriodicSnapshots(ctx, snap, interval)
		})
	}

	for i, master := range a.Masters {
		shardName := a.Shards[i].Name()

		process.StartGoroutine("replication-master-"+shardName, master.ListenAndServe)
	}
}

// SlaveIDs aggregates the connected slave IDs across every shard's master,
// deduplicated by ID: a single spawned slave process mirrors every shard,
// so it shows up in every Masters[i].SlaveIDs() under the same ID.
func (a *AppContext) SlaveIDs() []string {
	seen := make(map[string]struct{})

	for _, master := range a.Masters {
		for _, id := range master.SlaveIDs() {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	return ids
}

// DisconnectSlave force-closes a slave's replication sockets across every
// shard's master, reporting whether it was connected to any of them.
func (a *AppContext) DisconnectSlave(id string) bool {
	disconnected := false

	for _, master := range a.Masters {
		if master.DisconnectSlave(id) {
			disconnected = true
		}
	}

	return disconnected
}

func runPeriodicSnapshots(ctx context.Context, snap *kvengine.Snapshotter, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final save on the way out so a graceful shutdown doesn't lose
			// writes made since the last periodic tick.
			return snap.Save()
		case <-ticker.C:
			if err := snap.Save(); err != nil {
				return err
			}
		}
	}
}
