package appcontext

import (
	"context"
	"fmt"
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/connfx"
	"github.com/flashcache/flashcache/pkg/ajan/logfx"
	"github.com/flashcache/flashcache/pkg/kvengine"
)

// storeConnection adapts a *kvengine.Store to connfx.Connection so a shard
// can be discovered through the registry (health checks, capability
// lookups) the same way any other connfx-managed resource is.
type storeConnection struct {
	store *kvengine.Store
	state connfx.ConnectionState
}

func (c *storeConnection) GetBehaviors() []connfx.ConnectionBehavior {
	return []connfx.ConnectionBehavior{connfx.ConnectionBehaviorStateful}
}

func (c *storeConnection) GetCapabilities() []connfx.ConnectionCapability {
	return []connfx.ConnectionCapability{connfx.ConnectionCapabilityKeyValue}
}

func (c *storeConnection) GetProtocol() string { return "store" }

func (c *storeConnection) GetState() connfx.ConnectionState { return c.state }

func (c *storeConnection) HealthCheck(_ context.Context) *connfx.HealthStatus {
	return &connfx.HealthStatus{ //nolint:exhaustruct
		Timestamp: time.Now(),
		State:     connfx.ConnectionStateReady,
		Message:   fmt.Sprintf("%d keys", c.store.Len()),
	}
}

func (c *storeConnection) Close(_ context.Context) error {
	c.state = connfx.ConnectionStateDisconnected

	return nil
}

func (c *storeConnection) GetRawConnection() any { return c.store }

// storeFactory builds one kvengine.Store per connfx target, keyed by the
// target's "shard_name" property, so shards are configurable the same way
// any other connfx-managed dependency is.
type storeFactory struct {
	logger *logfx.Logger
}

func (f *storeFactory) GetProtocol() string { return "store" }

func (f *storeFactory) CreateConnection(_ context.Context, config *connfx.ConfigTarget) (connfx.Connection, error) {
	shardName, _ := config.Properties["shard_name"].(string)
	if shardName == "" {
		shardName = config.Host
	}

	opts := []kvengine.Option{kvengine.WithLogger(f.logger)}

	if maxEntries, ok := config.Properties["max_entries"].(int); ok && maxEntries > 0 {
		opts = append(opts, kvengine.WithMaxEntries(maxEntries))
	}

	store := kvengine.NewStore(shardName, opts...)

	return &storeConnection{store: store, state: connfx.ConnectionStateReady}, nil
}

// replicationSlaveConnection adapts a *replication.Slave's identity to
// connfx.Connection for the master-side replication fan-out bookkeeping;
// the live outbound transport itself is owned by replication.Master.
type replicationSlaveConnection struct {
	slaveID string
	master  replicationHealthSource
}

// replicationHealthSource is satisfied by *AppContext, aggregating slave
// IDs across every shard's *replication.Master; kept as a narrow interface
// here so this file doesn't need to import the replication package just to
// ask "is this slave still connected".
type replicationHealthSource interface {
	SlaveIDs() []string
}

func (c *replicationSlaveConnection) GetBehaviors() []connfx.ConnectionBehavior {
	return []connfx.ConnectionBehavior{connfx.ConnectionBehaviorStreaming}
}

func (c *replicationSlaveConnection) GetCapabilities() []connfx.ConnectionCapability {
	return []connfx.ConnectionCapability{connfx.ConnectionCapabilityReplication}
}

func (c *replicationSlaveConnection) GetProtocol() string { return "replication-slave" }

func (c *replicationSlaveConnection) GetState() connfx.ConnectionState {
	for _, id := range c.master.SlaveIDs() {
		if id == c.slaveID {
			return connfx.ConnectionStateLive
		}
	}

	return connfx.ConnectionStateDisconnected
}

func (c *replicationSlaveConnection) HealthCheck(_ context.Context) *connfx.HealthStatus {
	state := c.GetState()

	return &connfx.HealthStatus{ //nolint:exhaustruct
		Timestamp: time.Now(),
		State:     state,
		Message:   "slave_id=" + c.slaveID,
	}
}

func (c *replicationSlaveConnection) Close(_ context.Context) error { return nil }

func (c *replicationSlaveConnection) GetRawConnection() any { return c.slaveID }

// replicationSlaveFactory builds a replicationSlaveConnection per tracked
// slave process, so a spawned slave shows up in the registry's health
// check and capability lookups the same way a shard store does.
type replicationSlaveFactory struct {
	master replicationHealthSource
}

func (f *replicationSlaveFactory) GetProtocol() string { return "replication-slave" }

func (f *replicationSlaveFactory) CreateConnection(
	_ context.Context,
	config *connfx.ConfigTarget,
) (connfx.Connection, error) {
	slaveID, _ := config.Properties["slave_id"].(string)

	return &replicationSlaveConnection{slaveID: slaveID, master: f.master}, nil
}
