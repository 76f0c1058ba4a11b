package replication

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/logfx"
	"github.com/flashcache/flashcache/pkg/kvengine"
)

const outboxBuffer = 256

// Master listens for slave connections on behalf of a single shard, sends
// each one a full initial sync of that shard's current contents, and then
// fans out every subsequent mutation to all connected slaves in the order
// the store applied them. A node running n shards runs n independent
// Masters, one per shard, each on its own derived address (see ShardAddrs),
// so the wire frame never needs to say which shard a record belongs to.
type Master struct {
	addr   string
	store  *kvengine.Store
	logger *logfx.Logger

	// writeStallMillis bounds how long a blocked slave send is allowed to
	// back up the mutation path before that slave is dropped outright. The
	// default, 0, drops the slave on the very first blocked write without
	// waiting at all.
	writeStallMillis time.Duration

	mu     sync.Mutex
	slaves map[string]*liveSlave
}

type liveSlave struct {
	id     string
	conn   net.Conn
	outbox chan frame
}

// NewMaster wires itself as the mutation observer of store. writeStall is
// the configured replicationWriteStallMillis deadline; 0 means "drop a
// slave on its first blocked write" (the documented default).
func NewMaster(addr string, store *kvengine.Store, writeStall time.Duration, logger *logfx.Logger) *Master {
	m := &Master{ //nolint:exhaustruct
		addr:             addr,
		store:            store,
		logger:           logger,
		writeStallMillis: writeStall,

		slaves: make(map[string]*liveSlave),
	}

	store.SetMutationFunc(m.broadcast)

	return m
}

// SlaveIDs returns the currently connected slave IDs.
func (m *Master) SlaveIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.slaves))
	for id := range m.slaves {
		ids = append(ids, id)
	}

	return ids
}

// DisconnectSlave force-closes a connected slave's socket, simulating a
// transport failure without touching the slave process itself.
func (m *Master) DisconnectSlave(id string) bool {
	m.mu.Lock()
	slave, ok := m.slaves[id]
	m.mu.Unlock()

	if !ok {
		return false
	}

	slave.conn.Close() //nolint:errcheck

	return true
}

func (m *Master) broadcast(op string, args []string) {
	f := commandFrame(kvengine.Op{Command: op, Args: args})

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, slave := range m.slaves {
		if m.trySend(slave, f) {
			continue
		}

		m.logger.WarnContext(
			context.Background(), "slave write stalled, dropping connection",
			"slave_id", id, "command", op, "write_stall_millis", m.writeStallMillis.Milliseconds(),
		)

		slave.conn.Close() //nolint:errcheck
		delete(m.slaves, id)
	}
}

// trySend delivers f to slave's outbox without ever blocking the mutation
// path by more than m.writeStallMillis (0 means never block at all). It
// reports whether the send succeeded.
func (m *Master) trySend(slave *liveSlave, f frame) bool {
	if m.writeStallMillis <= 0 {
		select {
		case slave.outbox <- f:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(m.writeStallMillis)
	defer timer.Stop()

	select {
	case slave.outbox <- f:
		return true
	case <-timer.C:
		return false
	}
}

// ListenAndServe accepts slave connections until ctx is cancelled.
func (m *Master) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("replication master listen: %w", err)
	}

	defer listener.Close() //nolint:errcheck

	go func() {
		<-ctx.Done()
		listener.Close() //nolint:errcheck
	}()

	m.logger.InfoContext(ctx, "replication master listening", "addr", m.addr, "shard", m.store.Name())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() //nolint:wrapcheck
			}

			return fmt.Errorf("replication master accept: %w", err)
		}

		go m.handleConn(ctx, conn)
	}
}

func (m *Master) handleConn(ctx context.Context, conn net.Conn) {
	reader := newFrameReader(conn)

	hello, err := reader.read()
	if err != nil || hello.Type != string(frameHandshake) || hello.SlaveID == "" {
		m.logger.WarnContext(ctx, "replication handshake failed", "error", err)
		conn.Close() //nolint:errcheck

		return
	}

	m.mu.Lock()

	// The outbox is sized to hold the whole initial sync on top of the
	// usual live-mutation buffer, so no replayed op is ever dropped.
	ops := m.store.ReplayOps()
	slave := &liveSlave{id: hello.SlaveID, conn: conn, outbox: make(chan frame, outboxBuffer+len(ops))}
	m.slaves[slave.id] = slave

	for _, op := range ops {
		slave.outbox <- commandFrame(op)
	}

	m.mu.Unlock()

	m.logger.InfoContext(ctx, "slave connected", "slave_id", slave.id, "remote_addr", conn.RemoteAddr().String())

	done := make(chan struct{})

	go m.writeLoop(slave, done)

	m.drainUntilClosed(conn)

	close(done)
	m.unregister(slave.id)
	conn.Close() //nolint:errcheck

	m.logger.InfoContext(ctx, "slave disconnected", "slave_id", slave.id)
}

func (m *Master) writeLoop(slave *liveSlave, done <-chan struct{}) {
	writer := newFrameWriter(slave.conn)

	for {
		select {
		case <-done:
			return
		case f := <-slave.outbox:
			if err := writer.write(f); err != nil {
				return
			}
		}
	}
}

// drainUntilClosed blocks reading (and discarding) from conn until it
// closes or errors; slaves don't send anything after the handshake, but
// reading keeps the connection's death detectable.
func (m *Master) drainUntilClosed(conn net.Conn) {
	reader := newFrameReader(conn)

	for {
		if _, err := reader.read(); err != nil {
			return
		}
	}
}

func (m *Master) unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.slaves, id)
}

// ErrNotConnected is returned by operations targeting a slave ID the master
// doesn't currently have a connection for.
var ErrNotConnected = errors.New("replication: slave not connected")
