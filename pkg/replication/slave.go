package replication

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/logfx"
	"github.com/flashcache/flashcache/pkg/kvengine"
)

// DefaultReadIdleTimeout bounds how long a slave waits for a frame from the
// master before treating the link as dead, even though TCP hasn't reported
// a close yet.
const DefaultReadIdleTimeout = 30 * time.Second

// Slave connects to a single-shard Master, performs the handshake, and
// applies every command frame it receives to its local mirror of that one
// shard, in order. A cluster of n shards runs n Slaves, one per shard, each
// dialing its own shard's derived address (see ShardAddrs).
type Slave struct {
	id         string
	masterAddr string
	store      *kvengine.Store
	logger     *logfx.Logger

	readIdleTimeout time.Duration
}

// NewSlave creates a Slave that mirrors a single master shard into store.
func NewSlave(id string, masterAddr string, store *kvengine.Store, logger *logfx.Logger) *Slave {
	return &Slave{
		id:         id,
		masterAddr: masterAddr,
		store:      store,
		logger:     logger,

		readIdleTimeout: DefaultReadIdleTimeout,
	}
}

// Run connects to the master and applies frames until ctx is cancelled or
// the connection is lost, at which point it returns an error so a
// supervising loop can decide whether to reconnect.
func (sl *Slave) Run(ctx context.Context) error {
	dialer := net.Dialer{} //nolint:exhaustruct

	conn, err := dialer.DialContext(ctx, "tcp", sl.masterAddr)
	if err != nil {
		return fmt.Errorf("%w: dial master %s: %w", kvengine.ErrTransport, sl.masterAddr, err)
	}

	defer conn.Close() //nolint:errcheck

	go func() {
		<-ctx.Done()
		conn.Close() //nolint:errcheck
	}()

	writer := newFrameWriter(conn)
	if err := writer.write(handshakeFrame(sl.id)); err != nil {
		return fmt.Errorf("%w: handshake: %w", kvengine.ErrTransport, err)
	}

	sl.logger.InfoContext(
		ctx, "slave connected to master",
		"slave_id", sl.id, "master_addr", sl.masterAddr, "shard", sl.store.Name(),
	)

	reader := newFrameReader(conn)

	for {
		if sl.readIdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(sl.readIdleTimeout)); err != nil {
				return fmt.Errorf("%w: set read deadline: %w", kvengine.ErrTransport, err)
			}
		}

		f, err := reader.read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() //nolint:wrapcheck
			}

			return fmt.Errorf("%w: read frame: %w", kvengine.ErrTransport, err)
		}

		if f.Type == string(frameHandshake) || f.Command == "" {
			continue
		}

		if err := sl.store.Apply(f.toOp()); err != nil {
			sl.logger.WarnContext(
				ctx, "slave failed to apply op",
				"slave_id", sl.id, "command", f.Command, "error", err,
			)
		}
	}
}
