// Command flashcache-slave is a standalone replication slave: it dials a
// master's replication listener, mirrors its shard cluster locally by
// applying every replicated mutation, and exposes a read-oriented admin
// HTTP surface so the cluster's health can be inspected per-slave.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/flashcache/flashcache/pkg/ajan/configfx"
	"github.com/flashcache/flashcache/pkg/ajan/connfx"
	"github.com/flashcache/flashcache/pkg/ajan/logfx"
	"github.com/flashcache/flashcache/pkg/ajan/processfx"
	"github.com/flashcache/flashcache/pkg/kvengine"
	"github.com/flashcache/flashcache/pkg/node/adapters/appcontext"
	"github.com/flashcache/flashcache/pkg/node/adapters/http"
	"github.com/flashcache/flashcache/pkg/replication"
	"github.com/flashcache/flashcache/pkg/router"
)

func main() {
	var (
		id         string
		masterAddr string
		adminAddr  string
		shardCount int
	)

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "flashcache-slave",
		Short: "Run a flashcache replication slave process",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(id, masterAddr, adminAddr, shardCount)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "unique slave ID presented to the master during handshake")
	cmd.Flags().StringVar(&masterAddr, "master-addr", ":7000", "address of the replication master to dial")
	cmd.Flags().StringVar(&adminAddr, "admin-addr", ":7001", "address this slave's own admin HTTP surface listens on")
	cmd.Flags().IntVar(&shardCount, "shard-count", 3, "number of shards to mirror; must match the master's")

	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err) //nolint:forbidigo
		os.Exit(1)
	}
}

func run(id string, masterAddr string, adminAddr string, shardCount int) error {
	baseCtx := context.Background()

	cl := configfx.NewConfigManager()

	config := &appcontext.AppConfig{} //nolint:exhaustruct
	if err := cl.LoadDefaults(config); err != nil {
		return fmt.Errorf("load default config: %w", err)
	}

	config.AppName = "flashcache-slave-" + id
	config.HTTP.Addr = adminAddr
	config.ShardCount = shardCount
	config.Replication.Enabled = false

	logger := logfx.NewLogger(logfx.WithConfig(&config.Log), logfx.WithWriter(os.Stdout))

	shards := make([]*kvengine.Store, shardCount)
	for i := range shards {
		shards[i] = kvengine.NewStore("shard-"+strconv.Itoa(i), kvengine.WithLogger(logger))
	}

	appCtx := &appcontext.AppContext{ //nolint:exhaustruct
		Config:          config,
		Logger:          logger,
		Conn:            connfx.NewRegistry(),
		Shards:          shards,
		Router:          router.New(shards),
		ReplicationRole: "slave",
	}

	shardAddrs, err := replication.ShardAddrs(masterAddr, shardCount)
	if err != nil {
		return fmt.Errorf("derive per-shard master addresses: %w", err)
	}

	process := processfx.New(baseCtx, logger)

	for i, store := range shards {
		shardName := store.Name()
		slave := replication.NewSlave(id, shardAddrs[i], store, logger)

		process.StartGoroutine("replication-slave-"+shardName, slave.Run)
	}

	process.StartGoroutine("http-server", func(ctx context.Context) error {
		cleanup, err := http.Run(ctx, appCtx)
		if err != nil {
			logger.ErrorContext(ctx, "admin http server failed to start", slog.Any("error", err))

			return err
		}

		defer cleanup()

		<-ctx.Done()

		return nil
	})

	process.Wait()
	process.Shutdown()

	return nil
}
