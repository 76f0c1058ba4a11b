// Command flashcached runs one node of a flashcache cluster: a fixed set of
// in-memory shards behind a consistent-hash router, their snapshot and
// expiry workers, an admin/observability HTTP surface, and, if configured,
// a replication master that serves slave processes spawned by this node.
package main

import (
	"context"
	"log/slog"

	"github.com/flashcache/flashcache/pkg/ajan/processfx"
	"github.com/flashcache/flashcache/pkg/node/adapters/appcontext"
	"github.com/flashcache/flashcache/pkg/node/adapters/http"
)

func main() {
	baseCtx := context.Background()

	appCtx := appcontext.New()

	if err := appCtx.Init(baseCtx); err != nil {
		panic(err)
	}

	process := processfx.New(baseCtx, appCtx.Logger)

	appCtx.StartBackgroundWork(process)

	process.StartGoroutine("http-server", func(ctx context.Context) error {
		cleanup, err := http.Run(ctx, appCtx)
		if err != nil {
			appCtx.Logger.ErrorContext(ctx, "http server failed to start", slog.Any("error", err))

			return err
		}

		defer cleanup()

		<-ctx.Done()

		return nil
	})

	process.Wait()
	process.Shutdown()
}
