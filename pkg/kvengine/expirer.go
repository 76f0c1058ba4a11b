package kvengine

import (
	"context"
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/logfx"
)

// Expirer actively sweeps a Store's expired keys in the background, rather
// than relying solely on lazy expiration at access time. It sleeps until
// the soonest scheduled deadline (or a fallback poll interval, if that is
// sooner) and wakes early when Notify is called. Store does not call
// Notify itself, so a deadline set while the loop sleeps is picked up at
// the next wake.
type Expirer struct {
	store *Store

	pollInterval time.Duration
	wake         chan struct{}

	logger *logfx.Logger
}

// DefaultPollInterval bounds how long Expirer will sleep between sweeps, so
// a deadline set without a Notify call is swept at most this long after
// the loop's next wake.
const DefaultPollInterval = time.Second

func NewExpirer(store *Store, logger *logfx.Logger) *Expirer {
	return &Expirer{
		store: store,

		pollInterval: DefaultPollInterval,
		wake:         make(chan struct{}, 1),

		logger: logger,
	}
}

// Notify wakes the Expirer's loop early, for a caller that has just set a
// deadline sooner than whatever the loop was already sleeping toward.
// Non-blocking: a pending wake is coalesced.
func (x *Expirer) Notify() {
	select {
	case x.wake <- struct{}{}:
	default:
	}
}

// Run sweeps expired keys until ctx is cancelled. Intended to be started
// via processfx.Process.StartGoroutine.
func (x *Expirer) Run(ctx context.Context) error {
	timer := time.NewTimer(x.pollInterval)
	defer timer.Stop()

	for {
		removed := x.store.sweepExpired(time.Now())
		if len(removed) > 0 {
			x.logger.DebugContext(ctx, "expirer swept keys", "shard", x.store.name, "count", len(removed))
		}

		sleep := x.pollInterval

		if deadline, ok := x.store.nextDeadline(); ok {
			if until := time.Until(deadline); until < sleep {
				sleep = max(until, 0)
			}
		}

		timer.Reset(sleep)

		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck
		case <-timer.C:
		case <-x.wake:
			if !timer.Stop() {
				<-timer.C
			}
		}
	}
}
