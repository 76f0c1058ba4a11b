package kvengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcache/flashcache/pkg/ajan/logfx"
)

func TestStore_SweepExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := func() time.Time { return now }

	store := NewStore("shard-0", WithClock(clock))
	store.Set("a", "1")
	store.Set("b", "2")

	require.NoError(t, store.Expire("a", time.Second))
	require.NoError(t, store.Expire("b", time.Hour))

	removed := store.sweepExpired(now.Add(2 * time.Second))
	assert.Equal(t, []string{"a"}, removed)
	assert.Equal(t, 1, store.Len())

	deadline, ok := store.nextDeadline()
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(time.Hour), deadline, 0)
}

func TestExpirer_Run_SweepsOnSchedule(t *testing.T) {
	t.Parallel()

	store := NewStore("shard-0")
	store.Set("a", "1")
	require.NoError(t, store.Expire("a", 10*time.Millisecond))

	expirer := NewExpirer(store, logfx.NewLogger())
	expirer.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = expirer.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return !store.Exists("a")
	}, 150*time.Millisecond, 5*time.Millisecond)

	cancel()
	<-done
}
