package guildlock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockLifecycle(t *testing.T) {
	l := New(time.Hour)
	t.Cleanup(l.Shutdown)

	require.True(t, l.TryAcquire("g1", "flow-a", "u1"))
	assert.False(t, l.TryAcquire("g1", "flow-b", "u2"), "second session must be refused")
	assert.False(t, l.TryAcquire("g1", "flow-a", "u1"), "re-entry is refused too")
	assert.True(t, l.TryAcquire("g2", "flow-c", "u3"), "other guilds are independent")

	h, ok := l.Held("g1")
	require.True(t, ok)
	assert.Equal(t, "u1", h.UserID)

	assert.False(t, l.Release("g1", "flow-b"), "only the holder may release")
	assert.True(t, l.Release("g1", "flow-a"))
	_, ok = l.Held("g1")
	assert.False(t, ok)

	assert.True(t, l.TryAcquire("g1", "flow-b", "u2"))
}

func TestForceRelease(t *testing.T) {
	l := New(time.Hour)
	t.Cleanup(l.Shutdown)

	require.True(t, l.TryAcquire("g1", "flow-a", "u1"))
	h, ok := l.ForceRelease("g1")
	require.True(t, ok)
	assert.Equal(t, "flow-a", h.Token)

	_, ok = l.ForceRelease("g1")
	assert.False(t, ok)
	assert.True(t, l.TryAcquire("g1", "flow-b", "u2"))
}

func TestLockExpiresAsSafetyValve(t *testing.T) {
	var expired atomic.Int32
	l := New(50*time.Millisecond, WithExpireFunc(func(h Holder) {
		if h.GuildID == "g1" {
			expired.Add(1)
		}
	}))
	t.Cleanup(l.Shutdown)

	require.True(t, l.TryAcquire("g1", "flow-a", "u1"))
	require.Eventually(t, func() bool {
		return l.TryAcquire("g1", "flow-b", "u2")
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return expired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestReleaseDoesNotReportExpiry(t *testing.T) {
	var expired atomic.Int32
	l := New(time.Hour, WithExpireFunc(func(Holder) { expired.Add(1) }))
	t.Cleanup(l.Shutdown)

	require.True(t, l.TryAcquire("g1", "flow-a", "u1"))
	require.True(t, l.Release("g1", "flow-a"))
	assert.Zero(t, expired.Load())
}

func TestRefreshRequiresHolder(t *testing.T) {
	l := New(time.Hour)
	t.Cleanup(l.Shutdown)

	require.True(t, l.TryAcquire("g1", "flow-a", "u1"))
	before, _ := l.Held("g1")
	assert.WithinDuration(t, before.AcquiredAt.Add(time.Hour), before.ExpiresAt, time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.Refresh("g1", "flow-a"))
	after, _ := l.Held("g1")
	assert.True(t, after.ExpiresAt.After(before.ExpiresAt), "refresh must push the expiry forward")
	assert.Equal(t, before.AcquiredAt, after.AcquiredAt)

	assert.False(t, l.Refresh("g1", "flow-b"))
	assert.False(t, l.Refresh("g2", "flow-a"))
}

func TestSnapshotAndShutdown(t *testing.T) {
	l := New(time.Hour)

	require.True(t, l.TryAcquire("g1", "flow-a", "u1"))
	time.Sleep(time.Millisecond)
	require.True(t, l.TryAcquire("g2", "flow-b", "u2"))

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "g1", snap[0].GuildID)
	assert.Equal(t, "g2", snap[1].GuildID)

	l.Shutdown()
	assert.Empty(t, l.Snapshot())
	assert.False(t, l.TryAcquire("g3", "flow-c", "u3"))
}

func TestConcurrentAcquireHasOneWinner(t *testing.T) {
	l := New(time.Hour)
	t.Cleanup(l.Shutdown)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if l.TryAcquire("g1", "flow", "u") {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
