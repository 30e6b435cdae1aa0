// Package cooldown rate limits commands per user and guild.
package cooldown

import (
	"sync"
	"time"

	"github.com/small-frappuccino/guildsettings/internal/cache"
)

// Tracker remembers when each (command, guild, user) may run again.
type Tracker struct {
	mu      sync.Mutex
	entries *cache.TTLMap[time.Time]
	now     func() time.Time
}

// NewTracker sweeps expired cooldowns every gcInterval.
func NewTracker(gcInterval time.Duration) *Tracker {
	return newTracker(gcInterval, time.Now)
}

func newTracker(gcInterval time.Duration, now func() time.Time) *Tracker {
	return &Tracker{
		entries: cache.NewTTLMap[time.Time]("cooldowns", 0, gcInterval, cache.WithClock[time.Time](now)),
		now:     now,
	}
}

func key(command, userID, guildID string) string {
	return command + ":" + guildID + ":" + userID
}

// Check reports the remaining wait for the caller, if any.
func (t *Tracker) Check(command, userID, guildID string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining(key(command, userID, guildID))
}

// Start puts the caller on cooldown for d. A non-positive d is a no-op.
func (t *Tracker) Start(command, userID, guildID string, d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries.Set(key(command, userID, guildID), t.now().Add(d), d)
}

// Allow checks and, when permitted, starts the cooldown atomically, so
// concurrent calls from the same user let exactly one through.
func (t *Tracker) Allow(command, userID, guildID string, d time.Duration) (time.Duration, bool) {
	k := key(command, userID, guildID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if remaining, active := t.remaining(k); active {
		return remaining, false
	}
	if d > 0 {
		t.entries.Set(k, t.now().Add(d), d)
	}
	return 0, true
}

func (t *Tracker) remaining(k string) (time.Duration, bool) {
	until, ok := t.entries.Get(k)
	if !ok {
		return 0, false
	}
	remaining := until.Sub(t.now())
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// Close stops the sweep loop.
func (t *Tracker) Close() { t.entries.Close() }
