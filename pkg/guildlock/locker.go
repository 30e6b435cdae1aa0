// Package guildlock allows one configuration session per guild at a time.
package guildlock

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/small-frappuccino/guildsettings/pkg/log"
)

// Holder describes who holds a guild's lock.
type Holder struct {
	GuildID    string    `json:"guild_id"`
	Token      string    `json:"token"`
	UserID     string    `json:"user_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	// ExpiresAt moves forward on every Refresh.
	ExpiresAt time.Time `json:"expires_at"`
}

type entry struct {
	Holder
	released atomic.Bool
}

// Locker is a process-wide advisory lock keyed by guild. Entries expire after
// the configured TTL unless refreshed, so a session that never reaches a
// terminal state cannot lock a guild out forever.
type Locker struct {
	mu       sync.Mutex
	entries  *expirable.LRU[string, *entry]
	ttl      time.Duration
	closed   bool
	onExpire func(Holder)
}

// Option configures a Locker.
type Option func(*Locker)

// WithExpireFunc is called when a lock expires without being released.
func WithExpireFunc(fn func(Holder)) Option {
	return func(l *Locker) { l.onExpire = fn }
}

// New creates a Locker whose entries live for ttl after the last acquire or refresh.
func New(ttl time.Duration, opts ...Option) *Locker {
	l := &Locker{ttl: ttl}
	for _, opt := range opts {
		opt(l)
	}
	// Runs under the LRU's own lock; must not touch l.mu.
	evicted := func(guildID string, e *entry) {
		if e.released.Load() {
			return
		}
		log.ApplicationLogger().Warn("Guild configuration lock expired without release",
			"guildID", guildID, "userID", e.UserID, "token", e.Token, "heldFor", time.Since(e.AcquiredAt).Round(time.Second))
		if l.onExpire != nil {
			l.onExpire(e.Holder)
		}
	}
	l.entries = expirable.NewLRU[string, *entry](0, evicted, ttl)
	return l
}

// TryAcquire takes the guild's lock for token. It fails if anyone, including
// the same token, already holds it.
func (l *Locker) TryAcquire(guildID, token, userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	if _, held := l.entries.Peek(guildID); held {
		return false
	}
	// Flush an expired entry the background sweep has not reached yet so its
	// expiry is still reported.
	l.entries.Remove(guildID)
	now := time.Now()
	l.entries.Add(guildID, &entry{Holder: Holder{
		GuildID:    guildID,
		Token:      token,
		UserID:     userID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(l.ttl),
	}})
	return true
}

// Release frees the guild's lock if token holds it.
func (l *Locker) Release(guildID, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries.Peek(guildID)
	if !ok || e.Token != token {
		return false
	}
	e.released.Store(true)
	l.entries.Remove(guildID)
	return true
}

// ForceRelease frees the guild's lock whoever holds it.
func (l *Locker) ForceRelease(guildID string) (Holder, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries.Peek(guildID)
	if !ok {
		return Holder{}, false
	}
	e.released.Store(true)
	l.entries.Remove(guildID)
	return e.Holder, true
}

// Refresh restarts the TTL of token's lock.
func (l *Locker) Refresh(guildID, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries.Peek(guildID)
	if !ok || e.Token != token {
		return false
	}
	e.ExpiresAt = time.Now().Add(l.ttl)
	l.entries.Add(guildID, e)
	return true
}

// Held returns the guild's current holder.
func (l *Locker) Held(guildID string) (Holder, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries.Peek(guildID)
	if !ok {
		return Holder{}, false
	}
	return e.Holder, true
}

// Snapshot lists every live lock, oldest first.
func (l *Locker) Snapshot() []Holder {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Holder
	for _, guildID := range l.entries.Keys() {
		if e, ok := l.entries.Peek(guildID); ok {
			out = append(out, e.Holder)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AcquiredAt.Before(out[j].AcquiredAt) })
	return out
}

// TTL is the lock lifetime without refresh.
func (l *Locker) TTL() time.Duration { return l.ttl }

// Shutdown drops every lock and refuses new acquisitions.
func (l *Locker) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for _, guildID := range l.entries.Keys() {
		if e, ok := l.entries.Peek(guildID); ok {
			e.released.Store(true)
		}
	}
	l.entries.Purge()
}
