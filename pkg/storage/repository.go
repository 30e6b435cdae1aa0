package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/small-frappuccino/guildsettings/internal/cache"
	"github.com/small-frappuccino/guildsettings/pkg/log"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

// LookupObserver is told whether each Load was served from cache.
type LookupObserver interface {
	CacheLookup(hit bool)
}

// Repository is a read-through cache over a Store, keyed guildID:kind.
// A cache miss always falls through to the store.
type Repository struct {
	store    Store
	cache    *cache.TTLMap[settings.Settings]
	observer LookupObserver
}

// NewRepository caches store reads for ttl, purging every cleanupInterval.
func NewRepository(store Store, ttl, cleanupInterval time.Duration, observer LookupObserver) *Repository {
	logEviction := func(key string, _ settings.Settings, reason cache.EvictReason) {
		if reason == cache.EvictExpired {
			log.DatabaseLogger().Debug("Settings cache entry expired", "key", key)
		}
	}
	return &Repository{
		store:    store,
		cache:    cache.NewTTLMap[settings.Settings]("settings", ttl, cleanupInterval, cache.WithEvictFunc[settings.Settings](logEviction)),
		observer: observer,
	}
}

// Load returns the guild's settings of kind k, creating defaults on first use.
// The returned value is a private copy.
func (r *Repository) Load(ctx context.Context, k settings.Kind, guildID string) (settings.Settings, error) {
	key := k.CacheKey(guildID)
	if s, ok := r.cache.Get(key); ok {
		r.observe(true)
		return s.Clone(), nil
	}
	r.observe(false)

	s, err := r.store.FindOrCreate(ctx, k, guildID)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load %s: %w", key, err)
	}
	r.cache.Set(key, s.Clone(), 0)
	return s, nil
}

// Save persists s and refreshes its cache entry. On failure the cache is left
// untouched so the previous baseline stays authoritative.
func (r *Repository) Save(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	saved, err := r.store.Update(ctx, s)
	if err != nil {
		return settings.Settings{}, err
	}
	r.cache.Set(s.Kind.CacheKey(s.GuildID), saved.Clone(), 0)
	log.DatabaseLogger().Info("Settings saved", "guildID", s.GuildID, "kind", s.Kind)
	return saved, nil
}

// Invalidate drops the cached entry for guild and kind.
func (r *Repository) Invalidate(k settings.Kind, guildID string) {
	r.cache.Delete(k.CacheKey(guildID))
}

// InvalidateGuild drops every cached kind of guildID and returns how many
// entries were live.
func (r *Repository) InvalidateGuild(guildID string) int {
	dropped := 0
	for _, f := range settings.Families() {
		for _, k := range f.Kinds() {
			if r.cache.Has(k.CacheKey(guildID)) {
				dropped++
			}
			r.Invalidate(k, guildID)
		}
	}
	if dropped > 0 {
		log.DatabaseLogger().Info("Settings cache invalidated", "guildID", guildID, "entries", dropped)
	}
	return dropped
}

// Stats reports cache usage.
func (r *Repository) Stats() cache.Stats {
	return r.cache.Stats()
}

// Close stops the cache cleanup loop. The store is closed by its owner.
func (r *Repository) Close() {
	r.cache.Close()
}

func (r *Repository) observe(hit bool) {
	if r.observer != nil {
		r.observer.CacheLookup(hit)
	}
}
