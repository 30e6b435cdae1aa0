package cache

import "time"

// Stats provides statistics about cache usage
type Stats struct {
	Name        string        `json:"name"`
	Entries     int           `json:"entries"`
	Hits        uint64        `json:"hits"`
	Misses      uint64        `json:"misses"`
	Evictions   uint64        `json:"evictions"`
	HitRate     float64       `json:"hit_rate"`
	DefaultTTL  time.Duration `json:"default_ttl"`
	LastCleanup time.Time     `json:"last_cleanup"`
}

// StatsProvider is implemented by caches that report usage.
type StatsProvider interface {
	Stats() Stats
}
