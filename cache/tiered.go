package cache

import (
	"context"
	"time"

	"songbook-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// Source reports which tier answered a lookup.
type Source string

const (
	SourceMiss  Source = "MISS"
	SourceLocal Source = "HIT"
	SourceRedis Source = "HIT-REDIS"
)

// Tiered reads through the local bolt cache and then an optional shared
// mirror. Writes go to every tier. Mirror errors are logged, never returned,
// so a Redis outage degrades to local caching.
type Tiered struct {
	local  *PersistentCache
	mirror Mirror
	ttl    time.Duration
}

// NewTiered builds a tiered cache. mirror may be nil.
func NewTiered(local *PersistentCache, mirror Mirror, ttl time.Duration) *Tiered {
	return &Tiered{local: local, mirror: mirror, ttl: ttl}
}

// Local exposes the bolt tier for admin operations.
func (t *Tiered) Local() *PersistentCache {
	return t.local
}

// HasMirror reports whether a shared tier is configured.
func (t *Tiered) HasMirror() bool {
	return t.mirror != nil
}

// Get looks key up in memory, then bolt, then the mirror. A mirror hit is
// copied into the local tier.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, Source) {
	if value, ok := t.local.Get(key); ok {
		return value, SourceLocal
	}
	if t.mirror == nil {
		return nil, SourceMiss
	}

	value, ok, err := t.mirror.Get(ctx, key)
	if err != nil {
		log.Warnf("%s Get %s failed: %v", logcolors.LogCacheRedis, key, err)
		return nil, SourceMiss
	}
	if !ok {
		return nil, SourceMiss
	}

	if err := t.local.Set(key, value, t.ttl); err != nil {
		log.Warnf("%s Failed to backfill %s locally: %v", logcolors.LogCache, key, err)
	}
	return value, SourceRedis
}

// Set writes key to every tier.
func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	if err := t.local.Set(key, value, t.ttl); err != nil {
		return err
	}
	if t.mirror != nil {
		if err := t.mirror.Set(ctx, key, value, t.ttl); err != nil {
			log.Warnf("%s Set %s failed: %v", logcolors.LogCacheRedis, key, err)
		}
	}
	return nil
}

// Delete removes key from every tier.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	if err := t.local.Delete(key); err != nil {
		return err
	}
	if t.mirror != nil {
		if err := t.mirror.Delete(ctx, key); err != nil {
			log.Warnf("%s Delete %s failed: %v", logcolors.LogCacheRedis, key, err)
		}
	}
	return nil
}

// DeletePrefix removes every key under prefix from every tier.
func (t *Tiered) DeletePrefix(ctx context.Context, prefix string) error {
	removed, err := t.local.DeletePrefix(prefix)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Debugf("%s Dropped %d local keys under %s", logcolors.LogCache, removed, prefix)
	}
	if t.mirror != nil {
		if err := t.mirror.DeletePrefix(ctx, prefix); err != nil {
			log.Warnf("%s DeletePrefix %s failed: %v", logcolors.LogCacheRedis, prefix, err)
		}
	}
	return nil
}

// ClearMirror empties the shared tier only. Used after the local tier is
// cleared or restored so stale mirror entries are not backfilled.
func (t *Tiered) ClearMirror(ctx context.Context) error {
	if t.mirror == nil {
		return nil
	}
	return t.mirror.DeletePrefix(ctx, "")
}

// InvalidateSong drops every cached lyrics entry of a song.
func (t *Tiered) InvalidateSong(ctx context.Context, songID int64) error {
	return t.DeletePrefix(ctx, SongLyricsPrefix(songID))
}

// Close closes every tier.
func (t *Tiered) Close() error {
	var mirrorErr error
	if t.mirror != nil {
		mirrorErr = t.mirror.Close()
	}
	if err := t.local.Close(); err != nil {
		return err
	}
	return mirrorErr
}
