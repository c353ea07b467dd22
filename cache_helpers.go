package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"songbook-api-go/cache"
	"songbook-api-go/languages"
	"songbook-api-go/logcolors"
	"songbook-api-go/lyrics"
	"songbook-api-go/stats"

	log "github.com/sirupsen/logrus"
)

// errCacheOnlyMiss is returned when a request in the cache-only rate tier
// asks for something that is not cached.
var errCacheOnlyMiss = errors.New("not cached and rate limit exceeded")

// lyricsGenerations counts invalidations per song so a load that raced a
// mutation does not write its result back into the cache.
type lyricsGenerations struct {
	mu   sync.Mutex
	gens map[int64]uint64
}

func (g *lyricsGenerations) current(songID int64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[songID]
}

func (g *lyricsGenerations) bump(songID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens == nil {
		g.gens = make(map[int64]uint64)
	}
	g.gens[songID]++
}

// storeIfCurrent runs write only while songID is still at gen. It reports
// whether write ran.
func (g *lyricsGenerations) storeIfCurrent(songID int64, gen uint64, write func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens[songID] != gen {
		return false
	}
	write()
	return true
}

var lyricsGens lyricsGenerations

// testHookLyricsLoaded runs between the database read and the cache write
// of a lyrics load.
var testHookLyricsLoaded func(songID int64)

// getCachedLyrics returns the encoded LyricsView for the newest lyrics of a
// song in a language. Concurrent misses for the same key share one database
// read.
func getCachedLyrics(ctx context.Context, songID int64, languageCode string, cacheOnly bool) ([]byte, cache.Source, error) {
	key := cache.LyricsKey(songID, languageCode)

	if body, source := payloadCache.Get(ctx, key); source != cache.SourceMiss {
		stats.Get().RecordCacheHit()
		log.Debugf("%s %s for %s", logcolors.LogCacheLyrics, source, key)
		return body, source, nil
	}
	stats.Get().RecordCacheMiss()

	if cacheOnly {
		return nil, cache.SourceMiss, errCacheOnlyMiss
	}

	// the shared load outlives any single caller
	loadCtx := context.WithoutCancel(ctx)
	gen := lyricsGens.current(songID)
	flightKey := fmt.Sprintf("%s#%d", key, gen)

	v, err, shared := lyricsGroup.Do(flightKey, func() (interface{}, error) {
		record, err := repo.LatestLyrics(loadCtx, songID, languageCode)
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(LyricsView{
			LyricsRecord: *record,
			LanguageName: languages.Name(record.LanguageCode),
			RTL:          languages.IsRTL(record.LanguageCode),
		})
		if err != nil {
			return nil, err
		}

		if testHookLyricsLoaded != nil {
			testHookLyricsLoaded(songID)
		}

		stored := lyricsGens.storeIfCurrent(songID, gen, func() {
			if err := payloadCache.Set(loadCtx, key, body); err != nil {
				log.Warnf("%s Failed to cache %s: %v", logcolors.LogCacheLyrics, key, err)
			}
		})
		if !stored {
			log.Debugf("%s Song %d changed during load, not caching %s", logcolors.LogCacheLyrics, songID, key)
		}
		return body, nil
	})
	if err != nil {
		return nil, cache.SourceMiss, err
	}
	if shared {
		log.Debugf("%s Shared in-flight load for %s", logcolors.LogCacheLyrics, key)
	}
	return v.([]byte), cache.SourceMiss, nil
}

// invalidateSongLyrics drops every cached lyrics entry of a song. Loads
// already in flight for the song will not cache what they read.
func invalidateSongLyrics(ctx context.Context, songID int64) {
	lyricsGens.bump(songID)
	if err := payloadCache.InvalidateSong(context.WithoutCancel(ctx), songID); err != nil {
		log.Warnf("%s Failed to invalidate lyrics of song %d: %v", logcolors.LogCacheLyrics, songID, err)
	}
}

// parseCached parses content as format, memoizing the encoded ParseResponse
// under a content hash.
func parseCached(ctx context.Context, content string, format lyrics.Format, cacheOnly bool) ([]byte, cache.Source, error) {
	key := cache.ParseKey(format.String(), content)

	if body, source := payloadCache.Get(ctx, key); source != cache.SourceMiss {
		stats.Get().RecordCacheHit()
		log.Debugf("%s %s for %s", logcolors.LogCacheParse, source, key)
		return body, source, nil
	}
	stats.Get().RecordCacheMiss()

	if cacheOnly {
		return nil, cache.SourceMiss, errCacheOnlyMiss
	}

	body, err := json.Marshal(buildParseResponse(content, format))
	if err != nil {
		return nil, cache.SourceMiss, err
	}
	if err := payloadCache.Set(ctx, key, body); err != nil {
		log.Warnf("%s Failed to cache %s: %v", logcolors.LogCacheParse, key, err)
	}
	return body, cache.SourceMiss, nil
}

func buildParseResponse(content string, format lyrics.Format) ParseResponse {
	var payload lyrics.Payload
	if format == lyrics.FormatAuto {
		format = lyrics.Detect(content)
		payload = lyrics.ParseAuto(content)
	} else {
		payload = lyrics.Parse(content, format)
	}
	stats.Get().RecordFormat(format.String())

	resp := ParseResponse{
		Format:  format.String(),
		Payload: payload,
		Timed:   payload.IsTimed(),
	}
	if resp.Timed {
		d := payload.Duration()
		resp.Duration = &d
	}
	if format == lyrics.FormatLRC {
		if meta := lyrics.LRCMetadata(content); len(meta) > 0 {
			resp.Metadata = meta
		}
	}
	return resp
}
