package main

import (
	"songbook-api-go/cache"
	"songbook-api-go/lyrics"
	"songbook-api-go/store"
)

type contextKey string

const (
	cacheOnlyModeKey contextKey = "cacheOnlyMode"
	rateLimitTypeKey contextKey = "rateLimitType"
)

// CacheDump represents the full cache contents
type CacheDump map[string]cache.CacheEntry

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate_percent"`
}

// CacheDumpResponse is the response format for /cache endpoint
type CacheDumpResponse struct {
	NumberOfKeys int              `json:"number_of_keys"`
	SizeInKB     int              `json:"size_kb"`
	SizeInMB     float64          `json:"size_mb"`
	RedisMirror  bool             `json:"redis_mirror"`
	Performance  CachePerformance `json:"performance"`
	Cache        CacheDump        `json:"cache"`
}

// ParseRequest is the JSON form of a /parse body. Plain-text bodies are
// treated as Content with the format taken from the query string.
type ParseRequest struct {
	Content string `json:"content"`
	Format  string `json:"format"`
}

// ParseResponse is what /parse returns and caches.
type ParseResponse struct {
	Format   string            `json:"format"`
	Payload  lyrics.Payload    `json:"payload"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Timed    bool              `json:"timed"`
	Duration *int              `json:"duration_ms,omitempty"`
}

// SongRequest creates or updates a song. YouTubeURL, when present, wins over
// YouTubeVideoID.
type SongRequest struct {
	store.SongUpdate
	YouTubeURL *string `json:"youtube_url"`
}

// SongView decorates a song with links built from its video id.
type SongView struct {
	store.Song
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	EmbedURL     string `json:"embed_url,omitempty"`
}

// TranslationRequest adds a translated title to a song.
type TranslationRequest struct {
	LanguageCode string  `json:"language_code"`
	Title        string  `json:"title"`
	Source       *string `json:"source"`
	Translator   *string `json:"translator"`
}

// LyricsRequest creates or updates a lyrics record from raw Content (parsed
// with Format) or a ready Payload.
type LyricsRequest struct {
	LanguageCode *string         `json:"language_code"`
	Content      *string         `json:"content"`
	Format       string          `json:"format"`
	Payload      *lyrics.Payload `json:"payload"`
	Source       *string         `json:"source"`
	Translator   *string         `json:"translator"`
}

// LyricsView is a lyrics record as served and cached by
// /songs/{id}/lyrics/{lang}.
type LyricsView struct {
	store.LyricsRecord
	LanguageName string `json:"language_name"`
	RTL          bool   `json:"rtl"`
}

// ActiveLineResponse reports the line active at PositionMs and the next line
// to start. Index is -1 and Line is nil when nothing is showing.
type ActiveLineResponse struct {
	PositionMs int          `json:"position_ms"`
	Index      int          `json:"index"`
	Line       *lyrics.Line `json:"line"`
	Next       *lyrics.Line `json:"next,omitempty"`
}

// LanguageView is a language code with its display name and direction.
type LanguageView struct {
	Code string `json:"code"`
	Name string `json:"name"`
	RTL  bool   `json:"rtl"`
}

// YouTubeResponse is oEmbed metadata plus thumbnails at every quality.
type YouTubeResponse struct {
	VideoID      string            `json:"video_id"`
	Title        string            `json:"title,omitempty"`
	AuthorName   string            `json:"author_name,omitempty"`
	AuthorURL    string            `json:"author_url,omitempty"`
	ThumbnailURL string            `json:"thumbnail_url"`
	Thumbnails   map[string]string `json:"thumbnails"`
	VideoURL     string            `json:"video_url"`
	EmbedURL     string            `json:"embed_url"`
}
