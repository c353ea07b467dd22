package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Endpoint groups requests are counted under.
const (
	EndpointParse   = "parse"
	EndpointSongs   = "songs"
	EndpointLyrics  = "lyrics"
	EndpointYouTube = "youtube"
	EndpointCache   = "cache"
	EndpointStats   = "stats"
	EndpointHealth  = "health"
	EndpointOther   = "other"
)

var endpoints = []string{
	EndpointParse, EndpointSongs, EndpointLyrics, EndpointYouTube,
	EndpointCache, EndpointStats, EndpointHealth, EndpointOther,
}

const maxInt64 = int64(^uint64(0) >> 1)

// Stats holds server counters. All methods are safe for concurrent use.
type Stats struct {
	StartTime time.Time

	TotalRequests atomic.Int64
	requests      map[string]*atomic.Int64 // fixed key set, never written after New

	CacheHits   atomic.Int64
	CacheMisses atomic.Int64

	RateLimitNormal   atomic.Int64 // served under the normal tier
	RateLimitCached   atomic.Int64 // served under the cache-only tier
	RateLimitExceeded atomic.Int64 // rejected with 429

	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	totalResponseTime atomic.Int64 // microseconds
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// parsed documents per detected format
	formats sync.Map // string -> *atomic.Int64
}

// New returns zeroed stats starting now.
func New() *Stats {
	s := &Stats{
		StartTime: time.Now(),
		requests:  make(map[string]*atomic.Int64, len(endpoints)),
	}
	for _, e := range endpoints {
		s.requests[e] = &atomic.Int64{}
	}
	s.minResponseTime.Store(maxInt64)
	return s
}

var global = New()

// Get returns the process-wide stats.
func Get() *Stats {
	return global
}

// RecordRequest counts a request against an endpoint group. Unknown groups
// count as "other".
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	counter, ok := s.requests[endpoint]
	if !ok {
		counter = s.requests[EndpointOther]
	}
	counter.Add(1)
}

// Requests returns the count for an endpoint group.
func (s *Stats) Requests(endpoint string) int64 {
	if c, ok := s.requests[endpoint]; ok {
		return c.Load()
	}
	return 0
}

func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "normal":
		s.RateLimitNormal.Add(1)
	case "cached":
		s.RateLimitCached.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime folds a response duration into the running totals.
func (s *Stats) RecordResponseTime(d time.Duration) {
	us := d.Microseconds()
	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		cur := s.minResponseTime.Load()
		if us >= cur || s.minResponseTime.CompareAndSwap(cur, us) {
			break
		}
	}
	for {
		cur := s.maxResponseTime.Load()
		if us <= cur || s.maxResponseTime.CompareAndSwap(cur, us) {
			break
		}
	}
}

// RecordFormat counts a parsed document by its detected format.
func (s *Stats) RecordFormat(format string) {
	s.formatCounter(format).Add(1)
}

func (s *Stats) formatCounter(format string) *atomic.Int64 {
	if c, ok := s.formats.Load(format); ok {
		return c.(*atomic.Int64)
	}
	c, _ := s.formats.LoadOrStore(format, &atomic.Int64{})
	return c.(*atomic.Int64)
}

// FormatCounts returns parsed documents per format.
func (s *Stats) FormatCounts() map[string]int64 {
	out := map[string]int64{}
	s.formats.Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == maxInt64 {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	requests := map[string]interface{}{"total": s.TotalRequests.Load()}
	for _, e := range endpoints {
		requests[e] = s.Requests(e)
	}

	parsed := map[string]interface{}{}
	for name, n := range s.FormatCounts() {
		parsed[name] = n
	}

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": requests,
		"cache": map[string]interface{}{
			"hits":     s.CacheHits.Load(),
			"misses":   s.CacheMisses.Load(),
			"hit_rate": s.CacheHitRate(),
		},
		"parsed_formats": parsed,
		"rate_limiting": map[string]interface{}{
			"normal_tier": s.RateLimitNormal.Load(),
			"cached_tier": s.RateLimitCached.Load(),
			"exceeded":    s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg": s.AvgResponseTime().String(),
			"min": s.MinResponseTime().String(),
			"max": s.MaxResponseTime().String(),
		},
	}
}
