package stats

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestRecordRequest(t *testing.T) {
	s := New()
	s.RecordRequest(EndpointParse)
	s.RecordRequest(EndpointParse)
	s.RecordRequest(EndpointLyrics)
	s.RecordRequest("nonsense")

	if got := s.TotalRequests.Load(); got != 4 {
		t.Errorf("TotalRequests = %d, want 4", got)
	}
	if got := s.Requests(EndpointParse); got != 2 {
		t.Errorf("parse = %d, want 2", got)
	}
	if got := s.Requests(EndpointOther); got != 1 {
		t.Errorf("unknown endpoints should count as other, got %d", got)
	}
	if got := s.Requests("nonsense"); got != 0 {
		t.Errorf("Requests(unknown) = %d, want 0", got)
	}
}

func TestCacheHitRate(t *testing.T) {
	s := New()
	if s.CacheHitRate() != 0 {
		t.Error("Expected 0 hit rate with no lookups")
	}
	s.RecordCacheHit()
	s.RecordCacheHit()
	s.RecordCacheHit()
	s.RecordCacheMiss()
	if got := s.CacheHitRate(); got != 75 {
		t.Errorf("CacheHitRate = %v, want 75", got)
	}
}

func TestStatusAndRateLimit(t *testing.T) {
	s := New()
	for _, code := range []int{200, 201, 304, 404, 429, 500, 503} {
		s.RecordStatusCode(code)
	}
	if s.Status2xx.Load() != 2 || s.Status4xx.Load() != 2 || s.Status5xx.Load() != 2 {
		t.Errorf("status counts = %d/%d/%d", s.Status2xx.Load(), s.Status4xx.Load(), s.Status5xx.Load())
	}

	s.RecordRateLimit("normal")
	s.RecordRateLimit("cached")
	s.RecordRateLimit("exceeded")
	s.RecordRateLimit("bogus")
	if s.RateLimitNormal.Load() != 1 || s.RateLimitCached.Load() != 1 || s.RateLimitExceeded.Load() != 1 {
		t.Error("rate limit tiers not counted")
	}
}

func TestResponseTimes(t *testing.T) {
	s := New()
	if s.MinResponseTime() != 0 || s.AvgResponseTime() != 0 {
		t.Error("Expected zero durations before any response")
	}

	s.RecordResponseTime(10 * time.Millisecond)
	s.RecordResponseTime(30 * time.Millisecond)

	if s.MinResponseTime() != 10*time.Millisecond {
		t.Errorf("Min = %v", s.MinResponseTime())
	}
	if s.MaxResponseTime() != 30*time.Millisecond {
		t.Errorf("Max = %v", s.MaxResponseTime())
	}
	if s.AvgResponseTime() != 20*time.Millisecond {
		t.Errorf("Avg = %v", s.AvgResponseTime())
	}
}

func TestFormatCountsConcurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.RecordFormat("lrc")
			} else {
				s.RecordFormat("srt")
			}
		}(i)
	}
	wg.Wait()

	counts := s.FormatCounts()
	if counts["lrc"] != 10 || counts["srt"] != 10 {
		t.Errorf("FormatCounts = %v", counts)
	}
}

func TestSnapshotShape(t *testing.T) {
	s := New()
	s.RecordRequest(EndpointSongs)
	s.RecordFormat("plain")

	snap := s.Snapshot()
	for _, key := range []string{"server", "requests", "cache", "parsed_formats", "rate_limiting", "responses", "response_times"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("Snapshot missing %q", key)
		}
	}
	requests := snap["requests"].(map[string]interface{})
	if requests["songs"] != int64(1) || requests["total"] != int64(1) {
		t.Errorf("requests = %v", requests)
	}
	if snap["parsed_formats"].(map[string]interface{})["plain"] != int64(1) {
		t.Errorf("parsed_formats = %v", snap["parsed_formats"])
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")

	first := New()
	first.RecordRequest(EndpointLyrics)
	first.RecordCacheHit()
	first.RecordFormat("lrc")
	first.RecordResponseTime(5 * time.Millisecond)
	started := first.StartTime

	store, err := NewStore(path, first)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	store.StartAutoSave(time.Hour)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := New()
	store, err = NewStore(path, second)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if second.Requests(EndpointLyrics) != 1 || second.TotalRequests.Load() != 1 {
		t.Errorf("requests not restored: %d", second.Requests(EndpointLyrics))
	}
	if second.CacheHits.Load() != 1 {
		t.Error("cache hits not restored")
	}
	if second.FormatCounts()["lrc"] != 1 {
		t.Error("format counts not restored")
	}
	if second.MinResponseTime() != 5*time.Millisecond {
		t.Errorf("min response time = %v", second.MinResponseTime())
	}
	if !second.StartTime.Equal(started) {
		t.Errorf("StartTime = %v, want %v", second.StartTime, started)
	}
}

func TestStoreLoadEmpty(t *testing.T) {
	s := New()
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"), s)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		t.Errorf("Load on empty store failed: %v", err)
	}
	if s.TotalRequests.Load() != 0 {
		t.Error("Expected zero counters")
	}
}
