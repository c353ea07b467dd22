package middleware

import (
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(1, 5, 10, 20)
	if rl.normalRate != 1 || rl.normalBurst != 5 || rl.cachedRate != 10 || rl.cachedBurst != 20 {
		t.Errorf("Unexpected limiter settings: %+v", rl)
	}
	if rl.GetNormalLimit() != 5 || rl.GetCachedLimit() != 20 {
		t.Errorf("GetNormalLimit/GetCachedLimit = %d/%d", rl.GetNormalLimit(), rl.GetCachedLimit())
	}
}

func TestGetLimiterReusesPair(t *testing.T) {
	rl := NewIPRateLimiter(1, 5, 10, 20)

	first := rl.GetLimiter("192.168.1.1")
	second := rl.GetLimiter("192.168.1.1")
	other := rl.GetLimiter("192.168.1.2")

	if first != second {
		t.Error("Expected the same pair for the same IP")
	}
	if first == other {
		t.Error("Expected different pairs for different IPs")
	}
	if rl.Len() != 2 {
		t.Errorf("Len = %d, want 2", rl.Len())
	}
}

func TestTwoTierRateLimiting(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 1, rate.Limit(2), 2)
	pair := rl.GetLimiter("192.168.1.2")

	if !pair.Normal.Allow() {
		t.Error("Expected first normal request to be allowed")
	}
	if pair.Normal.Allow() {
		t.Error("Expected second normal request to be denied")
	}
	if !pair.Cached.Allow() || !pair.Cached.Allow() {
		t.Error("Expected cached tier to allow its burst")
	}
	if pair.Cached.Allow() {
		t.Error("Expected cached tier to be exhausted")
	}
}

func TestLimiterPairTokens(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(10), 10, rate.Limit(20), 20)
	pair := rl.GetLimiter("192.168.1.3")

	if pair.GetNormalTokens() != 10 || pair.GetCachedTokens() != 20 {
		t.Errorf("Initial tokens = %d/%d", pair.GetNormalTokens(), pair.GetCachedTokens())
	}
	pair.Normal.Allow()
	if pair.GetNormalTokens() != 9 {
		t.Errorf("Expected 9 normal tokens after one request, got %d", pair.GetNormalTokens())
	}
}

func TestCleanup(t *testing.T) {
	rl := NewIPRateLimiter(1, 1, 1, 1)
	rl.GetLimiter("old")
	time.Sleep(20 * time.Millisecond)
	rl.GetLimiter("fresh")

	if dropped := rl.Cleanup(10 * time.Millisecond); dropped != 1 {
		t.Errorf("Cleanup dropped %d, want 1", dropped)
	}
	if rl.Len() != 1 {
		t.Errorf("Len = %d, want 1", rl.Len())
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies("10.0.0.0/8, 192.168.1.5")
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}

	tests := []struct {
		name       string
		proxies    ProxyList
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr", nil, "10.0.0.1:1234", "", "10.0.0.1"},
		{"no port", nil, "10.0.0.1", "", "10.0.0.1"},
		{"forwarded ignored without proxies", nil, "203.0.113.7:1234", "198.51.100.1", "203.0.113.7"},
		{"forwarded from untrusted peer", proxies, "203.0.113.7:1234", "198.51.100.1", "203.0.113.7"},
		{"forwarded from trusted peer", proxies, "10.0.0.1:1234", "198.51.100.1", "198.51.100.1"},
		{"right-most untrusted hop", proxies, "10.0.0.1:1234", "198.51.100.1, 203.0.113.9, 10.0.0.2", "203.0.113.9"},
		{"bare ip proxy", proxies, "192.168.1.5:80", "198.51.100.1", "198.51.100.1"},
		{"garbage hop stops the walk", proxies, "10.0.0.1:1234", "198.51.100.1, not-an-ip", "10.0.0.1"},
		{"all hops trusted", proxies, "10.0.0.1:1234", "10.0.0.3, 10.0.0.2", "10.0.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := tt.proxies.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTrustedProxiesInvalid(t *testing.T) {
	for _, raw := range []string{"10.0.0.0/33", "proxy.local", "1.2.3"} {
		if _, err := ParseTrustedProxies(raw); err == nil {
			t.Errorf("ParseTrustedProxies(%q) succeeded, want error", raw)
		}
	}
	list, err := ParseTrustedProxies(" , ")
	if err != nil || len(list) != 0 {
		t.Errorf("ParseTrustedProxies(blank) = %v, %v", list, err)
	}
}

func TestSpoofedForwardedForSharesBucket(t *testing.T) {
	SetTrustedProxies(nil)
	rl := NewIPRateLimiter(rate.Limit(0.001), 1, rate.Limit(0.001), 1)

	allowed := 0
	for i := 0; i < 50; i++ {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "203.0.113.7:4000"
		r.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		if rl.GetLimiter(ClientIP(r)).Normal.Allow() {
			allowed++
		}
	}

	if allowed != 1 {
		t.Errorf("allowed %d of 50 requests, want 1", allowed)
	}
	if rl.Len() != 1 {
		t.Errorf("Len = %d, want 1", rl.Len())
	}
}
