package main

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"songbook-api-go/cache"
	"songbook-api-go/circuitbreaker"
	"songbook-api-go/logcolors"
	"songbook-api-go/middleware"
	"songbook-api-go/services/notifier"
	"songbook-api-go/services/youtube"
	"songbook-api-go/stats"
	"songbook-api-go/store"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

func setupStore() (*store.Repository, error) {
	level := logger.Warn
	if log.GetLevel() >= log.DebugLevel {
		level = logger.Info
	}
	r, err := store.NewSQLiteRepository(conf.Configuration.DatabasePath, store.NewGormLogger(level))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Infof("%s Database ready at %s", logcolors.LogStore, conf.Configuration.DatabasePath)
	return r, nil
}

// setupCache opens the bolt cache and, when REDIS_URL is set, a shared
// redis mirror in front of it. An unreachable redis only logs a warning.
func setupCache(ctx context.Context) (*cache.Tiered, error) {
	local, err := cache.NewPersistentCache(
		conf.Configuration.CachePath,
		conf.Configuration.CacheBackupPath,
		conf.FeatureFlags.CacheCompression,
	)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	var mirror cache.Mirror
	if url := conf.Configuration.RedisURL; url != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rm, err := cache.NewRedisMirror(pingCtx, url, "songbook")
		if err != nil {
			log.Warnf("%s Redis unavailable, using local cache only: %v", logcolors.LogCacheRedis, err)
			notifier.PublishRedisUnavailable(err)
		} else {
			log.Infof("%s Mirroring cache to redis", logcolors.LogCacheRedis)
			mirror = rm
		}
	}

	return cache.NewTiered(local, mirror, conf.LyricsCacheTTL()), nil
}

func setupYouTube() *youtube.Client {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:      "YouTube",
		Threshold: conf.Configuration.CircuitBreakerThreshold,
		Cooldown:  conf.CircuitBreakerCooldown(),
		OnStateChange: breakerAlertHook(conf.Configuration.CircuitBreakerThreshold, conf.CircuitBreakerCooldown()),
	})

	return youtube.NewClient(youtube.ClientConfig{
		OEmbedURL:  conf.Configuration.YouTubeOEmbedURL,
		Timeout:    conf.YouTubeTimeout(),
		MaxRetries: conf.Configuration.YouTubeMaxRetries,
		Breaker:    breaker,
	})
}

// breakerAlertHook logs every breaker transition and publishes alerts when
// the breaker opens or closes again.
func breakerAlertHook(threshold int, cooldown time.Duration) func(name string, from, to circuitbreaker.State) {
	return func(name string, from, to circuitbreaker.State) {
		log.Warnf("%s %s -> %s", logcolors.CircuitBreakerPrefix(name), from, to)
		switch {
		case to == circuitbreaker.StateOpen:
			notifier.PublishCircuitBreakerOpen(name, threshold, cooldown)
		case to == circuitbreaker.StateClosed && from != circuitbreaker.StateClosed:
			notifier.PublishCircuitBreakerRecovered(name)
		}
	}
}

func setupNotifiers() []notifier.Notifier {
	var notifiers []notifier.Notifier
	n := conf.Notifier

	if n.SMTPHost != "" {
		notifiers = append(notifiers, &notifier.EmailNotifier{
			SMTPHost:     n.SMTPHost,
			SMTPPort:     n.SMTPPort,
			SMTPUsername: n.SMTPUsername,
			SMTPPassword: n.SMTPPassword,
			FromEmail:    n.FromEmail,
			ToEmail:      n.ToEmail,
		})
		log.Debugf("%s Email notifier enabled", logcolors.LogNotifier)
	}

	if n.TelegramBotToken != "" {
		notifiers = append(notifiers, &notifier.TelegramNotifier{
			BotToken: n.TelegramBotToken,
			ChatID:   n.TelegramChatID,
		})
		log.Debugf("%s Telegram notifier enabled", logcolors.LogNotifier)
	}

	if n.NtfyTopic != "" {
		notifiers = append(notifiers, &notifier.NtfyNotifier{
			Topic:  n.NtfyTopic,
			Server: n.NtfyServer,
		})
		log.Debugf("%s Ntfy.sh notifier enabled", logcolors.LogNotifier)
	}

	return notifiers
}

// startAlerts subscribes an alert handler to the global event bus. Without
// notifiers, events are only logged.
func startAlerts() {
	notifiers := setupNotifiers()
	notifier.NewAlertHandler(notifier.AlertConfig{
		Notifiers:        notifiers,
		CooldownDuration: conf.AlertCooldown(),
	}).Start(nil)
}

// cacheableRoutes may be answered in the cache-only rate tier.
var cacheableRoutes = map[string]bool{
	"lyrics:get":    true,
	"lyrics:active": true,
	"parse:parse":   true,
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}

// routeGroup is the stats endpoint group encoded in a route name.
func routeGroup(r *http.Request) string {
	group, _, _ := strings.Cut(routeName(r), ":")
	if group == "" {
		return stats.EndpointOther
	}
	return group
}

func isCacheOnly(r *http.Request) bool {
	cacheOnly, _ := r.Context().Value(cacheOnlyModeKey).(bool)
	return cacheOnly
}

func hasValidAPIKey(r *http.Request) bool {
	key := r.Header.Get("X-API-Key")
	want := conf.Configuration.APIKey
	return key != "" && want != "" && subtle.ConstantTimeCompare([]byte(key), []byte(want)) == 1
}

func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check for API key to bypass rate limits
		if hasValidAPIKey(r) {
			w.Header().Set("X-RateLimit-Bypass", "true")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "bypass")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ip := middleware.ClientIP(r)
		limiters := limiter.GetLimiter(ip)

		if limiters.Normal.Allow() {
			stats.Get().RecordRateLimit("normal")
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetNormalLimit()))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiters.GetNormalTokens()))
			w.Header().Set("X-RateLimit-Type", "normal")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "normal")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Normal tier exceeded: cacheable routes may still be answered from cache
		if cacheableRoutes[routeName(r)] && limiters.Cached.Allow() {
			stats.Get().RecordRateLimit("cached")
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetCachedLimit()))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiters.GetCachedTokens()))
			w.Header().Set("X-RateLimit-Type", "cached")
			log.Debugf("%s IP %s exceeded normal tier, using cached tier", logcolors.LogRateLimit, ip)
			ctx := context.WithValue(r.Context(), cacheOnlyModeKey, true)
			ctx = context.WithValue(ctx, rateLimitTypeKey, "cached")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		stats.Get().RecordRateLimit("exceeded")
		log.Warnf("%s IP %s exceeded rate limit on %s", logcolors.LogRateLimit, ip, r.URL.Path)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetCachedLimit()))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Type", "exceeded")
		w.Header().Set("Retry-After", "1")
		Respond(w, r).Fail(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
	})
}

// statsMiddleware counts requests per route group along with status codes
// and response times.
func statsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		s := stats.Get()
		s.RecordRequest(routeGroup(r))
		s.RecordStatusCode(rec.StatusCode)
		s.RecordResponseTime(time.Since(start))
	})
}
