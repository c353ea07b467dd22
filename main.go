package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"songbook-api-go/cache"
	"songbook-api-go/config"
	"songbook-api-go/logcolors"
	"songbook-api-go/middleware"
	"songbook-api-go/services/notifier"
	"songbook-api-go/services/youtube"
	"songbook-api-go/stats"
	"songbook-api-go/store"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	conf         = config.Get()
	repo         *store.Repository
	payloadCache *cache.Tiered
	ytClient     *youtube.Client
	rateLimiter  *middleware.IPRateLimiter
	lyricsGroup  singleflight.Group
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startAlerts()

	var err error
	repo, err = setupStore()
	if err != nil {
		notifier.PublishServerStartupFailed("store", err)
		failStartup(logcolors.LogStore, err)
	}
	defer repo.Close()

	payloadCache, err = setupCache(ctx)
	if err != nil {
		notifier.PublishServerStartupFailed("cache", err)
		failStartup(logcolors.LogCacheInit, err)
	}
	defer payloadCache.Close()

	ytClient = setupYouTube()

	statsStore, err := stats.NewStore(conf.Configuration.StatsPath, stats.Get())
	if err != nil {
		log.Warnf("%s Stats will not persist: %v", logcolors.LogStats, err)
	} else {
		if err := statsStore.Load(); err != nil {
			log.Warnf("%s Failed to load stats: %v", logcolors.LogStats, err)
		}
		statsStore.StartAutoSave(5 * time.Minute)
		defer statsStore.Close()
	}

	proxies, err := middleware.ParseTrustedProxies(conf.Configuration.TrustedProxies)
	if err != nil {
		notifier.PublishServerStartupFailed("config", err)
		failStartup(logcolors.LogRateLimit, err)
	}
	middleware.SetTrustedProxies(proxies)

	rateLimiter = middleware.NewIPRateLimiter(
		rate.Limit(conf.Configuration.RateLimitPerSecond), conf.Configuration.RateLimitBurstLimit,
		rate.Limit(conf.Configuration.CachedRateLimitPerSecond), conf.Configuration.CachedRateLimitBurstLimit,
	)
	rateLimiter.StartCleanup(ctx, time.Minute, 10*time.Minute)

	server := &http.Server{
		Addr:              ":" + conf.Configuration.Port,
		Handler:           newHandler(rateLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("%s Listening on port %s", logcolors.LogServer, conf.Configuration.Port)
		notifier.PublishServerStarted(conf.Configuration.Port, payloadCache.HasMirror())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			notifier.PublishServerStartupFailed("http", err)
			failStartup(logcolors.LogServer, err)
		}
	}()

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s Shutdown: %v", logcolors.LogServer, err)
	}
}

// failStartup gives the alert handler a moment to deliver the startup
// failure before exiting.
func failStartup(prefix string, err error) {
	time.Sleep(2 * time.Second)
	log.Fatalf("%s %v", prefix, err)
}

// newHandler builds the router and wraps it in the middleware chain.
func newHandler(limiter *middleware.IPRateLimiter) http.Handler {
	router := mux.NewRouter()
	router.Use(statsMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		return limitMiddleware(next, limiter)
	})
	setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   conf.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		ExposedHeaders:   []string{"X-Cache-Status", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Type"},
		AllowCredentials: false,
	})

	apiKey := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		Key:         conf.Configuration.APIKey,
		Required:    conf.Configuration.APIKeyRequired,
		PublicPaths: []string{"/parse", "/detect", "/cache*", "/circuit-breaker*", "/test-notifications"},
	})

	return middleware.LoggingMiddleware(c.Handler(apiKey(router)))
}
