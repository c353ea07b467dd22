package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"songbook-api-go/cache"
	"songbook-api-go/circuitbreaker"
	"songbook-api-go/languages"
	"songbook-api-go/logcolors"
	"songbook-api-go/services/notifier"
	"songbook-api-go/stats"
	"songbook-api-go/store"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// isAuthorized reports whether the Authorization header carries the admin
// token. With no token configured nothing is authorized.
func isAuthorized(r *http.Request) bool {
	token := conf.Configuration.CacheAccessToken
	given := r.Header.Get("Authorization")
	return token != "" && subtle.ConstantTimeCompare([]byte(given), []byte(token)) == 1
}

func requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if !isAuthorized(r) {
		Respond(w, r).Fail(http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, conf.Configuration.MaxUploadBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeStoreError maps repository errors to status codes.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		Respond(w, r).Fail(http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrInvalidInput):
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		Respond(w, r).Fail(http.StatusConflict, err.Error())
	default:
		log.Errorf("%s %s %s: %v", logcolors.LogStore, r.Method, r.URL.Path, err)
		Respond(w, r).Fail(http.StatusInternalServerError, "Internal server error")
	}
}

func getHelp(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"name": "songbook-api",
		"endpoints": []string{
			"GET /health",
			"GET /languages",
			"POST /parse?format=auto|srt|lrc|plain",
			"POST /detect",
			"GET|POST /songs",
			"GET /songs/search?q=",
			"GET|PUT|DELETE /songs/{id}",
			"GET|POST /songs/{id}/translations",
			"GET /songs/{id}/translations/{lang}",
			"GET /songs/{id}/title-languages",
			"GET /songs/{id}/languages",
			"POST /songs/{id}/lyrics",
			"GET /songs/{id}/lyrics/{lang}",
			"GET /songs/{id}/lyrics/{lang}/active?t=ms",
			"PUT|DELETE /lyrics/{id}",
			"GET /youtube/{videoID}?quality=",
		},
	})
}

func getLanguages(w http.ResponseWriter, r *http.Request) {
	all := languages.All()
	out := make([]LanguageView, 0, len(all))
	for _, l := range all {
		out = append(out, LanguageView{Code: l.Code, Name: l.Name, RTL: languages.IsRTL(l.Code)})
	}
	Respond(w, r).JSON(out)
}

func getStats(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	snapshot := stats.Get().Snapshot()

	numKeys, sizeKB := payloadCache.Local().Stats()
	snapshot["cache_storage"] = map[string]interface{}{
		"keys":         numKeys,
		"size_kb":      sizeKB,
		"redis_mirror": payloadCache.HasMirror(),
	}
	snapshot["circuit_breaker"] = ytClient.Breaker().Snapshot()
	if rateLimiter != nil {
		snapshot["rate_limited_clients"] = rateLimiter.Len()
	}

	Respond(w, r).JSON(snapshot)
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	cacheDump := CacheDump{}
	payloadCache.Local().Range(func(key string, entry cache.CacheEntry) bool {
		cacheDump[key] = entry
		return true
	})

	numKeys, sizeInKB := payloadCache.Local().Stats()
	s := stats.Get()

	Respond(w, r).JSON(CacheDumpResponse{
		NumberOfKeys: numKeys,
		SizeInKB:     sizeInKB,
		SizeInMB:     float64(sizeInKB) / 1024,
		RedisMirror:  payloadCache.HasMirror(),
		Performance: CachePerformance{
			Hits:    s.CacheHits.Load(),
			Misses:  s.CacheMisses.Load(),
			HitRate: s.CacheHitRate(),
		},
		Cache: cacheDump,
	})
}

func backupCache(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	backupPath, err := payloadCache.Local().Backup()
	if err != nil {
		log.Errorf("%s Failed to backup cache: %v", logcolors.LogCacheBackup, err)
		notifier.PublishCacheBackupFailed(err)
		Respond(w, r).Fail(http.StatusInternalServerError, fmt.Sprintf("Failed to backup cache: %v", err))
		return
	}

	log.Infof("%s Cache backed up to %s", logcolors.LogCacheBackup, backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Cache backed up successfully",
		"backup_path": backupPath,
	})
}

// clearCache backs up the local cache, then empties it and the redis mirror.
func clearCache(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	backupPath, err := payloadCache.Local().BackupAndClear()
	if err != nil {
		log.Errorf("%s Failed to clear cache: %v", logcolors.LogCacheClear, err)
		notifier.PublishCacheBackupFailed(err)
		Respond(w, r).Fail(http.StatusInternalServerError, fmt.Sprintf("Failed to clear cache: %v", err))
		return
	}
	if err := payloadCache.ClearMirror(r.Context()); err != nil {
		log.Warnf("%s Failed to clear redis mirror: %v", logcolors.LogCacheClear, err)
	}

	log.Infof("%s Cache cleared, backup at %s", logcolors.LogCacheClear, backupPath)
	notifier.PublishCacheCleared(backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Cache cleared successfully",
		"backup_path": backupPath,
	})
}

func listBackups(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	backups, err := payloadCache.Local().ListBackups()
	if err != nil {
		log.Errorf("%s Failed to list backups: %v", logcolors.LogCacheBackups, err)
		Respond(w, r).Fail(http.StatusInternalServerError, fmt.Sprintf("Failed to list backups: %v", err))
		return
	}

	Respond(w, r).JSON(map[string]interface{}{
		"count":   len(backups),
		"backups": backups,
	})
}

func deleteBackup(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	name := r.URL.Query().Get("backup")
	if name == "" {
		Respond(w, r).Fail(http.StatusBadRequest, "Missing 'backup' query parameter")
		return
	}
	if err := payloadCache.Local().DeleteBackup(name); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	log.Infof("%s Deleted backup %s", logcolors.LogCacheBackups, name)
	Respond(w, r).JSON(map[string]interface{}{"message": "Backup deleted", "backup": name})
}

func restoreCache(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	backupFileName := r.URL.Query().Get("backup")
	if backupFileName == "" {
		Respond(w, r).Fail(http.StatusBadRequest, "Missing 'backup' query parameter. Use /cache/backups to list available backups.")
		return
	}

	if err := payloadCache.Local().RestoreFromBackup(backupFileName); err != nil {
		log.Errorf("%s Failed to restore from backup %s: %v", logcolors.LogCacheRestore, backupFileName, err)
		Respond(w, r).Fail(http.StatusInternalServerError, fmt.Sprintf("Failed to restore from backup: %v", err))
		return
	}
	// mirrored entries may be newer than the restored ones
	if err := payloadCache.ClearMirror(r.Context()); err != nil {
		log.Warnf("%s Failed to clear redis mirror: %v", logcolors.LogCacheRestore, err)
	}

	numKeys, sizeKB := payloadCache.Local().Stats()

	log.Infof("%s Cache restored from backup: %s", logcolors.LogCacheRestore, backupFileName)
	notifier.PublishCacheRestored(backupFileName)
	Respond(w, r).JSON(map[string]interface{}{
		"message":       "Cache restored successfully",
		"restored_from": backupFileName,
		"keys_restored": numKeys,
		"size_kb":       sizeKB,
	})
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	breaker := ytClient.Breaker()

	health := map[string]interface{}{
		"status":          "ok",
		"database":        "ok",
		"circuit_breaker": breaker.State().String(),
	}

	if breaker.IsOpen() {
		health["status"] = "degraded"
		health["circuit_breaker_retry_in"] = breaker.TimeUntilRetry().String()
	}

	statusCode := http.StatusOK
	if err := repo.Ping(r.Context()); err != nil {
		log.Errorf("%s Health check failed: %v", logcolors.LogStore, err)
		health["status"] = "unhealthy"
		health["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	if isAuthorized(r) {
		numKeys, sizeKB := payloadCache.Local().Stats()
		health["cache"] = map[string]interface{}{
			"keys":         numKeys,
			"size_kb":      sizeKB,
			"redis_mirror": payloadCache.HasMirror(),
		}
		health["circuit_breaker_failures"] = breaker.Failures()
	}

	Respond(w, r).Status(statusCode, health)
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(ytClient.Breaker().Snapshot())
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	breaker := ytClient.Breaker()
	breaker.Reset()
	log.Infof("%s Reset by admin", logcolors.CircuitBreakerPrefix(breaker.Name()))

	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breaker reset",
		"state":   circuitbreaker.StateClosed.String(),
	})
}

// testNotifications sends a test message through every configured notifier.
func testNotifications(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	notifiers := setupNotifiers()
	if len(notifiers) == 0 {
		Respond(w, r).Status(http.StatusBadRequest, map[string]interface{}{
			"error": "No notifiers configured. Please configure at least one notifier in your .env file.",
			"help": map[string]string{
				"telegram": "Set NOTIFIER_TELEGRAM_BOT_TOKEN and NOTIFIER_TELEGRAM_CHAT_ID",
				"email":    "Set NOTIFIER_SMTP_HOST, NOTIFIER_SMTP_USERNAME, NOTIFIER_SMTP_PASSWORD, etc.",
				"ntfy":     "Set NOTIFIER_NTFY_TOPIC",
			},
		})
		return
	}

	subject := "🧪 Test: Songbook API alerts"
	message := fmt.Sprintf(
		"Your notification setup is working correctly.\n\n"+
			"You will be alerted when the YouTube circuit breaker trips or recovers "+
			"and when the cache is cleared, restored or fails to back up.\n\n"+
			"Sent at %s",
		time.Now().Format("2006-01-02 15:04:05"))

	results := make(map[string]interface{})
	successCount, failCount := 0, 0
	for _, n := range notifiers {
		if err := n.Send(subject, message); err != nil {
			results[n.Name()] = map[string]string{"status": "failed", "error": err.Error()}
			failCount++
			log.Errorf("%s %s failed: %v", logcolors.LogNotifier, n.Name(), err)
		} else {
			results[n.Name()] = map[string]string{"status": "success"}
			successCount++
		}
	}

	status := http.StatusOK
	if failCount > 0 {
		status = http.StatusPartialContent
	}
	Respond(w, r).Status(status, map[string]interface{}{
		"message":    "Test notifications sent",
		"total":      len(notifiers),
		"successful": successCount,
		"failed":     failCount,
		"results":    results,
	})
}
