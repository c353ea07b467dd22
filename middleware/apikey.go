package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"songbook-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// APIKeyConfig configures APIKeyMiddleware.
type APIKeyConfig struct {
	Key      string
	Required bool

	// PublicPaths are never checked. A trailing * matches a prefix.
	PublicPaths []string

	// ProtectReads also requires the key for GET, HEAD and OPTIONS.
	// By default only mutating methods are checked.
	ProtectReads bool
}

func isReadOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func matchesPath(path string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		} else if p == path {
			return true
		}
	}
	return false
}

func writeAPIKeyError(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(body))
}

// APIKeyMiddleware requires a matching X-API-Key header on protected
// requests when cfg.Required is set. A required but empty key logs a
// warning and lets requests through.
func APIKeyMiddleware(cfg APIKeyConfig) func(http.Handler) http.Handler {
	if cfg.Required && cfg.Key == "" {
		log.Warnf("%s API_KEY_REQUIRED is set but API_KEY is empty, requests will not be checked", logcolors.LogAPIKey)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Required || cfg.Key == "" ||
				(!cfg.ProtectReads && isReadOnly(r.Method)) ||
				matchesPath(r.URL.Path, cfg.PublicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				log.Warnf("%s Missing API key from %s for %s %s", logcolors.LogAPIKey, ClientIP(r), r.Method, r.URL.Path)
				writeAPIKeyError(w, `{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`)
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Key)) != 1 {
				log.Warnf("%s Invalid API key from %s for %s %s", logcolors.LogAPIKey, ClientIP(r), r.Method, r.URL.Path)
				writeAPIKeyError(w, `{"error":"Invalid API key","message":"The provided API key is not valid"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
