package config

import (
	"strings"
	"time"

	"songbook-api-go/logcolors"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                      string `envconfig:"PORT" default:"8080"`
		RateLimitPerSecond        int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit       int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
		CachedRateLimitPerSecond  int    `envconfig:"CACHED_RATE_LIMIT_PER_SECOND" default:"10"`
		CachedRateLimitBurstLimit int    `envconfig:"CACHED_RATE_LIMIT_BURST_LIMIT" default:"20"`
		LyricsCacheTTLInSeconds   int    `envconfig:"LYRICS_CACHE_TTL_IN_SECONDS" default:"86400"`
		CacheAccessToken          string `envconfig:"CACHE_ACCESS_TOKEN" default:""`
		APIKey                    string `envconfig:"API_KEY" default:""`
		APIKeyRequired            bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
		CORSAllowedOrigins        string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
		MaxUploadBytes            int64  `envconfig:"MAX_UPLOAD_BYTES" default:"1048576"`
		TrustedProxies            string `envconfig:"TRUSTED_PROXIES" default:""`

		// Storage
		DatabasePath    string `envconfig:"DATABASE_PATH" default:"data/songbook.db"`
		CachePath       string `envconfig:"CACHE_PATH" default:"data/cache.db"`
		CacheBackupPath string `envconfig:"CACHE_BACKUP_PATH" default:"data/backups"`
		StatsPath       string `envconfig:"STATS_PATH" default:"data/stats.db"`
		RedisURL        string `envconfig:"REDIS_URL" default:""`

		// YouTube
		YouTubeOEmbedURL   string `envconfig:"YOUTUBE_OEMBED_URL" default:"https://www.youtube.com/oembed"`
		YouTubeTimeoutSecs int    `envconfig:"YOUTUBE_TIMEOUT_SECS" default:"10"`
		YouTubeMaxRetries  int    `envconfig:"YOUTUBE_MAX_RETRIES" default:"2"`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`     // consecutive failures before the breaker opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // seconds before a probe is allowed
	}

	Notifier struct {
		SMTPHost          string `envconfig:"NOTIFIER_SMTP_HOST" default:""`
		SMTPPort          string `envconfig:"NOTIFIER_SMTP_PORT" default:"587"`
		SMTPUsername      string `envconfig:"NOTIFIER_SMTP_USERNAME" default:""`
		SMTPPassword      string `envconfig:"NOTIFIER_SMTP_PASSWORD" default:""`
		FromEmail         string `envconfig:"NOTIFIER_FROM_EMAIL" default:""`
		ToEmail           string `envconfig:"NOTIFIER_TO_EMAIL" default:""`
		TelegramBotToken  string `envconfig:"NOTIFIER_TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID    string `envconfig:"NOTIFIER_TELEGRAM_CHAT_ID" default:""`
		NtfyTopic         string `envconfig:"NOTIFIER_NTFY_TOPIC" default:""`
		NtfyServer        string `envconfig:"NOTIFIER_NTFY_SERVER" default:"https://ntfy.sh"`
		AlertCooldownSecs int    `envconfig:"NOTIFIER_ALERT_COOLDOWN_SECS" default:"900"`
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
	}
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Configuration.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// LyricsCacheTTL returns the lyrics cache TTL as a duration.
func (c Config) LyricsCacheTTL() time.Duration {
	return time.Duration(c.Configuration.LyricsCacheTTLInSeconds) * time.Second
}

// YouTubeTimeout returns the oEmbed request timeout.
func (c Config) YouTubeTimeout() time.Duration {
	return time.Duration(c.Configuration.YouTubeTimeoutSecs) * time.Second
}

// CircuitBreakerCooldown returns the breaker cooldown as a duration.
func (c Config) CircuitBreakerCooldown() time.Duration {
	return time.Duration(c.Configuration.CircuitBreakerCooldownSecs) * time.Second
}

// AlertCooldown is the minimum gap between two alerts of the same kind.
func (c Config) AlertCooldown() time.Duration {
	return time.Duration(c.Notifier.AlertCooldownSecs) * time.Second
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("%s No .env file loaded: %v", logcolors.LogConfig, err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("%s Unable to load configuration", logcolors.LogConfig)
	}

	return c
}

func Get() Config {
	return conf
}
