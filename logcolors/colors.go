package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
)

// Cache-related log prefixes
const (
	LogCacheInit    = Blue + "[Cache:Init]" + Reset
	LogCache        = Blue + "[Cache]" + Reset
	LogCacheBackup  = Blue + "[Cache:Backup]" + Reset
	LogCacheClear   = Blue + "[Cache:Clear]" + Reset
	LogCacheBackups = Blue + "[Cache:Backups]" + Reset
	LogCacheRestore = Blue + "[Cache:Restore]" + Reset
	LogCacheLyrics  = Green + "[Cache:Lyrics]" + Reset
	LogCacheParse   = Green + "[Cache:Parse]" + Reset
	LogCacheRedis   = Cyan + "[Cache:Redis]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
	LogStore  = Yellow + "[Store]" + Reset
)

// Domain log prefixes
const (
	LogRequest = Purple + "[Request]" + Reset
	LogParse   = Cyan + "[Parse]" + Reset
	LogSongs   = Green + "[Songs]" + Reset
	LogLyrics  = Blue + "[Lyrics]" + Reset
	LogYouTube = Red + "[YouTube]" + Reset
	LogPlayer  = Yellow + "[Player]" + Reset
)

// Alerting log prefixes
const (
	LogNotifier = Yellow + "[Notifier]" + Reset
)
