package notifier

import (
	"fmt"
	"sync"
	"time"

	"songbook-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	// Default cooldown between alerts of the same type
	DefaultAlertCooldown = 15 * time.Minute
)

// AlertHandler turns bus events into notifications, at most one per event
// type per cooldown window.
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[EventType]time.Time
	cooldownDuration time.Duration
	mu               sync.Mutex
}

// AlertConfig holds configuration for the alert handler
type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(config AlertConfig) *AlertHandler {
	cooldown := config.CooldownDuration
	if cooldown == 0 {
		cooldown = DefaultAlertCooldown
	}

	return &AlertHandler{
		notifiers:        config.Notifiers,
		cooldowns:        make(map[EventType]time.Time),
		cooldownDuration: cooldown,
	}
}

// Start subscribes the handler to bus, or to the global bus when bus is nil.
func (h *AlertHandler) Start(bus *EventBus) {
	if bus == nil {
		bus = GetEventBus()
	}
	bus.SubscribeAll(h.HandleEvent)
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogNotifier, h.cooldownDuration, len(h.notifiers))
}

// HandleEvent formats event and sends it unless its type is cooling down.
func (h *AlertHandler) HandleEvent(event *Event) {
	if !h.shouldAlert(event.Type) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogNotifier, event.Type)
		return
	}

	subject, message := formatAlert(event)
	if subject == "" {
		return
	}

	h.sendAlert(subject, message)
}

func (h *AlertHandler) shouldAlert(eventType EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	lastAlert, exists := h.cooldowns[eventType]
	if !exists || time.Since(lastAlert) >= h.cooldownDuration {
		h.cooldowns[eventType] = time.Now()
		return true
	}
	return false
}

// formatAlert formats an event into a notification message
func formatAlert(event *Event) (subject, message string) {
	switch event.Type {
	case EventCircuitBreakerOpen:
		subject = "Circuit Breaker OPEN"
		message = fmt.Sprintf(
			"The %s circuit breaker has tripped after %d consecutive failures.\n\n"+
				"Video metadata lookups are blocked for %s.\n\n"+
				"Action: Check YouTube oEmbed reachability.",
			getString(event.Data, "name"), getInt(event.Data, "failures"), getString(event.Data, "cooldown"))

	case EventServerStartupFailed:
		subject = "Server Startup FAILED"
		message = fmt.Sprintf(
			"The server failed to start.\n\n"+
				"Component: %s\n"+
				"Error: %s\n\n"+
				"Action: Check logs and fix the issue immediately.",
			getString(event.Data, "component"), getString(event.Data, "error"))

	case EventCacheBackupFailed:
		subject = "Cache Backup Failed"
		message = fmt.Sprintf(
			"Failed to create cache backup.\n\n"+
				"Error: %s\n\n"+
				"Action: Check disk space and permissions.",
			getString(event.Data, "error"))

	case EventRedisUnavailable:
		subject = "Redis Mirror Unavailable"
		message = fmt.Sprintf(
			"The redis cache mirror could not be reached; serving from the local cache only.\n\n"+
				"Error: %s",
			getString(event.Data, "error"))

	case EventCircuitBreakerRecovered:
		subject = "Circuit Breaker Recovered"
		message = fmt.Sprintf("The %s circuit breaker has recovered and is now operational.", getString(event.Data, "name"))

	case EventServerStarted:
		subject = "Server Started"
		mirror := "local cache only"
		if redis, _ := event.Data["redis_mirror"].(bool); redis {
			mirror = "redis mirror enabled"
		}
		message = fmt.Sprintf("Server started successfully on port %s (%s).", getString(event.Data, "port"), mirror)

	case EventCacheCleared:
		subject = "Cache Cleared"
		message = fmt.Sprintf("Cache has been cleared.\n\nBackup saved to: %s", getString(event.Data, "backup_path"))

	case EventCacheRestored:
		subject = "Cache Restored"
		message = fmt.Sprintf("Cache has been restored from %s.", getString(event.Data, "backup"))

	default:
		return "", ""
	}

	switch event.Severity {
	case SeverityCritical:
		subject = "🚨 " + subject
	case SeverityWarning:
		subject = "⚠️ " + subject
	case SeverityInfo:
		subject = "ℹ️ " + subject
	}

	return subject, message
}

func (h *AlertHandler) sendAlert(subject, message string) {
	if len(h.notifiers) == 0 {
		log.Debugf("%s No notifiers configured, skipping alert: %s", logcolors.LogNotifier, subject)
		return
	}

	log.Infof("%s Sending alert: %s", logcolors.LogNotifier, subject)

	successCount := 0
	for _, n := range h.notifiers {
		if err := n.Send(subject, message); err != nil {
			log.Errorf("%s Failed to send alert via %s: %v", logcolors.LogNotifier, n.Name(), err)
		} else {
			successCount++
		}
	}

	if successCount > 0 {
		log.Infof("%s Alert sent successfully via %d/%d notifiers", logcolors.LogNotifier, successCount, len(h.notifiers))
	}
}

// ResetCooldown manually resets the cooldown for a specific event type
func (h *AlertHandler) ResetCooldown(eventType EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, eventType)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int {
	if val, ok := data[key].(int); ok {
		return val
	}
	return 0
}
