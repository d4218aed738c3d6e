package daemon

import (
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/dbus"
)

// NotificationLevel indicates the severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// urgency maps a level onto the freedesktop urgency byte.
func (l NotificationLevel) urgency() byte {
	switch l {
	case NotificationLevelInfo:
		return config.UrgencyLow
	case NotificationLevelError:
		return config.UrgencyCritical
	default:
		return config.UrgencyNormal
	}
}

// InternalNotifier shows toastd's own messages through the normal notification
// path. Repeats of the same key within the minimum interval are dropped.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	handler     func(n *dbus.DBusNotification) uint32
	last        map[string]time.Time
	minInterval time.Duration
	enabled     bool
}

// NewInternalNotifier creates an enabled notifier with a five second repeat interval.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:      logger,
		now:         time.Now,
		last:        make(map[string]time.Time),
		minInterval: 5 * time.Second,
		enabled:     true,
	}
}

// SetHandler sets the function that delivers a notification, normally
// Server.Submit.
func (n *InternalNotifier) SetHandler(fn func(n *dbus.DBusNotification) uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handler = fn
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications with the same key.
func (n *InternalNotifier) SetMinInterval(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = d
}

// Notify sends a notification unless disabled or rate limited. It returns the
// D-Bus id, or 0 when nothing was sent.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) uint32 {
	n.mu.Lock()
	if !n.enabled || n.handler == nil {
		n.mu.Unlock()
		return 0
	}
	now := n.now()
	if last, ok := n.last[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key)
		return 0
	}
	n.last[key] = now
	handler := n.handler
	n.mu.Unlock()

	notification := &dbus.DBusNotification{
		AppName: "toastd",
		Summary: summary,
		Body:    body,
		Hints: map[string]godbus.Variant{
			"urgency":          godbus.MakeVariant(level.urgency()),
			"suppress-sound":   godbus.MakeVariant(true),
			dbus.HintCountdown: godbus.MakeVariant(true),
		},
		ExpireTimeout: 5000,
	}

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)
	return handler(notification)
}

// NotifyStartup announces that the daemon owns the notification service.
func (n *InternalNotifier) NotifyStartup(version string) uint32 {
	return n.Notify("startup", "toastd started", "Notification daemon "+version+" is running.", NotificationLevelInfo)
}

// NotifyConfigReloaded reports a successful hot reload.
func (n *InternalNotifier) NotifyConfigReloaded() uint32 {
	return n.Notify("config-reload", "Configuration reloaded", "toastd picked up the new configuration.", NotificationLevelInfo)
}

// NotifyConfigError reports a config that failed to load; the old one stays active.
func (n *InternalNotifier) NotifyConfigError(err error) uint32 {
	return n.Notify("config-error", "Configuration error", "Keeping the previous configuration: "+err.Error(), NotificationLevelWarning)
}

// NotifyThemeError reports a theme that could not be loaded.
func (n *InternalNotifier) NotifyThemeError(err error) uint32 {
	return n.Notify("theme-error", "Theme error", "Failed to load theme: "+err.Error(), NotificationLevelWarning)
}
