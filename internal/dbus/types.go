package dbus

import (
	"github.com/godbus/dbus/v5"
)

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved/undefined by the freedesktop protocol.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Hints understood in addition to the freedesktop ones.
const (
	HintSecondary     = "x-toastd-secondary"
	HintWidth         = "x-toastd-width"
	HintHeight        = "x-toastd-height"
	HintAnimation     = "x-toastd-animation"
	HintCountdown     = "x-toastd-countdown"
	HintActionEffect  = "x-toastd-action-effect"
	HintTimeoutEffect = "x-toastd-timeout-effect"
)

// DBusNotification represents an incoming D-Bus Notify call.
// It contains the raw parameters from the org.freedesktop.Notifications.Notify method.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Action represents a notification action with key and label.
type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ParsedActions converts the D-Bus action array to structured form.
// D-Bus actions are passed as alternating key/label pairs.
func (n *DBusNotification) ParsedActions() []Action {
	actions := make([]Action, 0, len(n.Actions)/2)
	for i := 0; i+1 < len(n.Actions); i += 2 {
		actions = append(actions, Action{
			Key:   n.Actions[i],
			Label: n.Actions[i+1],
		})
	}
	return actions
}

// PrimaryAction returns the first action pair. Panels show a single action.
func (n *DBusNotification) PrimaryAction() (Action, bool) {
	actions := n.ParsedActions()
	if len(actions) == 0 {
		return Action{}, false
	}
	a := actions[0]
	if a.Label == "" {
		a.Label = a.Key
	}
	return a, true
}

// Urgency extracts the urgency hint from the notification.
// Returns 1 (normal) if not specified.
func (n *DBusNotification) Urgency() uint8 {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return b
		}
	}
	return 1
}

// SoundFile extracts the sound-file hint.
func (n *DBusNotification) SoundFile() string {
	s, _ := n.stringHint("sound-file")
	return s
}

// SuppressSound returns true if the suppress-sound hint is set.
func (n *DBusNotification) SuppressSound() bool {
	b, _ := n.boolHint("suppress-sound")
	return b
}

// Secondary extracts the secondary subtitle hint.
func (n *DBusNotification) Secondary() string {
	s, _ := n.stringHint(HintSecondary)
	return s
}

func (n *DBusNotification) stringHint(key string) (string, bool) {
	if v, ok := n.Hints[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s, true
		}
	}
	return "", false
}

func (n *DBusNotification) boolHint(key string) (bool, bool) {
	if v, ok := n.Hints[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b, true
		}
	}
	return false, false
}

// numberHint accepts any numeric variant, since notify-send sends int32 and
// other clients send doubles.
func (n *DBusNotification) numberHint(key string) (float64, bool) {
	v, ok := n.Hints[key]
	if !ok {
		return 0, false
	}
	switch val := v.Value().(type) {
	case float64:
		return val, true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case byte:
		return float64(val), true
	}
	return 0, false
}

// ServerCapabilities lists the capabilities advertised by toastd.
var ServerCapabilities = []string{
	"actions", // Support the primary notification action
	"body",    // Support body text
	"sound",   // Support sound-file hints
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "toastd",
		Vendor:      "toastd",
		Version:     "0.1.0",
		SpecVersion: "1.2",
	}
}
