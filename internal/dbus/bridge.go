package dbus

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/stack"
)

// Signaler emits the freedesktop signals for finished notifications.
// Server implements it.
type Signaler interface {
	EmitActionInvoked(id uint32, actionKey string) error
	EmitNotificationClosed(id uint32, reason CloseReason) error
}

// Scheduler is the part of the stack scheduler the bridge drives.
type Scheduler interface {
	Admit(req stack.Request) (stack.ID, error)
	Close(id stack.ID) bool
	Evict(id stack.ID) bool
}

// Bridge connects the D-Bus server to the notification stack. Incoming calls
// are posted onto the scheduler loop, and outcomes come back through Deliver.
type Bridge struct {
	signals Signaler
	loop    stack.Loop
	ids     *IDMap
	logger  *slog.Logger

	// Touched only on the loop.
	sched   Scheduler
	cfg     *config.Config
	onAdmit func(req stack.Request)
}

// NewBridge creates a bridge. SetScheduler must be called before the server
// starts dispatching.
func NewBridge(signals Signaler, loop stack.Loop, cfg *config.Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Bridge{
		signals: signals,
		loop:    loop,
		ids:     NewIDMap(),
		logger:  logger,
		cfg:     cfg,
	}
}

// SetScheduler sets the scheduler notifications are admitted to.
func (b *Bridge) SetScheduler(s Scheduler) {
	b.sched = s
}

// SetConfig replaces the config used to fill request defaults. Loop only.
func (b *Bridge) SetConfig(cfg *config.Config) {
	b.cfg = cfg
}

// OnAdmit registers a hook run on the loop after each successful admission.
func (b *Bridge) OnAdmit(fn func(req stack.Request)) {
	b.onAdmit = fn
}

// IDs returns the id map.
func (b *Bridge) IDs() *IDMap {
	return b.ids
}

// HandleNotify reserves the D-Bus id before admission is posted, so an
// outcome for the id's previous instance that lands in between stays silent.
func (b *Bridge) HandleNotify(n *DBusNotification, id uint32) {
	b.ids.Reserve(id)
	b.loop.Post(func() { b.admit(n, id) })
}

// HandleClose closes the current instance of a D-Bus id. Unknown ids are
// ignored.
func (b *Bridge) HandleClose(id uint32) {
	b.loop.Post(func() {
		sid, ok := b.ids.StackID(id)
		if !ok {
			b.logger.Debug("close requested for unknown notification", "dbus_id", id)
			return
		}
		b.sched.Close(sid)
	})
}

// HandleEvicted releases the D-Bus id of a silently evicted instance. It is
// registered as the scheduler's evict observer.
func (b *Bridge) HandleEvicted(id stack.ID) {
	dbusID, ok := b.ids.Release(id)
	if !ok {
		return
	}
	b.logger.Debug("notification evicted", "id", id, "dbus_id", dbusID)
}

func (b *Bridge) admit(n *DBusNotification, dbusID uint32) {
	req, err := n.ToRequest(b.cfg)
	if err != nil {
		b.logger.Warn("rejected notification", "dbus_id", dbusID, "app_name", n.AppName, "error", err)
		b.reject(dbusID)
		return
	}

	// Replacement: the old panel goes silently and the new one takes slot 0
	// under the same D-Bus id. An old instance that already finished settles
	// through Deliver.
	if n.ReplacesID != 0 {
		if old, ok := b.ids.StackID(n.ReplacesID); ok {
			b.sched.Evict(old)
		}
	}

	sid, err := b.sched.Admit(req)
	if err != nil {
		b.reject(dbusID)
		return
	}
	b.ids.Bind(dbusID, sid)

	b.logger.Debug("notification displayed", "id", sid, "dbus_id", dbusID, "app_name", n.AppName)

	if b.onAdmit != nil {
		b.onAdmit(req)
	}
}

// reject tells a waiting client the notification will never be shown, unless
// another instance is live or pending under the same D-Bus id.
func (b *Bridge) reject(dbusID uint32) {
	if !b.ids.Cancel(dbusID) {
		return
	}
	if err := b.signals.EmitNotificationClosed(dbusID, CloseReasonUndefined); err != nil {
		b.logger.Warn("failed to report rejected notification", "dbus_id", dbusID, "error", err)
	}
}

// Deliver turns an outcome into D-Bus signals. It is safe to call from any
// goroutine and is meant to run behind a stack.AsyncHost.
func (b *Bridge) Deliver(o stack.Outcome) error {
	dbusID, current, ok := b.ids.Settle(o.ID)
	if !ok {
		return fmt.Errorf("no D-Bus id for notification %s", o.ID)
	}

	var errs []error
	if o.Effect == stack.EffectInvoke {
		key := o.ActionKey
		if key == "" {
			key = "default"
		}
		if err := b.signals.EmitActionInvoked(dbusID, key); err != nil {
			errs = append(errs, err)
		}
	}
	if !current {
		b.logger.Debug("notification replaced, not reporting close", "id", o.ID, "dbus_id", dbusID)
		return errors.Join(errs...)
	}
	if err := b.signals.EmitNotificationClosed(dbusID, ReasonFor(o.Trigger)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReasonFor maps a close trigger to the freedesktop close reason.
func ReasonFor(t stack.Trigger) CloseReason {
	switch t {
	case stack.TriggerTimeout:
		return CloseReasonExpired
	case stack.TriggerUserAction:
		return CloseReasonDismissed
	case stack.TriggerRequest:
		return CloseReasonClosed
	default:
		return CloseReasonUndefined
	}
}
