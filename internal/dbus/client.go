package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ClosedEvent is what a client observed for one notification.
type ClosedEvent struct {
	ID        uint32
	Reason    CloseReason
	ActionKey string // empty unless ActionInvoked was seen
}

// Client talks to a running notification server on the session bus.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	signals chan *dbus.Signal
}

// NewClient opens a private session bus connection.
func NewClient() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{
		conn: conn,
		obj:  conn.Object(BusName, ObjectPath),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Subscribe starts receiving the server's signals. Call it before Notify so
// a fast close is not missed.
func (c *Client) Subscribe() error {
	if c.signals != nil {
		return nil
	}
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
	); err != nil {
		return fmt.Errorf("failed to add signal match: %w", err)
	}
	c.signals = make(chan *dbus.Signal, 16)
	c.conn.Signal(c.signals)
	return nil
}

// Notify sends a notification and returns the id assigned by the server.
func (c *Client) Notify(ctx context.Context, n *DBusNotification) (uint32, error) {
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}

	var id uint32
	err := c.obj.CallWithContext(ctx, Interface+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body,
		actions, hints, n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	return id, nil
}

// CloseNotification asks the server to close id.
func (c *Client) CloseNotification(ctx context.Context, id uint32) error {
	if err := c.obj.CallWithContext(ctx, Interface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("close notification %d: %w", id, err)
	}
	return nil
}

// ServerInformation returns the server's name, vendor and versions.
func (c *Client) ServerInformation(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.obj.CallWithContext(ctx, Interface+".GetServerInformation", 0).
		Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("get server information: %w", err)
	}
	return info, nil
}

// WaitClosed blocks until NotificationClosed arrives for id.
func (c *Client) WaitClosed(ctx context.Context, id uint32) (ClosedEvent, error) {
	if c.signals == nil {
		return ClosedEvent{}, fmt.Errorf("not subscribed to signals")
	}

	ev := ClosedEvent{ID: id}
	for {
		select {
		case <-ctx.Done():
			return ev, ctx.Err()
		case sig, ok := <-c.signals:
			if !ok {
				return ev, fmt.Errorf("signal channel closed")
			}
			if ev.apply(sig) {
				return ev, nil
			}
		}
	}
}

// apply folds a signal into the event and reports whether it was the final
// NotificationClosed for the event's id.
func (e *ClosedEvent) apply(sig *dbus.Signal) bool {
	if sig == nil || len(sig.Body) < 2 {
		return false
	}
	id, ok := sig.Body[0].(uint32)
	if !ok || id != e.ID {
		return false
	}

	switch sig.Name {
	case Interface + ".ActionInvoked":
		if key, ok := sig.Body[1].(string); ok {
			e.ActionKey = key
		}
	case Interface + ".NotificationClosed":
		if reason, ok := sig.Body[1].(uint32); ok {
			e.Reason = CloseReason(reason)
		}
		return true
	}
	return false
}
