package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	BusName    = "org.freedesktop.Notifications"
	ObjectPath = "/org/freedesktop/Notifications"
	Interface  = "org.freedesktop.Notifications"
)

var (
	// ErrNotServing is returned when a signal is emitted before Serve.
	ErrNotServing = errors.New("notification server is not serving")
	// ErrNameTaken means another notification daemon owns the bus name.
	ErrNameTaken = errors.New("bus name " + BusName + " is owned by another daemon")
)

// Receiver accepts the calls the server decodes. Both methods run on a
// D-Bus dispatch goroutine and must not block. Bridge implements it.
type Receiver interface {
	HandleNotify(n *DBusNotification, id uint32)
	HandleClose(id uint32)
}

// Server owns the bus name and translates method calls for a Receiver. It
// keeps no notification state besides the id counter.
type Server struct {
	info   ServerInfo
	logger *slog.Logger
	lastID atomic.Uint32

	mu   sync.Mutex
	conn *dbus.Conn
	recv Receiver
}

// NewServer creates a server that answers GetServerInformation with info.
func NewServer(info ServerInfo, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{info: info, logger: logger}
}

// Serve claims the notification service on the shared session bus.
func (s *Server) Serve(recv Receiver) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.ServeOn(conn, recv)
}

// ServeOn exports the service object on conn, then requests the bus name.
func (s *Server) ServeOn(conn *dbus.Conn, recv Receiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return errors.New("notification server already serving")
	}

	obj := &busObject{s: s}
	if err := conn.Export(obj, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export %s: %w", ObjectPath, err)
	}
	if err := conn.Export(introspect.NewIntrospectable(introspection()), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return ErrNameTaken
	}

	s.conn = conn
	s.recv = recv
	s.logger.Info("serving notifications", "bus_name", BusName, "path", ObjectPath)
	return nil
}

// Shutdown gives up the bus name. The shared connection stays open.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}

	_, err := s.conn.ReleaseName(BusName)
	s.conn = nil
	s.recv = nil
	if err != nil {
		return fmt.Errorf("failed to release %s: %w", BusName, err)
	}
	s.logger.Info("stopped serving notifications")
	return nil
}

// Submit injects a notification from inside the daemon under a fresh id.
func (s *Server) Submit(n *DBusNotification) uint32 {
	id := s.nextID()
	s.receive(n, id)
	return id
}

func (s *Server) nextID() uint32 {
	for {
		if id := s.lastID.Add(1); id != 0 {
			return id
		}
	}
}

func (s *Server) receiver() Receiver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recv
}

func (s *Server) receive(n *DBusNotification, id uint32) {
	recv := s.receiver()
	if recv == nil {
		s.logger.Warn("dropping notification, server not serving", "id", id, "summary", n.Summary)
		return
	}
	recv.HandleNotify(n, id)
}

// busObject carries the exported D-Bus methods so Server's own API stays
// off the bus.
type busObject struct {
	s *Server
}

func (o *busObject) GetCapabilities() ([]string, *dbus.Error) {
	return ServerCapabilities, nil
}

func (o *busObject) GetServerInformation() (name, vendor, version, specVersion string, _ *dbus.Error) {
	info := o.s.info
	return info.Name, info.Vendor, info.Version, info.SpecVersion, nil
}

// Notify keeps replacesID as the id of a replacement so the sender's later
// signals still match.
func (o *busObject) Notify(appName string, replacesID uint32, appIcon, summary, body string,
	actions []string, hints map[string]dbus.Variant, expireTimeout int32) (uint32, *dbus.Error) {
	id := replacesID
	if id == 0 {
		id = o.s.nextID()
	}
	o.s.logger.Debug("Notify", "id", id, "app_name", appName, "replaces_id", replacesID, "summary", summary)

	o.s.receive(&DBusNotification{
		AppName:       appName,
		ReplacesID:    replacesID,
		AppIcon:       appIcon,
		Summary:       summary,
		Body:          body,
		Actions:       actions,
		Hints:         hints,
		ExpireTimeout: expireTimeout,
	}, id)
	return id, nil
}

// CloseNotification is forwarded as is. Unknown ids are the receiver's call.
func (o *busObject) CloseNotification(id uint32) *dbus.Error {
	o.s.logger.Debug("CloseNotification", "id", id)
	if recv := o.s.receiver(); recv != nil {
		recv.HandleClose(id)
	}
	return nil
}

func in(name, sig string) introspect.Arg {
	return introspect.Arg{Name: name, Type: sig, Direction: "in"}
}

func out(name, sig string) introspect.Arg {
	return introspect.Arg{Name: name, Type: sig, Direction: "out"}
}

func introspection() *introspect.Node {
	return &introspect.Node{
		Name: ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: Interface,
				Methods: []introspect.Method{
					{Name: "GetCapabilities", Args: []introspect.Arg{out("capabilities", "as")}},
					{Name: "GetServerInformation", Args: []introspect.Arg{
						out("name", "s"), out("vendor", "s"), out("version", "s"), out("spec_version", "s"),
					}},
					{Name: "Notify", Args: []introspect.Arg{
						in("app_name", "s"), in("replaces_id", "u"), in("app_icon", "s"),
						in("summary", "s"), in("body", "s"), in("actions", "as"),
						in("hints", "a{sv}"), in("expire_timeout", "i"), out("id", "u"),
					}},
					{Name: "CloseNotification", Args: []introspect.Arg{in("id", "u")}},
				},
				Signals: []introspect.Signal{
					{Name: "NotificationClosed", Args: []introspect.Arg{{Name: "id", Type: "u"}, {Name: "reason", Type: "u"}}},
					{Name: "ActionInvoked", Args: []introspect.Arg{{Name: "id", Type: "u"}, {Name: "action_key", Type: "s"}}},
				},
			},
		},
	}
}
