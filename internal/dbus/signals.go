package dbus

import "fmt"

// EmitActionInvoked reports that the action key of notification id was taken.
func (s *Server) EmitActionInvoked(id uint32, actionKey string) error {
	return s.emit("ActionInvoked", id, actionKey)
}

// EmitNotificationClosed reports that notification id is gone. The caller
// decides whether an id still deserves a signal.
func (s *Server) EmitNotificationClosed(id uint32, reason CloseReason) error {
	return s.emit("NotificationClosed", id, uint32(reason))
}

func (s *Server) emit(member string, args ...interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotServing
	}

	if err := conn.Emit(ObjectPath, Interface+"."+member, args...); err != nil {
		return fmt.Errorf("failed to emit %s: %w", member, err)
	}
	s.logger.Debug("signal emitted", "member", member, "args", args)
	return nil
}
