// Package dbus implements the org.freedesktop.Notifications D-Bus interface.
// The server decodes calls and emits signals, the Bridge maps Notify calls onto
// the notification stack and outcomes back onto NotificationClosed and
// ActionInvoked, and the Client is used by the toast CLI.
package dbus
