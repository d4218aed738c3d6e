// Package daemon holds the toastd pieces that run beside the scheduler:
// config hot reload and the daemon's own notifications.
package daemon
