// Package stack schedules a bounded, vertically stacked set of notification
// panels. It owns admission and eviction, slot layout, the per-notification
// auto-close timers, and exactly-once reporting of each notification's outcome
// to a host.
//
// All Scheduler and Controller methods run on a single Loop. Timers fire on
// their own goroutines and post back onto that loop.
package stack
