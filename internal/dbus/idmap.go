package dbus

import (
	"sync"

	"github.com/jmylchreest/toastd/internal/stack"
)

// IDMap tracks which D-Bus ids are live. A D-Bus id is reserved when Notify
// is accepted, bound to a stack instance once the loop admits it, and
// released when that instance finishes. Replacements rebind the same D-Bus
// id, so an instance can finish after its id has moved on; Settle reports
// that case. Reserve runs on the D-Bus goroutine, Settle on the outcome
// goroutine and the rest on the loop, so all access is locked.
type IDMap struct {
	mu sync.Mutex

	byDBusID  map[uint32]stack.ID // current instance of each D-Bus id
	byStackID map[stack.ID]uint32 // every unfinished instance
	pending   map[uint32]int      // accepted Notify calls not yet admitted
}

// NewIDMap creates an empty IDMap.
func NewIDMap() *IDMap {
	return &IDMap{
		byDBusID:  make(map[uint32]stack.ID),
		byStackID: make(map[stack.ID]uint32),
		pending:   make(map[uint32]int),
	}
}

// Reserve records an accepted Notify for dbusID ahead of its admission.
func (m *IDMap) Reserve(dbusID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[dbusID]++
}

// Bind makes id the current instance of dbusID and settles one reservation.
// A previous instance keeps its entry until it is released.
func (m *IDMap) Bind(dbusID uint32, id stack.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unreserve(dbusID)
	m.byDBusID[dbusID] = id
	m.byStackID[id] = dbusID
}

// Cancel settles a reservation whose admission failed. It reports whether
// dbusID is now idle, with no instance and no other admission pending.
func (m *IDMap) Cancel(dbusID uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unreserve(dbusID)
	_, bound := m.byDBusID[dbusID]
	return !bound && m.pending[dbusID] == 0
}

// StackID returns the current instance of a D-Bus id.
func (m *IDMap) StackID(dbusID uint32) (stack.ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byDBusID[dbusID]
	return id, ok
}

// DBusID returns the D-Bus id an instance was admitted under.
func (m *IDMap) DBusID(id stack.ID) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dbusID, ok := m.byStackID[id]
	return dbusID, ok
}

// Release forgets a finished instance and returns its D-Bus id.
func (m *IDMap) Release(id stack.ID) (uint32, bool) {
	dbusID, _, ok := m.Settle(id)
	return dbusID, ok
}

// Settle is Release that also reports whether the instance was still the
// current one for its D-Bus id. It is not when a replacement has been bound
// or accepted under the same id.
func (m *IDMap) Settle(id stack.ID) (dbusID uint32, current bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dbusID, ok = m.byStackID[id]
	if !ok {
		return 0, false, false
	}
	delete(m.byStackID, id)

	current = m.byDBusID[dbusID] == id && m.pending[dbusID] == 0
	if m.byDBusID[dbusID] == id {
		delete(m.byDBusID, dbusID)
	}
	return dbusID, current, true
}

// Len returns the number of unfinished instances.
func (m *IDMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byStackID)
}

func (m *IDMap) unreserve(dbusID uint32) {
	switch n := m.pending[dbusID]; {
	case n > 1:
		m.pending[dbusID] = n - 1
	case n == 1:
		delete(m.pending, dbusID)
	}
}
