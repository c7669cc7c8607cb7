// Package registry implements the fd-indexed connection arena: a resizable
// slice of per-slot-locked Connections, generalized from the teacher's
// flat fd-keyed connEntry map into the slot-per-fd arena spec.md requires.
package registry

import (
	"sync"

	"github.com/netsnitch/netsnitch/internal/conn"
)

type slot struct {
	mu   sync.Mutex
	occupied bool
	conn *conn.Connection
}

// Registry is a resizable, fd-indexed arena of Connections. Each slot has
// its own lock so operations on distinct fds never contend.
type Registry struct {
	growMu sync.Mutex
	slots  []*slot
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Handle is a locked Connection obtained via Acquire. Callers must call
// Release exactly once to unlock the slot.
type Handle struct {
	slot *slot
	conn *conn.Connection
}

// Conn returns the locked Connection.
func (h *Handle) Conn() *conn.Connection {
	return h.conn
}

// Release unlocks the slot. Safe to call exactly once per Handle returned by
// Acquire or Put.
func (h *Handle) Release() {
	h.slot.mu.Unlock()
}

func (r *Registry) ensureSlot(fd int) *slot {
	r.growMu.Lock()
	defer r.growMu.Unlock()
	if fd < len(r.slots) && r.slots[fd] != nil {
		return r.slots[fd]
	}
	if fd >= len(r.slots) {
		grown := make([]*slot, fd+1)
		copy(grown, r.slots)
		r.slots = grown
	}
	if r.slots[fd] == nil {
		r.slots[fd] = &slot{}
	}
	return r.slots[fd]
}

// Put installs c at fd's slot, locked, returning a Handle the caller must
// Release. If the slot was already occupied (a stale close was missed, e.g.
// the kernel reused the fd before record_close observed the previous
// owner's close), the previous Connection is evicted and returned so the
// caller can synthesize a detected-close event for it before discarding it.
func (r *Registry) Put(fd int, c *conn.Connection) (handle *Handle, evicted *conn.Connection) {
	s := r.ensureSlot(fd)
	s.mu.Lock()
	if s.occupied {
		evicted = s.conn
	}
	s.conn = c
	s.occupied = true
	return &Handle{slot: s, conn: c}, evicted
}

// Acquire locks and returns the slot at fd if occupied, or ok=false if no
// Connection is currently registered there.
func (r *Registry) Acquire(fd int) (handle *Handle, ok bool) {
	r.growMu.Lock()
	if fd >= len(r.slots) || r.slots[fd] == nil {
		r.growMu.Unlock()
		return nil, false
	}
	s := r.slots[fd]
	r.growMu.Unlock()

	s.mu.Lock()
	if !s.occupied {
		s.mu.Unlock()
		return nil, false
	}
	return &Handle{slot: s, conn: s.conn}, true
}

// Take locks, removes, and returns the Connection at fd, or ok=false if
// unoccupied. The caller owns the returned Connection and must not Release
// a Handle for it (Take does not return one).
func (r *Registry) Take(fd int) (c *conn.Connection, ok bool) {
	r.growMu.Lock()
	if fd >= len(r.slots) || r.slots[fd] == nil {
		r.growMu.Unlock()
		return nil, false
	}
	s := r.slots[fd]
	r.growMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.occupied {
		return nil, false
	}
	c = s.conn
	s.conn = nil
	s.occupied = false
	return c, true
}

// Present reports whether fd currently has a registered Connection, without
// acquiring the slot's lock for the caller to hold.
func (r *Registry) Present(fd int) bool {
	r.growMu.Lock()
	if fd >= len(r.slots) || r.slots[fd] == nil {
		r.growMu.Unlock()
		return false
	}
	s := r.slots[fd]
	r.growMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupied
}

// Size returns the number of currently occupied slots.
func (r *Registry) Size() int {
	r.growMu.Lock()
	slots := r.slots
	r.growMu.Unlock()

	n := 0
	for _, s := range slots {
		if s == nil {
			continue
		}
		s.mu.Lock()
		if s.occupied {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// Reset clears every occupied slot without invoking any destructor on the
// evicted Connections. Used on the fork-reset path, where the child's
// duplicated arena must not tear down resources the parent still owns.
func (r *Registry) Reset() {
	r.growMu.Lock()
	slots := r.slots
	r.growMu.Unlock()

	for _, s := range slots {
		if s == nil {
			continue
		}
		s.mu.Lock()
		s.conn = nil
		s.occupied = false
		s.mu.Unlock()
	}
}

// Free visits every occupied slot, invoking destroy on each Connection (the
// atexit path: final JSON flush, capture session teardown), then clears the
// arena. destroy is called with the slot unlocked so it may itself call back
// into the Registry (e.g. Take) without deadlocking.
func (r *Registry) Free(destroy func(*conn.Connection)) {
	r.growMu.Lock()
	slots := r.slots
	r.growMu.Unlock()

	for fd := range slots {
		c, ok := r.Take(fd)
		if !ok {
			continue
		}
		destroy(c)
	}
}
