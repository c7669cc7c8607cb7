// Package conn models one traced socket: its ordered event log, byte
// counters, bind state, and on-disk artifacts.
package conn

import (
	"sync"

	"github.com/rs/xid"

	"github.com/netsnitch/netsnitch/event"
)

// Connection aggregates everything the engine tracks for a single fd across
// its lifetime, from socket(2) through close(2).
type Connection struct {
	mu sync.Mutex

	ID  uint64
	XID xid.ID

	events             []*event.Event
	eventsCount        uint64
	lastJSONDumpEvCount uint64

	BytesSent     uint64
	BytesReceived uint64

	Bound     bool
	BoundAddr event.Address
	ForceBind bool

	bindInProgress bool

	LogsDir string

	CaptureSession any // set by capture package; opaque to this package
	JSONSink       any // set by jsonsink package; opaque to this package

	lastTCPInfo      event.TCPInfoPayload
	lastTCPInfoValid bool

	// lastInfoDumpBytes/lastInfoDumpMicros are the sampling policy's
	// cursors (spec.md §3/§4.6): the bytes_sent+bytes_received total and
	// wall-clock time, in Unix microseconds, as of the last tcp_info
	// sample. Both are zero-valued until the first sample, matching the
	// original's zero initial values: the time axis of the first
	// should_sample_tcp_info check then passes trivially, and the bytes
	// axis counts every byte since the connection was created.
	lastInfoDumpBytes  uint64
	lastInfoDumpMicros int64

	// rtt is the smoothed round-trip time, in microseconds, from the most
	// recent tcp_info sample -- used as the basis for stop_capture's
	// advisory linger_micros suggestion.
	rtt uint32
}

// New creates a Connection with the given registry-assigned id and on-disk
// directory. The XID used for external correlation (Prometheus labels, log
// fields) is assigned eagerly so every consumer sees a stable value.
func New(id uint64, logsDir string) *Connection {
	return &Connection{
		ID:      id,
		XID:     xid.New(),
		LogsDir: logsDir,
	}
}

// Append records ev as the next event for this connection, assigning its
// sequence id and updating the byte counters from the payload's
// transferred-byte field (SentBytes, ReceivedBytes, WrittenBytes or
// ReadBytes). Requested sizes and iovec lengths are not credited.
func (c *Connection) Append(ev *event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev.ID = c.eventsCount
	c.events = append(c.events, ev)
	c.eventsCount++

	switch p := ev.Payload.(type) {
	case event.SendPayload:
		c.BytesSent += uint64(p.SentBytes)
	case event.SendtoPayload:
		c.BytesSent += uint64(p.SentBytes)
	case event.SendmsgPayload:
		c.BytesSent += uint64(p.SentBytes)
	case event.WritePayload:
		c.BytesSent += uint64(p.WrittenBytes)
	case event.WritevPayload:
		c.BytesSent += uint64(p.WrittenBytes)
	case event.RecvPayload:
		c.BytesReceived += uint64(p.ReceivedBytes)
	case event.RecvfromPayload:
		c.BytesReceived += uint64(p.ReceivedBytes)
	case event.RecvmsgPayload:
		c.BytesReceived += uint64(p.ReceivedBytes)
	case event.ReadPayload:
		c.BytesReceived += uint64(p.ReadBytes)
	case event.ReadvPayload:
		c.BytesReceived += uint64(p.ReadBytes)
	case event.TCPInfoPayload:
		c.lastTCPInfo = p
		c.lastTCPInfoValid = true
		c.lastInfoDumpBytes = c.BytesSent + c.BytesReceived
		c.lastInfoDumpMicros = ev.Timestamp.UnixMicro()
		c.rtt = p.RTT
	}
}

// XIDLabel returns the connection's external correlation label, satisfying
// pkg/exporter.Source.
func (c *Connection) XIDLabel() string {
	return c.XID.String()
}

// LastTCPInfo returns the most recently sampled tcp_info snapshot, if any
// has been taken yet, satisfying pkg/exporter.Source.
func (c *Connection) LastTCPInfo() (event.TCPInfoPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTCPInfo, c.lastTCPInfoValid
}

// BytesTotal returns bytes_sent + bytes_received so far, the quantity the
// sampling policy's byte threshold is measured against.
func (c *Connection) BytesTotal() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BytesSent + c.BytesReceived
}

// TCPInfoSampleCursor returns the bytes-total and Unix-microseconds
// timestamp recorded at the last tcp_info sample, satisfying
// should_sample_tcp_info's last_info_dump_bytes/last_info_dump_micros
// inputs (spec.md §4.6).
func (c *Connection) TCPInfoSampleCursor() (bytes uint64, micros int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastInfoDumpBytes, c.lastInfoDumpMicros
}

// RTT returns the smoothed round-trip time, in microseconds, from the most
// recent tcp_info sample.
func (c *Connection) RTT() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rtt
}

// DrainPending returns the events appended since the last call to
// DrainPending (or since creation, for the first call) and atomically marks
// them as flushed, so a concurrent flush never sees the same event twice and
// never misses one appended between the snapshot and the mark.
func (c *Connection) DrainPending() []*event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.events[c.lastJSONDumpEvCount:]
	out := make([]*event.Event, len(pending))
	copy(out, pending)
	c.lastJSONDumpEvCount = c.eventsCount
	return out
}

// EventsCount returns the monotonic count of events ever appended.
func (c *Connection) EventsCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eventsCount
}

// PendingFlushCount returns events_count - last_json_dump_evcount, the
// quantity the sampling policy compares against json_flush_every_events.
func (c *Connection) PendingFlushCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eventsCount - c.lastJSONDumpEvCount
}

// BeginForceBind marks that this connection is in the lock-release window of
// the capture coordinator's force-bind protocol, so a concurrently observed
// record_bind on the same fd can tell a self-initiated bind from an
// unrelated one.
func (c *Connection) BeginForceBind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindInProgress = true
}

// EndForceBind clears the force-bind-in-progress marker.
func (c *Connection) EndForceBind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindInProgress = false
}

// BindInProgress reports whether a force-bind is currently underway for this
// connection.
func (c *Connection) BindInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindInProgress
}

// SetBound records the address this connection bound to, and whether the
// bind was forced by the capture coordinator rather than requested by the
// traced application.
func (c *Connection) SetBound(addr event.Address, forced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Bound = true
	c.BoundAddr = addr
	c.ForceBind = forced
}

// Reset clears all per-connection state without running destructors (no
// capture session teardown, no final JSON flush). Used on the fork-reset
// path, where a duplicated fd table in the child means destructors would
// double-free resources the parent still owns.
func (c *Connection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.eventsCount = 0
	c.lastJSONDumpEvCount = 0
	c.BytesSent = 0
	c.BytesReceived = 0
	c.Bound = false
	c.BoundAddr = event.Address{}
	c.ForceBind = false
	c.bindInProgress = false
	c.CaptureSession = nil
	c.JSONSink = nil
	c.lastTCPInfo = event.TCPInfoPayload{}
	c.lastTCPInfoValid = false
	c.lastInfoDumpBytes = 0
	c.lastInfoDumpMicros = 0
	c.rtt = 0
}
