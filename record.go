package netsnitch

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/netsnitch/netsnitch/capture"
	"github.com/netsnitch/netsnitch/event"
	"github.com/netsnitch/netsnitch/internal/conn"
	"github.com/netsnitch/netsnitch/internal/rawtcpinfo"
	"github.com/netsnitch/netsnitch/jsonsink"
	"github.com/netsnitch/netsnitch/policy"
)

const eventsFileName = "events.json"
const pcapFileName = "capture.pcap"

// RecordSocket registers a new connection for fd, synthesizing a detected
// close for whatever connection (if any) previously occupied that slot --
// the original tool's close-on-stale behavior, which covers the case where
// the kernel reused an fd before the traced process's close() was observed.
func RecordSocket(fd int, domain, sockType string, protocol int, returnValue int, errStr string) {
	defaultEngine.recordSocket(fd, domain, sockType, protocol, returnValue, errStr)
}

func (e *Engine) recordSocket(fd int, domain, sockType string, protocol int, returnValue int, errStr string) {
	if e.State() != Initialized {
		return
	}

	id := e.nextID()
	dir := filepath.Join(e.logsDir, fmt.Sprintf("%d", id))
	if err := os.MkdirAll(dir, 0777); err != nil {
		e.logger.WithError(err).Error("netsnitch: failed to create connection directory")
	}
	c := conn.New(id, dir)

	handle, evicted := e.registry.Put(fd, c)
	defer handle.Release()

	if evicted != nil {
		closeEv := event.New(event.Close, 0, "", 0)
		closeEv.Payload = event.ClosePayload{}
		evicted.Append(closeEv)
		e.logger.WithField("fd", fd).Warn("netsnitch: fd reused before close observed, closing stale connection")
		finalizeConnection(e, evicted)
	}

	ev := event.New(event.Socket, returnValue, errStr, 0)
	ev.Payload = event.SocketPayload{Domain: domain, Type: sockType, Protocol: protocol}
	c.Append(ev)
}

// RecordBind records a bind(2) call. If the bind is a self-initiated
// force-bind (see capture.ForceBind), forceBind must be true so downstream
// consumers don't mistake it for an application-requested bind.
func RecordBind(fd int, addr event.Address, forceBind bool, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Bind, returnValue, errStr, 0)
		ev.Payload = event.BindPayload{Addr: addr, ForceBind: forceBind}
		c.Append(ev)
		if ev.Success {
			c.SetBound(addr, forceBind)
		}
	})
}

// RecordConnect records a connect(2) call. On success it also starts this
// connection's packet capture session, scoped to the peer address via
// capture.BuildFilter -- the Go equivalent of the original's
// start_capture(build_capture_filter(...)) sequence. Capture is started
// after the Connection's registry slot has been released (see startCapture),
// since the force-bind protocol it may run needs to call back into RecordBind
// on the same fd.
func RecordConnect(fd int, addr event.Address, returnValue int, errStr string) {
	var success bool
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Connect, returnValue, errStr, 0)
		ev.Payload = event.ConnectPayload{Addr: addr}
		c.Append(ev)
		success = ev.Success
	})
	if success {
		startCapture(fd, addr)
	}
}

// startCapture builds this connection's BPF filter and begins a capture
// session. If the socket is not yet bound, it runs the force-bind protocol
// (spec.md §4.5) first: release any claim on the Connection, probe the
// kernel ephemeral port range for a free port, synthesize the resulting
// record_bind with force_bind=true, then proceed. Each step below
// acquires/releases the registry slot independently rather than holding it
// across the whole function, because RecordBind re-acquires the same slot
// and a held lock here would deadlock against it.
func startCapture(fd int, peer event.Address) {
	e := defaultEngine

	handle, ok := e.registry.Acquire(fd)
	if !ok {
		return
	}
	c := handle.Conn()
	bound := c.Bound
	localPort := c.BoundAddr.Port
	logsDir := c.LogsDir
	xidLabel := c.XID.String()
	if !bound {
		c.BeginForceBind()
	}
	handle.Release()

	if !bound {
		if port, err := capture.ForceBind(forceBindProbe(peer.IP)); err == nil {
			RecordBind(fd, event.Address{IP: anyIP(peer.IP).String(), Port: port}, true, 0, "")
			localPort = port
		} else {
			e.logger.WithError(err).Warn("netsnitch: force-bind failed, capture filter will be destination-only")
		}

		if h, ok := e.registry.Acquire(fd); ok {
			h.Conn().EndForceBind()
			h.Release()
		}
	}

	filter := capture.BuildFilter(peer.IP, peer.Port, localPort)
	pcapPath := filepath.Join(logsDir, pcapFileName)

	sess, err := capture.Start(e.cfg.CaptureDevice, filter, pcapPath, e.logger.WithField("connection", xidLabel))
	if err != nil {
		e.logger.WithError(err).Warn("netsnitch: capture session failed to start")
		return
	}

	if h, ok := e.registry.Acquire(fd); ok {
		h.Conn().CaptureSession = sess
		h.Release()
		return
	}
	// Connection was closed while the capture session was starting.
	if _, err := sess.Stop(); err != nil {
		e.logger.WithError(err).Error("netsnitch: failed to stop orphaned capture session")
	}
}

// forceBindProbe returns the bind closure capture.ForceBind expects, probing
// the given port against the any-address of whichever family peerIP is in,
// matching the original's INADDR_ANY/in6addr_any choice.
func forceBindProbe(peerIP string) func(port int) error {
	ip := anyIP(peerIP)
	return func(port int) error {
		return capture.BindTCPConn(ip, port)
	}
}

func anyIP(peerIP string) net.IP {
	if parsed := net.ParseIP(peerIP); parsed != nil && parsed.To4() == nil {
		return net.IPv6unspecified
	}
	return net.IPv4zero
}

// RecordShutdown records a shutdown(2) call.
func RecordShutdown(fd int, how string, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Shutdown, returnValue, errStr, 0)
		ev.Payload = event.ShutdownPayload{How: how}
		c.Append(ev)
	})
}

// RecordListen records a listen(2) call.
func RecordListen(fd int, backlog int, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Listen, returnValue, errStr, 0)
		ev.Payload = event.ListenPayload{Backlog: backlog}
		c.Append(ev)
	})
}

// RecordSetsockopt records a setsockopt(2) call. Open Question O3: level is
// captured directly from the caller's argument, not derived from a lookup
// keyed on optname -- the original source assigned the level field before
// performing any such lookup, so there is no dependency to get backwards.
func RecordSetsockopt(fd int, level, optname, optval int, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Setsockopt, returnValue, errStr, 0)
		ev.Payload = event.SetsockoptPayload{Level: level, Optname: optname, Optval: optval}
		c.Append(ev)
	})
}

// RecordSend records a send(2) call. sentBytes is the semantic payload size
// on success (returnValue itself, when non-negative); on failure it is 0.
// Like every data-transfer record path, it consults the sampling policy
// after appending and may append a follow-up tcp_info event (spec.md §4.6,
// tcp_events.c:425-433's should_dump_tcp_info check).
func RecordSend(fd int, requestedBytes int, flags event.SendFlags, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Send, returnValue, errStr, 0)
		ev.Payload = event.SendPayload{RequestedBytes: requestedBytes, SentBytes: sentBytesOf(returnValue), Flags: flags}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordRecv records a recv(2) call.
func RecordRecv(fd int, requestedBytes int, flags event.RecvFlags, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Recv, returnValue, errStr, 0)
		ev.Payload = event.RecvPayload{RequestedBytes: requestedBytes, ReceivedBytes: sentBytesOf(returnValue), Flags: flags}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordSendto records a sendto(2) call.
func RecordSendto(fd int, requestedBytes int, flags event.SendFlags, addr event.Address, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Sendto, returnValue, errStr, 0)
		ev.Payload = event.SendtoPayload{RequestedBytes: requestedBytes, SentBytes: sentBytesOf(returnValue), Flags: flags, Addr: addr}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordRecvfrom records a recvfrom(2) call.
func RecordRecvfrom(fd int, requestedBytes int, flags event.RecvFlags, addr event.Address, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Recvfrom, returnValue, errStr, 0)
		ev.Payload = event.RecvfromPayload{RequestedBytes: requestedBytes, ReceivedBytes: sentBytesOf(returnValue), Flags: flags, Addr: addr}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordSendmsg records a sendmsg(2) call.
func RecordSendmsg(fd int, iovecs []event.IovecSummary, flags event.SendFlags, addr *event.Address, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Sendmsg, returnValue, errStr, 0)
		ev.Payload = event.SendmsgPayload{Iovecs: iovecs, SentBytes: sentBytesOf(returnValue), Flags: flags, Addr: addr}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordRecvmsg records a recvmsg(2) call.
func RecordRecvmsg(fd int, iovecs []event.IovecSummary, flags event.RecvFlags, addr *event.Address, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Recvmsg, returnValue, errStr, 0)
		ev.Payload = event.RecvmsgPayload{Iovecs: iovecs, ReceivedBytes: sentBytesOf(returnValue), Flags: flags, Addr: addr}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordWrite records a write(2) call.
func RecordWrite(fd int, requestedBytes int, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Write, returnValue, errStr, 0)
		ev.Payload = event.WritePayload{RequestedBytes: requestedBytes, WrittenBytes: sentBytesOf(returnValue)}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordRead records a read(2) call.
func RecordRead(fd int, requestedBytes int, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Read, returnValue, errStr, 0)
		ev.Payload = event.ReadPayload{RequestedBytes: requestedBytes, ReadBytes: sentBytesOf(returnValue)}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordWritev records a writev(2) call.
func RecordWritev(fd int, iovecs []event.IovecSummary, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Writev, returnValue, errStr, 0)
		ev.Payload = event.WritevPayload{Iovecs: iovecs, WrittenBytes: sentBytesOf(returnValue)}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordReadv records a readv(2) call.
func RecordReadv(fd int, iovecs []event.IovecSummary, returnValue int, errStr string) {
	withConn(fd, func(c *conn.Connection) {
		ev := event.New(event.Readv, returnValue, errStr, 0)
		ev.Payload = event.ReadvPayload{Iovecs: iovecs, ReadBytes: sentBytesOf(returnValue)}
		c.Append(ev)
		maybeSampleTCPInfo(fd, c)
	})
}

// RecordClose records a close(2) call and finalizes the connection: flushes
// its remaining JSON events, stops any running capture session, and removes
// it from the registry.
func RecordClose(fd int, returnValue int, errStr string) {
	c, ok := defaultEngine.registry.Take(fd)
	if !ok {
		return
	}
	ev := event.New(event.Close, returnValue, errStr, 0)
	ev.Payload = event.ClosePayload{}
	c.Append(ev)
	finalizeConnection(defaultEngine, c)
}

// RecordTCPInfo records an explicit, caller-triggered tcp_info sample,
// independent of the sampling policy, for callers that want a snapshot now.
func RecordTCPInfo(fd int) {
	withConn(fd, func(c *conn.Connection) {
		sampleTCPInfo(fd, c)
	})
}

func sentBytesOf(returnValue int) int {
	if returnValue < 0 {
		return 0
	}
	return returnValue
}

func withConn(fd int, fn func(*conn.Connection)) {
	handle, ok := defaultEngine.registry.Acquire(fd)
	if !ok {
		return
	}
	defer handle.Release()
	fn(handle.Conn())
	flushIfDue(defaultEngine, handle.Conn())
}

// maybeSampleTCPInfo consults the sampling policy after a data-transfer
// event has been appended and, if due, samples and appends a follow-up
// tcp_info event -- the Go equivalent of tcp_events.c:425-433's
// should_dump_tcp_info(con) && ev_type != TCP_EV_TCP_INFO check (spec.md
// §4.6, §8 scenario 6). The byte cursor is read after c.Append(ev) so the
// event that was just recorded counts toward the threshold.
func maybeSampleTCPInfo(fd int, c *conn.Connection) {
	e := defaultEngine
	lastBytes, lastMicros := c.TCPInfoSampleCursor()
	sinceLastSample := time.Since(time.UnixMicro(lastMicros))
	bytesSinceLastSample := c.BytesTotal() - lastBytes
	if policy.ShouldSampleTCPInfo(sinceLastSample, bytesSinceLastSample, e.cfg.TCPInfoTimeThreshold, e.cfg.BytesThreshold) {
		sampleTCPInfo(fd, c)
	}
}

func sampleTCPInfo(fd int, c *conn.Connection) {
	info, err := rawtcpinfo.Get(fd)
	if err != nil {
		return
	}
	ev := event.New(event.TCPInfo, 0, "", 0)
	ev.Payload = event.TCPInfoPayload{
		State:        fmt.Sprintf("%d", info.State),
		RTT:          info.RTT,
		RTTVar:       info.RTTVar,
		SndCwnd:      info.SndCwnd,
		SndMss:       info.SndMSS,
		RcvMss:       info.RcvMSS,
		Retransmits:  info.Retransmits,
		TotalRetrans: info.TotalRetrans,
	}
	c.Append(ev)
}

func flushIfDue(e *Engine, c *conn.Connection) {
	if !policy.ShouldFlushJSON(c.PendingFlushCount(), 0, e.cfg.JSONFlushEvery) {
		return
	}
	flush(e, c)
}

func flush(e *Engine, c *conn.Connection) {
	sink, ok := c.JSONSink.(*jsonsink.Sink)
	if !ok {
		var err error
		sink, err = jsonsink.Open(filepath.Join(c.LogsDir, eventsFileName), e.logger.WithField("connection", c.XID.String()))
		if err != nil {
			e.logger.WithError(err).Error("netsnitch: failed to open events.json")
			return
		}
		c.JSONSink = sink
	}
	sink.Append(c.DrainPending())
}

func finalizeConnection(e *Engine, c *conn.Connection) {
	flush(e, c)
	if sink, ok := c.JSONSink.(*jsonsink.Sink); ok {
		if err := sink.Close(); err != nil {
			e.logger.WithError(err).Error("netsnitch: failed to close events.json")
		}
	}
	if sess, ok := c.CaptureSession.(capture.Session); ok {
		if _, err := sess.Stop(); err != nil {
			e.logger.WithError(err).Error("netsnitch: failed to stop capture session")
		}
	}
}
