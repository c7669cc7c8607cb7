package netsnitch

import (
	"net"

	"github.com/higebu/netfd"

	"github.com/netsnitch/netsnitch/event"
)

// Conn wraps a net.Conn so its Read/Write/Close calls feed record.go's
// entry points automatically, generalizing the teacher's sockstats.Conn
// (which reported one summary struct per connection) into a pure-Go
// on-ramp to the full record_* event stream: every Read is a RecordRecv,
// every Write a RecordSend, Close a RecordClose.
type Conn struct {
	net.Conn
	fd int
}

// Wrap registers ncon with the engine and returns a net.Conn whose
// Read/Write/Close calls are traced. ncon must be a *net.TCPConn; any other
// type is returned unwrapped, since netsnitch only instruments TCP sockets.
func Wrap(ncon net.Conn) net.Conn {
	tcpConn, ok := ncon.(*net.TCPConn)
	if !ok {
		return ncon
	}

	fd := netfd.GetFdFromConn(tcpConn)
	if fd < 0 {
		return ncon
	}

	RecordSocket(fd, "AF_INET", "SOCK_STREAM", 0, fd, "")

	if local, ok := tcpConn.LocalAddr().(*net.TCPAddr); ok {
		RecordBind(fd, event.Address{IP: local.IP.String(), Port: local.Port}, false, 0, "")
	}
	if remote, ok := tcpConn.RemoteAddr().(*net.TCPAddr); ok {
		RecordConnect(fd, event.Address{IP: remote.IP.String(), Port: remote.Port}, 0, "")
	}

	return &Conn{Conn: tcpConn, fd: fd}
}

func (c *Conn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	RecordRecv(c.fd, len(b), event.RecvFlags{}, returnValueOf(n, err), errString(err))
	return n, err
}

func (c *Conn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	RecordSend(c.fd, len(b), event.SendFlags{}, returnValueOf(n, err), errString(err))
	return n, err
}

func (c *Conn) Close() error {
	err := c.Conn.Close()
	RecordClose(c.fd, returnValueOf(0, err), errString(err))
	return err
}

func returnValueOf(n int, err error) int {
	if err != nil {
		return -1
	}
	return n
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
