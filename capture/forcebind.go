package capture

import (
	"fmt"
	"net"
)

const (
	ephemeralPortLow  = 32768
	ephemeralPortHigh = 60999
)

// ForceBind implements the force-bind protocol: a connection that never
// called bind() itself has no local port to add to the capture filter, so
// the coordinator picks an ephemeral port for it: ForceBind calls bind for
// each port in [32768, 60999] in order and returns the first port for which
// bind succeeds. Any error from bind moves on to the next port.
//
// Callers must release the connection's lock before calling ForceBind and
// mark BeginForceBind/EndForceBind around it (see internal/conn), because
// bind(2) itself does not require holding that lock and the original
// protocol explicitly releases it to avoid a lock-ordering hazard between
// the per-connection lock and the kernel call.
func ForceBind(bind func(port int) error) (boundPort int, err error) {
	for port := ephemeralPortLow; port <= ephemeralPortHigh; port++ {
		if err := bind(port); err == nil {
			return port, nil
		}
	}
	return 0, fmt.Errorf("capture: no ephemeral port available in [%d, %d]", ephemeralPortLow, ephemeralPortHigh)
}

// BindTCPConn is the availability probe passed to ForceBind: it opens a TCP
// listener on ip:port and closes it at once, returning nil if the port was
// free. It does not bind any existing socket; the traced socket stays
// unbound, and the chosen port is only recorded.
func BindTCPConn(ip net.IP, port int) error {
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: ip, Port: port})
	if err != nil {
		return err
	}
	return l.Close()
}
