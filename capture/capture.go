// Package capture coordinates per-connection packet capture: building a BPF
// filter isolating one connection's traffic, running pcap_loop equivalent in
// a goroutine, and the force-bind protocol used to capture connect()-only
// connections that never called bind() themselves.
//
// Grounded on the original tool's packet_sniffer.c (get_capture_handle,
// start_capture, capture_thread, stop_capture, build_capture_filter), mapped
// onto github.com/google/gopacket/pcap.
package capture

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

const snapLen = 65535

// Session is one running capture: a live pcap handle dumping to a pcap file,
// stoppable exactly once. It is exposed as an interface so Connection can
// hold it opaquely (internal/conn never imports gopacket).
type Session interface {
	// Stop ends the capture loop and waits for it to exit, returning the
	// number of packets captured, mirroring the original's stop_capture.
	Stop() (packetCount int64, err error)
}

type session struct {
	handle  *pcap.Handle
	dumper  *pcapgo.Writer
	file    *os.File
	wg      sync.WaitGroup
	count   int64
	countMu sync.Mutex
}

// BuildFilter constructs the BPF filter for one connection, matching
// build_capture_filter: "host <peer> and port <peerPort>", with an
// additional "and port <localPort>" clause when localPort is known (the
// bound local address disambiguates when the same peer:port pair recurs).
func BuildFilter(peerIP string, peerPort int, localPort int) string {
	filter := fmt.Sprintf("host %s and port %d", peerIP, peerPort)
	if localPort != 0 {
		filter += fmt.Sprintf(" and port %d", localPort)
	}
	return filter
}

// Start opens a live capture on device (falling back to the first available
// device if device is empty, as get_capture_handle does when NETSPY_DEV is
// unset), applies filter, and begins dumping matching packets to pcapPath.
// The capture loop runs in a goroutine until Stop is called.
func Start(device, filter, pcapPath string, logger *logrus.Entry) (Session, error) {
	if device == "" {
		devs, err := pcap.FindAllDevs()
		if err != nil || len(devs) == 0 {
			return nil, fmt.Errorf("capture: no capture device available: %w", err)
		}
		device = devs[0].Name
	}

	handle, err := pcap.OpenLive(device, snapLen, false, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("capture: open live on %s: %w", device, err)
	}

	if err := handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("capture: set filter %q: %w", filter, err)
	}

	f, err := os.Create(pcapPath)
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("capture: create %s: %w", pcapPath, err)
	}

	dumper := pcapgo.NewWriter(f)
	if err := dumper.WriteFileHeader(snapLen, handle.LinkType()); err != nil {
		handle.Close()
		f.Close()
		return nil, fmt.Errorf("capture: write pcap header: %w", err)
	}

	s := &session{handle: handle, dumper: dumper, file: f}
	s.wg.Add(1)
	go s.loop(logger)
	return s, nil
}

func (s *session) loop(logger *logrus.Entry) {
	defer s.wg.Done()
	defer s.file.Close()

	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	for packet := range source.Packets() {
		if err := s.dumper.WritePacket(packet.Metadata().CaptureInfo, packet.Data()); err != nil {
			logger.WithError(err).Error("capture: write packet failed")
			continue
		}
		s.countMu.Lock()
		s.count++
		s.countMu.Unlock()
	}
}

// Stop closes the pcap handle -- which unblocks the goroutine's range over
// source.Packets(), the Go equivalent of pcap_breakloop -- and waits for the
// loop to exit, equivalent to pthread_join.
func (s *session) Stop() (int64, error) {
	s.handle.Close()
	s.wg.Wait()

	s.countMu.Lock()
	defer s.countMu.Unlock()
	return s.count, nil
}

// ResolveLocalPort extracts the local port net.Conn is bound to, used to
// build the bound-address clause of the capture filter.
func ResolveLocalPort(conn net.Conn) int {
	addr, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	return addr.Port
}
