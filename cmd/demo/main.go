// Command demo fetches a URL over an HTTP client whose dialed TCP
// connections are wrapped with netsnitch, so the resulting event logs and
// pcap captures land under the configured logs root. Adapted from the
// teacher's cmd/get demo, generalized from sockstats.WrapConn's single
// summary struct to the full record_* event stream.
package main

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netsnitch/netsnitch"
)

func main() {
	if err := netsnitch.Init(); err != nil {
		logrus.Fatalf("netsnitch init: %v", err)
	}
	defer netsnitch.CloseAllOpenConnections()

	client := newHTTPClient(15 * time.Second)

	target := "https://www.golang.org"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	resp, err := client.Get(target)
	if err != nil {
		logrus.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Fatalf("read: %v", err)
	}

	logrus.Infof("complete: %d (%s) with %d bytes", resp.StatusCode, resp.Status, len(body))
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	transport := &http.Transport{
		ResponseHeaderTimeout: timeout,
		TLSHandshakeTimeout:   timeout,
		DisableKeepAlives:     true,
		TLSClientConfig:       tlsConfig,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return netsnitch.Wrap(conn), nil
		},
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}
