// Package exporter adapts the engine's live Connections into a Prometheus
// collector, generalized from the teacher's pkg/exporter.TCPInfoCollector:
// instead of calling getsockopt(TCP_INFO) directly per scrape, it reads each
// Connection's last sampled event.TCPInfoPayload, so scraping never performs
// a syscall on the caller's behalf.
package exporter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netsnitch/netsnitch/event"
)

// Source is anything that can report its most recent TCP_INFO snapshot and
// an XID label. *internal/conn.Connection has both methods and satisfies it
// directly, while this package stays free of a dependency on internal/conn
// (and thus importable from outside this module's internal tree boundary,
// matching the teacher's public pkg/exporter).
type Source interface {
	XIDLabel() string
	LastTCPInfo() (event.TCPInfoPayload, bool)
}

type entry struct {
	source Source
	labels []string
}

// Collector implements prometheus.Collector over a dynamic set of
// Connections, added and removed as they open and close.
type Collector struct {
	mu      sync.Mutex
	entries map[string]entry // keyed by XIDLabel

	rtt         *prometheus.Desc
	rttVar      *prometheus.Desc
	sndCwnd     *prometheus.Desc
	retransmits *prometheus.Desc
	totalRetrans *prometheus.Desc
}

// NewCollector builds a Collector. connectionLabelNames names the extra
// label dimensions every metric carries beyond the connection's XID
// (typically none; present for parity with the teacher's constructor, which
// let callers attach arbitrary per-connection labels).
func NewCollector(namespace string, connectionLabelNames []string, constLabels prometheus.Labels) *Collector {
	labelNames := append([]string{"connection"}, connectionLabelNames...)
	return &Collector{
		entries: make(map[string]entry),
		rtt: prometheus.NewDesc(namespace+"_tcp_rtt_micros", "Smoothed round trip time.", labelNames, constLabels),
		rttVar: prometheus.NewDesc(namespace+"_tcp_rtt_var_micros", "RTT variance.", labelNames, constLabels),
		sndCwnd: prometheus.NewDesc(namespace+"_tcp_snd_cwnd", "Congestion window.", labelNames, constLabels),
		retransmits: prometheus.NewDesc(namespace+"_tcp_retransmits", "Timeouts at the current sequence.", labelNames, constLabels),
		totalRetrans: prometheus.NewDesc(namespace+"_tcp_total_retrans", "Total retransmitted segments.", labelNames, constLabels),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.rtt
	descs <- c.rttVar
	descs <- c.sndCwnd
	descs <- c.retransmits
	descs <- c.totalRetrans
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for xid, e := range c.entries {
		info, ok := e.source.LastTCPInfo()
		if !ok {
			continue
		}
		labels := append([]string{xid}, e.labels...)
		metrics <- prometheus.MustNewConstMetric(c.rtt, prometheus.GaugeValue, float64(info.RTT), labels...)
		metrics <- prometheus.MustNewConstMetric(c.rttVar, prometheus.GaugeValue, float64(info.RTTVar), labels...)
		metrics <- prometheus.MustNewConstMetric(c.sndCwnd, prometheus.GaugeValue, float64(info.SndCwnd), labels...)
		metrics <- prometheus.MustNewConstMetric(c.retransmits, prometheus.GaugeValue, float64(info.Retransmits), labels...)
		metrics <- prometheus.MustNewConstMetric(c.totalRetrans, prometheus.CounterValue, float64(info.TotalRetrans), labels...)
	}
}

// Add registers source for scraping under its XID label.
func (c *Collector) Add(source Source, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[source.XIDLabel()] = entry{source: source, labels: labels}
}

// Remove stops scraping the Connection identified by xidLabel (called on
// close).
func (c *Collector) Remove(xidLabel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, xidLabel)
}
