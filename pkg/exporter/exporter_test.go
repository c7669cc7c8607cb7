package exporter

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"gotest.tools/v3/assert"

	"github.com/netsnitch/netsnitch/event"
)

type fakeSource struct {
	xid  string
	info event.TCPInfoPayload
	ok   bool
}

func (f *fakeSource) XIDLabel() string { return f.xid }
func (f *fakeSource) LastTCPInfo() (event.TCPInfoPayload, bool) { return f.info, f.ok }

func TestCollectEmitsMetricsForSampledConnections(t *testing.T) {
	c := NewCollector("netsnitch", nil, nil)
	c.Add(&fakeSource{xid: "abc", info: event.TCPInfoPayload{RTT: 1500, SndCwnd: 10}, ok: true})
	c.Add(&fakeSource{xid: "def", ok: false}) // never sampled, should be skipped

	metrics := make(chan prometheus.Metric, 32)
	c.Collect(metrics)
	close(metrics)

	var got []prometheus.Metric
	for m := range metrics {
		got = append(got, m)
	}
	assert.Equal(t, len(got), 5) // one connection reported, 5 metrics

	var pb dto.Metric
	assert.NilError(t, got[0].Write(&pb))
	assert.Equal(t, pb.Label[0].GetValue(), "abc")
}

func TestRemoveStopsScraping(t *testing.T) {
	c := NewCollector("netsnitch", nil, nil)
	c.Add(&fakeSource{xid: "abc", info: event.TCPInfoPayload{}, ok: true})
	c.Remove("abc")

	metrics := make(chan prometheus.Metric, 8)
	c.Collect(metrics)
	close(metrics)

	n := 0
	for range metrics {
		n++
	}
	assert.Equal(t, n, 0)
}
