// Package policy implements the sampling decisions that gate expensive
// per-event work: when to snapshot tcp_info, and when to flush the JSON
// sink to disk.
package policy

import "time"

// ShouldSampleTCPInfo reports whether a tcp_info snapshot should be taken
// now, given the time and bytes elapsed since the last sample. Both
// thresholds must be satisfied when set; a zero threshold disables that
// axis entirely (it never blocks a sample on its own).
func ShouldSampleTCPInfo(sinceLastSample time.Duration, bytesSinceLastSample uint64, minInterval time.Duration, minBytes uint64) bool {
	timeOK := minInterval <= 0 || sinceLastSample >= minInterval
	bytesOK := minBytes == 0 || bytesSinceLastSample >= minBytes
	return timeOK && bytesOK
}

// ShouldFlushJSON reports whether the incremental JSON sink should flush,
// based on how many events have accumulated since the last flush.
func ShouldFlushJSON(eventsCount, lastFlushEvCount, flushEveryEvents uint64) bool {
	if flushEveryEvents == 0 {
		return false
	}
	return eventsCount-lastFlushEvCount >= flushEveryEvents
}
