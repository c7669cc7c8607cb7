package policy

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestShouldSampleTCPInfoBothThresholds(t *testing.T) {
	assert.Assert(t, !ShouldSampleTCPInfo(500*time.Millisecond, 100, time.Second, 1000))
	assert.Assert(t, !ShouldSampleTCPInfo(2*time.Second, 100, time.Second, 1000))
	assert.Assert(t, ShouldSampleTCPInfo(2*time.Second, 2000, time.Second, 1000))
}

func TestShouldSampleTCPInfoZeroThresholdIgnoresAxis(t *testing.T) {
	assert.Assert(t, ShouldSampleTCPInfo(0, 5000, 0, 1000))
	assert.Assert(t, ShouldSampleTCPInfo(5*time.Second, 0, time.Second, 0))
	assert.Assert(t, ShouldSampleTCPInfo(0, 0, 0, 0))
}

func TestShouldFlushJSON(t *testing.T) {
	assert.Assert(t, !ShouldFlushJSON(5, 0, 10))
	assert.Assert(t, ShouldFlushJSON(10, 0, 10))
	assert.Assert(t, ShouldFlushJSON(15, 5, 10))
	assert.Assert(t, !ShouldFlushJSON(15, 5, 0))
}
