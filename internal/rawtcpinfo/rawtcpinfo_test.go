package rawtcpinfo

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestAdaptToKernelVersionGatesMonotonically(t *testing.T) {
	atLeast := func(want string) bool {
		// Pretend the running kernel is exactly 4.9.
		switch want {
		case "2.6.2", "3.15", "4.1", "4.2", "4.6", "4.9":
			return true
		default:
			return false
		}
	}

	adaptToKernelVersion(atLeast)

	assert.Assert(t, atLeast2_6_2)
	assert.Assert(t, atLeast4_9)
	assert.Assert(t, !atLeast4_10)
	assert.Assert(t, !atLeast6_7)
	assert.Equal(t, sizeOfRawTCPInfo, 168)
}

func TestAdaptToKernelVersionTooOld(t *testing.T) {
	adaptToKernelVersion(func(want string) bool { return false })
	assert.Assert(t, !atLeast2_6_2)
}
