package capture

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestBuildFilterWithoutLocalPort(t *testing.T) {
	f := BuildFilter("10.0.0.5", 443, 0)
	assert.Equal(t, f, "host 10.0.0.5 and port 443")
}

func TestBuildFilterWithLocalPort(t *testing.T) {
	f := BuildFilter("10.0.0.5", 443, 51234)
	assert.Equal(t, f, "host 10.0.0.5 and port 443 and port 51234")
}

func TestForceBindFindsFirstFreePort(t *testing.T) {
	calls := 0
	port, err := ForceBind(func(p int) error {
		calls++
		if p == ephemeralPortLow+2 {
			return nil
		}
		return assertErr
	})
	assert.NilError(t, err)
	assert.Equal(t, port, ephemeralPortLow+2)
	assert.Equal(t, calls, 3)
}

var assertErr = errSentinel("port in use")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
