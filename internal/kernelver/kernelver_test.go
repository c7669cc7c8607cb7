package kernelver

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestAtLeast(t *testing.T) {
	v67 := Must("6.7.0-generic")
	v62 := Must("6.2.0-generic")
	v54 := Must("5.4.0-generic")

	assert.Assert(t, AtLeast(v67, v62))
	assert.Assert(t, !AtLeast(v54, v62))
	assert.Assert(t, AtLeast(v54, v54))
}
