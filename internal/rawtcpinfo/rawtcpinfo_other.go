//go:build !linux

package rawtcpinfo

import (
	"fmt"
	"runtime"
)

// Info is a stub on non-Linux platforms; this engine's syscall interposition
// targets Linux, matching the original tool's scope.
type Info struct{}

// Get always fails on non-Linux platforms.
func Get(fd int) (*Info, error) {
	return nil, fmt.Errorf("rawtcpinfo: unsupported on %s", runtime.GOOS)
}
