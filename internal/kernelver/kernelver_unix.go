//go:build linux

package kernelver

import (
	"fmt"

	dockerkernel "github.com/docker/docker/pkg/parsers/kernel"
)

// Detect reads the running kernel's release, grounded on the teacher's
// pkg/kernel/kernel_unix.go (which itself wraps this same docker helper).
func Detect() (*Version, error) {
	v, err := dockerkernel.GetKernelVersion()
	if err != nil {
		return nil, fmt.Errorf("kernelver: get kernel version: %w", err)
	}
	return v, nil
}
