// Package kernelver resolves the running kernel's release version so callers
// can gate optional tcp_info fields on the kernel that introduced them.
package kernelver

import (
	"fmt"

	dockerkernel "github.com/docker/docker/pkg/parsers/kernel"
)

// Version is a parsed kernel release, reusing docker's comparison semantics.
type Version = dockerkernel.VersionInfo

// AtLeast reports whether the running kernel's version is >= want.
func AtLeast(running *Version, want *Version) bool {
	return dockerkernel.CompareKernelVersion(*running, *want) >= 0
}

// Parse turns a release string ("6.7.0-generic") into a Version.
func Parse(release string) (*Version, error) {
	v, err := dockerkernel.ParseRelease(release)
	if err != nil {
		return nil, fmt.Errorf("kernelver: parse release %q: %w", release, err)
	}
	return v, nil
}

// Must parses release and panics on failure. Intended for package-level
// gating tables with constant version strings that are known good.
func Must(release string) *Version {
	v, err := Parse(release)
	if err != nil {
		panic(err)
	}
	return v
}
