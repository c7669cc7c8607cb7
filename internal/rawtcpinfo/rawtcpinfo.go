// Package rawtcpinfo reads the kernel's struct tcp_info for a socket and
// unpacks it into a version-gated, Go-friendly representation.
//
// The teacher's pkg/tcpinfo package references kernel-version gating
// variables (kernelVersionIsAtLeast_*, sizeOfRawTCPInfo) that are declared in
// a sibling package (pkg/linux) and never defined in pkg/tcpinfo itself, so
// that package does not compile standalone. This package folds the gating
// logic back in locally, using internal/kernelver for version detection.
package rawtcpinfo

import "fmt"

// versionedSize pairs a kernel version with the tcp_info struct size the
// kernel reports at that version, and the feature flag it unlocks.
type versionedSize struct {
	release string
	size    int
	flag    *bool
}

var (
	atLeast2_6_2  bool
	atLeast3_15   bool
	atLeast4_1    bool
	atLeast4_2    bool
	atLeast4_6    bool
	atLeast4_9    bool
	atLeast4_10   bool
	atLeast4_18   bool
	atLeast4_19   bool
	atLeast5_4    bool
	atLeast6_2    bool
	atLeast6_7    bool

	sizeOfRawTCPInfo int
)

var tcpInfoSizes = []versionedSize{
	{"2.6.2", 104, &atLeast2_6_2},
	{"3.15", 120, &atLeast3_15},
	{"4.1", 136, &atLeast4_1},
	{"4.2", 144, &atLeast4_2},
	{"4.6", 160, &atLeast4_6},
	{"4.9", 168, &atLeast4_9},
	{"4.10", 192, &atLeast4_10},
	{"4.18", 200, &atLeast4_18},
	{"4.19", 224, &atLeast4_19},
	{"5.4", 232, &atLeast5_4},
	{"6.2", 240, &atLeast6_2},
	{"6.7", 248, &atLeast6_7},
}

// ErrKernelTooOld is returned when the running kernel predates tcp_info
// support entirely.
var ErrKernelTooOld = fmt.Errorf("tcp_info is not available on Linux prior to kernel 2.6.2")

// adaptToKernelVersion mirrors the teacher's pkg/linux adaptToKernelVersion,
// walking the size table from newest to oldest and setting every flag up to
// and including the first version the running kernel satisfies.
func adaptToKernelVersion(atLeast func(want string) bool) {
	for i := len(tcpInfoSizes) - 1; i >= 0; i-- {
		if atLeast(tcpInfoSizes[i].release) {
			sizeOfRawTCPInfo = tcpInfoSizes[i].size
			for j := i; j >= 0; j-- {
				*tcpInfoSizes[j].flag = true
			}
			return
		}
		*tcpInfoSizes[i].flag = false
	}
}
