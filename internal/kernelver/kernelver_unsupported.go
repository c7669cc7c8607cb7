//go:build !linux

package kernelver

import "fmt"

// Detect is unsupported on this platform; callers fall back to treating the
// kernel as pre-dating every gated tcp_info field.
func Detect() (*Version, error) {
	return nil, fmt.Errorf("kernelver: unsupported on this platform")
}
