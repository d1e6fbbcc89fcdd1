//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package platform

import "os"

const (
	family   = "other"
	Fallback = "unknown-platform"
)

type host struct{}

func (host) HostIdentifier() (string, error) {
	return os.Hostname()
}
