//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	family   = "unix"
	Fallback = "unknown-unix-host"
)

type host struct{}

// HostIdentifier returns the node name reported by uname(2).
func (host) HostIdentifier() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	name := unix.ByteSliceToString(u.Nodename[:])
	if name == "" {
		return "", errors.New("uname: empty node name")
	}
	return name, nil
}
