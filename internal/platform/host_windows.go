//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const (
	family   = "windows"
	Fallback = "unknown-windows-host"
)

type host struct{}

// HostIdentifier returns the NetBIOS computer name.
func (host) HostIdentifier() (string, error) {
	name, err := windows.ComputerName()
	if err != nil {
		return "", fmt.Errorf("GetComputerName: %w", err)
	}
	return name, nil
}
