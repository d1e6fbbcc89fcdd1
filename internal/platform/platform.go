// Package platform describes the machine ddnscf runs on.
package platform

import (
	"fmt"
	"runtime"
)

// HostIdentifier names the host for diagnostics.
type HostIdentifier interface {
	HostIdentifier() (string, error)
}

// Host is the HostIdentifier for the platform this binary was built for.
var Host HostIdentifier = host{}

// Info describes the operating system and architecture.
type Info struct {
	OS     string
	Arch   string
	Family string
}

func Current() Info {
	return Info{OS: runtime.GOOS, Arch: runtime.GOARCH, Family: family}
}

func (i Info) String() string {
	return fmt.Sprintf("%s-%s", i.OS, i.Arch)
}

// Identifier returns the host identifier of id, or fallback if it cannot be determined.
func Identifier(id HostIdentifier, fallback string) string {
	name, err := id.HostIdentifier()
	if err != nil || name == "" {
		return fallback
	}
	return name
}
