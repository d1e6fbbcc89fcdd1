package cfddns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs a resolver that always returns addr.
// Resolve fails if addr is not an address of the requested family.
func FromString(addr string) Resolver {
	return stringResolver(addr)
}

type stringResolver string

func (s stringResolver) Resolve(_ context.Context, t RecordType) (string, error) {
	addr, err := netip.ParseAddr(string(s))
	if err != nil {
		return "", fmt.Errorf("unable to parse IP: %w", err)
	}
	if !matchesType(addr, t) {
		return "", fmt.Errorf("%s is not a valid address for a %s record", addr, t)
	}
	return addr.String(), nil
}
