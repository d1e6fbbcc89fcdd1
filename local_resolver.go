package cfddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns an address assigned to the named interface.
// Loopback and link-local addresses are skipped.
// The first remaining address of the requested family is returned.
func InterfaceResolver(iface string) Resolver {
	return interfaceResolver{name: iface}
}

type interfaceResolver struct {
	name string
}

func (r interfaceResolver) Resolve(ctx context.Context, t RecordType) (string, error) {
	iface, err := net.InterfaceByName(r.name)
	if err != nil {
		return "", fmt.Errorf("error getting interface %s by name: %w", r.name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", fmt.Errorf("error looking up addresses for interface %s: %w", r.name, err)
	}
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
	// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
	var parseErrors []error
	for _, addr := range addrs {
		p, err := netip.ParsePrefix(addr.String())
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("error parsing local ip %s for interface %s: %w", addr.String(), r.name, err))
			continue
		}
		ip := p.Addr()
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		if matchesType(ip, t) {
			return ip.String(), nil
		}
	}
	err = fmt.Errorf("%w: interface %s has no usable %s address", ErrNoServiceAvailable, r.name, t)
	return "", errors.Join(append([]error{err}, parseErrors...)...)
}

func matchesType(a netip.Addr, t RecordType) bool {
	if t == TypeAAAA {
		return a.Is6() && !a.Is4In6()
	}
	return a.Is4()
}
