package cfddns

import (
	"context"
)

// Resolver looks up the address that DNS records should point to.
type Resolver interface {
	Resolve(ctx context.Context, t RecordType) (string, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(ctx context.Context, t RecordType) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, t RecordType) (string, error) {
	return f(ctx, t)
}

// Provider manages records within a DNS zone.
//
// Lookup reports found == false with a nil error when no record matches.
// Update addresses the record by r.ID.
type Provider interface {
	Lookup(ctx context.Context, zoneID, name string, t RecordType) (r Record, found bool, err error)
	Create(ctx context.Context, zoneID string, r Record) error
	Update(ctx context.Context, zoneID string, r Record) error
}
