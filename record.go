package cfddns

import (
	"errors"
	"fmt"
	"strings"
)

// RecordType is the DNS record type being managed.
type RecordType string

const (
	TypeA    RecordType = "A"
	TypeAAAA RecordType = "AAAA"
)

// ParseRecordType accepts "A" or "AAAA" in any case.
// The empty string parses as TypeA.
func ParseRecordType(s string) (RecordType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "A":
		return TypeA, nil
	case "AAAA":
		return TypeAAAA, nil
	}
	return "", fmt.Errorf("unsupported record type %q (expected A or AAAA)", s)
}

func (t RecordType) String() string { return string(t) }

// Record is a single DNS entry as known to the provider.
type Record struct {
	ID      string
	Name    string
	Type    RecordType
	Content string
	TTL     int
	Proxied bool
}

var (
	// ErrNoServiceAvailable is returned by resolvers when every configured service failed.
	ErrNoServiceAvailable = errors.New("unable to obtain public IP from any service")

	// ErrMissingField is wrapped by a ProviderError when a successful response lacks a field the client depends on.
	ErrMissingField = errors.New("response is missing an expected field")
)

// ProviderError describes a failed call to the DNS provider.
type ProviderError struct {
	Op   string // lookup, create or update
	Name string // record name
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Name, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
