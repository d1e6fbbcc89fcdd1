package cfddns

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTTL      = 120
	DefaultInterval = 300 * time.Second
	DefaultComment  = "managed by ddnscf"

	MinTTL = 1
	MaxTTL = 86400
)

// Config is the runtime configuration of a ddnscf process.
// It is built once at startup and must not be modified afterwards.
type Config struct {
	APIToken   string
	ZoneID     string
	Domains    []string
	RecordType RecordType
	Proxied    bool
	TTL        int
	Interval   time.Duration

	// Diagnostics only.
	PlatformIdentifier string
	Network            string

	// Comment is attached to records created by this client.
	Comment string
}

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ParseDomains splits a comma separated list of domain names,
// trimming whitespace and dropping empty entries.
func ParseDomains(s string) []string {
	var domains []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

// Validate checks the invariants every Config must satisfy before any network activity.
func (c Config) Validate() error {
	if c.APIToken == "" {
		return &ConfigError{Field: "CF_API_TOKEN", Reason: "must be set"}
	}
	if c.ZoneID == "" {
		return &ConfigError{Field: "CF_ZONE_ID", Reason: "must be set"}
	}
	if len(c.Domains) == 0 {
		return &ConfigError{Field: "DNS_RECORD_NAME", Reason: "must contain at least one domain name"}
	}
	for _, d := range c.Domains {
		if d == "" {
			return &ConfigError{Field: "DNS_RECORD_NAME", Reason: "must not contain empty domain names"}
		}
	}
	if c.TTL < MinTTL || c.TTL > MaxTTL {
		return &ConfigError{Field: "TTL", Reason: fmt.Sprintf("must be between %d and %d seconds", MinTTL, MaxTTL)}
	}
	return nil
}
