package cfddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudflare/cloudflare-go"
)

var discard = log.New(io.Discard, "", log.LstdFlags)

// New constructs a Client which keeps the records named in cfg pointed at the current address.
//
// The Resolver defaults to DefaultWebResolver.
// There is no default Provider; use UsingCloudflare or UsingProvider.
func New(cfg Config, options ...clientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cfddns.New: %w", err)
	}
	if cfg.RecordType == "" {
		cfg.RecordType = TypeA
	}
	c := &Client{
		config:  cfg,
		console: NewConsole(io.Discard),
		logger:  discard,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("cfddns.New: option %d returned an error: %w", i, err)
		}
	}

	if c.Resolver == nil {
		c.Resolver = DefaultWebResolver()
	}
	if c.Provider == nil {
		return nil, errors.New("cfddns.New: no DNS provider was registered - use cfddns.UsingCloudflare or cfddns.UsingProvider")
	}

	// propagate the logger to dependencies registered after WithLogger
	withLogger(c.logger)(c)
	return c, nil
}

type clientOption func(*Client) error

// UsingCloudflare manages records with the Cloudflare API, authenticating with the configured token.
func UsingCloudflare(opts ...cloudflare.Option) clientOption {
	return func(c *Client) error {
		p, err := NewCloudflareProvider(c.config.APIToken, opts...)
		if err != nil {
			return fmt.Errorf("cfddns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		if c.config.Comment != "" {
			p.comment = c.config.Comment
		}
		c.Provider = p
		return nil
	}
}

func UsingProvider(p Provider) clientOption {
	return func(c *Client) error {
		if p == nil {
			return errors.New("provider cannot be nil")
		}
		c.Provider = p
		return nil
	}
}

func UsingResolver(resolver Resolver) clientOption {
	return func(c *Client) error {
		if resolver == nil {
			resolver = DefaultWebResolver()
		}
		c.Resolver = resolver
		return nil
	}
}

// UsingWebResolver replaces the built-in public IP services with serviceURL, for both address families.
// See ParseService for the accepted formats.
func UsingWebResolver(serviceURL ...string) clientOption {
	return func(c *Client) error {
		r, err := NewWebResolver(serviceURL, serviceURL)
		if err != nil {
			return err
		}
		c.Resolver = r
		return nil
	}
}

// WithConsole sets where progress banners and status lines are written.
func WithConsole(console *Console) clientOption {
	return func(c *Client) error {
		if console == nil {
			console = NewConsole(io.Discard)
		}
		c.console = console
		return nil
	}
}

// WithLogger sets the logger used for verbose diagnostics.
func WithLogger(logger *log.Logger) clientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

func withLogger(logger *log.Logger) clientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = discard
		}
		c.logger = logger
		type setLogger interface {
			SetLogger(*log.Logger)
		}

		switch p := c.Provider.(type) {
		case *CloudflareProvider:
			p.logger = logger
		case setLogger:
			p.SetLogger(logger)
		}

		switch r := c.Resolver.(type) {
		case *WebResolver:
			r.logger = logger
		case setLogger:
			r.SetLogger(logger)
		}

		return nil
	}
}

// UsingHTTPClient sets the http.Client used for both IP lookups and provider calls.
// It must be given after the resolver and provider options it should apply to.
func UsingHTTPClient(httpclient *http.Client) clientOption {
	return func(c *Client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		type setHTTPClient interface {
			SetHTTPClient(*http.Client)
		}
		switch hc := c.Resolver.(type) {
		case setHTTPClient:
			hc.SetHTTPClient(httpclient)
		}
		switch p := c.Provider.(type) {
		case *CloudflareProvider:
			return cloudflare.HTTPClient(cloudflareHTTPClient(httpclient))(p.api)
		case setHTTPClient:
			p.SetHTTPClient(httpclient)
		}
		return nil
	}
}

// DDNSClient runs one reconciliation pass.
type DDNSClient interface {
	RunDDNS(ctx context.Context) error
}

// Client reconciles the configured DNS records with the current address.
type Client struct {
	Resolver
	Provider
	config  Config
	console *Console
	logger  *log.Logger
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.config }

// RunDDNS resolves the current address and reconciles every configured domain.
// Domains are processed even if some of them fail;
// the returned error joins every failure of the pass.
func (c *Client) RunDDNS(ctx context.Context) error {
	c.console.Step("get public IP")
	ip, err := c.Resolve(ctx, c.config.RecordType)
	if err != nil {
		c.console.Fail("Failed to get public IP address: %s", err)
		return fmt.Errorf("error getting public IP: %w", err)
	}
	c.console.OK("Public IP address %s", ip)

	return c.Reconcile(ctx, ip).Err()
}

// Outcome is what a reconciliation pass did with a single domain.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result records the outcome for one domain.
type Result struct {
	Domain  string
	Outcome Outcome
	Err     error
}

// Summary holds one Result per configured domain, in configured order.
type Summary []Result

// Err joins the errors of all failed domains.
func (s Summary) Err() error {
	var errs []error
	for _, r := range s {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Domain, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Reconcile points every configured domain at ip.
// A failure for one domain is logged and does not stop the remaining domains.
func (c *Client) Reconcile(ctx context.Context, ip string) Summary {
	summary := make(Summary, 0, len(c.config.Domains))
	for _, domain := range c.config.Domains {
		summary = append(summary, c.reconcile(ctx, domain, ip))
	}
	return summary
}

func (c *Client) reconcile(ctx context.Context, domain, ip string) Result {
	cfg := c.config
	c.console.Step("get DNS record for " + domain)

	existing, found, err := c.Lookup(ctx, cfg.ZoneID, domain, cfg.RecordType)
	if err != nil {
		c.console.Fail("Failed to get DNS record for %s: %s", domain, err)
		return Result{Domain: domain, Outcome: Failed, Err: err}
	}

	want := Record{
		Name:    domain,
		Type:    cfg.RecordType,
		Content: ip,
		TTL:     cfg.TTL,
		Proxied: cfg.Proxied,
	}

	if !found {
		c.console.Fail("DNS record %s not found, attempting to add", domain)
		if err := c.Create(ctx, cfg.ZoneID, want); err != nil {
			c.console.Fail("Failed to add domain %s: %s", domain, err)
			return Result{Domain: domain, Outcome: Failed, Err: err}
		}
		c.console.OK("DNS record %s added successfully", domain)
		return Result{Domain: domain, Outcome: Created}
	}

	c.console.OK("DNS record %s found", domain)
	// exact comparison: equivalent IPv6 spellings count as a change
	if existing.Content == ip {
		c.console.OK("IP not changed (%s) for %s", ip, domain)
		return Result{Domain: domain, Outcome: Unchanged}
	}
	c.console.OK("IP change detected: record IP %s, current IP %s for %s", existing.Content, ip, domain)

	c.console.Step("update DNS record for " + domain)
	want.ID = existing.ID
	if err := c.Update(ctx, cfg.ZoneID, want); err != nil {
		c.console.Fail("Failed to update domain %s: %s", domain, err)
		return Result{Domain: domain, Outcome: Failed, Err: err}
	}
	c.console.OK("DNS record %s updated to %s", domain, ip)
	return Result{Domain: domain, Outcome: Updated}
}
