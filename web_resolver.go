package cfddns

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/miekg/dns"
)

// probeTimeout bounds a single attempt against one IP service.
const probeTimeout = 5 * time.Second

// Default public IP services, tried in order.
var (
	DefaultIPv4Services = []string{
		"https://api.ipify.org",
		"https://ident.me",
		"https://ifconfig.me/ip",
	}
	DefaultIPv6Services = []string{
		"https://api6.ipify.org",
		"https://ident.me",
		"https://ifconfig.me/ip",
	}
)

// Service is a single public IP lookup endpoint.
type Service interface {
	Lookup(ctx context.Context, t RecordType) (string, error)
	String() string
}

// DefaultWebResolver returns a WebResolver using DefaultIPv4Services and DefaultIPv6Services.
func DefaultWebResolver() *WebResolver {
	wr, err := NewWebResolver(DefaultIPv4Services, DefaultIPv6Services)
	if err != nil {
		panic(err)
	}
	return wr
}

// NewWebResolver constructs a resolver which asks external services for our "public" IP address.
//
// ipv4 is used when resolving A records and ipv6 when resolving AAAA records.
// Each entry is parsed with ParseService.
//
// Services are tried one at a time in the given order.
// The first one to answer wins;
// a service that fails or times out is skipped without retrying it.
// The answer is not validated as an IP address.
func NewWebResolver(ipv4, ipv6 []string) (*WebResolver, error) {
	wr := &WebResolver{
		http:   resty.New().SetTimeout(probeTimeout),
		logger: discard,
	}
	var err error
	if wr.ipv4, err = wr.parse(ipv4); err != nil {
		return nil, err
	}
	if wr.ipv6, err = wr.parse(ipv6); err != nil {
		return nil, err
	}
	return wr, nil
}

type WebResolver struct {
	http   *resty.Client
	ipv4   []Service
	ipv6   []Service
	logger *log.Logger
}

func (wr *WebResolver) parse(services []string) ([]Service, error) {
	var parsed []Service
	for _, s := range services {
		svc, err := parseService(s, wr.http)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, svc)
	}
	return parsed, nil
}

// SetHTTPClient uses the transport of hc for HTTP services.
// The per-attempt timeout is kept.
func (wr *WebResolver) SetHTTPClient(hc *http.Client) {
	transport := hc.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	wr.http.SetTransport(transport)
}

// Services lists the services used for t, in the order they are tried.
func (wr *WebResolver) Services(t RecordType) []Service {
	if t == TypeAAAA {
		return wr.ipv6
	}
	return wr.ipv4
}

// Resolve implements cfddns.Resolver.
func (wr *WebResolver) Resolve(ctx context.Context, t RecordType) (string, error) {
	services := wr.Services(t)
	if len(services) == 0 {
		return "", fmt.Errorf("%w: no %s lookup services were provided", ErrNoServiceAvailable, t)
	}

	var errs []error
	for _, svc := range services {
		ip, err := wr.lookup(ctx, svc, t)
		if err == nil {
			wr.logger.Printf("%s answered %s\n", svc, ip)
			return ip, nil
		}
		wr.logger.Printf("%s failed: %s\n", svc, err)
		errs = append(errs, fmt.Errorf("%s: %w", svc, err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", ErrNoServiceAvailable, errors.Join(errs...))
}

func (wr *WebResolver) lookup(ctx context.Context, svc Service, t RecordType) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return svc.Lookup(ctx, t)
}

// ParseService parses a service description.
//
// "http://" and "https://" URLs must answer a GET with a success status
// and the address as the response body.
// "dns://server[:port]/name" queries name for an A or AAAA record at server,
// e.g. "dns://resolver1.opendns.com/myip.opendns.com".
func ParseService(s string) (Service, error) {
	return parseService(s, resty.New().SetTimeout(probeTimeout))
}

func parseService(s string, client *resty.Client) (Service, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("error parsing URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		return httpService{url: u.String(), client: client}, nil
	case "dns":
		if u.Hostname() == "" {
			return nil, fmt.Errorf("dns service %q: missing server", s)
		}
		name := strings.Trim(u.Path, "/")
		if name == "" {
			return nil, fmt.Errorf("dns service %q: missing query name", s)
		}
		port := u.Port()
		if port == "" {
			port = "53"
		}
		return dnsService{
			server: net.JoinHostPort(u.Hostname(), port),
			name:   dns.Fqdn(name),
			client: &dns.Client{Timeout: probeTimeout},
		}, nil
	}
	return nil, fmt.Errorf("unsupported IP service %q: expected an http, https or dns URL", s)
}

type httpService struct {
	url    string
	client *resty.Client
}

func (s httpService) String() string { return s.url }

func (s httpService) Lookup(ctx context.Context, _ RecordType) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Cache-Control", "no-cache").
		Get(s.url)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("http request returned %s", resp.Status())
	}
	ip := strings.TrimSpace(string(resp.Body()))
	if ip == "" {
		return "", errors.New("empty response body")
	}
	return ip, nil
}
