package cfddns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"
)

// providerTimeout bounds every call to the Cloudflare API.
const providerTimeout = 30 * time.Second

// lookupPageSize is the number of matches requested per lookup.
// Setting a page disables cloudflare-go's auto pagination,
// which does not terminate on responses without result_info.
const lookupPageSize = 5

// APIError is a well formed Cloudflare response whose "success" flag is not true.
type APIError struct {
	StatusCode int
	Errors     []cloudflare.ResponseInfo
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("cloudflare api reported failure (HTTP %d)", e.StatusCode)
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, info := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%d: %s", info.Code, info.Message))
	}
	return fmt.Sprintf("cloudflare api reported failure (HTTP %d): %s", e.StatusCode, strings.Join(msgs, "; "))
}

// envelopeTransport fails 2xx responses whose JSON envelope is not successful.
// cloudflare-go itself only looks at the status code.
type envelopeTransport struct {
	base http.RoundTripper
}

func (t envelopeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	var envelope struct {
		Success *bool                     `json:"success"`
		Errors  []cloudflare.ResponseInfo `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		// not an envelope; cloudflare-go reports decoding errors itself
		return resp, nil
	}
	if envelope.Success == nil || !*envelope.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Errors: envelope.Errors}
	}
	return resp, nil
}

// cloudflareHTTPClient returns a copy of hc which checks the response envelope.
func cloudflareHTTPClient(hc *http.Client) *http.Client {
	c := *hc
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if _, ok := base.(envelopeTransport); !ok {
		c.Transport = envelopeTransport{base: base}
	}
	return &c
}

// NewCloudflareProvider constructs a Provider for the Cloudflare v4 API using a bearer token.
//
// opts are applied after the defaults,
// so tests can point the client at a local server with cloudflare.BaseURL.
func NewCloudflareProvider(token string, opts ...cloudflare.Option) (*CloudflareProvider, error) {
	defaults := []cloudflare.Option{
		cloudflare.HTTPClient(cloudflareHTTPClient(&http.Client{Timeout: providerTimeout})),
		// failures are retried on the next scheduled pass instead
		cloudflare.UsingRetryPolicy(0, 0, 0),
	}
	api, err := cloudflare.NewWithAPIToken(token, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	return &CloudflareProvider{
		api:     api,
		logger:  discard,
		comment: DefaultComment,
	}, nil
}

// CloudflareProvider implements cfddns.Provider.
//
// It should be constructed using NewCloudflareProvider.
type CloudflareProvider struct {
	api     *cloudflare.API
	logger  *log.Logger
	comment string // attached to each new DNS entry
}

func (cf *CloudflareProvider) Lookup(ctx context.Context, zoneID, name string, t RecordType) (Record, bool, error) {
	if cf.api == nil {
		return Record{}, false, errors.New("cfddns.CloudflareProvider should be constructed with cfddns.NewCloudflareProvider")
	}
	cf.logger.Printf("looking up %s records for %s in zone %s...\n", t, name, zoneID)
	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.ListDNSRecordsParams{
		Type:       string(t),
		Name:       name,
		ResultInfo: cloudflare.ResultInfo{Page: 1, PerPage: lookupPageSize},
	})
	if err != nil {
		return Record{}, false, &ProviderError{Op: "lookup", Name: name, Err: err}
	}
	cf.logger.Printf("found %d existing records: %+v\n", len(records), records)
	if len(records) == 0 {
		return Record{}, false, nil
	}

	// only the first match is managed
	r := records[0]
	if r.ID == "" {
		return Record{}, false, &ProviderError{Op: "lookup", Name: name, Err: fmt.Errorf("record id: %w", ErrMissingField)}
	}
	return Record{
		ID:      r.ID,
		Name:    r.Name,
		Type:    RecordType(r.Type),
		Content: r.Content,
		TTL:     r.TTL,
		Proxied: r.Proxied != nil && *r.Proxied,
	}, true, nil
}

func (cf *CloudflareProvider) Create(ctx context.Context, zoneID string, r Record) error {
	if cf.api == nil {
		return errors.New("cfddns.CloudflareProvider should be constructed with cfddns.NewCloudflareProvider")
	}
	cf.logger.Printf("creating %s record %s -> %s...\n", r.Type, r.Name, r.Content)
	proxied := r.Proxied
	record, err := cf.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.CreateDNSRecordParams{
		Type:    string(r.Type),
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
		Proxied: &proxied,
		Comment: cf.comment,
	})
	if err != nil {
		return &ProviderError{Op: "create", Name: r.Name, Err: err}
	}
	if record.ID == "" {
		return &ProviderError{Op: "create", Name: r.Name, Err: fmt.Errorf("record id: %w", ErrMissingField)}
	}
	cf.logger.Printf("successfully added record: %+v\n", record)
	return nil
}

func (cf *CloudflareProvider) Update(ctx context.Context, zoneID string, r Record) error {
	if cf.api == nil {
		return errors.New("cfddns.CloudflareProvider should be constructed with cfddns.NewCloudflareProvider")
	}
	if r.ID == "" {
		return &ProviderError{Op: "update", Name: r.Name, Err: fmt.Errorf("record id: %w", ErrMissingField)}
	}
	cf.logger.Printf("updating record %s (%s) -> %s...\n", r.ID, r.Name, r.Content)
	proxied := r.Proxied
	record, err := cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.UpdateDNSRecordParams{
		ID:      r.ID,
		Type:    string(r.Type),
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
		Proxied: &proxied,
	})
	if err != nil {
		return &ProviderError{Op: "update", Name: r.Name, Err: err}
	}
	if record.ID == "" {
		return &ProviderError{Op: "update", Name: r.Name, Err: fmt.Errorf("record id: %w", ErrMissingField)}
	}
	cf.logger.Printf("successfully updated record %s\n", record.ID)
	return nil
}

// VerifyToken checks that token is an active Cloudflare API token.
func VerifyToken(ctx context.Context, token string, opts ...cloudflare.Option) error {
	p, err := NewCloudflareProvider(token, opts...)
	if err != nil {
		return err
	}
	result, err := p.api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("unable to verify api token: %w", err)
	}
	if result.Status != "active" {
		return fmt.Errorf("expected api token status to be \"active\"; got \"%s\"", result.Status)
	}
	return nil
}
