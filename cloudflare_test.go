package cfddns_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Travis-Britz/cfddns"
	"github.com/cloudflare/cloudflare-go"
)

const (
	testZone  = "023e105f4ecef8ad9ca31a8372d0c353"
	testToken = "test-token"
)

// fakeCloudflare serves the subset of the v4 API used by CloudflareProvider.
type fakeCloudflare struct {
	t *testing.T

	mu       sync.Mutex
	records  []map[string]any
	status   int  // forced error status for every request when non-zero
	rejected bool // answer every request with 200 and "success": false
	requests []*http.Request
	bodies   []map[string]any
}

func (f *fakeCloudflare) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		if err := json.Unmarshal(b, &body); err != nil {
			f.t.Errorf("invalid request body: %s", err)
		}
	}
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, body)

	if got := r.Header.Get("Authorization"); got != "Bearer "+testToken {
		f.t.Errorf("Expected bearer token; got %q", got)
	}

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		io.WriteString(w, `{"success":false,"errors":[{"code":9109,"message":"Unauthorized to access requested resource"}],"messages":[],"result":null}`)
		return
	}

	if f.rejected {
		io.WriteString(w, `{"success":false,"errors":[{"code":1000,"message":"boom"}],"messages":[],"result":null}`)
		return
	}

	recordsPath := "/zones/" + testZone + "/dns_records"
	switch {
	case r.URL.Path == "/user/tokens/verify":
		f.reply(w, map[string]any{"id": "tok", "status": "active"})
	case r.URL.Path == recordsPath && r.Method == http.MethodGet:
		matched := []map[string]any{}
		for _, rec := range f.records {
			if rec["name"] == r.URL.Query().Get("name") && rec["type"] == r.URL.Query().Get("type") {
				matched = append(matched, rec)
			}
		}
		f.reply(w, matched)
	case r.URL.Path == recordsPath && r.Method == http.MethodPost:
		rec := body
		rec["id"] = "created"
		f.records = append(f.records, rec)
		f.reply(w, rec)
	case strings.HasPrefix(r.URL.Path, recordsPath+"/"):
		id := strings.TrimPrefix(r.URL.Path, recordsPath+"/")
		for _, rec := range f.records {
			if rec["id"] != id {
				continue
			}
			if r.Method == http.MethodPut || r.Method == http.MethodPatch {
				for k, v := range body {
					rec[k] = v
				}
			}
			f.reply(w, rec)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"success":false,"errors":[{"code":81044,"message":"Record does not exist."}],"messages":[],"result":null}`)
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL)
		w.WriteHeader(http.StatusNotFound)
	}
}

// reply writes the bare envelope; list responses carry no result_info.
func (f *fakeCloudflare) reply(w http.ResponseWriter, result any) {
	json.NewEncoder(w).Encode(map[string]any{
		"success":  true,
		"errors":   []any{},
		"messages": []any{},
		"result":   result,
	})
}

func (f *fakeCloudflare) calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (f *fakeCloudflare) record(i int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[i]
}

func (f *fakeCloudflare) lastBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[len(f.bodies)-1]
}

func newFakeCloudflare(t *testing.T, records ...map[string]any) (*fakeCloudflare, []cloudflare.Option) {
	t.Helper()
	f := &fakeCloudflare{t: t, records: records}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, []cloudflare.Option{cloudflare.BaseURL(srv.URL), cloudflare.UsingRateLimit(100)}
}

func newTestProvider(t *testing.T, opts []cloudflare.Option) *cfddns.CloudflareProvider {
	t.Helper()
	p, err := cfddns.NewCloudflareProvider(testToken, opts...)
	if err != nil {
		t.Fatalf("error creating provider: %s", err)
	}
	return p
}

func TestCloudflareLookup(t *testing.T) {
	_, opts := newFakeCloudflare(t, map[string]any{
		"id": "372e67954025e0ba6aaa6d586b9e0b59", "type": "A", "name": "home.example.com",
		"content": "1.2.3.4", "ttl": 120, "proxied": true,
	})
	p := newTestProvider(t, opts)

	r, found, err := p.Lookup(context.Background(), testZone, "home.example.com", cfddns.TypeA)
	if err != nil {
		t.Fatalf("Lookup failed: %s", err)
	}
	if !found {
		t.Fatalf("Expected the record to be found")
	}
	if r.ID != "372e67954025e0ba6aaa6d586b9e0b59" || r.Content != "1.2.3.4" || r.TTL != 120 || !r.Proxied {
		t.Fatalf("Unexpected record: %+v", r)
	}

	_, found, err = p.Lookup(context.Background(), testZone, "home.example.com", cfddns.TypeAAAA)
	if err != nil {
		t.Fatalf("Lookup failed: %s", err)
	}
	if found {
		t.Fatalf("Expected no AAAA record")
	}
}

func TestCloudflareLookupSinglePage(t *testing.T) {
	f, opts := newFakeCloudflare(t, map[string]any{
		"id": "r1", "type": "A", "name": "home.example.com", "content": "1.2.3.4", "ttl": 120,
	})
	p := newTestProvider(t, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, found, err := p.Lookup(ctx, testZone, "home.example.com", cfddns.TypeA)
	if err != nil {
		t.Fatalf("Lookup failed: %s", err)
	}
	if !found || r.ID != "r1" {
		t.Fatalf("Expected record r1; got %+v (found=%t)", r, found)
	}
	if expected, got := 1, f.calls(http.MethodGet); expected != got {
		t.Fatalf("Expected %d list request; got %d", expected, got)
	}
}

func TestCloudflareUnsuccessfulEnvelope(t *testing.T) {
	f, opts := newFakeCloudflare(t, map[string]any{
		"id": "r1", "type": "A", "name": "home.example.com", "content": "1.2.3.4", "ttl": 120,
	})
	f.rejected = true
	p := newTestProvider(t, opts)
	ctx := context.Background()
	rec := cfddns.Record{ID: "r1", Name: "home.example.com", Type: cfddns.TypeA, Content: "5.6.7.8", TTL: 120}

	_, found, err := p.Lookup(ctx, testZone, "home.example.com", cfddns.TypeA)
	if found {
		t.Fatalf("Expected no record from a failed lookup")
	}
	errs := map[string]error{
		"lookup": err,
		"create": p.Create(ctx, testZone, rec),
		"update": p.Update(ctx, testZone, rec),
	}
	for op, err := range errs {
		var perr *cfddns.ProviderError
		if !errors.As(err, &perr) || perr.Op != op {
			t.Fatalf("Expected a %s ProviderError; got %v", op, err)
		}
		if !strings.Contains(err.Error(), "boom") {
			t.Fatalf("Expected the provider message in %q", err)
		}
	}
}

func TestCloudflareCreateMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"errors":[],"messages":[],"result":{"type":"A","name":"new.example.com","content":"5.6.7.8"}}`)
	}))
	defer srv.Close()
	p := newTestProvider(t, []cloudflare.Option{cloudflare.BaseURL(srv.URL), cloudflare.UsingRateLimit(100)})

	err := p.Create(context.Background(), testZone, cfddns.Record{Name: "new.example.com", Type: cfddns.TypeA, Content: "5.6.7.8", TTL: 120})
	if !errors.Is(err, cfddns.ErrMissingField) {
		t.Fatalf("Expected ErrMissingField; got %v", err)
	}
}

func TestCloudflareLookupError(t *testing.T) {
	f, opts := newFakeCloudflare(t)
	f.status = http.StatusForbidden
	p := newTestProvider(t, opts)

	_, _, err := p.Lookup(context.Background(), testZone, "home.example.com", cfddns.TypeA)
	var perr *cfddns.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected a ProviderError; got %v", err)
	}
	if perr.Op != "lookup" || perr.Name != "home.example.com" {
		t.Fatalf("Unexpected ProviderError: %+v", perr)
	}
}

func TestCloudflareLookupMissingID(t *testing.T) {
	_, opts := newFakeCloudflare(t, map[string]any{
		"type": "A", "name": "home.example.com", "content": "1.2.3.4", "ttl": 120,
	})
	p := newTestProvider(t, opts)

	_, _, err := p.Lookup(context.Background(), testZone, "home.example.com", cfddns.TypeA)
	if !errors.Is(err, cfddns.ErrMissingField) {
		t.Fatalf("Expected ErrMissingField; got %v", err)
	}
}

func TestCloudflareCreate(t *testing.T) {
	f, opts := newFakeCloudflare(t)
	p := newTestProvider(t, opts)

	err := p.Create(context.Background(), testZone, cfddns.Record{
		Name: "new.example.com", Type: cfddns.TypeA, Content: "5.6.7.8", TTL: 300, Proxied: false,
	})
	if err != nil {
		t.Fatalf("Create failed: %s", err)
	}
	if expected, got := 1, f.calls(http.MethodPost); expected != got {
		t.Fatalf("Expected %d POST; got %d", expected, got)
	}
	body := f.lastBody()
	if body["name"] != "new.example.com" || body["type"] != "A" || body["content"] != "5.6.7.8" {
		t.Fatalf("Unexpected create payload: %v", body)
	}
	if body["ttl"] != float64(300) || body["proxied"] != false {
		t.Fatalf("Unexpected create payload: %v", body)
	}
	if body["comment"] != cfddns.DefaultComment {
		t.Fatalf("Expected comment %q; got %v", cfddns.DefaultComment, body["comment"])
	}
}

func TestCloudflareUpdate(t *testing.T) {
	f, opts := newFakeCloudflare(t, map[string]any{
		"id": "r1", "type": "A", "name": "home.example.com", "content": "1.2.3.4", "ttl": 120, "proxied": false,
	})
	p := newTestProvider(t, opts)

	err := p.Update(context.Background(), testZone, cfddns.Record{
		ID: "r1", Name: "home.example.com", Type: cfddns.TypeA, Content: "5.6.7.8", TTL: 120, Proxied: true,
	})
	if err != nil {
		t.Fatalf("Update failed: %s", err)
	}
	if got := f.calls(http.MethodPut) + f.calls(http.MethodPatch); got != 1 {
		t.Fatalf("Expected 1 update request; got %d", got)
	}
	if rec := f.record(0); rec["content"] != "5.6.7.8" || rec["proxied"] != true {
		t.Fatalf("Unexpected record after update: %v", rec)
	}

	err = p.Update(context.Background(), testZone, cfddns.Record{Name: "home.example.com", Type: cfddns.TypeA, Content: "5.6.7.8"})
	if !errors.Is(err, cfddns.ErrMissingField) {
		t.Fatalf("Expected ErrMissingField for an update without id; got %v", err)
	}
}

func TestCloudflareEndToEnd(t *testing.T) {
	f, opts := newFakeCloudflare(t, map[string]any{
		"id": "r1", "type": "A", "name": "a.example.com", "content": "1.2.3.4", "ttl": 120, "proxied": false,
	})
	cfg := testConfig("a.example.com", "b.example.com")
	cfg.APIToken = testToken
	cfg.ZoneID = testZone
	cfg.Comment = "office router"

	c, err := cfddns.New(cfg,
		cfddns.UsingCloudflare(opts...),
		cfddns.UsingResolver(cfddns.FromString("1.2.3.4")),
	)
	if err != nil {
		t.Fatalf("error creating client: %s", err)
	}
	if err := c.RunDDNS(context.Background()); err != nil {
		t.Fatalf("RunDDNS failed: %s", err)
	}
	if f.calls(http.MethodPut)+f.calls(http.MethodPatch) != 0 {
		t.Fatalf("Expected no update for an unchanged record")
	}
	if expected, got := 1, f.calls(http.MethodPost); expected != got {
		t.Fatalf("Expected %d create; got %d", expected, got)
	}
	if got := f.lastBody()["comment"]; got != "office router" {
		t.Fatalf("Expected comment %q; got %v", "office router", got)
	}
}

func TestVerifyToken(t *testing.T) {
	_, opts := newFakeCloudflare(t)
	if err := cfddns.VerifyToken(context.Background(), testToken, opts...); err != nil {
		t.Fatalf("VerifyToken failed: %s", err)
	}

	f, opts := newFakeCloudflare(t)
	f.status = http.StatusUnauthorized
	if err := cfddns.VerifyToken(context.Background(), testToken, opts...); err == nil {
		t.Fatalf("Expected an error; got err == nil")
	}
}
