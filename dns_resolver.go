package cfddns

import (
	"context"
	"errors"
	"fmt"

	"github.com/miekg/dns"
)

// dnsService asks a DNS server which answers a well-known name with the address of the client,
// such as OpenDNS's myip.opendns.com.
type dnsService struct {
	server string // host:port
	name   string // fully qualified
	client *dns.Client
}

func (s dnsService) String() string { return "dns://" + s.server + "/" + s.name }

func (s dnsService) Lookup(ctx context.Context, t RecordType) (string, error) {
	qtype := dns.TypeA
	if t == TypeAAAA {
		qtype = dns.TypeAAAA
	}
	m := new(dns.Msg)
	m.SetQuestion(s.name, qtype)

	r, _, err := s.client.ExchangeContext(ctx, m, s.server)
	if err != nil {
		return "", fmt.Errorf("dns query failed: %w", err)
	}
	if r.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("dns query returned %s", dns.RcodeToString[r.Rcode])
	}
	for _, ans := range r.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				return rr.A.String(), nil
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				return rr.AAAA.String(), nil
			}
		}
	}
	return "", errors.New("no address in dns answer")
}
