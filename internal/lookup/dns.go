package lookup

import (
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strings"

	mdns "github.com/miekg/dns"
)

const fallbackNameserver = "8.8.8.8"

// DNSClient implements Resolver on top of a single nameserver, either
// the configured override or the first entry of /etc/resolv.conf.
type DNSClient struct {
	server string // host:port
	client *mdns.Client
}

// NewDNSClient builds the resolver from cfg. An unusable nameserver
// override is an error; a missing resolv.conf silently falls back to a
// public resolver.
func NewDNSClient(cfg *Config) (*DNSClient, error) {
	server := cfg.Nameserver
	if server == "" {
		if rc, err := mdns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(rc.Servers) > 0 {
			server = rc.Servers[0]
		} else {
			server = fallbackNameserver
		}
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		if net.ParseIP(server) == nil {
			return nil, fmt.Errorf("nameserver %q is not an address", server)
		}
		server = net.JoinHostPort(server, "53")
	}
	c := new(mdns.Client)
	c.Timeout = cfg.EffectiveTimeout()
	return &DNSClient{server: server, client: c}, nil
}

// Server reports the nameserver in use, for feedback output.
func (d *DNSClient) Server() string { return d.server }

func (d *DNSClient) query(name string, qtype uint16) (*mdns.Msg, error) {
	if _, ok := mdns.IsDomainName(name); !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrMalformedName)
	}
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(name), qtype)
	m.RecursionDesired = true
	r, _, err := d.client.Exchange(m, d.server)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", d.server, err, ErrNoNameservers)
	}
	switch r.Rcode {
	case mdns.RcodeSuccess:
		return r, nil
	case mdns.RcodeNameError:
		return nil, fmt.Errorf("%s: %w", name, ErrNameNotExist)
	default:
		return nil, fmt.Errorf("%s: server returned %s", name, mdns.RcodeToString[r.Rcode])
	}
}

// Forward resolves name to its addresses, A records first and AAAA
// only when no A record exists.
func (d *DNSClient) Forward(name string) ([]netip.Addr, error) {
	r, err := d.query(name, mdns.TypeA)
	if err != nil {
		return nil, err
	}
	var addrs []netip.Addr
	for _, rr := range r.Answer {
		if a, ok := rr.(*mdns.A); ok {
			if addr, err := netip.ParseAddr(a.A.String()); err == nil {
				addrs = append(addrs, addr)
			}
		}
	}
	if len(addrs) == 0 {
		r6, err := d.query(name, mdns.TypeAAAA)
		if err != nil {
			return nil, err
		}
		for _, rr := range r6.Answer {
			if a, ok := rr.(*mdns.AAAA); ok {
				if addr, err := netip.ParseAddr(a.AAAA.String()); err == nil {
					addrs = append(addrs, addr)
				}
			}
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%s: no address records: %w", name, ErrNameNotExist)
	}
	return addrs, nil
}

// Reverse looks up the PTR name for addr. No PTR is not an error.
func (d *DNSClient) Reverse(addr netip.Addr) (string, error) {
	arpa, err := mdns.ReverseAddr(addr.String())
	if err != nil {
		return "", fmt.Errorf("%s: %w", addr, ErrMalformedName)
	}
	m := new(mdns.Msg)
	m.SetQuestion(arpa, mdns.TypePTR)
	m.RecursionDesired = true
	r, _, err := d.client.Exchange(m, d.server)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", d.server, err, ErrNoNameservers)
	}
	if r.Rcode != mdns.RcodeSuccess {
		return "", nil
	}
	for _, rr := range r.Answer {
		if ptr, ok := rr.(*mdns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", nil
}

// NS returns the domain's nameserver names.
func (d *DNSClient) NS(domain string) ([]string, error) {
	r, err := d.query(domain, mdns.TypeNS)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range r.Answer {
		if ns, ok := rr.(*mdns.NS); ok {
			out = append(out, strings.TrimSuffix(ns.Ns, "."))
		}
	}
	sort.Strings(out)
	return out, nil
}

// MX returns the domain's mail exchangers, best preference first.
func (d *DNSClient) MX(domain string) ([]string, error) {
	r, err := d.query(domain, mdns.TypeMX)
	if err != nil {
		return nil, err
	}
	type mx struct {
		host string
		pref uint16
	}
	var recs []mx
	for _, rr := range r.Answer {
		if m, ok := rr.(*mdns.MX); ok {
			recs = append(recs, mx{strings.TrimSuffix(m.Mx, "."), m.Preference})
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].pref != recs[j].pref {
			return recs[i].pref < recs[j].pref
		}
		return recs[i].host < recs[j].host
	})
	out := make([]string, 0, len(recs))
	for _, m := range recs {
		out = append(out, m.host)
	}
	return out, nil
}
