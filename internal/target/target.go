// Package target holds the value objects a scan operates on: a Host
// (one endpoint, with IPs and optionally a domain) and a Network (one
// or more CIDR ranges), plus a deduplicating Set of them.
package target

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

// Kind discriminates the Target variants.
type Kind int

const (
	KindHost Kind = iota
	KindNetwork
)

// Target is a classified unit of reconnaissance, either *Host or *Network.
type Target interface {
	Kind() Kind
	// Key is the canonical identity used for deduplication and for the
	// deterministic iteration order of a Set.
	Key() string
	String() string
}

// Service is one open-port entry returned by the host-intelligence API.
type Service struct {
	Port      int
	Transport string
	Product   string
	Banner    string
}

// IP is a single address belonging to a Host, together with everything
// the scan learned about it.
type IP struct {
	Addr     netip.Addr
	Name     string // reverse DNS, empty when no PTR exists
	Whois    string // summarized IP whois text
	CIDRs    []netip.Prefix
	Services []Service
}

// Record is an NS or MX record resolved to its own address.
type Record struct {
	Name string
	Addr netip.Addr // zero value when the record name did not resolve
}

// Host is one logical endpoint. After classification it always has at
// least one IP or a domain, never neither. All other fields are filled
// in by the scanner, one phase at a time.
type Host struct {
	Domain      string
	IPs         []*IP
	NS          []Record
	MX          []Record
	WhoisDomain string
	CIDRs       []netip.Prefix // union of per-IP discovered ranges
	Subdomains  []string
	LinkedIn    string
}

// NewHostFromAddr builds a Host for a bare IP input.
func NewHostFromAddr(addr netip.Addr) *Host {
	return &Host{IPs: []*IP{{Addr: addr}}}
}

// NewHostFromDomain builds a Host for a resolved domain name.
func NewHostFromDomain(domain string, addrs []netip.Addr) *Host {
	h := &Host{Domain: domain}
	h.SetAddrs(addrs)
	return h
}

func (h *Host) Kind() Kind { return KindHost }

func (h *Host) String() string {
	if h.Domain != "" {
		return h.Domain
	}
	if len(h.IPs) > 0 {
		return h.IPs[0].Addr.String()
	}
	return "<empty host>"
}

func (h *Host) Key() string {
	ips := make([]string, 0, len(h.IPs))
	for _, ip := range h.IPs {
		ips = append(ips, ip.Addr.String())
	}
	sort.Strings(ips)
	return "host|" + h.Domain + "|" + strings.Join(ips, ",")
}

// SetAddrs replaces the Host's address list, keeping the current one
// when the new set is empty.
func (h *Host) SetAddrs(addrs []netip.Addr) {
	if len(addrs) == 0 {
		return
	}
	ips := make([]*IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, &IP{Addr: a})
	}
	h.IPs = ips
}

// AddCIDRs merges discovered ranges into the Host-level union,
// skipping duplicates.
func (h *Host) AddCIDRs(cidrs []netip.Prefix) {
	for _, c := range cidrs {
		c = c.Masked()
		dup := false
		for _, have := range h.CIDRs {
			if have == c {
				dup = true
				break
			}
		}
		if !dup {
			h.CIDRs = append(h.CIDRs, c)
		}
	}
}

// SweepEntry is one resolved address from a reverse-DNS sweep.
type SweepEntry struct {
	Addr netip.Addr
	Name string
}

// Network is a target representing one or more CIDR ranges. Ranges are
// stored masked (host bits cleared), matching non-strict construction.
type Network struct {
	CIDRs []netip.Prefix
	Sweep []SweepEntry // reverse-sweep hits, filled by the scanner
}

// NewNetwork masks and stores the given ranges.
func NewNetwork(cidrs ...netip.Prefix) *Network {
	n := &Network{CIDRs: make([]netip.Prefix, 0, len(cidrs))}
	for _, c := range cidrs {
		n.CIDRs = append(n.CIDRs, c.Masked())
	}
	return n
}

func (n *Network) Kind() Kind { return KindNetwork }

func (n *Network) String() string {
	parts := make([]string, 0, len(n.CIDRs))
	for _, c := range n.CIDRs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ", ")
}

func (n *Network) Key() string {
	parts := make([]string, 0, len(n.CIDRs))
	for _, c := range n.CIDRs {
		parts = append(parts, c.String())
	}
	sort.Strings(parts)
	return "net|" + strings.Join(parts, ",")
}

// Set deduplicates targets by Key. Iteration via Targets is in sorted
// key order so repeated runs scan and export in the same order.
type Set struct {
	m map[string]Target
}

func NewSet() *Set {
	return &Set{m: make(map[string]Target)}
}

// Add inserts t and reports whether it was not already present.
func (s *Set) Add(t Target) bool {
	k := t.Key()
	if _, ok := s.m[k]; ok {
		return false
	}
	s.m[k] = t
	return true
}

func (s *Set) Len() int { return len(s.m) }

// Targets returns the members sorted by canonical key.
func (s *Set) Targets() []Target {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Target, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.m[k])
	}
	return out
}

func (s *Service) String() string {
	out := fmt.Sprintf("%d/%s", s.Port, s.Transport)
	if s.Product != "" {
		out += " " + s.Product
	}
	return out
}
