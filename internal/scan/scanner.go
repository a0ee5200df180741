package scan

import (
	"context"
	"errors"
	"net/netip"
	"sort"
	"strings"

	"gorecon/internal/lookup"
	"gorecon/internal/report"
	"gorecon/internal/target"
)

// Scanner owns the target set and runs one scan sequence per target.
// Collaborator fields are exported so tests inject fakes; New wires the
// real ones from the configuration.
type Scanner struct {
	Resolver lookup.Resolver
	Whois    lookup.WhoisClient
	Intel    lookup.HostIntel // nil when no credential was configured
	Discover lookup.Discoverer
	Report   *report.Reporter
	DNSOnly  bool

	targets    *target.Set
	unresolved []string
}

// New builds a Scanner with the real collaborators. The
// host-intelligence client only exists when a credential is present.
func New(cfg *lookup.Config, rep *report.Reporter, dnsOnly bool) (*Scanner, error) {
	res, err := lookup.NewDNSClient(cfg)
	if err != nil {
		return nil, err
	}
	s := &Scanner{
		Resolver: res,
		Whois:    lookup.NewWhois(),
		Discover: lookup.NewPassive(cfg.EffectiveTimeout()),
		Report:   rep,
		DNSOnly:  dnsOnly,
		targets:  target.NewSet(),
	}
	if cfg.ShodanKey != "" {
		s.Intel = lookup.NewShodan(cfg.ShodanKey, cfg.EffectiveTimeout())
	}
	return s, nil
}

// Targets returns the classified targets in deterministic order.
func (s *Scanner) Targets() []target.Target {
	return s.targets.Targets()
}

// Unresolved returns the inputs that classification rejected, verbatim.
func (s *Scanner) Unresolved() []string {
	out := append([]string(nil), s.unresolved...)
	sort.Strings(out)
	return out
}

// Populate classifies every input. Unresolvable inputs are reported
// immediately and kept for the skip report; duplicates collapse into
// one target. Resolver infrastructure failures abort.
func (s *Scanner) Populate(inputs []string) error {
	if s.targets == nil {
		s.targets = target.NewSet()
	}
	for _, raw := range inputs {
		t, err := Classify(s.Resolver, raw)
		if err != nil {
			if errors.Is(err, ErrUnresolved) {
				s.Report.Warn("Couldn't resolve or understand - %s", raw)
				s.unresolved = append(s.unresolved, raw)
				continue
			}
			return err
		}
		s.targets.Add(t)
	}

	if s.targets.Len() == 0 {
		s.Report.Plain("# No hosts to scan")
		return nil
	}
	s.Report.Plain("# Scanning %d/%d hosts", s.targets.Len(), len(inputs))
	if !s.DNSOnly && s.Intel == nil {
		s.Report.Plain("# No Shodan key provided")
	}
	return nil
}

// Run scans every target. Lookup failures are reported per phase and
// never stop sibling phases or sibling targets; only resolver
// infrastructure failures and cancellation come back as errors.
func (s *Scanner) Run(ctx context.Context) error {
	for _, t := range s.targets.Targets() {
		var err error
		switch t := t.(type) {
		case *target.Host:
			if s.DNSOnly {
				err = s.dnsScan(ctx, t)
			} else {
				err = s.fullScan(ctx, t)
			}
		case *target.Network:
			err = s.networkSweep(ctx, t)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// phaseErr implements the per-phase failure policy: report and continue
// on lookup failures, abort on infrastructure failures.
func (s *Scanner) phaseErr(phase string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, lookup.ErrNoNameservers) || errors.Is(err, context.Canceled) {
		return err
	}
	s.Report.Fail(phase, err)
	return nil
}

func (s *Scanner) fullScan(ctx context.Context, h *target.Host) error {
	s.Report.Section("Scanning %s", h)

	s.Report.Heading("DNS lookups")
	if err := s.dnsPhase(ctx, h); err != nil {
		return err
	}
	if h.Domain != "" {
		s.Report.Info("Domain: %s", h.Domain)
	}
	s.printIPs(h)

	if err := s.recordPhase(ctx, h); err != nil {
		return err
	}

	s.Report.Heading("Whois lookups")
	if err := s.whoisDomainPhase(h); err != nil {
		return err
	}
	if err := s.whoisIPPhase(h); err != nil {
		return err
	}

	if s.Intel != nil {
		s.Report.Heading("Querying Shodan for open ports")
		if err := s.intelPhase(h); err != nil {
			return err
		}
	}

	if h.Domain != "" {
		s.Report.Heading("Querying passive sources for subdomains and LinkedIn pages, this might take a while")
		if err := s.discoveryPhase(h); err != nil {
			return err
		}
	}

	if len(h.CIDRs) > 0 {
		s.Report.Heading("Reverse DNS lookup on range %s", prefixList(h.CIDRs))
		sweeper := &Sweeper{Resolver: s.Resolver}
		err := sweeper.Sweep(ctx, h.CIDRs, func(addr netip.Addr, name string) {
			if name != "" {
				s.Report.Plain("%s - %s", addr, name)
			}
		})
		if err := s.phaseErr("reverse sweep", err); err != nil {
			return err
		}
	}
	return nil
}

// dnsScan is the condensed dns-only mode: forward and reverse lookups,
// one result line per host when a domain is known.
func (s *Scanner) dnsScan(ctx context.Context, h *target.Host) error {
	s.Report.Section("DNS lookups on %s", h)
	if err := s.dnsPhase(ctx, h); err != nil {
		return err
	}
	if h.Domain != "" {
		parts := make([]string, 0, len(h.IPs)+1)
		parts = append(parts, h.Domain)
		for _, ip := range h.IPs {
			if ip.Name != "" {
				parts = append(parts, ip.Addr.String()+" ("+ip.Name+")")
			} else {
				parts = append(parts, ip.Addr.String())
			}
		}
		s.Report.Plain("\n%s", strings.Join(parts, " "))
	} else {
		s.printIPs(h)
	}
	return nil
}

// dnsPhase refreshes the Host's addresses from its domain and reverse
// resolves every address. Both directions fail soft.
func (s *Scanner) dnsPhase(ctx context.Context, h *target.Host) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.Domain != "" {
		addrs, err := s.Resolver.Forward(h.Domain)
		if err != nil {
			if err := s.phaseErr("DNS lookup", err); err != nil {
				return err
			}
		} else {
			h.SetAddrs(addrs)
		}
	}
	for _, ip := range h.IPs {
		name, err := s.Resolver.Reverse(ip.Addr)
		if err != nil {
			if err := s.phaseErr("reverse DNS lookup", err); err != nil {
				return err
			}
			continue
		}
		ip.Name = name
	}
	return nil
}

// recordPhase looks up NS and MX records and resolves each record name
// to its own address for display and export.
func (s *Scanner) recordPhase(ctx context.Context, h *target.Host) error {
	if h.Domain == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	names, err := s.Resolver.NS(h.Domain)
	if err := s.phaseErr("NS lookup", err); err != nil {
		return err
	}
	h.NS, err = s.resolveRecords(names)
	if err != nil {
		return err
	}
	if len(h.NS) > 0 {
		s.Report.Info("NS records:")
		s.printRecords(h.NS)
	}

	names, err = s.Resolver.MX(h.Domain)
	if err := s.phaseErr("MX lookup", err); err != nil {
		return err
	}
	h.MX, err = s.resolveRecords(names)
	if err != nil {
		return err
	}
	if len(h.MX) > 0 {
		s.Report.Info("MX records:")
		s.printRecords(h.MX)
	}
	return nil
}

func (s *Scanner) resolveRecords(names []string) ([]target.Record, error) {
	recs := make([]target.Record, 0, len(names))
	for _, name := range names {
		rec := target.Record{Name: name}
		addrs, err := s.Resolver.Forward(name)
		if err != nil {
			if errors.Is(err, lookup.ErrNoNameservers) {
				return nil, err
			}
		} else if len(addrs) > 0 {
			rec.Addr = addrs[0]
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Scanner) whoisDomainPhase(h *target.Host) error {
	if h.Domain == "" {
		return nil
	}
	text, err := s.Whois.Domain(h.Domain)
	if err := s.phaseErr("whois domain lookup", err); err != nil {
		return err
	}
	if text != "" {
		h.WhoisDomain = text
		s.Report.Info("Whois domain:")
		s.Report.Plain("%s", text)
	}
	return nil
}

// whoisIPPhase queries whois per address and collects the owning
// ranges the registry reports, feeding the later reverse sweep.
func (s *Scanner) whoisIPPhase(h *target.Host) error {
	for _, ip := range h.IPs {
		res, err := s.Whois.IP(ip.Addr)
		if err := s.phaseErr("whois IP lookup", err); err != nil {
			return err
		}
		if err != nil {
			continue
		}
		ip.Whois = res.Summary
		ip.CIDRs = res.CIDRs
		h.AddCIDRs(res.CIDRs)
		if res.Summary != "" {
			s.Report.Info("Whois IP for %s:", ip.Addr)
			s.Report.Plain("%s", res.Summary)
		}
	}
	return nil
}

func (s *Scanner) intelPhase(h *target.Host) error {
	for _, ip := range h.IPs {
		services, err := s.Intel.Lookup(ip.Addr)
		if err := s.phaseErr("Shodan lookup", err); err != nil {
			return err
		}
		if err != nil {
			continue
		}
		ip.Services = services
		if len(services) == 0 {
			s.Report.Plain("# No Shodan data for %s", ip.Addr)
			continue
		}
		s.Report.Info("Shodan for %s:", ip.Addr)
		for _, svc := range services {
			s.Report.Plain("  %s", svc.String())
		}
	}
	return nil
}

// discoveryPhase runs passive subdomain and LinkedIn discovery. Zero
// subdomains for a known domain gets a distinct warning: it usually
// means the sources are blocking us, not a true negative.
func (s *Scanner) discoveryPhase(h *target.Host) error {
	subs, linkedin, err := s.Discover.Discover(h.Domain)
	if err := s.phaseErr("subdomain discovery", err); err != nil {
		return err
	}
	if err != nil {
		return nil
	}
	h.Subdomains = subs
	h.LinkedIn = linkedin
	if linkedin != "" {
		s.Report.Info("Possible LinkedIn page: %s", linkedin)
	}
	if len(subs) == 0 {
		s.Report.Warn("No subdomains found. If you are scanning a lot, the sources might be blocking your requests.")
		return nil
	}
	s.Report.Info("Subdomains:")
	for _, sub := range subs {
		s.Report.Plain("  %s", sub)
	}
	return nil
}

// networkSweep reverse resolves a user-supplied Network, recording the
// addresses that have names.
func (s *Scanner) networkSweep(ctx context.Context, n *target.Network) error {
	s.Report.Section("Reverse DNS lookups on %s", n)
	sweeper := &Sweeper{Resolver: s.Resolver}
	n.Sweep = n.Sweep[:0]
	err := sweeper.Sweep(ctx, n.CIDRs, func(addr netip.Addr, name string) {
		if name != "" {
			n.Sweep = append(n.Sweep, target.SweepEntry{Addr: addr, Name: name})
			s.Report.Plain("%s - %s", addr, name)
		}
	})
	return s.phaseErr("reverse sweep", err)
}

func (s *Scanner) printIPs(h *target.Host) {
	if len(h.IPs) == 0 {
		return
	}
	s.Report.Info("IPs & reverse DNS:")
	for _, ip := range h.IPs {
		if ip.Name != "" {
			s.Report.Plain("%s - %s", ip.Addr, ip.Name)
		} else {
			s.Report.Plain("%s", ip.Addr)
		}
	}
}

func (s *Scanner) printRecords(recs []target.Record) {
	for _, r := range recs {
		if r.Addr.IsValid() {
			s.Report.Plain("%s %s", r.Name, r.Addr)
		} else {
			s.Report.Plain("%s", r.Name)
		}
	}
}

func prefixList(cidrs []netip.Prefix) string {
	parts := make([]string, 0, len(cidrs))
	for _, c := range cidrs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ", ")
}
