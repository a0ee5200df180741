package scan_test

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorecon/internal/lookup"
	"gorecon/internal/report"
	"gorecon/internal/scan"
	"gorecon/internal/target"
)

// fakeResolver serves canned answers and counts reverse lookups.
type fakeResolver struct {
	forward      map[string][]netip.Addr
	reverse      map[netip.Addr]string
	ns           map[string][]string
	mx           map[string][]string
	fail         error
	reverseCalls int
}

func (f *fakeResolver) Forward(name string) ([]netip.Addr, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	addrs, ok := f.forward[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, lookup.ErrNameNotExist)
	}
	return addrs, nil
}

func (f *fakeResolver) Reverse(addr netip.Addr) (string, error) {
	f.reverseCalls++
	if f.fail != nil {
		return "", f.fail
	}
	return f.reverse[addr], nil
}

func (f *fakeResolver) NS(domain string) ([]string, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.ns[domain], nil
}

func (f *fakeResolver) MX(domain string) ([]string, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.mx[domain], nil
}

type fakeWhois struct {
	domainCalls int
	ipCalls     int
	domainText  string
	ipResult    lookup.IPWhois
	ipErr       error
}

func (f *fakeWhois) Domain(name string) (string, error) {
	f.domainCalls++
	return f.domainText, nil
}

func (f *fakeWhois) IP(addr netip.Addr) (lookup.IPWhois, error) {
	f.ipCalls++
	if f.ipErr != nil {
		return lookup.IPWhois{}, f.ipErr
	}
	return f.ipResult, nil
}

type fakeIntel struct {
	calls    int
	services []target.Service
}

func (f *fakeIntel) Lookup(addr netip.Addr) ([]target.Service, error) {
	f.calls++
	return f.services, nil
}

type fakeDiscoverer struct {
	calls    int
	subs     []string
	linkedin string
	err      error
}

func (f *fakeDiscoverer) Discover(domain string) ([]string, string, error) {
	f.calls++
	return f.subs, f.linkedin, f.err
}

func quietReporter() *report.Reporter {
	return &report.Reporter{Out: io.Discard}
}

func addr(s string) netip.Addr { return netip.MustParseAddr(s) }

func TestPopulateDeduplicatesTargets(t *testing.T) {
	s := &scan.Scanner{
		Resolver: &fakeResolver{},
		Report:   quietReporter(),
		DNSOnly:  true,
	}
	require.NoError(t, s.Populate([]string{"8.8.8.8", "8.8.8.8"}))
	assert.Len(t, s.Targets(), 1)
}

func TestPopulateReportsUnresolved(t *testing.T) {
	s := &scan.Scanner{
		Resolver: &fakeResolver{},
		Report:   quietReporter(),
		DNSOnly:  true,
	}
	require.NoError(t, s.Populate([]string{"definitely-not-real.invalid"}))
	assert.Empty(t, s.Targets())
	assert.Equal(t, []string{"definitely-not-real.invalid"}, s.Unresolved())
}

func TestDNSOnlyNeverTouchesOtherCollaborators(t *testing.T) {
	fr := &fakeResolver{
		forward: map[string][]netip.Addr{"example.com": {addr("93.184.216.34")}},
		reverse: map[netip.Addr]string{addr("93.184.216.34"): "example.com"},
	}
	fw := &fakeWhois{}
	fi := &fakeIntel{}
	fd := &fakeDiscoverer{}
	s := &scan.Scanner{
		Resolver: fr,
		Whois:    fw,
		Intel:    fi,
		Discover: fd,
		Report:   quietReporter(),
		DNSOnly:  true,
	}
	require.NoError(t, s.Populate([]string{"example.com", "8.8.8.8"}))
	require.NoError(t, s.Run(context.Background()))

	assert.Zero(t, fw.domainCalls)
	assert.Zero(t, fw.ipCalls)
	assert.Zero(t, fi.calls)
	assert.Zero(t, fd.calls)
	assert.Positive(t, fr.reverseCalls)
}

func TestWhoisIPFailureDoesNotBlockDiscovery(t *testing.T) {
	fr := &fakeResolver{
		forward: map[string][]netip.Addr{"example.com": {addr("93.184.216.34")}},
		reverse: map[netip.Addr]string{},
	}
	fw := &fakeWhois{ipErr: fmt.Errorf("whois refused the connection")}
	fd := &fakeDiscoverer{subs: []string{"www.example.com"}, linkedin: "https://linkedin.com/company/example"}
	s := &scan.Scanner{
		Resolver: fr,
		Whois:    fw,
		Discover: fd,
		Report:   quietReporter(),
	}
	require.NoError(t, s.Populate([]string{"example.com"}))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 1, fd.calls)
	h := s.Targets()[0].(*target.Host)
	assert.Equal(t, []string{"www.example.com"}, h.Subdomains)
	assert.Equal(t, "https://linkedin.com/company/example", h.LinkedIn)
}

func TestFullScanCollectsWhoisCIDRsAndSweepsThem(t *testing.T) {
	owned := netip.MustParsePrefix("198.51.100.0/30")
	fr := &fakeResolver{
		reverse: map[netip.Addr]string{
			addr("198.51.100.1"): "one.example.net",
		},
	}
	fw := &fakeWhois{ipResult: lookup.IPWhois{
		Summary: "NetName: TEST-NET",
		CIDRs:   []netip.Prefix{owned},
	}}
	s := &scan.Scanner{
		Resolver: fr,
		Whois:    fw,
		Discover: &fakeDiscoverer{},
		Report:   quietReporter(),
	}
	require.NoError(t, s.Populate([]string{"198.51.100.1"}))
	require.NoError(t, s.Run(context.Background()))

	h := s.Targets()[0].(*target.Host)
	assert.Equal(t, []netip.Prefix{owned}, h.CIDRs)
	// one reverse for the host's own IP, four for the /30 sweep
	assert.Equal(t, 5, fr.reverseCalls)
}

func TestInfrastructureFailureAbortsRun(t *testing.T) {
	fr := &fakeResolver{}
	s := &scan.Scanner{
		Resolver: fr,
		Whois:    &fakeWhois{},
		Discover: &fakeDiscoverer{},
		Report:   quietReporter(),
	}
	require.NoError(t, s.Populate([]string{"8.8.8.8"}))

	fr.fail = fmt.Errorf("resolver: %w", lookup.ErrNoNameservers)
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, lookup.ErrNoNameservers)
}

func TestEndToEndDNSOnlyScenario(t *testing.T) {
	fr := &fakeResolver{
		reverse: map[netip.Addr]string{
			addr("8.8.8.8"):  "dns.google",
			addr("10.0.0.2"): "two.internal",
		},
	}
	s := &scan.Scanner{
		Resolver: fr,
		Report:   quietReporter(),
		DNSOnly:  true,
	}
	inputs := []string{"8.8.8.8", "not-a-real-domain-xyz123.invalid", "10.0.0.0/30"}
	require.NoError(t, s.Populate(inputs))
	require.NoError(t, s.Run(context.Background()))

	targets := s.Targets()
	require.Len(t, targets, 2)

	h, ok := targets[0].(*target.Host)
	require.True(t, ok)
	assert.Empty(t, h.Domain)
	require.Len(t, h.IPs, 1)
	assert.Equal(t, "dns.google", h.IPs[0].Name)

	n, ok := targets[1].(*target.Network)
	require.True(t, ok)
	require.Len(t, n.Sweep, 1)
	assert.Equal(t, "two.internal", n.Sweep[0].Name)

	assert.Equal(t, []string{"not-a-real-domain-xyz123.invalid"}, s.Unresolved())
	// 1 lookup for the bare IP, 4 for the /30
	assert.Equal(t, 5, fr.reverseCalls)
}
