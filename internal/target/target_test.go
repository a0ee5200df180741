package target_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorecon/internal/target"
)

func TestSetDeduplicatesByStructure(t *testing.T) {
	s := target.NewSet()
	a := netip.MustParseAddr("8.8.8.8")

	assert.True(t, s.Add(target.NewHostFromAddr(a)))
	assert.False(t, s.Add(target.NewHostFromAddr(a)))
	assert.Equal(t, 1, s.Len())

	// same address but with a domain attached is a different target
	assert.True(t, s.Add(target.NewHostFromDomain("dns.google", []netip.Addr{a})))
	assert.Equal(t, 2, s.Len())
}

func TestSetIterationOrderIsDeterministic(t *testing.T) {
	build := func(order []string) []string {
		s := target.NewSet()
		for _, raw := range order {
			s.Add(target.NewHostFromAddr(netip.MustParseAddr(raw)))
		}
		var keys []string
		for _, tg := range s.Targets() {
			keys = append(keys, tg.String())
		}
		return keys
	}
	first := build([]string{"8.8.8.8", "1.1.1.1", "9.9.9.9"})
	second := build([]string{"9.9.9.9", "8.8.8.8", "1.1.1.1"})
	assert.Equal(t, first, second)
}

func TestNewNetworkMasksHostBits(t *testing.T) {
	n := target.NewNetwork(netip.MustParsePrefix("8.8.8.1/24"))
	require.Len(t, n.CIDRs, 1)
	assert.Equal(t, netip.MustParsePrefix("8.8.8.0/24"), n.CIDRs[0])
}

func TestNetworkEqualityIgnoresHostBits(t *testing.T) {
	s := target.NewSet()
	assert.True(t, s.Add(target.NewNetwork(netip.MustParsePrefix("8.8.8.1/24"))))
	assert.False(t, s.Add(target.NewNetwork(netip.MustParsePrefix("8.8.8.0/24"))))
}

func TestHostAddCIDRsSkipsDuplicates(t *testing.T) {
	h := target.NewHostFromAddr(netip.MustParseAddr("198.51.100.1"))
	p := netip.MustParsePrefix("198.51.100.0/24")
	h.AddCIDRs([]netip.Prefix{p})
	h.AddCIDRs([]netip.Prefix{p, netip.MustParsePrefix("198.51.100.7/24")})
	assert.Equal(t, []netip.Prefix{p}, h.CIDRs)
}

func TestHostSetAddrsKeepsExistingWhenEmpty(t *testing.T) {
	h := target.NewHostFromAddr(netip.MustParseAddr("8.8.8.8"))
	h.SetAddrs(nil)
	require.Len(t, h.IPs, 1)
	assert.Equal(t, "8.8.8.8", h.IPs[0].Addr.String())
}

func TestHostString(t *testing.T) {
	a := netip.MustParseAddr("8.8.8.8")
	assert.Equal(t, "8.8.8.8", target.NewHostFromAddr(a).String())
	assert.Equal(t, "dns.google", target.NewHostFromDomain("dns.google", []netip.Addr{a}).String())
}
