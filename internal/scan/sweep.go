package scan

import (
	"context"
	"errors"
	"net/netip"
	"sort"

	"gorecon/internal/lookup"
)

// Sweeper performs reverse-DNS lookups across entire CIDR ranges.
type Sweeper struct {
	Resolver lookup.Resolver
}

// Sweep visits every address in the union of cidrs exactly once, in
// address order, calling fn with the address and its PTR name (empty
// when none exists). Results stream through fn; nothing is
// materialized, so a /16 reports as it goes. Each call restarts from
// the beginning.
//
// A missing PTR is a normal result. Only a resolver infrastructure
// failure or context cancellation aborts the sweep.
func (s *Sweeper) Sweep(ctx context.Context, cidrs []netip.Prefix, fn func(addr netip.Addr, name string)) error {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		prefixes = append(prefixes, c.Masked())
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if prefixes[i].Addr() != prefixes[j].Addr() {
			return prefixes[i].Addr().Less(prefixes[j].Addr())
		}
		return prefixes[i].Bits() < prefixes[j].Bits()
	})

	for i, p := range prefixes {
		for addr := p.Addr(); addr.IsValid() && p.Contains(addr); addr = addr.Next() {
			if covered(prefixes[:i], addr) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			name, err := s.Resolver.Reverse(addr)
			if err != nil {
				if errors.Is(err, lookup.ErrNoNameservers) {
					return err
				}
				name = ""
			}
			fn(addr, name)
		}
	}
	return nil
}

// covered reports whether addr was already visited as part of an
// earlier, possibly overlapping prefix.
func covered(earlier []netip.Prefix, addr netip.Addr) bool {
	for _, p := range earlier {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
