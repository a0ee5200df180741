// Package scan turns raw user input into targets and drives the lookup
// sequence over them.
package scan

import (
	"errors"
	"fmt"
	"net/netip"

	"gorecon/internal/lookup"
	"gorecon/internal/target"
)

// ErrUnresolved marks input that is neither an IP, a CIDR, nor a
// resolvable name. It is a classification failure, never fatal.
var ErrUnresolved = errors.New("could not resolve or understand input")

// Classify turns one raw string into a target. The order is a
// deliberate tie-break: single IP first, then CIDR (non-strict, host
// bits masked), then forward DNS. The DNS query here is repeated later
// by the scan's own DNS phase on purpose; that phase asks for more
// record types and must not assume this result is cached.
//
// Only "not an IP", "not a CIDR", NXDOMAIN and malformed-name failures
// map to ErrUnresolved. Anything else, a dead resolver in particular,
// propagates to the caller.
func Classify(res lookup.Resolver, raw string) (target.Target, error) {
	if addr, err := netip.ParseAddr(raw); err == nil {
		return target.NewHostFromAddr(addr), nil
	}

	if prefix, err := netip.ParsePrefix(raw); err == nil {
		return target.NewNetwork(prefix), nil
	}

	addrs, err := res.Forward(raw)
	if err != nil {
		if errors.Is(err, lookup.ErrNameNotExist) || errors.Is(err, lookup.ErrMalformedName) {
			return nil, fmt.Errorf("%q: %w", raw, ErrUnresolved)
		}
		return nil, err
	}
	return target.NewHostFromDomain(raw, addrs), nil
}
