// Package lookup contains the external collaborators a scan talks to:
// the DNS resolver, whois, the host-intelligence API and the passive
// discovery sources. Everything is reached through a small interface so
// tests can inject fakes, and everything is configured through one
// explicit Config value instead of package-level state.
package lookup

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gorecon/internal/target"
)

// Errors every collaborator maps its failures onto. Callers distinguish
// them with errors.Is.
var (
	// ErrNameNotExist: the queried name does not exist (NXDOMAIN).
	ErrNameNotExist = errors.New("name does not exist")
	// ErrMalformedName: the input is not a syntactically valid name.
	ErrMalformedName = errors.New("malformed name")
	// ErrNoNameservers: no configured nameserver could be reached. This
	// is the only lookup error treated as fatal by the scanner.
	ErrNoNameservers = errors.New("no nameservers could be reached")
)

// Config is built once in main and passed by reference into the
// classifier, scanner and sweeper.
type Config struct {
	Nameserver string        // overrides the system resolver when set
	Timeout    time.Duration // bounds DNS and collaborator HTTP calls
	ShodanKey  string        // host-intelligence credential, optional
	Verbose    bool          // detailed collaborator errors in output
}

// DefaultTimeout bounds lookups when no timeout was configured.
const DefaultTimeout = 10 * time.Second

// EffectiveTimeout returns the configured timeout or the default.
func (c *Config) EffectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// FileConfig mirrors the optional YAML defaults file. Command line
// flags win over file values.
type FileConfig struct {
	Nameserver     string `yaml:"nameserver"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ShodanKey      string `yaml:"shodan_key"`
}

// LoadFile reads a YAML defaults file.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("config file %s: %w", path, err)
	}
	return fc, nil
}

// Apply fills any Config field left at its zero value from the file.
func (c *Config) Apply(fc FileConfig) {
	if c.Nameserver == "" {
		c.Nameserver = fc.Nameserver
	}
	if c.Timeout == 0 && fc.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if c.ShodanKey == "" {
		c.ShodanKey = fc.ShodanKey
	}
}

// Resolver is the DNS collaborator. Reverse returns an empty name, not
// an error, when the address has no PTR record.
type Resolver interface {
	Forward(name string) ([]netip.Addr, error)
	Reverse(addr netip.Addr) (string, error)
	NS(domain string) ([]string, error)
	MX(domain string) ([]string, error)
}

// IPWhois is the result of a whois lookup on a single address.
type IPWhois struct {
	Summary string
	CIDRs   []netip.Prefix // ranges the registry says own the address
}

// WhoisClient retrieves registration text for domains and addresses.
type WhoisClient interface {
	Domain(name string) (string, error)
	IP(addr netip.Addr) (IPWhois, error)
}

// HostIntel is the credential-gated port/service intelligence API.
// Lookup returns (nil, nil) when the service has no data for addr.
type HostIntel interface {
	Lookup(addr netip.Addr) ([]target.Service, error)
}

// Discoverer finds subdomains and a linked company page for a domain
// from passive sources.
type Discoverer interface {
	Discover(domain string) (subdomains []string, linkedin string, err error)
}
