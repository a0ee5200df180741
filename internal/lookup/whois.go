package lookup

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	whois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// Whois retrieves registration text from the whois system and condenses
// it to the fields an operator actually reads.
type Whois struct{}

func NewWhois() *Whois { return &Whois{} }

// Domain fetches and summarizes the whois record for a domain name.
// When the registry text cannot be parsed the raw text is trimmed and
// returned instead, so sparse TLDs still produce something.
func (w *Whois) Domain(name string) (string, error) {
	raw, err := whois.Whois(name)
	if err != nil {
		return "", fmt.Errorf("whois %s: %w", name, err)
	}
	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		return condense(raw, 20), nil
	}

	var b strings.Builder
	line := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	if parsed.Registrar != nil {
		line("Registrar", parsed.Registrar.Name)
	}
	if parsed.Domain != nil {
		line("Created", parsed.Domain.CreatedDate)
		line("Updated", parsed.Domain.UpdatedDate)
		line("Expires", parsed.Domain.ExpirationDate)
		line("Status", strings.Join(parsed.Domain.Status, ", "))
		line("Name servers", strings.Join(parsed.Domain.NameServers, ", "))
	}
	if parsed.Registrant != nil {
		line("Registrant", parsed.Registrant.Organization)
		line("Country", parsed.Registrant.Country)
	}
	if b.Len() == 0 {
		return condense(raw, 20), nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Fields worth keeping from IP whois text, across the RIR formats.
var ipWhoisFields = regexp.MustCompile(`(?im)^(NetRange|inet6?num|CIDR|route6?|NetName|netname|OrgName|org-name|Organization|descr|Country|country|origin|OriginAS|abuse-mailbox|OrgAbuseEmail):\s*\S.*$`)

var cidrLine = regexp.MustCompile(`(?im)^(?:CIDR|route6?|inet6?num):\s*(.+)$`)

// IP fetches whois for an address, returning a condensed summary plus
// any CIDR ranges the registry reports as owning it.
func (w *Whois) IP(addr netip.Addr) (IPWhois, error) {
	raw, err := whois.Whois(addr.String())
	if err != nil {
		return IPWhois{}, fmt.Errorf("whois %s: %w", addr, err)
	}
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	lines := ipWhoisFields.FindAllString(text, -1)
	summary := strings.Join(dedupe(lines), "\n")
	if summary == "" {
		summary = condense(text, 12)
	}
	return IPWhois{Summary: summary, CIDRs: ExtractCIDRs(text)}, nil
}

// ExtractCIDRs pulls owning network ranges out of raw registry text.
// Registries list several comma-separated routes on one line at times.
func ExtractCIDRs(text string) []netip.Prefix {
	var out []netip.Prefix
	seen := map[netip.Prefix]struct{}{}
	for _, m := range cidrLine.FindAllStringSubmatch(text, -1) {
		for _, field := range strings.Split(m[1], ",") {
			p, err := netip.ParsePrefix(strings.TrimSpace(field))
			if err != nil {
				continue
			}
			p = p.Masked()
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// condense keeps the first n informative lines of raw whois text.
func condense(raw string, n int) string {
	var kept []string
	for _, l := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "%") || strings.HasPrefix(l, "#") || strings.HasPrefix(l, ">>>") {
			continue
		}
		kept = append(kept, l)
		if len(kept) == n {
			break
		}
	}
	return strings.Join(kept, "\n")
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
