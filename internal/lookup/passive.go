package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	xhtml "golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const passiveUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0"

// Passive implements Discoverer over free passive sources: certificate
// transparency and hostsearch APIs for subdomains, and a search-engine
// result page for the company LinkedIn profile. Sources share one rate
// limiter so bulk scans do not trip upstream blocking.
type Passive struct {
	client  *http.Client
	limiter *rate.Limiter
}

func NewPassive(timeout time.Duration) *Passive {
	return &Passive{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
}

// Discover queries all sources for domain. It fails only when every
// subdomain source failed; a dead LinkedIn probe is reported as an
// empty result instead.
func (p *Passive) Discover(domain string) ([]string, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	var subs []string
	var errs []string

	if s, err := p.fromCrtSh(ctx, domain); err != nil {
		errs = append(errs, err.Error())
	} else {
		subs = append(subs, s...)
	}
	if s, err := p.fromHackerTarget(ctx, domain); err != nil {
		errs = append(errs, err.Error())
	} else {
		subs = append(subs, s...)
	}

	if len(subs) == 0 && len(errs) == 2 {
		return nil, "", fmt.Errorf("all subdomain sources failed: %s", strings.Join(errs, "; "))
	}

	linkedin, _ := p.linkedinPage(ctx, domain)
	return cleanSubdomains(subs, domain), linkedin, nil
}

func (p *Passive) get(ctx context.Context, u string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", passiveUserAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", req.URL.Host, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func (p *Passive) fromCrtSh(ctx context.Context, domain string) ([]string, error) {
	body, err := p.get(ctx, fmt.Sprintf("https://crt.sh/?q=%%25.%s&output=json", url.QueryEscape(domain)))
	if err != nil {
		return nil, fmt.Errorf("crt.sh: %w", err)
	}
	var entries []struct {
		NameValue string `json:"name_value"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("crt.sh: bad response: %w", err)
	}
	var out []string
	for _, e := range entries {
		out = append(out, strings.Split(e.NameValue, "\n")...)
	}
	return out, nil
}

func (p *Passive) fromHackerTarget(ctx context.Context, domain string) ([]string, error) {
	body, err := p.get(ctx, "https://api.hackertarget.com/hostsearch/?q="+url.QueryEscape(domain))
	if err != nil {
		return nil, fmt.Errorf("hackertarget: %w", err)
	}
	text := string(body)
	if strings.Contains(text, "API count exceeded") {
		return nil, fmt.Errorf("hackertarget: API count exceeded")
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if name, _, ok := strings.Cut(line, ","); ok {
			out = append(out, strings.TrimSpace(name))
		}
	}
	return out, nil
}

// linkedinPage scrapes a search-engine result page for the first
// linkedin.com/company link mentioning the domain's organization.
func (p *Passive) linkedinPage(ctx context.Context, domain string) (string, error) {
	q := url.QueryEscape("site:linkedin.com/company " + strings.TrimSuffix(domain, tld(domain)))
	body, err := p.get(ctx, "https://html.duckduckgo.com/html/?q="+q)
	if err != nil {
		return "", err
	}

	z := xhtml.NewTokenizer(strings.NewReader(string(body)))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			return "", nil
		}
		if tt != xhtml.StartTagToken {
			continue
		}
		t := z.Token()
		if t.Data != "a" {
			continue
		}
		for _, a := range t.Attr {
			if a.Key != "href" {
				continue
			}
			if href := extractLinkedIn(a.Val); href != "" {
				return href, nil
			}
		}
	}
}

// extractLinkedIn digs a linkedin.com/company URL out of a result link,
// which search engines usually wrap in a redirect with a uddg/u param.
func extractLinkedIn(href string) string {
	if u, err := url.Parse(href); err == nil {
		for _, key := range []string{"uddg", "u"} {
			if wrapped := u.Query().Get(key); wrapped != "" {
				href = wrapped
				break
			}
		}
	}
	if strings.Contains(href, "linkedin.com/company") {
		return href
	}
	return ""
}

// cleanSubdomains lowercases, strips wildcards, keeps only names under
// domain, and returns them sorted and unique.
func cleanSubdomains(in []string, domain string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.TrimPrefix(s, "*.")
		if s == "" || s == domain || !strings.HasSuffix(s, "."+domain) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func tld(domain string) string {
	if i := strings.LastIndex(domain, "."); i >= 0 {
		return domain[i:]
	}
	return ""
}
