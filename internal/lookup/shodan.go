package lookup

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"sort"
	"time"

	"gorecon/internal/target"
)

const shodanHostURL = "https://api.shodan.io/shodan/host/%s?key=%s"

// Shodan implements HostIntel against the Shodan host API. The
// credential is fixed at construction; the scanner only builds one of
// these when a key was configured.
type Shodan struct {
	key    string
	client *http.Client
}

func NewShodan(key string, timeout time.Duration) *Shodan {
	return &Shodan{
		key:    key,
		client: &http.Client{Timeout: timeout},
	}
}

type shodanHost struct {
	Data []struct {
		Port      int    `json:"port"`
		Transport string `json:"transport"`
		Product   string `json:"product"`
		Data      string `json:"data"`
	} `json:"data"`
}

// Lookup fetches port/service data for addr. An address Shodan has
// never seen yields (nil, nil), not an error.
func (s *Shodan) Lookup(addr netip.Addr) ([]target.Service, error) {
	u := fmt.Sprintf(shodanHostURL, url.PathEscape(addr.String()), url.QueryEscape(s.key))
	resp, err := s.client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("shodan %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shodan %s: api returned %s", addr, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("shodan %s: %w", addr, err)
	}
	var host shodanHost
	if err := json.Unmarshal(body, &host); err != nil {
		return nil, fmt.Errorf("shodan %s: bad response: %w", addr, err)
	}

	services := make([]target.Service, 0, len(host.Data))
	for _, d := range host.Data {
		banner := d.Data
		if len(banner) > 120 {
			banner = banner[:120]
		}
		services = append(services, target.Service{
			Port:      d.Port,
			Transport: d.Transport,
			Product:   d.Product,
			Banner:    banner,
		})
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Port < services[j].Port })
	return services, nil
}
