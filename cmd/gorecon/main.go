// gorecon classifies free-form targets (IPs, CIDR ranges, domains) and
// runs a best-effort reconnaissance sequence against each: forward and
// reverse DNS, NS/MX records, whois, Shodan, passive subdomain
// discovery, and reverse-DNS sweeps over discovered ranges.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"gorecon/internal/export"
	"gorecon/internal/lookup"
	"gorecon/internal/report"
	"gorecon/internal/scan"
)

const version = "0.1"

var (
	entryBanner = "# gorecon v" + version
	exitBanner  = "# Done"
)

func main() {
	var (
		output     string
		nameserver string
		timeoutSec int
		shodanKey  string
		configPath string
		verbose    bool
		dnsOnly    bool
	)
	flag.StringVar(&output, "output", "", "output filename as csv")
	flag.StringVar(&output, "o", "", "output filename as csv (shorthand)")
	flag.StringVar(&nameserver, "nameserver", "", "alternative DNS server to query")
	flag.StringVar(&nameserver, "n", "", "alternative DNS server to query (shorthand)")
	flag.IntVar(&timeoutSec, "timeout", 0, "DNS timeout in seconds")
	flag.IntVar(&timeoutSec, "t", 0, "DNS timeout in seconds (shorthand)")
	flag.StringVar(&shodanKey, "shodan_key", "", "shodan key for automated port/service information")
	flag.StringVar(&shodanKey, "s", "", "shodan key (shorthand)")
	flag.StringVar(&configPath, "config", "", "YAML file with default nameserver/timeout/shodan_key")
	flag.StringVar(&configPath, "c", "", "YAML defaults file (shorthand)")
	flag.BoolVar(&verbose, "verbose", false, "verbose errors")
	flag.BoolVar(&verbose, "v", false, "verbose errors (shorthand)")
	flag.BoolVar(&dnsOnly, "dns_only", false, "direct and reverse DNS lookups only")
	flag.BoolVar(&dnsOnly, "d", false, "DNS lookups only (shorthand)")
	flag.Usage = usage
	flag.Parse()

	inputs := sortedUnique(flag.Args())
	if len(inputs) == 0 {
		usage()
		os.Exit(1)
	}

	if shodanKey == "" {
		shodanKey = os.Getenv("SHODAN_KEY")
	}

	cfg := lookup.Config{
		Nameserver: nameserver,
		Timeout:    time.Duration(timeoutSec) * time.Second,
		ShodanKey:  shodanKey,
		Verbose:    verbose,
	}
	if configPath != "" {
		fc, err := lookup.LoadFile(expandHome(configPath))
		if err != nil {
			fatal("# %v", err)
		}
		cfg.Apply(fc)
	}

	rep := report.New(verbose)
	scanner, err := scan.New(&cfg, rep, dnsOnly)
	if err != nil {
		fatal("# %v", err)
	}

	// Interrupt aborts the run immediately at any point, except inside
	// the export retry loop, which asks for confirmation first.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scanDone := make(chan struct{})
	go func() {
		select {
		case <-sig:
			cancel()
			fatal("\n# Scan interrupted")
		case <-scanDone:
		}
	}()

	rep.Plain("%s", entryBanner)

	if err := scanner.Populate(inputs); err != nil {
		exitOnLookupFailure(err)
	}
	if err := scanner.Run(ctx); err != nil {
		exitOnLookupFailure(err)
	}

	// From here on the signal goes to the export writer instead.
	close(scanDone)

	if output != "" {
		rep.Plain("\n# Saving output csv file")
		rows := export.Serialize(scanner.Targets())
		w := export.NewWriter(os.Stdin, sig)
		if err := w.Write(expandHome(output), rows); err != nil {
			fatal("# Scan interrupted")
		}
	}

	rep.Plain("%s", exitBanner)
}

func usage() {
	fmt.Fprintf(os.Stderr, `%s

usage: gorecon [options] target1 [target2 ... targetN]

targets can be a domain (google.com), an IP (8.8.8.8) or a network
range (8.8.8.0/24)

options:
  -o, --output      output filename as csv
  -n, --nameserver  alternative DNS server to query
  -t, --timeout     DNS timeout in seconds
  -s, --shodan_key  shodan key (falls back to SHODAN_KEY env var)
  -c, --config      YAML file with default nameserver/timeout/shodan_key
  -v, --verbose     verbose errors
  -d, --dns_only    direct and reverse DNS lookups only
`, entryBanner)
}

func exitOnLookupFailure(err error) {
	if errors.Is(err, lookup.ErrNoNameservers) {
		fatal("# Something went wrong. Sure you got internet connection?")
	}
	if errors.Is(err, context.Canceled) {
		fatal("# Scan interrupted")
	}
	fatal("# %v", err)
}

func fatal(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func sortedUnique(in []string) []string {
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
	sort.Strings(out)
	return out
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
