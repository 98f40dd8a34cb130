package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/tasfleet/internal/logging"
	"github.com/muurk/tasfleet/internal/registry"
)

const (
	// ServiceType is the mDNS service type Tasmota's web server advertises
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultBrowseTimeout is how long to listen for advertisements
	DefaultBrowseTimeout = 5 * time.Second
)

// browseFunc matches zeroconf.Resolver.Browse
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// MDNSBrowser collects hosts advertising an HTTP service and probes each one,
// so only devices running the expected firmware are returned
type MDNSBrowser struct {
	// Scanner probes the advertised hosts
	Scanner *Scanner

	// Timeout is how long to listen for advertisements
	Timeout time.Duration

	browse browseFunc
}

// NewMDNSBrowser creates a browser that probes candidates with scanner
func NewMDNSBrowser(scanner *Scanner) *MDNSBrowser {
	return &MDNSBrowser{
		Scanner: scanner,
		Timeout: DefaultBrowseTimeout,
	}
}

// Discover browses for candidates and returns those that pass the firmware probe
func (b *MDNSBrowser) Discover(ctx context.Context) ([]*registry.Device, error) {
	candidates, err := b.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	logging.Info("mDNS browse complete", zap.Int("candidates", len(candidates)))

	return b.Scanner.probeAll(ctx, slices.Values(candidates), uint64(len(candidates))), nil
}

// Candidates returns the unique IPv4 addresses advertised during the browse window
func (b *MDNSBrowser) Candidates(ctx context.Context) ([]netip.Addr, error) {
	browse := b.browse
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
		}
		browse = resolver.Browse
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	seen := make(map[netip.Addr]struct{})
	var addrs []netip.Addr

	// The resolver closes entries once ctx is done
	go func() {
		defer close(done)
		for entry := range entries {
			for _, ip := range entry.AddrIPv4 {
				addr, ok := netip.AddrFromSlice(ip.To4())
				if !ok {
					continue
				}
				if _, dup := seen[addr]; dup {
					continue
				}
				seen[addr] = struct{}{}
				addrs = append(addrs, addr)
				logging.Debug("mDNS candidate",
					zap.String("host", entry.HostName),
					zap.String("address", addr.String()),
				)
			}
		}
	}()

	if err := browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	slices.SortFunc(addrs, netip.Addr.Compare)
	return addrs, nil
}
