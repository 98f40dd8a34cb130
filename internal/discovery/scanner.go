package discovery

import (
	"context"
	"iter"
	"net/netip"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/tasfleet/internal/deviceconfig"
	"github.com/muurk/tasfleet/internal/logging"
	"github.com/muurk/tasfleet/internal/registry"
)

const (
	// DefaultConcurrency is the default number of in-flight probes
	DefaultConcurrency = 256

	// DefaultMarker is the firmware version substring that identifies Tasmota
	DefaultMarker = "tasmota"

	// ProbeCommand is the status query sent to every candidate address
	ProbeCommand = "Status 2"
)

// CommandSender runs a console command against a device.
// *deviceconfig.Client satisfies it.
type CommandSender interface {
	SendCommand(ctx context.Context, address, command string) (*deviceconfig.Response, error)
}

// Scanner finds Tasmota devices by probing every address of a range
type Scanner struct {
	// Client sends the probe command
	Client CommandSender

	// Concurrency is the maximum number of probes in flight (minimum 1)
	Concurrency int

	// Marker must appear in StatusFWR.Version for a device to match (case-sensitive)
	Marker string

	// OnProbe, if set, is called once per probed address. It may be
	// called from several goroutines at once.
	OnProbe func(address string, matched bool)
}

// NewScanner creates a scanner with default settings
func NewScanner(client CommandSender) *Scanner {
	return &Scanner{
		Client:      client,
		Concurrency: DefaultConcurrency,
		Marker:      DefaultMarker,
	}
}

// Scan probes every address in cidr and returns the matching devices,
// sorted by address and carrying empty data. The only error is
// ErrInvalidRange; unreachable addresses are dropped. Cancelling ctx stops
// new probes and returns what was found so far.
func (s *Scanner) Scan(ctx context.Context, cidr string) ([]*registry.Device, error) {
	prefix, err := ParseRange(cidr)
	if err != nil {
		return nil, err
	}

	logging.Info("Scanning address range",
		zap.String("range", prefix.String()),
		zap.Uint64("addresses", RangeSize(prefix)),
	)

	return s.probeAll(ctx, Hosts(prefix), RangeSize(prefix)), nil
}

// Probe sends the status query to one address and reports whether the
// reply identifies a device running the expected firmware
func (s *Scanner) Probe(ctx context.Context, address string) (*registry.Device, bool) {
	resp, err := s.Client.SendCommand(ctx, address, ProbeCommand)

	firmware, _ := resp.FirmwareVersion()
	matched := err == nil && resp != nil && strings.Contains(firmware, s.marker())

	logging.LogProbe(address, matched, firmware, err)
	if s.OnProbe != nil {
		s.OnProbe(address, matched)
	}

	if !matched {
		return nil, false
	}
	return registry.NewDevice(address), true
}

// probeAll runs Probe over addrs on a bounded worker pool fed by a producer goroutine
func (s *Scanner) probeAll(ctx context.Context, addrs iter.Seq[netip.Addr], total uint64) []*registry.Device {
	workers := s.Concurrency
	if workers < 1 {
		workers = 1
	}
	if total < uint64(workers) {
		workers = int(total)
	}
	if workers == 0 {
		return nil
	}

	workCh := make(chan netip.Addr, workers)
	resultCh := make(chan *registry.Device, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range workCh {
				if ctx.Err() != nil {
					continue
				}
				if device, ok := s.Probe(ctx, addr.String()); ok {
					resultCh <- device
				}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for addr := range addrs {
			select {
			case workCh <- addr:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var found []*registry.Device
	for device := range resultCh {
		found = append(found, device)
	}

	registry.SortDevices(found)
	return found
}

func (s *Scanner) marker() string {
	if s.Marker == "" {
		return DefaultMarker
	}
	return s.Marker
}
