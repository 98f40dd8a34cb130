package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/tasfleet/internal/logging"
)

// DefaultPath is the registry file used when none is configured
const DefaultPath = "devices.json"

// ErrCorrupt is logged when a registry file exists but cannot be read or parsed
var ErrCorrupt = errors.New("registry file is unreadable or invalid")

// Registry is the ordered set of known devices, keyed by address
type Registry struct {
	devices []*Device
	index   map[string]*Device
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		index: make(map[string]*Device),
	}
}

// Load reads the registry at path.
// A missing file gives an empty registry. An unreadable or malformed file also
// gives an empty registry; the failure is logged, never returned.
func Load(path string) *Registry {
	reg, err := load(path)
	if err != nil {
		logging.Warn("Ignoring registry file",
			zap.String("path", path),
			zap.Error(err),
		)
		return New()
	}
	return reg
}

// load does the actual parsing so tests can observe the swallowed error
func load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	// Numbers stay json.Number so unknown keys are written back unchanged
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var entries map[string]Data
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after registry object", ErrCorrupt)
	}

	addresses := make([]string, 0, len(entries))
	for address := range entries {
		addresses = append(addresses, address)
	}
	slices.SortFunc(addresses, CompareAddresses)

	reg := New()
	for _, address := range addresses {
		data := entries[address]
		if data == nil {
			data = make(Data)
		}
		reg.Add(&Device{Address: address, Data: data})
	}

	logging.Debug("Loaded registry",
		zap.String("path", path),
		zap.Int("devices", reg.Len()),
	)

	return reg, nil
}

// Save writes every device to path, replacing the previous contents.
func (r *Registry) Save(path string) error {
	entries := make(map[string]Data, len(r.devices))
	for _, d := range r.devices {
		data := d.Data
		if data == nil {
			data = make(Data)
		}
		entries[d.Address] = data
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write temporary registry file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save registry file: %w", err)
	}

	logging.Debug("Saved registry",
		zap.String("path", path),
		zap.Int("devices", len(r.devices)),
	)

	return nil
}

// Len returns the number of devices
func (r *Registry) Len() int {
	return len(r.devices)
}

// Devices returns the devices in registry order.
// The slice is a copy; the devices are shared.
func (r *Registry) Devices() []*Device {
	return slices.Clone(r.devices)
}

// Get returns the device with the given address, or nil
func (r *Registry) Get(address string) *Device {
	return r.index[address]
}

// Add appends a device unless its address is already present.
// Returns false when the address was already known; the existing entry is kept.
func (r *Registry) Add(d *Device) bool {
	if d == nil {
		return false
	}
	if _, exists := r.index[d.Address]; exists {
		return false
	}
	if d.Data == nil {
		d.Data = make(Data)
	}
	r.devices = append(r.devices, d)
	r.index[d.Address] = d
	return true
}

// Merge adds every device whose address is not yet known and returns how many were added.
// Known addresses keep their existing data.
func (r *Registry) Merge(found []*Device) int {
	added := 0
	for _, d := range found {
		if r.Add(d) {
			added++
		}
	}
	return added
}

// Remove deletes the device with the given address.
// Returns false if no such device exists.
func (r *Registry) Remove(address string) bool {
	if _, exists := r.index[address]; !exists {
		return false
	}
	delete(r.index, address)
	r.devices = slices.DeleteFunc(r.devices, func(d *Device) bool {
		return d.Address == address
	})
	return true
}

// CompareAddresses orders IPv4 addresses numerically; anything unparsable sorts after, by text
func CompareAddresses(a, b string) int {
	ipA, errA := netip.ParseAddr(a)
	ipB, errB := netip.ParseAddr(b)

	switch {
	case errA == nil && errB == nil:
		return ipA.Compare(ipB)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// SortDevices orders devices by address using CompareAddresses
func SortDevices(devices []*Device) {
	slices.SortFunc(devices, func(a, b *Device) int {
		return CompareAddresses(a.Address, b.Address)
	})
}
