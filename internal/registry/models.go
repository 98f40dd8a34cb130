package registry

import "maps"

// ConfigKey is the Data key holding the base64-encoded configuration backup
const ConfigKey = "config"

// Data is the stored per-device mapping persisted in the registry file.
// Keys other than ConfigKey are kept as-is so a save does not drop them.
type Data map[string]any

// Device is one managed Tasmota device, identified by its IPv4 address.
type Device struct {
	// Address is the canonical textual IPv4 address (e.g., "192.168.1.20")
	Address string

	// Data is the stored device data (empty until a backup completes)
	Data Data
}

// NewDevice creates a device with empty data
func NewDevice(address string) *Device {
	return &Device{
		Address: address,
		Data:    make(Data),
	}
}

// Equal reports whether two devices have the same address.
// Data does not take part in identity.
func (d *Device) Equal(other *Device) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Address == other.Address
}

// String returns the device address
func (d *Device) String() string {
	return d.Address
}

// Config returns the stored base64 configuration, if the key is present and a string
func (d *Device) Config() (string, bool) {
	if d.Data == nil {
		return "", false
	}
	v, ok := d.Data[ConfigKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// HasConfig reports whether a non-empty configuration backup is stored
func (d *Device) HasConfig() bool {
	cfg, ok := d.Config()
	return ok && cfg != ""
}

// SetConfig stores a base64-encoded configuration backup
func (d *Device) SetConfig(encoded string) {
	if d.Data == nil {
		d.Data = make(Data)
	}
	d.Data[ConfigKey] = encoded
}

// Clone returns a copy of the device with a shallow copy of its data
func (d *Device) Clone() *Device {
	data := make(Data, len(d.Data))
	maps.Copy(data, d.Data)
	return &Device{Address: d.Address, Data: data}
}
