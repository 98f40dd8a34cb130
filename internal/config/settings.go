package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/muurk/tasfleet/internal/registry"
)

// CurrentVersion is the settings file format version
const CurrentVersion = 1

// Settings holds the operator's defaults for every tasfleet command.
// Command-line flags override these values.
type Settings struct {
	Version          int           `yaml:"version"`
	Registry         string        `yaml:"registry"`          // Device registry file
	Port             int           `yaml:"port"`              // Device HTTP port
	Timeout          time.Duration `yaml:"timeout"`           // Per-request timeout
	UploadTimeout    time.Duration `yaml:"upload_timeout"`    // Config upload timeout
	DownloadRetries  int           `yaml:"download_retries"`  // Extra config download attempts
	ScanConcurrency  int           `yaml:"scan_concurrency"`  // Probes in flight during a scan
	FleetConcurrency int           `yaml:"fleet_concurrency"` // Devices in flight during fleet commands
	FirmwareMarker   string        `yaml:"firmware_marker"`   // Firmware version substring to match
	MDNSTimeout      time.Duration `yaml:"mdns_timeout"`      // mDNS listen window
	LogLevel         string        `yaml:"log_level,omitempty"`
}

// Default returns the built-in settings
func Default() *Settings {
	return &Settings{
		Version:          CurrentVersion,
		Registry:         registry.DefaultPath,
		Port:             80,
		Timeout:          5 * time.Second,
		UploadTimeout:    15 * time.Second,
		DownloadRetries:  0,
		ScanConcurrency:  256,
		FleetConcurrency: 64,
		FirmwareMarker:   "tasmota",
		MDNSTimeout:      5 * time.Second,
	}
}

// Validate reports every invalid field at once
func (s *Settings) Validate() error {
	var errs []error

	if s.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported settings version: %d (expected %d)", s.Version, CurrentVersion))
	}
	if s.Registry == "" {
		errs = append(errs, errors.New("registry path must not be empty"))
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", s.Port))
	}
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", s.Timeout))
	}
	if s.UploadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upload_timeout must be positive, got %s", s.UploadTimeout))
	}
	if s.DownloadRetries < 0 {
		errs = append(errs, fmt.Errorf("download_retries must not be negative, got %d", s.DownloadRetries))
	}
	if s.ScanConcurrency < 1 {
		errs = append(errs, fmt.Errorf("scan_concurrency must be at least 1, got %d", s.ScanConcurrency))
	}
	if s.FleetConcurrency < 1 {
		errs = append(errs, fmt.Errorf("fleet_concurrency must be at least 1, got %d", s.FleetConcurrency))
	}
	if s.FirmwareMarker == "" {
		errs = append(errs, errors.New("firmware_marker must not be empty"))
	}
	if s.MDNSTimeout <= 0 {
		errs = append(errs, fmt.Errorf("mdns_timeout must be positive, got %s", s.MDNSTimeout))
	}

	return errors.Join(errs...)
}
