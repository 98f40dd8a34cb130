package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Kind is the category of a device operation failure
type Kind int

const (
	// KindUnreachable covers transport failures, timeouts, and unusable responses
	KindUnreachable Kind = iota
	// KindBackupFailed indicates the configuration download failed
	KindBackupFailed
	// KindRestoreFailed indicates the reset or upload step failed
	KindRestoreFailed
	// KindNoConfigToRestore indicates a restore was attempted without a stored backup
	KindNoConfigToRestore
)

// Sentinel errors for errors.Is checks against a DeviceError's kind
var (
	ErrUnreachable       = errors.New("device unreachable")
	ErrBackupFailed      = errors.New("backup failed")
	ErrRestoreFailed     = errors.New("restore failed")
	ErrNoConfigToRestore = errors.New("no config to restore")
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorNone NetworkErrorSubtype = iota
	NetworkErrorGeneral
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "Unreachable"
	case KindBackupFailed:
		return "Backup Failed"
	case KindRestoreFailed:
		return "Restore Failed"
	case KindNoConfigToRestore:
		return "No Config To Restore"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnreachable:
		return ErrUnreachable
	case KindBackupFailed:
		return ErrBackupFailed
	case KindRestoreFailed:
		return ErrRestoreFailed
	case KindNoConfigToRestore:
		return ErrNoConfigToRestore
	default:
		return nil
	}
}

// DeviceError represents a failed call against one device
type DeviceError struct {
	Kind           Kind                // Category of error
	Op             string              // Device API call (e.g., "GET /dl")
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (if applicable)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // Transport failure detail (if any)
	Address        string              // Device address (for context)
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Address != "" {
		b.WriteString(" [")
		b.WriteString(e.Address)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the error's kind
func (e *DeviceError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// classifyNetworkError returns the transport failure subtype of err
func classifyNetworkError(err error) NetworkErrorSubtype {
	if err == nil {
		return NetworkErrorNone
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return NetworkErrorTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NetworkErrorDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return NetworkErrorConnectionRefused
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return NetworkErrorHostUnreachable
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return NetworkErrorNetworkUnreachable
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return classifyNetworkError(urlErr.Err)
	}

	return NetworkErrorGeneral
}

// ClassifyNetworkError wraps a transport error as an unreachable DeviceError
func ClassifyNetworkError(err error, address string) *DeviceError {
	if err == nil {
		return nil
	}

	subtype := classifyNetworkError(err)
	message := "Network error occurred"
	switch subtype {
	case NetworkErrorTimeout:
		message = "Request timed out"
	case NetworkErrorDNS:
		message = "DNS resolution failed"
	case NetworkErrorConnectionRefused:
		message = "Device refused connection"
	case NetworkErrorHostUnreachable:
		message = "Host unreachable"
	case NetworkErrorNetworkUnreachable:
		message = "Network unreachable"
	}

	return &DeviceError{
		Kind:           KindUnreachable,
		Message:        message,
		Err:            err,
		NetworkSubtype: subtype,
		Address:        address,
	}
}

// newTransportError builds an error of the given kind from a failed HTTP call
func newTransportError(kind Kind, op, address, message string, err error) *DeviceError {
	return &DeviceError{
		Kind:           kind,
		Op:             op,
		Message:        message,
		Err:            err,
		NetworkSubtype: classifyNetworkError(err),
		Address:        address,
	}
}

// newStatusError builds an error of the given kind from an unexpected HTTP status
func newStatusError(kind Kind, op, address string, statusCode int) *DeviceError {
	return &DeviceError{
		Kind:       kind,
		Op:         op,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
		Address:    address,
	}
}

// NewNoConfigError reports a restore attempted without a stored backup
func NewNoConfigError(address string) *DeviceError {
	return &DeviceError{
		Kind:    KindNoConfigToRestore,
		Message: "no configuration backup stored for device",
		Address: address,
	}
}

// NewRestoreError reports a restore failure that is not tied to an HTTP call
func NewRestoreError(address, message string, err error) *DeviceError {
	return &DeviceError{
		Kind:    KindRestoreFailed,
		Message: message,
		Err:     err,
		Address: address,
	}
}

// IsUnreachable checks if an error means the device did not answer usefully
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// IsBackupFailed checks if an error is a configuration download failure
func IsBackupFailed(err error) bool {
	return errors.Is(err, ErrBackupFailed)
}

// IsRestoreFailed checks if an error is a reset or upload failure
func IsRestoreFailed(err error) bool {
	return errors.Is(err, ErrRestoreFailed)
}

// IsNoConfig checks if an error is a restore without a stored backup
func IsNoConfig(err error) bool {
	return errors.Is(err, ErrNoConfigToRestore)
}

// IsTimeout checks if an error was caused by a request timeout
func IsTimeout(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.NetworkSubtype == NetworkErrorTimeout
	}
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) []string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return nil
	}

	switch devErr.Kind {
	case KindNoConfigToRestore:
		return []string{
			"Run 'tasfleet backup' while the device is healthy",
			"Check that the registry file is the one the backup was saved to",
		}
	case KindRestoreFailed:
		if devErr.StatusCode == 0 && devErr.NetworkSubtype == NetworkErrorNone {
			return []string{
				"The device did not accept the configuration upload",
				"Check that the backup came from the same firmware family",
				"The device may be left in upload mode; power-cycle it if it stops responding",
			}
		}
	}

	switch devErr.NetworkSubtype {
	case NetworkErrorTimeout:
		return []string{
			"Check that the device is powered on",
			"Try increasing --timeout",
			"Weak WiFi signal can make devices slow to answer",
		}
	case NetworkErrorConnectionRefused:
		return []string{
			"The device's web server may be disabled (WebServer 0)",
			"Verify the port number (default is 80)",
		}
	case NetworkErrorHostUnreachable, NetworkErrorNetworkUnreachable:
		return []string{
			"Verify the device address is correct",
			"Check that you're on the same network as the device",
			"Try pinging the device: ping " + devErr.Address,
		}
	case NetworkErrorDNS:
		return []string{"Use the IP address instead of a hostname"}
	}

	if devErr.StatusCode >= 500 {
		return []string{"The device returned a server error; try rebooting it"}
	}
	if devErr.StatusCode == 401 || devErr.StatusCode == 403 {
		return []string{"The device web interface is password protected; clear WebPassword to manage it"}
	}

	return nil
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.NetworkSubtype {
	case NetworkErrorTimeout:
		return "Device not responding (timeout)"
	case NetworkErrorConnectionRefused:
		return "Device refused connection"
	case NetworkErrorDNS:
		return "Cannot resolve device hostname"
	case NetworkErrorHostUnreachable:
		return "Device unreachable - check network connection"
	case NetworkErrorNetworkUnreachable:
		return "Network unreachable"
	case NetworkErrorGeneral:
		return "Network error - check connection"
	}

	if devErr.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d)", devErr.Kind, devErr.StatusCode)
	}

	switch devErr.Kind {
	case KindNoConfigToRestore:
		return "No backup stored - run backup first"
	default:
		return devErr.Kind.String() + ": " + devErr.Message
	}
}
