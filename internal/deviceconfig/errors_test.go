package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

// timeoutError implements net.Error with Timeout() == true
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func dialError(inner error) error {
	return &url.Error{
		Op:  "Get",
		URL: "http://192.168.4.16/cm",
		Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: inner,
		},
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		subtype NetworkErrorSubtype
		message string
	}{
		{"timeout", dialError(&timeoutError{}), NetworkErrorTimeout, "Request timed out"},
		{"connection refused", dialError(syscall.ECONNREFUSED), NetworkErrorConnectionRefused, "Device refused connection"},
		{"wrapped syscall error", dialError(&net.AddrError{Err: "bad", Addr: "x"}), NetworkErrorGeneral, "Network error occurred"},
		{"host unreachable", dialError(syscall.EHOSTUNREACH), NetworkErrorHostUnreachable, "Host unreachable"},
		{"network unreachable", dialError(syscall.ENETUNREACH), NetworkErrorNetworkUnreachable, "Network unreachable"},
		{"dns", &url.Error{Op: "Get", URL: "http://plug.lan", Err: &net.DNSError{Err: "no such host", Name: "plug.lan"}}, NetworkErrorDNS, "DNS resolution failed"},
		{"generic", errors.New("connection reset"), NetworkErrorGeneral, "Network error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := ClassifyNetworkError(tt.err, "192.168.4.16")
			if devErr == nil {
				t.Fatal("Expected DeviceError, got nil")
			}
			if devErr.Kind != KindUnreachable {
				t.Errorf("Expected kind %v, got %v", KindUnreachable, devErr.Kind)
			}
			if devErr.NetworkSubtype != tt.subtype {
				t.Errorf("Expected network subtype %v, got %v", tt.subtype, devErr.NetworkSubtype)
			}
			if devErr.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, devErr.Message)
			}
			if devErr.Address != "192.168.4.16" {
				t.Errorf("Expected address to be preserved, got %q", devErr.Address)
			}
			if !errors.Is(devErr, tt.err) {
				t.Error("Expected underlying error to be unwrappable")
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if devErr := ClassifyNetworkError(nil, "192.168.4.16"); devErr != nil {
		t.Errorf("Expected nil for nil error, got %v", devErr)
	}
}

func TestDeviceError_Error(t *testing.T) {
	err := &DeviceError{
		Kind:    KindBackupFailed,
		Message: "download request failed",
		Err:     errors.New("EOF"),
		Address: "10.0.0.7",
	}

	want := "Backup Failed [10.0.0.7]: download request failed (caused by: EOF)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &DeviceError{Kind: KindNoConfigToRestore, Message: "nothing stored"}
	if got := bare.Error(); got != "No Config To Restore: nothing stored" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDeviceError_Is(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{KindUnreachable, ErrUnreachable},
		{KindBackupFailed, ErrBackupFailed},
		{KindRestoreFailed, ErrRestoreFailed},
		{KindNoConfigToRestore, ErrNoConfigToRestore},
	}

	all := []error{ErrUnreachable, ErrBackupFailed, ErrRestoreFailed, ErrNoConfigToRestore}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("fleet task: %w", &DeviceError{Kind: tt.kind, Message: "x"})
			for _, sentinel := range all {
				got := errors.Is(err, sentinel)
				if got != (sentinel == tt.want) {
					t.Errorf("errors.Is(%v, %v) = %v", tt.kind, sentinel, got)
				}
			}
		})
	}
}

func TestKindHelpers(t *testing.T) {
	unreachable := ClassifyNetworkError(dialError(&timeoutError{}), "10.0.0.1")
	if !IsUnreachable(unreachable) || !IsTimeout(unreachable) {
		t.Error("Expected timeout to be unreachable and a timeout")
	}
	if IsBackupFailed(unreachable) || IsRestoreFailed(unreachable) || IsNoConfig(unreachable) {
		t.Error("Expected unreachable error to match only its own kind")
	}

	noConfig := NewNoConfigError("10.0.0.1")
	if !IsNoConfig(noConfig) || IsTimeout(noConfig) {
		t.Error("Expected no-config error to match IsNoConfig only")
	}

	restore := NewRestoreError("10.0.0.1", "invalid backup encoding", errors.New("illegal base64 data"))
	if !IsRestoreFailed(restore) {
		t.Error("Expected restore error to match IsRestoreFailed")
	}

	if IsTimeout(errors.New("plain")) {
		t.Error("Expected plain error not to be a timeout")
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "boom"},
		{"timeout", ClassifyNetworkError(dialError(&timeoutError{}), "a"), "Device not responding (timeout)"},
		{"refused", ClassifyNetworkError(dialError(syscall.ECONNREFUSED), "a"), "Device refused connection"},
		{"status", newStatusError(KindBackupFailed, "GET /dl", "a", 404), "Backup Failed (HTTP 404)"},
		{"no config", NewNoConfigError("a"), "No backup stored - run backup first"},
		{"upload rejected", &DeviceError{Kind: KindRestoreFailed, Message: "upload not accepted: Upload failed"}, "Restore Failed: upload not accepted: Upload failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetShortErrorMessage(tt.err); got != tt.want {
				t.Errorf("GetShortErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	if hints := GetTroubleshootingHint(errors.New("plain")); hints != nil {
		t.Errorf("Expected no hints for plain error, got %v", hints)
	}

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"timeout", ClassifyNetworkError(dialError(&timeoutError{}), "10.0.0.1"), "--timeout"},
		{"refused", ClassifyNetworkError(dialError(syscall.ECONNREFUSED), "10.0.0.1"), "port"},
		{"unreachable", ClassifyNetworkError(dialError(syscall.EHOSTUNREACH), "10.0.0.1"), "ping 10.0.0.1"},
		{"no config", NewNoConfigError("10.0.0.1"), "tasfleet backup"},
		{"upload rejected", &DeviceError{Kind: KindRestoreFailed, Message: "upload not accepted"}, "upload mode"},
		{"server error", newStatusError(KindUnreachable, "GET /cm", "10.0.0.1", 500), "rebooting"},
		{"password", newStatusError(KindUnreachable, "GET /cm", "10.0.0.1", 401), "WebPassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := GetTroubleshootingHint(tt.err)
			if len(hints) == 0 {
				t.Fatal("Expected at least one hint")
			}
			if !strings.Contains(strings.Join(hints, "\n"), tt.contains) {
				t.Errorf("Expected hints to mention %q, got %v", tt.contains, hints)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", newStatusError(KindBackupFailed, "GET /dl", "a", 503), true},
		{"not found", newStatusError(KindBackupFailed, "GET /dl", "a", 404), false},
		{"timeout", newTransportError(KindBackupFailed, "GET /dl", "a", "x", dialError(&timeoutError{})), true},
		{"dns", newTransportError(KindBackupFailed, "GET /dl", "a", "x", &net.DNSError{Err: "no such host"}), false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
