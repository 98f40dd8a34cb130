// Package logging provides structured logging for tasfleet.
//
// This package wraps a global zap logger with convenience functions. The CLI is
// silent by default: nothing is logged unless a level is passed to Initialize or
// set through the TASFLEET_LOG_LEVEL environment variable.
//
// # Log Levels
//
//   - Debug: every device HTTP request, non-matching probes, registry load/save
//   - Info: devices found during a scan
//   - Warn: per-device operation failures, ignored registry files
//   - Error: unexpected failures (recovered panics)
//
// # Structured Logging
//
//	logging.Info("Found device",
//	    zap.String("address", "192.168.1.20"),
//	    zap.String("firmware", "13.1.0(tasmota)"),
//	)
//
// # Domain Helpers
//
//	logging.LogProbe(address, matched, firmware, err)
//	logging.LogHTTPExchange(address, "GET", "/dl", 200, elapsed, nil)
//	logging.LogDeviceResult("backup", address, ok, err)
package logging
