// Package deviceconfig provides an HTTP client for the Tasmota device API.
//
// Tasmota devices expose a small, fixed HTTP surface that tasfleet uses for
// discovery, backup, and restore:
//
//	GET  /cm?cmnd=<command>   run a console command, JSON reply
//	GET  /dl                  download the binary configuration dump
//	GET  /rs?                 put the device into configuration upload mode
//	POST /u2                  upload a dump as multipart field "u2"
//
// The Client is stateless: every method takes the device address, so one
// Client is shared by all concurrent probes and fleet tasks. Each call runs
// under its own timeout (5 seconds by default; uploads get longer).
//
// # Usage Example
//
//	client := deviceconfig.NewClient()
//
//	resp, err := client.SendCommand(ctx, "192.168.1.20", "Status 2")
//	if err != nil {
//	    // treat as unreachable
//	}
//	version, ok := resp.FirmwareVersion()
//
//	dump, err := client.DownloadConfig(ctx, "192.168.1.20")
//	if err != nil {
//	    log.Printf("backup failed: %s", deviceconfig.GetShortErrorMessage(err))
//	}
//
//	if err := client.UploadConfig(ctx, "192.168.1.20", dump); err != nil {
//	    log.Printf("restore failed: %v", err)
//	}
//
// # Errors
//
// Every failure is a *DeviceError whose Kind is one of Unreachable,
// BackupFailed, RestoreFailed, or NoConfigToRestore. The kinds match the
// sentinels ErrUnreachable, ErrBackupFailed, ErrRestoreFailed, and
// ErrNoConfigToRestore through errors.Is. Transport failures also carry a
// NetworkSubtype (timeout, connection refused, DNS, unreachable).
//
// # Reading Replies
//
// Replies are kept as untyped JSON. Response.Lookup walks nested keys and
// reports absence instead of failing, so a probe can ask for
// StatusFWR.Version without caring whether the reply has that shape.
package deviceconfig
