package fleet

import (
	"context"
	"encoding/base64"

	"github.com/muurk/tasfleet/internal/deviceconfig"
	"github.com/muurk/tasfleet/internal/logging"
	"github.com/muurk/tasfleet/internal/registry"
)

// DeviceAPI is the subset of the device client the fleet operations use.
// *deviceconfig.Client satisfies it.
type DeviceAPI interface {
	SendCommand(ctx context.Context, address, command string) (*deviceconfig.Response, error)
	DownloadConfig(ctx context.Context, address string) ([]byte, error)
	UploadConfig(ctx context.Context, address string, config []byte) error
}

// Command sends a console command to each device. A result is OK when the
// device returned a JSON reply.
func Command(client DeviceAPI, command string) Operation {
	return func(ctx context.Context, d *registry.Device) Result {
		resp, err := client.SendCommand(ctx, d.Address, command)
		ok := err == nil && resp != nil
		logging.LogDeviceResult("command", d.Address, ok, err)
		return Result{Address: d.Address, OK: ok, Response: resp, Err: err}
	}
}

// Backup downloads each device's configuration and stores it base64-encoded
// under the config key. On failure the device data is left untouched.
//
// Backup mutates d.Data. Each device is handled by exactly one task, so no
// locking is needed as long as callers do not share devices across runs.
func Backup(client DeviceAPI) Operation {
	return func(ctx context.Context, d *registry.Device) Result {
		config, err := client.DownloadConfig(ctx, d.Address)
		if err != nil {
			logging.LogDeviceResult("backup", d.Address, false, err)
			return Result{Address: d.Address, Err: err}
		}

		d.SetConfig(base64.StdEncoding.EncodeToString(config))
		logging.LogDeviceResult("backup", d.Address, true, nil)
		return Result{Address: d.Address, OK: true}
	}
}

// Restore uploads each device's stored configuration. Devices without a
// stored backup, or with one that does not decode, fail without any network
// call. Device data is never modified.
func Restore(client DeviceAPI) Operation {
	return func(ctx context.Context, d *registry.Device) Result {
		result := restore(ctx, client, d)
		logging.LogDeviceResult("restore", d.Address, result.OK, result.Err)
		return result
	}
}

func restore(ctx context.Context, client DeviceAPI, d *registry.Device) Result {
	if !d.HasConfig() {
		return Result{Address: d.Address, Err: deviceconfig.NewNoConfigError(d.Address)}
	}

	encoded, _ := d.Config()
	config, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Result{
			Address: d.Address,
			Err:     deviceconfig.NewRestoreError(d.Address, "stored backup is not valid base64", err),
		}
	}

	if err := client.UploadConfig(ctx, d.Address, config); err != nil {
		return Result{Address: d.Address, Err: err}
	}
	return Result{Address: d.Address, OK: true}
}
