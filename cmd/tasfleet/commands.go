package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/tasfleet/internal/config"
	"github.com/muurk/tasfleet/internal/deviceconfig"
	"github.com/muurk/tasfleet/internal/discovery"
	"github.com/muurk/tasfleet/internal/fleet"
	"github.com/muurk/tasfleet/internal/registry"
	"github.com/muurk/tasfleet/internal/ui"
)

// Command flags
var (
	scanMDNS        bool
	scanConcurrency int
	scanMarker      string
	backupRetries   int
	restoreYes      bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(cmdCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

// newClient builds the device client from the resolved settings
func newClient(s *config.Settings) *deviceconfig.Client {
	client := deviceconfig.NewClient()
	client.Port = s.Port
	client.SetTimeout(s.Timeout)
	client.UploadTimeout = s.UploadTimeout
	client.SetRetry(s.DownloadRetries, deviceconfig.DefaultRetryDelay)
	return client
}

func newOrchestrator(s *config.Settings) *fleet.Orchestrator {
	o := fleet.NewOrchestrator()
	o.Concurrency = s.FleetConcurrency
	return o
}

// loadDevices loads the registry and fails when it holds no devices
func loadDevices(s *config.Settings) (*registry.Registry, error) {
	reg := registry.Load(s.Registry)
	if reg.Len() == 0 {
		return nil, fmt.Errorf("no devices in %s; run 'tasfleet scan <cidr>' first", s.Registry)
	}
	return reg, nil
}

// runFleet runs op over every device with a progress bar on a terminal
func runFleet(cmd *cobra.Command, label string, devices []*registry.Device, op fleet.Operation) ([]fleet.Result, error) {
	orchestrator := newOrchestrator(settings)

	var results []fleet.Result
	err := ui.RunWithProgress(os.Stdout, label, len(devices), func(tick func(bool)) {
		orchestrator.OnResult = func(r fleet.Result) { tick(r.OK) }
		results = orchestrator.RunAll(cmd.Context(), devices, op)
	})
	return results, err
}

// printOutcomes prints one line per device, hints for each distinct failure
// kind, and the summary box
func printOutcomes(printer *ui.Printer, title string, results []fleet.Result) {
	hinted := make(map[string]bool)
	var hints []string

	for _, r := range results {
		if r.OK {
			printer.PrintDevice(r.Address, true, "")
			continue
		}
		short := deviceconfig.GetShortErrorMessage(r.Err)
		printer.PrintDevice(r.Address, false, short)
		if !hinted[short] {
			hinted[short] = true
			hints = append(hints, deviceconfig.GetTroubleshootingHint(r.Err)...)
		}
	}

	printer.Println("")
	printer.PrintSummary(title, fleet.Succeeded(results), len(results))
	if len(hints) > 0 {
		printer.Println(ui.RenderError("Troubleshooting", nil, hints))
	}
}

var scanCmd = &cobra.Command{
	Use:   "scan [cidr]",
	Short: "Scan an address range for Tasmota devices",
	Long: `Probe every address of an IPv4 range with a "Status 2" query and add the
devices whose firmware version contains the marker (default "tasmota") to
the registry. Devices already in the registry keep their stored data.

With --mdns, hosts advertising an HTTP service over mDNS are probed as well;
the range argument is then optional.`,
	Example: `  # Scan a /24
  tasfleet scan 192.168.1.0/24

  # Gentler scan on a busy network
  tasfleet scan 10.0.0.0/22 --scan-concurrency 32 --timeout 2s

  # Only probe hosts found via mDNS
  tasfleet scan --mdns`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanMDNS, "mdns", false, "Also probe hosts advertising _http._tcp over mDNS")
	scanCmd.Flags().IntVar(&scanConcurrency, "scan-concurrency", config.Default().ScanConcurrency, "Probes in flight")
	scanCmd.Flags().StringVar(&scanMarker, "marker", config.Default().FirmwareMarker, "Firmware version substring to match (case-sensitive)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !scanMDNS {
		return errors.New("an address range (e.g., 192.168.1.0/24) or --mdns is required")
	}
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	printer := ui.NewPrinter(os.Stdout)
	reg := registry.Load(settings.Registry)

	scanner := discovery.NewScanner(newClient(settings))
	scanner.Concurrency = settings.ScanConcurrency
	scanner.Marker = settings.FirmwareMarker

	var found []*registry.Device

	if len(args) == 1 {
		prefix, err := discovery.ParseRange(args[0])
		if err != nil {
			printer.PrintError("Invalid range", err, []string{"Use an IPv4 CIDR block such as 192.168.1.0/24"})
			return err
		}

		size := discovery.RangeSize(prefix)
		printer.PrintHeader("Scan",
			ui.Param{Key: "Range", Value: prefix.String()},
			ui.Param{Key: "Addresses", Value: strconv.FormatUint(size, 10)},
			ui.Param{Key: "Concurrency", Value: strconv.Itoa(scanner.Concurrency)},
		)

		var scanErr error
		err = ui.RunWithProgress(os.Stdout, "Probing "+prefix.String(), int(size), func(tick func(bool)) {
			scanner.OnProbe = func(string, bool) { tick(true) }
			found, scanErr = scanner.Scan(ctx, prefix.String())
		})
		scanner.OnProbe = nil
		if err := errors.Join(scanErr, err); err != nil {
			return err
		}
	}

	if scanMDNS {
		browser := discovery.NewMDNSBrowser(scanner)
		browser.Timeout = settings.MDNSTimeout

		advertised, err := browser.Discover(ctx)
		if err != nil {
			printer.PrintError("mDNS browse failed", err, []string{"Multicast may be blocked; scan a range instead"})
		}
		found = append(found, advertised...)
	}

	found = uniqueDevices(found)
	newCount := 0
	for _, d := range found {
		detail := "already registered"
		if reg.Add(d) {
			detail = "new"
			newCount++
		}
		printer.PrintDevice(d.Address, true, detail)
	}

	if err := reg.Save(settings.Registry); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}

	printer.Printf("\nFound %d device(s), %d new; %d in %s\n", len(found), newCount, reg.Len(), settings.Registry)
	if ctx.Err() != nil {
		printer.Println("Scan interrupted; results so far were saved.")
	}
	return nil
}

// uniqueDevices drops repeated addresses, keeping the first and address order
func uniqueDevices(devices []*registry.Device) []*registry.Device {
	registry.SortDevices(devices)
	return slices.CompactFunc(devices, (*registry.Device).Equal)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.Load(settings.Registry)
		printer := ui.NewPrinter(os.Stdout)

		if reg.Len() == 0 {
			printer.Printf("No devices in %s\n", settings.Registry)
			return nil
		}

		for _, d := range reg.Devices() {
			detail := "no backup"
			if d.HasConfig() {
				detail = "backup stored"
			}
			printer.PrintDevice(d.Address, true, detail)
		}
		printer.Printf("\n%d device(s) in %s\n", reg.Len(), settings.Registry)
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:     "forget <address>...",
	Short:   "Remove devices from the registry",
	Example: `  tasfleet forget 192.168.1.23 192.168.1.24`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg := registry.Load(settings.Registry)
		printer := ui.NewPrinter(os.Stdout)

		for _, address := range args {
			if reg.Remove(address) {
				printer.PrintDevice(address, true, "removed")
			} else {
				printer.PrintDevice(address, false, "not registered")
			}
		}

		if err := reg.Save(settings.Registry); err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}
		return nil
	},
}

var cmdCmd = &cobra.Command{
	Use:   "cmd <command>...",
	Short: "Send a console command to every device",
	Long: `Send one Tasmota console command to every registered device and print each
reply as "address: reply" in registry order. Devices that do not answer
with JSON print "null".`,
	Example: `  tasfleet cmd Power ON
  tasfleet cmd "Backlog Power1 ON; Delay 50; Power1 OFF"
  tasfleet cmd Status 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := loadDevices(settings)
		if err != nil {
			return err
		}

		command := strings.Join(args, " ")
		results := newOrchestrator(settings).RunAll(cmd.Context(), reg.Devices(), fleet.Command(newClient(settings), command))
		printReplies(ui.NewPrinter(os.Stdout), results)
		return nil
	},
}

// printReplies prints "address: reply" lines in result order
func printReplies(printer *ui.Printer, results []fleet.Result) {
	for _, r := range results {
		printer.PrintReply(r.Address, r.Response.String())
	}
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Download and store every device's configuration",
	Long: `Download the configuration dump of every registered device and store it,
base64-encoded, in the registry. A device whose download fails keeps its
previous backup. The registry is saved after the run.`,
	Example: `  tasfleet backup
  tasfleet backup --retries 2 --timeout 10s`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().IntVar(&backupRetries, "retries", config.Default().DownloadRetries, "Extra download attempts after a timeout or server error")
}

func runBackup(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	reg, err := loadDevices(settings)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Backup",
		ui.Param{Key: "Devices", Value: strconv.Itoa(reg.Len())},
		ui.Param{Key: "Registry", Value: settings.Registry},
	)

	results, err := runFleet(cmd, "Backing up", reg.Devices(), fleet.Backup(newClient(settings)))
	if err != nil {
		return err
	}

	if err := reg.Save(settings.Registry); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}

	printOutcomes(printer, "Backup", results)
	return nil
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Upload every device's stored configuration",
	Long: `Upload each device's stored backup. The device is first put into upload
mode, then the dump is posted; the restore counts only when the device
reports success. Devices without a backup are skipped with an error.

A failed upload is not rolled back. Asks for confirmation unless --yes
is given.`,
	Example: `  tasfleet restore
  tasfleet restore --yes`,
	Args: cobra.NoArgs,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runRestore(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	reg, err := loadDevices(settings)
	if err != nil {
		return err
	}

	if !restoreYes {
		if !ui.IsTerminal(os.Stdin) {
			return errors.New("restore needs --yes when stdin is not a terminal")
		}
		if !ui.RestoreConfirmation(os.Stdin, os.Stdout, reg.Len()) {
			return nil
		}
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Restore",
		ui.Param{Key: "Devices", Value: strconv.Itoa(reg.Len())},
		ui.Param{Key: "Registry", Value: settings.Registry},
	)

	results, err := runFleet(cmd, "Restoring", reg.Devices(), fleet.Restore(newClient(settings)))
	if err != nil {
		return err
	}

	printOutcomes(printer, "Restore", results)
	return nil
}
