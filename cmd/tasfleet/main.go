// Tasfleet manages a fleet of Tasmota smart plugs over their HTTP API.
//
// It finds devices by probing an address range, keeps them in a JSON
// registry, and runs console commands, configuration backups, and restores
// against every registered device at once.
//
// Usage:
//
//	tasfleet [command] [flags]
//
// See 'tasfleet --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/tasfleet/internal/config"
	"github.com/muurk/tasfleet/internal/logging"
	"github.com/muurk/tasfleet/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	settingsPath string
	registryPath string
	port         int
	timeout      time.Duration
	concurrency  int
	logLevel     string
)

// settings is resolved once per invocation by loadSettings
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "tasfleet",
	Short: "Tasmota fleet manager",
	Long: `Manage many Tasmota devices at once.

tasfleet scans a network for devices running Tasmota firmware, remembers
them in a registry file, and sends console commands, configuration
backups, and configuration restores to all of them concurrently.

Defaults come from the settings file (see 'tasfleet settings show');
flags override them.`,
	Version:           version.Get().Version,
	PersistentPreRunE: loadSettings,
	SilenceErrors:     true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	defaults := config.Default()
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (default: OS config dir)")
	rootCmd.PersistentFlags().StringVarP(&registryPath, "registry", "r", defaults.Registry, "Device registry file")
	rootCmd.PersistentFlags().IntVar(&port, "port", defaults.Port, "Device HTTP port")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaults.Timeout, "Per-request timeout (e.g., 2s, 500ms)")
	rootCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "c", defaults.FleetConcurrency, "Devices handled at once")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(versionCmd)
}

// loadSettings resolves settings (file, environment, then flags) and
// starts logging
func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.Load(settingsPath)
	if err != nil {
		return err
	}

	// Validate the merged result, flags included
	applyFlags(cmd, s)
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := logging.Initialize(s.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	settings = s
	return nil
}

// applyFlags copies explicitly set flags over the loaded settings
func applyFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()

	if flags.Changed("registry") {
		s.Registry = registryPath
	}
	if flags.Changed("port") {
		s.Port = port
	}
	if flags.Changed("timeout") {
		s.Timeout = timeout
	}
	if flags.Changed("concurrency") {
		s.FleetConcurrency = concurrency
	}
	if flags.Changed("log-level") {
		s.LogLevel = logLevel
	}
	if flags.Changed("scan-concurrency") {
		s.ScanConcurrency = scanConcurrency
	}
	if flags.Changed("marker") {
		s.FirmwareMarker = scanMarker
	}
	if flags.Changed("retries") {
		s.DownloadRetries = backupRetries
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get())
	},
}
