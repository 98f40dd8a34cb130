package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/tasfleet/internal/config"
	"github.com/muurk/tasfleet/internal/logging"
)

var settingsForce bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the settings file",
	// Settings commands must work even when the file is broken
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a settings file holding the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		path, err := resolveSettingsPath()
		if err != nil {
			return err
		}

		if err := config.WriteDefault(path, settingsForce); err != nil {
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%w (use --force to overwrite)", err)
			}
			return err
		}

		fmt.Printf("Wrote default settings to %s\n", path)
		return nil
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Long: `Print the settings after applying the settings file, TASFLEET_*
environment variables, and any global flags given on this command line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := loadSettings(cmd, args); err != nil {
			return err
		}

		path, err := resolveSettingsPath()
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}

		fmt.Printf("# %s\n%s", path, data)
		return nil
	},
}

func init() {
	settingsInitCmd.Flags().BoolVar(&settingsForce, "force", false, "Overwrite an existing settings file")

	settingsCmd.AddCommand(settingsInitCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	rootCmd.AddCommand(settingsCmd)
}

func resolveSettingsPath() (string, error) {
	if settingsPath != "" {
		return settingsPath, nil
	}
	return config.GetConfigPath()
}
