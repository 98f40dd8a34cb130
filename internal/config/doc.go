// Package config manages tasfleet's YAML settings file.
//
// Settings are resolved in this order, later sources winning:
//  1. built-in defaults (Default)
//  2. the settings file
//  3. TASFLEET_* environment variables
//  4. command-line flags (applied by the CLI)
//
// # Settings File Location
//
//   - Linux: $XDG_CONFIG_HOME/tasfleet/config.yaml or $HOME/.config/tasfleet/config.yaml
//   - macOS: $HOME/.config/tasfleet/config.yaml
//   - Windows: %LOCALAPPDATA%\tasfleet\config.yaml
//
// A missing file is not an error. Durations are written the way
// time.ParseDuration reads them ("5s", "1m30s").
//
// The device registry itself is not kept here; see package registry.
package config
