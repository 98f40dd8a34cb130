package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/tasfleet/internal/deviceconfig"
	"github.com/muurk/tasfleet/internal/fleet"
	"github.com/muurk/tasfleet/internal/registry"
)

func TestRunREPL(t *testing.T) {
	in := strings.NewReader("Power ON\n\n   \nStatus 0\nexit\nPower OFF\n")
	var out bytes.Buffer
	var dispatched []string

	err := runREPL(context.Background(), in, &out, func(ctx context.Context, command string) []fleet.Result {
		dispatched = append(dispatched, command)
		resp, err := deviceconfig.ParseResponse([]byte(`{"POWER":"ON"}`))
		require.NoError(t, err)
		return []fleet.Result{
			{Address: "10.0.0.1", OK: true, Response: resp},
			{Address: "10.0.0.2"},
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Power ON", "Status 0"}, dispatched)
	assert.Contains(t, out.String(), "10.0.0.1: {\"POWER\":\"ON\"}\n10.0.0.2: null\n")
	assert.True(t, strings.HasPrefix(out.String(), replPrompt))
}

func TestRunREPL_EOF(t *testing.T) {
	var out bytes.Buffer
	calls := 0

	err := runREPL(context.Background(), strings.NewReader("quit-not\n"), &out, func(ctx context.Context, command string) []fleet.Result {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunREPL_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A reader that never returns stands in for an idle terminal
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	err := runREPL(ctx, pr, io.Discard, func(ctx context.Context, command string) []fleet.Result {
		t.Error("nothing should be dispatched")
		return nil
	})
	assert.NoError(t, err)
}

func TestUniqueDevices(t *testing.T) {
	devices := []*registry.Device{
		registry.NewDevice("10.0.0.9"),
		registry.NewDevice("10.0.0.2"),
		registry.NewDevice("10.0.0.9"),
		registry.NewDevice("10.0.0.10"),
	}

	var got []string
	for _, d := range uniqueDevices(devices) {
		got = append(got, d.Address)
	}
	assert.Equal(t, []string{"10.0.0.2", "10.0.0.9", "10.0.0.10"}, got)
}

// fakePlug is a single Tasmota device behind httptest
type fakePlug struct {
	mu       sync.Mutex
	dump     []byte
	uploaded []byte
	commands []string
}

// Uploaded returns the last uploaded dump
func (f *fakePlug) Uploaded() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploaded
}

// Commands returns the console commands received so far
func (f *fakePlug) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.commands)
}

func (f *fakePlug) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/cm":
		f.commands = append(f.commands, r.URL.Query().Get("cmnd"))
		_, _ = w.Write([]byte(`{"POWER":"ON"}`))
	case "/dl":
		_, _ = w.Write(f.dump)
	case "/rs":
		_, _ = w.Write([]byte("reset"))
	case "/u2":
		file, _, err := r.FormFile("u2")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.uploaded, _ = io.ReadAll(file)
		_, _ = w.Write([]byte("Upload Successful"))
	default:
		http.NotFound(w, r)
	}
}

// execute runs the root command against a registry holding the fake plug
func execute(t *testing.T, registryPath, port string, args ...string) error {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, name := range []string{"REGISTRY", "PORT", "TIMEOUT", "SCAN_CONCURRENCY", "FLEET_CONCURRENCY", "FIRMWARE_MARKER", "LOG_LEVEL"} {
		t.Setenv("TASFLEET_"+name, "")
	}

	// Flag variables outlive a single Execute
	settingsPath = ""
	t.Cleanup(func() { settingsPath = "" })

	rootCmd.SetArgs(append(args, "--registry", registryPath, "--port", port))
	return rootCmd.ExecuteContext(context.Background())
}

func startPlug(t *testing.T, plug *fakePlug) (address, port, registryPath string) {
	t.Helper()

	server := httptest.NewServer(plug)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	address, port, err = net.SplitHostPort(u.Host)
	require.NoError(t, err)

	registryPath = filepath.Join(t.TempDir(), "devices.json")
	reg := registry.New()
	reg.Add(registry.NewDevice(address))
	require.NoError(t, reg.Save(registryPath))

	return address, port, registryPath
}

func TestBackupThenRestore(t *testing.T) {
	plug := &fakePlug{dump: []byte{0x00, 0x7f, 0x80, 0xff}}
	address, port, registryPath := startPlug(t, plug)

	require.NoError(t, execute(t, registryPath, port, "backup"))

	stored, ok := registry.Load(registryPath).Get(address).Config()
	require.True(t, ok)
	assert.Equal(t, base64.StdEncoding.EncodeToString(plug.dump), stored)

	require.NoError(t, execute(t, registryPath, port, "restore", "--yes"))
	assert.Equal(t, plug.dump, plug.Uploaded())
}

func TestCmdCommand(t *testing.T) {
	plug := &fakePlug{}
	_, port, registryPath := startPlug(t, plug)

	require.NoError(t, execute(t, registryPath, port, "cmd", "Power", "ON"))
	assert.Equal(t, []string{"Power ON"}, plug.Commands())
}

func TestForgetCommand(t *testing.T) {
	address, port, registryPath := startPlug(t, &fakePlug{})

	require.NoError(t, execute(t, registryPath, port, "forget", address))
	assert.Zero(t, registry.Load(registryPath).Len())
}

func TestEmptyRegistry(t *testing.T) {
	registryPath := filepath.Join(t.TempDir(), "devices.json")

	err := execute(t, registryPath, "80", "backup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no devices")

	_, statErr := os.Stat(registryPath)
	assert.True(t, os.IsNotExist(statErr), "a failed backup must not create the registry")
}

func TestFlagRepairsSettingsFile(t *testing.T) {
	plug := &fakePlug{}
	_, port, registryPath := startPlug(t, plug)

	settingsFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(settingsFile, []byte("port: 0\n"), 0o600))

	require.NoError(t, execute(t, registryPath, port, "cmd", "Power", "ON", "--settings", settingsFile))
	assert.Equal(t, []string{"Power ON"}, plug.Commands())
}

func TestMissingSettingsFile(t *testing.T) {
	_, port, registryPath := startPlug(t, &fakePlug{})

	err := execute(t, registryPath, port, "list", "--settings", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
