// Package ui renders tasfleet's terminal output with Lipgloss and Bubble Tea.
//
// Output is "run once and exit": a header, one line per device, and a
// summary box. Long fleet operations draw a progress bar through
// RunWithProgress, which falls back to plain execution when stdout is not a
// terminal:
//
//	err := ui.RunWithProgress(os.Stdout, "Backing up", len(devices), func(tick func(bool)) {
//	    orchestrator.OnResult = func(r fleet.Result) { tick(r.OK) }
//	    results = orchestrator.RunAll(ctx, devices, fleet.Backup(client))
//	})
//
// Logging goes to stderr and is silent unless TASFLEET_LOG_LEVEL or
// --log-level enables it, so device output on stdout stays clean.
package ui
