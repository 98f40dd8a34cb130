package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase must be typed exactly to approve a dangerous operation
const ConfirmPhrase = "I AGREE"

// ConfirmDangerousOperation displays a warning box on out and reads one line
// from in. It returns true only if the line is ConfirmPhrase.
func ConfirmDangerousOperation(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningStyle.Render(fmt.Sprintf("%s  WARNING  ─  %s", WarningMarker, title)), ""}
	for _, warning := range warnings {
		lines = append(lines, "• "+warning)
	}
	lines = append(lines, "")

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	_, _ = fmt.Fprintln(out, box)
	_, _ = fmt.Fprint(out, WarningStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	if strings.TrimSpace(input) == ConfirmPhrase {
		return true
	}

	_, _ = fmt.Fprintln(out, LabelStyle.Render("  Operation cancelled."))
	return false
}

// RestoreConfirmation asks before uploading stored backups to count devices
func RestoreConfirmation(in io.Reader, out io.Writer, count int) bool {
	return ConfirmDangerousOperation(in, out,
		"CONFIGURATION RESTORE",
		[]string{
			fmt.Sprintf("Replaces the configuration of %d device(s)", count),
			"Each device restarts after its upload",
			"A failed upload may leave a device in upload mode",
		},
	)
}
