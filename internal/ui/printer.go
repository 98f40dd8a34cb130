package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one key/value line of a command header, kept in display order
type Param struct {
	Key   string
	Value string
}

// Printer writes styled command output. Device lines go to out; callers
// keep logs on stderr so the two never interleave.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// PrintHeader prints a title line followed by its parameters
func (p *Printer) PrintHeader(title string, params ...Param) {
	p.Println(RenderHeader(title, params...))
}

// PrintDevice prints one device line: marker, address, detail
func (p *Printer) PrintDevice(address string, ok bool, detail string) {
	p.Println(RenderDeviceLine(address, ok, detail))
}

// PrintReply prints a command reply in the "address: reply" form
func (p *Printer) PrintReply(address, reply string) {
	p.Println(address + ": " + reply)
}

// PrintSummary prints the boxed end-of-run summary
func (p *Printer) PrintSummary(title string, succeeded, total int) {
	p.Println(RenderSummary(title, succeeded, total, p.width))
}

// PrintError prints an error with troubleshooting hints
func (p *Printer) PrintError(title string, err error, hints []string) {
	p.Println(RenderError(title, err, hints))
}

// RenderHeader renders a title line followed by indented parameters
func RenderHeader(title string, params ...Param) string {
	lines := []string{TitleStyle.Render(strings.ToUpper(title))}

	keyWidth := 0
	for _, param := range params {
		keyWidth = max(keyWidth, lipgloss.Width(param.Key)+1)
	}
	for _, param := range params {
		key := LabelStyle.Width(keyWidth).Render(param.Key + ":")
		lines = append(lines, "  "+key+" "+param.Value)
	}

	return strings.Join(lines, "\n") + "\n"
}

// RenderDeviceLine renders a single device status line
func RenderDeviceLine(address string, ok bool, detail string) string {
	marker := SuccessStyle.Render(SuccessMarker)
	if !ok {
		marker = ErrorStyle.Render(FailureMarker)
	}

	line := "  " + marker + " " + AddressStyle.Render(address)
	if detail != "" {
		style := DetailStyle
		if !ok {
			style = ErrorStyle
		}
		line += " " + style.Render(detail)
	}
	return line
}

// RenderSummary renders the "N/M succeeded" box
func RenderSummary(title string, succeeded, total, width int) string {
	failed := total - succeeded

	counts := SuccessStyle.Render(fmt.Sprintf("%d/%d succeeded", succeeded, total))
	if failed > 0 {
		counts += "  " + ErrorStyle.Render(fmt.Sprintf("%d failed", failed))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), counts)
	return SummaryBoxStyle(width, failed > 0).Render(content)
}

// RenderError renders an error line and its hints
func RenderError(title string, err error, hints []string) string {
	lines := []string{ErrorStyle.Bold(true).Render(FailureMarker + " " + title)}
	if err != nil {
		lines = append(lines, ErrorStyle.Render("  "+err.Error()))
	}
	for _, hint := range hints {
		lines = append(lines, HintStyle.Render("  • "+hint))
	}
	return strings.Join(lines, "\n")
}
