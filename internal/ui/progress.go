package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg reports one finished unit of work
type TickMsg struct {
	OK bool
}

// finishedMsg tells the progress program the work is over
type finishedMsg struct{}

// ProgressModel is a Bubble Tea model showing a bar and done/failed counts
// for a fixed number of units (addresses probed, devices handled)
type ProgressModel struct {
	label    string
	total    int
	done     int
	failed   int
	finished bool
	bar      progress.Model
}

// NewProgressModel creates a progress model for total units of work
func NewProgressModel(label string, total int) ProgressModel {
	return ProgressModel{
		label: label,
		total: total,
		bar:   newBar(GetTerminalWidth()),
	}
}

func newBar(width int) progress.Model {
	barWidth := min(max(width-30, 20), 50)
	return progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
}

// Init implements tea.Model
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		m.done++
		if !msg.OK {
			m.failed++
		}
	case finishedMsg:
		m.finished = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar = newBar(msg.Width)
	}
	return m, nil
}

// Percent returns the completed fraction in [0, 1]
func (m ProgressModel) Percent() float64 {
	if m.total <= 0 {
		return 1
	}
	return min(float64(m.done)/float64(m.total), 1)
}

// View implements tea.Model
func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(LabelStyle.Render(m.label))
	b.WriteString("\n  ")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	fmt.Fprintf(&b, "  %d/%d", m.done, m.total)
	if m.failed > 0 {
		b.WriteString("  ")
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%d %s", m.failed, FailureMarker)))
	}
	b.WriteString("\n")

	return b.String()
}

// RunWithProgress runs work while drawing a progress bar on out. work calls
// tick once per finished unit; tick is safe for concurrent use. When out is
// not a terminal, work runs with no display.
func RunWithProgress(out *os.File, label string, total int, work func(tick func(ok bool))) error {
	if out == nil || !IsTerminal(out) {
		work(func(bool) {})
		return nil
	}
	return runProgram(out, label, total, work)
}

func runProgram(out io.Writer, label string, total int, work func(tick func(ok bool))) error {
	p := tea.NewProgram(
		NewProgressModel(label, total),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	workDone := make(chan struct{})
	go func() {
		defer close(workDone)
		work(func(ok bool) { p.Send(TickMsg{OK: ok}) })
		p.Send(finishedMsg{})
	}()

	_, err := p.Run()
	<-workDone
	return err
}
