package ui

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeader(t *testing.T) {
	out := RenderHeader("Scan", Param{"Range", "10.0.0.0/30"}, Param{"Concurrency", "256"})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SCAN")
	assert.Contains(t, lines[1], "Range:")
	assert.Contains(t, lines[1], "10.0.0.0/30")
	assert.Contains(t, lines[2], "Concurrency:")
}

func TestRenderDeviceLine(t *testing.T) {
	ok := RenderDeviceLine("10.0.0.2", true, "13.1.0(tasmota)")
	assert.Contains(t, ok, SuccessMarker)
	assert.Contains(t, ok, "10.0.0.2")
	assert.Contains(t, ok, "13.1.0(tasmota)")

	failed := RenderDeviceLine("10.0.0.3", false, "Device not responding (timeout)")
	assert.Contains(t, failed, FailureMarker)
	assert.Contains(t, failed, "timeout")
}

func TestRenderSummary(t *testing.T) {
	all := RenderSummary("Backup", 5, 5, 60)
	assert.Contains(t, all, "5/5 succeeded")
	assert.NotContains(t, all, "failed")

	some := RenderSummary("Backup", 4, 5, 60)
	assert.Contains(t, some, "4/5 succeeded")
	assert.Contains(t, some, "1 failed")
}

func TestRenderError(t *testing.T) {
	out := RenderError("Restore failed", errors.New("upload not accepted"), []string{"power-cycle it"})
	assert.Contains(t, out, "Restore failed")
	assert.Contains(t, out, "upload not accepted")
	assert.Contains(t, out, "• power-cycle it")
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(10)

	p.PrintReply("10.0.0.1", `{"POWER":"ON"}`)
	p.PrintDevice("10.0.0.2", true, "")
	p.PrintSummary("Command", 1, 2)

	out := buf.String()
	assert.Contains(t, out, "10.0.0.1: {\"POWER\":\"ON\"}\n")
	assert.Contains(t, out, "10.0.0.2")
	assert.Contains(t, out, "1/2 succeeded")
	assert.Equal(t, MinTerminalWidth, p.width)
}

func TestProgressModel(t *testing.T) {
	m := NewProgressModel("Probing", 4)
	assert.Zero(t, m.Percent())

	var model tea.Model = m
	model, _ = model.Update(TickMsg{OK: true})
	model, _ = model.Update(TickMsg{OK: false})

	m = model.(ProgressModel)
	assert.Equal(t, 2, m.done)
	assert.Equal(t, 1, m.failed)
	assert.InDelta(t, 0.5, m.Percent(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "Probing")
	assert.Contains(t, view, "2/4")
	assert.Contains(t, view, "1 "+FailureMarker)

	model, cmd := m.Update(finishedMsg{})
	require.NotNil(t, cmd)
	assert.True(t, model.(ProgressModel).finished)
}

func TestProgressModel_EmptyTotal(t *testing.T) {
	assert.Equal(t, 1.0, NewProgressModel("Nothing", 0).Percent())
}

func TestRunWithProgress_NotTerminal(t *testing.T) {
	ran := false
	err := RunWithProgress(nil, "Probing", 3, func(tick func(bool)) {
		tick(true)
		tick(false)
		ran = true
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRunProgram(t *testing.T) {
	var buf bytes.Buffer
	var wg sync.WaitGroup

	err := runProgram(&buf, "Backing up", 3, func(tick func(bool)) {
		for i := range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tick(i != 1)
			}()
		}
		wg.Wait()
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Backing up")
}

func TestConfirmDangerousOperation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "exact phrase", input: "I AGREE\n", want: true},
		{name: "surrounding whitespace", input: "  I AGREE  \n", want: true},
		{name: "phrase without newline", input: "I AGREE", want: true},
		{name: "lowercase", input: "i agree\n", want: false},
		{name: "yes", input: "yes\n", want: false},
		{name: "no input", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := ConfirmDangerousOperation(strings.NewReader(tt.input), &out, "TEST", []string{"first warning"})
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "first warning")
			assert.Contains(t, out.String(), ConfirmPhrase)
		})
	}
}

func TestRestoreConfirmation(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, RestoreConfirmation(strings.NewReader("I AGREE\n"), &out, 3))
	assert.Contains(t, out.String(), "3 device(s)")
}
