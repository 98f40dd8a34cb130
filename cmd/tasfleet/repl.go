package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/tasfleet/internal/fleet"
	"github.com/muurk/tasfleet/internal/ui"
)

const replPrompt = "> "

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive console that broadcasts each line to every device",
	Long: `Read console commands line by line and send each one to every registered
device, printing "address: reply" lines in registry order.

Type "exit" or "quit", or send EOF (Ctrl-D), to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := loadDevices(settings)
		if err != nil {
			return err
		}

		client := newClient(settings)
		orchestrator := newOrchestrator(settings)
		devices := reg.Devices()

		fmt.Printf("%d device(s) from %s\n", len(devices), settings.Registry)
		return runREPL(cmd.Context(), os.Stdin, os.Stdout, func(ctx context.Context, command string) []fleet.Result {
			return orchestrator.RunAll(ctx, devices, fleet.Command(client, command))
		})
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// runREPL reads commands from in until EOF, "exit", "quit", or ctx ends.
// Each non-empty line goes to dispatch and the replies are printed to out.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, dispatch func(context.Context, string) []fleet.Result) error {
	printer := ui.NewPrinter(out)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		_, _ = fmt.Fprint(out, replPrompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			_, _ = fmt.Fprintln(out)
			select {
			case err := <-readErr:
				return err
			default:
				return nil
			}
		}

		command := strings.TrimSpace(line)
		switch command {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		printReplies(printer, dispatch(ctx, command))
		printer.Println("")
	}
}
