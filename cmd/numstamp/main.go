package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"numstamp/internal/version"
)

// newRootCmd builds the command tree. Tests build a fresh tree per run so
// flag state never leaks between invocations.
func newRootCmd() *cobra.Command {
	var cleanupTrace func(error)
	finishTrace := func(err error) {
		if cleanupTrace != nil {
			cleanupTrace(err)
			cleanupTrace = nil
		}
	}
	root := &cobra.Command{
		Use:           "numstamp",
		Short:         "Abstract value stamps for fixed-width integers and floats",
		Long:          `numstamp folds operators over value stamps, checks their soundness and runs scenario files`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupColor(cmd); err != nil {
				return err
			}
			cleanup, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			cleanupTrace = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			finishTrace(nil)
		},
	}

	root.AddCommand(
		newFoldCmd(),
		newEvalCmd(),
		newLatticeCmd("meet", "Smallest stamp containing both operands"),
		newLatticeCmd("join", "Largest stamp contained in both operands"),
		newContainsCmd(),
		newDecodeCmd(),
		newCheckCmd(),
		newScenarioCmd(),
		newVersionCmd(),
	)
	// PersistentPostRun is skipped when RunE fails, so failures finish the
	// trace themselves and get a chance to dump the ring.
	for _, sub := range root.Commands() {
		if run := sub.RunE; run != nil {
			sub.RunE = func(cmd *cobra.Command, args []string) error {
				err := run(cmd, args)
				if err != nil {
					finishTrace(err)
				}
				return err
			}
		}
	}

	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("trace", "", "write trace events to this file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.String("trace-format", "auto", "trace output format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept in ring mode")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "numstamp: %v\n", err)
		os.Exit(1)
	}
}

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
