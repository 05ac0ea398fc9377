package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"numstamp/internal/scenario"
)

func newScenarioCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "scenario <file.yaml>...",
		Short: "Run stamp expectations from scenario files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]*scenario.File, 0, len(args))
			for _, path := range args {
				f, err := scenario.Load(path)
				if err != nil {
					return err
				}
				files = append(files, f)
			}
			outcomes := scenario.Run(cmd.Context(), files...)
			passed, failed := scenario.Summary(outcomes)
			out := cmd.OutOrStdout()
			if quiet {
				fmt.Fprintf(out, "%d passed, %d failed\n", passed, failed)
			} else {
				fmt.Fprint(out, scenario.Transcript(outcomes))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenario cases failed", failed, passed+failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary line")
	return cmd
}
