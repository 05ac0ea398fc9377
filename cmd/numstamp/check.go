package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"numstamp/internal/check"
	"numstamp/internal/ui"
)

// defaultConfigFile is read when present and --config is not given.
const defaultConfigFile = "numstamp.toml"

type checkOptions struct {
	configPath string
	seed       int64
	workers    int
	stamps     int
	samples    int
	widths     []int
	ops        []string
	format     string
	verbose    bool
	noCache    bool
	ui         string
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check transfer functions against concrete evaluation",
		Long: `check samples random stamps and members for every supported operator and
width, and verifies that folded stamps contain every concrete result, that
constant operands fold exactly, that meet and join obey the lattice laws
and that the text and binary forms round-trip.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckCommand(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "TOML config file (default ./"+defaultConfigFile+" when present)")
	f.Int64Var(&opts.seed, "seed", 0, "random seed")
	f.IntVar(&opts.workers, "workers", 0, "parallel jobs")
	f.IntVar(&opts.stamps, "stamps", 0, "random stamps per job")
	f.IntVar(&opts.samples, "samples", 0, "members drawn per stamp")
	f.IntSliceVar(&opts.widths, "widths", nil, "integer widths to check")
	f.StringSliceVar(&opts.ops, "ops", nil, "operators to check (default all)")
	f.StringVar(&opts.format, "format", "", "report format (text|yaml|json)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "list passing jobs and phase timings")
	f.BoolVar(&opts.noCache, "no-cache", false, "ignore and do not store cached reports")
	f.StringVar(&opts.ui, "ui", "auto", "live progress view (auto|on|off)")
	addProfileFlags(cmd)
	return cmd
}

func loadCheckConfig(cmd *cobra.Command, opts checkOptions) (check.Config, error) {
	cfg := check.Default()
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		loaded, err := check.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("stamps") {
		cfg.StampsPerJob = opts.stamps
	}
	if flags.Changed("samples") {
		cfg.SamplesPerStamp = opts.samples
	}
	if flags.Changed("widths") {
		cfg.Widths = opts.widths
	}
	if flags.Changed("ops") {
		cfg.Ops = opts.ops
	}
	if flags.Changed("format") {
		cfg.Report.Format = opts.format
	}
	if opts.noCache {
		cfg.Report.Cache = false
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runCheckCommand(cmd *cobra.Command, opts checkOptions) error {
	mode, err := readUIMode(opts.ui)
	if err != nil {
		return err
	}
	cfg, err := loadCheckConfig(cmd, opts)
	if err != nil {
		return err
	}

	var cache *check.ReportCache
	if cfg.Report.Cache {
		// A missing cache directory only costs speed.
		if cache, err = check.OpenReportCache("numstamp"); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "report cache disabled: %v\n", err)
			cache = nil
		}
	}

	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	var report *check.Report
	if shouldUseTUI(mode, cfg.Report.Format) {
		report, err = runCheckWithUI(cmd.Context(), cfg, cache)
	} else {
		report, err = check.RunCached(cmd.Context(), cfg, cache, nil)
	}
	cleanup()
	if report == nil {
		return err
	}
	if err != nil {
		// Only the cache store failed; the report is still good.
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	if err := check.Render(cmd.OutOrStdout(), report, check.RenderOptions{
		Format:  cfg.Report.Format,
		Verbose: opts.verbose,
	}); err != nil {
		return err
	}
	if !report.Passed() {
		return fmt.Errorf("%d violations", report.ViolationCount)
	}
	return nil
}

type checkOutcome struct {
	report *check.Report
	err    error
}

func runCheckWithUI(ctx context.Context, cfg check.Config, cache *check.ReportCache) (*check.Report, error) {
	jobs := check.Plan(cfg)
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan check.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		r, err := check.RunCached(ctx, cfg, cache, check.ChannelSink{Ch: events})
		outcomeCh <- checkOutcome{report: r, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(fmt.Sprintf("numstamp check (seed %d)", cfg.Seed), names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// The view may quit early; stop the run and let pending sends through.
	cancel()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, errors.Join(uiErr, outcome.err)
	}
	return outcome.report, outcome.err
}
