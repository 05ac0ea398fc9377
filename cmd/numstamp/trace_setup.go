package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"numstamp/internal/trace"
)

// traceFlags holds the persistent --trace* flags.
type traceFlags struct {
	output    string
	level     string
	mode      string
	format    string
	ringSize  int
	heartbeat time.Duration
}

func readTraceFlags(cmd *cobra.Command) (traceFlags, error) {
	flags := cmd.Root().PersistentFlags()
	var tf traceFlags
	var errs []error
	get := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error
	tf.output, err = flags.GetString("trace")
	get(err)
	tf.level, err = flags.GetString("trace-level")
	get(err)
	tf.mode, err = flags.GetString("trace-mode")
	get(err)
	tf.format, err = flags.GetString("trace-format")
	get(err)
	tf.ringSize, err = flags.GetInt("trace-ring-size")
	get(err)
	tf.heartbeat, err = flags.GetDuration("trace-heartbeat")
	get(err)
	if len(errs) > 0 {
		return tf, fmt.Errorf("read trace flags: %w", errors.Join(errs...))
	}
	return tf, nil
}

// setupTracing reads the persistent trace flags and attaches a tracer to
// the command context. The returned cleanup flushes and closes it; given
// the command's error it first dumps any in-memory ring to stderr.
func setupTracing(cmd *cobra.Command) (func(error), error) {
	tf, err := readTraceFlags(cmd)
	if err != nil {
		return nil, err
	}
	level, err := trace.ParseLevel(tf.level)
	if err != nil {
		return nil, err
	}
	// A path without a level means the user wants the phase view.
	if level == trace.LevelOff {
		if tf.output == "" {
			cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
			return func(error) {}, nil
		}
		level = trace.LevelPhase
	}
	mode, err := trace.ParseMode(tf.mode)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(tf.format)
	if err != nil {
		return nil, err
	}
	output := tf.output
	if output == "" {
		output = "-"
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   tf.ringSize,
		Heartbeat:  tf.heartbeat,
	})
	if err != nil {
		return nil, fmt.Errorf("create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	heartbeat := trace.StartHeartbeat(tracer, tf.heartbeat)
	return func(runErr error) {
		heartbeat.Stop()
		if runErr != nil && mode == trace.ModeRing {
			dumpRing(cmd, tracer, format)
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// dumpRing writes the events held in memory, which in ring mode are the
// only record of what led up to a failure.
func dumpRing(cmd *cobra.Command, tracer trace.Tracer, format trace.Format) {
	ring, ok := trace.RingOf(tracer)
	if !ok || ring.Len() == 0 {
		return
	}
	if format == trace.FormatAuto {
		format = trace.FormatText
	}
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "trace: last %d events before failure\n", ring.Len())
	if err := ring.Dump(w, format); err != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", err)
	}
}
