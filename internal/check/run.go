// Package check runs randomized soundness and lattice-law checks over the
// stamp transfer functions. A run is split into independent jobs, one per
// operator and width plus law and round-trip jobs, that execute on a bounded
// worker pool. Every job seeds its own sampler from the run seed, so a run is
// reproducible regardless of scheduling.
package check

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"numstamp/internal/arith"
	"numstamp/internal/observ"
	"numstamp/internal/testkit"
	"numstamp/internal/trace"
)

// Status captures progress state of a job.
type Status string

const (
	// StatusQueued indicates the job is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the job is running.
	StatusWorking Status = "working"
	// StatusDone indicates the job finished without violations.
	StatusDone Status = "done"
	// StatusFailed indicates the job found violations.
	StatusFailed Status = "failed"
)

// Event reports progress of one job, or of the whole run when Job is empty.
type Event struct {
	Job        string
	Status     Status
	Cases      int
	Violations int
	Elapsed    time.Duration
}

// Sink consumes progress events. OnEvent is called from worker goroutines.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Run executes the jobs cfg describes and collects their results. The error
// is non-nil only for an invalid config or a cancelled context; violations
// are part of the report.
func Run(ctx context.Context, cfg Config, sink Sink) (*Report, error) {
	return run(ctx, cfg, sink, arith.Fold)
}

func run(ctx context.Context, cfg Config, sink Sink, fold foldFunc) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed, _ := cfg.seed()
	fp, err := cfg.Fingerprint()
	if err != nil {
		return nil, err
	}
	emit := func(ev Event) {
		if sink != nil {
			sink.OnEvent(ev)
		}
	}

	timer := observ.NewTimer()
	ctx, span := trace.BeginContext(ctx, trace.ScopeRun, "check")
	report := &Report{
		RunID:       uuid.Must(uuid.NewV7()).String(),
		Seed:        cfg.Seed,
		Fingerprint: hex.EncodeToString(fp[:]),
		StartedAt:   time.Now().UTC(),
	}

	stopPlan := timer.Start("plan")
	jobs := Plan(cfg)
	stopPlan(strconv.Itoa(len(jobs)) + " jobs")
	for _, j := range jobs {
		emit(Event{Job: j.Name(), Status: StatusQueued})
	}

	results := make([]JobResult, len(jobs))
	kept := make([][]Violation, len(jobs))

	stopJobs := timer.Start("jobs")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(cfg.Workers, len(jobs))))
	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			name := job.Name()
			emit(Event{Job: name, Status: StatusWorking})
			jctx, jspan := trace.BeginContext(gctx, trace.ScopeOp, name)
			w := &worker{
				ctx:     jctx,
				job:     job,
				cfg:     &cfg,
				fold:    fold,
				sampler: testkit.NewSampler(jobSeed(seed, job.Index)),
				span:    jspan,
			}
			start := time.Now()
			w.run()
			elapsed := time.Since(start)
			jspan.WithExtra("cases", strconv.Itoa(w.cases)).
				WithExtra("violations", strconv.Itoa(w.violations)).
				End("")

			results[i] = JobResult{
				Name:       name,
				Kind:       job.Kind.String(),
				Cases:      w.cases,
				Violations: w.violations,
				ElapsedMS:  float64(elapsed) / float64(time.Millisecond),
			}
			kept[i] = w.kept
			status := StatusDone
			if w.violations > 0 {
				status = StatusFailed
			}
			emit(Event{Job: name, Status: status, Cases: w.cases, Violations: w.violations, Elapsed: elapsed})
			return gctx.Err()
		})
	}
	err = g.Wait()
	stopJobs(fmt.Sprintf("%d workers", cfg.Workers))
	if err != nil {
		span.End(err.Error())
		return nil, err
	}

	stopCollect := timer.Start("collect")
	report.Jobs = results
	for i := range results {
		report.Cases += results[i].Cases
		report.ViolationCount += results[i].Violations
		for _, v := range kept[i] {
			if len(report.Violations) < cfg.Report.MaxViolations {
				report.Violations = append(report.Violations, v)
			}
		}
	}
	stopCollect("")
	report.Timings = timer.Report()

	status := StatusDone
	if report.ViolationCount > 0 {
		status = StatusFailed
	}
	emit(Event{Status: status, Cases: report.Cases, Violations: report.ViolationCount})
	span.WithExtra("cases", strconv.Itoa(report.Cases)).End(string(status))
	return report, nil
}

// jobSeed derives a per-job seed so that jobs are independent of the order
// workers pick them up in.
func jobSeed(seed uint64, index int) uint64 {
	z := seed + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ z>>30) * 0xbf58476d1ce4e5b9
	z = (z ^ z>>27) * 0x94d049bb133111eb
	return z ^ z>>31
}
