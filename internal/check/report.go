package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"numstamp/internal/observ"
)

// Violation is one counterexample found by a job.
type Violation struct {
	Job      string   `json:"job" yaml:"job" msgpack:"job"`
	Property string   `json:"property" yaml:"property" msgpack:"property"`
	Operands []string `json:"operands,omitempty" yaml:"operands,omitempty" msgpack:"operands,omitempty"`
	Result   string   `json:"result,omitempty" yaml:"result,omitempty" msgpack:"result,omitempty"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value,omitempty"`
	Detail   string   `json:"detail,omitempty" yaml:"detail,omitempty" msgpack:"detail,omitempty"`
}

func (v Violation) summary() string {
	var b strings.Builder
	b.WriteString(v.Property)
	if len(v.Operands) > 0 {
		b.WriteString(" (" + strings.Join(v.Operands, "; ") + ")")
	}
	if v.Result != "" {
		b.WriteString(" -> " + v.Result)
	}
	if v.Value != "" {
		b.WriteString(" misses " + v.Value)
	}
	if v.Detail != "" {
		b.WriteString(": " + v.Detail)
	}
	return b.String()
}

// JobResult summarizes one finished job.
type JobResult struct {
	Name       string  `json:"name" yaml:"name" msgpack:"name"`
	Kind       string  `json:"kind" yaml:"kind" msgpack:"kind"`
	Cases      int     `json:"cases" yaml:"cases" msgpack:"cases"`
	Violations int     `json:"violations" yaml:"violations" msgpack:"violations"`
	ElapsedMS  float64 `json:"elapsed_ms" yaml:"elapsed_ms" msgpack:"elapsed_ms"`
}

// Report is the outcome of a run.
type Report struct {
	RunID          string        `json:"run_id" yaml:"run_id" msgpack:"run_id"`
	Seed           int64         `json:"seed" yaml:"seed" msgpack:"seed"`
	Fingerprint    string        `json:"fingerprint" yaml:"fingerprint" msgpack:"fingerprint"`
	StartedAt      time.Time     `json:"started_at" yaml:"started_at" msgpack:"started_at"`
	Cases          int           `json:"cases" yaml:"cases" msgpack:"cases"`
	ViolationCount int           `json:"violation_count" yaml:"violation_count" msgpack:"violation_count"`
	Jobs           []JobResult   `json:"jobs" yaml:"jobs" msgpack:"jobs"`
	Violations     []Violation   `json:"violations,omitempty" yaml:"violations,omitempty" msgpack:"violations,omitempty"`
	Timings        observ.Report `json:"timings" yaml:"timings" msgpack:"timings"`
	Cached         bool          `json:"cached,omitempty" yaml:"cached,omitempty" msgpack:"-"`
}

// Passed reports whether no job found a violation.
func (r *Report) Passed() bool { return r.ViolationCount == 0 }

// RenderOptions controls Render.
type RenderOptions struct {
	Format  string // text, yaml or json
	Verbose bool   // text: list passing jobs and timings too
}

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// Render writes r in the requested format.
func Render(w io.Writer, r *Report, opts RenderOptions) error {
	switch opts.Format {
	case "", "text":
		return renderText(w, r, opts.Verbose)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return fmt.Errorf("%w: report format %q", ErrConfig, opts.Format)
}

func renderText(w io.Writer, r *Report, verbose bool) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	p.Fprintf(&b, "run %s  seed %d", r.RunID, r.Seed)
	if r.Cached {
		b.WriteString(dimColor.Sprint("  (cached)"))
	}
	b.WriteByte('\n')

	width := 0
	for _, j := range r.Jobs {
		width = max(width, len(j.Name))
	}
	for _, j := range r.Jobs {
		if j.Violations == 0 && !verbose {
			continue
		}
		tag := passColor.Sprint("PASS")
		if j.Violations > 0 {
			tag = failColor.Sprint("FAIL")
		}
		fmt.Fprintf(&b, "  %s  %-*s %10s cases", tag, width, j.Name, p.Sprintf("%d", j.Cases))
		if j.Violations > 0 {
			p.Fprintf(&b, "  %d violations", j.Violations)
		}
		b.WriteByte('\n')
	}

	if len(r.Violations) > 0 {
		b.WriteString("violations:\n")
		for _, v := range r.Violations {
			fmt.Fprintf(&b, "  %s %s\n", v.Job, v.summary())
		}
		if hidden := r.ViolationCount - len(r.Violations); hidden > 0 {
			p.Fprintf(&b, "  ... and %d more\n", hidden)
		}
	}

	verdict := passColor.Sprint("PASS")
	if !r.Passed() {
		verdict = failColor.Sprint("FAIL")
	}
	p.Fprintf(&b, "%s  %d cases, %d violations in %d jobs\n", verdict, r.Cases, r.ViolationCount, len(r.Jobs))
	if verbose {
		r.Timings.Fprint(&b, "  ", 8)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
