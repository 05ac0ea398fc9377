// Package observ collects wall-clock timings for the phases of a check run.
package observ

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type phase struct {
	name    string
	started time.Time
	elapsed time.Duration
	note    string
}

// Timer records named phases in the order they start. It is safe for
// concurrent use, so workers can time their own phases.
type Timer struct {
	mu     sync.Mutex
	phases []phase
	now    func() time.Time
}

// NewTimer returns a timer on the wall clock.
func NewTimer() *Timer { return &Timer{now: time.Now} }

// Start opens a phase. Calling the returned stop closes it with a note;
// calls after the first are ignored.
func (t *Timer) Start(name string) (stop func(note string)) {
	t.mu.Lock()
	idx := len(t.phases)
	t.phases = append(t.phases, phase{name: name, started: t.now()})
	t.mu.Unlock()

	var once sync.Once
	return func(note string) {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			p := &t.phases[idx]
			p.elapsed = t.now().Sub(p.started)
			p.note = note
		})
	}
}

// PhaseReport is one timed phase as it appears in a check report.
type PhaseReport struct {
	Name       string  `json:"name" yaml:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" yaml:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" yaml:"note,omitempty" msgpack:"note,omitempty"`
}

// Report is the serialized form of a Timer.
type Report struct {
	TotalMS float64       `json:"total_ms" yaml:"total_ms" msgpack:"total_ms"`
	Phases  []PhaseReport `json:"phases" yaml:"phases" msgpack:"phases"`
}

// Report snapshots the phases. Phases still open report zero.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	var r Report
	var total time.Duration
	for _, p := range t.phases {
		total += p.elapsed
		r.Phases = append(r.Phases, PhaseReport{Name: p.name, DurationMS: millis(p.elapsed), Note: p.note})
	}
	r.TotalMS = millis(total)
	return r
}

// Fprint writes one line per phase, each prefixed by indent with the name
// padded to width.
//
//	  jobs          4.25 ms  // 4 workers
func (r Report) Fprint(w io.Writer, indent string, width int) error {
	for _, p := range r.Phases {
		line := fmt.Sprintf("%s%-*s %9.2f ms", indent, width, p.Name, p.DurationMS)
		if p.Note != "" {
			line += "  // " + p.Note
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
