package check

import (
	"fmt"

	"numstamp/internal/arith"
	"numstamp/internal/stamp"
)

// JobKind distinguishes the three families of work in a run.
type JobKind uint8

const (
	JobOp        JobKind = iota + 1 // transfer function of one operator at one width
	JobLaws                         // lattice laws at one width
	JobRoundTrip                    // text and binary round-trips at one width
)

func (k JobKind) String() string {
	switch k {
	case JobOp:
		return "op"
	case JobLaws:
		return "laws"
	case JobRoundTrip:
		return "roundtrip"
	}
	return fmt.Sprintf("JobKind(%d)", k)
}

// Job is one independent unit of a run. Its outcome depends only on the
// run seed and Index.
type Job struct {
	Index      int
	Kind       JobKind
	Op         arith.Op
	Operand    stamp.Kind
	Bits       int
	ResultBits int
}

// Name is the stable identifier used in events and reports, e.g. "add/i32".
func (j Job) Name() string {
	prefix := "i"
	if j.Operand == stamp.KindFloat {
		prefix = "f"
	}
	switch j.Kind {
	case JobLaws, JobRoundTrip:
		return fmt.Sprintf("%s/%s%d", j.Kind, prefix, j.Bits)
	}
	if j.Op.Shape() == arith.ShapeIntegerConvert {
		return fmt.Sprintf("%s/i%d->i%d", j.Op, j.Bits, j.ResultBits)
	}
	return fmt.Sprintf("%s/%s%d", j.Op, prefix, j.Bits)
}

var integerWidths = []int{1, 8, 16, 32, 64}

func nextWidth(w int) int {
	for i, v := range integerWidths[:len(integerWidths)-1] {
		if v == w {
			return integerWidths[i+1]
		}
	}
	return 0
}

func prevWidth(w int) int {
	for i, v := range integerWidths[1:] {
		if v == w {
			return integerWidths[i]
		}
	}
	return 0
}

// Plan expands cfg into the ordered job list. Integer conversions step to
// the neighbouring width; float jobs use the configured widths that are
// float widths.
func Plan(cfg Config) []Job {
	var jobs []Job
	add := func(j Job) {
		j.Index = len(jobs)
		jobs = append(jobs, j)
	}
	kinds := []stamp.Kind{stamp.KindInteger, stamp.KindFloat}
	for _, op := range arith.All() {
		if !cfg.wantsOp(op) {
			continue
		}
		for _, k := range kinds {
			for _, w := range cfg.Widths {
				if k == stamp.KindFloat && w != 32 && w != 64 {
					continue
				}
				if !op.Supports(k, w) {
					continue
				}
				j := Job{Kind: JobOp, Op: op, Operand: k, Bits: w, ResultBits: op.ResultBits()}
				switch op {
				case arith.OpZeroExtend, arith.OpSignExtend:
					j.ResultBits = nextWidth(w)
				case arith.OpNarrow:
					j.ResultBits = prevWidth(w)
				}
				if op.Shape() == arith.ShapeIntegerConvert && j.ResultBits == 0 {
					continue
				}
				add(j)
			}
		}
	}
	for _, k := range kinds {
		for _, w := range cfg.Widths {
			if k == stamp.KindFloat && w != 32 && w != 64 {
				continue
			}
			if cfg.Laws {
				add(Job{Kind: JobLaws, Operand: k, Bits: w})
			}
			if cfg.RoundTrip {
				add(Job{Kind: JobRoundTrip, Operand: k, Bits: w})
			}
		}
	}
	return jobs
}
