package check

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"numstamp/internal/arith"
	"numstamp/internal/constant"
	"numstamp/internal/stamp"
	"numstamp/internal/testkit"
	"numstamp/internal/trace"
)

// foldFunc is arith.Fold; tests substitute broken folds to exercise the
// reporting path.
type foldFunc func(op arith.Op, resultBits int, args ...stamp.Stamp) (stamp.Stamp, error)

// worker runs one job. It is confined to a single goroutine.
type worker struct {
	ctx     context.Context
	job     Job
	cfg     *Config
	fold    foldFunc
	sampler *testkit.Sampler
	span    *trace.Span

	cases      int
	violations int
	kept       []Violation
}

func (w *worker) run() {
	defer func() {
		if r := recover(); r != nil {
			w.fail("panic", nil, nil, constant.Value{}, fmt.Sprint(r))
		}
	}()
	switch w.job.Kind {
	case JobOp:
		w.runOp()
	case JobLaws:
		w.runLaws()
	case JobRoundTrip:
		w.runRoundTrip()
	}
}

func (w *worker) stopped() bool { return w.ctx.Err() != nil }

func (w *worker) fail(property string, args []stamp.Stamp, result stamp.Stamp, value constant.Value, detail string) {
	w.violations++
	v := Violation{Job: w.job.Name(), Property: property, Detail: detail}
	for _, a := range args {
		v.Operands = append(v.Operands, a.String())
	}
	if result != nil {
		v.Result = result.String()
	}
	if value.IsValid() {
		v.Value = value.String()
	}
	w.span.Point(property, v.summary())
	if len(w.kept) < w.cfg.Report.MaxViolations {
		w.kept = append(w.kept, v)
	}
}

func (w *worker) draw(k stamp.Kind, bits int) stamp.Stamp {
	if k == stamp.KindFloat {
		return w.sampler.Float(bits)
	}
	return w.sampler.Integer(bits)
}

func (w *worker) members(s stamp.Stamp, n int) []constant.Value {
	var out []constant.Value
	switch st := s.(type) {
	case *stamp.IntegerStamp:
		if st.IsEmpty() {
			return nil
		}
		for _, v := range w.sampler.IntegerMembers(st, n) {
			out = append(out, constant.Int(st.Bits(), v))
		}
	case *stamp.FloatStamp:
		if st.IsEmpty() {
			return nil
		}
		for _, f := range w.sampler.FloatMembers(st, n) {
			out = append(out, constant.Float(st.Bits(), f))
		}
	}
	return out
}

func (w *worker) operands() []stamp.Stamp {
	j := w.job
	switch j.Op.Shape() {
	case arith.ShapeShift:
		return []stamp.Stamp{w.draw(stamp.KindInteger, j.Bits), w.sampler.Integer(32)}
	case arith.ShapeBinary:
		return []stamp.Stamp{w.draw(j.Operand, j.Bits), w.draw(j.Operand, j.Bits)}
	case arith.ShapeTernary:
		return []stamp.Stamp{w.draw(j.Operand, j.Bits), w.draw(j.Operand, j.Bits), w.draw(j.Operand, j.Bits)}
	}
	return []stamp.Stamp{w.draw(j.Operand, j.Bits)}
}

// runOp checks one operator: result invariants, soundness over sampled
// members, and agreement between folding constant stamps and folding the
// constants themselves.
func (w *worker) runOp() {
	op, rb := w.job.Op, w.job.ResultBits
	for range w.cfg.StampsPerJob {
		if w.stopped() {
			return
		}
		args := w.operands()
		r, err := w.fold(op, rb, args...)
		if err != nil {
			w.fail("fold", args, nil, constant.Value{}, err.Error())
			continue
		}
		w.cases++
		if err := testkit.Check(r); err != nil {
			w.fail("invariant", args, r, constant.Value{}, err.Error())
		}
		pools := make([][]constant.Value, len(args))
		for i, a := range args {
			pools[i] = w.members(a, w.cfg.SamplesPerStamp)
			if len(pools[i]) == 0 {
				pools = nil
				break
			}
		}
		for range w.cfg.SamplesPerStamp {
			if pools == nil {
				break
			}
			tuple := make([]constant.Value, len(args))
			for i, pool := range pools {
				tuple[i] = pool[w.sampler.IntN(len(pool))]
			}
			c, ok, err := arith.Eval(op, rb, tuple...)
			if err != nil {
				w.fail("eval", args, r, constant.Value{}, err.Error())
				return
			}
			if !ok {
				continue
			}
			w.cases++
			if !contains(r, c) {
				w.fail("soundness", args, r, c, "operands "+joinValues(tuple))
			}
			w.agree(tuple, c)
		}
	}
}

func (w *worker) agree(tuple []constant.Value, want constant.Value) {
	consts := make([]stamp.Stamp, len(tuple))
	for i, c := range tuple {
		consts[i] = stamp.ForConstant(c)
	}
	r, err := w.fold(w.job.Op, w.job.ResultBits, consts...)
	if err != nil {
		w.fail("fold", consts, nil, constant.Value{}, err.Error())
		return
	}
	w.cases++
	if !contains(r, want) {
		w.fail("agreement", consts, r, want, "constant operands")
		return
	}
	if got, ok := r.AsConstant(); ok && !sameValue(got, want) {
		w.fail("agreement", consts, r, want, "folded to "+got.String())
	}
}

func (w *worker) runLaws() {
	for range w.cfg.StampsPerJob {
		if w.stopped() {
			return
		}
		a, b := w.draw(w.job.Operand, w.job.Bits), w.draw(w.job.Operand, w.job.Bits)
		pair := []stamp.Stamp{a, b}
		meet, join := a.Meet(b), a.Join(b)
		top, bottom := a.Unrestricted(), a.Empty()
		laws := []struct {
			name string
			ok   bool
		}{
			{"meet-idempotent", a.Meet(a).Equal(a)},
			{"join-idempotent", a.Join(a).Equal(a)},
			{"meet-commutative", meet.Equal(b.Meet(a))},
			{"join-commutative", join.Equal(b.Join(a))},
			{"meet-top", a.Meet(top).Equal(top)},
			{"join-top", a.Join(top).Equal(a)},
			{"meet-empty", a.Meet(bottom).Equal(a)},
			{"join-empty", a.Join(bottom).IsEmpty()},
			{"improve-is-join", a.ImproveWith(b).Equal(join)},
		}
		for _, law := range laws {
			w.cases++
			if !law.ok {
				w.fail("law/"+law.name, pair, nil, constant.Value{}, "")
			}
		}
		for _, r := range []stamp.Stamp{meet, join} {
			if err := testkit.Check(r); err != nil {
				w.fail("invariant", pair, r, constant.Value{}, err.Error())
			}
		}
		for _, c := range w.members(a, w.cfg.SamplesPerStamp) {
			w.cases++
			if !contains(meet, c) {
				w.fail("law/meet-contains", pair, meet, c, "")
			}
			if contains(bottom, c) {
				w.fail("law/empty-contains", pair, bottom, c, "")
			}
			if contains(b, c) && !contains(join, c) {
				w.fail("law/join-contains", pair, join, c, "")
			}
		}
	}
}

var byteOrders = []binary.ByteOrder{binary.LittleEndian, binary.BigEndian}

func (w *worker) runRoundTrip() {
	for range w.cfg.StampsPerJob {
		if w.stopped() {
			return
		}
		a := w.draw(w.job.Operand, w.job.Bits)
		args := []stamp.Stamp{a}
		w.cases++
		back, err := stamp.Parse(a.String())
		if err != nil {
			w.fail("roundtrip/text", args, nil, constant.Value{}, err.Error())
		} else if !back.Equal(a) {
			w.fail("roundtrip/text", args, back, constant.Value{}, "parsed back differently")
		}
		for _, c := range w.members(a, w.cfg.SamplesPerStamp) {
			for _, order := range byteOrders {
				w.cases++
				got, err := a.Deserialize(c.Encode(order), order)
				if err != nil {
					w.fail("roundtrip/binary", args, nil, c, err.Error())
					continue
				}
				if !got.Equal(c) {
					w.fail("roundtrip/binary", args, nil, c, fmt.Sprintf("%s decoded as %s", order, got))
				}
			}
		}
	}
}

func contains(s stamp.Stamp, c constant.Value) bool {
	switch st := s.(type) {
	case *stamp.IntegerStamp:
		return c.Kind() == constant.KindInt && st.Contains(c.Int64())
	case *stamp.FloatStamp:
		return c.Kind() == constant.KindFloat && st.Contains(c.Float64())
	}
	return false
}

// sameValue compares numerically so that 0.0 and -0.0 agree; NaNs agree
// with each other.
func sameValue(a, b constant.Value) bool {
	if a.Kind() != b.Kind() || a.Bits() != b.Bits() {
		return false
	}
	if a.Kind() == constant.KindFloat {
		x, y := a.Float64(), b.Float64()
		return x == y || math.IsNaN(x) && math.IsNaN(y)
	}
	return a.Equal(b)
}

func joinValues(vs []constant.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
