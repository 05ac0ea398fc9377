package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"numstamp/internal/arith"
	"numstamp/internal/constant"
	"numstamp/internal/stamp"
	"numstamp/internal/trace"
)

// ErrOperand reports case arguments that do not fit the operation.
var ErrOperand = errors.New("scenario: bad operand")

// Outcome is the result of running one case.
type Outcome struct {
	File   string
	Case   Case
	Got    string
	Err    error
	Passed bool
}

// Run evaluates every case of the files in order.
func Run(ctx context.Context, files ...*File) []Outcome {
	var out []Outcome
	for _, f := range files {
		fctx, span := trace.BeginContext(ctx, trace.ScopeRun, "scenario:"+f.Name)
		failed := 0
		for _, c := range f.Cases {
			o := runCase(fctx, f.Name, c)
			if !o.Passed {
				failed++
			}
			out = append(out, o)
		}
		span.End(fmt.Sprintf("cases=%d failed=%d", len(f.Cases), failed))
	}
	return out
}

func runCase(ctx context.Context, file string, c Case) Outcome {
	_, span := trace.BeginContext(ctx, trace.ScopeCase, c.Name)
	o := Outcome{File: file, Case: c}
	got, result, err := evaluate(c)
	switch {
	case err != nil:
		o.Err = err
		o.Passed = c.Expect == ExpectError
	case c.Expect == ExpectError:
		o.Got = got
	default:
		o.Got = got
		o.Passed = matches(c.Expect, got, result)
	}
	span.WithExtra("op", c.Op).End(verdict(o.Passed))
	return o
}

func verdict(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

// evaluate returns the printed outcome of c and, for operations producing a
// stamp, the stamp itself.
func evaluate(c Case) (string, stamp.Stamp, error) {
	switch c.Op {
	case "meet", "join", "improve":
		a, b, err := stampPair(c.Args)
		if err != nil {
			return "", nil, err
		}
		if !a.IsCompatible(b) {
			return "", nil, fmt.Errorf("%w: %s and %s are not compatible", ErrOperand, a, b)
		}
		var r stamp.Stamp
		switch c.Op {
		case "meet":
			r = a.Meet(b)
		case "join":
			r = a.Join(b)
		default:
			r = a.ImproveWith(b)
		}
		return r.String(), r, nil
	case "contains":
		ok, err := contains(c.Args)
		return strconv.FormatBool(ok), nil, err
	case "as-constant":
		s, err := stamps(c.Args, 1)
		if err != nil {
			return "", nil, err
		}
		v, ok := s[0].AsConstant()
		if !ok {
			return ExpectNoConstant, nil, nil
		}
		return v.String(), nil, nil
	case "add-overflows", "sub-overflows", "mul-overflows", "neg-overflows":
		ok, err := overflows(c.Op, c.Args)
		return strconv.FormatBool(ok), nil, err
	case "convert-overflows":
		if len(c.Args) != 2 {
			return "", nil, fmt.Errorf("%w: convert-overflows takes an operator and a stamp", ErrOperand)
		}
		op, err := arith.Lookup(c.Args[0])
		if err != nil {
			return "", nil, err
		}
		s, err := stamps(c.Args[1:], 1)
		if err != nil {
			return "", nil, err
		}
		return strconv.FormatBool(arith.CanOverflowInteger(op, s[0])), nil, nil
	}
	op, err := arith.Lookup(c.Op)
	if err != nil {
		return "", nil, err
	}
	args, err := stamps(c.Args, op.Shape().Arity())
	if err != nil {
		return "", nil, err
	}
	r, err := arith.Fold(op, c.Bits, args...)
	if err != nil {
		return "", nil, err
	}
	return r.String(), r, nil
}

func stamps(texts []string, want int) ([]stamp.Stamp, error) {
	if len(texts) != want {
		return nil, fmt.Errorf("%w: want %d stamps, got %d", ErrOperand, want, len(texts))
	}
	out := make([]stamp.Stamp, len(texts))
	for i, t := range texts {
		s, err := stamp.Parse(t)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func stampPair(texts []string) (stamp.Stamp, stamp.Stamp, error) {
	s, err := stamps(texts, 2)
	if err != nil {
		return nil, nil, err
	}
	return s[0], s[1], nil
}

func integerPair(texts []string) (*stamp.IntegerStamp, *stamp.IntegerStamp, error) {
	s, err := stamps(texts, len(texts))
	if err != nil {
		return nil, nil, err
	}
	ints := make([]*stamp.IntegerStamp, len(s))
	for i, st := range s {
		is, ok := st.(*stamp.IntegerStamp)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s is not an integer stamp", ErrOperand, st)
		}
		ints[i] = is
	}
	switch len(ints) {
	case 1:
		return ints[0], nil, nil
	case 2:
		if ints[0].Bits() != ints[1].Bits() {
			return nil, nil, fmt.Errorf("%w: widths %d and %d differ", ErrOperand, ints[0].Bits(), ints[1].Bits())
		}
		return ints[0], ints[1], nil
	}
	return nil, nil, fmt.Errorf("%w: want one or two stamps, got %d", ErrOperand, len(ints))
}

func overflows(op string, args []string) (bool, error) {
	a, b, err := integerPair(args)
	if err != nil {
		return false, err
	}
	if (op == "neg-overflows") != (b == nil) {
		return false, fmt.Errorf("%w: %s takes %d stamps, got %d", ErrOperand, op, arity(op), len(args))
	}
	switch op {
	case "add-overflows":
		return stamp.AddCanOverflow(a, b), nil
	case "sub-overflows":
		return stamp.SubtractionCanOverflow(a, b), nil
	case "mul-overflows":
		return stamp.MultiplicationCanOverflow(a, b), nil
	}
	return stamp.NegateCanOverflow(a), nil
}

func arity(op string) int {
	if op == "neg-overflows" {
		return 1
	}
	return 2
}

func contains(args []string) (bool, error) {
	if len(args) != 2 {
		return false, fmt.Errorf("%w: contains takes a stamp and a value", ErrOperand)
	}
	s, err := stamp.Parse(args[0])
	if err != nil {
		return false, err
	}
	switch st := s.(type) {
	case *stamp.IntegerStamp:
		v, err := constant.Parse(constant.KindInt, st.Bits(), args[1])
		if err != nil {
			return false, err
		}
		return st.Contains(v.Int64()), nil
	case *stamp.FloatStamp:
		v, err := constant.Parse(constant.KindFloat, st.Bits(), args[1])
		if err != nil {
			return false, err
		}
		return st.Contains(v.Float64()), nil
	}
	return false, fmt.Errorf("%w: contains needs a primitive stamp, got %s", ErrOperand, s)
}

// matches compares an outcome with its expectation. Integer expectations
// constrain the range only, unless they spell out a bit pattern or a
// non-zero marker; every other expectation must match exactly.
func matches(expect, got string, result stamp.Stamp) bool {
	if result == nil {
		return expect == got
	}
	want, err := stamp.Parse(expect)
	if err != nil {
		return false
	}
	wi, wok := want.(*stamp.IntegerStamp)
	ri, rok := result.(*stamp.IntegerStamp)
	if !wok || !rok || strings.Contains(expect, "bits:") || strings.Contains(expect, "{!=0}") {
		return want.Equal(result)
	}
	if wi.Bits() != ri.Bits() || wi.IsEmpty() != ri.IsEmpty() {
		return false
	}
	return wi.IsEmpty() || (wi.LowerBound() == ri.LowerBound() && wi.UpperBound() == ri.UpperBound())
}
