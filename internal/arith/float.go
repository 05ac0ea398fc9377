package arith

import (
	"fmt"
	"math"
	"math/big"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
	"numstamp/internal/stamp"
)

func asFloat(op Op, s stamp.Stamp) *stamp.FloatStamp {
	f, ok := s.(*stamp.FloatStamp)
	if !ok || !op.Supports(stamp.KindFloat, f.Bits()) {
		panic(unsupported(op, s))
	}
	return f
}

func sameFloatWidth(op Op, a, b stamp.Stamp) (*stamp.FloatStamp, *stamp.FloatStamp) {
	x, y := asFloat(op, a), asFloat(op, b)
	if x.Bits() != y.Bits() {
		panic(fmt.Sprintf("numstamp: %s of %s and %s", op, a, b))
	}
	return x, y
}

// rounder returns the rounding applied to results of the width. Sums,
// products and quotients of float32 values computed in float64 round to the
// same float32 as the direct operation.
func rounder(width int) func(float64) float64 {
	if width == 32 {
		return numutil.RoundFloat32
	}
	return func(f float64) float64 { return f }
}

// zeroBound folds -0.0 into 0.0; stamps do not track the sign of zero.
func zeroBound(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

func floatResult(width int, lower, upper float64, nonNaN bool) *stamp.FloatStamp {
	if math.IsNaN(lower) || math.IsNaN(upper) {
		return stamp.NaNFloat(width)
	}
	return stamp.NewFloat(width, zeroBound(lower), zeroBound(upper), nonNaN)
}

func foldFloatUnary(op Op, in stamp.Stamp) stamp.Stamp {
	s := asFloat(op, in)
	if s.IsEmpty() {
		return s
	}
	if op == OpNot {
		// The complement of a NaN pattern need not be NaN.
		return foldFloatBitwise(op, s, nil)
	}
	if s.IsNaN() {
		return s
	}
	w := s.Bits()
	lower, upper := s.LowerBound(), s.UpperBound()
	switch op {
	case OpNeg:
		return floatResult(w, -upper, -lower, s.IsNonNaN())
	case OpAbs:
		switch {
		case lower > 0:
			return floatResult(w, lower, upper, s.IsNonNaN())
		case upper < 0:
			return floatResult(w, -upper, -lower, s.IsNonNaN())
		}
		return floatResult(w, 0, max(math.Abs(lower), math.Abs(upper)), s.IsNonNaN())
	case OpSqrt:
		if upper < 0 {
			return stamp.NaNFloat(w)
		}
		round := rounder(w)
		return floatResult(w, round(math.Sqrt(max(lower, 0))), round(math.Sqrt(upper)), s.IsNonNaN() && lower >= 0)
	}
	panic(unsupported(op, in))
}

func foldFloatBinary(op Op, sa, sb stamp.Stamp) stamp.Stamp {
	a, b := sameFloatWidth(op, sa, sb)
	if a.IsEmpty() {
		return a
	}
	if b.IsEmpty() {
		return b
	}
	switch op {
	case OpRem, OpAnd, OpOr, OpXor:
		return foldFloatBitwise(op, a, b)
	}
	if a.IsNaN() {
		return a
	}
	if b.IsNaN() {
		return b
	}
	switch op {
	case OpAdd:
		return floatAddStamp(a, b)
	case OpSub:
		return floatSubStamp(a, b)
	case OpMul:
		return floatMulStamp(a, b)
	case OpDiv:
		return floatDivStamp(a, b)
	case OpMax:
		return floatResult(a.Bits(), max(a.LowerBound(), b.LowerBound()), max(a.UpperBound(), b.UpperBound()),
			a.IsNonNaN() && b.IsNonNaN())
	case OpMin:
		return floatResult(a.Bits(), min(a.LowerBound(), b.LowerBound()), min(a.UpperBound(), b.UpperBound()),
			a.IsNonNaN() && b.IsNonNaN())
	}
	panic(unsupported(op, sa))
}

// foldFloatBitwise covers the operators without a useful range rule: they
// only fold when every operand is a constant.
func foldFloatBitwise(op Op, a, b *stamp.FloatStamp) stamp.Stamp {
	ca, ok := a.AsConstant()
	if !ok {
		return a.Unrestricted()
	}
	var r constant.Value
	if b == nil {
		r, _ = evalFloatUnary(op, ca)
	} else {
		cb, ok := b.AsConstant()
		if !ok {
			return a.Unrestricted()
		}
		r, _ = evalFloatBinary(op, ca, cb)
	}
	return stamp.ForConstant(r)
}

func floatAddStamp(a, b *stamp.FloatStamp) stamp.Stamp {
	inf := math.Inf(1)
	round := rounder(a.Bits())
	nonNaN := a.IsNonNaN() && b.IsNonNaN() &&
		!((a.CanBeNegInf() && b.CanBePosInf()) || (a.CanBePosInf() && b.CanBeNegInf()))
	lower := round(a.LowerBound() + b.LowerBound())
	upper := round(a.UpperBound() + b.UpperBound())
	// -Inf + +Inf is NaN; the nearest non-NaN sums are the infinities.
	if (a.LowerBound() == inf && b.UpperBound() > -inf) || (a.UpperBound() > -inf && b.LowerBound() == inf) {
		lower = inf
	}
	if (a.LowerBound() < inf && b.UpperBound() == -inf) || (a.UpperBound() == -inf && b.LowerBound() < inf) {
		upper = -inf
	}
	return floatResult(a.Bits(), lower, upper, nonNaN)
}

func floatSubStamp(a, b *stamp.FloatStamp) stamp.Stamp {
	inf := math.Inf(1)
	round := rounder(a.Bits())
	nonNaN := a.IsNonNaN() && b.IsNonNaN() &&
		!((a.CanBeNegInf() && b.CanBeNegInf()) || (a.CanBePosInf() && b.CanBePosInf()))
	lower := round(a.LowerBound() - b.UpperBound())
	upper := round(a.UpperBound() - b.LowerBound())
	if (a.LowerBound() == inf && b.LowerBound() < inf) || (a.UpperBound() > -inf && b.UpperBound() == -inf) {
		lower = inf
	}
	if (a.LowerBound() < inf && b.LowerBound() == inf) || (a.UpperBound() == -inf && b.UpperBound() > -inf) {
		upper = -inf
	}
	return floatResult(a.Bits(), lower, upper, nonNaN)
}

// cornerRange returns the extremes of f over the corners of both ranges,
// skipping the 0*Inf style corners that produce NaN. The infinite limits next
// to such a corner are reached at another corner; the zero ones may not be,
// see withZero.
func cornerRange(a, b *stamp.FloatStamp, f func(x, y float64) float64) (lower, upper float64, ok bool) {
	round := rounder(a.Bits())
	lower, upper = math.Inf(1), math.Inf(-1)
	for _, x := range [2]float64{a.LowerBound(), a.UpperBound()} {
		for _, y := range [2]float64{b.LowerBound(), b.UpperBound()} {
			r := round(f(x, y))
			if math.IsNaN(r) {
				continue
			}
			lower, upper = min(lower, r), max(upper, r)
			ok = true
		}
	}
	return lower, upper, ok
}

// hasFinite reports whether s holds a finite value.
func hasFinite(s *stamp.FloatStamp) bool {
	return s.LowerBound() < s.UpperBound() || !math.IsInf(s.LowerBound(), 0)
}

// withZero widens a corner range to zero. A finite value times zero, or over
// an infinity, is zero even when every corner of the operands is NaN.
func withZero(lower, upper float64) (float64, float64, bool) {
	return min(lower, 0), max(upper, 0), true
}

func floatMulStamp(a, b *stamp.FloatStamp) stamp.Stamp {
	w := a.Bits()
	nonNaN := a.IsNonNaN() && b.IsNonNaN() &&
		!((a.Contains(0) && b.CanBeInf()) || (b.Contains(0) && a.CanBeInf()))
	lower, upper, ok := cornerRange(a, b, func(x, y float64) float64 { return x * y })
	if (a.Contains(0) && hasFinite(b)) || (b.Contains(0) && hasFinite(a)) {
		lower, upper, ok = withZero(lower, upper)
	}
	if !ok {
		return stamp.NaNFloat(w)
	}
	return floatResult(w, lower, upper, nonNaN)
}

func floatDivStamp(a, b *stamp.FloatStamp) stamp.Stamp {
	w := a.Bits()
	nonNaN := a.IsNonNaN() && b.IsNonNaN() &&
		!(a.CanBeInf() && b.CanBeInf()) && !(a.Contains(0) && b.Contains(0))
	if b.Contains(0) {
		// Dividing by zero of either sign reaches both infinities.
		if a.LowerBound() == 0 && a.UpperBound() == 0 && b.LowerBound() == 0 && b.UpperBound() == 0 {
			return stamp.NaNFloat(w)
		}
		return floatResult(w, math.Inf(-1), math.Inf(1), nonNaN)
	}
	lower, upper, ok := cornerRange(a, b, func(x, y float64) float64 { return x / y })
	if b.CanBeInf() && hasFinite(a) {
		lower, upper, ok = withZero(lower, upper)
	}
	if !ok {
		return stamp.NaNFloat(w)
	}
	return floatResult(w, lower, upper, nonNaN)
}

func foldFMA(sa, sb, sc stamp.Stamp) stamp.Stamp {
	a, b := sameFloatWidth(OpFMA, sa, sb)
	_, c := sameFloatWidth(OpFMA, sa, sc)
	for _, s := range []*stamp.FloatStamp{a, b, c} {
		if s.IsEmpty() {
			return s
		}
	}
	ca, okA := a.AsConstant()
	cb, okB := b.AsConstant()
	cc, okC := c.AsConstant()
	if !okA || !okB || !okC {
		return a.Unrestricted()
	}
	return stamp.ForConstant(evalFMA(ca, cb, cc))
}

func floatOperand(op Op, c constant.Value) float64 {
	if c.Kind() != constant.KindFloat || !op.Supports(stamp.KindFloat, c.Bits()) {
		panic(fmt.Sprintf("numstamp: %s is not defined on constant %s", op, c))
	}
	return c.Float64()
}

func evalFloatUnary(op Op, c constant.Value) (constant.Value, bool) {
	f, w := floatOperand(op, c), c.Bits()
	switch op {
	case OpNeg:
		return constant.Float(w, -f), true
	case OpAbs:
		return constant.Float(w, math.Abs(f)), true
	case OpSqrt:
		return constant.Float(w, math.Sqrt(f)), true
	case OpNot:
		return constant.FromBits(constant.KindFloat, w, ^c.Raw()), true
	}
	panic(fmt.Sprintf("numstamp: %s is not defined on constant %s", op, c))
}

func evalFloatBinary(op Op, ca, cb constant.Value) (constant.Value, bool) {
	x, y := floatOperand(op, ca), floatOperand(op, cb)
	w := ca.Bits()
	if cb.Bits() != w {
		panic(fmt.Sprintf("numstamp: %s of constants %s (f%d) and %s (f%d)", op, ca, w, cb, cb.Bits()))
	}
	switch op {
	case OpAdd:
		return constant.Float(w, x+y), true
	case OpSub:
		return constant.Float(w, x-y), true
	case OpMul:
		return constant.Float(w, x*y), true
	case OpDiv:
		return constant.Float(w, x/y), true
	case OpRem:
		return constant.Float(w, math.Mod(x, y)), true
	case OpMax:
		return constant.Float(w, max(x, y)), true
	case OpMin:
		return constant.Float(w, min(x, y)), true
	case OpAnd:
		return constant.FromBits(constant.KindFloat, w, ca.Raw()&cb.Raw()), true
	case OpOr:
		return constant.FromBits(constant.KindFloat, w, ca.Raw()|cb.Raw()), true
	case OpXor:
		return constant.FromBits(constant.KindFloat, w, ca.Raw()^cb.Raw()), true
	}
	panic(fmt.Sprintf("numstamp: %s is not defined on constant %s", op, ca))
}

// fmaPrecision holds any exact float32 product plus addend.
const fmaPrecision = 512

// evalFMA computes a*b+c with a single rounding.
func evalFMA(ca, cb, cc constant.Value) constant.Value {
	x, y, z := floatOperand(OpFMA, ca), floatOperand(OpFMA, cb), floatOperand(OpFMA, cc)
	w := ca.Bits()
	if cb.Bits() != w || cc.Bits() != w {
		panic(fmt.Sprintf("numstamp: fma of mixed widths %s, %s, %s", ca, cb, cc))
	}
	r := math.FMA(x, y, z)
	if w == 64 {
		return constant.Float64(r)
	}
	// float64 FMA rounds once to double and again to float; compute exactly
	// instead. Infinities, NaN and exact zeros already agree.
	if math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsInf(z, 0) || math.IsNaN(r) || r == 0 {
		return constant.Float32(float32(r))
	}
	p := new(big.Float).SetPrec(fmaPrecision)
	p.Mul(big.NewFloat(x), big.NewFloat(y))
	p.Add(p, big.NewFloat(z))
	f, _ := p.Float32()
	return constant.Float32(f)
}
