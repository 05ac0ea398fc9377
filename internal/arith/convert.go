package arith

import (
	"fmt"
	"math"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
	"numstamp/internal/stamp"
)

func checkIntegerConvert(op Op, inputBits, resultBits int) {
	if !constant.ValidIntBits(inputBits) || !constant.ValidIntBits(resultBits) {
		panic(fmt.Sprintf("numstamp: %s from i%d to i%d", op, inputBits, resultBits))
	}
	switch op {
	case OpZeroExtend, OpSignExtend:
		if resultBits < inputBits {
			panic(fmt.Sprintf("numstamp: %s cannot narrow i%d to i%d", op, inputBits, resultBits))
		}
	case OpNarrow:
		if resultBits > inputBits {
			panic(fmt.Sprintf("numstamp: narrow cannot widen i%d to i%d", inputBits, resultBits))
		}
	default:
		panic(fmt.Sprintf("numstamp: %s is not an integer conversion", op))
	}
}

func foldIntegerConvert(op Op, resultBits int, in stamp.Stamp) stamp.Stamp {
	s := asInteger(op, in)
	inputBits := s.Bits()
	checkIntegerConvert(op, inputBits, resultBits)
	if inputBits == resultBits {
		return s
	}
	if s.IsEmpty() {
		return stamp.EmptyInteger(resultBits)
	}
	rmask := numutil.Mask(resultBits)
	switch op {
	case OpZeroExtend:
		return stamp.CreateIntegerMasked(resultBits, s.UnsignedLowerBound(), s.UnsignedUpperBound(),
			uint64(numutil.ZeroExtend(int64(s.MustBeSet()), inputBits)),
			uint64(numutil.ZeroExtend(int64(s.MayBeSet()), inputBits)))
	case OpSignExtend:
		return stamp.CreateIntegerMasked(resultBits, s.LowerBound(), s.UpperBound(),
			uint64(numutil.SignExtend(int64(s.MustBeSet()), inputBits))&rmask,
			uint64(numutil.SignExtend(int64(s.MayBeSet()), inputBits))&rmask)
	}

	minR, maxR := numutil.MinValue(resultBits), numutil.MaxValue(resultBits)
	upper := stamp.Saturate(s.UpperBound(), resultBits)
	if s.LowerBound() < minR {
		upper = maxR
	}
	lower := stamp.Saturate(s.LowerBound(), resultBits)
	if s.UpperBound() > maxR {
		lower = minR
	}
	must := s.MustBeSet() & rmask
	may := s.MayBeSet() & rmask
	lower = numutil.SignExtend(int64((uint64(lower)|must)&may), resultBits)
	upper = numutil.SignExtend(int64((uint64(upper)|must)&may), resultBits)
	return stamp.CreateIntegerMasked(resultBits, lower, upper, must, may)
}

// invertIntegerConvert returns the inputs of inputBits whose conversion can
// land in out. Narrowing loses the high bits and has no useful inverse.
func invertIntegerConvert(op Op, inputBits int, outStamp stamp.Stamp) (stamp.Stamp, bool) {
	out := asInteger(op, outStamp)
	checkIntegerConvert(op, inputBits, out.Bits())
	if op == OpNarrow {
		return nil, false
	}
	if inputBits == out.Bits() {
		return out, true
	}
	if out.IsEmpty() {
		return stamp.EmptyInteger(inputBits), true
	}
	if op == OpZeroExtend {
		return invertZeroExtend(inputBits, out), true
	}
	return invertSignExtend(inputBits, out), true
}

func invertZeroExtend(inputBits int, out *stamp.IntegerStamp) stamp.Stamp {
	empty := stamp.EmptyInteger(inputBits)
	if out.MustBeSet()>>uint(inputBits) != 0 || out.UpperBound() < 0 {
		return empty
	}
	lower := max(out.LowerBound(), 0)
	upper := min(out.UpperBound(), numutil.MaxValueUnsigned(inputBits))
	if lower > upper {
		return empty
	}
	return stamp.ForUnsignedIntegerWithMask(inputBits, lower, upper, out.MustBeSet(), out.MayBeSet())
}

func invertSignExtend(inputBits int, out *stamp.IntegerStamp) stamp.Stamp {
	empty := stamp.EmptyInteger(inputBits)
	in := uint(inputBits)
	extMust := out.MustBeSet() >> in
	extMay := out.MayBeSet() >> in
	extMask := numutil.Mask(out.Bits()) >> in
	zeroInExt := extMay != extMask
	oneInExt := extMust != 0
	sign := uint64(1) << (in - 1)
	msbOne := out.MustBeSet()&sign != 0
	msbZero := out.MayBeSet()&sign == 0
	if (zeroInExt && oneInExt) || (msbOne && zeroInExt) || (msbZero && oneInExt) {
		return empty
	}

	inMask := numutil.Mask(inputBits)
	must := out.MustBeSet() & inMask
	may := out.MayBeSet() & inMask
	if !msbOne && !msbZero {
		// The extension bits decide the sign.
		if zeroInExt {
			must &^= sign
			may &^= sign
		} else if oneInExt {
			must |= sign
			may |= sign
		}
	}
	byMasks := stamp.StampForMask(inputBits, must, may)
	if byMasks.IsEmpty() {
		return empty
	}
	lower := max(out.LowerBound(), byMasks.LowerBound())
	upper := min(out.UpperBound(), byMasks.UpperBound())
	if lower > upper {
		return empty
	}
	return stamp.ForIntegerWithMask(inputBits, lower, upper, must, may)
}

func evalIntegerConvert(op Op, resultBits int, c constant.Value) constant.Value {
	v := intOperand(op, c)
	checkIntegerConvert(op, c.Bits(), resultBits)
	if op == OpZeroExtend {
		v = numutil.ZeroExtend(v, c.Bits())
	}
	return constant.Int(resultBits, v)
}

func asFloatConvertInput(op Op, s stamp.Stamp) floatConvert {
	conv, ok := convertTable[op]
	if !ok {
		panic(fmt.Sprintf("numstamp: %s is not a float conversion", op))
	}
	if s.Kind() != conv.from || !op.Supports(s.Kind(), bitsOf(s)) {
		panic(unsupported(op, s))
	}
	return conv
}

func bitsOf(s stamp.Stamp) int {
	switch t := s.(type) {
	case *stamp.IntegerStamp:
		return t.Bits()
	case *stamp.FloatStamp:
		return t.Bits()
	}
	return 0
}

func foldFloatConvert(op Op, in stamp.Stamp) stamp.Stamp {
	conv := asFloatConvertInput(op, in)
	if in.IsEmpty() {
		if conv.to == stamp.KindInteger {
			return stamp.EmptyInteger(conv.toBits)
		}
		return stamp.EmptyFloat(conv.toBits)
	}
	if i, ok := in.(*stamp.IntegerStamp); ok {
		round := func(v int64) float64 { return float64(v) }
		if conv.toBits == 32 {
			round = func(v int64) float64 { return float64(float32(v)) }
		}
		return stamp.ForFloat(conv.toBits, round(i.LowerBound()), round(i.UpperBound()), true)
	}

	f := in.(*stamp.FloatStamp)
	if conv.to == stamp.KindFloat {
		if f.IsNaN() {
			return stamp.NaNFloat(conv.toBits)
		}
		lower, upper := f.LowerBound(), f.UpperBound()
		if conv.toBits == 32 {
			lower, upper = numutil.RoundFloat32(lower), numutil.RoundFloat32(upper)
		}
		return stamp.ForFloat(conv.toBits, lower, upper, f.IsNonNaN())
	}

	if conv.unsigned {
		saturate := numutil.SaturatingUint64
		if conv.toBits == 32 {
			saturate = numutil.SaturatingUint32
		}
		var lower int64
		if f.IsNonNaN() {
			lower = saturate(f.LowerBound())
		}
		return stamp.ForUnsignedInteger(conv.toBits, lower, saturate(f.UpperBound()))
	}
	saturate := numutil.SaturatingInt64
	if conv.toBits == 32 {
		saturate = func(v float64) int64 { return int64(numutil.SaturatingInt32(v)) }
	}
	lower, upper := saturate(f.LowerBound()), saturate(f.UpperBound())
	if f.CanBeNaN() {
		// NaN converts to zero.
		if lower > 0 {
			lower = 0
		} else if upper < 0 {
			upper = 0
		}
	}
	return stamp.ForInteger(conv.toBits, lower, upper)
}

// CanOverflowInteger reports whether converting a member of s with op can
// saturate or hit NaN. It is false for every op that does not produce an
// integer from a float.
func CanOverflowInteger(op Op, s stamp.Stamp) bool {
	conv, ok := convertTable[op]
	if !ok || conv.from != stamp.KindFloat || conv.to != stamp.KindInteger {
		return false
	}
	f, ok := s.(*stamp.FloatStamp)
	if !ok || f.Bits() != conv.fromBits {
		panic(unsupported(op, s))
	}
	return stamp.FloatingToIntegerCanOverflow(f, conv.toBits, conv.unsigned)
}

func evalFloatConvert(op Op, c constant.Value) constant.Value {
	conv, ok := convertTable[op]
	if !ok {
		panic(fmt.Sprintf("numstamp: %s is not a float conversion", op))
	}
	want := constant.KindInt
	if conv.from == stamp.KindFloat {
		want = constant.KindFloat
	}
	if c.Kind() != want || c.Bits() != conv.fromBits {
		panic(fmt.Sprintf("numstamp: %s is not defined on constant %s", op, c))
	}
	if want == constant.KindInt {
		v := c.Int64()
		if conv.toBits == 32 {
			return constant.Float32(float32(v))
		}
		return constant.Float64(float64(v))
	}
	f := c.Float64()
	switch {
	case conv.to == stamp.KindFloat:
		return constant.Float(conv.toBits, f)
	case conv.unsigned && conv.toBits == 32:
		return constant.Int(32, numutil.SaturatingUint32(f))
	case conv.unsigned:
		return constant.Int(64, numutil.SaturatingUint64(f))
	case conv.toBits == 32:
		return constant.Int(32, int64(numutil.SaturatingInt32(f)))
	}
	return constant.Int(64, numutil.SaturatingInt64(f))
}

// Reinterpretation keeps the bit pattern and switches between the integer
// and float view of the same width.

func foldReinterpret(in stamp.Stamp) stamp.Stamp {
	switch s := in.(type) {
	case *stamp.IntegerStamp:
		if !OpReinterpret.Supports(stamp.KindInteger, s.Bits()) {
			panic(unsupported(OpReinterpret, in))
		}
		return integerBitsToFloat(s)
	case *stamp.FloatStamp:
		return floatBitsToInteger(s)
	}
	panic(unsupported(OpReinterpret, in))
}

func floatFromBits(width int, pattern int64) float64 {
	if width == 32 {
		return float64(math.Float32frombits(uint32(pattern)))
	}
	return math.Float64frombits(uint64(pattern))
}

func bitsFromFloat(width int, f float64) int64 {
	if width == 32 {
		return int64(int32(math.Float32bits(float32(f))))
	}
	return int64(math.Float64bits(f))
}

func integerBitsToFloat(s *stamp.IntegerStamp) stamp.Stamp {
	w := s.Bits()
	if s.IsEmpty() {
		return stamp.EmptyFloat(w)
	}
	if c, ok := s.AsConstant(); ok {
		return stamp.FloatForConstant(constant.FromBits(constant.KindFloat, w, c.Raw()))
	}
	infBits := bitsFromFloat(w, math.Inf(1))
	// Patterns ordered as signed integers are monotone in magnitude within
	// each sign half, with NaNs above the infinity pattern.
	half := func(lo, hi int64, negative bool) *stamp.FloatStamp {
		switch {
		case lo > infBits:
			return stamp.NaNFloat(w)
		case hi <= infBits:
			a, b := floatFromBits(w, lo), floatFromBits(w, hi)
			if negative {
				return stamp.NewFloat(w, -b, -a, true)
			}
			return stamp.NewFloat(w, a, b, true)
		}
		a := floatFromBits(w, lo)
		if negative {
			return stamp.NewFloat(w, math.Inf(-1), -a, false)
		}
		return stamp.NewFloat(w, a, math.Inf(1), false)
	}
	var result stamp.Stamp = stamp.EmptyFloat(w)
	if s.UpperBound() >= 0 {
		result = result.Meet(half(max(s.LowerBound(), 0), s.UpperBound(), false))
	}
	if s.LowerBound() < 0 {
		magnitude := numutil.MaxValue(w)
		lo, hi := s.LowerBound()&magnitude, min(s.UpperBound(), -1)&magnitude
		result = result.Meet(half(lo, hi, true))
	}
	return result
}

func floatBitsToInteger(s *stamp.FloatStamp) stamp.Stamp {
	w := s.Bits()
	if s.IsEmpty() {
		return stamp.EmptyInteger(w)
	}
	if s.IsConstant() {
		return stamp.IntegerConstant(w, bitsFromFloat(w, s.LowerBound()))
	}
	if s.CanBeNaN() {
		return stamp.UnrestrictedInteger(w)
	}
	lower, upper := s.LowerBound(), s.UpperBound()
	switch {
	case lower > 0:
		return stamp.IntegerRange(w, bitsFromFloat(w, lower), bitsFromFloat(w, upper))
	case upper < 0:
		return stamp.IntegerRange(w, bitsFromFloat(w, upper), bitsFromFloat(w, lower))
	}
	// The range holds zero of either sign.
	negative := stamp.IntegerRange(w, numutil.MinValue(w), bitsFromFloat(w, math.Copysign(lower, -1)))
	positive := stamp.IntegerRange(w, 0, bitsFromFloat(w, math.Abs(upper)))
	return negative.Meet(positive)
}

func evalReinterpret(c constant.Value) constant.Value {
	switch c.Kind() {
	case constant.KindInt:
		if !OpReinterpret.Supports(stamp.KindInteger, c.Bits()) {
			break
		}
		return constant.FromBits(constant.KindFloat, c.Bits(), c.Raw())
	case constant.KindFloat:
		return constant.FromBits(constant.KindInt, c.Bits(), c.Raw())
	}
	panic(fmt.Sprintf("numstamp: reinterpret is not defined on constant %s", c))
}
