package arith

import (
	"fmt"
	"math"
	"math/bits"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
	"numstamp/internal/stamp"
)

func asInteger(op Op, s stamp.Stamp) *stamp.IntegerStamp {
	i, ok := s.(*stamp.IntegerStamp)
	if !ok || !op.Supports(stamp.KindInteger, i.Bits()) {
		panic(unsupported(op, s))
	}
	return i
}

func sameIntegerWidth(op Op, a, b stamp.Stamp) (*stamp.IntegerStamp, *stamp.IntegerStamp) {
	x, y := asInteger(op, a), asInteger(op, b)
	if x.Bits() != y.Bits() {
		panic(fmt.Sprintf("numstamp: %s of %s and %s", op, a, b))
	}
	return x, y
}

func isSingleton(s *stamp.IntegerStamp) bool {
	return s.LowerBound() == s.UpperBound()
}

// wrap truncates v to the width and sign-extends it back.
func wrap(v int64, width int) int64 {
	return numutil.Narrow(v, width)
}

func foldIntegerUnary(op Op, in stamp.Stamp) stamp.Stamp {
	s := asInteger(op, in)
	if s.IsEmpty() {
		return s
	}
	w := s.Bits()
	switch op {
	case OpNeg:
		if isSingleton(s) {
			return stamp.IntegerConstant(w, wrap(-s.LowerBound(), w))
		}
		if s.LowerBound() != numutil.MinValue(w) {
			return stamp.IntegerRange(w, -s.UpperBound(), -s.LowerBound())
		}
		return s.Unrestricted()
	case OpNot:
		mask := numutil.Mask(w)
		return stamp.CreateIntegerMasked(w, ^s.UpperBound(), ^s.LowerBound(), ^s.MayBeSet()&mask, ^s.MustBeSet()&mask)
	case OpAbs:
		lo, hi := s.LowerBound(), s.UpperBound()
		switch {
		case lo == hi:
			return stamp.IntegerConstant(w, wrap(absInt(lo), w))
		case lo == numutil.MinValue(w):
			return s.Unrestricted()
		case lo >= 0:
			return s
		case hi <= 0:
			return stamp.IntegerRange(w, -hi, -lo)
		}
		return stamp.IntegerRange(w, 0, max(-lo, hi))
	}
	panic(unsupported(op, in))
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func foldIntegerBinary(op Op, sa, sb stamp.Stamp) stamp.Stamp {
	a, b := sameIntegerWidth(op, sa, sb)
	if a.IsEmpty() {
		return a
	}
	if b.IsEmpty() {
		return b
	}
	switch op {
	case OpAdd:
		return addStamp(a, b)
	case OpSub:
		return addStamp(a, foldIntegerUnary(OpNeg, b).(*stamp.IntegerStamp))
	case OpMul:
		return mulStamp(a, b)
	case OpMulHigh:
		return mulHighStamp(a, b, false)
	case OpUMulHigh:
		return mulHighStamp(a, b, true)
	case OpDiv:
		return divStamp(a, b)
	case OpRem:
		return remStamp(a, b)
	case OpAnd:
		return stamp.StampForMask(a.Bits(), a.MustBeSet()&b.MustBeSet(), a.MayBeSet()&b.MayBeSet())
	case OpOr:
		return stamp.StampForMask(a.Bits(), a.MustBeSet()|b.MustBeSet(), a.MayBeSet()|b.MayBeSet())
	case OpXor:
		variable := (a.MustBeSet() ^ a.MayBeSet()) | (b.MustBeSet() ^ b.MayBeSet())
		known := a.MustBeSet() ^ b.MustBeSet()
		return stamp.StampForMask(a.Bits(), known&^variable, known|variable)
	case OpMax:
		return stamp.CreateIntegerMasked(a.Bits(), max(a.LowerBound(), b.LowerBound()), max(a.UpperBound(), b.UpperBound()),
			a.MustBeSet()&b.MustBeSet(), a.MayBeSet()|b.MayBeSet())
	case OpMin:
		return stamp.CreateIntegerMasked(a.Bits(), min(a.LowerBound(), b.LowerBound()), min(a.UpperBound(), b.UpperBound()),
			a.MustBeSet()&b.MustBeSet(), a.MayBeSet()|b.MayBeSet())
	case OpUMax:
		return unsignedMinMaxStamp(a, b, numutil.MaxUnsigned)
	case OpUMin:
		return unsignedMinMaxStamp(a, b, numutil.MinUnsigned)
	case OpCompress:
		return compressStamp(a, b)
	case OpExpand:
		return stamp.StampForMask(b.Bits(), 0, b.MayBeSet())
	}
	panic(unsupported(op, sa))
}

// addStamp combines carry-aware mask propagation with bound arithmetic that
// gives up only when exactly one of the bounds wraps.
func addStamp(a, b *stamp.IntegerStamp) stamp.Stamp {
	w := a.Bits()
	if isSingleton(a) && isSingleton(b) {
		return stamp.IntegerConstant(w, wrap(a.LowerBound()+b.LowerBound(), w))
	}
	if a.IsUnrestricted() {
		return a
	}
	if b.IsUnrestricted() {
		return b
	}
	mask := numutil.Mask(w)
	variable := (a.MustBeSet() ^ a.MayBeSet()) | (b.MustBeSet() ^ b.MayBeSet())
	carries := stamp.CarryBits(int64(a.MustBeSet()), int64(b.MustBeSet())) ^ stamp.CarryBits(int64(a.MayBeSet()), int64(b.MayBeSet()))
	variable |= uint64(carries)
	sum := a.MustBeSet() + b.MustBeSet()
	must := sum &^ variable & mask
	may := (sum | variable) & mask

	var lower, upper int64
	lowerPos := stamp.AddOverflowsPositively(a.LowerBound(), b.LowerBound(), w)
	upperPos := stamp.AddOverflowsPositively(a.UpperBound(), b.UpperBound(), w)
	lowerNeg := stamp.AddOverflowsNegatively(a.LowerBound(), b.LowerBound(), w)
	upperNeg := stamp.AddOverflowsNegatively(a.UpperBound(), b.UpperBound(), w)
	if (lowerNeg && !upperNeg) || (!lowerPos && upperPos) {
		lower, upper = numutil.MinValue(w), numutil.MaxValue(w)
	} else {
		lower = wrap(a.LowerBound()+b.LowerBound(), w)
		upper = wrap(a.UpperBound()+b.UpperBound(), w)
	}

	limit := stamp.IntegerRange(w, lower, upper)
	may &= limit.MayBeSet()
	upper = numutil.SignExtend(int64(uint64(upper)&may), w)
	must |= limit.MustBeSet()
	lower = numutil.SignExtend(lower|int64(must), w)
	return stamp.CreateIntegerMasked(w, lower, upper, must, may)
}

// mulStamp takes the extreme products of each sign quadrant; any overflow
// among them loses the range.
func mulStamp(a, b *stamp.IntegerStamp) stamp.Stamp {
	w := a.Bits()
	if isSingleton(a) && isSingleton(b) {
		return stamp.IntegerConstant(w, wrap(a.LowerBound()*b.LowerBound(), w))
	}
	switch {
	case a.MayBeSet() == 0:
		return a
	case b.MayBeSet() == 0:
		return b
	case a.IsUnrestricted():
		return a
	case b.IsUnrestricted():
		return b
	}
	minNegA, maxNegA := a.LowerBound(), min(0, a.UpperBound())
	minPosA, maxPosA := max(0, a.LowerBound()), a.UpperBound()
	minNegB, maxNegB := b.LowerBound(), min(0, b.UpperBound())
	minPosB, maxPosB := max(0, b.LowerBound()), b.UpperBound()

	lower, upper := int64(math.MaxInt64), int64(math.MinInt64)
	candidate := func(lo1, lo2, hi1, hi2 int64) bool {
		if stamp.MultiplicationOverflows(hi1, hi2, w) || stamp.MultiplicationOverflows(lo1, lo2, w) {
			return false
		}
		lower = min(lower, lo1*lo2)
		upper = max(upper, hi1*hi2)
		return true
	}
	if a.CanBePositive() {
		if b.CanBePositive() && !candidate(minPosA, minPosB, maxPosA, maxPosB) {
			return a.Unrestricted()
		}
		if b.CanBeNegative() && !candidate(maxPosA, minNegB, minPosA, maxNegB) {
			return a.Unrestricted()
		}
	}
	if a.CanBeNegative() {
		if b.CanBePositive() && !candidate(minNegA, maxPosB, maxNegA, minPosB) {
			return a.Unrestricted()
		}
		if b.CanBeNegative() && !candidate(maxNegA, maxNegB, minNegA, minNegB) {
			return a.Unrestricted()
		}
	}
	// Trailing zeros of the factors add up in the product.
	zeros := min(64, bits.TrailingZeros64(a.MayBeSet())+bits.TrailingZeros64(b.MayBeSet()))
	may := ^numutil.Mask(zeros) & numutil.Mask(w)
	return stamp.ForIntegerWithMask(w, lower, upper, 0, may)
}

func mulHighStamp(a, b *stamp.IntegerStamp, unsigned bool) stamp.Stamp {
	w := a.Bits()
	if a.IsUnrestricted() || b.IsUnrestricted() {
		return a.Unrestricted()
	}
	xs := [2]int64{a.LowerBound(), a.UpperBound()}
	ys := [2]int64{b.LowerBound(), b.UpperBound()}
	if unsigned {
		xs, ys = unsignedExtremes(a), unsignedExtremes(b)
	}
	lower, upper := int64(math.MaxInt64), int64(math.MinInt64)
	for _, x := range xs {
		for _, y := range ys {
			var r int64
			if unsigned {
				r = umulHigh(x, y, w)
			} else {
				r = mulHigh(x, y, w)
			}
			lower, upper = min(lower, r), max(upper, r)
		}
	}
	// A negative high word means the unsigned order no longer matches the
	// signed one.
	if unsigned && lower != upper && lower < 0 {
		return a.Unrestricted()
	}
	return stamp.IntegerRange(w, lower, upper)
}

func unsignedExtremes(s *stamp.IntegerStamp) [2]int64 {
	if s.LowerBound() < 0 && s.UpperBound() >= 0 {
		return [2]int64{0, -1}
	}
	return [2]int64{s.LowerBound(), s.UpperBound()}
}

// mulHigh is the high word of the signed double-width product.
func mulHigh(x, y int64, width int) int64 {
	if width == 32 {
		return (x * y) >> 32
	}
	hi, _ := bits.Mul64(uint64(x), uint64(y))
	return int64(hi) - (x>>63)&y - (y>>63)&x
}

// umulHigh is the high word of the unsigned double-width product, read back
// as a signed value of the width.
func umulHigh(x, y int64, width int) int64 {
	if width == 32 {
		return int64(int32((uint64(uint32(x)) * uint64(uint32(y))) >> 32))
	}
	hi, _ := bits.Mul64(uint64(x), uint64(y))
	return int64(hi)
}

func divStamp(a, b *stamp.IntegerStamp) stamp.Stamp {
	w := a.Bits()
	if isSingleton(a) && isSingleton(b) && b.LowerBound() != 0 {
		return stamp.IntegerConstant(w, wrap(a.LowerBound()/b.LowerBound(), w))
	}
	if !b.IsStrictlyPositive() {
		return a.Unrestricted()
	}
	var lower, upper int64
	if a.LowerBound() < 0 {
		lower = a.LowerBound() / b.LowerBound()
	} else {
		lower = a.LowerBound() / b.UpperBound()
	}
	if a.UpperBound() < 0 {
		upper = a.UpperBound() / b.UpperBound()
	} else {
		upper = a.UpperBound() / b.LowerBound()
	}
	return stamp.IntegerRange(w, lower, upper)
}

// remStamp bounds the remainder by the dividend's sign and the divisor's
// magnitude.
func remStamp(a, b *stamp.IntegerStamp) stamp.Stamp {
	w := a.Bits()
	if isSingleton(a) && isSingleton(b) && b.LowerBound() != 0 {
		return stamp.IntegerConstant(w, wrap(a.LowerBound()%b.LowerBound(), w))
	}
	lower, upper := min(a.LowerBound(), 0), max(a.UpperBound(), 0)
	var magnitude int64
	if b.LowerBound() == numutil.MinValue(w) {
		magnitude = numutil.MaxValue(w)
	} else {
		magnitude = max(absInt(b.LowerBound()), absInt(b.UpperBound())) - 1
	}
	lower = max(lower, -magnitude)
	upper = min(upper, magnitude)
	if lower > upper {
		return a.Unrestricted()
	}
	return stamp.IntegerRange(w, lower, upper)
}

// unsignedMinMaxStamp is exact only when neither range straddles the sign
// boundary; otherwise the result is one of the operands and the meet covers it.
func unsignedMinMaxStamp(a, b *stamp.IntegerStamp, pick func(int64, int64) int64) stamp.Stamp {
	if !a.SameSignBounds() || !b.SameSignBounds() {
		return a.Meet(b)
	}
	return stamp.ForUnsignedIntegerWithMask(a.Bits(),
		pick(a.UnsignedLowerBound(), b.UnsignedLowerBound()),
		pick(a.UnsignedUpperBound(), b.UnsignedUpperBound()),
		a.MustBeSet()&b.MustBeSet(), a.MayBeSet()|b.MayBeSet())
}

func compressStamp(value, mask *stamp.IntegerStamp) stamp.Stamp {
	w := value.Bits()
	all := numutil.Mask(w)
	if mask.MayBeSet() == all && value.CanBeNegative() {
		// Only an all-ones mask keeps the sign bit, and then the result is the
		// value itself.
		return stamp.IntegerRange(w, value.LowerBound(), numutil.MaxValue(w))
	}
	lower := int64(compressBits(value.MustBeSet(), mask.MustBeSet(), w))
	upper := int64(compressBits(value.MayBeSet(), mask.MayBeSet(), w))
	return stamp.CreateIntegerMasked(w, lower, upper, 0, compressBits(all, mask.MayBeSet(), w))
}

// compressBits gathers the bits of v selected by mask into the low end.
func compressBits(v, mask uint64, width int) uint64 {
	mask &= numutil.Mask(width)
	var r uint64
	out := 0
	for mask != 0 {
		pos := bits.TrailingZeros64(mask)
		r |= (v >> uint(pos) & 1) << uint(out)
		out++
		mask &= mask - 1
	}
	return r
}

// expandBits scatters the low bits of v to the positions selected by mask.
func expandBits(v, mask uint64, width int) uint64 {
	mask &= numutil.Mask(width)
	var r uint64
	in := 0
	for mask != 0 {
		pos := bits.TrailingZeros64(mask)
		r |= (v >> uint(in) & 1) << uint(pos)
		in++
		mask &= mask - 1
	}
	return r
}

func intOperand(op Op, c constant.Value) int64 {
	if c.Kind() != constant.KindInt || !op.Supports(stamp.KindInteger, c.Bits()) {
		panic(fmt.Sprintf("numstamp: %s is not defined on constant %s", op, c))
	}
	return c.Int64()
}

func evalIntegerUnary(op Op, c constant.Value) (constant.Value, bool) {
	v, w := intOperand(op, c), c.Bits()
	switch op {
	case OpNeg:
		return constant.Int(w, -v), true
	case OpNot:
		return constant.Int(w, ^v), true
	case OpAbs:
		return constant.Int(w, absInt(v)), true
	}
	panic(fmt.Sprintf("numstamp: %s is not defined on constant %s", op, c))
}

func evalIntegerBinary(op Op, ca, cb constant.Value) (constant.Value, bool) {
	a, b := intOperand(op, ca), intOperand(op, cb)
	w := ca.Bits()
	if cb.Bits() != w {
		panic(fmt.Sprintf("numstamp: %s of constants %s (i%d) and %s (i%d)", op, ca, w, cb, cb.Bits()))
	}
	var r int64
	switch op {
	case OpAdd:
		r = a + b
	case OpSub:
		r = a - b
	case OpMul:
		r = a * b
	case OpMulHigh:
		r = mulHigh(a, b, w)
	case OpUMulHigh:
		r = umulHigh(a, b, w)
	case OpDiv:
		if b == 0 {
			return constant.Value{}, false
		}
		r = a / b
	case OpRem:
		if b == 0 {
			return constant.Value{}, false
		}
		r = a % b
	case OpAnd:
		r = a & b
	case OpOr:
		r = a | b
	case OpXor:
		r = a ^ b
	case OpMax:
		r = max(a, b)
	case OpMin:
		r = min(a, b)
	case OpUMax:
		r = numutil.MaxUnsigned(numutil.ZeroExtend(a, w), numutil.ZeroExtend(b, w))
	case OpUMin:
		r = numutil.MinUnsigned(numutil.ZeroExtend(a, w), numutil.ZeroExtend(b, w))
	case OpCompress:
		r = int64(compressBits(uint64(a), uint64(b), w))
	case OpExpand:
		r = int64(expandBits(uint64(a), uint64(b), w))
	default:
		panic(fmt.Sprintf("numstamp: %s is not defined on constant %s", op, ca))
	}
	return constant.Int(w, r), true
}
