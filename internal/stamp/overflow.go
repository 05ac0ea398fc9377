package stamp

import (
	"math"

	"numstamp/internal/numutil"
)

// AddOverflowsPositively reports whether x+y exceeds the width's maximum.
func AddOverflowsPositively(x, y int64, width int) bool {
	r := x + y
	if width == 64 {
		return ^x&^y&r < 0
	}
	return r > numutil.MaxValue(width)
}

// AddOverflowsNegatively reports whether x+y falls below the width's minimum.
func AddOverflowsNegatively(x, y int64, width int) bool {
	r := x + y
	if width == 64 {
		return x&y&^r < 0
	}
	return r < numutil.MinValue(width)
}

// AddCanOverflow reports whether any pair of members can overflow on addition.
func AddCanOverflow(a, b *IntegerStamp) bool {
	checkSameWidth("add overflow", a, b)
	return AddOverflowsPositively(a.upperBound, b.upperBound, a.width) ||
		AddOverflowsNegatively(a.lowerBound, b.lowerBound, a.width)
}

// CarryBits returns the positions a carry passed through when adding x and y.
func CarryBits(x, y int64) int64 {
	return (x + y) ^ x ^ y
}

// Saturate clamps v to the signed range of the width.
func Saturate(v int64, width int) int64 {
	if width < 64 {
		if hi := numutil.MaxValue(width); v > hi {
			return hi
		}
		if lo := numutil.MinValue(width); v < lo {
			return lo
		}
	}
	return v
}

// MultiplicationOverflows reports whether a*b leaves the signed range of the
// width. At 64 bits the check divides instead of widening.
func MultiplicationOverflows(a, b int64, width int) bool {
	if width == 64 {
		switch {
		case a > 0 && b > 0:
			return a > math.MaxInt64/b
		case a > 0:
			return b < math.MinInt64/a
		case b > 0:
			return a < math.MinInt64/b
		default:
			return a != 0 && b < math.MaxInt64/a
		}
	}
	r := a * b
	if (a >= 0 && b >= 0) || (a < 0 && b < 0) {
		return r > numutil.MaxValue(width)
	}
	return r < numutil.MinValue(width)
}

// MultiplicationCanOverflow checks the extreme products of every sign
// quadrant the operands can reach.
func MultiplicationCanOverflow(a, b *IntegerStamp) bool {
	checkSameWidth("multiplication overflow", a, b)
	if a.mayBeSet == 0 || b.mayBeSet == 0 {
		return false
	}
	if a.IsUnrestricted() || b.IsUnrestricted() {
		return true
	}
	w := a.width
	minNegA, maxNegA := a.lowerBound, min(0, a.upperBound)
	minPosA, maxPosA := max(0, a.lowerBound), a.upperBound
	minNegB, maxNegB := b.lowerBound, min(0, b.upperBound)
	minPosB, maxPosB := max(0, b.lowerBound), b.upperBound

	overflow := false
	if a.CanBePositive() {
		if b.CanBePositive() {
			overflow = overflow || MultiplicationOverflows(maxPosA, maxPosB, w) || MultiplicationOverflows(minPosA, minPosB, w)
		}
		if b.CanBeNegative() {
			overflow = overflow || MultiplicationOverflows(minPosA, maxNegB, w) || MultiplicationOverflows(maxPosA, minNegB, w)
		}
	}
	if a.CanBeNegative() {
		if b.CanBePositive() {
			overflow = overflow || MultiplicationOverflows(maxNegA, minPosB, w) || MultiplicationOverflows(minNegA, maxPosB, w)
		}
		if b.CanBeNegative() {
			overflow = overflow || MultiplicationOverflows(minNegA, minNegB, w) || MultiplicationOverflows(maxNegA, maxNegB, w)
		}
	}
	return overflow
}

// SubtractionOverflows reports whether x-y leaves the signed range.
func SubtractionOverflows(x, y int64, width int) bool {
	r := x - y
	if width == 64 {
		return (x^y)&(x^r) < 0
	}
	return r < numutil.MinValue(width) || r > numutil.MaxValue(width)
}

// SubtractionCanOverflow checks the two cross differences of the bounds.
func SubtractionCanOverflow(x, y *IntegerStamp) bool {
	checkSameWidth("subtraction overflow", x, y)
	return SubtractionOverflows(x.lowerBound, y.upperBound, x.width) ||
		SubtractionOverflows(x.upperBound, y.lowerBound, x.width)
}

// NegateCanOverflow is true iff the stamp contains the width's minimum.
func NegateCanOverflow(s *IntegerStamp) bool {
	return s.lowerBound == numutil.MinValue(s.width)
}

func checkSameWidth(op string, a, b *IntegerStamp) {
	if a.width != b.width {
		panic(mismatch(op, a, b))
	}
}
