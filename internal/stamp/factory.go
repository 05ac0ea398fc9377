package stamp

import (
	"fmt"
	"math"
	"math/bits"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
)

// canonical holds the shared stamps, indexed by log2 of the width. It is
// filled once during package initialization and never written afterwards.
var canonical = struct {
	unrestrictedInt [7]*IntegerStamp
	emptyInt        [7]*IntegerStamp
	unrestrictedFlt [7]*FloatStamp
	emptyFlt        [7]*FloatStamp
	nanFlt          [7]*FloatStamp
	boolTrue        *IntegerStamp
	boolFalse       *IntegerStamp
	positiveInt     *IntegerStamp
}{}

func init() {
	for _, w := range []int{1, 8, 16, 32, 64} {
		i := widthIndex(w)
		canonical.unrestrictedInt[i] = newUnrestrictedInteger(w)
		canonical.emptyInt[i] = newEmptyInteger(w)
	}
	for _, w := range []int{32, 64} {
		i := widthIndex(w)
		canonical.unrestrictedFlt[i] = NewFloat(w, math.Inf(-1), math.Inf(1), false)
		canonical.emptyFlt[i] = NewFloat(w, math.Inf(1), math.Inf(-1), true)
		canonical.nanFlt[i] = NewFloat(w, math.NaN(), math.NaN(), false)
	}
	canonical.boolTrue = IntegerConstant(1, -1)
	canonical.boolFalse = IntegerConstant(1, 0)
	canonical.positiveInt = IntegerRange(32, 0, math.MaxInt32)
}

func widthIndex(w int) int {
	return bits.TrailingZeros(uint(w))
}

// UnrestrictedInteger returns the shared top stamp of the width.
func UnrestrictedInteger(width int) *IntegerStamp {
	checkIntegerBits(width)
	return canonical.unrestrictedInt[widthIndex(width)]
}

// EmptyInteger returns the shared bottom stamp of the width.
func EmptyInteger(width int) *IntegerStamp {
	checkIntegerBits(width)
	return canonical.emptyInt[widthIndex(width)]
}

func UnrestrictedFloat(width int) *FloatStamp {
	checkFloatBits(width)
	return canonical.unrestrictedFlt[widthIndex(width)]
}

func EmptyFloat(width int) *FloatStamp {
	checkFloatBits(width)
	return canonical.emptyFlt[widthIndex(width)]
}

// NaNFloat returns the stamp that holds only NaN.
func NaNFloat(width int) *FloatStamp {
	checkFloatBits(width)
	return canonical.nanFlt[widthIndex(width)]
}

// True and False are the 1-bit constants; true is the all-ones pattern.
func True() *IntegerStamp  { return canonical.boolTrue }
func False() *IntegerStamp { return canonical.boolFalse }

// PositiveInt is the 32-bit range [0, MaxInt32].
func PositiveInt() *IntegerStamp { return canonical.positiveInt }

// ForInteger returns the range stamp [lower, upper].
func ForInteger(width int, lower, upper int64) *IntegerStamp {
	return IntegerRange(width, lower, upper)
}

// ForIntegerWithMask combines a range with explicit bit knowledge.
func ForIntegerWithMask(width int, lower, upper int64, must, may uint64) *IntegerStamp {
	limit := IntegerRange(width, lower, upper)
	return CreateIntegerMasked(width, lower, upper, limit.mustBeSet|must, limit.mayBeSet&may)
}

// ForUnsignedInteger builds a stamp from an unsigned range. A range crossing
// the sign boundary cannot be expressed as a signed interval and widens to
// the full signed range.
func ForUnsignedInteger(width int, unsignedLower, unsignedUpper int64) *IntegerStamp {
	return ForUnsignedIntegerWithMask(width, unsignedLower, unsignedUpper, 0, numutil.Mask(width))
}

func ForUnsignedIntegerWithMask(width int, unsignedLower, unsignedUpper int64, must, may uint64) *IntegerStamp {
	lower := numutil.SignExtend(unsignedLower, width)
	upper := numutil.SignExtend(unsignedUpper, width)
	if !numutil.SameSign(lower, upper) {
		lower = numutil.MinValue(width)
		upper = numutil.MaxValue(width)
	}
	mask := numutil.Mask(width)
	return CreateIntegerMasked(width, lower, upper, must&mask, may&mask)
}

// ForFloat validates and builds a float stamp.
func ForFloat(width int, lower, upper float64, nonNaN bool) *FloatStamp {
	return CreateFloat(width, lower, upper, nonNaN)
}

// ForConstant returns the narrowest stamp holding c.
func ForConstant(c constant.Value) Stamp {
	switch c.Kind() {
	case constant.KindInt:
		return IntegerConstant(c.Bits(), c.Int64())
	case constant.KindFloat:
		return FloatForConstant(c)
	case constant.KindNull:
		return AlwaysNull()
	}
	panic(fmt.Sprintf("numstamp: no stamp for %s constant", c.Kind()))
}

// ForKind returns the unrestricted stamp of a primitive kind.
func ForKind(k PrimitiveKind) Stamp {
	switch {
	case k.IsNumericInteger():
		return UnrestrictedInteger(k.Bits())
	case k.IsNumericFloat():
		return UnrestrictedFloat(k.Bits())
	case k == PrimitiveObject:
		return Object()
	case k == PrimitiveVoid:
		return Void()
	}
	return Illegal()
}

// EmptyFor returns the empty stamp of a primitive kind.
func EmptyFor(k PrimitiveKind) Stamp {
	return ForKind(k).Empty()
}
