// Package numutil holds width-parametric two's-complement helpers shared by the
// stamp and arithmetic packages. All widths are in the range 1..64.
package numutil

import "math"

// Mask returns a mask with the low bits set.
func Mask(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	if bits <= 0 {
		return 0
	}
	return (uint64(1) << uint(bits)) - 1
}

// MinValue is the smallest signed value of the width.
func MinValue(bits int) int64 {
	return int64(-1) << uint(bits-1)
}

// MaxValue is the largest signed value of the width.
func MaxValue(bits int) int64 {
	return int64(Mask(bits) >> 1)
}

// MaxValueUnsigned is the all-ones pattern of the width, as an int64.
func MaxValueUnsigned(bits int) int64 {
	return int64(Mask(bits))
}

// SignExtend interprets the low bits of v as a signed value.
func SignExtend(v int64, bits int) int64 {
	shift := uint(64 - bits)
	return (v << shift) >> shift
}

// ZeroExtend drops everything above the low bits.
func ZeroExtend(v int64, bits int) int64 {
	return int64(uint64(v) & Mask(bits))
}

// Narrow truncates v to bits and sign-extends the result.
func Narrow(v int64, bits int) int64 {
	return SignExtend(v, bits)
}

// IsSigned reports whether v fits the signed range of the width.
func IsSigned(v int64, bits int) bool {
	return v >= MinValue(bits) && v <= MaxValue(bits)
}

// SameSign reports whether both values have the same sign bit.
func SameSign(a, b int64) bool {
	return (a < 0) == (b < 0)
}

// MinUnsigned compares as unsigned 64-bit values.
func MinUnsigned(a, b int64) int64 {
	if uint64(a) < uint64(b) {
		return a
	}
	return b
}

// MaxUnsigned compares as unsigned 64-bit values.
func MaxUnsigned(a, b int64) int64 {
	if uint64(a) > uint64(b) {
		return a
	}
	return b
}

// SaturatingInt32 converts with truncation toward zero, clamping out of range
// inputs and mapping NaN to zero.
func SaturatingInt32(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// SaturatingInt64 is SaturatingInt32 for 64-bit results.
func SaturatingInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= 0x1p63:
		return math.MaxInt64
	case f <= -0x1p63:
		return math.MinInt64
	}
	return int64(f)
}

// SaturatingUint64 converts to an unsigned 64-bit pattern. NaN and values
// below one map to zero, values at or above 2^64 map to all ones.
func SaturatingUint64(f float64) int64 {
	switch {
	case math.IsNaN(f) || f < 1:
		return 0
	case f >= 0x1p64:
		return -1
	}
	return int64(uint64(f))
}

// SaturatingUint32 clamps SaturatingUint64 to the 32-bit unsigned range.
func SaturatingUint32(f float64) int64 {
	return MinUnsigned(SaturatingUint64(f), math.MaxUint32)
}

// RoundFloat32 rounds to the nearest float32 and widens back.
func RoundFloat32(f float64) float64 {
	return float64(float32(f))
}
