// Package constant models concrete primitive values as seen by the stamp
// lattice: fixed-width integers, IEEE floats and the null reference.
package constant

import (
	"fmt"
	"math"
	"strconv"

	"numstamp/internal/numutil"
)

// Kind classifies a Value.
type Kind uint8

const (
	// KindIllegal is the zero Kind; the zero Value carries it.
	KindIllegal Kind = iota
	KindInt
	KindFloat
	KindNull
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindNull:
		return "null"
	default:
		return "illegal"
	}
}

// Value is an immutable primitive constant. Integers keep their bit pattern
// truncated to the width; floats keep the raw IEEE pattern of the width.
type Value struct {
	kind Kind
	bits uint8
	raw  uint64
}

// ValidIntBits reports whether bits is an integer width the lattice supports.
func ValidIntBits(bits int) bool {
	switch bits {
	case 1, 8, 16, 32, 64:
		return true
	}
	return false
}

// ValidFloatBits reports whether bits is a float width the lattice supports.
func ValidFloatBits(bits int) bool {
	return bits == 32 || bits == 64
}

// Int builds an integer constant, truncating v to bits.
func Int(bits int, v int64) Value {
	if !ValidIntBits(bits) {
		panic(fmt.Sprintf("numstamp: invalid integer width %d", bits))
	}
	return Value{kind: KindInt, bits: uint8(bits), raw: uint64(v) & numutil.Mask(bits)}
}

// Bool builds a 1-bit constant. true is stored as the all-ones pattern.
func Bool(b bool) Value {
	if b {
		return Int(1, -1)
	}
	return Int(1, 0)
}

func Int8(v int8) Value   { return Int(8, int64(v)) }
func Int16(v int16) Value { return Int(16, int64(v)) }
func Int32(v int32) Value { return Int(32, int64(v)) }
func Int64(v int64) Value { return Int(64, v) }

// Float32 builds a 32-bit float constant.
func Float32(f float32) Value {
	return Value{kind: KindFloat, bits: 32, raw: uint64(math.Float32bits(f))}
}

// Float64 builds a 64-bit float constant.
func Float64(f float64) Value {
	return Value{kind: KindFloat, bits: 64, raw: math.Float64bits(f)}
}

// Float builds a float constant of the given width, rounding to float32 when
// bits is 32.
func Float(bits int, f float64) Value {
	switch bits {
	case 32:
		return Float32(float32(f))
	case 64:
		return Float64(f)
	}
	panic(fmt.Sprintf("numstamp: invalid float width %d", bits))
}

// FromBits builds a constant of kind and width from a raw bit pattern.
func FromBits(kind Kind, bits int, raw uint64) Value {
	switch kind {
	case KindInt:
		return Int(bits, int64(raw))
	case KindFloat:
		if !ValidFloatBits(bits) {
			panic(fmt.Sprintf("numstamp: invalid float width %d", bits))
		}
		return Value{kind: KindFloat, bits: uint8(bits), raw: raw & numutil.Mask(bits)}
	}
	panic(fmt.Sprintf("numstamp: no bit pattern for %s constants", kind))
}

// Null is the null reference constant.
func Null() Value {
	return Value{kind: KindNull}
}

// Kind returns the value kind.
func (v Value) Kind() Kind { return v.kind }

// Bits returns the width; zero for null and illegal values.
func (v Value) Bits() int { return int(v.bits) }

// IsValid reports whether v is anything but the zero Value.
func (v Value) IsValid() bool { return v.kind != KindIllegal }

// IsNull reports whether v is the null reference.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Raw returns the stored bit pattern.
func (v Value) Raw() uint64 { return v.raw }

// Int64 returns the sign-extended integer value.
func (v Value) Int64() int64 {
	v.mustBe(KindInt)
	return numutil.SignExtend(int64(v.raw), int(v.bits))
}

// Uint64 returns the zero-extended integer value.
func (v Value) Uint64() uint64 {
	v.mustBe(KindInt)
	return v.raw
}

// Bool reports whether any bit is set.
func (v Value) Bool() bool {
	v.mustBe(KindInt)
	return v.raw != 0
}

// Float64 returns the float value, widening 32-bit constants.
func (v Value) Float64() float64 {
	v.mustBe(KindFloat)
	if v.bits == 32 {
		return float64(math.Float32frombits(uint32(v.raw)))
	}
	return math.Float64frombits(v.raw)
}

// Float32 returns the float value narrowed to float32.
func (v Value) Float32() float32 {
	v.mustBe(KindFloat)
	if v.bits == 32 {
		return math.Float32frombits(uint32(v.raw))
	}
	return float32(math.Float64frombits(v.raw))
}

// IsNaN reports whether v is a float NaN.
func (v Value) IsNaN() bool {
	return v.kind == KindFloat && math.IsNaN(v.Float64())
}

// IsDefault reports whether v is the zero value of its kind (0, +0.0 or null).
func (v Value) IsDefault() bool {
	switch v.kind {
	case KindInt, KindFloat:
		return v.raw == 0
	case KindNull:
		return true
	}
	return false
}

// Equal compares kind, width and raw bits.
func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("numstamp: %s constant used as %s", v.kind, k))
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		if v.bits == 1 {
			return strconv.FormatBool(v.Bool())
		}
		return strconv.FormatInt(v.Int64(), 10)
	case KindFloat:
		return FormatFloat(v.Float64(), int(v.bits))
	case KindNull:
		return "null"
	}
	return "illegal"
}

// FormatFloat renders f with the shortest representation that round-trips at
// the given width.
func FormatFloat(f float64, bits int) string {
	if bits == 32 {
		return strconv.FormatFloat(f, 'g', -1, 32)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
