package stamp

import (
	"encoding/binary"
	"fmt"
	"math"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
)

// FloatStamp describes IEEE-754 values by an inclusive range and whether NaN
// is excluded. Bounds are held as float64 even for 32-bit stamps, where they
// are always exactly representable as float32.
//
// Two encodings are reserved: empty is (+Inf, -Inf, nonNaN) and NaN-only is
// (NaN, NaN, !nonNaN). Signed zero is not tracked: a stamp containing 0.0 is
// taken to contain -0.0 as well.
type FloatStamp struct {
	width      int
	lowerBound float64
	upperBound float64
	nonNaN     bool
}

func checkFloatBits(n int) {
	if !constant.ValidFloatBits(n) {
		panic(fmt.Sprintf("numstamp: invalid float width %d", n))
	}
}

// NewFloat stores the bounds without validation. Transfer functions use it
// for results they construct from already valid operands.
func NewFloat(width int, lower, upper float64, nonNaN bool) *FloatStamp {
	return &FloatStamp{width: width, lowerBound: lower, upperBound: upper, nonNaN: nonNaN}
}

// CreateFloat validates and builds a float stamp.
func CreateFloat(width int, lower, upper float64, nonNaN bool) *FloatStamp {
	checkFloatBits(width)
	if width == 32 {
		if !sameFloat(numutil.RoundFloat32(lower), lower) || !sameFloat(numutil.RoundFloat32(upper), upper) {
			panic(fmt.Sprintf("numstamp: f32 bounds [%v, %v] are not float32 values", lower, upper))
		}
	}
	if math.IsNaN(lower) != math.IsNaN(upper) {
		panic(fmt.Sprintf("numstamp: only one NaN bound in [%v, %v]", lower, upper))
	}
	if math.IsNaN(lower) && nonNaN {
		panic("numstamp: NaN bounds on a non-NaN stamp")
	}
	if lower > upper {
		panic(fmt.Sprintf("numstamp: inverted float bounds [%v, %v]", lower, upper))
	}
	return NewFloat(width, lower, upper, nonNaN)
}

// sameFloat compares like Double.compare: NaNs are equal to each other and
// -0.0 differs from 0.0.
func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Float64bits(a) == math.Float64bits(b)
}

func (s *FloatStamp) Kind() Kind { return KindFloat }
func (s *FloatStamp) Bits() int  { return s.width }

// LowerBound panics on the empty stamp.
func (s *FloatStamp) LowerBound() float64 {
	s.mustHaveValues()
	return s.lowerBound
}

// UpperBound panics on the empty stamp.
func (s *FloatStamp) UpperBound() float64 {
	s.mustHaveValues()
	return s.upperBound
}

func (s *FloatStamp) mustHaveValues() {
	if !s.HasValues() {
		panic("numstamp: bounds of an empty float stamp")
	}
}

func (s *FloatStamp) IsNonNaN() bool { return s.nonNaN }
func (s *FloatStamp) CanBeNaN() bool { return !s.nonNaN }

// IsNaN reports the NaN-only stamp.
func (s *FloatStamp) IsNaN() bool { return math.IsNaN(s.lowerBound) }

func (s *FloatStamp) CanBeNegInf() bool { return s.lowerBound == math.Inf(-1) }
func (s *FloatStamp) CanBePosInf() bool { return s.upperBound == math.Inf(1) }
func (s *FloatStamp) CanBeInf() bool    { return s.CanBeNegInf() || s.CanBePosInf() }

func (s *FloatStamp) Unrestricted() Stamp { return UnrestrictedFloat(s.width) }
func (s *FloatStamp) Empty() Stamp        { return EmptyFloat(s.width) }

// HasValues is false only for the empty encoding; NaN bounds never compare
// greater.
func (s *FloatStamp) HasValues() bool { return !(s.lowerBound > s.upperBound) }
func (s *FloatStamp) IsEmpty() bool   { return !s.HasValues() }

func (s *FloatStamp) IsUnrestricted() bool {
	return s.lowerBound == math.Inf(-1) && s.upperBound == math.Inf(1) && !s.nonNaN
}

// Contains reports membership; NaN is a member iff the stamp allows NaN.
func (s *FloatStamp) Contains(v float64) bool {
	if math.IsNaN(v) {
		return !s.nonNaN
	}
	return v >= s.lowerBound && v <= s.upperBound
}

func (s *FloatStamp) PrimitiveKind() PrimitiveKind {
	if s.width == 32 {
		return PrimitiveFloat
	}
	return PrimitiveDouble
}

func (s *FloatStamp) StackKind() PrimitiveKind { return s.PrimitiveKind() }

func (s *FloatStamp) asFloat(op string, other Stamp) *FloatStamp {
	o, ok := other.(*FloatStamp)
	if !ok || o.width != s.width {
		panic(mismatch(op, s, other))
	}
	return o
}

// meetBounds ignores a NaN bound: it carries no numeric information.
func meetBounds(a, b float64, pick func(float64, float64) float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	}
	return pick(a, b)
}

func (s *FloatStamp) Meet(other Stamp) Stamp {
	o := s.asFloat("meet", other)
	switch {
	case o == s:
		return s
	case s.IsEmpty():
		return o
	case o.IsEmpty():
		return s
	}
	upper := meetBounds(s.upperBound, o.upperBound, math.Max)
	lower := meetBounds(s.lowerBound, o.lowerBound, math.Min)
	return s.pick(o, lower, upper, s.nonNaN && o.nonNaN)
}

func (s *FloatStamp) Join(other Stamp) Stamp {
	o := s.asFloat("join", other)
	switch {
	case o == s:
		return s
	case s.IsEmpty():
		return s
	case o.IsEmpty():
		return o
	}
	upper := math.Min(s.upperBound, o.upperBound)
	lower := math.Max(s.lowerBound, o.lowerBound)
	nonNaN := s.nonNaN || o.nonNaN
	if lower > upper {
		// Nothing left in the ordered range; only NaN may remain.
		lower, upper = math.NaN(), math.NaN()
	}
	if math.IsNaN(lower) && nonNaN {
		return s.Empty()
	}
	return s.pick(o, lower, upper, nonNaN)
}

func (s *FloatStamp) pick(o *FloatStamp, lower, upper float64, nonNaN bool) *FloatStamp {
	switch {
	case s.same(lower, upper, nonNaN):
		return s
	case o.same(lower, upper, nonNaN):
		return o
	}
	return NewFloat(s.width, lower, upper, nonNaN)
}

func (s *FloatStamp) same(lower, upper float64, nonNaN bool) bool {
	return sameFloat(s.lowerBound, lower) && sameFloat(s.upperBound, upper) && s.nonNaN == nonNaN
}

func (s *FloatStamp) IsCompatible(other Stamp) bool {
	o, ok := other.(*FloatStamp)
	return ok && o.width == s.width
}

func (s *FloatStamp) IsCompatibleConstant(c constant.Value) bool {
	return c.Kind() == constant.KindFloat && c.Bits() == s.width
}

// IsConstant excludes zero stamps since they cannot tell 0.0 from -0.0.
func (s *FloatStamp) IsConstant() bool {
	return s.lowerBound == s.upperBound && s.nonNaN && s.lowerBound != 0
}

func (s *FloatStamp) AsConstant() (constant.Value, bool) {
	if !s.IsConstant() {
		return constant.Value{}, false
	}
	return constant.Float(s.width, s.lowerBound), true
}

func (s *FloatStamp) Constant(c constant.Value) Stamp {
	if !s.IsCompatibleConstant(c) {
		panic(fmt.Sprintf("numstamp: constant %s (%s) incompatible with %s", c, c.Kind(), s))
	}
	return ForConstant(c)
}

// FloatForConstant returns the stamp of a float constant. NaN yields the
// NaN-only stamp.
func FloatForConstant(c constant.Value) *FloatStamp {
	v := c.Float64()
	if math.IsNaN(v) {
		return NaNFloat(c.Bits())
	}
	return NewFloat(c.Bits(), v, v, true)
}

func (s *FloatStamp) ImproveWith(other Stamp) Stamp {
	if s.IsCompatible(other) {
		return s.Join(other)
	}
	return s
}

func (s *FloatStamp) Deserialize(buf []byte, order binary.ByteOrder) (constant.Value, error) {
	v, _, err := constant.Decode(constant.KindFloat, s.width, buf, order)
	if err != nil {
		return constant.Value{}, fmt.Errorf("f%d: %w", s.width, err)
	}
	return v, nil
}

func (s *FloatStamp) ReadConstant(mem MemoryReader, base any, offset int64) (constant.Value, bool) {
	raw, ok := mem.ReadPrimitive(base, offset, s.width)
	if !ok {
		return constant.Value{}, false
	}
	return constant.FromBits(constant.KindFloat, s.width, raw), true
}

func (s *FloatStamp) Equal(other Stamp) bool {
	o, ok := other.(*FloatStamp)
	if !ok {
		return false
	}
	return o == s || o.width == s.width && s.same(o.lowerBound, o.upperBound, o.nonNaN)
}

// FloatingToIntegerCanOverflow reports whether converting a member to an
// integer of intBits can hit NaN, an infinity or the saturation limits.
func FloatingToIntegerCanOverflow(s *FloatStamp, intBits int, unsigned bool) bool {
	if s.IsEmpty() {
		return false
	}
	if math.IsInf(s.lowerBound, 0) || math.IsInf(s.upperBound, 0) {
		return true
	}
	if intBits != 32 && intBits != 64 {
		panic(fmt.Sprintf("numstamp: float conversion to %d-bit integer", intBits))
	}
	return integralPartLargerMaxValue(s, intBits, unsigned) || integralPartSmallerMinValue(s, intBits, unsigned)
}

func integralPartLargerMaxValue(s *FloatStamp, intBits int, unsigned bool) bool {
	upper := s.upperBound
	if math.IsInf(upper, 0) || math.IsNaN(upper) {
		return true
	}
	limit := float64(numutil.MaxValue(intBits))
	if unsigned {
		limit = float64(uint64(numutil.MaxValueUnsigned(intBits)))
	}
	return upper >= limit
}

func integralPartSmallerMinValue(s *FloatStamp, intBits int, unsigned bool) bool {
	lower := s.lowerBound
	if math.IsInf(lower, 0) || math.IsNaN(lower) {
		return true
	}
	limit := float64(numutil.MinValue(intBits))
	if unsigned {
		limit = 0
	}
	return lower <= limit
}
