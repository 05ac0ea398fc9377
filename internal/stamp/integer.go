package stamp

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
)

// IterationLimit bounds the refinement loop in CreateInteger. Two passes can
// change the representation; the last one confirms the fixed point.
const IterationLimit = 3

// IntegerStamp describes a set of fixed-width two's-complement integers by a
// signed inclusive range and two bit masks: every value has all mustBeSet
// bits set and no bits outside mayBeSet. canBeZero carves zero out of ranges
// that would otherwise contain it.
type IntegerStamp struct {
	width      int
	lowerBound int64
	upperBound int64
	mustBeSet  uint64
	mayBeSet   uint64
	canBeZero  bool
}

func checkIntegerBits(n int) {
	if !constant.ValidIntBits(n) {
		panic(fmt.Sprintf("numstamp: invalid integer width %d", n))
	}
}

func newUnrestrictedInteger(width int) *IntegerStamp {
	return &IntegerStamp{
		width:      width,
		lowerBound: numutil.MinValue(width),
		upperBound: numutil.MaxValue(width),
		mayBeSet:   numutil.Mask(width),
		canBeZero:  true,
	}
}

func newEmptyInteger(width int) *IntegerStamp {
	return &IntegerStamp{
		width:      width,
		lowerBound: numutil.MaxValue(width),
		upperBound: numutil.MinValue(width),
		mustBeSet:  numutil.Mask(width),
	}
}

// newIntegerStamp stores an already consistent representation; canBeZero is
// only kept if zero is actually reachable.
func newIntegerStamp(width int, lower, upper int64, must, may uint64, canBeZero bool) *IntegerStamp {
	s := &IntegerStamp{width: width, lowerBound: lower, upperBound: upper, mustBeSet: must, mayBeSet: may}
	s.canBeZero = s.contains(0, canBeZero)
	return s
}

func newIntegerRange(width int, lower, upper int64) *IntegerStamp {
	same := ^uint64(0) >> uint(bits.LeadingZeros64(uint64(lower^upper)))
	mask := numutil.Mask(width)
	s := &IntegerStamp{
		width:      width,
		lowerBound: lower,
		upperBound: upper,
		mustBeSet:  mask & (uint64(lower) &^ same),
		mayBeSet:   mask & (uint64(lower) | same),
	}
	s.canBeZero = s.contains(0, true)
	return s
}

// IntegerConstant returns the singleton stamp for value, which must already
// be sign-extended to the width.
func IntegerConstant(width int, value int64) *IntegerStamp {
	checkIntegerBits(width)
	m := uint64(value) & numutil.Mask(width)
	return newIntegerStamp(width, value, value, m, m, value == 0)
}

// IntegerRange returns a stamp covering [lower, upper] with masks derived from
// the bounds.
func IntegerRange(width int, lower, upper int64) *IntegerStamp {
	checkIntegerBits(width)
	switch {
	case lower > upper:
		return EmptyInteger(width)
	case lower == upper:
		return IntegerConstant(width, lower)
	}
	return newIntegerRange(width, lower, upper)
}

// CreateInteger builds the canonical stamp for possibly loose or inconsistent
// constraints by alternately tightening the bounds from the masks and the
// masks from the bounds until neither changes.
func CreateInteger(width int, lowerIn, upperIn int64, mustIn, mayIn uint64, canBeZero bool) *IntegerStamp {
	checkIntegerBits(width)
	if !numutil.IsSigned(lowerIn, width) || !numutil.IsSigned(upperIn, width) {
		panic(fmt.Sprintf("numstamp: bounds [%d, %d] out of range for i%d", lowerIn, upperIn, width))
	}
	if isEmptyInteger(lowerIn, upperIn, mustIn, mayIn) {
		return EmptyInteger(width)
	}
	mask := numutil.Mask(width)
	if mustIn == 0 && mayIn == mask && canBeZero {
		return IntegerRange(width, lowerIn, upperIn)
	}

	lower, upper, must, may := lowerIn, upperIn, mustIn, mayIn
	for range IterationLimit {
		lowerTmp := max(lower, minValueForMasks(width, must, may))
		upperTmp := min(upper, maxValueForMasks(width, must, may))

		var boundedMust, boundedMay uint64
		if lowerTmp == upperTmp {
			boundedMust = uint64(lowerTmp)
			boundedMay = uint64(lowerTmp)
		} else {
			// High bits shared by both bounds are known.
			same := ^uint64(0) >> uint(bits.LeadingZeros64(uint64(lowerTmp^upperTmp)))
			boundedMay = uint64(lowerTmp) | same
			boundedMust = uint64(lowerTmp) &^ same
		}

		mustTmp := mask & (must | boundedMust)
		mayTmp := mask & may & boundedMay

		upperTmp = min(upperTmp, maxValueForMasks(width, mustTmp, mayTmp))
		lowerTmp = max(lowerTmp, minValueForMasks(width, mustTmp, mayTmp))

		upperTmp = computeUpperBound(width, upperTmp, mustTmp, mayTmp, canBeZero)
		lowerTmp = computeLowerBound(width, lowerTmp, mustTmp, mayTmp, canBeZero)

		if isEmptyInteger(lowerTmp, upperTmp, mustTmp, mayTmp) {
			return EmptyInteger(width)
		}
		if lower == lowerTmp && upper == upperTmp && must == mustTmp && may == mayTmp {
			return newIntegerStamp(width, lowerTmp, upperTmp, mustTmp, mayTmp, canBeZero)
		}
		if lowerTmp < lower {
			panic(fmt.Sprintf("numstamp: lower bound can't get smaller: %d < %d", lowerTmp, lower))
		}
		if upperTmp > upper {
			panic(fmt.Sprintf("numstamp: upper bound can't get larger: %d > %d", upperTmp, upper))
		}
		lower, upper, must, may = lowerTmp, upperTmp, mustTmp, mayTmp
	}
	panic(fmt.Sprintf("numstamp: more than %d iterations required to reach a stable stamp for i%d [%d - %d] must=%#x may=%#x",
		IterationLimit, width, lowerIn, upperIn, mustIn, mayIn))
}

// CreateIntegerMasked is CreateInteger with zero allowed.
func CreateIntegerMasked(width int, lower, upper int64, must, may uint64) *IntegerStamp {
	return CreateInteger(width, lower, upper, must, may, true)
}

// StampForMask derives the bounds from the masks alone.
func StampForMask(width int, must, may uint64) *IntegerStamp {
	checkIntegerBits(width)
	if must&^may != 0 {
		return EmptyInteger(width)
	}
	return newIntegerStamp(width, minValueForMasks(width, must, may), maxValueForMasks(width, must, may), must, may, true)
}

func isEmptyInteger(lower, upper int64, must, may uint64) bool {
	return lower > upper || must&^may != 0 || (may == 0 && (lower > 0 || upper < 0))
}

func significantBit(width int, v uint64) uint64 {
	return (v >> uint(width-1)) & 1
}

func minValueForMasks(width int, must, may uint64) int64 {
	if significantBit(width, may) == 0 {
		return int64(must)
	}
	return int64(must) | (int64(-1) << uint(width-1))
}

func maxValueForMasks(width int, must, may uint64) int64 {
	if significantBit(width, must) == 1 {
		return numutil.SignExtend(int64(may), width)
	}
	return int64(may & (numutil.Mask(width) >> 1))
}

// computeUpperBound returns the largest value compatible with the masks that
// does not exceed upper, or the width's minimum if there is none.
func computeUpperBound(width int, upper int64, must, may uint64, canBeZero bool) int64 {
	v := numutil.SignExtend(int64(must), width)
	if upper < 0 || v > upper {
		v = minValueForMasks(width, must, may)
	}
	v = setOptionalBits(width, upper, must, may, v)

	if v == 0 && !canBeZero {
		if significantBit(width, may) == 0 {
			return numutil.MinValue(width)
		}
		v = maxValueForMasks(width, must|uint64(1)<<uint(width-1), may)
	}
	if v > upper {
		return numutil.MinValue(width)
	}
	return v
}

func setOptionalBits(width int, bound int64, must, may uint64, initial int64) int64 {
	optional := may &^ must & numutil.Mask(width-1)
	v := initial
	for pos := width - 1; pos >= 0; pos-- {
		bit := int64(1) << uint(pos)
		if uint64(bit)&optional != 0 && v|bit <= bound {
			v |= bit
		}
	}
	return v
}

// computeLowerBound returns the smallest value compatible with the masks that
// is not below lower, or the width's maximum if there is none.
func computeLowerBound(width int, lower int64, must, may uint64, canBeZero bool) int64 {
	v := minValueForMasks(width, must, may)
	optional := may &^ must & numutil.Mask(width-1)
	if v < lower {
		if optional == 0 {
			v = 0
		} else {
			for pos := width - 1; pos >= 0; pos-- {
				bit := int64(1) << uint(pos)
				if uint64(bit)&optional != 0 && v+bit <= lower {
					v += bit
				}
			}
			if v > lower {
				panic(fmt.Sprintf("numstamp: lower bound search overshot %d > %d", v, lower))
			}
			if v < lower {
				// Bump the lowest optional bit, then repair any must/may bits the
				// carry disturbed.
				incremented := false
				for pos := 0; pos < width-1; pos++ {
					bit := int64(1) << uint(pos)
					if incremented {
						if uint64(bit)&must != 0 && v&bit == 0 {
							v |= bit
						}
						if uint64(bit)&may == 0 && v&bit != 0 {
							v += bit
						}
					} else if uint64(bit)&optional != 0 {
						v += bit
						incremented = true
					}
				}
			}
		}
	}
	if v == 0 && !canBeZero {
		switch {
		case int64(must) > 0:
			v = int64(must)
		case must == 0:
			v = int64(1) << uint(bits.TrailingZeros64(may)&63)
		default:
			v = numutil.MaxValue(width)
		}
	}
	if v < lower {
		return numutil.MaxValue(width)
	}
	return v
}

// MayBeSetFor is the smallest all-ones suffix mask covering both bounds.
func MayBeSetFor(width int, lower, upper int64) uint64 {
	m := uint64(lower | upper)
	if m == 0 {
		return 0
	}
	return (^uint64(0) >> uint(bits.LeadingZeros64(m))) & numutil.Mask(width)
}

func (s *IntegerStamp) Kind() Kind { return KindInteger }

// Bits returns the width.
func (s *IntegerStamp) Bits() int { return s.width }

func (s *IntegerStamp) LowerBound() int64 { return s.lowerBound }
func (s *IntegerStamp) UpperBound() int64 { return s.upperBound }
func (s *IntegerStamp) MustBeSet() uint64 { return s.mustBeSet }
func (s *IntegerStamp) MayBeSet() uint64  { return s.mayBeSet }
func (s *IntegerStamp) CanBeZero() bool   { return s.canBeZero }

func (s *IntegerStamp) Unrestricted() Stamp { return UnrestrictedInteger(s.width) }
func (s *IntegerStamp) Empty() Stamp        { return EmptyInteger(s.width) }

func (s *IntegerStamp) HasValues() bool { return s.lowerBound <= s.upperBound }
func (s *IntegerStamp) IsEmpty() bool   { return !s.HasValues() }

func (s *IntegerStamp) IsUnrestricted() bool {
	return s.lowerBound == numutil.MinValue(s.width) && s.upperBound == numutil.MaxValue(s.width) &&
		s.mustBeSet == 0 && s.mayBeSet == numutil.Mask(s.width) && s.canBeZero
}

// Contains reports whether v, read as a sign-extended value of the width, is
// a member of the stamp.
func (s *IntegerStamp) Contains(v int64) bool {
	return s.contains(v, s.canBeZero)
}

func (s *IntegerStamp) contains(v int64, canBeZero bool) bool {
	if v == 0 && !canBeZero {
		return s.lowerBound == 0 && s.upperBound == 0
	}
	mask := numutil.Mask(s.width)
	u := uint64(v)
	return v >= s.lowerBound && v <= s.upperBound &&
		u&s.mustBeSet == s.mustBeSet && u&s.mayBeSet == u&mask
}

func (s *IntegerStamp) IsPositive() bool         { return s.lowerBound >= 0 }
func (s *IntegerStamp) IsNegative() bool         { return s.upperBound <= 0 }
func (s *IntegerStamp) IsStrictlyPositive() bool { return s.lowerBound > 0 }
func (s *IntegerStamp) IsStrictlyNegative() bool { return s.upperBound < 0 }
func (s *IntegerStamp) CanBePositive() bool      { return s.upperBound > 0 }
func (s *IntegerStamp) CanBeNegative() bool      { return s.lowerBound < 0 }

// SameSignBounds reports whether both bounds lie on the same side of zero.
func (s *IntegerStamp) SameSignBounds() bool {
	return numutil.SameSign(s.lowerBound, s.upperBound)
}

// UnsignedUpperBound is the largest member read as unsigned.
func (s *IntegerStamp) UnsignedUpperBound() int64 {
	if s.SameSignBounds() {
		return numutil.ZeroExtend(s.upperBound, s.width)
	}
	return numutil.MaxValueUnsigned(s.width)
}

// UnsignedLowerBound is the smallest member read as unsigned.
func (s *IntegerStamp) UnsignedLowerBound() int64 {
	if s.SameSignBounds() {
		return numutil.ZeroExtend(s.lowerBound, s.width)
	}
	return 0
}

// SameSign reports whether both stamps are non-negative or both negative.
func SameSign(a, b *IntegerStamp) bool {
	return a.IsPositive() && b.IsPositive() || a.IsStrictlyNegative() && b.IsStrictlyNegative()
}

func (s *IntegerStamp) PrimitiveKind() PrimitiveKind {
	switch s.width {
	case 1:
		return PrimitiveBoolean
	case 8:
		return PrimitiveByte
	case 16:
		return PrimitiveShort
	case 32:
		return PrimitiveInt
	}
	return PrimitiveLong
}

func (s *IntegerStamp) StackKind() PrimitiveKind {
	if s.width > 32 {
		return PrimitiveLong
	}
	return PrimitiveInt
}

func (s *IntegerStamp) asInteger(op string, other Stamp) *IntegerStamp {
	o, ok := other.(*IntegerStamp)
	if !ok || o.width != s.width {
		panic(mismatch(op, s, other))
	}
	return o
}

func (s *IntegerStamp) Meet(other Stamp) Stamp {
	o := s.asInteger("meet", other)
	if o == s {
		return s
	}
	if s.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return s
	}
	return s.combine(o, min(s.lowerBound, o.lowerBound), max(s.upperBound, o.upperBound),
		s.mustBeSet&o.mustBeSet, s.mayBeSet|o.mayBeSet, s.canBeZero || o.canBeZero)
}

func (s *IntegerStamp) Join(other Stamp) Stamp {
	return s.JoinInteger(s.asInteger("join", other))
}

// JoinInteger is Join with a typed result.
func (s *IntegerStamp) JoinInteger(o *IntegerStamp) *IntegerStamp {
	if o == s {
		return s
	}
	return s.combine(o, max(s.lowerBound, o.lowerBound), min(s.upperBound, o.upperBound),
		s.mustBeSet|o.mustBeSet, s.mayBeSet&o.mayBeSet, s.canBeZero && o.canBeZero)
}

func (s *IntegerStamp) combine(o *IntegerStamp, lower, upper int64, must, may uint64, canBeZero bool) *IntegerStamp {
	switch {
	case isEmptyInteger(lower, upper, must, may):
		return EmptyInteger(s.width)
	case s.same(lower, upper, must, may, canBeZero):
		return s
	case o.same(lower, upper, must, may, canBeZero):
		return o
	}
	return CreateInteger(s.width, lower, upper, must, may, canBeZero)
}

func (s *IntegerStamp) same(lower, upper int64, must, may uint64, canBeZero bool) bool {
	return s.lowerBound == lower && s.upperBound == upper && s.mustBeSet == must && s.mayBeSet == may && s.canBeZero == canBeZero
}

func (s *IntegerStamp) IsCompatible(other Stamp) bool {
	o, ok := other.(*IntegerStamp)
	return ok && o.width == s.width
}

func (s *IntegerStamp) IsCompatibleConstant(c constant.Value) bool {
	return c.Kind() == constant.KindInt && c.Bits() == s.width
}

func (s *IntegerStamp) AsConstant() (constant.Value, bool) {
	if s.lowerBound != s.upperBound {
		return constant.Value{}, false
	}
	return constant.Int(s.width, s.lowerBound), true
}

// Constant returns the singleton stamp of the receiver's width. Non-integer
// constants leave the receiver unchanged.
func (s *IntegerStamp) Constant(c constant.Value) Stamp {
	if c.Kind() != constant.KindInt {
		return s
	}
	return IntegerConstant(s.width, numutil.SignExtend(c.Int64(), s.width))
}

func (s *IntegerStamp) ImproveWith(other Stamp) Stamp {
	if o, ok := other.(*IntegerStamp); ok && o.width == s.width {
		return s.JoinInteger(o)
	}
	return s
}

func (s *IntegerStamp) Deserialize(buf []byte, order binary.ByteOrder) (constant.Value, error) {
	v, _, err := constant.Decode(constant.KindInt, s.width, buf, order)
	if err != nil {
		return constant.Value{}, fmt.Errorf("i%d: %w", s.width, err)
	}
	return v, nil
}

// ReadConstant loads a value of the stamp's width, sign- or zero-extending
// narrower accesses according to whether the stamp admits negative values.
func (s *IntegerStamp) ReadConstant(mem MemoryReader, base any, offset int64) (constant.Value, bool) {
	return s.ReadConstantAccess(mem, base, offset, s.width)
}

// ReadConstantAccess reads accessBits bits and widens them to the stamp.
func (s *IntegerStamp) ReadConstantAccess(mem MemoryReader, base any, offset int64, accessBits int) (constant.Value, bool) {
	if accessBits > s.width {
		panic(fmt.Sprintf("numstamp: access of %d bits wider than i%d", accessBits, s.width))
	}
	raw, ok := mem.ReadPrimitive(base, offset, accessBits)
	if !ok {
		return constant.Value{}, false
	}
	if s.CanBeNegative() {
		return constant.Int(s.width, numutil.SignExtend(int64(raw), accessBits)), true
	}
	return constant.Int(s.width, numutil.ZeroExtend(int64(raw), accessBits)), true
}

func (s *IntegerStamp) Equal(other Stamp) bool {
	o, ok := other.(*IntegerStamp)
	if !ok {
		return false
	}
	return o == s || o.width == s.width && s.same(o.lowerBound, o.upperBound, o.mustBeSet, o.mayBeSet, o.canBeZero)
}
