package stamp

import (
	"math"
	"strconv"
	"strings"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
)

// String renders the stamp as i<bits>, followed by the range when it is not
// the full one, a per-bit pattern when the masks say more than the range,
// and {!=0} when zero is excluded from a range that spans it.
//
// The bit pattern is most significant bit first: 0 for a clear bit, 1 for a
// set bit, x for unknown. A run of more than eight identical leading
// characters is shortened to c...c.
func (s *IntegerStamp) String() string {
	var b strings.Builder
	b.WriteByte('i')
	b.WriteString(strconv.Itoa(s.width))
	if s.IsEmpty() {
		b.WriteString("<empty>")
		return b.String()
	}
	switch {
	case s.lowerBound == s.upperBound:
		b.WriteString(" [")
		b.WriteString(strconv.FormatInt(s.lowerBound, 10))
		b.WriteByte(']')
	case s.lowerBound != numutil.MinValue(s.width) || s.upperBound != numutil.MaxValue(s.width):
		b.WriteString(" [")
		b.WriteString(strconv.FormatInt(s.lowerBound, 10))
		b.WriteString(" - ")
		b.WriteString(strconv.FormatInt(s.upperBound, 10))
		b.WriteByte(']')
	}
	if s.lowerBound != s.upperBound && (s.mustBeSet != 0 || s.mayBeSet != numutil.Mask(s.width)) {
		b.WriteString(" bits:")
		s.writeBits(&b)
	}
	if !s.canBeZero && s.contains(0, true) {
		b.WriteString(" {!=0}")
	}
	return b.String()
}

func (s *IntegerStamp) bitChar(pos int) byte {
	bit := uint64(1) << uint(pos)
	switch {
	case s.mayBeSet&bit == 0:
		return '0'
	case s.mustBeSet&bit != 0:
		return '1'
	}
	return 'x'
}

func (s *IntegerStamp) writeBits(b *strings.Builder) {
	first := s.bitChar(s.width - 1)
	pos := s.width - 2
	for pos >= 0 && s.bitChar(pos) == first {
		pos--
	}
	if pos < 0 {
		// Uniform patterns carry no information beyond the range.
		return
	}
	leading := s.width - 1 - pos
	if leading > 8 {
		b.WriteByte(first)
		b.WriteString("...")
		b.WriteByte(first)
	} else {
		for range leading {
			b.WriteByte(first)
		}
	}
	for ; pos >= 0; pos-- {
		b.WriteByte(s.bitChar(pos))
	}
}

// String renders the stamp as f<bits>, a ! when NaN is excluded, then the
// range when it is not the full one. A single value is printed once only when
// both bounds carry the same sign of zero.
func (s *FloatStamp) String() string {
	var b strings.Builder
	b.WriteByte('f')
	b.WriteString(strconv.Itoa(s.width))
	if s.IsEmpty() {
		b.WriteString("<empty>")
		return b.String()
	}
	if s.nonNaN {
		b.WriteByte('!')
	}
	switch {
	case sameFloat(s.lowerBound, s.upperBound) && !math.IsNaN(s.lowerBound):
		b.WriteString(" [")
		b.WriteString(constant.FormatFloat(s.lowerBound, s.width))
		b.WriteByte(']')
	case s.lowerBound != math.Inf(-1) || s.upperBound != math.Inf(1):
		b.WriteString(" [")
		b.WriteString(constant.FormatFloat(s.lowerBound, s.width))
		b.WriteString(" - ")
		b.WriteString(constant.FormatFloat(s.upperBound, s.width))
		b.WriteByte(']')
	}
	return b.String()
}
