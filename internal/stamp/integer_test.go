package stamp

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
)

func TestIntegerRangeMasks(t *testing.T) {
	s := IntegerRange(8, 10, 12)
	if s.MustBeSet() != 0b00001000 {
		t.Fatalf("mustBeSet = %#b, want 0b1000", s.MustBeSet())
	}
	if s.MayBeSet() != 0b00001111 {
		t.Fatalf("mayBeSet = %#b, want 0b1111", s.MayBeSet())
	}
	if s.CanBeZero() != s.Contains(0) {
		t.Fatalf("canBeZero disagrees with containment")
	}
	for v := int64(10); v <= 12; v++ {
		if !s.Contains(v) {
			t.Fatalf("%s should contain %d", s, v)
		}
	}
	if s.Contains(9) || s.Contains(13) {
		t.Fatalf("%s contains values outside its range", s)
	}
}

func TestIntegerMeetOfConstants(t *testing.T) {
	s := IntegerConstant(32, 0).Meet(IntegerConstant(32, 5)).(*IntegerStamp)
	if s.LowerBound() != 0 || s.UpperBound() != 5 {
		t.Fatalf("bounds = [%d, %d], want [0, 5]", s.LowerBound(), s.UpperBound())
	}
	if s.MustBeSet() != 0 || s.MayBeSet() != 0b101 {
		t.Fatalf("masks = %#x/%#x, want 0/0x5", s.MustBeSet(), s.MayBeSet())
	}
	if !s.CanBeZero() {
		t.Fatalf("canBeZero should be kept by meet")
	}
	// bit 1 is never set
	if s.Contains(2) || s.Contains(3) || !s.Contains(4) || !s.Contains(1) {
		t.Fatalf("mask-based containment wrong for %s", s)
	}
}

func TestCreateIntegerContradictoryMasks(t *testing.T) {
	s := CreateInteger(32, 0, 10, 1<<5, 0xf, true)
	if !s.IsEmpty() {
		t.Fatalf("expected empty stamp, got %s", s)
	}
	if s != EmptyInteger(32) {
		t.Fatalf("expected the canonical empty stamp")
	}
}

func TestCreateIntegerExcludesZero(t *testing.T) {
	s := CreateInteger(32, -5, 5, 0, numutil.Mask(32), false)
	if s.LowerBound() != -5 || s.UpperBound() != 5 {
		t.Fatalf("bounds = [%d, %d], want [-5, 5]", s.LowerBound(), s.UpperBound())
	}
	if s.Contains(0) {
		t.Fatalf("%s must not contain 0", s)
	}
	if !s.Contains(-5) || !s.Contains(3) {
		t.Fatalf("%s lost non-zero members", s)
	}
	m := s.Meet(IntegerConstant(32, 0)).(*IntegerStamp)
	if !m.Contains(0) {
		t.Fatalf("meet with 0 should restore zero: %s", m)
	}
}

func TestCreateIntegerTightensBoundsToMasks(t *testing.T) {
	// Only even values up to 14 fit the masks.
	s := CreateIntegerMasked(8, 1, 15, 0, 0b1110)
	if s.LowerBound() != 2 || s.UpperBound() != 14 {
		t.Fatalf("bounds = [%d, %d], want [2, 14]", s.LowerBound(), s.UpperBound())
	}
	if s.Contains(3) {
		t.Fatalf("%s contains an odd value", s)
	}
}

func TestCreateIntegerIsIdempotent(t *testing.T) {
	stamps := []*IntegerStamp{
		IntegerRange(8, 10, 12),
		IntegerRange(16, -300, 7),
		IntegerRange(64, math.MinInt64, -1),
		CreateInteger(32, -5, 5, 0, numutil.Mask(32), false),
		CreateIntegerMasked(32, 3, 1000, 1, 0x3ff),
		StampForMask(64, 0x10, 0xff0),
		IntegerConstant(1, -1),
		UnrestrictedInteger(16),
	}
	for _, s := range stamps {
		again := CreateInteger(s.Bits(), s.LowerBound(), s.UpperBound(), s.MustBeSet(), s.MayBeSet(), s.CanBeZero())
		if !again.Equal(s) {
			t.Fatalf("re-canonicalizing %s gave %s", s, again)
		}
	}
}

func TestCreateIntegerPanicsOnOutOfRangeBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for bounds outside i8")
		}
	}()
	CreateIntegerMasked(8, 0, 300, 0, 0xff)
}

func TestIntegerLatticeLaws(t *testing.T) {
	stamps := []*IntegerStamp{
		IntegerRange(32, 0, 10),
		IntegerRange(32, -7, 3),
		IntegerConstant(32, 42),
		IntegerConstant(32, 0),
		CreateInteger(32, -5, 5, 0, numutil.Mask(32), false),
		StampForMask(32, 0x4, 0x3c),
		UnrestrictedInteger(32),
		EmptyInteger(32),
	}
	top, bottom := UnrestrictedInteger(32), EmptyInteger(32)
	for _, a := range stamps {
		if !a.Meet(a).Equal(a) || !a.Join(a).Equal(a) {
			t.Fatalf("idempotence fails for %s", a)
		}
		if !a.Meet(top).Equal(top) {
			t.Fatalf("%s meet top = %s", a, a.Meet(top))
		}
		if !a.Join(top).Equal(a) {
			t.Fatalf("%s join top = %s", a, a.Join(top))
		}
		if !a.Meet(bottom).Equal(a) {
			t.Fatalf("%s meet empty = %s", a, a.Meet(bottom))
		}
		if !a.Join(bottom).IsEmpty() {
			t.Fatalf("%s join empty = %s", a, a.Join(bottom))
		}
		for _, b := range stamps {
			if !a.Meet(b).Equal(b.Meet(a)) {
				t.Fatalf("meet not commutative for %s, %s", a, b)
			}
			if !a.Join(b).Equal(b.Join(a)) {
				t.Fatalf("join not commutative for %s, %s", a, b)
			}
		}
	}
}

func TestIntegerJoinDisjoint(t *testing.T) {
	j := IntegerRange(32, 0, 5).Join(IntegerRange(32, 10, 20))
	if !j.IsEmpty() {
		t.Fatalf("join of disjoint ranges = %s, want empty", j)
	}
}

func TestIntegerMeetSoundForSamples(t *testing.T) {
	a := IntegerRange(16, -20, -3)
	b := StampForMask(16, 0x100, 0x1f0)
	m := a.Meet(b).(*IntegerStamp)
	for v := int64(math.MinInt16); v <= math.MaxInt16; v++ {
		if (a.Contains(v) || b.Contains(v)) && !m.Contains(v) {
			t.Fatalf("meet %s lost %d", m, v)
		}
	}
}

func TestIntegerJoinSoundForSamples(t *testing.T) {
	a := IntegerRange(8, -100, 90)
	b := StampForMask(8, 0x01, 0x0f)
	j := a.Join(b).(*IntegerStamp)
	for v := int64(math.MinInt8); v <= math.MaxInt8; v++ {
		if a.Contains(v) && b.Contains(v) && !j.Contains(v) {
			t.Fatalf("join %s lost %d", j, v)
		}
	}
}

func TestIntegerUnsignedBounds(t *testing.T) {
	s := IntegerRange(8, -2, 3)
	if s.UnsignedLowerBound() != 0 || s.UnsignedUpperBound() != 0xff {
		t.Fatalf("mixed-sign unsigned bounds = [%d, %d]", s.UnsignedLowerBound(), s.UnsignedUpperBound())
	}
	n := IntegerRange(8, -4, -2)
	if n.UnsignedLowerBound() != 0xfc || n.UnsignedUpperBound() != 0xfe {
		t.Fatalf("negative unsigned bounds = [%#x, %#x]", n.UnsignedLowerBound(), n.UnsignedUpperBound())
	}
}

func TestIntegerAsConstant(t *testing.T) {
	c, ok := IntegerConstant(16, -2).AsConstant()
	if !ok || c.Int64() != -2 || c.Bits() != 16 {
		t.Fatalf("AsConstant = %v, %v", c, ok)
	}
	if _, ok := IntegerRange(16, 1, 2).AsConstant(); ok {
		t.Fatalf("range must not be a constant")
	}
	back := UnrestrictedInteger(16).Constant(c)
	if !back.Equal(IntegerConstant(16, -2)) {
		t.Fatalf("Constant = %s", back)
	}
}

func TestIntegerDeserialize(t *testing.T) {
	s := UnrestrictedInteger(16)
	v, err := s.Deserialize([]byte{0x34, 0x12}, binary.LittleEndian)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int64() != 0x1234 {
		t.Fatalf("value = %#x, want 0x1234", v.Int64())
	}
	v, err = UnrestrictedInteger(32).Deserialize([]byte{0xff, 0xff, 0xff, 0xfe}, binary.BigEndian)
	if err != nil || v.Int64() != -2 {
		t.Fatalf("big endian = %v, %v", v, err)
	}
	if _, err := UnrestrictedInteger(64).Deserialize([]byte{1, 2}, binary.LittleEndian); !errors.Is(err, constant.ErrShortBuffer) {
		t.Fatalf("expected short buffer error, got %v", err)
	}
}

type fakeMemory map[int64]uint64

func (m fakeMemory) ReadPrimitive(_ any, offset int64, bits int) (uint64, bool) {
	raw, ok := m[offset]
	return raw & numutil.Mask(bits), ok
}

func TestIntegerReadConstantExtends(t *testing.T) {
	mem := fakeMemory{0: 0xff}
	signed := UnrestrictedInteger(32)
	v, ok := signed.ReadConstantAccess(mem, nil, 0, 8)
	if !ok || v.Int64() != -1 {
		t.Fatalf("sign-extended read = %v, %v", v, ok)
	}
	positive := IntegerRange(32, 0, 1000)
	v, ok = positive.ReadConstantAccess(mem, nil, 0, 8)
	if !ok || v.Int64() != 255 {
		t.Fatalf("zero-extended read = %v, %v", v, ok)
	}
	if _, ok := signed.ReadConstant(mem, nil, 8); ok {
		t.Fatalf("read of unmapped offset should fail")
	}
}

func TestIntegerMismatchedWidthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on width mismatch")
		}
	}()
	IntegerRange(8, 0, 1).Meet(IntegerRange(16, 0, 1))
}

func TestIntegerImproveWith(t *testing.T) {
	s := IntegerRange(32, 0, 100)
	if got := s.ImproveWith(IntegerRange(32, 50, 200)); !got.Equal(IntegerRange(32, 50, 100)) {
		t.Fatalf("ImproveWith = %s", got)
	}
	if got := s.ImproveWith(UnrestrictedFloat(32)); got != Stamp(s) {
		t.Fatalf("incompatible ImproveWith should return receiver, got %s", got)
	}
}
