package stamp

import (
	"sync"
	"testing"

	"numstamp/internal/constant"
)

func TestCanonicalStampsAreShared(t *testing.T) {
	for _, w := range []int{1, 8, 16, 32, 64} {
		if UnrestrictedInteger(w) != UnrestrictedInteger(w) || EmptyInteger(w) != EmptyInteger(w) {
			t.Fatalf("i%d canonical stamps are not shared", w)
		}
		if !UnrestrictedInteger(w).IsUnrestricted() || !EmptyInteger(w).IsEmpty() {
			t.Fatalf("i%d canonical stamps have the wrong shape", w)
		}
		if UnrestrictedInteger(w).Empty() != Stamp(EmptyInteger(w)) {
			t.Fatalf("i%d Empty() does not return the shared stamp", w)
		}
	}
	for _, w := range []int{32, 64} {
		if !UnrestrictedFloat(w).IsUnrestricted() || !EmptyFloat(w).IsEmpty() || !NaNFloat(w).IsNaN() {
			t.Fatalf("f%d canonical stamps have the wrong shape", w)
		}
	}
}

func TestInvalidWidthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for i12")
		}
	}()
	UnrestrictedInteger(12)
}

func TestForIntegerWithMask(t *testing.T) {
	s := ForIntegerWithMask(32, 0, 100, 0x1, 0xff)
	if s.LowerBound() != 1 || s.UpperBound() != 99 {
		t.Fatalf("odd values in [0, 100] = %s", s)
	}
	if s.Contains(50) || !s.Contains(51) {
		t.Fatalf("mask ignored: %s", s)
	}
}

func TestForUnsignedInteger(t *testing.T) {
	s := ForUnsignedInteger(8, 0x80, 0xf0)
	if s.LowerBound() != -128 || s.UpperBound() != -16 {
		t.Fatalf("upper half = %s, want [-128 - -16]", s)
	}
	wide := ForUnsignedInteger(8, 0x10, 0x90)
	if !wide.IsUnrestricted() {
		t.Fatalf("range across the sign bit = %s, want unrestricted", wide)
	}
}

func TestForConstantAndKind(t *testing.T) {
	if s := ForConstant(constant.Int32(-7)); !s.Equal(IntegerConstant(32, -7)) {
		t.Fatalf("ForConstant(int) = %s", s)
	}
	if s := ForConstant(constant.Float64(2.5)); s.String() != "f64! [2.5]" {
		t.Fatalf("ForConstant(float) = %s", s)
	}
	if s := ForConstant(constant.Null()); s != Stamp(AlwaysNull()) {
		t.Fatalf("ForConstant(null) = %s", s)
	}
	kinds := map[PrimitiveKind]string{
		PrimitiveBoolean: "i1",
		PrimitiveShort:   "i16",
		PrimitiveLong:    "i64",
		PrimitiveFloat:   "f32",
		PrimitiveDouble:  "f64",
		PrimitiveObject:  "a -",
		PrimitiveVoid:    "void",
		PrimitiveIllegal: "illegal",
	}
	for k, want := range kinds {
		if got := ForKind(k).String(); got != want {
			t.Fatalf("ForKind(%s) = %q, want %q", k, got, want)
		}
	}
	if !EmptyFor(PrimitiveInt).IsEmpty() {
		t.Fatalf("EmptyFor(int) is not empty")
	}
}

func TestPrimitiveKindMapping(t *testing.T) {
	if IntegerRange(8, 0, 1).PrimitiveKind() != PrimitiveByte || IntegerRange(8, 0, 1).StackKind() != PrimitiveInt {
		t.Fatalf("i8 maps to byte on an int stack")
	}
	if UnrestrictedInteger(64).StackKind() != PrimitiveLong {
		t.Fatalf("i64 stack kind")
	}
	if UnrestrictedFloat(32).PrimitiveKind() != PrimitiveFloat {
		t.Fatalf("f32 primitive kind")
	}
}

func TestConcurrentUseIsDeterministic(t *testing.T) {
	want := IntegerRange(32, -3, 17).Meet(StampForMask(32, 0x40, 0xff)).String()
	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = IntegerRange(32, -3, 17).Meet(StampForMask(32, 0x40, 0xff)).String()
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if got != want {
			t.Fatalf("goroutine %d computed %q, want %q", i, got, want)
		}
	}
}
