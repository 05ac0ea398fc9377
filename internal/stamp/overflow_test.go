package stamp

import (
	"math"
	"testing"
)

func TestMultiplicationCanOverflow(t *testing.T) {
	s := IntegerRange(8, 100, 120)
	if !MultiplicationCanOverflow(s, s) {
		t.Fatalf("100*100 overflows i8")
	}
	small := IntegerRange(8, -11, 11)
	if MultiplicationCanOverflow(small, small) {
		t.Fatalf("|11*11| fits i8")
	}
	if MultiplicationCanOverflow(IntegerConstant(32, 0), UnrestrictedInteger(32)) {
		t.Fatalf("multiplying by zero never overflows")
	}
	if !MultiplicationCanOverflow(IntegerRange(8, -128, -1), IntegerConstant(8, -1)) {
		t.Fatalf("-128 * -1 overflows i8")
	}
}

func TestMultiplicationOverflows64(t *testing.T) {
	cases := []struct {
		a, b int64
		want bool
	}{
		{1 << 32, 1 << 31, true},
		{1 << 31, 1 << 31, false},
		{math.MinInt64, -1, true},
		{-1, math.MinInt64, true},
		{math.MinInt64, 1, false},
		{-(1 << 32), 1 << 31, false},
		{-(1 << 32), (1 << 31) + 1, true},
		{0, math.MinInt64, false},
	}
	for _, tc := range cases {
		if got := MultiplicationOverflows(tc.a, tc.b, 64); got != tc.want {
			t.Fatalf("MultiplicationOverflows(%d, %d) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestAddAndSubtractOverflow(t *testing.T) {
	if !AddOverflowsPositively(math.MaxInt64, 1, 64) || AddOverflowsPositively(math.MaxInt64, 0, 64) {
		t.Fatalf("64-bit positive add overflow")
	}
	if !AddOverflowsNegatively(math.MinInt64, -1, 64) || AddOverflowsNegatively(-1, -1, 64) {
		t.Fatalf("64-bit negative add overflow")
	}
	if !AddOverflowsPositively(100, 28, 8) || AddOverflowsPositively(100, 27, 8) {
		t.Fatalf("8-bit positive add overflow")
	}
	if !AddCanOverflow(IntegerRange(16, 0, 30000), IntegerRange(16, 0, 3000)) {
		t.Fatalf("30000+3000 overflows i16")
	}
	if AddCanOverflow(IntegerRange(16, -100, 100), IntegerRange(16, -100, 100)) {
		t.Fatalf("small ranges do not overflow")
	}
	if !SubtractionOverflows(math.MinInt64, 1, 64) || SubtractionOverflows(-1, math.MinInt64, 64) {
		t.Fatalf("64-bit subtraction overflow")
	}
	if !SubtractionCanOverflow(IntegerRange(8, -100, 0), IntegerRange(8, 0, 100)) {
		t.Fatalf("-100-100 overflows i8")
	}
	if !NegateCanOverflow(UnrestrictedInteger(32)) || NegateCanOverflow(IntegerRange(32, -5, 5)) {
		t.Fatalf("negate overflow")
	}
}

func TestSaturateAndCarry(t *testing.T) {
	if Saturate(300, 8) != 127 || Saturate(-300, 8) != -128 || Saturate(5, 8) != 5 {
		t.Fatalf("saturate to i8")
	}
	if Saturate(math.MaxInt64, 64) != math.MaxInt64 {
		t.Fatalf("saturate at 64 bits is the identity")
	}
	if CarryBits(0b0111, 0b0001) != 0b1110 {
		t.Fatalf("carry bits = %#b", CarryBits(0b0111, 0b0001))
	}
}
