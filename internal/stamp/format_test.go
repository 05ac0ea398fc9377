package stamp

import (
	"errors"
	"math"
	"strings"
	"testing"

	"numstamp/internal/numutil"
)

func formatCases() []struct {
	stamp Stamp
	want  string
} {
	return []struct {
		stamp Stamp
		want  string
	}{
		{UnrestrictedInteger(32), "i32"},
		{EmptyInteger(16), "i16<empty>"},
		{IntegerConstant(8, -1), "i8 [-1]"},
		{IntegerConstant(32, 0), "i32 [0]"},
		{True(), "i1 [-1]"},
		{IntegerRange(8, 10, 12), "i8 [10 - 12] bits:00001xxx"},
		{IntegerRange(32, 0, 10), "i32 [0 - 10] bits:0...0xxxx"},
		{IntegerConstant(32, 0).Meet(IntegerConstant(32, 5)), "i32 [0 - 5] bits:0...0x0x"},
		{CreateInteger(32, -5, 5, 0, numutil.Mask(32), false), "i32 [-5 - 5] {!=0}"},
		{StampForMask(8, 0x4, 0x3c), "i8 [4 - 60] bits:00xxx100"},
		{IntegerRange(64, math.MinInt64, -1), "i64 [-9223372036854775808 - -1] bits:1" + strings.Repeat("x", 63)},
		{UnrestrictedFloat(32), "f32"},
		{EmptyFloat(64), "f64<empty>"},
		{NaNFloat(32), "f32 [NaN - NaN]"},
		{CreateFloat(32, 1, 2, true), "f32! [1 - 2]"},
		{CreateFloat(64, 1.5, 1.5, true), "f64! [1.5]"},
		{CreateFloat(64, math.Copysign(0, -1), 0, true), "f64! [-0 - 0]"},
		{CreateFloat(64, math.Inf(-1), 0, false), "f64 [-Inf - 0]"},
		{CreateFloat(32, float64(float32(0.1)), float64(float32(0.1)), true), "f32! [0.1]"},
		{Object(), "a -"},
		{ForObject("Point", true, true, false), "a!# Point"},
		{AlwaysNull(), "a - NULL"},
		{Object().Empty(), "a<empty>"},
		{Void(), "void"},
		{Pointer(), "void*"},
		{Illegal(), "illegal"},
	}
}

func TestStampString(t *testing.T) {
	for _, tc := range formatCases() {
		if got := tc.stamp.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, tc := range formatCases() {
		got, err := Parse(tc.want)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.want, err)
		}
		if !got.Equal(tc.stamp) {
			t.Fatalf("Parse(%q) = %s", tc.want, got)
		}
	}
}

func TestParseCanonicalizes(t *testing.T) {
	got := MustParse("i8 [1 - 15] bits:00001xx0")
	if got.String() != "i8 [8 - 14] bits:00001xx0" {
		t.Fatalf("canonical form = %s", got)
	}
	if !MustParse("i32 [7 - 7]").Equal(IntegerConstant(32, 7)) {
		t.Fatalf("degenerate range should parse as a constant")
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"x32",
		"i12",
		"i8 [300]",
		"i8 [5 - 1]",
		"i8 [1 - 2",
		"i8 bits:01",
		"i8 bits:0000000z",
		"f16",
		"f32! [NaN - NaN]",
		"f64 [1 - NaN]",
		"f64 [2 - 1]",
		"f64 [1] junk",
		"a!",
		"a two words",
	}
	for _, text := range bad {
		if _, err := Parse(text); !errors.Is(err, ErrSyntax) {
			t.Fatalf("Parse(%q) error = %v, want ErrSyntax", text, err)
		}
	}
}
