package constant

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestEncodeLayout(t *testing.T) {
	cases := []struct {
		v      Value
		little []byte
		big    []byte
	}{
		{Bool(true), []byte{1}, []byte{1}},
		{Bool(false), []byte{0}, []byte{0}},
		{Int8(-2), []byte{0xfe}, []byte{0xfe}},
		{Int16(0x1234), []byte{0x34, 0x12}, []byte{0x12, 0x34}},
		{Int32(42), []byte{42, 0, 0, 0}, []byte{0, 0, 0, 42}},
		{Int64(-1), bytes.Repeat([]byte{0xff}, 8), bytes.Repeat([]byte{0xff}, 8)},
		{Float32(1), []byte{0, 0, 0x80, 0x3f}, []byte{0x3f, 0x80, 0, 0}},
		{Float64(-2), []byte{0, 0, 0, 0, 0, 0, 0, 0xc0}, []byte{0xc0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tc := range cases {
		if got := tc.v.Encode(binary.LittleEndian); !bytes.Equal(got, tc.little) {
			t.Fatalf("%s little endian = % x, want % x", tc.v, got, tc.little)
		}
		if got := tc.v.Encode(binary.BigEndian); !bytes.Equal(got, tc.big) {
			t.Fatalf("%s big endian = % x, want % x", tc.v, got, tc.big)
		}
		if len(tc.little) != Size(tc.v.Bits()) {
			t.Fatalf("Size(%d) = %d, encoding has %d bytes", tc.v.Bits(), Size(tc.v.Bits()), len(tc.little))
		}
		back, n, err := Decode(tc.v.Kind(), tc.v.Bits(), append(tc.little, 0x99), binary.LittleEndian)
		if err != nil || n != len(tc.little) || !back.Equal(tc.v) {
			t.Fatalf("Decode(% x) = %s, %d, %v; want %s", tc.little, back, n, err, tc.v)
		}
	}
}

func TestDecodeNonzeroByteIsTrue(t *testing.T) {
	v, n, err := Decode(KindInt, 1, []byte{0x80}, binary.LittleEndian)
	if err != nil || n != 1 || !v.Equal(Bool(true)) {
		t.Fatalf("Decode 1-bit 0x80 = %s, %d, %v", v, n, err)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, _, err := Decode(KindInt, 32, []byte{1, 2, 3}, binary.LittleEndian); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("short buffer error = %v", err)
	}
	if _, _, err := Decode(KindInt, 24, make([]byte, 3), binary.LittleEndian); err == nil {
		t.Fatalf("expected error for 24-bit integer")
	}
	if _, _, err := Decode(KindFloat, 16, make([]byte, 2), binary.LittleEndian); err == nil {
		t.Fatalf("expected error for 16-bit float")
	}
	if _, _, err := Decode(KindNull, 64, make([]byte, 8), binary.LittleEndian); err == nil {
		t.Fatalf("expected error for null kind")
	}
}

func TestDecodeHex(t *testing.T) {
	v, err := DecodeHex(KindFloat, 32, "0x3f800000", binary.BigEndian)
	if err != nil || v.Float64() != 1 {
		t.Fatalf("DecodeHex f32 = %s, %v", v, err)
	}
	for _, bad := range []string{"2a00000", "2a0000zz", "2a0000000000"} {
		if _, err := DecodeHex(KindInt, 32, bad, binary.LittleEndian); !errors.Is(err, ErrSyntax) {
			t.Fatalf("DecodeHex(%q) error = %v", bad, err)
		}
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		kind Kind
		bits int
		in   string
		want Value
	}{
		{KindInt, 8, "-128", Int8(math.MinInt8)},
		{KindInt, 8, "0xff", Int8(-1)},
		{KindInt, 1, "true", Bool(true)},
		{KindInt, 64, "0xffffffffffffffff", Int64(-1)},
		{KindFloat, 32, "0.1", Float32(0.1)},
		{KindFloat, 64, "-Inf", Float64(math.Inf(-1))},
		{KindFloat, 32, "1e40", Float32(float32(math.Inf(1)))},
		{KindNull, 0, "null", Null()},
	}
	for _, tc := range cases {
		got, err := Parse(tc.kind, tc.bits, tc.in)
		if err != nil || !got.Equal(tc.want) {
			t.Fatalf("Parse(%s%d, %q) = %s, %v; want %s", tc.kind, tc.bits, tc.in, got, err, tc.want)
		}
	}
	for _, bad := range []string{"256", "-129", "1.5", ""} {
		if _, err := Parse(KindInt, 8, bad); !errors.Is(err, ErrSyntax) {
			t.Fatalf("Parse(i8, %q) error = %v", bad, err)
		}
	}
}
