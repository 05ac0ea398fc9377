package constant

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

var (
	// ErrShortBuffer reports that fewer bytes than the width needs were supplied.
	ErrShortBuffer = errors.New("constant: short buffer")
	// ErrSyntax reports a malformed literal.
	ErrSyntax = errors.New("constant: invalid literal")
)

// Size is the number of bytes a constant of the width occupies when encoded.
// 1-bit values occupy a whole byte.
func Size(bits int) int {
	if bits == 1 {
		return 1
	}
	return bits / 8
}

// AppendEncoded appends the fixed-size encoding of v in the given byte order.
func (v Value) AppendEncoded(dst []byte, order binary.ByteOrder) []byte {
	switch v.kind {
	case KindInt, KindFloat:
	default:
		panic(fmt.Sprintf("numstamp: cannot encode %s constant", v.kind))
	}
	switch v.bits {
	case 1:
		if v.raw != 0 {
			return append(dst, 1)
		}
		return append(dst, 0)
	case 8:
		return append(dst, byte(v.raw))
	}
	var scratch [8]byte
	switch v.bits {
	case 16:
		order.PutUint16(scratch[:], uint16(v.raw))
	case 32:
		order.PutUint32(scratch[:], uint32(v.raw))
	default:
		order.PutUint64(scratch[:], v.raw)
	}
	return append(dst, scratch[:v.bits/8]...)
}

// Encode returns the fixed-size encoding of v.
func (v Value) Encode(order binary.ByteOrder) []byte {
	return v.AppendEncoded(make([]byte, 0, Size(int(v.bits))), order)
}

// Decode reads exactly Size(bits) bytes from buf and rebuilds the constant.
// It returns the number of bytes consumed.
func Decode(kind Kind, bits int, buf []byte, order binary.ByteOrder) (Value, int, error) {
	switch kind {
	case KindInt:
		if !ValidIntBits(bits) {
			return Value{}, 0, fmt.Errorf("decode i%d: unsupported width", bits)
		}
	case KindFloat:
		if !ValidFloatBits(bits) {
			return Value{}, 0, fmt.Errorf("decode f%d: unsupported width", bits)
		}
	default:
		return Value{}, 0, fmt.Errorf("decode %s: not a primitive kind", kind)
	}
	n := Size(bits)
	if len(buf) < n {
		return Value{}, 0, fmt.Errorf("decode %d-bit %s from %d bytes: %w", bits, kind, len(buf), ErrShortBuffer)
	}
	var raw uint64
	switch bits {
	case 1:
		if buf[0] != 0 {
			return Bool(true), n, nil
		}
		return Bool(false), n, nil
	case 8:
		raw = uint64(buf[0])
	case 16:
		raw = uint64(order.Uint16(buf))
	case 32:
		raw = uint64(order.Uint32(buf))
	default:
		raw = order.Uint64(buf)
	}
	return FromBits(kind, bits, raw), n, nil
}

// Parse reads a literal of the given kind and width. Integers accept signed
// decimal, 0x/0o/0b prefixed patterns and true/false for 1-bit values; floats
// accept anything strconv does, including NaN and ±Inf.
func Parse(kind Kind, bits int, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch kind {
	case KindInt:
		if !ValidIntBits(bits) {
			return Value{}, fmt.Errorf("parse %q: unsupported width %d: %w", s, bits, ErrSyntax)
		}
		if bits == 1 {
			if b, err := strconv.ParseBool(s); err == nil {
				return Bool(b), nil
			}
		}
		if v, err := strconv.ParseInt(s, 0, 64); err == nil {
			if v < math.MinInt64>>(64-bits) || v > math.MaxInt64>>(64-bits) {
				// Out of the signed range: accept only as an unsigned pattern.
				if v < 0 || uint64(v) > math.MaxUint64>>(64-bits) {
					return Value{}, fmt.Errorf("parse %q: out of range for i%d: %w", s, bits, ErrSyntax)
				}
			}
			return Int(bits, v), nil
		}
		u, err := strconv.ParseUint(s, 0, bits)
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as i%d: %w", s, bits, ErrSyntax)
		}
		return Int(bits, int64(u)), nil
	case KindFloat:
		if !ValidFloatBits(bits) {
			return Value{}, fmt.Errorf("parse %q: unsupported width %d: %w", s, bits, ErrSyntax)
		}
		f, err := strconv.ParseFloat(s, bits)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Value{}, fmt.Errorf("parse %q as f%d: %w", s, bits, ErrSyntax)
		}
		return Float(bits, f), nil
	case KindNull:
		if s != "null" {
			return Value{}, fmt.Errorf("parse %q as null: %w", s, ErrSyntax)
		}
		return Null(), nil
	}
	return Value{}, fmt.Errorf("parse %q: unsupported kind %s: %w", s, kind, ErrSyntax)
}

// DecodeHex decodes a hex string holding exactly one encoded constant.
func DecodeHex(kind Kind, bits int, hex string, order binary.ByteOrder) (Value, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "0x")
	if len(hex)%2 != 0 {
		return Value{}, fmt.Errorf("decode hex %q: odd length: %w", hex, ErrSyntax)
	}
	buf := make([]byte, 0, len(hex)/2)
	for i := 0; i < len(hex); i += 2 {
		b, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return Value{}, fmt.Errorf("decode hex %q: %w", hex, ErrSyntax)
		}
		octet, err := safecast.Conv[byte](b)
		if err != nil {
			return Value{}, fmt.Errorf("decode hex %q: %w", hex, err)
		}
		buf = append(buf, octet)
	}
	v, n, err := Decode(kind, bits, buf, order)
	if err != nil {
		return Value{}, err
	}
	if n != len(buf) {
		return Value{}, fmt.Errorf("decode hex %q: %d trailing bytes: %w", hex, len(buf)-n, ErrSyntax)
	}
	return v, nil
}
