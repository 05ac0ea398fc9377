package arith

import (
	"math"
	"testing"

	"numstamp/internal/constant"
	"numstamp/internal/stamp"
)

func irange(w int, lo, hi int64) *stamp.IntegerStamp { return stamp.IntegerRange(w, lo, hi) }

func expectRange(t *testing.T, what string, got stamp.Stamp, lo, hi int64) {
	t.Helper()
	s, ok := got.(*stamp.IntegerStamp)
	if !ok {
		t.Fatalf("%s: got %s, want an integer stamp", what, got)
	}
	if s.IsEmpty() || s.LowerBound() != lo || s.UpperBound() != hi {
		t.Fatalf("%s = %s, want [%d, %d]", what, s, lo, hi)
	}
}

func TestIntegerAdd(t *testing.T) {
	expectRange(t, "add", FoldBinary(OpAdd, irange(32, 1, 10), irange(32, 100, 200)), 101, 210)
	expectRange(t, "constant add wraps", FoldBinary(OpAdd, stamp.IntegerConstant(8, 127), stamp.IntegerConstant(8, 1)), -128, -128)
	// Both bounds overflow the same way, so the range just moves.
	expectRange(t, "wrapping add", FoldBinary(OpAdd, irange(8, 100, 110), irange(8, 100, 110)), -56, -36)
	if got := FoldBinary(OpAdd, irange(8, 0, 100), irange(8, 0, 100)); !got.IsUnrestricted() {
		t.Fatalf("half-overflowing add = %s, want the full range", got)
	}
	u := stamp.UnrestrictedInteger(16)
	if got := FoldBinary(OpAdd, u, irange(16, 1, 2)); got != stamp.Stamp(u) {
		t.Fatalf("unrestricted operand should be returned, got %s", got)
	}
}

func TestIntegerAddKeepsLowBits(t *testing.T) {
	even := stamp.StampForMask(32, 0, 0xfffffffe)
	got := FoldBinary(OpAdd, even, even).(*stamp.IntegerStamp)
	if got.MayBeSet()&1 != 0 {
		t.Fatalf("even + even = %s, low bit must be clear", got)
	}
}

func TestIntegerSubAndNeg(t *testing.T) {
	expectRange(t, "sub", FoldBinary(OpSub, irange(32, 10, 20), irange(32, 1, 5)), 5, 19)
	expectRange(t, "neg", FoldUnary(OpNeg, irange(32, -3, 7)), -7, 3)
	expectRange(t, "neg of min", FoldUnary(OpNeg, stamp.IntegerConstant(8, -128)), -128, -128)
	if got := FoldUnary(OpNeg, irange(8, -128, 0)); !got.IsUnrestricted() {
		t.Fatalf("neg containing min = %s", got)
	}
}

func TestIntegerMul(t *testing.T) {
	expectRange(t, "mul", FoldBinary(OpMul, irange(32, -3, 4), irange(32, 2, 5)), -15, 20)
	expectRange(t, "mul negatives", FoldBinary(OpMul, irange(32, -3, -2), irange(32, -5, -1)), 2, 15)
	if got := FoldBinary(OpMul, irange(8, 0, 100), irange(8, 0, 3)); !got.IsUnrestricted() {
		t.Fatalf("overflowing mul = %s", got)
	}
	zero := stamp.IntegerConstant(32, 0)
	if got := FoldBinary(OpMul, stamp.UnrestrictedInteger(32), zero); got != stamp.Stamp(zero) {
		t.Fatalf("x * 0 = %s", got)
	}
	fours := stamp.StampForMask(32, 0, 0xfc)
	got := FoldBinary(OpMul, fours, irange(32, 2, 2)).(*stamp.IntegerStamp)
	if got.MayBeSet()&0b111 != 0 {
		t.Fatalf("multiple of 4 times 2 = %s, low three bits must be clear", got)
	}
}

func TestMulHigh(t *testing.T) {
	expectRange(t, "mulhigh", FoldBinary(OpMulHigh, irange(32, 1<<20, 1<<21), irange(32, 1<<12, 1<<13)), 1, 4)
	expectRange(t, "mulhigh negative", FoldBinary(OpMulHigh, irange(32, -(1<<20), -(1<<20)), irange(32, 1<<12, 1<<12)), -1, -1)
	c, _ := EvalBinary(OpMulHigh, constant.Int64(math.MinInt64), constant.Int64(2))
	if c.Int64() != -1 {
		t.Fatalf("mulhigh(min, 2) = %d, want -1", c.Int64())
	}
	u, _ := EvalBinary(OpUMulHigh, constant.Int64(-1), constant.Int64(2))
	if u.Int64() != 1 {
		t.Fatalf("umulhigh(2^64-1, 2) = %d, want 1", u.Int64())
	}
	u32, _ := EvalBinary(OpUMulHigh, constant.Int32(-1), constant.Int32(-1))
	if u32.Int64() != -2 {
		t.Fatalf("umulhigh32(-1, -1) = %d, want -2", u32.Int64())
	}
	if got := FoldBinary(OpUMulHigh, irange(32, -1, 1), irange(32, -1, 1)); !got.IsUnrestricted() {
		t.Fatalf("umulhigh over sign change = %s", got)
	}
}

func TestDivRem(t *testing.T) {
	expectRange(t, "div", FoldBinary(OpDiv, irange(32, -100, 50), irange(32, 3, 10)), -33, 16)
	if got := FoldBinary(OpDiv, irange(32, 1, 2), irange(32, -1, 1)); !got.IsUnrestricted() {
		t.Fatalf("div by range containing zero = %s", got)
	}
	if _, ok := EvalBinary(OpDiv, constant.Int32(1), constant.Int32(0)); ok {
		t.Fatalf("division by zero must not fold")
	}
	if c, ok := EvalBinary(OpDiv, constant.Int32(math.MinInt32), constant.Int32(-1)); !ok || c.Int64() != math.MinInt32 {
		t.Fatalf("min / -1 = %v, %v", c, ok)
	}
	expectRange(t, "rem", FoldBinary(OpRem, irange(32, -100, 50), irange(32, -7, 3)), -6, 6)
	expectRange(t, "rem of positives", FoldBinary(OpRem, irange(32, 0, 3), irange(32, 10, 20)), 0, 3)
	if c, _ := EvalBinary(OpRem, constant.Int32(-7), constant.Int32(3)); c.Int64() != -1 {
		t.Fatalf("-7 %% 3 = %d, want -1", c.Int64())
	}
}

func TestBitwise(t *testing.T) {
	a := stamp.StampForMask(8, 0b0001_0001, 0b0011_0011)
	b := stamp.StampForMask(8, 0b0000_0011, 0b0000_0111)
	and := FoldBinary(OpAnd, a, b).(*stamp.IntegerStamp)
	if and.MustBeSet() != 0b1 || and.MayBeSet() != 0b11 {
		t.Fatalf("and = %s", and)
	}
	or := FoldBinary(OpOr, a, b).(*stamp.IntegerStamp)
	if or.MustBeSet() != 0b1_0011 || or.MayBeSet() != 0b11_0111 {
		t.Fatalf("or = %s", or)
	}
	xor := FoldBinary(OpXor, a, b).(*stamp.IntegerStamp)
	if xor.MustBeSet()&0b1 != 0 || xor.MayBeSet()&0b1 != 0 || xor.MustBeSet()&0b1_0000 == 0 {
		t.Fatalf("xor = %s", xor)
	}
	expectRange(t, "not", FoldUnary(OpNot, irange(8, 3, 9)), -10, -4)
}

func TestMinMax(t *testing.T) {
	expectRange(t, "max", FoldBinary(OpMax, irange(32, -5, 3), irange(32, 0, 10)), 0, 10)
	expectRange(t, "min", FoldBinary(OpMin, irange(32, -5, 3), irange(32, 0, 10)), -5, 3)
	// Unsigned: negative values are the large ones.
	expectRange(t, "umax", FoldBinary(OpUMax, irange(8, -2, -1), irange(8, 3, 4)), -2, -1)
	expectRange(t, "umin", FoldBinary(OpUMin, irange(8, -2, -1), irange(8, 3, 4)), 3, 4)
	mixed := FoldBinary(OpUMax, irange(8, -1, 1), irange(8, 5, 6)).(*stamp.IntegerStamp)
	if !mixed.Contains(-1) || !mixed.Contains(5) {
		t.Fatalf("umax with sign-crossing operand = %s", mixed)
	}
	c, _ := EvalBinary(OpUMin, constant.Int8(-1), constant.Int8(7))
	if c.Int64() != 7 {
		t.Fatalf("umin(0xff, 7) = %d", c.Int64())
	}
}

func TestAbs(t *testing.T) {
	expectRange(t, "abs", FoldUnary(OpAbs, irange(32, -9, 4)), 0, 9)
	expectRange(t, "abs negative", FoldUnary(OpAbs, irange(32, -9, -4)), 4, 9)
	expectRange(t, "abs of min constant", FoldUnary(OpAbs, stamp.IntegerConstant(16, math.MinInt16)), math.MinInt16, math.MinInt16)
	if got := FoldUnary(OpAbs, irange(16, math.MinInt16, 0)); !got.IsUnrestricted() {
		t.Fatalf("abs containing min = %s", got)
	}
}

func TestCompressExpand(t *testing.T) {
	c, _ := EvalBinary(OpCompress, constant.Int32(0b1011_0000), constant.Int32(0b1111_0000))
	if c.Int64() != 0b1011 {
		t.Fatalf("compress = %#b", c.Int64())
	}
	e, _ := EvalBinary(OpExpand, constant.Int32(0b1011), constant.Int32(0b1111_0000))
	if e.Int64() != 0b1011_0000 {
		t.Fatalf("expand = %#b", e.Int64())
	}
	got := FoldBinary(OpCompress, stamp.UnrestrictedInteger(32), stamp.IntegerConstant(32, 0xff)).(*stamp.IntegerStamp)
	if got.LowerBound() != 0 || got.UpperBound() != 0xff {
		t.Fatalf("compress under 8-bit mask = %s", got)
	}
	exp := FoldBinary(OpExpand, stamp.UnrestrictedInteger(64), stamp.IntegerConstant(64, 0xf0)).(*stamp.IntegerStamp)
	if exp.MayBeSet() != 0xf0 {
		t.Fatalf("expand stamp = %s", exp)
	}
}

func TestEmptyOperandPropagates(t *testing.T) {
	empty := stamp.EmptyInteger(32)
	for _, op := range []Op{OpAdd, OpMul, OpDiv, OpAnd, OpUMax} {
		if got := FoldBinary(op, irange(32, 1, 2), empty); !got.IsEmpty() {
			t.Fatalf("%s with empty operand = %s", op, got)
		}
	}
	if got := FoldUnary(OpNeg, empty); !got.IsEmpty() {
		t.Fatalf("neg of empty = %s", got)
	}
}

func TestFoldBinaryPanicsOnMixedWidths(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	FoldBinary(OpAdd, irange(8, 0, 1), irange(16, 0, 1))
}
