package arith

import (
	"fmt"
	"math/bits"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
	"numstamp/internal/stamp"
)

// ShiftAmountMask is applied to shift counts before shifting: the hardware
// only looks at the low five bits for 32-bit and narrower values and the low
// six for 64-bit ones.
func ShiftAmountMask(width int) int {
	if width > 32 {
		return 63
	}
	return 31
}

func foldShift(op Op, sv, sa stamp.Stamp) stamp.Stamp {
	value := asInteger(op, sv)
	amount, ok := sa.(*stamp.IntegerStamp)
	if !ok {
		panic(fmt.Sprintf("numstamp: %s amount must be an integer, got %s", op, sa))
	}
	if value.IsEmpty() {
		return value
	}
	if amount.IsEmpty() {
		return value.Empty()
	}
	switch op {
	case OpShl:
		return shlStamp(value, amount)
	case OpShr:
		return shrStamp(value, amount, false)
	case OpUShr:
		return shrStamp(value, amount, true)
	}
	panic(unsupported(op, sv))
}

func shlStamp(value, amount *stamp.IntegerStamp) stamp.Stamp {
	w := value.Bits()
	if value.MayBeSet() == 0 {
		return value
	}
	shiftMask := int64(ShiftAmountMask(w))
	mask := numutil.Mask(w)
	if isSingleton(amount) {
		n := int(amount.LowerBound() & shiftMask)
		if n == 0 {
			return value
		}
		if n >= w {
			return stamp.IntegerConstant(w, 0)
		}
		if keepsSign(w, value.LowerBound(), n) && keepsSign(w, value.UpperBound(), n) {
			return stamp.CreateIntegerMasked(w, value.LowerBound()<<uint(n), value.UpperBound()<<uint(n),
				value.MustBeSet()<<uint(n)&mask, value.MayBeSet()<<uint(n)&mask)
		}
	}
	// Walk every count when the whole amount range maps onto one window of
	// the masked shift. Counts are walked masked so the loop stays inside
	// [0, shiftMask] whatever the amount's width.
	window := uint(bits.OnesCount64(uint64(shiftMask)))
	lo, hi := amount.LowerBound(), amount.UpperBound()
	if uint64(lo)>>window == uint64(hi)>>window {
		base := lo &^ shiftMask
		must, may := mask, uint64(0)
		for n := uint(lo & shiftMask); n <= uint(hi&shiftMask); n++ {
			if !amount.Contains(base | int64(n)) {
				continue
			}
			must &= value.MustBeSet() << n
			may |= value.MayBeSet() << n
		}
		return stamp.StampForMask(w, must&mask, may&mask)
	}
	return value.Unrestricted()
}

// keepsSign reports whether shifting v left by n leaves the bits that fall
// off, and the new sign bit, equal to the old sign.
func keepsSign(width int, v int64, n int) bool {
	removed := int64(-1) << uint(width-n-1)
	if v < 0 {
		return v&removed == removed
	}
	return v&removed == 0
}

func shrStamp(value, amount *stamp.IntegerStamp, unsigned bool) stamp.Stamp {
	w := value.Bits()
	if !isSingleton(amount) {
		return stamp.StampForMask(w, 0, stamp.MayBeSetFor(w, value.LowerBound(), value.UpperBound()))
	}
	n := uint(amount.LowerBound() & int64(ShiftAmountMask(w)))
	if n == 0 {
		return value
	}
	mask := numutil.Mask(w)
	if unsigned {
		must := value.MustBeSet() >> n
		may := value.MayBeSet() >> n
		if value.LowerBound() < 0 {
			return stamp.CreateIntegerMasked(w, int64(must), int64(may), must, may)
		}
		return stamp.CreateIntegerMasked(w, value.LowerBound()>>n, value.UpperBound()>>n, must, may)
	}
	// Sign-extend the masks from the width before the arithmetic shift.
	extra := uint(64 - w)
	must := uint64(int64(value.MustBeSet()<<extra)>>(n+extra)) & mask
	may := uint64(int64(value.MayBeSet()<<extra)>>(n+extra)) & mask
	return stamp.CreateIntegerMasked(w, value.LowerBound()>>n, value.UpperBound()>>n, must, may)
}

func evalShift(op Op, c constant.Value, amount int64) (constant.Value, bool) {
	v := intOperand(op, c)
	w := c.Bits()
	n := uint(amount & int64(ShiftAmountMask(w)))
	switch op {
	case OpShl:
		return constant.Int(w, v<<n), true
	case OpShr:
		return constant.Int(w, v>>n), true
	case OpUShr:
		return constant.Int(w, int64((uint64(v)&numutil.Mask(w))>>n)), true
	}
	panic(fmt.Sprintf("numstamp: %s is not a shift", op))
}
