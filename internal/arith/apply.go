package arith

import (
	"errors"
	"fmt"
	"math"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
	"numstamp/internal/stamp"
)

var (
	// ErrArity reports a wrong number of operands for an operator.
	ErrArity = errors.New("wrong number of operands")
	// ErrOperand reports an operand kind or width the operator is not
	// defined on.
	ErrOperand = errors.New("unsupported operand")
)

// FoldUnary applies a unary operator to a stamp.
func FoldUnary(op Op, s stamp.Stamp) stamp.Stamp {
	if op.Shape() != ShapeUnary {
		panic(fmt.Sprintf("numstamp: %s is not unary", op))
	}
	if s.Kind() == stamp.KindFloat {
		return foldFloatUnary(op, s)
	}
	return foldIntegerUnary(op, s)
}

// FoldBinary applies a binary operator to two stamps of the same kind and
// width. An empty operand makes the result empty.
func FoldBinary(op Op, a, b stamp.Stamp) stamp.Stamp {
	if op.Shape() != ShapeBinary {
		panic(fmt.Sprintf("numstamp: %s is not binary", op))
	}
	if a.Kind() == stamp.KindFloat {
		return foldFloatBinary(op, a, b)
	}
	return foldIntegerBinary(op, a, b)
}

// FoldShift shifts value by amount. The amount may have any integer width.
func FoldShift(op Op, value, amount stamp.Stamp) stamp.Stamp {
	if op.Shape() != ShapeShift {
		panic(fmt.Sprintf("numstamp: %s is not a shift", op))
	}
	return foldShift(op, value, amount)
}

// FoldIntegerConvert extends or narrows s to resultBits.
func FoldIntegerConvert(op Op, resultBits int, s stamp.Stamp) stamp.Stamp {
	return foldIntegerConvert(op, resultBits, s)
}

// InvertIntegerConvert returns the stamp of inputBits values that op maps
// into out. Narrow has no inverse and reports false.
func InvertIntegerConvert(op Op, inputBits int, out stamp.Stamp) (stamp.Stamp, bool) {
	return invertIntegerConvert(op, inputBits, out)
}

// FoldFloatConvert applies one of the fixed-width conversions between float
// and integer kinds.
func FoldFloatConvert(op Op, s stamp.Stamp) stamp.Stamp {
	return foldFloatConvert(op, s)
}

// FoldReinterpret views the bits of an integer stamp as a float or the other
// way around.
func FoldReinterpret(s stamp.Stamp) stamp.Stamp {
	return foldReinterpret(s)
}

// FoldFMA computes the stamp of a*b+c.
func FoldFMA(a, b, c stamp.Stamp) stamp.Stamp {
	return foldFMA(a, b, c)
}

// EvalUnary folds a unary operator over a constant.
func EvalUnary(op Op, c constant.Value) (constant.Value, bool) {
	if op.Shape() != ShapeUnary {
		panic(fmt.Sprintf("numstamp: %s is not unary", op))
	}
	if c.Kind() == constant.KindFloat {
		return evalFloatUnary(op, c)
	}
	return evalIntegerUnary(op, c)
}

// EvalBinary folds a binary operator over two constants. It reports false
// where the operation has no value, such as integer division by zero.
func EvalBinary(op Op, a, b constant.Value) (constant.Value, bool) {
	if op.Shape() != ShapeBinary {
		panic(fmt.Sprintf("numstamp: %s is not binary", op))
	}
	if a.Kind() == constant.KindFloat {
		return evalFloatBinary(op, a, b)
	}
	return evalIntegerBinary(op, a, b)
}

// EvalShift shifts a constant; the amount is masked like the hardware does.
func EvalShift(op Op, c constant.Value, amount int64) (constant.Value, bool) {
	return evalShift(op, c, amount)
}

func EvalIntegerConvert(op Op, resultBits int, c constant.Value) (constant.Value, bool) {
	return evalIntegerConvert(op, resultBits, c), true
}

func EvalFloatConvert(op Op, c constant.Value) (constant.Value, bool) {
	return evalFloatConvert(op, c), true
}

func EvalReinterpret(c constant.Value) (constant.Value, bool) {
	return evalReinterpret(c), true
}

func EvalFMA(a, b, c constant.Value) (constant.Value, bool) {
	return evalFMA(a, b, c), true
}

// Fold validates the operands and dispatches on the operator's shape.
// resultBits is only read for integer conversions.
func Fold(op Op, resultBits int, args ...stamp.Stamp) (stamp.Stamp, error) {
	shapes := make([]operand, len(args))
	for i, s := range args {
		if s == nil {
			return nil, fmt.Errorf("%s: operand %d: %w: nil stamp", op, i+1, ErrOperand)
		}
		shapes[i] = operand{kind: s.Kind(), bits: bitsOf(s)}
	}
	if err := validate(op, resultBits, shapes); err != nil {
		return nil, err
	}
	switch op.Shape() {
	case ShapeUnary:
		return FoldUnary(op, args[0]), nil
	case ShapeBinary:
		return FoldBinary(op, args[0], args[1]), nil
	case ShapeShift:
		return FoldShift(op, args[0], args[1]), nil
	case ShapeIntegerConvert:
		return FoldIntegerConvert(op, resultBits, args[0]), nil
	case ShapeFloatConvert:
		return FoldFloatConvert(op, args[0]), nil
	case ShapeReinterpret:
		return FoldReinterpret(args[0]), nil
	case ShapeTernary:
		return FoldFMA(args[0], args[1], args[2]), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownOp, op)
}

// Eval is Fold for constants.
func Eval(op Op, resultBits int, args ...constant.Value) (constant.Value, bool, error) {
	shapes := make([]operand, len(args))
	for i, c := range args {
		shapes[i] = operand{kind: constantKind(c), bits: c.Bits()}
	}
	if err := validate(op, resultBits, shapes); err != nil {
		return constant.Value{}, false, err
	}
	var (
		r  constant.Value
		ok bool
	)
	switch op.Shape() {
	case ShapeUnary:
		r, ok = EvalUnary(op, args[0])
	case ShapeBinary:
		r, ok = EvalBinary(op, args[0], args[1])
	case ShapeShift:
		r, ok = EvalShift(op, args[0], args[1].Int64())
	case ShapeIntegerConvert:
		r, ok = EvalIntegerConvert(op, resultBits, args[0])
	case ShapeFloatConvert:
		r, ok = EvalFloatConvert(op, args[0])
	case ShapeReinterpret:
		r, ok = EvalReinterpret(args[0])
	case ShapeTernary:
		r, ok = EvalFMA(args[0], args[1], args[2])
	default:
		return constant.Value{}, false, fmt.Errorf("%w: %s", ErrUnknownOp, op)
	}
	return r, ok, nil
}

type operand struct {
	kind stamp.Kind
	bits int
}

func constantKind(c constant.Value) stamp.Kind {
	switch c.Kind() {
	case constant.KindInt:
		return stamp.KindInteger
	case constant.KindFloat:
		return stamp.KindFloat
	case constant.KindNull:
		return stamp.KindObject
	}
	return stamp.KindIllegal
}

func validate(op Op, resultBits int, args []operand) error {
	shape := op.Shape()
	if shape == ShapeNone {
		return fmt.Errorf("%w: %s", ErrUnknownOp, op)
	}
	if len(args) != shape.Arity() {
		return fmt.Errorf("%s: %w: got %d, want %d", op, ErrArity, len(args), shape.Arity())
	}
	first := args[0]
	if !op.Supports(first.kind, first.bits) {
		return fmt.Errorf("%s: %w: %s%d", op, ErrOperand, first.kind, first.bits)
	}
	switch shape {
	case ShapeBinary, ShapeTernary:
		for i, a := range args[1:] {
			if a != first {
				return fmt.Errorf("%s: operand %d: %w: %s%d does not match %s%d",
					op, i+2, ErrOperand, a.kind, a.bits, first.kind, first.bits)
			}
		}
	case ShapeShift:
		if args[1].kind != stamp.KindInteger {
			return fmt.Errorf("%s: %w: shift amount must be an integer", op, ErrOperand)
		}
	case ShapeIntegerConvert:
		if !constant.ValidIntBits(resultBits) {
			return fmt.Errorf("%s: %w: result width %d", op, ErrOperand, resultBits)
		}
		if op == OpNarrow && resultBits > first.bits || op != OpNarrow && resultBits < first.bits {
			return fmt.Errorf("%s: %w: i%d to i%d", op, ErrOperand, first.bits, resultBits)
		}
	}
	return nil
}

// IsNeutral reports whether c is a right identity of op: x op c == x for
// every x. For shifts c is the shift amount.
func IsNeutral(op Op, c constant.Value) bool {
	switch c.Kind() {
	case constant.KindInt:
		v, w := c.Int64(), c.Bits()
		switch op {
		case OpAdd, OpSub, OpOr, OpXor, OpUMax, OpShl, OpShr, OpUShr:
			return v == 0
		case OpMul, OpDiv:
			return v == 1
		case OpAnd:
			return uint64(v)&numutil.Mask(w) == numutil.Mask(w)
		case OpMax:
			return v == numutil.MinValue(w)
		case OpMin:
			return v == numutil.MaxValue(w)
		case OpUMin:
			return numutil.ZeroExtend(v, w) == numutil.MaxValueUnsigned(w)
		}
	case constant.KindFloat:
		f := c.Float64()
		switch op {
		case OpAdd:
			// x + 0.0 turns -0.0 into 0.0.
			return f == 0 && math.Signbit(f)
		case OpSub:
			return f == 0 && !math.Signbit(f)
		case OpMul, OpDiv:
			return f == 1
		case OpAnd:
			return c.Raw() == numutil.Mask(c.Bits())
		case OpOr, OpXor:
			return c.Raw() == 0
		case OpMax:
			return math.IsInf(f, -1)
		case OpMin:
			return math.IsInf(f, 1)
		}
	}
	return false
}

// Zero returns the constant x op x folds to for every x of s, if any.
func Zero(op Op, s stamp.Stamp) (constant.Value, bool) {
	i, ok := s.(*stamp.IntegerStamp)
	if !ok || (op != OpSub && op != OpXor) {
		return constant.Value{}, false
	}
	return constant.Int(i.Bits(), 0), true
}
