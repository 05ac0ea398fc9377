// Package arith holds the per-operator transfer functions of the stamp
// lattice: for every operator a constant fold over concrete values and an
// abstract fold over stamps, plus the algebraic metadata optimizers query.
//
// The typed entry points (FoldBinary, EvalBinary, ...) panic when handed a
// stamp the operator is not defined on. Fold and Eval validate their
// arguments and report misuse as errors instead.
package arith

import (
	"errors"
	"fmt"
	"strings"

	"numstamp/internal/stamp"
)

// ErrUnknownOp is returned by Lookup for names that do not denote an operator.
var ErrUnknownOp = errors.New("unknown operator")

// Op identifies an arithmetic operator.
type Op uint8

const (
	OpInvalid Op = iota

	OpNeg
	OpNot
	OpAbs
	OpSqrt

	OpAdd
	OpSub
	OpMul
	OpMulHigh
	OpUMulHigh
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpMax
	OpMin
	OpUMax
	OpUMin
	OpCompress
	OpExpand

	OpShl
	OpShr
	OpUShr

	OpZeroExtend
	OpSignExtend
	OpNarrow

	OpF2I
	OpD2I
	OpF2L
	OpD2L
	OpI2F
	OpL2F
	OpI2D
	OpL2D
	OpF2D
	OpD2F
	OpF2UI
	OpD2UI
	OpF2UL
	OpD2UL

	OpReinterpret
	OpFMA

	opCount
)

// Shape describes the operands an operator takes.
type Shape uint8

const (
	ShapeNone Shape = iota
	ShapeUnary
	ShapeBinary
	ShapeShift          // value stamp plus an integer shift amount
	ShapeIntegerConvert // integer width change, result width supplied by the caller
	ShapeFloatConvert   // fixed source and result kinds
	ShapeReinterpret    // same width, integer <-> float
	ShapeTernary
)

// Arity is the number of stamp operands.
func (s Shape) Arity() int {
	switch s {
	case ShapeUnary, ShapeIntegerConvert, ShapeFloatConvert, ShapeReinterpret:
		return 1
	case ShapeBinary, ShapeShift:
		return 2
	case ShapeTernary:
		return 3
	}
	return 0
}

// FamilyMask describes the stamp kinds an operator is defined on.
type FamilyMask uint8

const (
	FamilyNone    FamilyMask = 0
	FamilyInteger FamilyMask = 1 << iota
	FamilyFloat
)

const FamilyNumeric = FamilyInteger | FamilyFloat

// Flags annotate algebraic properties of an operator on one family.
type Flags uint8

const (
	FlagNone        Flags = 0
	FlagAssociative Flags = 1 << iota
	FlagCommutative
	FlagWideOnly // integer form exists for 32 and 64 bits only
)

const flagsAC = FlagAssociative | FlagCommutative

// Info lists the metadata of one operator.
type Info struct {
	Name       string
	Shape      Shape
	Families   FamilyMask
	IntFlags   Flags
	FloatFlags Flags
}

var infoTable = [opCount]Info{
	OpNeg:  {Name: "neg", Shape: ShapeUnary, Families: FamilyNumeric},
	OpNot:  {Name: "not", Shape: ShapeUnary, Families: FamilyNumeric},
	OpAbs:  {Name: "abs", Shape: ShapeUnary, Families: FamilyNumeric},
	OpSqrt: {Name: "sqrt", Shape: ShapeUnary, Families: FamilyFloat},

	OpAdd:      {Name: "add", Shape: ShapeBinary, Families: FamilyNumeric, IntFlags: flagsAC, FloatFlags: FlagCommutative},
	OpSub:      {Name: "sub", Shape: ShapeBinary, Families: FamilyNumeric},
	OpMul:      {Name: "mul", Shape: ShapeBinary, Families: FamilyNumeric, IntFlags: flagsAC, FloatFlags: FlagCommutative},
	OpMulHigh:  {Name: "mulhigh", Shape: ShapeBinary, Families: FamilyInteger, IntFlags: FlagCommutative | FlagWideOnly},
	OpUMulHigh: {Name: "umulhigh", Shape: ShapeBinary, Families: FamilyInteger, IntFlags: FlagCommutative | FlagWideOnly},
	OpDiv:      {Name: "div", Shape: ShapeBinary, Families: FamilyNumeric},
	OpRem:      {Name: "rem", Shape: ShapeBinary, Families: FamilyNumeric},
	OpAnd:      {Name: "and", Shape: ShapeBinary, Families: FamilyNumeric, IntFlags: flagsAC, FloatFlags: flagsAC},
	OpOr:       {Name: "or", Shape: ShapeBinary, Families: FamilyNumeric, IntFlags: flagsAC, FloatFlags: flagsAC},
	OpXor:      {Name: "xor", Shape: ShapeBinary, Families: FamilyNumeric, IntFlags: flagsAC, FloatFlags: flagsAC},
	OpMax:      {Name: "max", Shape: ShapeBinary, Families: FamilyNumeric, IntFlags: flagsAC, FloatFlags: flagsAC},
	OpMin:      {Name: "min", Shape: ShapeBinary, Families: FamilyNumeric, IntFlags: flagsAC, FloatFlags: flagsAC},
	OpUMax:     {Name: "umax", Shape: ShapeBinary, Families: FamilyInteger, IntFlags: flagsAC},
	OpUMin:     {Name: "umin", Shape: ShapeBinary, Families: FamilyInteger, IntFlags: flagsAC},
	OpCompress: {Name: "compress", Shape: ShapeBinary, Families: FamilyInteger, IntFlags: FlagWideOnly},
	OpExpand:   {Name: "expand", Shape: ShapeBinary, Families: FamilyInteger, IntFlags: FlagWideOnly},

	OpShl:  {Name: "shl", Shape: ShapeShift, Families: FamilyInteger},
	OpShr:  {Name: "shr", Shape: ShapeShift, Families: FamilyInteger},
	OpUShr: {Name: "ushr", Shape: ShapeShift, Families: FamilyInteger},

	OpZeroExtend: {Name: "zeroextend", Shape: ShapeIntegerConvert, Families: FamilyInteger},
	OpSignExtend: {Name: "signextend", Shape: ShapeIntegerConvert, Families: FamilyInteger},
	OpNarrow:     {Name: "narrow", Shape: ShapeIntegerConvert, Families: FamilyInteger},

	OpF2I:  {Name: "f2i", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpD2I:  {Name: "d2i", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpF2L:  {Name: "f2l", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpD2L:  {Name: "d2l", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpI2F:  {Name: "i2f", Shape: ShapeFloatConvert, Families: FamilyInteger},
	OpL2F:  {Name: "l2f", Shape: ShapeFloatConvert, Families: FamilyInteger},
	OpI2D:  {Name: "i2d", Shape: ShapeFloatConvert, Families: FamilyInteger},
	OpL2D:  {Name: "l2d", Shape: ShapeFloatConvert, Families: FamilyInteger},
	OpF2D:  {Name: "f2d", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpD2F:  {Name: "d2f", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpF2UI: {Name: "f2ui", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpD2UI: {Name: "d2ui", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpF2UL: {Name: "f2ul", Shape: ShapeFloatConvert, Families: FamilyFloat},
	OpD2UL: {Name: "d2ul", Shape: ShapeFloatConvert, Families: FamilyFloat},

	OpReinterpret: {Name: "reinterpret", Shape: ShapeReinterpret, Families: FamilyNumeric, IntFlags: FlagWideOnly},
	OpFMA:         {Name: "fma", Shape: ShapeTernary, Families: FamilyFloat},
}

// floatConvert describes the fixed source and result of a FloatConvert op.
type floatConvert struct {
	from     stamp.Kind
	fromBits int
	to       stamp.Kind
	toBits   int
	unsigned bool
}

var convertTable = map[Op]floatConvert{
	OpF2I:  {stamp.KindFloat, 32, stamp.KindInteger, 32, false},
	OpD2I:  {stamp.KindFloat, 64, stamp.KindInteger, 32, false},
	OpF2L:  {stamp.KindFloat, 32, stamp.KindInteger, 64, false},
	OpD2L:  {stamp.KindFloat, 64, stamp.KindInteger, 64, false},
	OpI2F:  {stamp.KindInteger, 32, stamp.KindFloat, 32, false},
	OpL2F:  {stamp.KindInteger, 64, stamp.KindFloat, 32, false},
	OpI2D:  {stamp.KindInteger, 32, stamp.KindFloat, 64, false},
	OpL2D:  {stamp.KindInteger, 64, stamp.KindFloat, 64, false},
	OpF2D:  {stamp.KindFloat, 32, stamp.KindFloat, 64, false},
	OpD2F:  {stamp.KindFloat, 64, stamp.KindFloat, 32, false},
	OpF2UI: {stamp.KindFloat, 32, stamp.KindInteger, 32, true},
	OpD2UI: {stamp.KindFloat, 64, stamp.KindInteger, 32, true},
	OpF2UL: {stamp.KindFloat, 32, stamp.KindInteger, 64, true},
	OpD2UL: {stamp.KindFloat, 64, stamp.KindInteger, 64, true},
}

var nameIndex = func() map[string]Op {
	m := make(map[string]Op, opCount)
	for op := OpInvalid + 1; op < opCount; op++ {
		m[infoTable[op].Name] = op
	}
	return m
}()

// Lookup resolves an operator name, ignoring case.
func Lookup(name string) (Op, error) {
	if op, ok := nameIndex[strings.ToLower(strings.TrimSpace(name))]; ok {
		return op, nil
	}
	return OpInvalid, fmt.Errorf("%w: %q", ErrUnknownOp, name)
}

// All returns every operator in declaration order.
func All() []Op {
	ops := make([]Op, 0, opCount-1)
	for op := OpInvalid + 1; op < opCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Info returns the metadata of op.
func (op Op) Info() Info {
	if op >= opCount {
		return Info{}
	}
	return infoTable[op]
}

func (op Op) String() string {
	if name := op.Info().Name; name != "" {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

func (op Op) Shape() Shape { return op.Info().Shape }

func (op Op) flags(k stamp.Kind) Flags {
	switch k {
	case stamp.KindInteger:
		return op.Info().IntFlags
	case stamp.KindFloat:
		return op.Info().FloatFlags
	}
	return FlagNone
}

// IsAssociative reports whether (a op b) op c == a op (b op c) on kind k.
func (op Op) IsAssociative(k stamp.Kind) bool { return op.flags(k)&FlagAssociative != 0 }

// IsCommutative reports whether a op b == b op a on kind k.
func (op Op) IsCommutative(k stamp.Kind) bool { return op.flags(k)&FlagCommutative != 0 }

// Supports reports whether op has a transfer function for stamps of the given
// kind and width. For conversions the width is the source width.
func (op Op) Supports(k stamp.Kind, bits int) bool {
	info := op.Info()
	var family FamilyMask
	switch k {
	case stamp.KindInteger:
		family = FamilyInteger
	case stamp.KindFloat:
		family = FamilyFloat
	default:
		return false
	}
	if info.Families&family == 0 {
		return false
	}
	if conv, ok := convertTable[op]; ok {
		return conv.from == k && conv.fromBits == bits
	}
	if k == stamp.KindInteger && info.IntFlags&FlagWideOnly != 0 {
		return bits == 32 || bits == 64
	}
	return true
}

// ResultBits is the result width of a FloatConvert op, or zero.
func (op Op) ResultBits() int {
	return convertTable[op].toBits
}

func unsupported(op Op, s stamp.Stamp) string {
	return fmt.Sprintf("numstamp: %s is not defined on %s", op, s)
}
