// Package stamp implements the abstract value lattice: every stamp describes
// the set of runtime values an expression may produce. Stamps are immutable
// and safe to share between goroutines.
//
// Mixing kinds or widths in a lattice operation is a programming error and
// panics; "no legal value" is represented in-band by the empty stamp.
package stamp

import (
	"encoding/binary"
	"fmt"

	"numstamp/internal/constant"
)

// Kind tags the stamp variant.
type Kind uint8

const (
	KindIllegal Kind = iota
	KindInteger
	KindFloat
	KindObject
	KindPointer
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindObject:
		return "object"
	case KindPointer:
		return "pointer"
	case KindVoid:
		return "void"
	default:
		return "illegal"
	}
}

// Stamp is the contract every lattice variant implements.
type Stamp interface {
	Kind() Kind

	// Unrestricted is the top element of the receiver's kind and width.
	Unrestricted() Stamp
	// Empty is the bottom element of the receiver's kind and width.
	Empty() Stamp

	// Meet returns the smallest stamp containing both operands' values.
	Meet(other Stamp) Stamp
	// Join returns the largest stamp contained in both operands.
	Join(other Stamp) Stamp

	IsUnrestricted() bool
	IsEmpty() bool
	HasValues() bool

	IsCompatible(other Stamp) bool
	IsCompatibleConstant(c constant.Value) bool

	// AsConstant returns the single value the stamp denotes, if any.
	AsConstant() (constant.Value, bool)
	// Constant returns the narrowest stamp of the receiver's shape holding c.
	Constant(c constant.Value) Stamp

	// ImproveWith narrows the receiver with extra knowledge; it is Join for
	// compatible stamps and the receiver otherwise.
	ImproveWith(other Stamp) Stamp

	// Deserialize decodes one constant of this stamp's kind and width.
	Deserialize(buf []byte, order binary.ByteOrder) (constant.Value, error)
	// ReadConstant loads a constant of this stamp from memory.
	ReadConstant(mem MemoryReader, base any, offset int64) (constant.Value, bool)

	Equal(other Stamp) bool
	String() string
}

// Numeric is implemented by integer and float stamps.
type Numeric interface {
	Stamp
	Bits() int
	PrimitiveKind() PrimitiveKind
	StackKind() PrimitiveKind
}

// PrimitiveKind is the host primitive type a numeric stamp maps to.
type PrimitiveKind uint8

const (
	PrimitiveIllegal PrimitiveKind = iota
	PrimitiveBoolean
	PrimitiveByte
	PrimitiveShort
	PrimitiveInt
	PrimitiveLong
	PrimitiveFloat
	PrimitiveDouble
	PrimitiveObject
	PrimitiveVoid
)

var primitiveNames = [...]string{
	PrimitiveIllegal: "illegal",
	PrimitiveBoolean: "boolean",
	PrimitiveByte:    "byte",
	PrimitiveShort:   "short",
	PrimitiveInt:     "int",
	PrimitiveLong:    "long",
	PrimitiveFloat:   "float",
	PrimitiveDouble:  "double",
	PrimitiveObject:  "object",
	PrimitiveVoid:    "void",
}

func (p PrimitiveKind) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return "illegal"
}

// Bits returns the width of the primitive; zero for non-numeric kinds.
func (p PrimitiveKind) Bits() int {
	switch p {
	case PrimitiveBoolean:
		return 1
	case PrimitiveByte:
		return 8
	case PrimitiveShort:
		return 16
	case PrimitiveInt, PrimitiveFloat:
		return 32
	case PrimitiveLong, PrimitiveDouble:
		return 64
	}
	return 0
}

// IsNumericInteger reports boolean through long.
func (p PrimitiveKind) IsNumericInteger() bool {
	return p >= PrimitiveBoolean && p <= PrimitiveLong
}

// IsNumericFloat reports float and double.
func (p PrimitiveKind) IsNumericFloat() bool {
	return p == PrimitiveFloat || p == PrimitiveDouble
}

// StackBits is the width of the machine word an operation of the given width
// computes in: 32 for anything up to int, otherwise 64.
func StackBits(bits int) int {
	if bits > 32 {
		return 64
	}
	return 32
}

func mismatch(op string, a, b Stamp) string {
	return fmt.Sprintf("numstamp: %s of incompatible stamps %s and %s", op, a, b)
}
