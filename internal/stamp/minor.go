package stamp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"numstamp/internal/constant"
)

// ErrNoEncoding is returned when a stamp kind has no binary constant form.
var ErrNoEncoding = errors.New("numstamp: stamp has no constant encoding")

// ObjectStamp is a shallow reference stamp: an optional type name plus
// nullness. Type names are compared by identity only; there is no
// hierarchy.
type ObjectStamp struct {
	typeName   string
	exact      bool
	nonNull    bool
	alwaysNull bool
	empty      bool
}

var (
	objectUnrestricted = &ObjectStamp{}
	objectEmpty        = &ObjectStamp{nonNull: true, alwaysNull: true, empty: true}
	objectNonNull      = &ObjectStamp{nonNull: true}
	objectAlwaysNull   = &ObjectStamp{alwaysNull: true}
)

// Object is the unrestricted reference stamp.
func Object() *ObjectStamp { return objectUnrestricted }

// ObjectNonNull excludes null.
func ObjectNonNull() *ObjectStamp { return objectNonNull }

// AlwaysNull holds only null.
func AlwaysNull() *ObjectStamp { return objectAlwaysNull }

// ForObject builds a reference stamp. Contradictory nullness yields the empty
// stamp.
func ForObject(typeName string, exact, nonNull, alwaysNull bool) *ObjectStamp {
	if nonNull && alwaysNull {
		return objectEmpty
	}
	if alwaysNull {
		typeName = ""
	}
	if typeName == "" {
		exact = false
	}
	s := &ObjectStamp{typeName: typeName, exact: exact, nonNull: nonNull, alwaysNull: alwaysNull}
	for _, c := range []*ObjectStamp{objectUnrestricted, objectNonNull, objectAlwaysNull} {
		if c.Equal(s) {
			return c
		}
	}
	return s
}

func (s *ObjectStamp) Kind() Kind         { return KindObject }
func (s *ObjectStamp) TypeName() string   { return s.typeName }
func (s *ObjectStamp) IsExact() bool      { return s.exact }
func (s *ObjectStamp) IsNonNull() bool    { return s.nonNull }
func (s *ObjectStamp) IsAlwaysNull() bool { return s.alwaysNull }

func (s *ObjectStamp) Unrestricted() Stamp { return objectUnrestricted }
func (s *ObjectStamp) Empty() Stamp        { return objectEmpty }

func (s *ObjectStamp) IsUnrestricted() bool {
	return !s.empty && s.typeName == "" && !s.nonNull && !s.alwaysNull
}
func (s *ObjectStamp) IsEmpty() bool   { return s.empty }
func (s *ObjectStamp) HasValues() bool { return !s.empty }

func (s *ObjectStamp) asObject(op string, other Stamp) *ObjectStamp {
	o, ok := other.(*ObjectStamp)
	if !ok {
		panic(mismatch(op, s, other))
	}
	return o
}

func (s *ObjectStamp) Meet(other Stamp) Stamp {
	o := s.asObject("meet", other)
	switch {
	case o == s:
		return s
	case s.empty:
		return o
	case o.empty:
		return s
	}
	typeName, exact := "", false
	switch {
	case s.alwaysNull:
		typeName, exact = o.typeName, o.exact
	case o.alwaysNull:
		typeName, exact = s.typeName, s.exact
	case s.typeName == o.typeName:
		typeName, exact = s.typeName, s.exact && o.exact
	}
	return ForObject(typeName, exact, s.nonNull && o.nonNull, s.alwaysNull && o.alwaysNull)
}

func (s *ObjectStamp) Join(other Stamp) Stamp {
	o := s.asObject("join", other)
	switch {
	case o == s:
		return s
	case s.empty:
		return s
	case o.empty:
		return o
	}
	nonNull := s.nonNull || o.nonNull
	alwaysNull := s.alwaysNull || o.alwaysNull
	var typeName string
	var exact bool
	switch {
	case s.typeName == "":
		typeName, exact = o.typeName, o.exact
	case o.typeName == "" || s.typeName == o.typeName:
		typeName, exact = s.typeName, s.exact || o.exact
	default:
		// Unrelated types share only null.
		if nonNull {
			return objectEmpty
		}
		return objectAlwaysNull
	}
	if alwaysNull {
		typeName, exact = "", false
	}
	return ForObject(typeName, exact, nonNull, alwaysNull)
}

func (s *ObjectStamp) IsCompatible(other Stamp) bool {
	_, ok := other.(*ObjectStamp)
	return ok
}

func (s *ObjectStamp) IsCompatibleConstant(c constant.Value) bool {
	return c.IsNull()
}

func (s *ObjectStamp) AsConstant() (constant.Value, bool) {
	if s.alwaysNull && !s.empty {
		return constant.Null(), true
	}
	return constant.Value{}, false
}

func (s *ObjectStamp) Constant(c constant.Value) Stamp {
	if !c.IsNull() {
		panic(fmt.Sprintf("numstamp: constant %s incompatible with %s", c, s))
	}
	return objectAlwaysNull
}

func (s *ObjectStamp) ImproveWith(other Stamp) Stamp {
	if s.IsCompatible(other) {
		return s.Join(other)
	}
	return s
}

func (s *ObjectStamp) Deserialize([]byte, binary.ByteOrder) (constant.Value, error) {
	return constant.Value{}, fmt.Errorf("deserialize %s: %w", s, ErrNoEncoding)
}

func (s *ObjectStamp) ReadConstant(MemoryReader, any, int64) (constant.Value, bool) {
	return constant.Value{}, false
}

func (s *ObjectStamp) Equal(other Stamp) bool {
	o, ok := other.(*ObjectStamp)
	return ok && *o == *s
}

func (s *ObjectStamp) String() string {
	if s.empty {
		return "a<empty>"
	}
	var b strings.Builder
	b.WriteByte('a')
	if s.nonNull {
		b.WriteByte('!')
	}
	if s.exact {
		b.WriteByte('#')
	}
	b.WriteByte(' ')
	if s.typeName == "" {
		b.WriteByte('-')
	} else {
		b.WriteString(s.typeName)
	}
	if s.alwaysNull {
		b.WriteString(" NULL")
	}
	return b.String()
}

// singleton implements the kinds that carry no information beyond their tag.
type singleton struct {
	kind Kind
	name string
}

var (
	voidStamp    = &singleton{kind: KindVoid, name: "void"}
	pointerStamp = &singleton{kind: KindPointer, name: "void*"}
	illegalStamp = &singleton{kind: KindIllegal, name: "illegal"}
)

// Void is the stamp of statements that produce no value.
func Void() Stamp { return voidStamp }

// Pointer is the raw machine pointer stamp.
func Pointer() Stamp { return pointerStamp }

// Illegal marks a value that must never be used.
func Illegal() Stamp { return illegalStamp }

func (s *singleton) Kind() Kind          { return s.kind }
func (s *singleton) Unrestricted() Stamp { return s }
func (s *singleton) Empty() Stamp        { return s }

func (s *singleton) Meet(other Stamp) Stamp {
	if other != Stamp(s) {
		panic(mismatch("meet", s, other))
	}
	return s
}

func (s *singleton) Join(other Stamp) Stamp {
	if other != Stamp(s) {
		panic(mismatch("join", s, other))
	}
	return s
}

func (s *singleton) IsUnrestricted() bool { return true }

// IsEmpty is false: these kinds have no bottom distinct from their top.
func (s *singleton) IsEmpty() bool { return false }

// HasValues is true only for pointers; void and illegal never carry a value.
func (s *singleton) HasValues() bool { return s.kind == KindPointer }

func (s *singleton) IsCompatible(other Stamp) bool { return other == Stamp(s) }

func (s *singleton) IsCompatibleConstant(constant.Value) bool { return false }

func (s *singleton) AsConstant() (constant.Value, bool) { return constant.Value{}, false }

func (s *singleton) Constant(c constant.Value) Stamp {
	panic(fmt.Sprintf("numstamp: %s has no constants, got %s", s.name, c))
}

func (s *singleton) ImproveWith(Stamp) Stamp { return s }

func (s *singleton) Deserialize([]byte, binary.ByteOrder) (constant.Value, error) {
	return constant.Value{}, fmt.Errorf("deserialize %s: %w", s.name, ErrNoEncoding)
}

func (s *singleton) ReadConstant(MemoryReader, any, int64) (constant.Value, bool) {
	return constant.Value{}, false
}

func (s *singleton) Equal(other Stamp) bool { return other == Stamp(s) }
func (s *singleton) String() string         { return s.name }
