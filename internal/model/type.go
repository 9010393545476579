// Package model defines the value types the hierarchy engine operates over:
// primitive, null, class and array types, and the declaration facts a
// frontend reports for a class or interface.
//
// All Type values are immutable and comparable with ==. Class types are
// interned by qualified name, so comparing two ClassType values costs a
// pointer comparison regardless of name length.
package model

import (
	"strings"
	"unique"
)

// Type is implemented by the four type variants: Primitive, NullType,
// ClassType and ArrayType. The set is closed; consumers switch over it.
type Type interface {
	String() string

	// isType restricts implementations to this package.
	isType()
}

// PrimitiveKind enumerates the JVM primitive types.
type PrimitiveKind uint8

const (
	KindBoolean PrimitiveKind = iota + 1
	KindByte
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
)

var primitiveNames = [...]string{
	KindBoolean: "boolean",
	KindByte:    "byte",
	KindChar:    "char",
	KindShort:   "short",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
}

var primitiveDescriptors = [...]byte{
	KindBoolean: 'Z',
	KindByte:    'B',
	KindChar:    'C',
	KindShort:   'S',
	KindInt:     'I',
	KindLong:    'J',
	KindFloat:   'F',
	KindDouble:  'D',
}

func (k PrimitiveKind) String() string {
	if k == 0 || int(k) >= len(primitiveNames) {
		return "invalid"
	}
	return primitiveNames[k]
}

// Primitive is a primitive type. Primitives never take part in subtyping.
type Primitive struct {
	Kind PrimitiveKind
}

func (Primitive) isType() {}

func (p Primitive) String() string { return p.Kind.String() }

// Predeclared primitive types.
var (
	Boolean = Primitive{KindBoolean}
	Byte    = Primitive{KindByte}
	Char    = Primitive{KindChar}
	Short   = Primitive{KindShort}
	Int     = Primitive{KindInt}
	Long    = Primitive{KindLong}
	Float   = Primitive{KindFloat}
	Double  = Primitive{KindDouble}
)

// PrimitiveByName returns the primitive type spelled name ("int", "double", ...).
func PrimitiveByName(name string) (Primitive, bool) {
	for k := KindBoolean; k <= KindDouble; k++ {
		if primitiveNames[k] == name {
			return Primitive{k}, true
		}
	}
	return Primitive{}, false
}

// NullType is the type of the null literal.
type NullType struct{}

func (NullType) isType() {}

func (NullType) String() string { return "null" }

// Null is the single null type value.
var Null = NullType{}

// ClassType references a class or interface by its binary name, e.g.
// "java.util.Map$Entry". The zero value is not a valid class type.
type ClassType struct {
	name unique.Handle[string]
}

func (ClassType) isType() {}

// ClassOf returns the interned class type for a fully qualified name.
// Name validation is the caller's responsibility.
func ClassOf(name string) ClassType {
	return ClassType{name: unique.Make(name)}
}

// IsValid reports whether c was created by ClassOf.
func (c ClassType) IsValid() bool {
	return c != ClassType{}
}

// Name returns the fully qualified binary name.
func (c ClassType) Name() string {
	if !c.IsValid() {
		return ""
	}
	return c.name.Value()
}

func (c ClassType) String() string { return c.Name() }

// PackageName returns the package portion of the name ("" for the default package).
func (c ClassType) PackageName() string {
	n := c.Name()
	if i := strings.LastIndexByte(n, '.'); i >= 0 {
		return n[:i]
	}
	return ""
}

// SimpleName returns the name without package and enclosing classes.
func (c ClassType) SimpleName() string {
	n := c.Name()
	if i := strings.LastIndexAny(n, ".$"); i >= 0 {
		return n[i+1:]
	}
	return n
}

// ArrayType is an array of Elem with Dims dimensions. Elem is never an
// ArrayType: ArrayOf folds nested arrays into Dims.
//
// Build values with ArrayOf or ParseType only. A struct literal with a
// nested array element, a nil or null element, or Dims < 1 is not a valid
// type, and equality with the constructed form does not hold for it.
type ArrayType struct {
	Elem Type
	Dims int
}

func (ArrayType) isType() {}

// ArrayOf returns the array type with the given element type and dimension
// count. It panics if dims < 1 or elem is nil or the null type.
func ArrayOf(elem Type, dims int) ArrayType {
	if dims < 1 {
		panic("model: array dimensions must be positive")
	}
	switch e := elem.(type) {
	case nil:
		panic("model: array element type is nil")
	case NullType:
		panic("model: array of null type")
	case ArrayType:
		return ArrayType{Elem: e.Elem, Dims: e.Dims + dims}
	}
	return ArrayType{Elem: elem, Dims: dims}
}

func (a ArrayType) String() string {
	if a.Elem == nil {
		return "invalid[]"
	}
	return a.Elem.String() + strings.Repeat("[]", a.Dims)
}

// ElementOf returns the component type of a: the type obtained by removing
// one dimension.
func (a ArrayType) ElementOf() Type {
	if a.Dims == 1 {
		return a.Elem
	}
	return ArrayType{Elem: a.Elem, Dims: a.Dims - 1}
}

// IsReference reports whether t is a reference type (class, interface,
// array or null).
func IsReference(t Type) bool {
	switch t.(type) {
	case ClassType, ArrayType, NullType:
		return true
	}
	return false
}
