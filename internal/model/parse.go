package model

import (
	"fmt"
	"strings"
)

// ParseType parses a source-level type spelling: a primitive name, "null",
// or a qualified class name, each optionally followed by "[]" pairs.
//
//	int, null, java.lang.String, java.util.Map$Entry[][]
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("parse type: empty type")
	}

	dims := 0
	for strings.HasSuffix(s, "[]") {
		dims++
		s = strings.TrimSpace(strings.TrimSuffix(s, "[]"))
	}
	if s == "" || strings.ContainsAny(s, "[] \t<>") {
		return nil, fmt.Errorf("parse type: malformed type %q", s)
	}

	var elem Type
	if p, ok := PrimitiveByName(s); ok {
		elem = p
	} else if s == "null" {
		if dims > 0 {
			return nil, fmt.Errorf("parse type: array of null")
		}
		return Null, nil
	} else {
		elem = ClassOf(s)
	}

	if dims == 0 {
		return elem, nil
	}
	return ArrayOf(elem, dims), nil
}

// MustParseType is like ParseType but panics on error. Intended for tests
// and package-level fixtures.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDescriptor parses a JVM field descriptor such as "I",
// "Ljava/lang/String;" or "[[D".
func ParseDescriptor(desc string) (Type, error) {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	rest := desc[dims:]
	if rest == "" {
		return nil, fmt.Errorf("parse descriptor %q: missing element type", desc)
	}

	var elem Type
	switch rest[0] {
	case 'L':
		if !strings.HasSuffix(rest, ";") || len(rest) < 3 {
			return nil, fmt.Errorf("parse descriptor %q: unterminated class name", desc)
		}
		elem = ClassOf(strings.ReplaceAll(rest[1:len(rest)-1], "/", "."))
	default:
		if len(rest) != 1 {
			return nil, fmt.Errorf("parse descriptor %q: trailing characters", desc)
		}
		for k := KindBoolean; k <= KindDouble; k++ {
			if primitiveDescriptors[k] == rest[0] {
				elem = Primitive{k}
				break
			}
		}
		if elem == nil {
			return nil, fmt.Errorf("parse descriptor %q: unknown primitive %q", desc, rest[0])
		}
	}

	if dims == 0 {
		return elem, nil
	}
	return ArrayOf(elem, dims), nil
}

// Descriptor returns the JVM field descriptor of t. The null type has no
// descriptor and yields "".
func Descriptor(t Type) string {
	switch t := t.(type) {
	case Primitive:
		if t.Kind == 0 || int(t.Kind) >= len(primitiveDescriptors) {
			return ""
		}
		return string(primitiveDescriptors[t.Kind])
	case ClassType:
		return "L" + strings.ReplaceAll(t.Name(), ".", "/") + ";"
	case ArrayType:
		return strings.Repeat("[", t.Dims) + Descriptor(t.Elem)
	}
	return ""
}
