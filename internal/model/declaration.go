package model

import (
	"fmt"
	"math/bits"
	"slices"
)

// Modifiers is a set of class modifiers, using the JVM access flag bits.
type Modifiers uint16

const (
	ModPublic       Modifiers = 0x0001
	ModPrivate      Modifiers = 0x0002
	ModProtected    Modifiers = 0x0004
	ModStatic       Modifiers = 0x0008
	ModFinal        Modifiers = 0x0010
	ModSynchronized Modifiers = 0x0020
	ModVolatile     Modifiers = 0x0040
	ModTransient    Modifiers = 0x0080
	ModNative       Modifiers = 0x0100
	ModInterface    Modifiers = 0x0200
	ModAbstract     Modifiers = 0x0400
	ModStrict       Modifiers = 0x0800
	ModSynthetic    Modifiers = 0x1000
	ModAnnotation   Modifiers = 0x2000
	ModEnum         Modifiers = 0x4000
)

var modifierNames = map[Modifiers]string{
	ModPublic:       "public",
	ModPrivate:      "private",
	ModProtected:    "protected",
	ModStatic:       "static",
	ModFinal:        "final",
	ModSynchronized: "synchronized",
	ModVolatile:     "volatile",
	ModTransient:    "transient",
	ModNative:       "native",
	ModInterface:    "interface",
	ModAbstract:     "abstract",
	ModStrict:       "strictfp",
	ModSynthetic:    "synthetic",
	ModAnnotation:   "annotation",
	ModEnum:         "enum",
}

// ParseModifier returns the modifier bit for a keyword such as "public".
func ParseModifier(s string) (Modifiers, bool) {
	for m, name := range modifierNames {
		if name == s {
			return m, true
		}
	}
	return 0, false
}

// ParseModifiers folds keywords into a set. Unknown keywords are an error.
func ParseModifiers(keywords []string) (Modifiers, error) {
	var mods Modifiers
	for _, kw := range keywords {
		m, ok := ParseModifier(kw)
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q", kw)
		}
		mods |= m
	}
	return mods, nil
}

// Has reports whether every bit of m is set.
func (mods Modifiers) Has(m Modifiers) bool { return mods&m == m }

// Strings returns the modifier keywords in flag-bit order.
func (mods Modifiers) Strings() []string {
	out := make([]string, 0, bits.OnesCount16(uint16(mods)))
	for bit := Modifiers(1); bit != 0 && bit <= ModEnum; bit <<= 1 {
		if mods&bit != 0 {
			out = append(out, modifierNames[bit])
		}
	}
	return out
}

// ClassDeclaration holds the facts about one class or interface that the
// hierarchy needs. A declaration is created once by a frontend and must not
// be mutated afterwards.
type ClassDeclaration struct {
	Type        ClassType
	IsInterface bool

	// Superclass is the zero ClassType when the declaration has no extends
	// clause (the root class, interfaces, or partial frontends).
	Superclass ClassType

	// Interfaces are the directly implemented (for classes) or extended
	// (for interfaces) interfaces, in declaration order.
	Interfaces []ClassType
	Modifiers  Modifiers

	// Source labels where the declaration came from: a file path,
	// "bootstrap", "synthetic".
	Source string
}

// HasSuperclass reports whether an explicit superclass was declared.
func (d *ClassDeclaration) HasSuperclass() bool {
	return d.Superclass.IsValid()
}

// SameFacts reports whether d and o describe the same hierarchy position.
// Source is ignored.
func (d *ClassDeclaration) SameFacts(o *ClassDeclaration) bool {
	return d.Type == o.Type &&
		d.IsInterface == o.IsInterface &&
		d.Superclass == o.Superclass &&
		d.Modifiers == o.Modifiers &&
		slices.Equal(d.Interfaces, o.Interfaces)
}

// SortClassTypes sorts types by qualified name, in place.
func SortClassTypes(ts []ClassType) {
	slices.SortFunc(ts, func(a, b ClassType) int {
		switch an, bn := a.Name(), b.Name(); {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	})
}
