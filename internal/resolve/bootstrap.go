package resolve

import "github.com/jward/lattice/internal/model"

// Well-known names of the Java platform.
var (
	JavaLangObject     = model.ClassOf("java.lang.Object")
	JavaIOSerializable = model.ClassOf("java.io.Serializable")
	JavaLangCloneable  = model.ClassOf("java.lang.Cloneable")
)

const bootstrapSource = "bootstrap"

func bootClass(name, super string, mods model.Modifiers, ifaces ...string) *model.ClassDeclaration {
	d := &model.ClassDeclaration{
		Type:      model.ClassOf(name),
		Modifiers: mods,
		Source:    bootstrapSource,
	}
	if super != "" {
		d.Superclass = model.ClassOf(super)
	}
	for _, i := range ifaces {
		d.Interfaces = append(d.Interfaces, model.ClassOf(i))
	}
	return d
}

func bootInterface(name string, extends ...string) *model.ClassDeclaration {
	d := bootClass(name, "", model.ModPublic|model.ModInterface|model.ModAbstract, extends...)
	d.IsInterface = true
	return d
}

// Bootstrap returns a frontend serving the core platform classes every
// analysis needs regardless of the classpath: the root class, the array
// marker interfaces, String, the boxed primitives, Enum, Record, the
// throwable roots and the common collection types.
func Bootstrap() *StaticFrontend {
	const (
		pub         = model.ModPublic
		pubFinal    = model.ModPublic | model.ModFinal
		pubAbstract = model.ModPublic | model.ModAbstract
	)
	return NewStaticFrontend(
		bootClass("java.lang.Object", "", pub),
		bootInterface("java.io.Serializable"),
		bootInterface("java.lang.Cloneable"),
		bootInterface("java.lang.Comparable"),
		bootInterface("java.lang.CharSequence"),
		bootInterface("java.lang.Runnable"),
		bootInterface("java.lang.AutoCloseable"),
		bootInterface("java.io.Closeable", "java.lang.AutoCloseable"),
		bootInterface("java.lang.Iterable"),
		bootInterface("java.lang.annotation.Annotation"),

		bootClass("java.lang.String", "java.lang.Object", pubFinal,
			"java.io.Serializable", "java.lang.Comparable", "java.lang.CharSequence"),
		bootClass("java.lang.Number", "java.lang.Object", pubAbstract, "java.io.Serializable"),
		bootClass("java.lang.Integer", "java.lang.Number", pubFinal, "java.lang.Comparable"),
		bootClass("java.lang.Long", "java.lang.Number", pubFinal, "java.lang.Comparable"),
		bootClass("java.lang.Short", "java.lang.Number", pubFinal, "java.lang.Comparable"),
		bootClass("java.lang.Byte", "java.lang.Number", pubFinal, "java.lang.Comparable"),
		bootClass("java.lang.Float", "java.lang.Number", pubFinal, "java.lang.Comparable"),
		bootClass("java.lang.Double", "java.lang.Number", pubFinal, "java.lang.Comparable"),
		bootClass("java.lang.Boolean", "java.lang.Object", pubFinal,
			"java.io.Serializable", "java.lang.Comparable"),
		bootClass("java.lang.Character", "java.lang.Object", pubFinal,
			"java.io.Serializable", "java.lang.Comparable"),
		bootClass("java.lang.Enum", "java.lang.Object", pubAbstract,
			"java.lang.Comparable", "java.io.Serializable"),
		bootClass("java.lang.Record", "java.lang.Object", pubAbstract),

		bootClass("java.lang.Throwable", "java.lang.Object", pub, "java.io.Serializable"),
		bootClass("java.lang.Exception", "java.lang.Throwable", pub),
		bootClass("java.lang.RuntimeException", "java.lang.Exception", pub),
		bootClass("java.lang.Error", "java.lang.Throwable", pub),

		bootInterface("java.util.Collection", "java.lang.Iterable"),
		bootInterface("java.util.List", "java.util.Collection"),
		bootInterface("java.util.Set", "java.util.Collection"),
		bootInterface("java.util.Queue", "java.util.Collection"),
		bootInterface("java.util.Deque", "java.util.Queue"),
		bootInterface("java.util.RandomAccess"),
		bootInterface("java.util.Map"),
		bootClass("java.util.AbstractCollection", "java.lang.Object", pubAbstract, "java.util.Collection"),
		bootClass("java.util.AbstractList", "java.util.AbstractCollection", pubAbstract, "java.util.List"),
		bootClass("java.util.AbstractSequentialList", "java.util.AbstractList", pubAbstract),
		bootClass("java.util.ArrayList", "java.util.AbstractList", pub,
			"java.util.List", "java.util.RandomAccess", "java.lang.Cloneable", "java.io.Serializable"),
		bootClass("java.util.LinkedList", "java.util.AbstractSequentialList", pub,
			"java.util.List", "java.util.Deque", "java.lang.Cloneable", "java.io.Serializable"),
		bootClass("java.util.AbstractMap", "java.lang.Object", pubAbstract, "java.util.Map"),
		bootClass("java.util.HashMap", "java.util.AbstractMap", pub,
			"java.util.Map", "java.lang.Cloneable", "java.io.Serializable"),
	)
}
