// Package lattice answers subtype and class hierarchy questions about
// JVM-style types: primitives, the null type, class and interface types,
// and arrays of any of these.
//
// # Hierarchy
//
// A [TypeHierarchy] resolves classes lazily through a [Frontend]. The first
// query that mentions a class asks the frontend for its declaration, then
// registers it together with every supertype it needs. Subtyping follows
// JVM rules: classes extend one superclass up to the root class, interfaces
// sit directly below the root, arrays are covariant in their element type
// and implement the marker interfaces, and the null type is below every
// reference type.
//
//	h := lattice.NewTypeHierarchy(frontend)
//	ok, err := h.IsSubtype(ctx, lattice.ClassOf("java.util.List"),
//		lattice.ClassOf("java.util.ArrayList"))
//
// Classes a frontend does not know fall through to a small set of built-in
// java.lang and java.util declarations unless [WithBootstrap] is false.
//
// # Indexing Java sources
//
// An [Engine] builds the frontend from Java source. It works in two phases:
//
//  1. Index: each .java file is parsed with tree-sitter and its type
//     declarations, supertype clauses, and imports are written to SQLite.
//     Unchanged files are skipped by content hash.
//
//  2. Resolve: every supertype clause is bound to a binary class name using
//     the declaring file's package, its imports, and the enclosing classes.
//
// Typical usage:
//
//	e, err := lattice.New("lattice.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	if err := e.IndexDirectory(ctx, "src/main/java"); err != nil { ... }
//	if err := e.Resolve(ctx); err != nil { ... }
//
//	h := e.Hierarchy()
//	supers, err := h.SuperClassesOf(ctx, lattice.ClassOf("com.acme.Widget"))
//
// When a file's declarations change, the next Resolve rebinds every clause,
// since a new class can shadow a name bound earlier. Edits that only touch
// method bodies or formatting leave the declaration hash unchanged.
//
// # Scripting
//
// [Engine.RunScript] runs a Risor script with the hierarchy queries bound
// as globals (is_subtype, superclasses_of, implementers_of, add_type, and
// so on). See the internal/runtime package for the full set.
package lattice
