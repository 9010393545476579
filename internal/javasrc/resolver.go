package javasrc

import (
	"strings"
)

// Scope is the naming context a type expression is written in: the
// compilation unit's package and imports, and the binary name of the class
// whose declaration mentions the expression.
type Scope struct {
	Package string
	Imports []Import
	Class   string
}

// NameResolver binds source type expressions to binary class names against
// a fixed set of known classes.
type NameResolver struct {
	known map[string]struct{}
}

// NewNameResolver creates a resolver over the given binary class names.
func NewNameResolver(known []string) *NameResolver {
	r := &NameResolver{known: make(map[string]struct{}, len(known))}
	for _, n := range known {
		r.known[n] = struct{}{}
	}
	return r
}

// Known reports whether name is one of the resolver's classes.
func (r *NameResolver) Known(name string) bool {
	_, ok := r.known[name]
	return ok
}

// Resolve returns the binary name expr refers to within scope, and whether
// that name is a known class. Lookup order: member types of the enclosing
// classes, single-type imports, the same package, wildcard imports,
// java.lang, then expr as a qualified name. An unknown simple name is
// assumed to live in the scope's package.
func (r *NameResolver) Resolve(expr string, scope Scope) (string, bool) {
	expr = StripTypeArguments(expr)
	if expr == "" {
		return "", false
	}
	head, rest, dotted := strings.Cut(expr, ".")

	if base, ok := r.resolveSimple(head, scope); ok {
		if !dotted {
			return base, true
		}
		if name := base + "$" + strings.ReplaceAll(rest, ".", "$"); r.Known(name) {
			return name, true
		}
	}
	if dotted {
		if name, ok := r.qualified(expr); ok {
			return name, true
		}
		if base, ok := r.resolveSimple(head, scope); ok {
			return base + "$" + strings.ReplaceAll(rest, ".", "$"), false
		}
		return expr, false
	}
	for _, imp := range scope.Imports {
		if !imp.Wildcard && strings.HasSuffix("."+imp.Path, "."+head) {
			return imp.Path, false
		}
	}
	return qualify(scope.Package, head), false
}

func (r *NameResolver) resolveSimple(name string, scope Scope) (string, bool) {
	for _, enc := range enclosing(scope.Class) {
		if simpleName(enc) == name {
			return enc, true
		}
		if c := enc + "$" + name; r.Known(c) {
			return c, true
		}
	}
	for _, imp := range scope.Imports {
		if imp.Wildcard {
			continue
		}
		if imp.Path == name || strings.HasSuffix(imp.Path, "."+name) {
			if c, ok := r.qualified(imp.Path); ok {
				return c, true
			}
		}
	}
	if c := qualify(scope.Package, name); r.Known(c) {
		return c, true
	}
	for _, imp := range scope.Imports {
		if !imp.Wildcard {
			continue
		}
		if c, ok := r.qualified(imp.Path + "." + name); ok {
			return c, true
		}
	}
	if c := "java.lang." + name; r.Known(c) {
		return c, true
	}
	return "", false
}

// qualified maps a dotted source name to a known binary name, trying the
// package/class split points from the right: a.b.C.D is looked up as
// a.b.C.D, then a.b.C$D, then a.b$C$D.
func (r *NameResolver) qualified(dotted string) (string, bool) {
	parts := strings.Split(dotted, ".")
	for split := len(parts); split >= 1; split-- {
		name := strings.Join(parts[:split], ".")
		if split < len(parts) {
			name += "$" + strings.Join(parts[split:], "$")
		}
		if r.Known(name) {
			return name, true
		}
	}
	return "", false
}

// enclosing returns the classes enclosing class, innermost first:
// p.A$B$C yields p.A$B, p.A.
func enclosing(class string) []string {
	var out []string
	for {
		i := strings.LastIndexByte(class, '$')
		if i < 0 {
			return out
		}
		class = class[:i]
		out = append(out, class)
	}
}

// simpleName returns the last segment of a binary name.
func simpleName(binary string) string {
	if i := strings.LastIndexAny(binary, ".$"); i >= 0 {
		return binary[i+1:]
	}
	return binary
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}
