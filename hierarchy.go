package lattice

import (
	"context"

	"github.com/jward/lattice/internal/hierarchy"
	"github.com/jward/lattice/internal/resolve"
)

// TypeHierarchy answers subtype and hierarchy queries over class types,
// resolving unknown classes on demand through a Frontend. It is safe for
// concurrent use.
type TypeHierarchy struct {
	h *hierarchy.Hierarchy
}

// NewTypeHierarchy creates a TypeHierarchy resolving classes through
// frontend. Unless WithBootstrap(false) is given, classes the frontend does
// not know fall through to the built-in platform declarations.
func NewTypeHierarchy(frontend Frontend, opts ...Option) *TypeHierarchy {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o.newTypeHierarchy(frontend)
}

func (o *options) newTypeHierarchy(frontend Frontend) *TypeHierarchy {
	var chain resolve.Chain
	if frontend != nil {
		chain = append(chain, frontend)
	}
	if o.bootstrap {
		chain = append(chain, resolve.Bootstrap())
	}
	store := resolve.NewStore(chain, resolve.WithStoreLogger(o.logger))
	return &TypeHierarchy{h: hierarchy.New(store, o.hierarchyOptions()...)}
}

// IsSubtype reports whether sub is a proper subtype of super.
func (t *TypeHierarchy) IsSubtype(ctx context.Context, super, sub Type) (bool, error) {
	return t.h.IsSubtype(ctx, super, sub)
}

// IsAssignable reports whether a value of type from can be stored where to
// is expected.
func (t *TypeHierarchy) IsAssignable(ctx context.Context, to, from Type) (bool, error) {
	return t.h.IsAssignable(ctx, to, from)
}

// SuperClassOf returns the direct superclass of c; false for the root class.
func (t *TypeHierarchy) SuperClassOf(ctx context.Context, c Type) (ClassType, bool, error) {
	return t.h.SuperClassOf(ctx, c)
}

// SuperClassesOf returns the superclass chain of c up to the root class.
func (t *TypeHierarchy) SuperClassesOf(ctx context.Context, c Type) ([]ClassType, error) {
	return t.h.SuperClassesOf(ctx, c)
}

// SubclassesOf returns every registered class extending c, directly or not.
func (t *TypeHierarchy) SubclassesOf(ctx context.Context, c Type) ([]ClassType, error) {
	return t.h.SubclassesOf(ctx, c)
}

// ImplementersOf returns every registered class or interface below the
// interface i.
func (t *TypeHierarchy) ImplementersOf(ctx context.Context, i Type) ([]ClassType, error) {
	return t.h.ImplementersOf(ctx, i)
}

// ImplementedInterfacesOf returns every interface c implements or extends.
func (t *TypeHierarchy) ImplementedInterfacesOf(ctx context.Context, c Type) ([]ClassType, error) {
	return t.h.ImplementedInterfacesOf(ctx, c)
}

// AddType registers d and the supertypes it needs. The first declaration of
// a class wins.
func (t *TypeHierarchy) AddType(ctx context.Context, d *ClassDeclaration) error {
	return t.h.AddType(ctx, d)
}

// Preload resolves and registers refs in parallel.
func (t *TypeHierarchy) Preload(ctx context.Context, refs []ClassType) error {
	return t.h.Preload(ctx, refs)
}

// Contains reports whether c is registered in the graph.
func (t *TypeHierarchy) Contains(c ClassType) bool { return t.h.Contains(c) }

// Len returns the number of registered types.
func (t *TypeHierarchy) Len() int { return t.h.Len() }

// Types returns the registered types sorted by name.
func (t *TypeHierarchy) Types() []ClassType { return t.h.Types() }

// Declaration returns the declaration c was registered with.
func (t *TypeHierarchy) Declaration(c ClassType) (*ClassDeclaration, bool) {
	return t.h.Declaration(c)
}

// Root returns the root class, java.lang.Object unless configured.
func (t *TypeHierarchy) Root() ClassType { return t.h.Root() }

// Markers returns the interfaces every array type implements.
func (t *TypeHierarchy) Markers() []ClassType { return t.h.Markers() }

// SessionID identifies this hierarchy in logs and traces.
func (t *TypeHierarchy) SessionID() string { return t.h.SessionID() }
