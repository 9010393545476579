package hierarchy

import (
	"context"
	"fmt"
	"time"

	"github.com/jward/lattice/internal/model"
)

// classOperand checks that t names a class or interface.
func classOperand(op string, t model.Type) (model.ClassType, error) {
	c, ok := t.(model.ClassType)
	if !ok || !c.IsValid() {
		return model.ClassType{}, &InvalidQueryError{Op: op, Type: t, Reason: "not a class or interface type"}
	}
	return c, nil
}

// resolveClass makes sure t is in the graph and returns its node.
func (h *Hierarchy) resolveClass(ctx context.Context, op string, t model.Type) (nodeID, error) {
	c, err := classOperand(op, t)
	if err != nil {
		return noNode, err
	}
	id, err := h.ensure(ctx, c)
	if err != nil {
		return noNode, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// SuperClassOf returns the direct superclass of t. It reports false for the
// root class. Interfaces report the root class. Non-class types are an
// InvalidQueryError.
func (h *Hierarchy) SuperClassOf(ctx context.Context, t model.Type) (model.ClassType, bool, error) {
	defer recordQueryMetrics(ctx, "superclass_of", time.Now())
	id, err := h.resolveClass(ctx, "SuperClassOf", t)
	if err != nil {
		return model.ClassType{}, false, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	n := h.nodes[id]
	switch {
	case n.super != noNode:
		return h.nodes[n.super].typ(), true, nil
	case n.isInterface() && n.typ() != h.root:
		return h.root, true, nil
	}
	return model.ClassType{}, false, nil
}

// SuperClassesOf returns the superclass chain of t from the direct
// superclass up to and including the root class. It is empty only for the
// root class itself.
func (h *Hierarchy) SuperClassesOf(ctx context.Context, t model.Type) ([]model.ClassType, error) {
	defer recordQueryMetrics(ctx, "superclasses_of", time.Now())
	id, err := h.resolveClass(ctx, "SuperClassesOf", t)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]model.ClassType{}, h.ancestryOf(id).chain...), nil
}

// SubclassesOf returns every registered class whose superclass chain
// contains t, excluding t itself.
func (h *Hierarchy) SubclassesOf(ctx context.Context, t model.Type) ([]model.ClassType, error) {
	defer recordQueryMetrics(ctx, "subclasses_of", time.Now())
	id, err := h.resolveClass(ctx, "SubclassesOf", t)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.nodes[id].isInterface() {
		return nil, &InvalidQueryError{Op: "SubclassesOf", Type: t, Reason: "interfaces have no subclasses; use ImplementersOf"}
	}

	var out []model.ClassType
	queue := append([]nodeID(nil), h.nodes[id].subclasses...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := h.nodes[cur]
		out = append(out, n.typ())
		queue = append(queue, n.subclasses...)
	}
	model.SortClassTypes(out)
	return out, nil
}

// ImplementedInterfacesOf returns every interface t implements or extends,
// directly or through its superclasses and superinterfaces.
func (h *Hierarchy) ImplementedInterfacesOf(ctx context.Context, t model.Type) ([]model.ClassType, error) {
	defer recordQueryMetrics(ctx, "interfaces_of", time.Now())
	id, err := h.resolveClass(ctx, "ImplementedInterfacesOf", t)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	ifaces := h.ancestryOf(id).ifaces
	out := make([]model.ClassType, 0, len(ifaces))
	for i := range ifaces {
		out = append(out, i)
	}
	model.SortClassTypes(out)
	return out, nil
}

// ImplementersOf returns every registered class or interface that
// transitively implements the interface t, excluding t itself.
func (h *Hierarchy) ImplementersOf(ctx context.Context, t model.Type) ([]model.ClassType, error) {
	defer recordQueryMetrics(ctx, "implementers_of", time.Now())
	id, err := h.resolveClass(ctx, "ImplementersOf", t)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.nodes[id].isInterface() {
		return nil, &InvalidQueryError{Op: "ImplementersOf", Type: t, Reason: "not an interface; use SubclassesOf"}
	}

	seen := map[nodeID]struct{}{id: {}}
	queue := append([]nodeID(nil), h.nodes[id].implementers...)
	var out []model.ClassType
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		n := h.nodes[cur]
		out = append(out, n.typ())
		queue = append(queue, n.implementers...)
		queue = append(queue, n.subclasses...)
	}
	model.SortClassTypes(out)
	return out, nil
}

// IsSubtype reports whether a value of type sub may be used where super is
// expected. The relation is irreflexive and excludes primitives entirely;
// null is below every reference type; arrays are covariant in reference
// element types of equal dimension and below the root class and the
// marker interfaces. Class operands are resolved on demand, and a
// resolution failure is returned rather than a default answer.
func (h *Hierarchy) IsSubtype(ctx context.Context, super, sub model.Type) (bool, error) {
	defer recordQueryMetrics(ctx, "is_subtype", time.Now())
	if super == nil || sub == nil {
		return false, &InvalidQueryError{Op: "IsSubtype", Reason: "nil type operand"}
	}
	return h.isSubtype(ctx, super, sub)
}

// IsAssignable reports whether a value of type from can be stored where to
// is expected: the types are identical or from is a subtype of to.
func (h *Hierarchy) IsAssignable(ctx context.Context, to, from model.Type) (bool, error) {
	if to == nil || from == nil {
		return false, &InvalidQueryError{Op: "IsAssignable", Reason: "nil type operand"}
	}
	if to == from {
		return true, h.ensureOperand(ctx, to)
	}
	return h.IsSubtype(ctx, to, from)
}

func (h *Hierarchy) isSubtype(ctx context.Context, super, sub model.Type) (bool, error) {
	if super == sub {
		return false, nil
	}
	if _, ok := super.(model.Primitive); ok {
		return false, nil
	}
	if _, ok := sub.(model.Primitive); ok {
		return false, nil
	}

	switch s := sub.(type) {
	case model.NullType:
		// Any reference supertype; resolve classes so unknown names fail.
		if err := h.ensureOperand(ctx, super); err != nil {
			return false, err
		}
		return model.IsReference(super), nil

	case model.ClassType:
		switch p := super.(type) {
		case model.ClassType:
			return h.isSubclassOrImplementer(ctx, p, s)
		case model.ArrayType:
			return false, h.ensureOperand(ctx, sub, p.Elem)
		}
		return false, nil

	case model.ArrayType:
		switch p := super.(type) {
		case model.ClassType:
			if p == h.root || h.isMarker(p) {
				return true, nil
			}
			return false, h.ensureOperand(ctx, p, s.Elem)
		case model.ArrayType:
			return h.isArraySubtype(ctx, p, s)
		}
		return false, nil
	}
	return false, nil
}

func (h *Hierarchy) isSubclassOrImplementer(ctx context.Context, super, sub model.ClassType) (bool, error) {
	if _, err := h.ensure(ctx, super); err != nil {
		return false, fmt.Errorf("IsSubtype: %w", err)
	}
	id, err := h.ensure(ctx, sub)
	if err != nil {
		return false, fmt.Errorf("IsSubtype: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	a := h.ancestryOf(id)
	if _, ok := a.ifaces[super]; ok {
		return true, nil
	}
	for _, c := range a.chain {
		if c == super {
			return true, nil
		}
	}
	return false, nil
}

func (h *Hierarchy) isArraySubtype(ctx context.Context, super, sub model.ArrayType) (bool, error) {
	if super.Dims == sub.Dims {
		// Primitive element arrays are related only by identity, which
		// the relation excludes.
		if !model.IsReference(super.Elem) || !model.IsReference(sub.Elem) {
			return false, nil
		}
		return h.isSubtype(ctx, super.Elem, sub.Elem)
	}

	if h.deep && sub.Dims > super.Dims {
		// The first super.Dims dimensions of sub hold arrays, which are
		// below the root class and the markers only.
		if c, ok := super.Elem.(model.ClassType); ok && (c == h.root || h.isMarker(c)) {
			return true, nil
		}
	}
	return false, h.ensureOperand(ctx, super.Elem, sub.Elem)
}

// ensureOperand resolves every class type among ts, including array
// element types.
func (h *Hierarchy) ensureOperand(ctx context.Context, ts ...model.Type) error {
	for _, t := range ts {
		if a, ok := t.(model.ArrayType); ok {
			t = a.Elem
		}
		c, ok := t.(model.ClassType)
		if !ok {
			continue
		}
		if _, err := h.ensure(ctx, c); err != nil {
			return fmt.Errorf("IsSubtype: %w", err)
		}
	}
	return nil
}
