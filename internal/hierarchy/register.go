package hierarchy

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/jward/lattice/internal/model"
)

// pendingNode is a resolved declaration awaiting publication.
type pendingNode struct {
	decl *model.ClassDeclaration

	// super is the effective superclass edge, zero for the root class and
	// interfaces.
	super model.ClassType
}

// AddType registers d and, transitively, every supertype it needs that is
// not yet in the graph. Adding a type that is already present is a no-op:
// the first declaration of a class wins.
func (h *Hierarchy) AddType(ctx context.Context, d *model.ClassDeclaration) error {
	if d == nil || !d.Type.IsValid() {
		return &InvalidQueryError{Op: "AddType", Reason: "declaration has no class type"}
	}
	if existing, ok := h.Declaration(d.Type); ok {
		if !existing.SameFacts(d) {
			h.logger.Debug("ignoring redeclaration of registered type",
				"class", d.Type.Name(), "source", d.Source, "registered_source", existing.Source)
		}
		return nil
	}

	ctx, span := startSpan(ctx, "Hierarchy.AddType", h.session, attribute.String("hierarchy.class", d.Type.Name()))
	defer span.End()

	seed := d
	if resolved, ok := h.store.Lookup(d.Type); ok {
		if !resolved.SameFacts(d) {
			h.logger.Debug("ignoring redeclaration of resolved type",
				"class", d.Type.Name(), "source", d.Source, "registered_source", resolved.Source)
		}
		seed = resolved
	}
	if _, err := h.ensureFrom(ctx, d.Type, seed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
		return err
	}
	// Memoized only once published, so a rejected declaration can be
	// corrected by a later AddType.
	h.store.Register(seed)
	return nil
}

// Preload registers refs in parallel, bounded by the configured worker
// count. It is a warm-up for callers that know their universe up front.
func (h *Hierarchy) Preload(ctx context.Context, refs []model.ClassType) error {
	ctx, span := startSpan(ctx, "Hierarchy.Preload", h.session, attribute.Int("hierarchy.preload_count", len(refs)))
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for _, ref := range refs {
		g.Go(func() error {
			_, err := h.ensure(gctx, ref)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preload failed")
		return fmt.Errorf("preload: %w", err)
	}
	return nil
}

// ensure returns the node for ref, resolving and publishing ref and its
// missing ancestors first.
func (h *Hierarchy) ensure(ctx context.Context, ref model.ClassType) (nodeID, error) {
	return h.ensureFrom(ctx, ref, nil)
}

// ensureFrom is ensure with an optional declaration for ref itself, used
// instead of resolving ref through the store.
func (h *Hierarchy) ensureFrom(ctx context.Context, ref model.ClassType, seed *model.ClassDeclaration) (nodeID, error) {
	h.mu.RLock()
	id, ok := h.index[ref]
	h.mu.RUnlock()
	if ok {
		return id, nil
	}

	start := time.Now()
	pending, order, err := h.gather(ctx, ref, seed)
	if err != nil {
		recordRegisterMetrics(ctx, time.Since(start), 0, false)
		return noNode, err
	}
	added, err := h.publish(pending, order)
	recordRegisterMetrics(ctx, time.Since(start), added, err == nil)
	if err != nil {
		return noNode, err
	}
	if added > 0 {
		h.logger.Debug("registered types", "root", ref.Name(), "added", added)
	}

	h.mu.RLock()
	id = h.index[ref]
	h.mu.RUnlock()
	return id, nil
}

// gather resolves ref and every ancestor not yet in the graph. It runs
// without the graph lock held; the frontend may block on I/O.
func (h *Hierarchy) gather(ctx context.Context, ref model.ClassType, seed *model.ClassDeclaration) (map[model.ClassType]*pendingNode, []model.ClassType, error) {
	pending := make(map[model.ClassType]*pendingNode)
	var order []model.ClassType

	stack := []model.ClassType{ref}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := pending[t]; ok || h.Contains(t) {
			continue
		}

		d := seed
		if t != ref || d == nil {
			var err error
			if d, err = h.store.Resolve(ctx, t); err != nil {
				return nil, nil, err
			}
		}
		super, err := h.effectiveSuper(d)
		if err != nil {
			return nil, nil, err
		}
		pending[t] = &pendingNode{decl: d, super: super}
		order = append(order, t)

		if super.IsValid() {
			stack = append(stack, super)
		}
		stack = append(stack, d.Interfaces...)
	}
	return pending, order, nil
}

// effectiveSuper applies the superclass rules: classes without an extends
// clause extend the root, interfaces and the root have no superclass edge.
func (h *Hierarchy) effectiveSuper(d *model.ClassDeclaration) (model.ClassType, error) {
	switch {
	case d.Type == h.root:
		if d.HasSuperclass() {
			return model.ClassType{}, &MalformedHierarchyError{Class: d.Type, Related: d.Superclass, Err: ErrRootSuperclass}
		}
		return model.ClassType{}, nil
	case d.IsInterface:
		if d.HasSuperclass() && d.Superclass != h.root {
			return model.ClassType{}, &MalformedHierarchyError{Class: d.Type, Related: d.Superclass, Err: ErrInterfaceSuperclass}
		}
		return model.ClassType{}, nil
	case !d.HasSuperclass():
		return h.root, nil
	}
	return d.Superclass, nil
}

// publish validates the batch and adds it to the graph atomically. It
// returns the number of nodes added.
func (h *Hierarchy) publish(pending map[model.ClassType]*pendingNode, order []model.ClassType) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A concurrent registration may have published part of the batch.
	for t := range pending {
		if _, ok := h.index[t]; ok {
			delete(pending, t)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if err := h.checkKinds(pending, order); err != nil {
		return 0, err
	}
	// Published nodes never point at unpublished ones, so any cycle lies
	// entirely within the batch.
	if err := checkAcyclic(pending, order); err != nil {
		return 0, err
	}

	batch := make([]nodeID, 0, len(pending))
	for _, t := range order {
		p, ok := pending[t]
		if !ok {
			continue
		}
		id := nodeID(len(h.nodes))
		h.nodes = append(h.nodes, &node{decl: p.decl, super: noNode})
		h.index[t] = id
		batch = append(batch, id)
	}

	for _, id := range batch {
		n := h.nodes[id]
		p := pending[n.typ()]
		if p.super.IsValid() {
			sid := h.index[p.super]
			n.super = sid
			h.nodes[sid].subclasses = append(h.nodes[sid].subclasses, id)
		}
		for _, i := range p.decl.Interfaces {
			iid := h.index[i]
			if containsNode(n.ifaces, iid) {
				continue
			}
			n.ifaces = append(n.ifaces, iid)
			h.nodes[iid].implementers = append(h.nodes[iid].implementers, id)
		}
	}
	return len(batch), nil
}

// isInterfaceLocked reports whether t is an interface, looking in the batch
// first and then in the graph. Callers hold h.mu.
func (h *Hierarchy) isInterfaceLocked(pending map[model.ClassType]*pendingNode, t model.ClassType) bool {
	if p, ok := pending[t]; ok {
		return p.decl.IsInterface
	}
	return h.nodes[h.index[t]].isInterface()
}

func (h *Hierarchy) checkKinds(pending map[model.ClassType]*pendingNode, order []model.ClassType) error {
	for _, t := range order {
		p, ok := pending[t]
		if !ok {
			continue
		}
		if p.super.IsValid() && h.isInterfaceLocked(pending, p.super) {
			return &MalformedHierarchyError{Class: t, Related: p.super, Err: ErrNotAClass}
		}
		for _, i := range p.decl.Interfaces {
			if !h.isInterfaceLocked(pending, i) {
				return &MalformedHierarchyError{Class: t, Related: i, Err: ErrNotAnInterface}
			}
		}
	}
	return nil
}

func checkAcyclic(pending map[model.ClassType]*pendingNode, order []model.ClassType) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[model.ClassType]int, len(pending))

	var visit func(t model.ClassType) error
	visit = func(t model.ClassType) error {
		p, ok := pending[t]
		if !ok {
			return nil
		}
		switch state[t] {
		case visiting:
			return &MalformedHierarchyError{Class: t, Err: ErrCyclicHierarchy}
		case done:
			return nil
		}
		state[t] = visiting
		if p.super.IsValid() {
			if err := visit(p.super); err != nil {
				return err
			}
		}
		for _, i := range p.decl.Interfaces {
			if err := visit(i); err != nil {
				return err
			}
		}
		state[t] = done
		return nil
	}

	for _, t := range order {
		if err := visit(t); err != nil {
			return err
		}
	}
	return nil
}

func containsNode(ids []nodeID, id nodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
