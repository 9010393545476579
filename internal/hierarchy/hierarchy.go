// Package hierarchy implements the type hierarchy engine: an append-only
// graph of class and interface nodes, populated on demand from a
// resolve.Store, answering subclass, superclass, implementer and general
// subtype queries over model types.
//
// # Thread Safety
//
// A Hierarchy is safe for concurrent use. Queries share a read lock;
// registration resolves declarations outside the lock and then publishes
// all new nodes and edges under the write lock, so once AddType (or a
// query that triggered resolution) returns, every later query observes the
// new edges.
package hierarchy

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jward/lattice/internal/model"
	"github.com/jward/lattice/internal/resolve"
)

type nodeID int32

const noNode nodeID = -1

type node struct {
	decl   *model.ClassDeclaration
	super  nodeID
	ifaces []nodeID

	// Reverse edges. Appended to under the write lock as descendants are
	// registered.
	subclasses   []nodeID
	implementers []nodeID

	// Derived ancestry, computed on first use. The graph is append-only and
	// a node's forward edges are fixed at publication, so it never goes
	// stale.
	anc atomic.Pointer[ancestry]
}

func (n *node) typ() model.ClassType { return n.decl.Type }

func (n *node) isInterface() bool { return n.decl.IsInterface }

// ancestry is the transitive closure above one node.
type ancestry struct {
	// chain runs from the direct superclass up to the root class.
	chain  []model.ClassType
	ifaces map[model.ClassType]struct{}
}

// Hierarchy is the type hierarchy engine.
type Hierarchy struct {
	store   *resolve.Store
	logger  *slog.Logger
	session string

	root    model.ClassType
	markers []model.ClassType
	deep    bool
	workers int

	mu    sync.RWMutex
	nodes []*node
	index map[model.ClassType]nodeID
}

// Option configures a Hierarchy.
type Option func(*Hierarchy)

// WithRootClass sets the universal base class. Default java.lang.Object.
func WithRootClass(root model.ClassType) Option {
	return func(h *Hierarchy) {
		h.root = root
	}
}

// WithMarkerInterfaces sets the interfaces every array type is a subtype
// of. Default java.io.Serializable and java.lang.Cloneable. Passing no
// interfaces disables marker subtyping.
func WithMarkerInterfaces(markers ...model.ClassType) Option {
	return func(h *Hierarchy) {
		h.markers = append([]model.ClassType(nil), markers...)
	}
}

// WithDeepArrayCovariance enables the JVM rule that an array of higher
// dimension is a subtype of a lower-dimensional array whose element type is
// the root class or a marker interface (Object[] accepts String[][]).
func WithDeepArrayCovariance(enabled bool) Option {
	return func(h *Hierarchy) {
		h.deep = enabled
	}
}

// WithLogger sets the logger used for registration events.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hierarchy) {
		h.logger = l
	}
}

// WithWorkers bounds the parallelism of Preload.
func WithWorkers(n int) Option {
	return func(h *Hierarchy) {
		if n > 0 {
			h.workers = n
		}
	}
}

// New creates an empty hierarchy whose class declarations come from store.
func New(store *resolve.Store, opts ...Option) *Hierarchy {
	h := &Hierarchy{
		store:   store,
		logger:  slog.Default(),
		session: uuid.NewString(),
		root:    resolve.JavaLangObject,
		markers: []model.ClassType{resolve.JavaIOSerializable, resolve.JavaLangCloneable},
		workers: runtime.NumCPU(),
		index:   make(map[model.ClassType]nodeID),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("hierarchy_session", h.session)
	return h
}

// Root returns the root class.
func (h *Hierarchy) Root() model.ClassType { return h.root }

// Markers returns the marker interfaces every array implements.
func (h *Hierarchy) Markers() []model.ClassType {
	return append([]model.ClassType(nil), h.markers...)
}

// DeepArrayCovariance reports whether JVM deep array covariance is enabled.
func (h *Hierarchy) DeepArrayCovariance() bool { return h.deep }

// SessionID identifies this hierarchy in logs and traces.
func (h *Hierarchy) SessionID() string { return h.session }

// Store returns the declaration store backing the hierarchy.
func (h *Hierarchy) Store() *resolve.Store { return h.store }

func (h *Hierarchy) isMarker(t model.ClassType) bool {
	for _, m := range h.markers {
		if m == t {
			return true
		}
	}
	return false
}

// Contains reports whether t is already a node of the graph.
func (h *Hierarchy) Contains(t model.ClassType) bool {
	h.mu.RLock()
	_, ok := h.index[t]
	h.mu.RUnlock()
	return ok
}

// Len returns the number of class and interface nodes.
func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Types returns every registered class and interface, sorted by name.
func (h *Hierarchy) Types() []model.ClassType {
	h.mu.RLock()
	out := make([]model.ClassType, len(h.nodes))
	for i, n := range h.nodes {
		out[i] = n.typ()
	}
	h.mu.RUnlock()
	model.SortClassTypes(out)
	return out
}

// Declaration returns the declaration a registered type was built from.
func (h *Hierarchy) Declaration(t model.ClassType) (*model.ClassDeclaration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.index[t]
	if !ok {
		return nil, false
	}
	return h.nodes[id].decl, true
}

// ancestryOf returns the cached ancestry of id, computing it if needed.
// Callers hold h.mu for reading.
func (h *Hierarchy) ancestryOf(id nodeID) *ancestry {
	n := h.nodes[id]
	if a := n.anc.Load(); a != nil {
		return a
	}

	a := &ancestry{ifaces: make(map[model.ClassType]struct{})}
	switch {
	case n.super != noNode:
		sa := h.ancestryOf(n.super)
		a.chain = make([]model.ClassType, 0, len(sa.chain)+1)
		a.chain = append(a.chain, h.nodes[n.super].typ())
		a.chain = append(a.chain, sa.chain...)
		for t := range sa.ifaces {
			a.ifaces[t] = struct{}{}
		}
	case n.isInterface() && n.typ() != h.root:
		a.chain = []model.ClassType{h.root}
	}
	for _, i := range n.ifaces {
		a.ifaces[h.nodes[i].typ()] = struct{}{}
		for t := range h.ancestryOf(i).ifaces {
			a.ifaces[t] = struct{}{}
		}
	}

	// Racing goroutines compute identical values; keep the first.
	if !n.anc.CompareAndSwap(nil, a) {
		return n.anc.Load()
	}
	return a
}
