package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jward/lattice/internal/model"
)

// StaticFrontend serves declarations from memory. It backs tests, the
// bootstrap declarations, and hosts that synthesize classes up front.
type StaticFrontend struct {
	mu    sync.RWMutex
	decls map[model.ClassType]*model.ClassDeclaration
	calls atomic.Int64
}

// NewStaticFrontend creates a frontend serving decls.
func NewStaticFrontend(decls ...*model.ClassDeclaration) *StaticFrontend {
	f := &StaticFrontend{decls: make(map[model.ClassType]*model.ClassDeclaration, len(decls))}
	for _, d := range decls {
		f.decls[d.Type] = d
	}
	return f
}

// Add makes d resolvable, replacing any previous declaration of d.Type.
// Declarations already handed out to a Store are unaffected.
func (f *StaticFrontend) Add(d *model.ClassDeclaration) {
	f.mu.Lock()
	f.decls[d.Type] = d
	f.mu.Unlock()
}

func (f *StaticFrontend) ResolveClass(_ context.Context, ref model.ClassType) (*model.ClassDeclaration, error) {
	f.calls.Add(1)
	f.mu.RLock()
	d, ok := f.decls[ref]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrClassNotFound)
	}
	return d, nil
}

// Calls returns the number of ResolveClass invocations.
func (f *StaticFrontend) Calls() int64 {
	return f.calls.Load()
}

// Names returns every class the frontend can resolve.
func (f *StaticFrontend) Names() []model.ClassType {
	f.mu.RLock()
	out := make([]model.ClassType, 0, len(f.decls))
	for t := range f.decls {
		out = append(out, t)
	}
	f.mu.RUnlock()
	model.SortClassTypes(out)
	return out
}

// Chain tries each frontend in order and returns the first declaration
// found. A frontend reporting ErrClassNotFound passes the request on; any
// other error stops the chain.
type Chain []Frontend

func (c Chain) ResolveClass(ctx context.Context, ref model.ClassType) (*model.ClassDeclaration, error) {
	for _, f := range c {
		if f == nil {
			continue
		}
		d, err := f.ResolveClass(ctx, ref)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, ErrClassNotFound)
}
