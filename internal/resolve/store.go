// Package resolve provides the class declaration store: a memoizing,
// single-flight lookup from class references to declarations, backed by a
// pluggable Frontend.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/jward/lattice/internal/model"
)

// Frontend produces class declarations. It is the only I/O boundary of the
// hierarchy core: implementations read class files, source files or an
// index. A frontend that does not know a class returns an error wrapping
// ErrClassNotFound.
type Frontend interface {
	ResolveClass(ctx context.Context, ref model.ClassType) (*model.ClassDeclaration, error)
}

// FrontendFunc adapts a function to the Frontend interface.
type FrontendFunc func(ctx context.Context, ref model.ClassType) (*model.ClassDeclaration, error)

func (f FrontendFunc) ResolveClass(ctx context.Context, ref model.ClassType) (*model.ClassDeclaration, error) {
	return f(ctx, ref)
}

// Store memoizes declarations per class reference. Declarations are never
// evicted: once a class is known, every caller observes the same
// *model.ClassDeclaration for the rest of the session.
//
// Thread Safety: safe for concurrent use. Concurrent Resolve calls for the
// same unknown reference collapse into one frontend invocation.
type Store struct {
	frontend Frontend
	logger   *slog.Logger

	mu     sync.RWMutex
	decls  map[model.ClassType]*model.ClassDeclaration
	flight singleflight.Group

	frontendCalls atomic.Int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for resolution events.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a Store backed by frontend. A nil frontend resolves
// nothing; every declaration must then be registered explicitly.
func NewStore(frontend Frontend, opts ...StoreOption) *Store {
	s := &Store{
		frontend: frontend,
		logger:   slog.Default(),
		decls:    make(map[model.ClassType]*model.ClassDeclaration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the memoized declaration for ref without consulting the
// frontend.
func (s *Store) Lookup(ref model.ClassType) (*model.ClassDeclaration, bool) {
	s.mu.RLock()
	d, ok := s.decls[ref]
	s.mu.RUnlock()
	return d, ok
}

// Resolve returns the declaration for ref, invoking the frontend at most
// once per reference. Errors are returned as *ResolutionError and are not
// memoized: a later call tries the frontend again.
func (s *Store) Resolve(ctx context.Context, ref model.ClassType) (*model.ClassDeclaration, error) {
	if !ref.IsValid() {
		return nil, &ResolutionError{Class: ref, Err: fmt.Errorf("invalid class reference")}
	}
	if d, ok := s.Lookup(ref); ok {
		return d, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, &ResolutionError{Class: ref, Err: err}
	}

	// The flight outlives any single caller: a caller that gives up stops
	// waiting, but the load continues for the others.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(ref.Name(), func() (any, error) {
		// A previous flight for ref may have completed between the
		// Lookup above and joining this one.
		if d, ok := s.Lookup(ref); ok {
			return d, nil
		}
		return s.load(flightCtx, ref)
	})
	select {
	case <-ctx.Done():
		return nil, &ResolutionError{Class: ref, Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*model.ClassDeclaration), nil
	}
}

func (s *Store) load(ctx context.Context, ref model.ClassType) (*model.ClassDeclaration, error) {
	if s.frontend == nil {
		return nil, &ResolutionError{Class: ref, Err: ErrClassNotFound}
	}
	s.frontendCalls.Add(1)
	d, err := s.frontend.ResolveClass(ctx, ref)
	if err != nil {
		s.logger.Warn("class resolution failed", "class", ref.Name(), "error", err)
		return nil, &ResolutionError{Class: ref, Err: err}
	}
	if d == nil {
		return nil, &ResolutionError{Class: ref, Err: ErrClassNotFound}
	}
	if d.Type != ref {
		return nil, &ResolutionError{
			Class: ref,
			Err:   fmt.Errorf("frontend returned declaration for %s", d.Type),
		}
	}

	d, _ = s.Register(d)
	return d, nil
}

// Register memoizes d unless a declaration for d.Type is already known.
// It returns the winning declaration and whether d was the one stored.
func (s *Store) Register(d *model.ClassDeclaration) (*model.ClassDeclaration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.decls[d.Type]; ok {
		return existing, false
	}
	s.decls[d.Type] = d
	return d, true
}

// Len returns the number of memoized declarations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.decls)
}

// FrontendCalls returns how many times the frontend has been invoked.
func (s *Store) FrontendCalls() int64 {
	return s.frontendCalls.Load()
}
