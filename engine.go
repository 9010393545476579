package lattice

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jward/lattice/internal/hierarchy"
	"github.com/jward/lattice/internal/javasrc"
	"github.com/jward/lattice/internal/model"
	"github.com/jward/lattice/internal/resolve"
	latticert "github.com/jward/lattice/internal/runtime"
	"github.com/jward/lattice/internal/store"
)

// metaFullResolve marks an index whose declarations changed since the last
// resolution, so every supertype clause must be rebound.
const metaFullResolve = "needs_full_resolve"

// Engine orchestrates the lattice pipeline: Java source discovery, change
// detection, declaration extraction, supertype name binding, and hierarchy
// queries over the resulting index.
type Engine struct {
	store  *store.Store
	opts   options
	logger *slog.Logger
}

type options struct {
	parallel  bool
	workers   int
	logger    *slog.Logger
	bootstrap bool

	root       model.ClassType
	markers    []model.ClassType
	markersSet bool
	deep       bool
}

func defaultOptions() options {
	return options{
		parallel:  true,
		logger:    slog.Default(),
		bootstrap: true,
	}
}

func (o *options) hierarchyOptions() []hierarchy.Option {
	opts := []hierarchy.Option{
		hierarchy.WithLogger(o.logger),
		hierarchy.WithDeepArrayCovariance(o.deep),
	}
	if o.root.IsValid() {
		opts = append(opts, hierarchy.WithRootClass(o.root))
	}
	if o.markersSet {
		opts = append(opts, hierarchy.WithMarkerInterfaces(o.markers...))
	}
	if o.workers > 0 {
		opts = append(opts, hierarchy.WithWorkers(o.workers))
	}
	return opts
}

// Option configures an Engine or a TypeHierarchy.
type Option func(*options)

// WithParallel controls parallel extraction. When true (default), IndexFiles
// uses a worker pool for parsing, with a single writer committing batches
// to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(o *options) {
		o.parallel = parallel
	}
}

// WithWorkers bounds the extraction worker pool and parallel hierarchy
// preloading. Zero or negative means one worker per CPU.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRootClass sets the universal base class. Default java.lang.Object.
func WithRootClass(root ClassType) Option {
	return func(o *options) {
		o.root = root
	}
}

// WithMarkerInterfaces sets the interfaces every array type implements.
// Default java.io.Serializable and java.lang.Cloneable; no arguments
// disables them.
func WithMarkerInterfaces(markers ...ClassType) Option {
	return func(o *options) {
		o.markers = append([]model.ClassType(nil), markers...)
		o.markersSet = true
	}
}

// WithDeepArrayCovariance makes an array a subtype of lower-dimensional
// arrays of the root class and the marker interfaces, as the JVM does.
func WithDeepArrayCovariance(enabled bool) Option {
	return func(o *options) {
		o.deep = enabled
	}
}

// WithBootstrap controls whether classes missing from the index fall
// through to the built-in platform declarations. Default true.
func WithBootstrap(enabled bool) Option {
	return func(o *options) {
		o.bootstrap = enabled
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("lattice: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("lattice: migrate: %w", err)
	}

	e := &Engine{store: s, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&e.opts)
	}
	e.logger = e.opts.logger.With("component", "engine")
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Stats summarizes the index.
func (e *Engine) Stats() (*Stats, error) {
	return e.store.Stats()
}

// Hierarchy returns a TypeHierarchy over the indexed classes, falling back
// to the platform declarations when bootstrap is enabled. The hierarchy
// reflects the index as of its first use of each class; obtain a new one
// after re-indexing.
func (e *Engine) Hierarchy() *TypeHierarchy {
	return e.opts.newTypeHierarchy(e.store)
}

// LoadHierarchy returns a Hierarchy with the indexed classes registered,
// so SubclassesOf and ImplementersOf see the whole index. Classes that
// cannot be placed, such as those extending a class outside the index, are
// logged and left out.
func (e *Engine) LoadHierarchy(ctx context.Context) (*TypeHierarchy, error) {
	names, err := e.store.ClassNames()
	if err != nil {
		return nil, fmt.Errorf("load hierarchy: %w", err)
	}
	refs := make([]ClassType, len(names))
	for i, n := range names {
		refs[i] = ClassOf(n)
	}
	h := e.Hierarchy()
	if err := h.Preload(ctx, refs); err == nil {
		return h, nil
	}

	// Retry one class at a time to find the ones that fail.
	skipped := 0
	for _, ref := range refs {
		if err := h.Preload(ctx, []ClassType{ref}); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("load hierarchy: %w", ctx.Err())
			}
			skipped++
			e.logger.Warn("class left out of hierarchy", "class", ref.Name(), "error", err)
		}
	}
	e.logger.Info("loaded hierarchy", "classes", len(refs)-skipped, "skipped", skipped)
	return h, nil
}

// RunScript runs a Risor script with the hierarchy query globals bound to
// a loaded Hierarchy. Scripts may import sibling modules by name.
func (e *Engine) RunScript(ctx context.Context, path string, globals map[string]any) error {
	h, err := e.LoadHierarchy(ctx)
	if err != nil {
		return err
	}
	rt := latticert.NewRuntime(h.h, filepath.Dir(path),
		latticert.WithRuntimeLogger(e.opts.logger))
	return rt.RunScript(ctx, filepath.Base(path), globals)
}

// IndexFiles indexes the given Java source paths. Files whose content hash
// is unchanged are skipped; other paths are ignored. When WithParallel is
// enabled, uses a worker pool for extraction with batched SQLite writes.
//
// For each file:
//  1. Skip non-Java and unchanged files (same content hash)
//  2. Delete stale data, insert the file record
//  3. Extract type declarations into a batch
//  4. Commit the batch and record the declaration hash
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.opts.parallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		item, skip, err := e.prepareFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		if err := e.extractFile(ctx, &item); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
			if err := e.discardFile(&item); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := e.commitFile(&item); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// skipDirs are directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"build":        true,
	"target":       true,
	"out":          true,
}

// IndexDirectory indexes all Java files under root. If root is inside a git
// repository, uses git ls-files to respect .gitignore; otherwise walks the
// filesystem, skipping hidden and build output directories. Previously
// indexed files under root that no longer exist are removed from the index.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking directory", "root", root, "error", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	if err := e.pruneMissing(root, paths); err != nil {
		return err
	}
	e.logger.Info("indexing directory", "root", root, "files", len(paths))
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Java files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if !javasrc.IsSourceFile(absPath) {
			continue
		}
		// ls-files --cached lists deleted-but-tracked files too.
		if _, err := os.Stat(absPath); err != nil {
			continue
		}
		paths = append(paths, absPath)
	}
	return paths, nil
}

// walkListFiles discovers Java files by walking the filesystem.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if javasrc.IsSourceFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// pruneMissing removes indexed files under root that are not in present.
func (e *Engine) pruneMissing(root string, present []string) error {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("list indexed files: %w", err)
	}
	prefix := root + string(filepath.Separator)
	removed := 0
	for _, f := range files {
		if keep[f.Path] || !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if err := e.store.DeleteFileData(f.ID); err != nil {
			return fmt.Errorf("remove %s: %w", f.Path, err)
		}
		removed++
	}
	if removed > 0 {
		e.logger.Info("removed deleted files from index", "count", removed)
		return e.markFullResolve()
	}
	return nil
}

func (e *Engine) markFullResolve() error {
	return e.store.SetMetadata(metaFullResolve, "1")
}

// Resolve binds every unbound supertype clause in the index to a binary
// class name. When any file's declarations changed since the last run,
// all existing bindings are discarded first, since a new class can shadow
// a name bound earlier.
func (e *Engine) Resolve(ctx context.Context) error {
	start := time.Now()
	full, err := e.store.GetMetadata(metaFullResolve)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	if full != "" {
		if err := e.store.ClearResolutions(); err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
	}

	pending, err := e.store.UnresolvedSupertypes()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	if len(pending) > 0 {
		resolver, err := e.nameResolver()
		if err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		scopes, err := e.fileScopes()
		if err != nil {
			return fmt.Errorf("resolve: %w", err)
		}

		bound := make(map[int64]string, len(pending))
		unknown := 0
		for _, p := range pending {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			scope := scopes[p.FileID]
			scope.Class = p.ClassName
			name, known := resolver.Resolve(p.TypeExpr, scope)
			if !known {
				unknown++
				e.logger.Debug("supertype not found in index", "class", p.ClassName, "expr", p.TypeExpr, "assumed", name)
			}
			bound[p.ID] = name
		}
		if err := e.store.SetSupertypeResolutions(bound); err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		if unknown > 0 {
			e.logger.Warn("some supertypes are not declared in the index", "count", unknown)
		}
	}

	if err := e.store.SetMetadata(metaFullResolve, ""); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	e.logger.Info("resolved supertypes", "count", len(pending), "full", full != "", "duration", time.Since(start))
	return nil
}

// nameResolver returns a resolver over the indexed classes plus, when
// enabled, the platform declarations.
func (e *Engine) nameResolver() (*javasrc.NameResolver, error) {
	names, err := e.store.ClassNames()
	if err != nil {
		return nil, err
	}
	if e.opts.bootstrap {
		for _, c := range resolve.Bootstrap().Names() {
			names = append(names, c.Name())
		}
	}
	return javasrc.NewNameResolver(names), nil
}

// fileScopes returns the naming scope of every indexed file, keyed by file ID.
func (e *Engine) fileScopes() (map[int64]javasrc.Scope, error) {
	files, err := e.store.Files()
	if err != nil {
		return nil, err
	}
	scopes := make(map[int64]javasrc.Scope, len(files))
	for _, f := range files {
		imps, err := e.store.ImportsByFile(f.ID)
		if err != nil {
			return nil, err
		}
		scope := javasrc.Scope{Package: f.Package}
		for _, imp := range imps {
			scope.Imports = append(scope.Imports, javasrc.Import{
				Path:     imp.Source,
				Static:   imp.IsStatic,
				Wildcard: imp.IsWildcard,
			})
		}
		scopes[f.ID] = scope
	}
	return scopes, nil
}

func fileHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

func defaultWorkers(n, items int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(1, min(n, items))
}
