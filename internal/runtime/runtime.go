// Package runtime embeds a Risor VM that exposes type hierarchy queries to
// scripts.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/lattice/internal/model"
)

// Hierarchy is the query surface scripts can reach.
type Hierarchy interface {
	IsSubtype(ctx context.Context, super, sub model.Type) (bool, error)
	IsAssignable(ctx context.Context, to, from model.Type) (bool, error)
	SuperClassOf(ctx context.Context, t model.Type) (model.ClassType, bool, error)
	SuperClassesOf(ctx context.Context, t model.Type) ([]model.ClassType, error)
	SubclassesOf(ctx context.Context, t model.Type) ([]model.ClassType, error)
	ImplementersOf(ctx context.Context, t model.Type) ([]model.ClassType, error)
	ImplementedInterfacesOf(ctx context.Context, t model.Type) ([]model.ClassType, error)
	AddType(ctx context.Context, d *model.ClassDeclaration) error
	Len() int
}

// Runtime embeds a Risor VM and provides hierarchy host functions to
// scripts.
type Runtime struct {
	hier       Hierarchy
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger sets the logger behind the scripts' log global.
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime wired to the given hierarchy and scripts
// directory. h may be nil, in which case only log is exposed.
func NewRuntime(h Hierarchy, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		hier:       h,
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	r.logger.Debug("running script", "script", label)
	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's
// script source, or nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{logger: r.logger.With("component", "script")}),
	}

	if r.hier != nil {
		globals["is_subtype"] = makeIsSubtypeFn(r.hier)
		globals["is_assignable"] = makeIsAssignableFn(r.hier)
		globals["superclass_of"] = makeSuperClassOfFn(r.hier)
		globals["superclasses_of"] = makeTypeListFn("superclasses_of", r.hier.SuperClassesOf)
		globals["subclasses_of"] = makeTypeListFn("subclasses_of", r.hier.SubclassesOf)
		globals["implementers_of"] = makeTypeListFn("implementers_of", r.hier.ImplementersOf)
		globals["interfaces_of"] = makeTypeListFn("interfaces_of", r.hier.ImplementedInterfacesOf)
		globals["add_type"] = makeAddTypeFn(r.hier)
		globals["type_count"] = makeTypeCountFn(r.hier)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject provides log.Debug/Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg) }

func (l *logObject) Info(msg string) { l.logger.Info(msg) }

func (l *logObject) Warn(msg string) { l.logger.Warn(msg) }

func (l *logObject) Error(msg string) { l.logger.Error(msg) }
