package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/lattice/internal/hierarchy"
	"github.com/jward/lattice/internal/model"
	"github.com/jward/lattice/internal/resolve"
)

// newTestRuntime returns a runtime over a hierarchy holding p.Shape,
// p.Square and the bootstrap platform classes.
func newTestRuntime(t *testing.T, opts ...RuntimeOption) (*Runtime, *hierarchy.Hierarchy) {
	t.Helper()
	user := resolve.NewStaticFrontend(
		&model.ClassDeclaration{
			Type:        model.ClassOf("p.Shape"),
			IsInterface: true,
			Modifiers:   model.ModInterface | model.ModAbstract,
		},
		&model.ClassDeclaration{
			Type:       model.ClassOf("p.Square"),
			Superclass: resolve.JavaLangObject,
			Interfaces: []model.ClassType{model.ClassOf("p.Shape")},
		},
	)
	h := hierarchy.New(resolve.NewStore(resolve.Chain{user, resolve.Bootstrap()}))
	return NewRuntime(h, "", opts...), h
}

func TestHierarchySatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Hierarchy = (*hierarchy.Hierarchy)(nil)
}

// --- Hierarchy host functions ---

func TestRunSource_IsSubtype(t *testing.T) {
	t.Parallel()
	rt, _ := newTestRuntime(t)

	script := `
assert(is_subtype("p.Shape", "p.Square"), "Square implements Shape")
assert(is_subtype("java.lang.Object", "p.Shape"), "Object is above interfaces")
assert(!is_subtype("p.Square", "p.Square"), "irreflexive")
assert(!is_subtype("int", "int"), "primitives are never subtypes")
assert(is_subtype("p.Shape[]", "p.Square[]"), "arrays are covariant")
assert(is_subtype("java.lang.String", "null"), "null is below references")
assert(is_assignable("p.Square", "p.Square"), "assignable to itself")
assert(!is_assignable("p.Square", "p.Shape"), "not assignable downwards")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_Queries(t *testing.T) {
	t.Parallel()
	rt, _ := newTestRuntime(t)

	script := `
assert(superclass_of("p.Square") == "java.lang.Object", 'got {superclass_of("p.Square")}')
assert(superclass_of("p.Shape") == "java.lang.Object", "interfaces report the root class")
assert(superclass_of("java.lang.Object") == nil, "root has no superclass")

supers := superclasses_of("java.util.LinkedList")
assert(len(supers) == 4, 'expected 4 superclasses, got {len(supers)}')
assert(supers[0] == "java.util.AbstractSequentialList")
assert(supers[3] == "java.lang.Object")

impls := implementers_of("p.Shape")
assert(len(impls) == 1 && impls[0] == "p.Square", 'got {impls}')

ifaces := interfaces_of("p.Square")
assert(len(ifaces) == 1 && ifaces[0] == "p.Shape", 'got {ifaces}')

subs := subclasses_of("java.util.AbstractSequentialList")
assert(len(subs) == 1 && subs[0] == "java.util.LinkedList", 'got {subs}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_AddType(t *testing.T) {
	t.Parallel()
	rt, h := newTestRuntime(t)

	script := `
before := type_count()
add_type({
    "name": "p.Circle",
    "superclass": "java.lang.Object",
    "interfaces": ["p.Shape", "java.io.Serializable"],
    "modifiers": ["public", "final"],
})
assert(type_count() > before, "add_type grows the hierarchy")
assert(is_subtype("p.Shape", "p.Circle"))
assert(is_subtype("java.io.Serializable", "p.Circle"))

add_type({"name": "p.Round", "interface": true, "interfaces": ["p.Shape"]})
assert(is_subtype("p.Shape", "p.Round"))
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	d, ok := h.Declaration(model.ClassOf("p.Circle"))
	require.True(t, ok)
	assert.Equal(t, "script", d.Source)
	assert.True(t, d.Modifiers.Has(model.ModPublic|model.ModFinal))

	round, ok := h.Declaration(model.ClassOf("p.Round"))
	require.True(t, ok)
	assert.True(t, round.IsInterface)
}

func TestRunSource_QueryErrorsBecomeScriptErrors(t *testing.T) {
	t.Parallel()
	rt, _ := newTestRuntime(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"unknown class", `is_subtype("java.lang.Object", "p.Missing")`, "class not found"},
		{"invalid operand", `subclasses_of("int")`, "subclasses_of"},
		{"subclasses of interface", `subclasses_of("p.Shape")`, "interface"},
		{"malformed type", `superclass_of("java.util.List<String>")`, "malformed type"},
		{"wrong arity", `is_subtype("p.Shape")`, "is_subtype"},
		{"non-string argument", `interfaces_of(42)`, "must be a string"},
		{"add_type without name", `add_type({"superclass": "p.Base"})`, "missing \"name\""},
		{"add_type bad modifier", `add_type({"name": "p.X", "modifiers": ["sealed"]})`, "unknown modifier"},
		{"add_type cycle", `add_type({"name": "p.Loop", "superclass": "p.Loop"})`, "cyclic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rt.RunSource(ctx, tt.script, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunSource_NoHierarchy(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")

	require.NoError(t, rt.RunSource(context.Background(), `x := 1 + 2
assert(x == 3)`, nil))
	err := rt.RunSource(context.Background(), `is_subtype("a.A", "b.B")`, nil)
	require.Error(t, err, "hierarchy globals are absent without a hierarchy")
}

func TestRunSource_LogGoesToSlog(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt, _ := newTestRuntime(t, WithRuntimeLogger(logger))

	require.NoError(t, rt.RunSource(context.Background(), `log.Info("hello from script")
log.Warn("careful")`, nil))
	assert.Contains(t, buf.String(), "hello from script")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "component=script")
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	t.Parallel()
	rt, _ := newTestRuntime(t)

	script := `assert(is_subtype(target, "p.Square"), 'expected {target} above Square')`
	require.NoError(t, rt.RunSource(context.Background(), script, map[string]any{
		"target": "p.Shape",
	}))
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "check.risor"),
		[]byte(`assert(is_subtype("p.Shape", "p.Square"))`), 0644))

	rt, _ := newTestRuntime(t)
	rt.scriptsDir = dir
	require.NoError(t, rt.RunScript(context.Background(), "check.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, t.TempDir())

	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()
	content := `y := 99`
	mapFS := fstest.MapFS{
		"checks/arrays.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/checks/arrays.risor")
	require.NoError(t, err, "leading separator is stripped")
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"shapes.risor": &fstest.MapFile{Data: []byte(`
func is_shape(name) {
	return is_subtype("p.Shape", name)
}
`)},
	}
	rt, _ := newTestRuntime(t, WithRuntimeFS(mapFS))

	script := `
import shapes
assert(shapes.is_shape("p.Square"), "imported modules see host globals")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))
	rt := NewRuntime(nil, dir)

	script := `
import math_utils
result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}
