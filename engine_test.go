package lattice

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// writeJava writes src to root/rel and returns the absolute path.
func writeJava(t *testing.T, root, rel, src string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

const shapeSrc = `package com.acme.shape;

public interface Shape extends Comparable<Shape> {
    double area();
}
`

const abstractShapeSrc = `package com.acme.shape;

import java.io.Serializable;

public abstract class AbstractShape implements Shape, Serializable {
    public int compareTo(Shape o) { return 0; }
}
`

const squareSrc = `package com.acme.shape;

public final class Square extends AbstractShape {
    public static class Builder {}

    public double area() { return 1; }
}
`

const mainSrc = `package com.acme.app;

import com.acme.shape.*;
import java.util.ArrayList;

public class Main {
    static class Shapes extends ArrayList<Shape> {}

    enum Color implements Runnable {
        RED;
        public void run() {}
    }
}
`

// writeShapes lays out a small source tree and returns its root.
func writeShapes(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeJava(t, root, "com/acme/shape/Shape.java", shapeSrc)
	writeJava(t, root, "com/acme/shape/AbstractShape.java", abstractShapeSrc)
	writeJava(t, root, "com/acme/shape/Square.java", squareSrc)
	writeJava(t, root, "com/acme/app/Main.java", mainSrc)
	return root
}

func indexAndResolve(t *testing.T, e *Engine, root string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.IndexDirectory(ctx, root))
	require.NoError(t, e.Resolve(ctx))
}

func isSubtype(t *testing.T, h *TypeHierarchy, super, sub string) bool {
	t.Helper()
	ok, err := h.IsSubtype(context.Background(), ClassOf(super), ClassOf(sub))
	require.NoError(t, err)
	return ok
}

// =============================================================================
// Engine lifecycle
// =============================================================================

func TestNew_CreatesStore(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	require.NotNil(t, e.Store())

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Files)
}

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	t.Parallel()
	e, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

// =============================================================================
// Indexing and resolution
// =============================================================================

func TestIndexAndResolve_EndToEnd(t *testing.T) {
	t.Parallel()
	for _, parallel := range []bool{false, true} {
		name := "serial"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(t, WithParallel(parallel), WithWorkers(2))
			indexAndResolve(t, e, writeShapes(t))

			stats, err := e.Stats()
			require.NoError(t, err)
			assert.Equal(t, 4, stats.Files)
			assert.Equal(t, 7, stats.Classes)
			assert.Equal(t, 1, stats.Interfaces)
			assert.Zero(t, stats.Unresolved)

			h := e.Hierarchy()
			assert.True(t, isSubtype(t, h, "com.acme.shape.Shape", "com.acme.shape.Square"))
			assert.True(t, isSubtype(t, h, "java.lang.Comparable", "com.acme.shape.Square"), "java.lang is implicit")
			assert.True(t, isSubtype(t, h, "java.io.Serializable", "com.acme.shape.Square"), "single import")
			assert.True(t, isSubtype(t, h, "java.util.List", "com.acme.app.Main$Shapes"))
			assert.True(t, isSubtype(t, h, "java.lang.Enum", "com.acme.app.Main$Color"), "enums extend Enum")
			assert.True(t, isSubtype(t, h, "java.lang.Runnable", "com.acme.app.Main$Color"))
			assert.False(t, isSubtype(t, h, "com.acme.shape.Square", "com.acme.shape.Square$Builder"),
				"nesting is not subtyping")

			supers, err := h.SuperClassesOf(context.Background(), ClassOf("com.acme.shape.Square"))
			require.NoError(t, err)
			assert.Equal(t, []ClassType{ClassOf("com.acme.shape.AbstractShape"), ClassOf("java.lang.Object")}, supers)

			d, ok := h.Declaration(ClassOf("com.acme.shape.Square"))
			require.True(t, ok)
			assert.True(t, d.Modifiers.Has(ModFinal))
			assert.Contains(t, d.Source, "Square.java")
		})
	}
}

func TestIndexFiles_SkipsNonJava(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	tmp := filepath.Join(t.TempDir(), "readme.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("hello"), 0644))
	require.NoError(t, e.IndexFiles(context.Background(), []string{tmp}))

	f, err := e.Store().FileByPath(tmp)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()
	path := writeJava(t, t.TempDir(), "p/A.java", "package p;\nclass A {}\n")

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	first, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	require.NoError(t, e.Resolve(ctx))

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	second, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "unchanged file keeps its record")

	full, err := e.Store().GetMetadata(metaFullResolve)
	require.NoError(t, err)
	assert.Empty(t, full)
}

func TestIndexFiles_BodyEditKeepsBindings(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()
	root := t.TempDir()
	base := writeJava(t, root, "p/Base.java", "package p;\npublic class Base {}\n")
	sub := writeJava(t, root, "p/Sub.java", "package p;\npublic class Sub extends Base {\n  void f() {}\n}\n")

	require.NoError(t, e.IndexFiles(ctx, []string{base, sub}))
	require.NoError(t, e.Resolve(ctx))

	// Same declarations, different body and layout.
	require.NoError(t, os.WriteFile(sub, []byte("package p;\n\npublic class Sub extends Base {\n  void f() { int x = 1; }\n}\n"), 0644))
	require.NoError(t, e.IndexFiles(ctx, []string{sub}))

	full, err := e.Store().GetMetadata(metaFullResolve)
	require.NoError(t, err)
	assert.Empty(t, full, "declaration hash unchanged")

	require.NoError(t, e.Resolve(ctx))
	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Unresolved)
	assert.True(t, isSubtype(t, e.Hierarchy(), "p.Base", "p.Sub"))
}

func TestIndexFiles_NewClassShadowsPlatformName(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeShapes(t)
	indexAndResolve(t, e, root)
	require.True(t, isSubtype(t, e.Hierarchy(), "java.lang.Comparable", "com.acme.shape.Shape"))

	// A same-package Comparable takes precedence over java.lang.
	writeJava(t, root, "com/acme/shape/Comparable.java", "package com.acme.shape;\npublic interface Comparable<T> {}\n")
	indexAndResolve(t, e, root)

	h := e.Hierarchy()
	assert.True(t, isSubtype(t, h, "com.acme.shape.Comparable", "com.acme.shape.Shape"))
	assert.False(t, isSubtype(t, h, "java.lang.Comparable", "com.acme.shape.Shape"))
}

func TestIndexFiles_DuplicateClassFirstWins(t *testing.T) {
	t.Parallel()
	for _, parallel := range []bool{false, true} {
		t.Run(map[bool]string{false: "serial", true: "parallel"}[parallel], func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(t, WithParallel(parallel))
			root := t.TempDir()
			first := writeJava(t, root, "a/Dup.java", "package p;\npublic class Dup {}\n")
			second := writeJava(t, root, "b/Dup.java", "package p;\npublic interface Dup {}\n")

			require.NoError(t, e.IndexFiles(context.Background(), []string{first, second}))

			c, err := e.Store().ClassByName("p.Dup")
			require.NoError(t, err)
			require.NotNil(t, c)
			f, err := e.Store().FileByPath(first)
			require.NoError(t, err)
			assert.Equal(t, f.ID, c.FileID)
			assert.False(t, c.IsInterface)

			stats, err := e.Stats()
			require.NoError(t, err)
			assert.Equal(t, 2, stats.Files)
			assert.Equal(t, 1, stats.Classes)
		})
	}
}

func TestIndexFiles_ExtractFailureDiscardsRecord(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "Bad.java")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0644))

	err := e.IndexFiles(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error(s)")

	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	assert.Nil(t, f, "failed file is retried next run")
}

func TestIndexDirectory_PrunesDeletedFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeShapes(t)
	indexAndResolve(t, e, root)

	main := filepath.Join(root, "com/acme/app/Main.java")
	require.NoError(t, os.Remove(main))
	indexAndResolve(t, e, root)

	f, err := e.Store().FileByPath(main)
	require.NoError(t, err)
	assert.Nil(t, f)
	c, err := e.Store().ClassByName("com.acme.app.Main")
	require.NoError(t, err)
	assert.Nil(t, c)

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
}

func TestIndexDirectory_SkipsHiddenAndBuildDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, dir := range []string{".git", "build", "target", "node_modules"} {
		writeJava(t, root, filepath.Join(dir, "Gen.java"), "package gen;\nclass Gen {}\n")
	}
	e := newTestEngine(t)

	require.NoError(t, e.IndexDirectory(context.Background(), root))
	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Files)
}

func TestResolve_NoFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	require.NoError(t, e.Resolve(context.Background()))
}

func TestResolve_UnknownSupertypeIsQualified(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := t.TempDir()
	path := writeJava(t, root, "p/Widget.java", "package p;\nimport org.lib.Base;\npublic class Widget extends Base {}\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	require.NoError(t, e.Resolve(context.Background()))

	c, err := e.Store().ClassByName("p.Widget")
	require.NoError(t, err)
	sts, err := e.Store().SupertypesByClass(c.ID)
	require.NoError(t, err)
	require.Len(t, sts, 1)
	require.NotNil(t, sts[0].ResolvedName)
	assert.Equal(t, "org.lib.Base", *sts[0].ResolvedName)

	_, _, err = e.Hierarchy().SuperClassOf(context.Background(), ClassOf("p.Widget"))
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestWithBootstrapDisabled(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithBootstrap(false))
	root := t.TempDir()
	path := writeJava(t, root, "java/lang/Object.java", "package java.lang;\npublic class Object {}\n")
	sub := writeJava(t, root, "p/A.java", "package p;\npublic class A {}\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path, sub}))
	require.NoError(t, e.Resolve(context.Background()))

	h := e.Hierarchy()
	assert.True(t, isSubtype(t, h, "java.lang.Object", "p.A"))
	_, _, err := h.SuperClassOf(context.Background(), ClassOf("java.util.ArrayList"))
	assert.ErrorIs(t, err, ErrClassNotFound)
}

// =============================================================================
// Loaded hierarchy and scripting
// =============================================================================

func TestLoadHierarchy(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	root := writeShapes(t)
	writeJava(t, root, "p/Orphan.java", "package p;\nimport org.lib.Base;\npublic class Orphan extends Base {}\n")
	indexAndResolve(t, e, root)

	h, err := e.LoadHierarchy(context.Background())
	require.NoError(t, err, "classes that cannot be placed are skipped")
	assert.False(t, h.Contains(ClassOf("p.Orphan")))

	ctx := context.Background()
	subs, err := h.SubclassesOf(ctx, ClassOf("com.acme.shape.AbstractShape"))
	require.NoError(t, err)
	assert.Equal(t, []ClassType{ClassOf("com.acme.shape.Square")}, subs)

	impls, err := h.ImplementersOf(ctx, ClassOf("com.acme.shape.Shape"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []ClassType{
		ClassOf("com.acme.shape.AbstractShape"),
		ClassOf("com.acme.shape.Square"),
	}, impls)
}

func TestRunScript(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	indexAndResolve(t, e, writeShapes(t))

	dir := t.TempDir()
	writeJava(t, dir, "helpers.risor", `
func shapes() {
	return implementers_of("com.acme.shape.Shape")
}
`)
	script := writeJava(t, dir, "check.risor", `
import helpers
assert(len(helpers.shapes()) == 2, 'got {helpers.shapes()}')
assert(is_subtype("com.acme.shape.Shape", target))
`)
	require.NoError(t, e.RunScript(context.Background(), script, map[string]any{
		"target": "com.acme.shape.Square",
	}))
}
