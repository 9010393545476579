package lattice

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format.
type goldenFile struct {
	Classes    []goldenClass   `json:"classes,omitempty"`
	Supertypes []goldenSuper   `json:"supertypes,omitempty"`
	Subtypes   []goldenSubtype `json:"subtypes,omitempty"`
}

type goldenClass struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// goldenSuper lists the direct supertypes a class resolves to.
type goldenSuper struct {
	Class      string   `json:"class"`
	Superclass string   `json:"superclass"`
	Interfaces []string `json:"interfaces"`
}

type goldenSubtype struct {
	Super string `json:"super"`
	Sub   string `json:"sub"`
	Want  bool   `json:"want"`
}

// TestGolden walks testdata/java/ and runs a golden test for each level
// directory holding a golden.json and a src/ tree.
func TestGolden(t *testing.T) {
	root := filepath.Join("testdata", "java")
	levels, err := os.ReadDir(root)
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, level := range levels {
		if !level.IsDir() {
			continue
		}
		testDir := filepath.Join(root, level.Name())
		goldenPath := filepath.Join(testDir, "golden.json")
		srcDir := filepath.Join(testDir, "src")

		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		if _, err := os.Stat(srcDir); err != nil {
			continue
		}

		t.Run(level.Name(), func(t *testing.T) {
			t.Parallel()
			runGoldenTest(t, srcDir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, srcDir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	engine := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, engine.IndexDirectory(ctx, srcDir))
	require.NoError(t, engine.Resolve(ctx))

	if len(golden.Classes) > 0 {
		t.Run("classes", func(t *testing.T) {
			verifyClasses(t, engine, golden.Classes)
		})
	}

	h := engine.Hierarchy()

	if len(golden.Supertypes) > 0 {
		t.Run("supertypes", func(t *testing.T) {
			verifySupertypes(t, h, golden.Supertypes)
		})
	}

	if len(golden.Subtypes) > 0 {
		t.Run("subtypes", func(t *testing.T) {
			verifySubtypes(t, h, golden.Subtypes)
		})
	}
}

func verifyClasses(t *testing.T, engine *Engine, expected []goldenClass) {
	t.Helper()
	s := engine.Store()

	files, err := s.Files()
	require.NoError(t, err)
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = filepath.Base(f.Path)
	}

	for _, exp := range expected {
		c, err := s.ClassByName(exp.Name)
		require.NoError(t, err)
		if !assert.NotNil(t, c, "missing class: %s", exp.Name) {
			continue
		}
		got := goldenClass{Name: c.Name, Kind: c.Kind, File: paths[c.FileID], Line: c.StartLine}
		assert.Equal(t, exp, got)
	}
}

func verifySupertypes(t *testing.T, h *TypeHierarchy, expected []goldenSuper) {
	t.Helper()
	ctx := context.Background()

	for _, exp := range expected {
		class := ClassOf(exp.Class)
		super, _, err := h.SuperClassOf(ctx, class)
		if !assert.NoError(t, err, "superclass of %s", exp.Class) {
			continue
		}
		assert.Equal(t, exp.Superclass, super.Name(), "superclass of %s", exp.Class)

		d, ok := h.Declaration(class)
		require.True(t, ok, "%s registered", exp.Class)
		assert.ElementsMatch(t, exp.Interfaces, typeNamesOf(d.Interfaces), "interfaces of %s", exp.Class)
	}
}

func verifySubtypes(t *testing.T, h *TypeHierarchy, expected []goldenSubtype) {
	t.Helper()
	ctx := context.Background()

	for _, exp := range expected {
		super, err := ParseType(exp.Super)
		require.NoError(t, err)
		sub, err := ParseType(exp.Sub)
		require.NoError(t, err)

		got, err := h.IsSubtype(ctx, super, sub)
		if assert.NoError(t, err, "IsSubtype(%s, %s)", exp.Super, exp.Sub) {
			assert.Equal(t, exp.Want, got, "IsSubtype(%s, %s)", exp.Super, exp.Sub)
		}
	}
}

func typeNamesOf(ts []ClassType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name()
	}
	return out
}
