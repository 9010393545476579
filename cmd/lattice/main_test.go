package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	require.NoError(t, validateFormat("json"))
	require.NoError(t, validateFormat("text"))
	err := validateFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json or text")
}

func TestParseVars(t *testing.T) {
	t.Parallel()
	got, err := parseVars([]string{"target=com.acme.Shape", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"target": "com.acme.Shape", "expr": "a=b"}, got)

	_, err = parseVars([]string{"novalue"})
	require.Error(t, err)
	_, err = parseVars([]string{"=x"})
	require.Error(t, err)
}

func TestResultLen(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2, resultLen([]string{"a", "b"}))
	assert.Equal(t, 1, resultLen(CLIStats{}))
	assert.Equal(t, 0, resultLen(nil))
}

// =============================================================================
// Commands
// =============================================================================

// execute runs the root command with args and returns what it wrote to
// stdout. Commands share package-level flag state, so these tests do not
// run in parallel.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagDB, flagFormat, flagConfig, flagLogLevel = "", "json", "", ""
	flagLimit, flagOffset = 50, 0
	flagKind, flagPackage = "", ""
	flagForce, flagSerial, flagWorkers = false, false, 0
	flagVars = nil
	errorHandled = false

	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// indexFixture writes a small source tree, indexes it, and returns the
// database path.
func indexFixture(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	files := map[string]string{
		"p/Shape.java":  "package p;\npublic interface Shape {}\n",
		"p/Square.java": "package p;\npublic final class Square implements Shape {}\n",
		"p/Tile.java":   "package p;\npublic class Tile extends Square {}\n",
	}
	for rel, content := range files {
		path := filepath.Join(src, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	db := filepath.Join(t.TempDir(), "index.db")
	_, err := execute(t, "index", src, "--db", db, "--log-level", "error")
	require.NoError(t, err)
	return db
}

func decode(t *testing.T, out string) CLIResult {
	t.Helper()
	var res CLIResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func TestCommands_IndexAndQuery(t *testing.T) {
	db := indexFixture(t)

	out, err := execute(t, "query", "is-subtype", "p.Shape", "p.Tile", "--db", db)
	require.NoError(t, err)
	res := decode(t, out)
	assert.Equal(t, "is-subtype", res.Command)
	assert.Equal(t, map[string]any{"super": "p.Shape", "sub": "p.Tile", "result": true}, res.Results)

	out, err = execute(t, "query", "superclasses", "p.Tile", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, []any{"p.Square", "java.lang.Object"}, decode(t, out).Results)

	out, err = execute(t, "query", "implementers", "p.Shape", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, []any{"p.Square", "p.Tile"}, decode(t, out).Results)

	out, err = execute(t, "query", "implementers", "p.Shape", "--db", db, "--limit", "1")
	require.NoError(t, err)
	res = decode(t, out)
	assert.Len(t, res.Results, 1)
	require.NotNil(t, res.TotalCount)
	assert.Equal(t, 2, *res.TotalCount)

	out, err = execute(t, "query", "classes", "--kind", "interface", "--db", db)
	require.NoError(t, err)
	classes := decode(t, out).Results.([]any)
	require.Len(t, classes, 1)
	assert.Equal(t, "p.Shape", classes[0].(map[string]any)["name"])

	out, err = execute(t, "query", "is-subtype", "int", "int", "--db", db, "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	out, err = execute(t, "query", "stats", "--db", db, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Classes:    3 (1 interfaces)")
}

func TestCommands_QueryErrors(t *testing.T) {
	db := indexFixture(t)

	out, err := execute(t, "query", "superclass", "p.Missing", "--db", db)
	require.Error(t, err)
	assert.Contains(t, decode(t, out).Error, "class not found")

	out, err = execute(t, "query", "subclasses", "p.Shape", "--db", db)
	require.Error(t, err)
	assert.Contains(t, decode(t, out).Error, "interface")

	out, err = execute(t, "query", "superclass", "java.util.List<String>", "--db", db)
	require.Error(t, err)
	assert.NotEmpty(t, decode(t, out).Error)

	_, err = execute(t, "query", "stats", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")

	_, err = execute(t, "query", "stats", "--db", db, "--format", "yaml")
	require.Error(t, err)
}

func TestCommands_Run(t *testing.T) {
	db := indexFixture(t)
	script := filepath.Join(t.TempDir(), "check.risor")
	require.NoError(t, os.WriteFile(script, []byte(`
assert(is_subtype(base, "p.Tile"))
assert(len(implementers_of(base)) == 2)
`), 0o644))

	_, err := execute(t, "run", script, "--db", db, "--var", "base=p.Shape")
	require.NoError(t, err)

	_, err = execute(t, "run", script, "--db", db, "--var", "base=p.Square")
	require.Error(t, err, "Square has no implementers")
}
