package project

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupProject creates a project directory with a marker file, a second
// config file and a scripts/ directory.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "test-project-1")

	files := map[string]string{
		"project.yaml":           "name: demo\nowner: lab\nsettings:\n  seed: 42\n  tags: [a, b]\n",
		"project2.yaml":          "name: other\n",
		"scripts/script.hcl":     "foo = 3\nbar = \"${project.name}-bar\"\nbaz = [foo, config.settings.seed]\n",
		"scripts/broken.hcl":     "foo = \n",
		"scripts/notes.txt":      "not a script\n",
		"data/raw-data/2024.csv": "a,b\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestFindRoot(t *testing.T) {
	dir := setupProject(t)

	for _, start := range []string{dir, filepath.Join(dir, "scripts"), filepath.Join(dir, "data", "raw-data")} {
		root, err := FindRoot(start, "")
		require.NoError(t, err)
		assert.Equal(t, dir, root, start)
	}
}

func TestFindRoot_StartIsFile(t *testing.T) {
	dir := setupProject(t)
	root, err := FindRoot(filepath.Join(dir, "scripts", "notes.txt"), "")
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestFindRoot_NearestWins(t *testing.T) {
	dir := setupProject(t)
	inner := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(filepath.Join(inner, DefaultMarker), nil, 0644))

	root, err := FindRoot(filepath.Join(inner, "raw-data"), "")
	require.NoError(t, err)
	assert.Equal(t, inner, root)
}

func TestFindRoot_MarkerMustBeFile(t *testing.T) {
	dir := setupProject(t)
	sub := filepath.Join(dir, "data")
	require.NoError(t, os.Mkdir(filepath.Join(sub, DefaultMarker), 0755))

	root, err := FindRoot(sub, "")
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestFindRoot_NotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := FindRoot(dir, "aproj-marker-that-does-not-exist.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Contains(t, err.Error(), dir)
}

func TestFindRoot_WorkingDirectory(t *testing.T) {
	dir := setupProject(t)
	t.Chdir(filepath.Join(dir, "scripts"))

	root, err := FindRoot("", "")
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestLocate(t *testing.T) {
	dir := setupProject(t)

	for _, start := range []string{dir, filepath.Join(dir, "scripts")} {
		p, err := Locate(start)
		require.NoError(t, err)
		assert.Equal(t, dir, p.RootPath())
		assert.Equal(t, filepath.Join(dir, "project.yaml"), p.ConfigFile())

		name, ok := p.Name()
		assert.True(t, ok)
		assert.Equal(t, "demo", name)
	}
}

func TestLocate_CustomMarker(t *testing.T) {
	dir := setupProject(t)

	p, err := Locate(filepath.Join(dir, "scripts"), WithMarker("project2.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "project2.yaml"), p.ConfigFile())
	name, _ := p.Name()
	assert.Equal(t, "other", name)
}

func TestLocate_Logs(t *testing.T) {
	dir := setupProject(t)
	core, logs := observer.New(zapcore.DebugLevel)

	_, err := Locate(filepath.Join(dir, "scripts"), WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("no project marker").Len())
	assert.Equal(t, 1, logs.FilterMessage("found project marker").Len())
}

func TestNew(t *testing.T) {
	dir := setupProject(t)
	explicit := map[string]any{"_passed_as_arg": true}

	cases := []struct {
		path       string
		configFile string
	}{
		{path: dir, configFile: filepath.Join(dir, "project.yaml")},
		{path: filepath.Join(dir, "project.yaml"), configFile: filepath.Join(dir, "project.yaml")},
		{path: filepath.Join(dir, "project2.yaml"), configFile: filepath.Join(dir, "project2.yaml")},
	}

	for _, tc := range cases {
		t.Run(filepath.Base(tc.path), func(t *testing.T) {
			p, err := New(tc.path)
			require.NoError(t, err)
			assert.Equal(t, dir, p.RootPath())
			assert.Equal(t, tc.configFile, p.ConfigFile())
			assert.NotContains(t, p.Config(), "_passed_as_arg")

			p2, err := New(tc.path, WithConfig(explicit))
			require.NoError(t, err)
			assert.Equal(t, dir, p2.RootPath())
			assert.Empty(t, p2.ConfigFile())
			assert.Equal(t, explicit, p2.Config())
			_, hasName := p2.Name()
			assert.False(t, hasName)
		})
	}
}

func TestNew_ExplicitConfigSkipsFile(t *testing.T) {
	dir := t.TempDir()
	// Unparseable marker: only reading it would fail.
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultMarker), []byte("a: [\n"), 0644))

	_, err := New(dir)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err := New(dir, WithConfig(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, p.Config())
	assert.Empty(t, p.ConfigFile())
}

func TestNew_DirectoryWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, p.RootPath())
	assert.Empty(t, p.ConfigFile())
	assert.NotNil(t, p.Config())
	assert.Empty(t, p.Config())
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestNew_RelativePath(t *testing.T) {
	dir := setupProject(t)
	t.Chdir(dir)

	fromFile, err := New("project.yaml")
	require.NoError(t, err)
	fromDir, err := New(".")
	require.NoError(t, err)
	assert.Equal(t, dir, fromFile.RootPath())
	assert.Equal(t, fromFile.RootPath(), fromDir.RootPath())
}

func TestNew_ConfigValuesWithoutScriptForm(t *testing.T) {
	t.Run("infinity from file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultMarker), []byte("name: demo\nthreshold: .inf\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "limit.hcl"), []byte("limit = config.threshold\n"), 0644))

		p, err := New(dir)
		require.NoError(t, err)
		assert.Equal(t, math.Inf(1), p.Config()["threshold"])

		p, err = Locate(dir)
		require.NoError(t, err)
		vals, err := p.ImportNames("limit.hcl", false, "limit")
		require.NoError(t, err)
		assert.Equal(t, []any{math.Inf(1)}, vals)
	})

	t.Run("typed values from explicit config", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "first.hcl"), []byte("first = config.items[0].a\n"), 0644))

		explicit := map[string]any{"items": []map[string]any{{"a": 1}}}
		p, err := New(dir, WithConfig(explicit))
		require.NoError(t, err)
		assert.Equal(t, explicit, p.Config())

		vals, err := p.ImportNames("first.hcl", false, "first")
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1)}, vals)
	})
}

func TestNew_NonStringName(t *testing.T) {
	p, err := New(t.TempDir(), WithConfig(map[string]any{"name": 2024}))
	require.NoError(t, err)
	name, ok := p.Name()
	assert.True(t, ok)
	assert.Equal(t, "2024", name)
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	t.Run("mapping", func(t *testing.T) {
		cfg, err := ReadConfig(write("ok.yaml", "name: demo\nitems:\n  - 1\n  - two\nnested:\n  1: one\n  k: null\n"))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"name":   "demo",
			"items":  []any{1, "two"},
			"nested": map[string]any{"1": "one", "k": nil},
		}, cfg)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := ReadConfig(write("empty.yaml", ""))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, cfg)
	})

	t.Run("null document", func(t *testing.T) {
		cfg, err := ReadConfig(write("null.yaml", "~\n"))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, err := ReadConfig(filepath.Join(dir, "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, cfg)
	})

	t.Run("sequence at top level", func(t *testing.T) {
		_, err := ReadConfig(write("list.yaml", "- a\n- b\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := ReadConfig(write("bad.yaml", "a: [\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestProject_Accessors(t *testing.T) {
	dir := setupProject(t)
	p, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, p.RootPathW().Path())
	assert.Equal(t, filepath.Join(dir, "scripts", "script.hcl"), p.Path("scripts", "script.hcl"))
	assert.Equal(t, `Project("`+dir+`", name="demo")`, p.String())

	cfg := p.Config()
	cfg["name"] = "changed"
	name, _ := p.Name()
	assert.Equal(t, "demo", name)
	assert.Equal(t, "demo", p.Config()["name"])

	raw, err := p.RootPathW().Walk("data", "raw_data", "d__2024_csv")
	require.NoError(t, err)
	assert.True(t, raw.Exists())
}
