package globalconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
marker: analysis.yaml
script_path:
  - /opt/lib
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "analysis.yaml", cfg.Marker)
	assert.Equal(t, []string{"/opt/lib"}, cfg.ScriptPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format, "unset keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("marker: analysis.yaml\n"), 0600))

	t.Setenv("APROJ_MARKER", "env.yaml")
	t.Setenv("APROJ_LOG_FORMAT", "json")
	t.Setenv("APROJ_SCRIPT_PATH", "/a"+string(os.PathListSeparator)+"/b")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.yaml", cfg.Marker)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"/a", "/b"}, cfg.ScriptPath)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "marker path", content: "marker: sub/project.yaml\n"},
		{name: "log level", content: "log:\n  level: loud\n"},
		{name: "log format", content: "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestGetConfigPath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "aproj", "config.yaml"), path)
}

func TestProjectOptions(t *testing.T) {
	cfg := NewConfig()
	assert.Len(t, cfg.ProjectOptions(), 2)
}
