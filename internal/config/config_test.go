package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "disk", c.Storage.Type)
	assert.Equal(t, 50, c.Session.MaxSessions)
	assert.Equal(t, 3*time.Second, c.Editor.ThumbnailTimeout)
	assert.Equal(t, 5*time.Second, c.Editor.ValidationTimeout)
	assert.Equal(t, 20, c.Editor.HistoryLimit)
	assert.Same(t, c, Get())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
storage:
  type: sqlite
  sqlite_path: /tmp/x.db
session:
  max_sessions: 5
editor:
  save_timeout: 2s
model:
  provider: qwen
  qwen:
    model: qwen-vl-max
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "sqlite", c.Storage.Type)
	assert.Equal(t, "/tmp/x.db", c.Storage.SQLitePath)
	assert.Equal(t, 5, c.Session.MaxSessions)
	assert.Equal(t, 2*time.Second, c.Editor.SaveTimeout)
	assert.Equal(t, "qwen", c.Model.Provider)
	assert.Equal(t, "qwen-vl-max", c.Model.Qwen.Model)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DRAWFLOW_STORAGE_TYPE", "memory")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", c.Storage.Type)
	assert.Equal(t, "sk-test", c.Model.OpenAI.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
