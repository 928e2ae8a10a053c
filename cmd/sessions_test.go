package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"drawflow-backend/internal/model"
	"drawflow-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flowDoc = `<mxfile><diagram name="Page-1" id="p1"><mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/><mxCell id="2" value="Start" vertex="1" parent="1"/></root></mxGraphModel></diagram></mxfile>`

func seedDisk(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DRAWFLOW_STORAGE_TYPE", "disk")
	t.Setenv("DRAWFLOW_STORAGE_DATA_DIR", dir)
	t.Setenv("DRAWFLOW_LOG_OUTPUT", "stderr")

	d := storage.NewDiskStorage(dir, 4, "")
	require.NoError(t, d.Init())
	now := time.Now()
	require.NoError(t, d.Save(context.Background(), &model.Session{
		ID: "flow", Title: "Login flow", DiagramXML: flowDoc,
		Messages:  []model.Message{{ID: "m1", Role: "user", Content: "Login flow"}},
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, d.Save(context.Background(), &model.Session{
		ID: "blank", Title: model.DefaultSessionTitle,
		CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
	}))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSessionsList(t *testing.T) {
	seedDisk(t)

	out, err := run(t, "sessions", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "flow"))
	assert.True(t, strings.HasPrefix(lines[2], "blank"))

	out, err = run(t, "sessions", "list", "--json")
	require.NoError(t, err)
	var list []model.SessionMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.True(t, list[0].HasDiagram)
}

func TestSessionsExport(t *testing.T) {
	seedDisk(t)
	outDir := t.TempDir()

	out, err := run(t, "sessions", "export", "flow", "--out", outDir, "--name", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "login.drawio")

	data, err := os.ReadFile(filepath.Join(outDir, "login.drawio"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `value="Start"`)

	_, err = run(t, "sessions", "export", "flow", "--out", outDir, "--format", "svg")
	require.NoError(t, err)
	svg, err := os.ReadFile(filepath.Join(outDir, "flow.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	_, err = run(t, "sessions", "export", "blank", "--out", outDir)
	assert.Error(t, err)

	_, err = run(t, "sessions", "export", "flow", "--out", outDir, "--format", "png")
	assert.Error(t, err)
}

func TestSessionsDelete(t *testing.T) {
	seedDisk(t)

	_, err := run(t, "sessions", "delete", "blank")
	require.NoError(t, err)

	out, err := run(t, "sessions", "list", "--json")
	require.NoError(t, err)
	var list []model.SessionMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "flow", list[0].ID)
}

func TestMigrateWithBackup(t *testing.T) {
	dir := seedDisk(t)

	legacy := filepath.Join(t.TempDir(), "conversation.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{"messages":[{"id":"l1","role":"user","content":"Old chat"}],"diagram_xml":""}`), 0644))
	t.Setenv("DRAWFLOW_STORAGE_LEGACY_FILE", legacy)

	out, err := run(t, "migrate", "--backup")
	require.NoError(t, err)
	assert.Contains(t, out, "backup written to")
	assert.Contains(t, out, "3 session(s)")

	entries, err := os.ReadDir(filepath.Join(dir, "backup"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = os.Stat(legacy + ".migrated")
	assert.NoError(t, err)
}

func TestStoreRequiredForSessionCommands(t *testing.T) {
	t.Setenv("DRAWFLOW_STORAGE_TYPE", "none")
	_, err := run(t, "sessions", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session store")
}
