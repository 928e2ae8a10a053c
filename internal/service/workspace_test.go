package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"drawflow-backend/internal/bridge"
	"drawflow-backend/internal/config"
	"drawflow-backend/internal/diagram"
	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"
	"drawflow-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	flowDoc  = `<mxfile><diagram name="Page-1" id="p1"><mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/><mxCell id="2" value="Start" vertex="1" parent="1"/></root></mxGraphModel></diagram></mxfile>`
	otherDoc = `<mxfile><diagram name="Page-1" id="p1"><mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/><mxCell id="9" value="Other" vertex="1" parent="1"/></root></mxGraphModel></diagram></mxfile>`
)

type workspaceFixture struct {
	ws     *Workspace
	store  *storage.MemoryStorage
	editor *editor.Editor
	bridge *bridge.Loopback
}

func newWorkspace(t *testing.T, validator *Validator) *workspaceFixture {
	t.Helper()
	ctx := context.Background()

	lb := bridge.NewLoopback()
	ed := editor.New(lb, config.EditorConfig{ThumbnailTimeout: time.Second}, nil)
	require.NoError(t, lb.Mount(ctx, ed))

	store := storage.NewMemoryStorage("")
	sessions := NewSessionManager(store, config.SessionConfig{MaxSessions: 10})
	ws := NewWorkspace(sessions, ed, validator, time.Hour)
	require.NoError(t, ws.Init(ctx, ""))

	return &workspaceFixture{ws: ws, store: store, editor: ed, bridge: lb}
}

func TestWorkspaceSaveCarriesDiagramAndThumbnail(t *testing.T) {
	ctx := context.Background()
	f := newWorkspace(t, nil)

	require.Nil(t, f.editor.LoadDiagram(ctx, flowDoc, true))
	require.NoError(t, f.ws.Save(ctx, SaveRequest{Messages: []model.Message{userMsg("m1", "Flow")}}))

	id := f.ws.Sessions().CurrentID()
	require.NotEmpty(t, id)

	stored, err := f.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, flowDoc, stored.DiagramXML)
	assert.True(t, strings.Contains(stored.Thumbnail, "<svg"))
	assert.True(t, f.ws.Sessions().Sessions()[0].HasDiagram)
}

func TestWorkspaceSwitchHydratesEditor(t *testing.T) {
	ctx := context.Background()
	f := newWorkspace(t, nil)

	require.Nil(t, f.editor.LoadDiagram(ctx, flowDoc, true))
	require.NoError(t, f.ws.Save(ctx, SaveRequest{Messages: []model.Message{userMsg("m1", "Flow")}}))
	first := f.ws.Sessions().CurrentID()

	history := []model.HistoryEntry{{Rendering: diagram.EncodeSVG(otherDoc), Markup: otherDoc}}
	require.NoError(t, f.store.Save(ctx, &model.Session{
		ID:             "other",
		Title:          "Other",
		Messages:       []model.Message{userMsg("m1", "Other")},
		DiagramXML:     otherDoc,
		DiagramHistory: history,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}))

	data, err := f.ws.SwitchSession(ctx, "other")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, otherDoc, f.editor.Document().Markup)
	assert.Equal(t, otherDoc, f.bridge.Markup())
	assert.Equal(t, history, f.editor.History())

	_, err = f.ws.SwitchSession(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, flowDoc, f.editor.Document().Markup)
	assert.Empty(t, f.editor.History())
}

func TestWorkspaceSwitchFlushesPendingAutosave(t *testing.T) {
	ctx := context.Background()
	f := newWorkspace(t, nil)

	require.NoError(t, f.ws.Save(ctx, SaveRequest{Messages: []model.Message{userMsg("m1", "one")}}))
	first := f.ws.Sessions().CurrentID()
	require.NoError(t, f.store.Save(ctx, &model.Session{ID: "b", Title: "B", CreatedAt: time.Now(), UpdatedAt: time.Now()}))

	f.ws.ScheduleSave(SaveRequest{Messages: []model.Message{userMsg("m1", "one"), userMsg("m2", "two")}})
	_, err := f.ws.SwitchSession(ctx, "b")
	require.NoError(t, err)

	stored, err := f.store.Get(ctx, first)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)
}

func TestWorkspaceStaleAutosaveDropped(t *testing.T) {
	ctx := context.Background()
	f := newWorkspace(t, nil)

	require.NoError(t, f.ws.Save(ctx, SaveRequest{Messages: []model.Message{userMsg("m1", "one")}}))
	first := f.ws.Sessions().CurrentID()
	token := f.ws.Sessions().Token()

	require.NoError(t, f.store.Save(ctx, &model.Session{ID: "b", Title: "B", CreatedAt: time.Now(), UpdatedAt: time.Now()}))
	_, err := f.ws.SwitchSession(ctx, "b")
	require.NoError(t, err)

	// a write scheduled for the first session lands after the switch
	f.ws.ScheduleSave(SaveRequest{Messages: []model.Message{userMsg("x", "late")}, Token: token})
	require.NoError(t, f.ws.FlushAutosave(ctx))

	b, err := f.store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, b.Messages)

	a, err := f.store.Get(ctx, first)
	require.NoError(t, err)
	require.Len(t, a.Messages, 1)
	assert.Equal(t, "one", a.Messages[0].Content)
}

func TestWorkspaceDeleteActiveClearsEditor(t *testing.T) {
	ctx := context.Background()
	f := newWorkspace(t, nil)

	require.Nil(t, f.editor.LoadDiagram(ctx, flowDoc, true))
	require.NoError(t, f.ws.Save(ctx, SaveRequest{Messages: []model.Message{userMsg("m1", "Flow")}}))
	id := f.ws.Sessions().CurrentID()

	wasCurrent, err := f.ws.DeleteSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, wasCurrent)
	assert.Equal(t, diagram.EmptyDiagram, f.editor.Document().Markup)
	assert.Nil(t, f.ws.Sessions().Current())
	assert.Empty(t, f.ws.Sessions().Sessions())
}

func TestWorkspaceNewSession(t *testing.T) {
	ctx := context.Background()
	f := newWorkspace(t, nil)

	require.Nil(t, f.editor.LoadDiagram(ctx, flowDoc, true))
	require.NoError(t, f.ws.Save(ctx, SaveRequest{Messages: []model.Message{userMsg("m1", "Flow")}}))

	f.ws.NewSession(ctx)
	assert.Empty(t, f.ws.Sessions().CurrentID())
	assert.False(t, diagram.IsRealDiagram(f.editor.Document().Markup))
}

func TestWorkspaceValidate(t *testing.T) {
	ctx := context.Background()

	f := newWorkspace(t, nil)
	result, err := f.ws.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	// the loopback cannot render rasters, so the capture fails softly
	v, err := NewValidator(ctx, &fakeChatModel{reply: `{"valid": false}`})
	require.NoError(t, err)
	f = newWorkspace(t, v)
	require.Nil(t, f.editor.LoadDiagram(ctx, flowDoc, true))

	result, err = f.ws.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}
