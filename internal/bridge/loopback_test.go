package bridge

import (
	"context"
	"testing"

	"drawflow-backend/internal/config"
	"drawflow-backend/internal/diagram"
	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<mxfile><diagram name="Page-1" id="page-1"><mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/><mxCell id="2" value="Hi" vertex="1" parent="1"/></root></mxGraphModel></diagram></mxfile>`

func mountedEditor(t *testing.T) (*editor.Editor, *Loopback) {
	t.Helper()
	lb := NewLoopback()
	ed := editor.New(lb, config.EditorConfig{}, nil)
	require.NoError(t, lb.Mount(context.Background(), ed))
	return ed, lb
}

func TestLoopback_SavesDrawio(t *testing.T) {
	ed, lb := mountedEditor(t)
	require.Nil(t, ed.LoadDiagram(context.Background(), doc, false))
	assert.Equal(t, doc, lb.Markup())

	a, err := ed.SaveToFile(context.Background(), "export", model.SaveDrawio, "")
	require.NoError(t, err)
	assert.Equal(t, "export.drawio", a.Filename)
	assert.Equal(t, doc, string(a.Content))
}

func TestLoopback_Thumbnail(t *testing.T) {
	ed, _ := mountedEditor(t)
	ed.LoadDiagram(context.Background(), doc, true)

	assert.Equal(t, diagram.EncodeSVG(doc), ed.Thumbnail(context.Background()))
}

func TestLoopback_RefusesRaster(t *testing.T) {
	ed, _ := mountedEditor(t)
	ed.LoadDiagram(context.Background(), doc, true)

	_, err := ed.SaveToFile(context.Background(), "export", model.SavePNG, "")
	assert.ErrorIs(t, err, editor.ErrUnsupportedFormat)
}

func TestLoopback_UnmountedExport(t *testing.T) {
	lb := NewLoopback()
	assert.ErrorIs(t, lb.ExportDiagram(context.Background(), model.ExportSVG), editor.ErrNotConnected)
}
