package bridge

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLifecycle struct {
	teardowns atomic.Int32
}

func (c *countingLifecycle) OnTeardown() { c.teardowns.Add(1) }

func TestHub_NotConnected(t *testing.T) {
	h := NewHub(1)
	assert.False(t, h.Connected())
	assert.ErrorIs(t, h.Load(context.Background(), "<mxfile/>"), editor.ErrNotConnected)
	assert.ErrorIs(t, h.ExportDiagram(context.Background(), model.ExportPNG), editor.ErrNotConnected)
}

func TestHub_DeliversCommands(t *testing.T) {
	h := NewHub(4)
	s := h.Attach()

	require.NoError(t, h.Load(context.Background(), "<mxfile/>"))
	require.NoError(t, h.ExportDiagram(context.Background(), model.ExportXMLSVG))

	assert.Equal(t, Command{Type: CommandLoad, XML: "<mxfile/>"}, <-s.Commands())
	assert.Equal(t, Command{Type: CommandExport, Format: model.ExportXMLSVG}, <-s.Commands())
}

func TestHub_AttachReplacesStream(t *testing.T) {
	lc := &countingLifecycle{}
	h := NewHub(1)
	h.SetLifecycle(lc)

	first := h.Attach()
	second := h.Attach()

	select {
	case <-first.Done():
	default:
		t.Fatal("replaced stream must be closed")
	}
	assert.Equal(t, second.ID, h.Current())
	assert.Equal(t, int32(2), lc.teardowns.Load(), "every mount tears the previous one down")

	// detaching a stale stream changes nothing
	h.Detach(first)
	assert.Equal(t, second.ID, h.Current())
	assert.Equal(t, int32(2), lc.teardowns.Load())

	h.Detach(second)
	assert.False(t, h.Connected())
	assert.Equal(t, int32(3), lc.teardowns.Load())
}

func TestHub_SendRespectsContext(t *testing.T) {
	h := NewHub(1)
	h.Attach()
	require.NoError(t, h.Load(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Load(ctx, "b"), context.DeadlineExceeded)
}

func TestHub_SendFailsOnReplacedStream(t *testing.T) {
	h := NewHub(1)
	s := h.Attach()
	require.NoError(t, h.Load(context.Background(), "a"))

	errc := make(chan error, 1)
	go func() { errc <- h.Load(context.Background(), "b") }()

	time.Sleep(10 * time.Millisecond)
	h.Detach(s)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, editor.ErrNotConnected)
	case <-time.After(time.Second):
		t.Fatal("blocked send was not released")
	}
}
