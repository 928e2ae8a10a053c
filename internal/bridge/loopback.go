package bridge

import (
	"context"
	"fmt"
	"sync"

	"drawflow-backend/internal/diagram"
	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"
)

// Sink receives the events the loopback produces.
type Sink interface {
	OnReady(ctx context.Context) error
	OnExport(payload string)
}

// Loopback is a headless editor: it keeps the last loaded markup and
// answers vector exports with a placeholder rendering that embeds it.
// Raster exports need a real renderer and are refused.
type Loopback struct {
	mu     sync.Mutex
	markup string
	sink   Sink
}

func NewLoopback() *Loopback {
	return &Loopback{markup: diagram.EmptyDiagram}
}

// Mount connects the loopback to sink and signals ready.
func (l *Loopback) Mount(ctx context.Context, sink Sink) error {
	l.mu.Lock()
	l.sink = sink
	l.mu.Unlock()
	return sink.OnReady(ctx)
}

func (l *Loopback) Load(ctx context.Context, markup string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markup = markup
	return nil
}

func (l *Loopback) ExportDiagram(ctx context.Context, format model.ExportFormat) error {
	if format == model.ExportPNG {
		return fmt.Errorf("%w: loopback cannot render %s", editor.ErrUnsupportedFormat, format)
	}

	l.mu.Lock()
	sink := l.sink
	payload := diagram.EncodeSVG(l.markup)
	l.mu.Unlock()

	if sink == nil {
		return editor.ErrNotConnected
	}
	// events arrive after the command returns, like the real editor
	go sink.OnExport(payload)
	return nil
}

// Markup returns the last loaded markup.
func (l *Loopback) Markup() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.markup
}
