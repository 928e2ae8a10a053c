package editor

import (
	"context"

	"drawflow-backend/internal/model"
)

// Bridge is the command side of the embedded editor. Commands are
// fire-and-forget: results come back through Editor.OnReady and
// Editor.OnExport on a single channel that carries no request id.
type Bridge interface {
	Load(ctx context.Context, markup string) error
	ExportDiagram(ctx context.Context, format model.ExportFormat) error
}

// Auditor records completed file saves. Implementations must tolerate being
// called from a background goroutine.
type Auditor interface {
	Record(ctx context.Context, ev model.SaveEvent)
}
