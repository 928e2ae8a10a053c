// Package editor coordinates the host with the embedded diagram editor. The
// editor answers every export on one shared event channel, so Editor keeps a
// slot per requesting role and routes each payload by waiter liveness and
// payload shape.
package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"drawflow-backend/internal/config"
	"drawflow-backend/internal/diagram"
	"drawflow-backend/internal/model"
	"drawflow-backend/pkg/logger"
)

const (
	DefaultThumbnailTimeout  = 3 * time.Second
	DefaultValidationTimeout = 5 * time.Second
	DefaultSaveTimeout       = 10 * time.Second
)

// Artifact is a file produced by SaveToFile.
type Artifact struct {
	Filename string
	MimeType string
	Content  []byte
}

type Editor struct {
	bridge  Bridge
	auditor Auditor

	timeouts [roleCount]time.Duration

	mu            sync.Mutex
	doc           model.DiagramDocument
	history       *History
	slots         [roleCount]*waiter
	userInitiated bool
	ready         readiness
}

// New creates an Editor driving bridge. auditor may be nil. Zero values in
// cfg fall back to the package defaults.
func New(bridge Bridge, cfg config.EditorConfig, auditor Auditor) *Editor {
	e := &Editor{
		bridge:  bridge,
		auditor: auditor,
		history: NewHistory(cfg.HistoryLimit),
	}
	e.timeouts[RoleThumbnail] = orDefault(cfg.ThumbnailTimeout, DefaultThumbnailTimeout)
	e.timeouts[RoleValidation] = orDefault(cfg.ValidationTimeout, DefaultValidationTimeout)
	e.timeouts[RoleSave] = orDefault(cfg.SaveTimeout, DefaultSaveTimeout)
	return e
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// OnReady handles the editor's ready event. The first call of a mount
// generation marks the editor ready and restores the last known document
// when it has real content; repeated calls do nothing.
func (e *Editor) OnReady(ctx context.Context) error {
	e.mu.Lock()
	if !e.ready.markReady() {
		e.mu.Unlock()
		logger.Debug("editor: duplicate ready signal ignored")
		return nil
	}
	restore := e.ready.claimRestore()
	markup := e.doc.Markup
	gen := e.ready.generation
	e.mu.Unlock()

	if !restore || !diagram.IsRealDiagram(markup) {
		return nil
	}

	logger.WithFields(map[string]interface{}{
		"generation": gen,
	}).Debug("editor: restoring diagram after mount")
	return e.bridge.Load(ctx, markup)
}

// OnTeardown handles the editor being unmounted.
func (e *Editor) OnTeardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready.teardown()
}

func (e *Editor) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready.ready()
}

func (e *Editor) State() ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready.state
}

// OnExport is the single ingress for every completed export.
func (e *Editor) OnExport(payload string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	match := classify(&e.slots, payload)
	switch match {
	case MatchRaster:
		e.take(RoleValidation).resolve(payload)
		return

	case MatchSave:
		w := e.take(RoleSave)
		w.resolve(payload)
		// only the container export carries markup
		if w.format == model.SavePNG || w.format == model.SaveSVG {
			return
		}
		fallthrough

	case MatchThumbnail:
		e.applyExport(payload)

	default:
		logger.Debugf("editor: dropped %s export payload (%d bytes)", match, len(payload))
	}
}

// applyExport updates the current document from a document export. Caller
// holds e.mu.
func (e *Editor) applyExport(payload string) {
	markup, err := diagram.ExtractMarkup(payload)
	if err != nil {
		logger.Warnf("editor: cannot extract markup from export: %v", err)
		if w := e.take(RoleThumbnail); w != nil {
			w.reject(err)
		}
		e.userInitiated = false
		return
	}

	e.doc = model.DiagramDocument{Markup: markup, Rendering: payload}

	if e.userInitiated {
		e.userInitiated = false
		e.history.Append(model.HistoryEntry{Rendering: payload, Markup: markup})
	}

	if w := e.take(RoleThumbnail); w != nil {
		w.resolve(markup)
	}
}

// take clears and returns the live waiter for role. Caller holds e.mu.
func (e *Editor) take(role Role) *waiter {
	w := e.slots[role]
	e.slots[role] = nil
	return w
}

// install puts a new waiter in role's slot, superseding the live one.
func (e *Editor) install(role Role, format model.SaveFormat) *waiter {
	w := newWaiter(role, format)

	e.mu.Lock()
	if old := e.slots[role]; old != nil {
		old.reject(&ExportError{Code: CodeSuperseded, Role: role})
	}
	e.slots[role] = w
	e.mu.Unlock()
	return w
}

// release removes w from its slot if it is still there. A false result
// means w was already settled.
func (e *Editor) release(w *waiter) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.slots[w.role] != w {
		return false
	}
	e.slots[w.role] = nil
	return true
}

// RequestExport asks the editor for an export on behalf of role and waits
// for the matching payload. Expiry and cancellation reject with a timeout
// ExportError; nothing is sent to the editor to abort the export.
func (e *Editor) RequestExport(ctx context.Context, role Role) (string, error) {
	switch role {
	case RoleThumbnail, RoleValidation:
		return e.await(ctx, role, "")
	case RoleSave:
		return e.await(ctx, role, model.SaveDrawio)
	default:
		return "", fmt.Errorf("unknown export role %d", int(role))
	}
}

func (e *Editor) await(ctx context.Context, role Role, format model.SaveFormat) (string, error) {
	w := e.install(role, format)

	exportFormat := model.ExportXMLSVG
	switch role {
	case RoleValidation:
		exportFormat = model.ExportPNG
	case RoleSave:
		exportFormat = format.ExportFormat()
	}

	if err := e.bridge.ExportDiagram(ctx, exportFormat); err != nil {
		if !e.release(w) {
			r := <-w.ch
			return r.payload, r.err
		}
		return "", err
	}

	timer := time.NewTimer(e.timeouts[role])
	defer timer.Stop()

	var cause error
	select {
	case r := <-w.ch:
		return r.payload, r.err
	case <-timer.C:
	case <-ctx.Done():
		cause = ctx.Err()
	}

	if !e.release(w) {
		// settled while we were giving up
		r := <-w.ch
		return r.payload, r.err
	}
	return "", &ExportError{Code: CodeTimeout, Role: role, Err: cause}
}

// Thumbnail returns an SVG rendering of the current diagram, or "" when the
// diagram is trivial or the export did not arrive in time.
func (e *Editor) Thumbnail(ctx context.Context) string {
	if !diagram.IsRealDiagram(e.Document().Markup) {
		return ""
	}

	if _, err := e.await(ctx, RoleThumbnail, ""); err != nil {
		logger.Debugf("editor: thumbnail unavailable: %v", err)
		return ""
	}

	rendering := e.Document().Rendering
	if !strings.Contains(rendering, "<svg") {
		return ""
	}
	return rendering
}

// CaptureValidationImage returns a PNG data URL of the current diagram, or
// "" when the diagram is trivial.
func (e *Editor) CaptureValidationImage(ctx context.Context) (string, error) {
	if !diagram.IsRealDiagram(e.Document().Markup) {
		return "", nil
	}

	payload, err := e.await(ctx, RoleValidation, "")
	if err != nil {
		return "", err
	}
	if !diagram.IsRasterPayload(payload) {
		return "", nil
	}
	return payload, nil
}

// SaveToFile exports the diagram in format and turns the payload into a
// file named base plus the format's extension. The save is audited in the
// background.
func (e *Editor) SaveToFile(ctx context.Context, base string, format model.SaveFormat, sessionID string) (*Artifact, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	payload, err := e.await(ctx, RoleSave, format)
	if err != nil {
		return nil, err
	}

	artifact, err := buildArtifact(base, format, payload)
	if err != nil {
		return nil, err
	}

	if e.auditor != nil {
		ev := model.SaveEvent{Filename: base, Format: string(format), SessionID: sessionID}
		go e.auditor.Record(context.Background(), ev)
	}
	return artifact, nil
}

func buildArtifact(base string, format model.SaveFormat, payload string) (*Artifact, error) {
	switch format {
	case model.SaveDrawio:
		markup, err := diagram.ExtractMarkup(payload)
		if err != nil {
			return nil, err
		}
		return &Artifact{
			Filename: base + ".drawio",
			MimeType: "application/xml",
			Content:  []byte(diagram.WrapContainer(markup)),
		}, nil

	case model.SavePNG:
		_, data, ok := strings.Cut(payload, ",")
		if !ok || !diagram.IsRasterPayload(payload) {
			return nil, errors.New("png export is not a data url")
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("decode png export: %w", err)
		}
		return &Artifact{Filename: base + ".png", MimeType: "image/png", Content: raw}, nil

	default:
		return &Artifact{Filename: base + ".svg", MimeType: "image/svg+xml", Content: []byte(payload)}, nil
	}
}

// Export requests a document export that is recorded in history.
func (e *Editor) Export(ctx context.Context) error {
	e.mu.Lock()
	e.userInitiated = true
	e.mu.Unlock()

	if err := e.bridge.ExportDiagram(ctx, model.ExportXMLSVG); err != nil {
		e.mu.Lock()
		e.userInitiated = false
		e.mu.Unlock()
		return err
	}
	return nil
}

// ExportWithoutHistory refreshes the current document from the editor
// without recording a history entry.
func (e *Editor) ExportWithoutHistory(ctx context.Context) error {
	return e.bridge.ExportDiagram(ctx, model.ExportXMLSVG)
}

// LoadDiagram validates markup (unless skipValidation), makes it the current
// document and pushes it to the editor. The current document is updated
// even when the editor is not connected; it is restored on the next ready.
func (e *Editor) LoadDiagram(ctx context.Context, markup string, skipValidation bool) *ValidationError {
	toLoad := markup
	if !skipValidation {
		report := diagram.ValidateAndFix(markup)
		if !report.Valid {
			logger.Warnf("editor: refusing diagram: %s", report.Error)
			return &ValidationError{Message: report.Error, Fixes: report.Fixes}
		}
		if report.Fixed != "" {
			logger.Infof("editor: auto-fixed diagram: %s", strings.Join(report.Fixes, ", "))
			toLoad = report.Fixed
		}
	}

	// the old rendering belongs to the old markup
	e.mu.Lock()
	e.doc = model.DiagramDocument{Markup: toLoad}
	e.mu.Unlock()

	if err := e.bridge.Load(ctx, toLoad); err != nil {
		logger.Debugf("editor: load not delivered: %v", err)
	}
	return nil
}

// ClearDiagram resets the editor to the empty baseline.
func (e *Editor) ClearDiagram(ctx context.Context) {
	e.LoadDiagram(ctx, diagram.EmptyDiagram, true)

	e.mu.Lock()
	e.history.Clear()
	e.mu.Unlock()
}

func (e *Editor) Document() model.DiagramDocument {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

func (e *Editor) History() []model.HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Entries()
}

// SetHistory replaces the history, e.g. when hydrating a switched session.
func (e *Editor) SetHistory(entries []model.HistoryEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Replace(entries)
}
