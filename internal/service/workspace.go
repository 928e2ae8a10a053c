package service

import (
	"context"
	"errors"
	"time"

	"drawflow-backend/internal/diagram"
	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"
	"drawflow-backend/pkg/logger"
)

// Workspace ties the session coordinator to the editor: it hydrates the
// editor when the current session changes and folds the editor's diagram
// into every save.
type Workspace struct {
	sessions  *SessionManager
	editor    *editor.Editor
	validator *Validator
	autosave  *Autosaver
}

func NewWorkspace(sessions *SessionManager, ed *editor.Editor, validator *Validator, autosaveDelay time.Duration) *Workspace {
	w := &Workspace{
		sessions:  sessions,
		editor:    ed,
		validator: validator,
	}
	w.autosave = NewAutosaver(autosaveDelay, w.Save)
	return w
}

func (w *Workspace) Sessions() *SessionManager { return w.sessions }
func (w *Workspace) Editor() *editor.Editor    { return w.editor }

// view is the live state of the current session as the editor sees it.
func (w *Workspace) view() *model.SessionData {
	current := w.sessions.Current()
	if current == nil {
		return nil
	}
	current.DiagramXML = w.editor.Document().Markup
	current.DiagramHistory = w.editor.History()
	return current
}

func (w *Workspace) hydrate(ctx context.Context, data *model.SessionData) {
	if data == nil {
		return
	}

	if diagram.IsRealDiagram(data.DiagramXML) {
		if verr := w.editor.LoadDiagram(ctx, data.DiagramXML, true); verr != nil {
			logger.Warnf("Failed to hydrate editor: %v", verr)
		}
	} else {
		w.editor.ClearDiagram(ctx)
	}
	w.editor.SetHistory(data.DiagramHistory)
}

// Init initialises the session coordinator and hydrates the editor with the
// initial session, if one was loaded.
func (w *Workspace) Init(ctx context.Context, initialID string) error {
	if err := w.sessions.Init(ctx, initialID); err != nil {
		return err
	}
	w.hydrate(ctx, w.sessions.Current())
	return nil
}

func (w *Workspace) SwitchSession(ctx context.Context, id string) (*model.SessionData, error) {
	// a pending autosave already carries the outgoing state
	view := w.view()
	if w.autosave.Pending() {
		view = nil
		if err := w.autosave.Flush(ctx); err != nil {
			logger.Warnf("Autosave flush before switch failed: %v", err)
		}
	}

	data, err := w.sessions.SwitchSession(ctx, id, view)
	if err != nil {
		return nil, err
	}
	w.hydrate(ctx, data)
	return data, nil
}

func (w *Workspace) ApplyExternalID(ctx context.Context, id string) (*model.SessionData, error) {
	data, err := w.sessions.ApplyExternalID(ctx, id)
	if err != nil {
		return nil, err
	}
	w.hydrate(ctx, data)
	return data, nil
}

func (w *Workspace) DeleteSession(ctx context.Context, id string) (bool, error) {
	wasCurrent, err := w.sessions.DeleteSession(ctx, id)
	if err != nil {
		return false, err
	}
	if wasCurrent {
		w.autosave.Stop()
		w.editor.ClearDiagram(ctx)
	}
	return wasCurrent, nil
}

// NewSession unloads the current session and blanks the editor.
func (w *Workspace) NewSession(ctx context.Context) {
	w.autosave.Stop()
	w.sessions.ClearCurrentSession()
	w.editor.ClearDiagram(ctx)
}

// Save persists the chat state in req together with the editor's diagram,
// history and a fresh thumbnail.
func (w *Workspace) Save(ctx context.Context, req SaveRequest) error {
	data := &model.SessionData{
		Messages:       req.Messages,
		XMLSnapshots:   req.XMLSnapshots,
		DiagramXML:     w.editor.Document().Markup,
		DiagramHistory: w.editor.History(),
	}
	if thumb := w.editor.Thumbnail(ctx); thumb != "" {
		data.Thumbnail = &thumb
	}
	return w.sessions.SaveCurrentSession(ctx, data, req.Token)
}

// ScheduleSave debounces a save. A request without a token is bound to the
// session current now.
func (w *Workspace) ScheduleSave(req SaveRequest) {
	if req.Token == nil {
		req.Token = w.sessions.Token()
	}
	w.autosave.Schedule(req)
}

func (w *Workspace) FlushAutosave(ctx context.Context) error {
	return w.autosave.Flush(ctx)
}

// Validate captures a raster of the current diagram and asks the vision
// model about it. Trivial diagrams and failed captures count as valid.
func (w *Workspace) Validate(ctx context.Context) (*model.ValidationResult, error) {
	if w.validator == nil || !w.validator.Enabled() {
		return model.DefaultValidResult(), nil
	}

	image, err := w.editor.CaptureValidationImage(ctx)
	if err != nil {
		if editor.IsSuperseded(err) {
			return nil, ErrValidationSuperseded
		}
		logger.Debugf("Validation capture failed: %v", err)
		return model.DefaultValidResult(), nil
	}
	if image == "" {
		return model.DefaultValidResult(), nil
	}

	result, err := w.validator.ValidateWithFallback(ctx, image)
	if errors.Is(err, ErrValidationSuperseded) {
		return nil, err
	}
	return result, nil
}
