package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"drawflow-backend/internal/config"
	"drawflow-backend/internal/model"
	"drawflow-backend/internal/storage"
	"drawflow-backend/pkg/logger"

	"github.com/google/uuid"
)

// SessionToken is the session id a caller observed when it scheduled a
// write. The write only commits if that session is still current.
type SessionToken struct {
	SessionID string
}

// TokenFor builds a token for an id the caller captured itself.
func TokenFor(id string) *SessionToken {
	return &SessionToken{SessionID: id}
}

// SessionManager owns the current session and its persistence. Writes and
// switches are serialised by writeMu; lookups for externally supplied ids run
// without it and are ordered by the sequence counter instead.
type SessionManager struct {
	store       storage.Store
	maxSessions int

	writeMu sync.Mutex

	mu        sync.RWMutex
	available bool
	currentID string
	current   *model.Session
	sessions  []model.SessionMetadata

	seq atomic.Uint64
}

func NewSessionManager(store storage.Store, cfg config.SessionConfig) *SessionManager {
	return &SessionManager{
		store:       store,
		maxSessions: cfg.MaxSessions,
		sessions:    []model.SessionMetadata{},
	}
}

// Init migrates legacy data, loads the session list and adopts initialID
// when it names a stored session. Without a store the manager stays in
// stateless mode and every operation becomes a no-op.
func (m *SessionManager) Init(ctx context.Context, initialID string) error {
	if m.store == nil {
		logger.Warn("Session store unavailable, running without persistence")
		return nil
	}

	if err := m.store.MigrateLegacy(ctx); err != nil {
		logger.Warnf("Legacy migration failed: %v", err)
	}

	m.mu.Lock()
	m.available = true
	m.mu.Unlock()

	if err := m.RefreshSessions(ctx); err != nil {
		return err
	}

	if initialID != "" {
		if _, err := m.ApplyExternalID(ctx, initialID); err != nil {
			return err
		}
	}

	logger.Infof("Session manager initialized (%d sessions)", len(m.Sessions()))
	return nil
}

func (m *SessionManager) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

func (m *SessionManager) CurrentID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentID
}

// Current returns a snapshot of the current session, or nil when none is
// loaded.
func (m *SessionManager) Current() *model.SessionData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	return m.current.Data()
}

func (m *SessionManager) Sessions() []model.SessionMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.SessionMetadata(nil), m.sessions...)
}

// Token captures the current session id for a later SaveCurrentSession.
func (m *SessionManager) Token() *SessionToken {
	return TokenFor(m.CurrentID())
}

func (m *SessionManager) RefreshSessions(ctx context.Context) error {
	if !m.Available() {
		return nil
	}

	list, err := m.store.List(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.sessions = list
	m.mu.Unlock()
	return nil
}

// SwitchSession makes id current and returns its snapshot for hydration.
// view is the caller's live state of the outgoing session; when non-nil it
// is flushed first if that session has content. Switching to the current id returns
// nil.
func (m *SessionManager) SwitchSession(ctx context.Context, id string, view *model.SessionData) (*model.SessionData, error) {
	if !m.Available() {
		return nil, nil
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if id == m.CurrentID() {
		return nil, nil
	}

	m.flushLocked(ctx, view)

	session, err := m.store.Get(ctx, id)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}

	m.adopt(session)
	logger.Infof("Switched to session %s", id)
	return session.Data(), nil
}

func (m *SessionManager) flushLocked(ctx context.Context, view *model.SessionData) {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()
	if current == nil || view == nil {
		return
	}

	merged := mergeSession(current, view, time.Now())
	if len(merged.Messages) == 0 {
		return
	}
	if err := m.persistLocked(ctx, merged); err != nil {
		logger.Warnf("Failed to flush session %s before switching: %v", current.ID, err)
	}
}

// ApplyExternalID loads the session named by an externally supplied id. Each
// call bumps the sequence counter before its lookup; a lookup that finishes
// after a newer call started is discarded, so the latest id always wins. It
// returns the adopted snapshot, or nil when nothing changed.
func (m *SessionManager) ApplyExternalID(ctx context.Context, id string) (*model.SessionData, error) {
	seq := m.seq.Add(1)

	if id == "" || !m.Available() {
		return nil, nil
	}

	session, err := m.store.Get(ctx, id)
	if m.seq.Load() != seq {
		logger.Debugf("Discarding superseded lookup for session %s", id)
		return nil, nil
	}
	if errors.Is(err, storage.ErrSessionNotFound) {
		logger.Infof("External session %s not found, keeping current state", id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	// a newer id may have arrived while we waited for the write lock
	if m.seq.Load() != seq || id == m.CurrentID() {
		return nil, nil
	}

	m.adopt(session)
	logger.Infof("Loaded session %s from external id", id)
	return session.Data(), nil
}

// SaveCurrentSession persists data into the current session, creating one
// when none is loaded. A token that no longer names the current session makes
// the call a no-op.
func (m *SessionManager) SaveCurrentSession(ctx context.Context, data *model.SessionData, token *SessionToken) error {
	if !m.Available() || data == nil {
		return nil
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	current := m.current
	currentID := m.currentID
	m.mu.RUnlock()

	if token != nil && token.SessionID != currentID {
		logger.Debugf("Skipping stale save for session %q (current %q)", token.SessionID, currentID)
		return nil
	}

	now := time.Now()
	if current == nil {
		return m.createLocked(ctx, data, now)
	}

	return m.persistLocked(ctx, mergeSession(current, data, now))
}

func (m *SessionManager) createLocked(ctx context.Context, data *model.SessionData, now time.Time) error {
	session := &model.Session{
		ID:           uuid.New().String(),
		Title:        model.ExtractTitle(data.Messages),
		Messages:     data.Messages,
		XMLSnapshots: data.XMLSnapshots,
		DiagramXML:   data.DiagramXML,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if data.Thumbnail != nil {
		session.Thumbnail = *data.Thumbnail
	}
	if data.DiagramHistory != nil {
		session.DiagramHistory = data.DiagramHistory
	}

	if err := m.store.Save(ctx, session); err != nil {
		return err
	}

	evicted, err := m.store.EnforceLimit(ctx, m.maxSessions)
	if err != nil {
		logger.Warnf("Failed to enforce session limit: %v", err)
	} else if len(evicted) > 0 {
		logger.Infof("Evicted %d old session(s)", len(evicted))
	}

	m.adopt(session)
	logger.Infof("Created session %s", session.ID)

	if err := m.RefreshSessions(ctx); err != nil {
		logger.Warnf("Failed to refresh sessions: %v", err)
	}
	return nil
}

func (m *SessionManager) persistLocked(ctx context.Context, session *model.Session) error {
	if err := m.store.Save(ctx, session); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentID == session.ID {
		m.current = session
	}
	m.patchMetadata(session.Metadata())
	return nil
}

// patchMetadata moves the entry for md to the front of the list, which is
// ordered newest first. Callers hold m.mu.
func (m *SessionManager) patchMetadata(md model.SessionMetadata) {
	list := make([]model.SessionMetadata, 0, len(m.sessions)+1)
	list = append(list, md)
	for _, entry := range m.sessions {
		if entry.ID != md.ID {
			list = append(list, entry)
		}
	}
	m.sessions = list
}

func mergeSession(current *model.Session, data *model.SessionData, now time.Time) *model.Session {
	merged := current.Clone()
	merged.Messages = data.Messages
	merged.XMLSnapshots = data.XMLSnapshots
	merged.DiagramXML = data.DiagramXML
	if data.Thumbnail != nil {
		merged.Thumbnail = *data.Thumbnail
	}
	if data.DiagramHistory != nil {
		merged.DiagramHistory = data.DiagramHistory
	}
	merged.UpdatedAt = now

	if merged.Title == model.DefaultSessionTitle && len(merged.Messages) > 0 {
		merged.Title = model.ExtractTitle(merged.Messages)
	}
	return merged.Clone()
}

// DeleteSession removes id from the store and reports whether it was the
// current session, in which case the current state is cleared.
func (m *SessionManager) DeleteSession(ctx context.Context, id string) (bool, error) {
	if !m.Available() {
		return false, nil
	}

	m.writeMu.Lock()
	if err := m.store.Delete(ctx, id); err != nil {
		m.writeMu.Unlock()
		return false, err
	}

	m.mu.Lock()
	wasCurrent := m.currentID == id
	if wasCurrent {
		m.currentID = ""
		m.current = nil
	}
	m.mu.Unlock()
	m.writeMu.Unlock()

	if err := m.RefreshSessions(ctx); err != nil {
		logger.Warnf("Failed to refresh sessions after delete: %v", err)
	}

	logger.Infof("Deleted session %s (current: %v)", id, wasCurrent)
	return wasCurrent, nil
}

// ClearCurrentSession unloads the current session without touching the
// store; the next save creates a new one.
func (m *SessionManager) ClearCurrentSession() {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.currentID = ""
	m.current = nil
	m.mu.Unlock()
}

func (m *SessionManager) adopt(session *model.Session) {
	m.mu.Lock()
	m.currentID = session.ID
	m.current = session.Clone()
	m.mu.Unlock()
}
