package storage

import (
	"context"
	"sync"

	"drawflow-backend/internal/model"
)

type MemoryStorage struct {
	sessions   map[string]*model.Session
	legacyFile string
	mu         sync.RWMutex
}

func NewMemoryStorage(legacyFile string) *MemoryStorage {
	return &MemoryStorage{
		sessions:   make(map[string]*model.Session),
		legacyFile: legacyFile,
	}
}

func (m *MemoryStorage) List(ctx context.Context) ([]model.SessionMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]model.SessionMetadata, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s.Metadata())
	}
	sortByUpdated(list)
	return list, nil
}

func (m *MemoryStorage) Get(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStorage) Save(ctx context.Context, session *model.Session) error {
	if err := validID(session.ID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStorage) MigrateLegacy(ctx context.Context) error {
	return importLegacy(ctx, m, m.legacyFile)
}

func (m *MemoryStorage) EnforceLimit(ctx context.Context, max int) ([]string, error) {
	return enforceLimit(ctx, m, max)
}

func (m *MemoryStorage) Close() error {
	return nil
}
