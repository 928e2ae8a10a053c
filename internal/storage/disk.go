package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"drawflow-backend/internal/model"
	"drawflow-backend/pkg/logger"
)

// DiskStorage keeps one JSON file per session under sessions/ plus a
// sessions.json metadata index. Older versions stored messages separately
// under messages/; those are merged on read and folded in by MigrateLegacy.
type DiskStorage struct {
	dataDir    string
	legacyFile string
	mu         sync.RWMutex
	cache      map[string]*model.Session
	cacheSize  int
	index      map[string]model.SessionMetadata
}

func NewDiskStorage(dataDir string, cacheSize int, legacyFile string) *DiskStorage {
	return &DiskStorage{
		dataDir:    dataDir,
		legacyFile: legacyFile,
		cache:      make(map[string]*model.Session),
		cacheSize:  cacheSize,
		index:      make(map[string]model.SessionMetadata),
	}
}

func (d *DiskStorage) Init() error {
	if err := d.createDirectories(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.loadIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	d.warmCache()
	logger.Infof("Disk storage initialized at %s (%d sessions)", d.dataDir, len(d.index))
	return nil
}

func (d *DiskStorage) createDirectories() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, "sessions"),
		filepath.Join(d.dataDir, "backup"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "sessions.json")
}

func (d *DiskStorage) sessionPath(id string) string {
	return filepath.Join(d.dataDir, "sessions", id+".json")
}

func (d *DiskStorage) messagesPath(id string) string {
	return filepath.Join(d.dataDir, "messages", id+".json")
}

// loadIndex reads sessions.json, rebuilding it from the session files when
// it is missing or unreadable.
func (d *DiskStorage) loadIndex() error {
	data, err := os.ReadFile(d.indexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return d.rebuildIndex()
	}
	if err != nil {
		return err
	}

	var entries []model.SessionMetadata
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warnf("Session index is corrupt, rebuilding: %v", err)
		return d.rebuildIndex()
	}

	for _, md := range entries {
		d.index[md.ID] = md
	}
	return nil
}

func (d *DiskStorage) rebuildIndex() error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, "sessions"))
	if err != nil {
		return err
	}

	d.index = make(map[string]model.SessionMetadata)
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		id := strings.TrimSuffix(file.Name(), ".json")
		session, err := d.loadSessionFromFile(id)
		if err != nil {
			logger.Errorf("Failed to load session %s for index rebuild: %v", id, err)
			continue
		}
		d.index[id] = session.Metadata()
	}

	return d.saveIndex()
}

func (d *DiskStorage) warmCache() {
	list := d.sortedIndex()
	for _, md := range list {
		if len(d.cache) >= d.cacheSize {
			break
		}

		session, err := d.loadSessionFromFile(md.ID)
		if err != nil {
			logger.Errorf("Failed to load session %s: %v", md.ID, err)
			continue
		}
		d.cache[md.ID] = session
	}
}

func (d *DiskStorage) sortedIndex() []model.SessionMetadata {
	list := make([]model.SessionMetadata, 0, len(d.index))
	for _, md := range d.index {
		list = append(list, md)
	}
	sortByUpdated(list)
	return list
}

func (d *DiskStorage) loadSessionFromFile(id string) (*model.Session, error) {
	data, err := os.ReadFile(d.sessionPath(id))
	if err != nil {
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	if len(session.Messages) == 0 {
		messages, err := d.loadMessagesFromFile(id)
		if err != nil {
			logger.Errorf("Failed to load messages for session %s: %v", id, err)
		} else if len(messages) > 0 {
			session.Messages = messages
		}
	}

	return &session, nil
}

func (d *DiskStorage) loadMessagesFromFile(id string) ([]model.Message, error) {
	data, err := os.ReadFile(d.messagesPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func writeFileAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func (d *DiskStorage) saveIndex() error {
	return writeFileAtomic(d.indexPath(), d.sortedIndex())
}

func (d *DiskStorage) List(ctx context.Context) ([]model.SessionMetadata, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sortedIndex(), nil
}

func (d *DiskStorage) Get(ctx context.Context, id string) (*model.Session, error) {
	if err := validID(id); err != nil {
		return nil, ErrSessionNotFound
	}

	d.mu.RLock()
	if session, exists := d.cache[id]; exists {
		d.mu.RUnlock()
		return session.Clone(), nil
	}
	d.mu.RUnlock()

	session, err := d.loadSessionFromFile(id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		if errors.Is(err, ErrInvalidData) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.mu.Lock()
	d.cache[id] = session
	d.evictCache()
	d.mu.Unlock()

	return session.Clone(), nil
}

func (d *DiskStorage) Save(ctx context.Context, session *model.Session) error {
	if err := validID(session.ID); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := session.Clone()
	if err := writeFileAtomic(d.sessionPath(stored.ID), stored); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	// the record now carries its own messages
	if err := os.Remove(d.messagesPath(stored.ID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("Failed to remove legacy messages for session %s: %v", stored.ID, err)
	}

	d.index[stored.ID] = stored.Metadata()
	if err := d.saveIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[stored.ID] = stored
	d.evictCache()

	return nil
}

func (d *DiskStorage) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, path := range []string{d.sessionPath(id), d.messagesPath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	delete(d.cache, id)
	if _, exists := d.index[id]; !exists {
		return nil
	}
	delete(d.index, id)

	if err := d.saveIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

// MigrateLegacy folds split messages/ files into their session records and
// then imports the legacy single-conversation file.
func (d *DiskStorage) MigrateLegacy(ctx context.Context) error {
	if err := d.mergeSplitMessages(ctx); err != nil {
		return err
	}
	return importLegacy(ctx, d, d.legacyFile)
}

func (d *DiskStorage) mergeSplitMessages(ctx context.Context) error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, "messages"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	merged := 0
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(file.Name(), ".json")

		session, err := d.loadSessionFromFile(id)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warnf("Dropping orphaned messages file for session %s", id)
			if err := os.Remove(d.messagesPath(id)); err != nil {
				return fmt.Errorf("%w: %v", ErrFileOperation, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}

		if err := d.Save(ctx, session); err != nil {
			return err
		}
		merged++
	}

	if merged > 0 {
		logger.Infof("Merged split message files into %d session(s)", merged)
	}
	return nil
}

func (d *DiskStorage) EnforceLimit(ctx context.Context, max int) ([]string, error) {
	return enforceLimit(ctx, d, max)
}

func (d *DiskStorage) evictCache() {
	if len(d.cache) <= d.cacheSize {
		return
	}

	type cacheEntry struct {
		id        string
		updatedAt time.Time
	}

	var entries []cacheEntry
	for id, session := range d.cache {
		entries = append(entries, cacheEntry{
			id:        id,
			updatedAt: session.UpdatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].updatedAt.Before(entries[j].updatedAt)
	})

	toEvict := len(d.cache) - d.cacheSize
	for i := 0; i < toEvict; i++ {
		delete(d.cache, entries[i].id)
	}
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.Session)
	return nil
}

// Backup copies the session files and index into backup/backup_<unix>.
func (d *DiskStorage) Backup() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	backupDir := filepath.Join(d.dataDir, "backup", fmt.Sprintf("backup_%d", time.Now().UnixNano()))

	for _, dir := range []string{"sessions", "messages"} {
		srcDir := filepath.Join(d.dataDir, dir)
		if _, err := os.Stat(srcDir); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		dstDir := filepath.Join(backupDir, dir)
		if err := os.MkdirAll(dstDir, 0755); err != nil {
			return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
		}

		if err := copyDir(srcDir, dstDir); err != nil {
			return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	if err := copyFile(d.indexPath(), filepath.Join(backupDir, "sessions.json")); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", backupDir)
	return backupDir, nil
}

func copyDir(src, dst string) error {
	files, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, file.Name()), filepath.Join(dst, file.Name())); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0644)
}
