package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"drawflow-backend/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial sessions table
// 1 - index on sessions.updated_at for listing and eviction
const currentSchemaVersion = 1

// SQLiteStorage stores sessions in a single SQLite database in WAL mode.
type SQLiteStorage struct {
	db         *sql.DB
	legacyFile string
}

// OpenSQLite creates or opens the database at path and applies pragmas and
// migrations. It is safe to call on an existing database.
func OpenSQLite(path, legacyFile string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorageInit, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect to database: %v", ErrStorageInit, err)
	}

	// SQLite has a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	return &SQLiteStorage{db: db, legacyFile: legacyFile}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) List(ctx context.Context) ([]model.SessionMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at, message_count, has_diagram, thumbnail
		FROM sessions
		ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	list := []model.SessionMetadata{}
	for rows.Next() {
		var (
			md               model.SessionMetadata
			created, updated int64
			hasDiagram       int
		)
		if err := rows.Scan(&md.ID, &md.Title, &created, &updated, &md.MessageCount, &hasDiagram, &md.Thumbnail); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		md.CreatedAt = time.UnixMilli(created)
		md.UpdatedAt = time.UnixMilli(updated)
		md.HasDiagram = hasDiagram != 0
		list = append(list, md)
	}
	return list, rows.Err()
}

func (s *SQLiteStorage) Get(ctx context.Context, id string) (*model.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &session, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, session *model.Session) error {
	if err := validID(session.ID); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	md := session.Metadata()
	hasDiagram := 0
	if md.HasDiagram {
		hasDiagram = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at, message_count, has_diagram, thumbnail, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			message_count = excluded.message_count,
			has_diagram = excluded.has_diagram,
			thumbnail = excluded.thumbnail,
			data = excluded.data`,
		md.ID, md.Title, md.CreatedAt.UnixMilli(), md.UpdatedAt.UnixMilli(),
		md.MessageCount, hasDiagram, md.Thumbnail, string(data))
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStorage) MigrateLegacy(ctx context.Context) error {
	return importLegacy(ctx, s, s.legacyFile)
}

// EnforceLimit evicts in one transaction so a concurrent Save cannot be
// counted twice.
func (s *SQLiteStorage) EnforceLimit(ctx context.Context, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin eviction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM sessions
		ORDER BY updated_at DESC, id ASC
		LIMIT -1 OFFSET ?`, max)
	if err != nil {
		return nil, fmt.Errorf("select evictions: %w", err)
	}

	var evicted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan eviction: %w", err)
		}
		evicted = append(evicted, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range evicted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("evict session %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit eviction: %w", err)
	}
	return evicted, nil
}

func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
