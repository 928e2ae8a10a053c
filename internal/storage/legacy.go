package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"drawflow-backend/internal/model"
	"drawflow-backend/pkg/logger"

	"github.com/google/uuid"
)

// legacyConversation is the single-conversation file written before
// sessions existed.
type legacyConversation struct {
	Messages     []model.Message     `json:"messages"`
	XMLSnapshots []model.XMLSnapshot `json:"xml_snapshots"`
	DiagramXML   string              `json:"diagram_xml"`
}

const migratedSuffix = ".migrated"

// importLegacy turns the legacy conversation at path into one session of s
// and renames the file so the import runs once. A missing file is a no-op.
func importLegacy(ctx context.Context, s Store, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var legacy legacyConversation
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("%w: legacy conversation: %v", ErrInvalidData, err)
	}

	if len(legacy.Messages) > 0 {
		now := time.Now()
		session := &model.Session{
			ID:           uuid.NewString(),
			Title:        model.ExtractTitle(legacy.Messages),
			Messages:     legacy.Messages,
			XMLSnapshots: legacy.XMLSnapshots,
			DiagramXML:   legacy.DiagramXML,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.Save(ctx, session); err != nil {
			return fmt.Errorf("import legacy conversation: %w", err)
		}
		logger.Infof("storage: imported legacy conversation as session %s (%d messages)", session.ID, len(session.Messages))
	}

	if err := os.Rename(path, path+migratedSuffix); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

// sortByUpdated orders metadata newest first, breaking ties by id.
func sortByUpdated(list []model.SessionMetadata) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}

// validID rejects ids that cannot safely name a file or key.
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\:`) || id == "." || id == ".." {
		return fmt.Errorf("%w: session id %q", ErrInvalidData, id)
	}
	return nil
}

// enforceLimit is the shared EnforceLimit for stores without a cheaper way.
func enforceLimit(ctx context.Context, s Store, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) <= max {
		return nil, nil
	}

	var evicted []string
	for _, md := range list[max:] {
		if err := s.Delete(ctx, md.ID); err != nil {
			return evicted, err
		}
		evicted = append(evicted, md.ID)
	}
	logger.Infof("storage: evicted %d session(s) beyond limit %d", len(evicted), max)
	return evicted, nil
}
