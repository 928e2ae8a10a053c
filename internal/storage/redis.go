package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"drawflow-backend/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps each session as a JSON string, metadata in one hash
// and a sorted set of ids scored by UpdatedAt for ordering and eviction.
type RedisStorage struct {
	client     *redis.Client
	prefix     string
	legacyFile string
}

// NewRedisStorage connects to redisURL and verifies the connection.
func NewRedisStorage(ctx context.Context, redisURL, prefix, legacyFile string) (*RedisStorage, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("%w: redis url is required", ErrStoreUnavailable)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse redis url: %v", ErrStorageInit, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to connect to Redis: %v", ErrStoreUnavailable, err)
	}

	if prefix == "" {
		prefix = "drawflow"
	}
	return &RedisStorage{client: client, prefix: prefix, legacyFile: legacyFile}, nil
}

func (r *RedisStorage) sessionKey(id string) string { return r.prefix + ":session:" + id }
func (r *RedisStorage) metaKey() string             { return r.prefix + ":sessions:meta" }
func (r *RedisStorage) orderKey() string            { return r.prefix + ":sessions:updated" }

func (r *RedisStorage) List(ctx context.Context) ([]model.SessionMetadata, error) {
	ids, err := r.client.ZRevRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		return []model.SessionMetadata{}, nil
	}

	raw, err := r.client.HMGet(ctx, r.metaKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session metadata: %w", err)
	}

	list := make([]model.SessionMetadata, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			// order entry without metadata, left by an interrupted delete
			continue
		}
		var md model.SessionMetadata
		if err := json.Unmarshal([]byte(s), &md); err != nil {
			return nil, fmt.Errorf("%w: metadata for %s: %v", ErrInvalidData, ids[i], err)
		}
		list = append(list, md)
	}
	sortByUpdated(list)
	return list, nil
}

func (r *RedisStorage) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &session, nil
}

func (r *RedisStorage) Save(ctx context.Context, session *model.Session) error {
	if err := validID(session.ID); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	md := session.Metadata()
	meta, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(session.ID), data, 0)
		pipe.HSet(ctx, r.metaKey(), session.ID, meta)
		pipe.ZAdd(ctx, r.orderKey(), redis.Z{
			Score:  float64(md.UpdatedAt.UnixMilli()),
			Member: session.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(id))
		pipe.HDel(ctx, r.metaKey(), id)
		pipe.ZRem(ctx, r.orderKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (r *RedisStorage) MigrateLegacy(ctx context.Context) error {
	return importLegacy(ctx, r, r.legacyFile)
}

func (r *RedisStorage) EnforceLimit(ctx context.Context, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}

	ids, err := r.client.ZRevRange(ctx, r.orderKey(), int64(max), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to select evictions: %w", err)
	}

	for _, id := range ids {
		if err := r.Delete(ctx, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// Ping tests the Redis connection.
func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
