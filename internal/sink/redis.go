package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTable stores one JSON value per <prefix><noteId> key.
type RedisTable struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisTable creates a Redis client and verifies connectivity.
func NewRedisTable(ctx context.Context, cfg RedisConfig) (*RedisTable, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisTable{rdb: rdb, prefix: cfg.Prefix}, nil
}

func (t *RedisTable) key(noteID string) string { return t.prefix + noteID }

func (t *RedisTable) Put(ctx context.Context, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	return t.rdb.Set(ctx, t.key(item.NoteID), data, 0).Err()
}

func (t *RedisTable) Get(ctx context.Context, noteID string) (Item, error) {
	data, err := t.rdb.Get(ctx, t.key(noteID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return Item{}, fmt.Errorf("decode item %s: %w", noteID, err)
	}
	return item, nil
}

func (t *RedisTable) Close() error { return t.rdb.Close() }
