package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrItemNotFound is returned by Table.Get for unknown note ids.
var ErrItemNotFound = errors.New("item not found")

// Table is the key-value store behind the sink, keyed by noteId.
type Table interface {
	// Put stores the item unconditionally.
	Put(ctx context.Context, item Item) error
	// Get returns the item with noteID.
	Get(ctx context.Context, noteID string) (Item, error)
	Close() error
}

// Table drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverDynamoDB = "dynamodb"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

// OpenTable connects the table selected by cfg.Driver and verifies it is
// reachable.
func OpenTable(ctx context.Context, cfg TableConfig, logger *zap.Logger) (Table, error) {
	var (
		table Table
		err   error
	)
	switch cfg.Driver {
	case "", DriverMemory:
		logger.Warn("using in-memory table, notes are lost on restart")
		return NewMemoryTable(), nil
	case DriverRedis:
		table, err = NewRedisTable(ctx, cfg.Redis)
	case DriverDynamoDB:
		table, err = NewDynamoTable(ctx, cfg.DynamoDB)
	case DriverMySQL:
		table, err = NewMySQLTable(cfg.MySQL)
	case DriverMongo:
		table, err = NewMongoTable(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown table driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s table: %w", cfg.Driver, err)
	}
	logger.Info("table ready", zap.String("driver", cfg.Driver))
	return table, nil
}

// MemoryTable keeps items in process memory.
type MemoryTable struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewMemoryTable creates an empty table.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{items: make(map[string]Item)}
}

func (t *MemoryTable) Put(ctx context.Context, item Item) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[item.NoteID] = item
	return nil
}

func (t *MemoryTable) Get(ctx context.Context, noteID string) (Item, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[noteID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

// Len returns the number of stored items.
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *MemoryTable) Close() error { return nil }
