package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// noteRow is the MySQL row. The full item is kept as a JSON document next to
// a few queryable columns.
type noteRow struct {
	NoteID    string `gorm:"primaryKey;size:36"`
	Title     string `gorm:"size:512"`
	Type      string `gorm:"size:16;index"`
	Document  string `gorm:"type:longtext"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (noteRow) TableName() string { return "notes" }

// MySQLTable stores items through gorm.
type MySQLTable struct {
	db *gorm.DB
}

// NewMySQLTable opens the database and migrates the notes table.
func NewMySQLTable(cfg MySQLConfig) (*MySQLTable, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               cfg.DSN,
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.AutoMigrate(&noteRow{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &MySQLTable{db: db}, nil
}

func (t *MySQLTable) Put(ctx context.Context, item Item) error {
	doc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	row := noteRow{
		NoteID:    item.NoteID,
		Title:     item.Title,
		Type:      string(item.Type),
		Document:  string(doc),
		CreatedAt: parseTimestamp(item.CreatedAt),
		UpdatedAt: parseTimestamp(item.UpdatedAt),
	}
	return t.db.WithContext(ctx).Save(&row).Error
}

func (t *MySQLTable) Get(ctx context.Context, noteID string) (Item, error) {
	var row noteRow
	err := t.db.WithContext(ctx).First(&row, "note_id = ?", noteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	var item Item
	if err := json.Unmarshal([]byte(row.Document), &item); err != nil {
		return Item{}, fmt.Errorf("decode item %s: %w", noteID, err)
	}
	return item, nil
}

func (t *MySQLTable) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseTimestamp(s string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Now().UTC()
	}
	return ts
}
