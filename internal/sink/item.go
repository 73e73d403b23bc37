package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/notenest/pkg/remote"
)

// timestampLayout renders millisecond ISO-8601 UTC timestamps.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Item is one stored note: the accepted payload plus the server-assigned
// identity and timestamps.
type Item struct {
	NoteID string `json:"noteId"`
	remote.Payload
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// NewItem stamps a payload with its identity and creation time.
func NewItem(noteID string, p remote.Payload, now time.Time) Item {
	ts := now.UTC().Format(timestampLayout)
	return Item{NoteID: noteID, Payload: p, CreatedAt: ts, UpdatedAt: ts}
}

// Fields flattens the item into a generic document with the same field names
// as its JSON form. Document stores use it so every table keeps one shape.
func (i Item) Fields() (map[string]any, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// itemFromFields is the inverse of Fields.
func itemFromFields(fields map[string]any) (Item, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return Item{}, err
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return Item{}, fmt.Errorf("decode item: %w", err)
	}
	return item, nil
}
