package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Record is the serialized form of a Note. It is what adapters write to disk
// and what the remote payload is derived from.
type Record struct {
	ID                int64       `json:"id"                yaml:"id"`
	RemoteID          string      `json:"remoteId,omitempty" yaml:"remoteId,omitempty"`
	Title             string      `json:"title"             yaml:"title"`
	Type              Kind        `json:"type"              yaml:"type"`
	Content           any         `json:"content"           yaml:"content"`
	Drawing           *string     `json:"drawing"           yaml:"drawing"`
	Image             *BlobRecord `json:"image"             yaml:"image"`
	Audio             *BlobRecord `json:"audio"             yaml:"audio"`
	Category          *string     `json:"category"          yaml:"category"`
	Color             Color       `json:"color"             yaml:"color"`
	IsPinned          bool        `json:"isPinned"          yaml:"isPinned"`
	ReminderTimestamp *time.Time  `json:"reminderTimestamp" yaml:"reminderTimestamp"`
	CreatedAt         time.Time   `json:"createdAt"         yaml:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"         yaml:"updatedAt"`
}

// BlobRecord is a Blob with base64 encoded data.
type BlobRecord struct {
	MediaType string `json:"mediaType" yaml:"mediaType"`
	Data      string `json:"data"      yaml:"data"`
}

// ToRecord converts n to its serialized form.
func ToRecord(n Note) Record {
	r := Record{
		ID:                n.ID,
		RemoteID:          n.RemoteID,
		Title:             n.Title,
		Type:              n.Kind(),
		Color:             n.Color,
		IsPinned:          n.Pinned,
		ReminderTimestamp: n.Reminder,
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
	}
	if n.Category != "" {
		c := n.Category
		r.Category = &c
	}

	switch c := n.Content.(type) {
	case nil:
		r.Content = ""
	case TextContent:
		r.Content = c.Text
	case ListContent:
		items := c.Items
		if items == nil {
			items = []string{}
		}
		r.Content = items
	case DrawingContent:
		d := c.Data
		r.Drawing = &d
	case ImageContent:
		r.Image = toBlobRecord(c.Blob)
	case AudioContent:
		r.Audio = toBlobRecord(c.Blob)
	}
	return r
}

func toBlobRecord(b Blob) *BlobRecord {
	return &BlobRecord{MediaType: b.MediaType, Data: base64.StdEncoding.EncodeToString(b.Data)}
}

// Note converts a decoded record back into a Note, enforcing that the
// content shape matches the declared type.
func (r Record) Note() (Note, error) {
	n := Note{
		ID:        r.ID,
		RemoteID:  r.RemoteID,
		Title:     r.Title,
		Color:     r.Color,
		Pinned:    r.IsPinned,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Category != nil {
		n.Category = *r.Category
	}
	if r.ReminderTimestamp != nil {
		t := *r.ReminderTimestamp
		n.Reminder = &t
	}

	content, err := r.content()
	if err != nil {
		return Note{}, fmt.Errorf("record %d: %w", r.ID, err)
	}
	n.Content = content
	return n, nil
}

func (r Record) content() (Content, error) {
	switch r.Type {
	case "", KindText:
		switch v := r.Content.(type) {
		case nil:
			return TextContent{}, nil
		case string:
			return TextContent{Text: v}, nil
		}
		return nil, fmt.Errorf("%w: text content must be a string, got %T", ErrValidation, r.Content)
	case KindList:
		items, err := stringItems(r.Content)
		if err != nil {
			return nil, err
		}
		return ListContent{Items: items}, nil
	case KindDrawing:
		if r.Drawing != nil {
			return DrawingContent{Data: *r.Drawing}, nil
		}
		if s, ok := r.Content.(string); ok {
			return DrawingContent{Data: s}, nil
		}
		return DrawingContent{}, nil
	case KindImage:
		b, err := fromBlobRecord(r.Image)
		if err != nil {
			return nil, err
		}
		return ImageContent{Blob: b}, nil
	case KindAudio:
		b, err := fromBlobRecord(r.Audio)
		if err != nil {
			return nil, err
		}
		return AudioContent{Blob: b}, nil
	}
	return nil, fmt.Errorf("%w: unknown note type %q", ErrValidation, r.Type)
}

func stringItems(v any) ([]string, error) {
	switch items := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, items...), nil
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list item must be a string, got %T", ErrValidation, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: list content must be a sequence, got %T", ErrValidation, v)
}

func fromBlobRecord(b *BlobRecord) (Blob, error) {
	if b == nil {
		return Blob{}, nil
	}
	if b.Data == "" {
		return Blob{MediaType: b.MediaType}, nil
	}
	data, err := base64.StdEncoding.DecodeString(b.Data)
	if err != nil {
		return Blob{}, fmt.Errorf("%w: blob data: %v", ErrValidation, err)
	}
	return Blob{MediaType: b.MediaType, Data: data}, nil
}

// MarshalJSON encodes the note in its record form.
func (n Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToRecord(n))
}

// UnmarshalJSON decodes a record and checks its content shape.
func (n *Note) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	decoded, err := r.Note()
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}
