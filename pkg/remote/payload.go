package remote

import (
	"time"

	"github.com/aretw0/notenest/pkg/core"
)

// Payload is the JSON body of POST /notes. Binary media is never sent:
// image and audio are always null.
type Payload struct {
	Title             string     `json:"title"`
	Type              core.Kind  `json:"type"`
	Color             core.Color `json:"color"`
	Content           any        `json:"content"`
	Category          *string    `json:"category"`
	IsPinned          bool       `json:"isPinned"`
	ReminderTimestamp *time.Time `json:"reminderTimestamp"`
	Drawing           *string    `json:"drawing"`
	Image             any        `json:"image"`
	Audio             any        `json:"audio"`
}

// CreateResponse is the 201 body.
type CreateResponse struct {
	Message string `json:"message"`
	NoteID  string `json:"noteId"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewPayload converts a note into the payload the sink accepts.
func NewPayload(n core.Note) Payload {
	rec := core.ToRecord(n)
	p := Payload{
		Title:             rec.Title,
		Type:              rec.Type,
		Color:             rec.Color,
		Content:           rec.Content,
		Category:          rec.Category,
		IsPinned:          rec.IsPinned,
		ReminderTimestamp: rec.ReminderTimestamp,
		Drawing:           rec.Drawing,
	}
	if p.Color == "" {
		p.Color = core.DefaultColor
	}
	return p
}
