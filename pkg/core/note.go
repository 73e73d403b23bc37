package core

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the variant of a note's content.
type Kind string

const (
	KindText    Kind = "text"
	KindList    Kind = "list"
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindDrawing Kind = "drawing"
)

// Color is one of the fixed palette entries a note can be tinted with.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorPurple Color = "purple"
	ColorPink   Color = "pink"
	ColorBlack  Color = "black"
	ColorWhite  Color = "white"

	// DefaultColor is applied when a note is saved without a color.
	DefaultColor = ColorBlue
)

// Palette lists every valid Color.
var Palette = []Color{ColorBlue, ColorYellow, ColorGreen, ColorRed, ColorPurple, ColorPink, ColorBlack, ColorWhite}

// Valid reports whether c belongs to the palette.
func (c Color) Valid() bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

// Content is the typed payload of a note. Each implementation is one case of
// the union; the note kind is always derived from it.
type Content interface {
	Kind() Kind
	isContent()
}

// Blob is binary media held by image and audio notes.
type Blob struct {
	MediaType string
	Data      []byte
}

// TextContent is free text.
type TextContent struct {
	Text string
}

// ListContent is an ordered checklist.
type ListContent struct {
	Items []string
}

// ImageContent carries an image blob.
type ImageContent struct {
	Blob Blob
}

// AudioContent carries an audio clip.
type AudioContent struct {
	Blob Blob
}

// DrawingContent carries opaque encoded image data (usually a data URL).
type DrawingContent struct {
	Data string
}

func (TextContent) Kind() Kind    { return KindText }
func (ListContent) Kind() Kind    { return KindList }
func (ImageContent) Kind() Kind   { return KindImage }
func (AudioContent) Kind() Kind   { return KindAudio }
func (DrawingContent) Kind() Kind { return KindDrawing }

func (TextContent) isContent()    {}
func (ListContent) isContent()    {}
func (ImageContent) isContent()   {}
func (AudioContent) isContent()   {}
func (DrawingContent) isContent() {}

// ListFromLines builds checklist content from newline separated input,
// dropping blank lines.
func ListFromLines(s string) ListContent {
	items := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, strings.TrimRight(line, "\r"))
	}
	return ListContent{Items: items}
}

// NewContent builds the content case for kind from raw text input.
// Text and drawing take the input verbatim; lists split it by line.
// Image and audio need binary data and must be built directly.
func NewContent(kind Kind, raw string) (Content, error) {
	switch kind {
	case "", KindText:
		return TextContent{Text: raw}, nil
	case KindList:
		return ListFromLines(raw), nil
	case KindDrawing:
		return DrawingContent{Data: raw}, nil
	case KindImage, KindAudio:
		return nil, fmt.Errorf("%w: %s content needs a blob", ErrValidation, kind)
	default:
		return nil, fmt.Errorf("%w: unknown note type %q", ErrValidation, kind)
	}
}

// Note is the sole persisted entity.
type Note struct {
	ID        int64
	RemoteID  string
	Title     string
	Content   Content
	Category  string
	Color     Color
	Pinned    bool
	Reminder  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Kind returns the kind of the note's content, text when unset.
func (n Note) Kind() Kind {
	if n.Content == nil {
		return KindText
	}
	return n.Content.Kind()
}

// SearchText returns the content as text when it is text-shaped.
func (n Note) SearchText() (string, bool) {
	if t, ok := n.Content.(TextContent); ok {
		return t.Text, true
	}
	return "", false
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (n Note) Clone() Note {
	out := n
	switch c := n.Content.(type) {
	case ListContent:
		items := make([]string, len(c.Items))
		copy(items, c.Items)
		out.Content = ListContent{Items: items}
	case ImageContent:
		out.Content = ImageContent{Blob: c.Blob.clone()}
	case AudioContent:
		out.Content = AudioContent{Blob: c.Blob.clone()}
	}
	if n.Reminder != nil {
		r := *n.Reminder
		out.Reminder = &r
	}
	return out
}

func (b Blob) clone() Blob {
	if b.Data == nil {
		return b
	}
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return Blob{MediaType: b.MediaType, Data: data}
}

// normalize applies defaults and reports invalid input. It performs no I/O.
func (n *Note) normalize() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if n.Content == nil {
		n.Content = TextContent{}
	}
	if l, ok := n.Content.(ListContent); ok && l.Items == nil {
		n.Content = ListContent{Items: []string{}}
	}
	if n.Color == "" {
		n.Color = DefaultColor
	}
	if !n.Color.Valid() {
		return fmt.Errorf("%w: unknown color %q", ErrValidation, n.Color)
	}
	n.Category = strings.TrimSpace(n.Category)
	if n.Reminder != nil {
		r := n.Reminder.UTC()
		n.Reminder = &r
	}
	return nil
}
