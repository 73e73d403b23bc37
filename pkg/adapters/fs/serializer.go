package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/notenest/pkg/core"
)

// Serializer defines how a note record is written to and read from a file.
type Serializer interface {
	// Ext is the file extension, dot included.
	Ext() string
	// Marshal converts the record to bytes.
	Marshal(rec core.Record) ([]byte, error)
	// Unmarshal reads a record from data.
	Unmarshal(data []byte) (core.Record, error)
}

// DefaultSerializers returns every supported serializer keyed by extension.
func DefaultSerializers(strict bool) map[string]Serializer {
	return map[string]Serializer{
		".json": NewJSONSerializer(strict),
		".yaml": NewYAMLSerializer(strict),
	}
}

// SerializerFor returns the serializer for a format name ("json" or "yaml").
func SerializerFor(format string, strict bool) (Serializer, error) {
	switch format {
	case "", "json":
		return NewJSONSerializer(strict), nil
	case "yaml", "yml":
		return NewYAMLSerializer(strict), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// --- JSON Serializer ---

// JSONSerializer handles reading and writing JSON records.
type JSONSerializer struct {
	// Strict rejects fields that are not part of the record.
	Strict bool
}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer(strict bool) *JSONSerializer {
	return &JSONSerializer{Strict: strict}
}

func (s *JSONSerializer) Ext() string { return ".json" }

func (s *JSONSerializer) Marshal(rec core.Record) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

func (s *JSONSerializer) Unmarshal(data []byte) (core.Record, error) {
	var rec core.Record
	decoder := json.NewDecoder(bytes.NewReader(data))
	if s.Strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(&rec); err != nil {
		return core.Record{}, fmt.Errorf("invalid json: %w", err)
	}
	return rec, nil
}

// --- YAML Serializer ---

// YAMLSerializer handles reading and writing YAML records.
type YAMLSerializer struct {
	// Strict rejects fields that are not part of the record.
	Strict bool
}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer(strict bool) *YAMLSerializer {
	return &YAMLSerializer{Strict: strict}
}

func (s *YAMLSerializer) Ext() string { return ".yaml" }

func (s *YAMLSerializer) Marshal(rec core.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *YAMLSerializer) Unmarshal(data []byte) (core.Record, error) {
	var rec core.Record
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(s.Strict)
	if err := decoder.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Record{}, fmt.Errorf("invalid yaml: empty document")
		}
		return core.Record{}, fmt.Errorf("invalid yaml: %w", err)
	}
	return rec, nil
}
