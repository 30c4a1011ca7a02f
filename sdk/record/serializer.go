package record

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// Entry is the stored form of a record: the payload and the key it was
// written for.
type Entry struct {
	Key     int    `json:"key"`
	Payload []byte `json:"payload"`
}

// EntrySerializer defines how to serialize and deserialize record entries
type EntrySerializer interface {
	Serialize(entry *Entry) ([]byte, error)
	Deserialize(data []byte) (*Entry, error)
}

// JSONSerializer is a simple JSON-based serializer for entries
type JSONSerializer struct{}

// Serialize converts an entry to JSON
func (s *JSONSerializer) Serialize(entry *Entry) ([]byte, error) {
	return json.Marshal(entry)
}

// Deserialize converts JSON to an entry
func (s *JSONSerializer) Deserialize(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SnappySerializer wraps another serializer and compresses its output
// with snappy block encoding.
type SnappySerializer struct {
	Inner EntrySerializer
}

// Serialize encodes the entry with the inner serializer, then compresses it
func (s *SnappySerializer) Serialize(entry *Entry) ([]byte, error) {
	data, err := s.Inner.Serialize(entry)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

// Deserialize decompresses data and decodes it with the inner serializer
func (s *SnappySerializer) Deserialize(data []byte) (*Entry, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress entry: %w", err)
	}
	return s.Inner.Deserialize(raw)
}
