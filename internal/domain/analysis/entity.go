package analysis

import (
	"encoding/json"
	"time"
)

// Reserved metadata keys.
const (
	KeyTitle      = "title"
	KeyTopics     = "topics"
	KeySentiment  = "sentiment"
	KeyKeywords   = "keywords"
	KeyConfidence = "confidence"
)

// Metadata is the open mapping of derived fields attached to an analysis.
// Model-supplied keys outside the reserved set are kept as-is, in the order
// the model wrote them. The zero value is an empty mapping ready to use.
type Metadata struct {
	keys   []string
	values map[string]any
}

// Field is one metadata entry.
type Field struct {
	Key   string
	Value any
}

// NewMetadata builds metadata holding fields in the given order.
func NewMetadata(fields ...Field) Metadata {
	var m Metadata
	for _, f := range fields {
		m.Set(f.Key, f.Value)
	}
	return m
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores v under key. A new key goes last; an existing key keeps its place.
func (m *Metadata) Set(key string, v any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key, keeping the order of the rest.
func (m *Metadata) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m Metadata) Len() int { return len(m.keys) }

// Title returns the title field when it is a string.
func (m Metadata) Title() string {
	s, _ := m.values[KeyTitle].(string)
	return s
}

// Sentiment returns the sentiment field when it is a string.
func (m Metadata) Sentiment() string {
	s, _ := m.values[KeySentiment].(string)
	return s
}

// Topics returns the string elements of the topics field.
func (m Metadata) Topics() []string { return stringSlice(m.values[KeyTopics]) }

// Keywords returns the string elements of the keywords field.
func (m Metadata) Keywords() []string { return stringSlice(m.values[KeyKeywords]) }

// Confidence returns the confidence score and whether it was present.
func (m Metadata) Confidence() (float64, bool) {
	switch v := m.values[KeyConfidence].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Clone returns a shallow copy that can be changed without touching m.
func (m Metadata) Clone() Metadata {
	out := Metadata{
		keys:   make([]string, len(m.keys), len(m.keys)+2),
		values: make(map[string]any, len(m.keys)+2),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Record is a persisted analysis. Records are append-only.
type Record struct {
	ID        int64     `json:"id"`
	TextInput string    `json:"text_input"`
	Summary   string    `json:"summary"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchItem is the outcome of one text in a batch. Exactly one of Record and Err is set.
type BatchItem struct {
	Index  int
	Record *Record
	Err    error
}

// BatchResult holds one item per input text, in input order.
type BatchResult []BatchItem

// Query selects records for search. Topic takes precedence over Keyword.
type Query struct {
	Topic   string
	Keyword string
}
