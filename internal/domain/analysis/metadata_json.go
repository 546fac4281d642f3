package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ErrNotObject is returned when JSON metadata is valid but not an object.
var ErrNotObject = errors.New("metadata: not a JSON object")

// ParseMetadata decodes a JSON object keeping its key order. Nested objects
// decode to Metadata, arrays to []any and numbers to json.Number.
func ParseMetadata(data []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Metadata{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Metadata{}, fmt.Errorf("metadata: unexpected data after JSON value")
	}
	m, ok := v.(Metadata)
	if !ok {
		return Metadata{}, ErrNotObject
	}
	return m, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		m := Metadata{values: map[string]any{}}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("metadata: object key %v is not a string", kt)
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			m.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		out := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("metadata: unexpected delimiter %v", d)
}

// MarshalJSON writes the fields in order, compactly.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return encoder{}.object(nil, m)
}

// UnmarshalJSON replaces m with the decoded object, keeping key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*m = Metadata{}
		return nil
	}
	out, err := ParseMetadata(data)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// StoredText renders m the way it is persisted: ", " and ": " separators,
// non-ASCII escaped as \uXXXX. Searches match against this text, so a term
// like `"sentiment": "positive"` finds the record.
func (m Metadata) StoredText() (string, error) {
	b, err := encoder{stored: true}.object(nil, m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type encoder struct {
	stored bool
}

func (e encoder) separators() (item, key string) {
	if e.stored {
		return ", ", ": "
	}
	return ",", ":"
}

func (e encoder) object(b []byte, m Metadata) ([]byte, error) {
	item, sep := e.separators()
	b = append(b, '{')
	for i, k := range m.keys {
		if i > 0 {
			b = append(b, item...)
		}
		b = e.str(b, k)
		b = append(b, sep...)
		var err error
		if b, err = e.value(b, m.values[k]); err != nil {
			return nil, err
		}
	}
	return append(b, '}'), nil
}

func (e encoder) value(b []byte, v any) ([]byte, error) {
	item, _ := e.separators()
	switch t := v.(type) {
	case nil:
		return append(b, "null"...), nil
	case bool:
		return strconv.AppendBool(b, t), nil
	case string:
		return e.str(b, t), nil
	case json.Number:
		if t == "" {
			return append(b, '0'), nil
		}
		return append(b, t...), nil
	case float64:
		return e.float(b, t)
	case float32:
		return e.float(b, float64(t))
	case int:
		return strconv.AppendInt(b, int64(t), 10), nil
	case int64:
		return strconv.AppendInt(b, t, 10), nil
	case []string:
		b = append(b, '[')
		for i, s := range t {
			if i > 0 {
				b = append(b, item...)
			}
			b = e.str(b, s)
		}
		return append(b, ']'), nil
	case []any:
		b = append(b, '[')
		for i, el := range t {
			if i > 0 {
				b = append(b, item...)
			}
			var err error
			if b, err = e.value(b, el); err != nil {
				return nil, err
			}
		}
		return append(b, ']'), nil
	case Metadata:
		return e.object(b, t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var m Metadata
		for _, k := range keys {
			m.Set(k, t[k])
		}
		return e.object(b, m)
	}

	// anything else goes through encoding/json and is re-read so the
	// separators and escaping stay consistent
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	generic, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	return e.value(b, generic)
}

func (e encoder) float(b []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("metadata: unsupported float value %v", f)
	}
	if !e.stored {
		raw, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		return append(b, raw...), nil
	}
	// float repr: exponent form outside [1e-4, 1e16), and always a fraction part
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.AppendFloat(b, f, 'e', -1, 64), nil
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return append(b, s...), nil
}

func (e encoder) str(b []byte, s string) []byte {
	if !e.stored {
		raw, _ := json.Marshal(s)
		return append(b, raw...)
	}
	b = append(b, '"')
	for _, r := range s {
		switch r {
		case '"':
			b = append(b, `\"`...)
		case '\\':
			b = append(b, `\\`...)
		case '\n':
			b = append(b, `\n`...)
		case '\r':
			b = append(b, `\r`...)
		case '\t':
			b = append(b, `\t`...)
		case '\b':
			b = append(b, `\b`...)
		case '\f':
			b = append(b, `\f`...)
		default:
			switch {
			case r >= 0x20 && r < 0x7f:
				b = append(b, byte(r))
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				b = fmt.Appendf(b, `\u%04x\u%04x`, hi, lo)
			default:
				b = fmt.Appendf(b, `\u%04x`, r)
			}
		}
	}
	return append(b, '"')
}
