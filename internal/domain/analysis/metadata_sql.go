package analysis

import (
	"database/sql/driver"
	"fmt"
)

// Value stores metadata as the text returned by StoredText.
func (m Metadata) Value() (driver.Value, error) {
	return m.StoredText()
}

// Scan decodes a JSON text blob written by Value, keeping key order.
func (m *Metadata) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("metadata: unsupported column type %T", src)
	}
	out, err := ParseMetadata(b)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	*m = out
	return nil
}
