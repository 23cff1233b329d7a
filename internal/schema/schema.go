// Package schema defines the typed configuration shapes stored in item
// revisions. Each watcher produces exactly one of these types and each
// auditor decodes the stored JSON back into it.
package schema

import (
	"encoding/json"
	"fmt"
)

// Decode unmarshals a stored item config into the given schema type.
func Decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty item config")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode item config: %w", err)
	}
	return nil
}

// Encode marshals a schema type for storage in an item revision.
func Encode(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode item config: %w", err)
	}
	return data, nil
}
