// Package anonymizer converts text plus an entity list into tokenized
// text and an entity map, and inverts that rewrite later. Placeholder
// grammar: <PII_{TYPE}_{n}> with a 1-based decimal ordinal.
package anonymizer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/veil-labs/veil/internal/entity"
)

// ErrMalformedMapping is returned when an imported entity map is not
// well-formed JSON. Import never mutates existing state on failure.
var ErrMalformedMapping = errors.New("malformed entity map JSON")

// EntityMap maps a category tag to the ordered distinct literal values
// seen for that category. A value's 1-based position is its ordinal, the
// durable identity encoded in token placeholders. The map is a derived
// artifact: rebuilt from scratch on every Anonymize call, never merged
// with a prior map.
type EntityMap map[entity.Type][]string

// Ordinal returns the 1-based ordinal for value within the category,
// appending it first if absent. Lookup is by exact string equality.
func (m EntityMap) Ordinal(t entity.Type, value string) int {
	for i, existing := range m[t] {
		if existing == value {
			return i + 1
		}
	}
	m[t] = append(m[t], value)
	return len(m[t])
}

// Lookup returns the value at the given 1-based ordinal, or false when
// the category is unknown or the ordinal is out of range.
func (m EntityMap) Lookup(t entity.Type, ordinal int) (string, bool) {
	values, ok := m[t]
	if !ok {
		return "", false
	}
	idx := ordinal - 1
	if idx < 0 || idx >= len(values) {
		return "", false
	}
	return values[idx], true
}

// MarshalJSON is the export format: a JSON object of category tag to
// array of strings, array order = ordinal order.
// (The default map marshalling already produces exactly this; the method
// exists to pin the contract.)
func (m EntityMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[entity.Type][]string(m))
}

// ParseEntityMap imports an entity map from JSON. Malformed JSON yields
// ErrMalformedMapping. Import is otherwise schema-lenient: any
// well-formed object is accepted, non-array values and non-string array
// elements are dropped rather than rejected.
func ParseEntityMap(data []byte) (EntityMap, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMapping, err)
	}

	m := EntityMap{}
	for tag, v := range raw {
		values, ok := v.([]interface{})
		if !ok {
			continue
		}
		for _, item := range values {
			if s, ok := item.(string); ok {
				m[entity.Type(tag)] = append(m[entity.Type(tag)], s)
			}
		}
	}
	return m, nil
}
