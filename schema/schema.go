// Package schema declares typed field descriptors for Elasticsearch documents.
//
// A Schema maps field names to Field descriptors. Each descriptor carries the
// store-side type, the extra mapping attributes, and a validator that checks
// and normalizes values before they are written. Validation is a plain
// function call per field, so it composes and can be tested in isolation.
package schema

import (
	"fmt"
)

// ValidationError reports a document value that failed schema validation.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q (value %v): %s", e.Field, e.Value, e.Reason)
}

// Schema maps field names to their descriptors. The schema is closed: a
// document carrying a field that is not declared here fails validation.
type Schema map[string]Field

// Properties returns the mappings properties block for the schema,
// one {"type": ..., attrs...} object per field.
func (s Schema) Properties() map[string]any {
	properties := make(map[string]any, len(s))
	for name, field := range s {
		prop := map[string]any{"type": field.StoreType()}
		for attr, val := range field.Attrs() {
			prop[attr] = val
		}
		properties[name] = prop
	}
	return properties
}

// Validate checks body against the schema and returns the normalized document.
//
// Unknown fields are rejected, required fields must be present and non-null,
// and each present value is normalized by its field validator. The input map
// is not modified.
func (s Schema) Validate(body map[string]any) (map[string]any, error) {
	for name := range body {
		if _, ok := s[name]; !ok {
			return nil, &ValidationError{Field: name, Value: body[name], Reason: "field is not declared in the schema"}
		}
	}

	normalized := make(map[string]any, len(body))
	for name, field := range s {
		value, present := body[name]
		if !present || value == nil {
			if IsOptional(field) {
				continue
			}
			return nil, &ValidationError{Field: name, Reason: "required field is missing"}
		}

		v, err := field.Validate(value)
		if err != nil {
			return nil, &ValidationError{Field: name, Value: value, Reason: err.Error()}
		}
		normalized[name] = v
	}
	return normalized, nil
}
