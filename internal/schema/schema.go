// Package schema implements structural validation for parsed LLM payloads.
// Every generation result is validated before the pipeline trusts it; a
// validation failure aborts the stage and is never retried, since it signals
// a prompt/model contract break rather than transient noise.
package schema

import (
	"fmt"
	"strconv"
)

// Type enumerates the JSON shapes a schema node can require.
type Type string

const (
	TypeObject Type = "object"
	TypeArray  Type = "array"
	TypeString Type = "string"
	TypeNumber Type = "number"
)

// Schema describes the required structure of one JSON node.
type Schema struct {
	Type       Type               // Required JSON type
	Properties map[string]*Schema // Object properties
	Required   []string           // Object properties that must be present
	Items      *Schema            // Array element schema
	ExactItems int                // If > 0, the array must have exactly this many elements
	Min        *float64           // Numeric lower bound, inclusive
	Max        *float64           // Numeric upper bound, inclusive
}

// ValidationError reports the first violating path and the reason.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed at %s: %s", e.Path, e.Reason)
}

// Bound is a convenience constructor for Min/Max pointers.
func Bound(v float64) *float64 {
	return &v
}

// Score01 returns a number schema constrained to the 0-100 score range.
func Score01() *Schema {
	return &Schema{Type: TypeNumber, Min: Bound(0), Max: Bound(100)}
}

// Validate checks data (as decoded by encoding/json into interface{} values)
// against the schema and returns a *ValidationError for the first violation.
func Validate(s *Schema, data any) error {
	return validate(s, data, "$")
}

func validate(s *Schema, data any, path string) error {
	if s == nil {
		return nil
	}

	switch s.Type {
	case TypeObject:
		obj, ok := data.(map[string]any)
		if !ok {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("expected object, got %s", typeName(data))}
		}
		for _, key := range s.Required {
			value, present := obj[key]
			if !present {
				return &ValidationError{Path: path + "." + key, Reason: "required property missing"}
			}
			// A null required value would bypass the property checks below,
			// including exact-cardinality constraints.
			if value == nil {
				return &ValidationError{Path: path + "." + key, Reason: "required property is null"}
			}
		}
		for key, propSchema := range s.Properties {
			value, present := obj[key]
			if !present || value == nil {
				// Optional properties may be absent or null; arrays default to
				// empty rather than fail.
				continue
			}
			if err := validate(propSchema, value, path+"."+key); err != nil {
				return err
			}
		}
		return nil

	case TypeArray:
		arr, ok := data.([]any)
		if !ok {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("expected array, got %s", typeName(data))}
		}
		if s.ExactItems > 0 && len(arr) != s.ExactItems {
			return &ValidationError{
				Path:   path,
				Reason: fmt.Sprintf("expected exactly %d items, got %d", s.ExactItems, len(arr)),
			}
		}
		for i, item := range arr {
			if err := validate(s.Items, item, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		return nil

	case TypeString:
		if _, ok := data.(string); !ok {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("expected string, got %s", typeName(data))}
		}
		return nil

	case TypeNumber:
		num, ok := data.(float64)
		if !ok {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("expected number, got %s", typeName(data))}
		}
		if s.Min != nil && num < *s.Min {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("value %v below minimum %v", num, *s.Min)}
		}
		if s.Max != nil && num > *s.Max {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("value %v above maximum %v", num, *s.Max)}
		}
		return nil

	default:
		return &ValidationError{Path: path, Reason: fmt.Sprintf("unknown schema type %q", s.Type)}
	}
}

func typeName(data any) string {
	switch data.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", data)
	}
}
