package homework

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TypeMismatchError reports a payload value whose JSON type is not the one
// the API contract promises.
type TypeMismatchError struct {
	// Field locates the value, e.g. "homeworks" or "homeworks[2]".
	Field string

	// Want is the expected JSON type.
	Want string

	// Got is the JSON type actually found, or "missing".
	Got string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Want, e.Got)
}

// MissingKeyError reports required keys absent from a JSON object.
type MissingKeyError struct {
	// Object names the JSON object that was checked.
	Object string

	// Keys lists the missing keys in lexical order.
	Keys []string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s is missing keys: %s", e.Object, strings.Join(e.Keys, ", "))
}

// UnknownStatusError reports a work item status outside the verdict table.
type UnknownStatusError struct {
	// Status is the offending value, rendered as text.
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown homework status %q", e.Status)
}

// jsonType names the JSON type of a decoded value for error messages.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
