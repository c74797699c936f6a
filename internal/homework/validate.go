package homework

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Keys of the status API payload.
const (
	keyHomeworks   = "homeworks"
	keyCurrentDate = "current_date"
	keyName        = "homework_name"
	keyStatus      = "status"
)

// WorkItem is one entry of the "homeworks" array. Only "homework_name" and
// "status" are interpreted; other keys are carried through untouched.
type WorkItem map[string]any

// Batch is a validated status API response.
type Batch struct {
	// Items holds the work items in API order; index 0 is the most recent.
	Items []WorkItem

	// CurrentDate is the server timestamp (seconds since epoch).
	CurrentDate int64
}

// Decode parses a JSON body into untyped values suitable for [Validate].
//
// Numbers are decoded as json.Number so that integer timestamps keep
// their exact value and fractional numbers can be told apart.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode response: unexpected data after top-level value")
	}
	return v, nil
}

// Validate checks the shape of a decoded status API response.
//
// Checks run in order and stop at the first failure:
//  1. the response is an object
//  2. it has a "homeworks" key
//  3. "homeworks" is an array
//  4. every element of "homeworks" is an object
//  5. "current_date" is an integer
//
// Items are returned in their original order.
func Validate(raw any) (Batch, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Batch{}, &TypeMismatchError{Field: "response", Want: "object", Got: jsonType(raw)}
	}

	homeworksRaw, ok := obj[keyHomeworks]
	if !ok {
		return Batch{}, &MissingKeyError{Object: "response", Keys: []string{keyHomeworks}}
	}

	list, ok := homeworksRaw.([]any)
	if !ok {
		return Batch{}, &TypeMismatchError{Field: keyHomeworks, Want: "array", Got: jsonType(homeworksRaw)}
	}

	items := make([]WorkItem, 0, len(list))
	for i, el := range list {
		item, ok := el.(map[string]any)
		if !ok {
			return Batch{}, &TypeMismatchError{
				Field: fmt.Sprintf("%s[%d]", keyHomeworks, i),
				Want:  "object",
				Got:   jsonType(el),
			}
		}
		items = append(items, WorkItem(item))
	}

	dateRaw, ok := obj[keyCurrentDate]
	if !ok {
		return Batch{}, &TypeMismatchError{Field: keyCurrentDate, Want: "integer", Got: "missing"}
	}
	currentDate, ok := asInteger(dateRaw)
	if !ok {
		return Batch{}, &TypeMismatchError{Field: keyCurrentDate, Want: "integer", Got: jsonType(dateRaw)}
	}

	return Batch{Items: items, CurrentDate: currentDate}, nil
}

// asInteger reports whether v holds an integral JSON number.
func asInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		// float64 values come from decoders without UseNumber; a float is
		// never accepted as an integer timestamp.
		return 0, false
	}
}
