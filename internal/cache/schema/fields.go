package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedPayload is returned when a stored JSON payload cannot be parsed
// into its typed form.
var ErrMalformedPayload = errors.New("malformed payload")

// Fields is a decoded JSON object whose values are looked up by one canonical
// key and an optional alias. A JSON null is treated the same as a missing key.
//
// When both spellings are present the alias wins, since that is the name
// external writers use.
type Fields map[string]json.RawMessage

// DecodeFields decodes raw as a JSON object.
func DecodeFields(raw []byte) (Fields, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("expected JSON object, got null")
	}
	return Fields(fields), nil
}

func (f Fields) lookup(canonical, alias string) (string, any, bool, error) {
	key := canonical
	raw, ok := f[canonical]
	if alias != "" {
		if aliased, found := f[alias]; found {
			key, raw, ok = alias, aliased, true
		}
	}
	if !ok {
		return key, nil, false, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return key, nil, false, fmt.Errorf("%s: %w", key, err)
	}
	if value == nil {
		return key, nil, false, nil
	}
	return key, value, true, nil
}

// Int returns an integral number. Fractional numbers and non-numbers are errors.
func (f Fields) Int(canonical, alias string) (*int64, error) {
	key, value, ok, err := f.lookup(canonical, alias)
	if err != nil || !ok {
		return nil, err
	}
	num, isNum := value.(json.Number)
	if !isNum {
		return nil, fmt.Errorf("%s: expected integer, got %s", key, jsonKind(value))
	}
	if n, err := num.Int64(); err == nil {
		return &n, nil
	}
	fl, err := num.Float64()
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if err != nil || fl != math.Trunc(fl) || fl >= math.MaxInt64 || fl < math.MinInt64 {
		return nil, fmt.Errorf("%s: expected integer, got %s", key, num.String())
	}
	n := int64(fl)
	return &n, nil
}

// Float returns any JSON number.
func (f Fields) Float(canonical, alias string) (*float64, error) {
	key, value, ok, err := f.lookup(canonical, alias)
	if err != nil || !ok {
		return nil, err
	}
	num, isNum := value.(json.Number)
	if !isNum {
		return nil, fmt.Errorf("%s: expected number, got %s", key, jsonKind(value))
	}
	fl, err := num.Float64()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &fl, nil
}

// String returns a JSON string.
func (f Fields) String(canonical, alias string) (*string, error) {
	key, value, ok, err := f.lookup(canonical, alias)
	if err != nil || !ok {
		return nil, err
	}
	s, isString := value.(string)
	if !isString {
		return nil, fmt.Errorf("%s: expected string, got %s", key, jsonKind(value))
	}
	return &s, nil
}

// Bool returns a JSON boolean.
func (f Fields) Bool(canonical, alias string) (*bool, error) {
	key, value, ok, err := f.lookup(canonical, alias)
	if err != nil || !ok {
		return nil, err
	}
	b, isBool := value.(bool)
	if !isBool {
		return nil, fmt.Errorf("%s: expected boolean, got %s", key, jsonKind(value))
	}
	return &b, nil
}

// Strings returns a JSON array of strings. A present but empty array yields a
// non-nil empty slice so callers can tell it apart from a missing key.
func (f Fields) Strings(canonical, alias string) ([]string, error) {
	key, value, ok, err := f.lookup(canonical, alias)
	if err != nil || !ok {
		return nil, err
	}
	items, isArray := value.([]any)
	if !isArray {
		return nil, fmt.Errorf("%s: expected array, got %s", key, jsonKind(value))
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, isString := item.(string)
		if !isString {
			return nil, fmt.Errorf("%s[%d]: expected string, got %s", key, i, jsonKind(item))
		}
		out = append(out, s)
	}
	return out, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
