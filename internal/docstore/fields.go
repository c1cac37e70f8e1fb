package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Fields holds the top-level values of a document.  Values written by
// callers may be any JSON encodable type; values read back have been
// through JSON, so times come back as RFC 3339 strings and numbers as
// float64.  Use the typed accessors instead of asserting directly.
type Fields map[string]any

// normalize round-trips f through JSON so that every implementation stores
// and returns identical value types.
func normalize(f Fields) (Fields, error) {
	b, err := encodeFields(f)
	if err != nil {
		return nil, err
	}
	return decodeFields(b)
}

func encodeFields(f Fields) ([]byte, error) {
	if f == nil {
		f = Fields{}
	}
	b, err := json.Marshal(map[string]any(f))
	if err != nil {
		return nil, fmt.Errorf("docstore: encode fields: %w", err)
	}
	return b, nil
}

func decodeFields(b []byte) (Fields, error) {
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("docstore: decode fields: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return Fields(out), nil
}

// merge returns a copy of base with patch applied on top.
func merge(base, patch Fields) Fields {
	out := make(Fields, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	}
	return v
}

// String returns the string value of key.
func (f Fields) String(key string) (string, bool) {
	s, ok := f[key].(string)
	return s, ok
}

// Int returns the integral value of key.  Non-integral numbers are
// rejected.
func (f Fields) Int(key string) (int64, bool) {
	switch t := f[key].(type) {
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	}
	return 0, false
}

// Float returns the numeric value of key.
func (f Fields) Float(key string) (float64, bool) {
	switch t := f[key].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	}
	return 0, false
}

// Bool returns the boolean value of key.
func (f Fields) Bool(key string) (bool, bool) {
	b, ok := f[key].(bool)
	return b, ok
}

// Time returns the timestamp stored at key.
func (f Fields) Time(key string) (time.Time, bool) {
	switch t := f[key].(type) {
	case time.Time:
		return t, true
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}

// valueString renders a scalar field value for equality filters.
func valueString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}
