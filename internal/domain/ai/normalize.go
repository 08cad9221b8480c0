package ai

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Result is the typed form of a model reply: either Structured or Fallback.
type Result interface {
	isResult()
}

// Structured holds the JSON object found in a reply.
type Structured struct {
	Fields map[string]any
}

// Fallback wraps a reply that carried no parseable object.
type Fallback struct {
	Response string
}

func (Structured) isResult() {}
func (Fallback) isResult()   {}

// MarshalJSON keeps the stored shape flat: the object itself, or {"response": text}.
func (s Structured) MarshalJSON() ([]byte, error) {
	if s.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Fields)
}

func (f Fallback) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"response": f.Response})
}

// Normalize extracts the span from the first '{' to the last '}' of raw and
// parses it as a JSON object. Any other outcome yields a Fallback holding the
// whole text. It never fails.
func Normalize(raw string) Result {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Fallback{Response: raw}
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil || fields == nil {
		return Fallback{Response: raw}
	}
	return Structured{Fields: fields}
}

// String returns the trimmed string at key; numbers and bools are formatted.
func (s Structured) String(key string) (string, bool) {
	v, ok := s.Fields[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// Float returns the number at key. Numeric strings such as "0.8" or "85%" are accepted.
func (s Structured) Float(key string) (float64, bool) {
	v, ok := s.Fields[key]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		str := strings.TrimSpace(t)
		pct := strings.HasSuffix(str, "%")
		str = strings.TrimSuffix(str, "%")
		n, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return 0, false
		}
		if pct {
			n /= 100
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// List returns the array at key. A single non-array value is returned as a one-element list.
func (s Structured) List(key string) []any {
	v, ok := s.Fields[key]
	if !ok || v == nil {
		return nil
	}
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

// Strings returns the non-empty string members of the array at key.
func (s Structured) Strings(key string) []string {
	var out []string
	for _, item := range s.List(key) {
		if str, ok := item.(string); ok {
			if str = strings.TrimSpace(str); str != "" {
				out = append(out, str)
			}
		}
	}
	return out
}
