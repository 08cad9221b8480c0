package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Structured(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\"risk_level\": \"HIGH\", \"confidence_score\": 0.82}\n```\nThanks."

	res := Normalize(raw)

	s, ok := res.(Structured)
	require.True(t, ok, "expected Structured, got %T", res)
	assert.Equal(t, "HIGH", s.Fields["risk_level"])
	assert.Equal(t, 0.82, s.Fields["confidence_score"])
}

func TestNormalize_Fallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no braces", "The image looks normal."},
		{"only opening brace", "result: {risk: high"},
		{"only closing brace", "risk: high}"},
		{"reversed braces", "} nothing here {"},
		{"invalid interior", "{risk: high, confidence: ???}"},
		{"plain words inside braces", "{ just words }"},
		{"null object", "{null}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.raw)
			fb, ok := res.(Fallback)
			require.True(t, ok, "expected Fallback, got %T", res)
			assert.Equal(t, tt.raw, fb.Response)
		})
	}
}

func TestNormalize_OutermostSpan(t *testing.T) {
	raw := `{"a": 1} trailing junk {b}`

	// the span {"a": 1} trailing junk {b} is not valid JSON, so the
	// first minimal object must not be picked up on its own
	res := Normalize(raw)

	fb, ok := res.(Fallback)
	require.True(t, ok)
	assert.Equal(t, raw, fb.Response)
}

func TestNormalize_NestedBraces(t *testing.T) {
	raw := `prefix {"outer": {"inner": {"deep": true}}, "list": [{"x": 1}]} suffix`

	res := Normalize(raw)

	s, ok := res.(Structured)
	require.True(t, ok)
	outer, ok := s.Fields["outer"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, outer, "inner")
	assert.Len(t, s.List("list"), 1)
}

func TestNormalize_NeverPanics(t *testing.T) {
	inputs := []string{
		"{", "}", "{{{{", "}}}}", "{}", "{\"a\":", "\x00{\x00}", "{\"a\": \"\\u00\"}",
		"{\"a\": 1}}", "{{\"a\": 1}", string([]byte{0xff, '{', 0xfe, '}'}),
	}
	for i, in := range inputs {
		t.Run(fmt.Sprintf("input_%d", i), func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.NotNil(t, Normalize(in))
			})
		})
	}
}

func TestStructured_Accessors(t *testing.T) {
	s := Normalize(`{
		"disease_classification": "  Pneumonia ",
		"blank": "   ",
		"confidence_score": "85%",
		"plain": "0.4",
		"bad": "high",
		"num": 3,
		"flag": true,
		"recommendations": ["Rest", "", 4, "Follow up"],
		"single": "only one"
	}`).(Structured)

	str, ok := s.String("disease_classification")
	assert.True(t, ok)
	assert.Equal(t, "Pneumonia", str)

	_, ok = s.String("blank")
	assert.False(t, ok)

	str, ok = s.String("num")
	assert.True(t, ok)
	assert.Equal(t, "3", str)

	str, _ = s.String("flag")
	assert.Equal(t, "true", str)

	f, ok := s.Float("confidence_score")
	assert.True(t, ok)
	assert.InDelta(t, 0.85, f, 1e-9)

	f, ok = s.Float("plain")
	assert.True(t, ok)
	assert.InDelta(t, 0.4, f, 1e-9)

	_, ok = s.Float("bad")
	assert.False(t, ok)

	_, ok = s.Float("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"Rest", "Follow up"}, s.Strings("recommendations"))
	assert.Equal(t, []any{"only one"}, s.List("single"))
	assert.Nil(t, s.List("missing"))
}

func TestResult_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Fallback{Response: "plain text"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response": "plain text"}`, string(b))

	b, err = json.Marshal(Structured{Fields: map[string]any{"risk_level": "LOW"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"risk_level": "LOW"}`, string(b))

	b, err = json.Marshal(Structured{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}

func TestAnalyzerError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&AnalyzerError{ScanID: "scan-1", Err: cause})

	assert.ErrorIs(t, err, ErrAnalyzer)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "scan-1")

	var ae *AnalyzerError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "scan-1", ae.ScanID)
}
