package scans

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
)

// RiskLevel enum
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// DefaultRiskLevel dipakai kalau model tidak kasih tier yang valid
const DefaultRiskLevel = RiskMedium

// UnknownClassification is the label for findings without a classification.
const UnknownClassification = "Unknown"

// ParseRiskLevel normalizes model and client spellings of a tier.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSpace(strings.TrimSuffix(key, "risk"))
	switch key {
	case "low", "minimal", "none", "normal":
		return RiskLow, true
	case "medium", "moderate", "intermediate", "mid":
		return RiskMedium, true
	case "high", "severe", "critical", "urgent":
		return RiskHigh, true
	}
	return "", false
}

// Rank orders tiers for the dominance rule. Unknown values rank below LOW.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return 0
}

func (r RiskLevel) Valid() bool { return r.Rank() > 0 }

func (r *RiskLevel) UnmarshalText(b []byte) error {
	lvl, ok := ParseRiskLevel(string(b))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRiskLevel, string(b))
	}
	*r = lvl
	return nil
}

// Abnormality value object. Tags are open vocabulary.
type Abnormality struct {
	Type        string `json:"type,omitempty"`
	Location    string `json:"location,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

// Finding is the structured result of analyzing one Scan.
type Finding struct {
	Description     string        `json:"description"`
	Abnormalities   []Abnormality `json:"abnormalities"`
	Classification  string        `json:"disease_classification"`
	Confidence      *float64      `json:"confidence_score,omitempty"`
	Risk            RiskLevel     `json:"risk_level"`
	Explanation     string        `json:"explanation"`
	Recommendations []string      `json:"recommendations,omitempty"`
	AnalyzedAt      time.Time     `json:"analyzed_at"`
}

// ClampConfidence forces a score into [0, 1]; NaN becomes 0.
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// FindingFromResult maps a normalized reply onto a Finding, filling defaults:
// classification "Unknown", confidence 0.0, tier def, no abnormalities and an
// empty explanation. A Fallback keeps the raw text as the explanation.
func FindingFromResult(res ai.Result, def RiskLevel, now time.Time) *Finding {
	if !def.Valid() {
		def = DefaultRiskLevel
	}
	zero := 0.0
	f := &Finding{
		Abnormalities:  []Abnormality{},
		Classification: UnknownClassification,
		Confidence:     &zero,
		Risk:           def,
		AnalyzedAt:     now,
	}

	switch r := res.(type) {
	case ai.Fallback:
		f.Explanation = strings.TrimSpace(r.Response)
	case ai.Structured:
		f.Description, _ = r.String("description")
		f.Explanation, _ = r.String("explanation")
		if c, ok := r.String("disease_classification"); ok && !strings.EqualFold(c, UnknownClassification) {
			f.Classification = c
		}
		if v, ok := r.Float("confidence_score"); ok {
			c := ClampConfidence(v)
			f.Confidence = &c
		}
		if s, ok := r.String("risk_level"); ok {
			if lvl, ok := ParseRiskLevel(s); ok {
				f.Risk = lvl
			}
		}
		f.Abnormalities = abnormalitiesFrom(r.List("abnormalities"))
		f.Recommendations = r.Strings("recommendations")
	}
	return f
}

func abnormalitiesFrom(items []any) []Abnormality {
	out := make([]Abnormality, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, Abnormality{Description: v})
			}
		case map[string]any:
			a := Abnormality{
				Type:        firstString(v, "type", "name", "finding"),
				Location:    firstString(v, "location", "region"),
				Severity:    firstString(v, "severity"),
				Description: firstString(v, "description", "details"),
			}
			if a != (Abnormality{}) {
				out = append(out, a)
			}
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
