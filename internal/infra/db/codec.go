// Package db holds helpers shared by the SQL repositories.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
)

// FindingColumns is the denormalized form of a Finding: the whole value as
// JSON plus the columns reports filter on.
type FindingColumns struct {
	JSON           sql.NullString
	Risk           sql.NullString
	Confidence     sql.NullFloat64
	Classification sql.NullString
	AnalyzedAt     sql.NullTime
}

// EncodeFinding returns all-NULL columns for a nil finding.
func EncodeFinding(f *scans.Finding) (FindingColumns, error) {
	if f == nil {
		return FindingColumns{}, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return FindingColumns{}, fmt.Errorf("marshal finding: %w", err)
	}
	c := FindingColumns{
		JSON:           sql.NullString{String: string(b), Valid: true},
		Risk:           sql.NullString{String: string(f.Risk), Valid: f.Risk != ""},
		Classification: sql.NullString{String: f.Classification, Valid: true},
		AnalyzedAt:     sql.NullTime{Time: f.AnalyzedAt, Valid: !f.AnalyzedAt.IsZero()},
	}
	if f.Confidence != nil {
		c.Confidence = sql.NullFloat64{Float64: *f.Confidence, Valid: true}
	}
	return c, nil
}

// DecodeFinding returns nil when the scan has not been analyzed.
func DecodeFinding(raw sql.NullString) (*scans.Finding, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	var f scans.Finding
	if err := json.Unmarshal([]byte(raw.String), &f); err != nil {
		return nil, fmt.Errorf("decode finding: %w", err)
	}
	if f.Abnormalities == nil {
		f.Abnormalities = []scans.Abnormality{}
	}
	return &f, nil
}

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// ValidJSON keeps s when it is valid JSON, otherwise wraps it as {"raw": s}.
// Empty input becomes "{}".
func ValidJSON(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	if json.Valid([]byte(s)) {
		return s
	}
	b, _ := json.Marshal(map[string]string{"raw": s})
	return string(b)
}
