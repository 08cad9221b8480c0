// Package offline stands in for the model when no API key is configured, so
// uploads and reports keep working in development.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
)

var ErrNotConfigured = errors.New("ai model not configured")

type Client struct{}

// manualReview follows the analyzer schema so the finding is stored with
// default tier and a note for the radiologist.
type manualReview struct {
	Description     string   `json:"description"`
	Abnormalities   []any    `json:"abnormalities"`
	Classification  string   `json:"disease_classification"`
	Confidence      float64  `json:"confidence_score"`
	RiskLevel       string   `json:"risk_level"`
	Explanation     string   `json:"explanation"`
	Recommendations []string `json:"recommendations"`
}

func (Client) Analyze(_ context.Context, req ai.AnalysisRequest) (string, error) {
	b, err := json.Marshal(manualReview{
		Description:     "AI analysis unavailable",
		Abnormalities:   []any{},
		Classification:  "Unknown",
		RiskLevel:       "MEDIUM",
		Explanation:     fmt.Sprintf("No model is configured; %s scan requires manual review by a radiologist.", req.Modality),
		Recommendations: []string{"Manual review required"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal manual review: %w", err)
	}
	return string(b), nil
}

// Generate always fails; callers degrade to their fallbacks.
func (Client) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
