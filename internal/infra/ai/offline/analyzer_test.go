package offline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
)

func TestAnalyze_ProducesManualReviewFinding(t *testing.T) {
	raw, err := Client{}.Analyze(context.Background(), ai.AnalysisRequest{Modality: "ct"})
	require.NoError(t, err)

	res := ai.Normalize(raw)
	require.IsType(t, ai.Structured{}, res)

	f := scans.FindingFromResult(res, scans.RiskLow, time.Time{})
	assert.Equal(t, scans.RiskMedium, f.Risk)
	assert.Equal(t, scans.UnknownClassification, f.Classification)
	assert.Equal(t, []string{"Manual review required"}, f.Recommendations)
	assert.Contains(t, f.Explanation, "ct scan requires manual review")
}

func TestGenerate_NotConfigured(t *testing.T) {
	_, err := Client{}.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
