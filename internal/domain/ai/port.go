package ai

import "context"

// AnalysisRequest describes one image to interpret.
type AnalysisRequest struct {
	ScanID   string
	ImageRef string
	Modality string
	Context  string
}

// Analyzer interprets a medical image and returns the raw model reply.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)
}

// Generator produces free text for a prompt (chat replies, topic checks, narratives).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
