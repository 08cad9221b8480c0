package analysis

import (
	"fmt"

	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
)

// Status of one item in a batch
type Status string

const (
	StatusAnalyzed Status = "analyzed"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusDeferred Status = "deferred"
)

// Request controls one EnsureAnalyzed call.
type Request struct {
	Force bool
	// Limit caps dispatched items; zero means no cap.
	Limit          int
	PatientContext string
}

type Outcome struct {
	ScanID scans.ScanID    `json:"scan_id"`
	Status Status          `json:"status"`
	Risk   scans.RiskLevel `json:"risk_level,omitempty"`
	Reason string          `json:"reason,omitempty"`
	Err    error           `json:"-"`
}

// BatchResult enumerates every input item exactly once.
type BatchResult struct {
	Analyzed int       `json:"analyzed"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Deferred int       `json:"deferred"`
	Summary  string    `json:"summary"`
	Items    []Outcome `json:"items"`
}

func newBatchResult(items []Outcome) BatchResult {
	b := BatchResult{Items: items}
	for _, it := range items {
		switch it.Status {
		case StatusAnalyzed:
			b.Analyzed++
		case StatusSkipped:
			b.Skipped++
		case StatusFailed:
			b.Failed++
		case StatusDeferred:
			b.Deferred++
		}
	}
	b.Summary = fmt.Sprintf("%d succeeded, %d failed", b.Analyzed, b.Failed)
	return b
}

// Failures returns the failed outcomes.
func (b BatchResult) Failures() []Outcome {
	var out []Outcome
	for _, it := range b.Items {
		if it.Status == StatusFailed {
			out = append(out, it)
		}
	}
	return out
}
