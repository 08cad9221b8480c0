package ai

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrAnalyzer marks a failed analyzer call. Timeouts are reported the same way.
var ErrAnalyzer = errors.New("analyzer failed")

// AnalyzerError carries the scan that failed together with the cause.
type AnalyzerError struct {
	ScanID string
	Err    error
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("analyze scan %s: %v", e.ScanID, e.Err)
}

func (e *AnalyzerError) Unwrap() []error { return []error{ErrAnalyzer, e.Err} }
