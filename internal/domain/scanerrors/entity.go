package scanerrors

import "time"

// Phase where the failure happened
type Phase string

const (
	PhaseAnalyze Phase = "analyze"
	PhasePersist Phase = "persist"
)

// ScanError represents a persisted analysis failure entry
type ScanError struct {
	ID          int64     `json:"id"`
	PatientID   string    `json:"patient_id"`
	ScanID      string    `json:"scan_id"`
	Phase       Phase     `json:"phase"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
