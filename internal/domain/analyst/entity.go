package analyst

import "time"

// AnalysisID identifier type
type AnalysisID string

// Analysis is one raw analyzer reply kept for auditing next to its normalized form
type Analysis struct {
	ID         AnalysisID `json:"id"`
	PatientID  string     `json:"patient_id"`
	ScanID     string     `json:"scan_id"`
	ImageRef   string     `json:"image_ref"`
	Raw        string     `json:"raw"`
	Result     string     `json:"result"` // normalized JSON
	Structured bool       `json:"structured"`
	CreatedAt  time.Time  `json:"created_at"`
}
