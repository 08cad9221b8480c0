package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("report not found")
	ErrInvalidStatus = errors.New("invalid report status")
)

type ReportID string

// Status of a report in the doctor review flow
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
)

const DefaultReportType = "AI Generated"

// ParseReviewStatus accepts the two outcomes of a review. A report cannot be
// put back to pending.
func ParseReviewStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusValidated:
		return StatusValidated, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Report is an AI drafted medical report waiting for, or carrying, a doctor's review.
type Report struct {
	ID                   ReportID   `json:"id"`
	PatientID            string     `json:"patient_id"`
	ScanID               string     `json:"scan_id,omitempty"`
	DoctorID             string     `json:"doctor_id,omitempty"`
	ReportType           string     `json:"report_type"`
	Content              string     `json:"ai_generated_content"`
	DoctorNotes          string     `json:"doctor_notes,omitempty"`
	Diagnosis            string     `json:"diagnosis,omitempty"`
	RecommendedTreatment string     `json:"recommended_treatment,omitempty"`
	MedicineSuggestions  string     `json:"medicine_suggestions,omitempty"`
	Status               Status     `json:"status"`
	GeneratedAt          time.Time  `json:"generated_at"`
	ValidatedAt          *time.Time `json:"validated_at,omitempty"`
}

// Review is a doctor's decision on a report.
type Review struct {
	DoctorID             string
	Notes                string
	Diagnosis            string
	RecommendedTreatment string
	MedicineSuggestions  string
	Status               Status
}

// Apply copies the review onto the report and stamps it.
func (r *Report) Apply(rv Review, at time.Time) {
	r.DoctorID = rv.DoctorID
	r.DoctorNotes = strings.TrimSpace(rv.Notes)
	r.Diagnosis = strings.TrimSpace(rv.Diagnosis)
	r.RecommendedTreatment = strings.TrimSpace(rv.RecommendedTreatment)
	r.MedicineSuggestions = strings.TrimSpace(rv.MedicineSuggestions)
	r.Status = rv.Status
	r.ValidatedAt = &at
}

// DaysPending is the number of whole days since generation.
func (r *Report) DaysPending(now time.Time) int {
	if now.Before(r.GeneratedAt) {
		return 0
	}
	return int(now.Sub(r.GeneratedAt) / (24 * time.Hour))
}
