package scans

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("scan not found")
	ErrInvalidModality  = errors.New("invalid modality")
	ErrInvalidRiskLevel = errors.New("invalid risk level")
	ErrInvalidFileType  = errors.New("invalid file type")
)

// ID tipe untuk Scan
type ScanID string

// Modality enum
type Modality string

const (
	ModalityXRay       Modality = "xray"
	ModalityCT         Modality = "ct"
	ModalityMRI        Modality = "mri"
	ModalityUltrasound Modality = "ultrasound"
	ModalityMammogram  Modality = "mammography"
	ModalityPET        Modality = "pet"
	ModalityOther      Modality = "other"
)

// ParseModality accepts the usual spellings ("X-Ray", "x_ray", "CT scan").
func ParseModality(s string) (Modality, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "xray", "radiograph":
		return ModalityXRay, nil
	case "ct", "ctscan":
		return ModalityCT, nil
	case "mri":
		return ModalityMRI, nil
	case "ultrasound", "usg", "sonography":
		return ModalityUltrasound, nil
	case "mammography", "mammogram":
		return ModalityMammogram, nil
	case "pet", "petscan":
		return ModalityPET, nil
	case "other":
		return ModalityOther, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidModality, s)
}

// State enum, always derived from the Finding
type State string

const (
	StateNotAnalyzed State = "not_analyzed"
	StateAnalyzed    State = "analyzed"
)

// Aggregate Root: Scan
type Scan struct {
	ID          ScanID    `json:"id"`
	PatientID   string    `json:"patient_id"`
	DoctorID    string    `json:"doctor_id,omitempty"`
	Modality    Modality  `json:"modality"`
	ImageRef    string    `json:"image_ref"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Finding     *Finding  `json:"finding,omitempty"`
}

// State is analyzed iff the scan holds a Finding.
func (s *Scan) State() State {
	if s.Finding != nil {
		return StateAnalyzed
	}
	return StateNotAnalyzed
}

func (s *Scan) Analyzed() bool { return s.Finding != nil }

// Apply replaces the finding wholesale.
func (s *Scan) Apply(f *Finding) { s.Finding = f }
