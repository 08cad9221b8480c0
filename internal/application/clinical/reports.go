package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/domain/reports"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/infra/ai/prompt"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

const defaultPendingLimit = 50

type GenerateReportCommand struct {
	Doctor    application.Principal
	PatientID string
	// ScanID is optional; when set the scan must belong to the patient.
	ScanID     scans.ScanID
	ReportType string
	Age        int
	Sex        string
}

// GenerateReport drafts a report with the generator and stores it as pending.
// Unlike the JSON features a failed call is an error: an empty draft would
// end up in the review queue.
func (s *Service) GenerateReport(ctx context.Context, cmd GenerateReportCommand) (*reports.Report, error) {
	var (
		scan *scans.Scan
		err  error
	)
	if cmd.ScanID != "" {
		scan, err = s.Scans.Get(ctx, cmd.PatientID, cmd.ScanID)
		if err != nil {
			return nil, err
		}
	}

	info := prompt.ScanInfo{}
	findings := ""
	if scan != nil {
		info = scanInfo(scan)
		findings = findingsText(scan)
	}
	p := prompt.MedicalReport(prompt.ReportPatient{ID: cmd.PatientID, Age: cmd.Age, Sex: cmd.Sex}, info, findings)
	content, err := s.text(ctx, FeatureReport, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	rep := &reports.Report{
		ID:          reports.ReportID(uuid.NewString()),
		PatientID:   cmd.PatientID,
		ScanID:      string(cmd.ScanID),
		DoctorID:    cmd.Doctor.Subject,
		ReportType:  strings.TrimSpace(cmd.ReportType),
		Content:     content,
		Status:      reports.StatusPending,
		GeneratedAt: s.now(),
	}
	if rep.ReportType == "" {
		rep.ReportType = reports.DefaultReportType
	}
	// draft tetap disimpan walau client sudah putus
	if err := s.Reports.Save(context.WithoutCancel(ctx), rep); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	s.log().Info("medical report drafted",
		logging.String("report_id", string(rep.ID)),
		logging.String("patient_id", rep.PatientID),
		logging.String("doctor_id", rep.DoctorID),
	)
	return rep, nil
}

type ValidateCommand struct {
	Doctor               application.Principal
	ReportID             reports.ReportID
	Status               string
	Notes                string
	Diagnosis            string
	RecommendedTreatment string
	MedicineSuggestions  string
}

// ValidateReport records a doctor's review. A reviewed report may be
// reviewed again; the latest review wins.
func (s *Service) ValidateReport(ctx context.Context, cmd ValidateCommand) (*reports.Report, error) {
	status, err := reports.ParseReviewStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	rep, err := s.Reports.Get(ctx, cmd.ReportID)
	if err != nil {
		return nil, err
	}
	rep.Apply(reports.Review{
		DoctorID:             cmd.Doctor.Subject,
		Notes:                cmd.Notes,
		Diagnosis:            cmd.Diagnosis,
		RecommendedTreatment: cmd.RecommendedTreatment,
		MedicineSuggestions:  cmd.MedicineSuggestions,
		Status:               status,
	}, s.now())
	if err := s.Reports.Update(ctx, rep); err != nil {
		return nil, err
	}
	s.log().Info("medical report reviewed",
		logging.String("report_id", string(rep.ID)),
		logging.String("status", string(rep.Status)),
		logging.String("doctor_id", rep.DoctorID),
	)
	return rep, nil
}

// PendingReport is a queue row with its age.
type PendingReport struct {
	*reports.Report
	DaysPending int `json:"days_pending"`
}

// PendingReports lists the review queue newest first.
func (s *Service) PendingReports(ctx context.Context, offset, limit int) ([]PendingReport, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	list, err := s.Reports.ListPending(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]PendingReport, 0, len(list))
	for _, r := range list {
		out = append(out, PendingReport{Report: r, DaysPending: r.DaysPending(now)})
	}
	return out, nil
}

func (s *Service) PatientReports(ctx context.Context, patientID string, limit int) ([]*reports.Report, error) {
	list, err := s.Reports.ListByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*reports.Report{}
	}
	return list, nil
}

func findingsText(s *scans.Scan) string {
	f := s.Finding
	if f == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Classification: %s; Risk Level: %s", f.Classification, f.Risk)
	if f.Confidence != nil {
		fmt.Fprintf(&b, "; Confidence: %.2f", *f.Confidence)
	}
	if len(f.Abnormalities) > 0 {
		abn := make([]string, 0, len(f.Abnormalities))
		for _, a := range f.Abnormalities {
			abn = append(abn, describe(a))
		}
		b.WriteString("; Abnormalities: " + strings.Join(abn, ", "))
	}
	if f.Explanation != "" {
		b.WriteString("; Explanation: " + f.Explanation)
	}
	return b.String()
}
