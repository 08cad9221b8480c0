// Package clinical holds the doctor and patient assistant features built on
// the text generator: disease classification, medicine suggestions, risk
// assessment, health summaries and AI drafted reports.
package clinical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/application/analysis"
	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/domain/reports"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/infra/ai/prompt"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

const (
	FeatureClassify  = "classify_disease"
	FeatureMedicines = "suggest_medicines"
	FeatureRisk      = "assess_risk"
	FeatureSummary   = "health_summary"
	FeatureReport    = "medical_report"

	ShapeStructured = "structured"
	ShapeFallback   = "fallback"
	ShapeDegraded   = "degraded"

	recentWindow = 5

	IncompleteDiagnosis = "Analysis incomplete"
	DefaultSymptoms     = "Symptoms based on scan findings and detected abnormalities"
	DefaultFollowUp     = "Consult with a healthcare provider immediately"
	DefaultDisclaimer   = "Medicine suggestion unavailable. Please consult a registered healthcare provider in Bangladesh."
	MedicineDisclaimer  = "These are general suggestions only. Always consult a registered healthcare provider in Bangladesh before taking any medicine."
	SummaryUnavailable  = "Health summary is temporarily unavailable. Please review your reports with your doctor."
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrClassificationRequired = errors.New("disease classification required")
	ErrGenerationUnavailable  = errors.New("report generation unavailable")
)

// Recorder counts replies per feature and shape. metrics.Manager implements it.
type Recorder interface {
	ClinicalReply(feature, shape string)
}

// Analyzer is the part of analysis.Orchestrator the service needs.
type Analyzer interface {
	EnsureAnalyzed(ctx context.Context, items []*scans.Scan, req analysis.Request) analysis.BatchResult
}

// Service is safe for concurrent use.
type Service struct {
	Generator ai.Generator
	Scans     scans.Repository
	Reports   reports.Repository
	Analysis  Analyzer
	Clock     application.Clock
	Log       logging.Logger
	Metrics   Recorder

	// Timeout bounds each generator call; zero means no timeout.
	Timeout time.Duration
}

type Classification struct {
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	DifferentialDiagnoses []string `json:"differential_diagnoses"`
	Confidence            *float64 `json:"confidence_score,omitempty"`
	Severity              string   `json:"severity,omitempty"`
	RiskFactors           []string `json:"risk_factors"`
	Explanation           string   `json:"explanation"`
	RecommendedTests      []string `json:"recommended_tests"`
	Degraded              bool     `json:"degraded,omitempty"`
}

// ClassifyDisease never fails on the generator: an error yields the
// incomplete classification and unparseable text becomes the explanation.
func (s *Service) ClassifyDisease(ctx context.Context, symptoms, history, findings string) (*Classification, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return nil, fmt.Errorf("%w: symptoms are required", ErrInvalidInput)
	}
	out := &Classification{PrimaryDiagnosis: IncompleteDiagnosis}
	res, err := s.generate(ctx, FeatureClassify, prompt.ClassifyDisease(symptoms, history, findings))
	switch r := res.(type) {
	case ai.Structured:
		if v, ok := r.String("primary_diagnosis"); ok {
			out.PrimaryDiagnosis = v
		}
		out.DifferentialDiagnoses = r.Strings("differential_diagnoses")
		if c, ok := r.Float("confidence_score"); ok {
			c = clamp01(c)
			out.Confidence = &c
		}
		out.Severity, _ = r.String("severity")
		out.RiskFactors = r.Strings("risk_factors")
		out.Explanation, _ = r.String("explanation")
		out.RecommendedTests = r.Strings("recommended_tests")
	case ai.Fallback:
		out.Explanation = r.Response
	default:
		out.Explanation = "Unable to complete classification: " + err.Error()
		out.Degraded = true
	}
	return out, nil
}

type Medicine struct {
	Name             string   `json:"name"`
	GenericName      string   `json:"generic_name,omitempty"`
	BangladeshBrands []string `json:"bangladesh_brands"`
	Purpose          string   `json:"purpose,omitempty"`
	GeneralUsage     string   `json:"general_usage,omitempty"`
	Precautions      []string `json:"precautions"`
	Availability     string   `json:"availability,omitempty"`
	ApproximateCost  string   `json:"approximate_cost,omitempty"`
}

type MedicineSuggestion struct {
	Medicines                []Medicine `json:"medicines"`
	LifestyleRecommendations []string   `json:"lifestyle_recommendations"`
	FollowUp                 string     `json:"follow_up"`
	Disclaimer               string     `json:"disclaimer"`
	// Notes carries the raw reply when it was not JSON.
	Notes    string `json:"notes,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`

	ScanContext map[string]any `json:"scan_context,omitempty"`
	PatientID   string         `json:"patient_id,omitempty"`
}

type MedicineCommand struct {
	Classification string
	Symptoms       string
	Age            int
}

// SuggestMedicines never returns dosages and never fails on the generator.
func (s *Service) SuggestMedicines(ctx context.Context, cmd MedicineCommand) (*MedicineSuggestion, error) {
	if strings.TrimSpace(cmd.Classification) == "" {
		return nil, fmt.Errorf("%w: disease classification is required", ErrInvalidInput)
	}
	return s.suggest(ctx, prompt.MedicineRequest{
		Classification: cmd.Classification,
		Symptoms:       cmd.Symptoms,
		Age:            cmd.Age,
	})
}

type PatientMedicineCommand struct {
	PatientID string
	// ScanID picks the scan; empty means the newest one.
	ScanID         scans.ScanID
	Classification string
	Symptoms       string
	Age            int
}

// SuggestMedicinesForPatient grounds the suggestion on one of the patient's
// scans. A scan without a finding is analyzed first when no classification
// was given; ErrClassificationRequired when there is still none.
func (s *Service) SuggestMedicinesForPatient(ctx context.Context, cmd PatientMedicineCommand) (*MedicineSuggestion, error) {
	scan, err := s.pickScan(ctx, cmd.PatientID, cmd.ScanID)
	if err != nil {
		return nil, err
	}

	classification := strings.TrimSpace(cmd.Classification)
	if classification == "" && !scan.Analyzed() && s.Analysis != nil {
		batch := s.Analysis.EnsureAnalyzed(ctx, []*scans.Scan{scan}, analysis.Request{})
		s.log().Info("scan analyzed for medicine suggestion",
			logging.String("scan_id", string(scan.ID)),
			logging.String("batch", batch.Summary),
		)
	}
	if classification == "" && scan.Analyzed() {
		classification = scan.Finding.Classification
	}
	if classification == "" {
		return nil, fmt.Errorf("%w: scan %s has no classification", ErrClassificationRequired, scan.ID)
	}
	symptoms := strings.TrimSpace(cmd.Symptoms)
	if symptoms == "" {
		symptoms = DefaultSymptoms
	}

	sc := scanContext(scan, classification)
	out, err := s.suggest(ctx, prompt.MedicineRequest{
		Classification: classification,
		Symptoms:       symptoms,
		Age:            cmd.Age,
		ScanContext:    sc,
	})
	if err != nil {
		return nil, err
	}
	out.ScanContext = sc
	out.PatientID = cmd.PatientID
	return out, nil
}

func (s *Service) suggest(ctx context.Context, req prompt.MedicineRequest) (*MedicineSuggestion, error) {
	p, err := prompt.SuggestMedicines(req)
	if err != nil {
		return nil, err
	}
	out := &MedicineSuggestion{
		Medicines:                []Medicine{},
		LifestyleRecommendations: []string{},
		FollowUp:                 DefaultFollowUp,
		Disclaimer:               DefaultDisclaimer,
	}
	res, gerr := s.generate(ctx, FeatureMedicines, p)
	switch r := res.(type) {
	case ai.Structured:
		for _, item := range r.List("medicines") {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if med, ok := medicine(ai.Structured{Fields: m}); ok {
				out.Medicines = append(out.Medicines, med)
			}
		}
		if v := r.Strings("lifestyle_recommendations"); v != nil {
			out.LifestyleRecommendations = v
		}
		if v, ok := r.String("follow_up"); ok {
			out.FollowUp = v
		}
		out.Disclaimer = MedicineDisclaimer
		if v, ok := r.String("disclaimer"); ok {
			out.Disclaimer = v
		}
	case ai.Fallback:
		out.Notes = r.Response
	default:
		out.Degraded = true
		s.log().Warn("medicine suggestion degraded", logging.Err(gerr))
	}
	return out, nil
}

func medicine(r ai.Structured) (Medicine, bool) {
	name, ok := r.String("name")
	if !ok {
		return Medicine{}, false
	}
	m := Medicine{
		Name:             name,
		BangladeshBrands: nonNil(r.Strings("bangladesh_brands")),
		Precautions:      nonNil(r.Strings("precautions")),
	}
	m.GenericName, _ = r.String("generic_name")
	m.Purpose, _ = r.String("purpose")
	m.GeneralUsage, _ = r.String("general_usage")
	m.Availability, _ = r.String("availability")
	m.ApproximateCost, _ = r.String("approximate_cost")
	return m, true
}

const (
	PriorityRoutine   = "routine"
	PriorityUrgent    = "urgent"
	PriorityImmediate = "immediate"
)

type RiskAssessment struct {
	OverallRisk     scans.RiskLevel `json:"overall_risk"`
	RiskFactors     []string        `json:"risk_factors"`
	PriorityLevel   string          `json:"priority_level"`
	Recommendations []string        `json:"recommendations"`
	Explanation     string          `json:"explanation"`
	Degraded        bool            `json:"degraded,omitempty"`
}

// AssessRisk reads the overall tier leniently; anything unrecognized is MEDIUM.
// A missing or unknown priority follows from the tier.
func (s *Service) AssessRisk(ctx context.Context, findings []string, history string) (*RiskAssessment, error) {
	var clean []string
	for _, f := range findings {
		if f = strings.TrimSpace(f); f != "" {
			clean = append(clean, f)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: at least one finding is required", ErrInvalidInput)
	}
	out := &RiskAssessment{
		OverallRisk:     scans.DefaultRiskLevel,
		RiskFactors:     []string{},
		Recommendations: []string{},
	}
	res, err := s.generate(ctx, FeatureRisk, prompt.AssessRisk(clean, history))
	switch r := res.(type) {
	case ai.Structured:
		if v, ok := r.String("overall_risk"); ok {
			if lvl, ok := scans.ParseRiskLevel(v); ok {
				out.OverallRisk = lvl
			}
		}
		out.RiskFactors = nonNil(r.Strings("risk_factors"))
		out.Recommendations = nonNil(r.Strings("recommendations"))
		out.Explanation, _ = r.String("explanation")
		if v, ok := r.String("priority_level"); ok {
			out.PriorityLevel = parsePriority(v)
		}
	case ai.Fallback:
		out.Explanation = r.Response
	default:
		out.Explanation = "Risk assessment unavailable: " + err.Error()
		out.Recommendations = []string{"Consult with a healthcare provider"}
		out.Degraded = true
	}
	if out.PriorityLevel == "" {
		out.PriorityLevel = priorityFor(out.OverallRisk)
	}
	return out, nil
}

func parsePriority(s string) string {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case PriorityRoutine, PriorityUrgent, PriorityImmediate:
		return p
	}
	return ""
}

func priorityFor(lvl scans.RiskLevel) string {
	if lvl == scans.RiskHigh {
		return PriorityUrgent
	}
	return PriorityRoutine
}

type HealthSummary struct {
	PatientID    string    `json:"patient_id"`
	TotalScans   int       `json:"total_scans"`
	TotalReports int       `json:"total_reports"`
	Summary      string    `json:"summary"`
	Degraded     bool      `json:"degraded,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// HealthSummary writes a plain text summary over the five newest scans and
// reports. Totals count what went into the prompt.
func (s *Service) HealthSummary(ctx context.Context, patientID string) (*HealthSummary, error) {
	items, err := s.Scans.ListByPatient(ctx, patientID, recentWindow)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	reps, err := s.Reports.ListByPatient(ctx, patientID, recentWindow)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	recent := make([]prompt.ScanInfo, 0, len(items))
	for _, it := range items {
		recent = append(recent, scanInfo(it))
	}
	lines := make([]prompt.ReportLine, 0, len(reps))
	for _, r := range reps {
		lines = append(lines, prompt.ReportLine{
			Date:      r.GeneratedAt.Format(time.DateOnly),
			Diagnosis: r.Diagnosis,
			Status:    string(r.Status),
		})
	}

	out := &HealthSummary{
		PatientID:    patientID,
		TotalScans:   len(items),
		TotalReports: len(reps),
		GeneratedAt:  s.now(),
	}
	text, err := s.text(ctx, FeatureSummary, prompt.HealthSummary(patientID, recent, lines))
	if err != nil {
		s.log().Warn("health summary degraded", logging.String("patient_id", patientID), logging.Err(err))
		out.Summary, out.Degraded = SummaryUnavailable, true
		return out, nil
	}
	out.Summary = text
	return out, nil
}

// generate normalizes the reply. A nil Result means the call failed and err says why.
func (s *Service) generate(ctx context.Context, feature, p string) (ai.Result, error) {
	ctx, cancel := application.WithTimeout(ctx, s.Timeout)
	defer cancel()
	raw, err := s.Generator.Generate(ctx, p)
	if err != nil {
		s.record(feature, ShapeDegraded)
		s.log().Warn("clinical generation failed", logging.String("feature", feature), logging.Err(err))
		return nil, err
	}
	res := ai.Normalize(raw)
	if _, ok := res.(ai.Structured); ok {
		s.record(feature, ShapeStructured)
	} else {
		s.record(feature, ShapeFallback)
	}
	return res, nil
}

// text is for plain text features. An empty reply counts as a failure.
func (s *Service) text(ctx context.Context, feature, p string) (string, error) {
	ctx, cancel := application.WithTimeout(ctx, s.Timeout)
	defer cancel()
	raw, err := s.Generator.Generate(ctx, p)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		s.record(feature, ShapeDegraded)
		return "", err
	}
	s.record(feature, ShapeFallback)
	return strings.TrimSpace(raw), nil
}

func (s *Service) pickScan(ctx context.Context, patientID string, id scans.ScanID) (*scans.Scan, error) {
	if id != "" {
		return s.Scans.Get(ctx, patientID, id)
	}
	items, err := s.Scans.ListByPatient(ctx, patientID, 1)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no scans found for this patient, upload a scan first", scans.ErrNotFound)
	}
	return items[0], nil
}

func scanContext(s *scans.Scan, classification string) map[string]any {
	sc := map[string]any{
		"scan_id":        string(s.ID),
		"modality":       string(s.Modality),
		"upload_date":    s.UploadedAt.Format(time.RFC3339),
		"analyzed":       s.Analyzed(),
		"classification": classification,
	}
	if f := s.Finding; f != nil {
		sc["risk_level"] = string(f.Risk)
		abn := make([]string, 0, len(f.Abnormalities))
		for _, a := range f.Abnormalities {
			abn = append(abn, describe(a))
		}
		sc["abnormalities"] = abn
		if f.Confidence != nil {
			sc["confidence"] = *f.Confidence
		}
	}
	return sc
}

func scanInfo(s *scans.Scan) prompt.ScanInfo {
	info := prompt.ScanInfo{
		ID:          string(s.ID),
		Modality:    string(s.Modality),
		UploadedAt:  s.UploadedAt.Format(time.DateOnly),
		Description: s.Description,
		Analyzed:    s.Analyzed(),
	}
	if f := s.Finding; f != nil {
		info.Classification = f.Classification
		info.RiskLevel = string(f.Risk)
		info.Explanation = f.Explanation
		if f.Confidence != nil {
			info.Confidence = *f.Confidence
		}
		for _, a := range f.Abnormalities {
			info.Abnormalities = append(info.Abnormalities, describe(a))
		}
	}
	return info
}

func describe(a scans.Abnormality) string {
	label := a.Type
	if label == "" {
		label = a.Description
	}
	if a.Location == "" {
		return label
	}
	return label + " (" + a.Location + ")"
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Service) record(feature, shape string) {
	if s.Metrics != nil {
		s.Metrics.ClinicalReply(feature, shape)
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) log() logging.Logger {
	if s.Log == nil {
		return logging.Default()
	}
	return s.Log
}
