// Package profile builds patient-level risk reports on top of the analysis
// orchestrator and the risk aggregator.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/application/analysis"
	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/domain/risk"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/infra/ai/prompt"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

const defaultProfileLimit = 3

var (
	ErrNoScans             = errors.New("no radiology scans found")
	ErrAnalysisUnavailable = errors.New("no analyzed scans available")
)

// Recorder receives overall tiers. metrics.Manager implements it.
type Recorder interface {
	RiskProfile(level string)
}

// Analyzer is the part of analysis.Orchestrator the service needs.
type Analyzer interface {
	EnsureAnalyzed(ctx context.Context, items []*scans.Scan, req analysis.Request) analysis.BatchResult
}

type Service struct {
	Scans    scans.Repository
	Analysis Analyzer
	// Generator writes the optional narrative; nil disables it.
	Generator ai.Generator
	Clock     application.Clock
	Log       logging.Logger
	Metrics   Recorder

	// ProfileLimit caps how many unanalyzed scans one report analyzes.
	ProfileLimit int
	// NarrativeTimeout bounds the narrative call; zero means no timeout.
	NarrativeTimeout time.Duration
}

// ScanRisk is one analyzed scan in the report breakdown.
type ScanRisk struct {
	ScanID         scans.ScanID    `json:"scan_id"`
	Modality       scans.Modality  `json:"modality"`
	UploadedAt     time.Time       `json:"upload_date"`
	Risk           scans.RiskLevel `json:"risk_level"`
	Classification string          `json:"disease_classification"`
	Confidence     *float64        `json:"confidence_score,omitempty"`
	Abnormalities  int             `json:"abnormalities_count"`
}

type Report struct {
	PatientID       string               `json:"patient_id"`
	Profile         risk.Profile         `json:"risk_profile"`
	Breakdown       []ScanRisk           `json:"scan_breakdown"`
	Recommendations risk.Recommendations `json:"recommendations"`
	AutoAnalysis    analysis.BatchResult `json:"auto_analysis"`
	// Assessment is the model narrative, Structured or Fallback.
	Assessment      ai.Result `json:"ai_assessment,omitempty"`
	UnanalyzedScans int       `json:"unanalyzed_scans"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// RiskProfile analyzes up to ProfileLimit pending scans, then aggregates every
// analyzed scan of the patient. Analysis failures do not fail the report; they
// show up in AutoAnalysis and UnanalyzedScans. A cancelled ctx returns its
// error without aggregating.
func (s *Service) RiskProfile(ctx context.Context, patientID string) (*Report, error) {
	items, err := s.Scans.ListByPatient(ctx, patientID, 0)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoScans
	}

	batch := s.Analysis.EnsureAnalyzed(ctx, items, analysis.Request{Limit: s.profileLimit()})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := risk.AggregateItems(items)
	if errors.Is(err, risk.ErrEmptyInput) {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisUnavailable, batch.Summary)
	}
	if err != nil {
		return nil, err
	}

	rep := &Report{
		PatientID:       patientID,
		Profile:         p,
		Breakdown:       breakdown(items),
		Recommendations: risk.Recommend(p.Overall),
		AutoAnalysis:    batch,
		UnanalyzedScans: p.NotAnalyzed,
		GeneratedAt:     s.now(),
	}
	rep.Assessment = s.narrative(ctx, patientID, p.Overall, rep.Breakdown, items)

	if s.Metrics != nil {
		s.Metrics.RiskProfile(string(p.Overall))
	}
	s.log().Info("risk profile generated",
		logging.String("patient_id", patientID),
		logging.String("overall_risk_level", string(p.Overall)),
		logging.Int("analyzed", p.Analyzed),
		logging.Int("unanalyzed", p.NotAnalyzed),
		logging.String("batch", batch.Summary),
	)
	return rep, nil
}

// LatestRisk is the reading of the newest scan.
type LatestRisk struct {
	ScanID         scans.ScanID        `json:"scan_id"`
	Modality       scans.Modality      `json:"modality"`
	UploadedAt     time.Time           `json:"upload_date"`
	Finding        *scans.Finding      `json:"finding"`
	Interpretation risk.Interpretation `json:"risk_interpretation"`
	FollowUp       string              `json:"follow_up_timeline"`
	NewlyAnalyzed  bool                `json:"newly_analyzed"`
}

// LatestScanRisk analyzes the newest scan when needed and interprets its tier.
func (s *Service) LatestScanRisk(ctx context.Context, patientID string) (*LatestRisk, error) {
	items, err := s.Scans.ListByPatient(ctx, patientID, 1)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoScans
	}
	scan := items[0]

	batch := s.Analysis.EnsureAnalyzed(ctx, items[:1], analysis.Request{})
	if !scan.Analyzed() {
		reason := "analysis failed"
		if len(batch.Items) == 1 && batch.Items[0].Reason != "" {
			reason = batch.Items[0].Reason
		}
		return nil, fmt.Errorf("%w: %s", ErrAnalysisUnavailable, reason)
	}

	lvl := scan.Finding.Risk
	if !lvl.Valid() {
		lvl = scans.DefaultRiskLevel
	}
	return &LatestRisk{
		ScanID:         scan.ID,
		Modality:       scan.Modality,
		UploadedAt:     scan.UploadedAt,
		Finding:        scan.Finding,
		Interpretation: risk.Interpret(lvl),
		FollowUp:       risk.FollowUpTimeline(lvl),
		NewlyAnalyzed:  batch.Analyzed == 1,
	}, nil
}

func (s *Service) narrative(ctx context.Context, patientID string, overall scans.RiskLevel, rows []ScanRisk, items []*scans.Scan) ai.Result {
	if s.Generator == nil {
		return nil
	}
	explain := make(map[scans.ScanID]string, len(items))
	for _, it := range items {
		if it.Analyzed() {
			explain[it.ID] = it.Finding.Explanation
		}
	}
	history := make([]prompt.ScanSummary, 0, len(rows))
	for _, r := range rows {
		history = append(history, prompt.ScanSummary{
			Modality:       string(r.Modality),
			Date:           r.UploadedAt.Format(time.DateOnly),
			Classification: r.Classification,
			RiskLevel:      string(r.Risk),
			Confidence:     r.Confidence,
			Abnormalities:  r.Abnormalities,
			KeyFindings:    explain[r.ScanID],
		})
	}
	p, err := prompt.RiskNarrative(string(overall), history)
	if err != nil {
		s.log().Warn("risk narrative prompt failed", logging.Err(err))
		return nil
	}
	gctx, cancel := application.WithTimeout(ctx, s.NarrativeTimeout)
	defer cancel()
	raw, err := s.Generator.Generate(gctx, p)
	if err != nil {
		// narasi opsional, laporan tetap jalan
		s.log().Warn("risk narrative unavailable", logging.String("patient_id", patientID), logging.Err(err))
		return nil
	}
	return ai.Normalize(raw)
}

func breakdown(items []*scans.Scan) []ScanRisk {
	out := make([]ScanRisk, 0, len(items))
	for _, it := range items {
		if it == nil || !it.Analyzed() {
			continue
		}
		f := it.Finding
		out = append(out, ScanRisk{
			ScanID:         it.ID,
			Modality:       it.Modality,
			UploadedAt:     it.UploadedAt,
			Risk:           f.Risk,
			Classification: f.Classification,
			Confidence:     f.Confidence,
			Abnormalities:  len(f.Abnormalities),
		})
	}
	return out
}

func (s *Service) profileLimit() int {
	if s.ProfileLimit > 0 {
		return s.ProfileLimit
	}
	return defaultProfileLimit
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
