package scans

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/application/analysis"
	domain "github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

// Analyzer is the part of analysis.Orchestrator the service needs.
type Analyzer interface {
	EnsureAnalyzed(ctx context.Context, items []*domain.Scan, req analysis.Request) analysis.BatchResult
}

// Service implements use-cases untuk Scan
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Repo     domain.Repository
	Images   domain.ImageStore
	Analysis Analyzer
	Clock    application.Clock
	Log      logging.Logger

	// AllowedExtensions without the dot; empty allows any.
	AllowedExtensions []string
}

//
// ==== USE CASES ====
//

// Command untuk upload scan baru
type UploadCommand struct {
	PatientID   string
	DoctorID    string
	Modality    string
	Description string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload simpan gambar ke object storage → simpan row scan (belum dianalisis)
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (*domain.Scan, error) {
	modality, err := domain.ParseModality(cmd.Modality)
	if err != nil {
		return nil, err
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(cmd.FileName)), ".")
	if ext == "" || (len(s.AllowedExtensions) > 0 && !slices.Contains(s.AllowedExtensions, ext)) {
		return nil, fmt.Errorf("%w: allowed %s", domain.ErrInvalidFileType, strings.Join(s.AllowedExtensions, ","))
	}

	id := uuid.New().String()
	key := fmt.Sprintf("%s/%s/%s.%s", cmd.PatientID, modality, id, ext)
	if _, err := s.Images.Upload(ctx, key, cmd.Body, cmd.Size, cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	scan := &domain.Scan{
		ID:          domain.ScanID(id),
		PatientID:   cmd.PatientID,
		DoctorID:    cmd.DoctorID,
		Modality:    modality,
		ImageRef:    key,
		Description: strings.TrimSpace(cmd.Description),
		UploadedAt:  s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, scan); err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("save scan: %w", err)
	}
	s.log().Info("scan uploaded",
		logging.String("scan_id", id),
		logging.String("patient_id", cmd.PatientID),
		logging.String("modality", string(modality)),
		logging.Int64("size", cmd.Size),
	)
	return scan, nil
}

// Get ambil 1 scan by id
func (s *Service) Get(ctx context.Context, patientID string, id domain.ScanID) (*domain.Scan, error) {
	return s.Repo.Get(ctx, patientID, id)
}

// List scan pasien per halaman, terbaru dulu
func (s *Service) List(ctx context.Context, patientID string, page, pageSize int) (domain.PaginatedResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.Repo.Paginate(ctx, patientID, page, pageSize)
}

// AnalyzeOne jalankan analisis untuk satu scan. Kegagalan analyzer tidak jadi
// error: hasilnya ada di Outcome.
func (s *Service) AnalyzeOne(ctx context.Context, patientID string, id domain.ScanID, force bool) (*domain.Scan, analysis.Outcome, error) {
	scan, err := s.Repo.Get(ctx, patientID, id)
	if err != nil {
		return nil, analysis.Outcome{}, err
	}
	res := s.Analysis.EnsureAnalyzed(ctx, []*domain.Scan{scan}, analysis.Request{Force: force})
	return scan, res.Items[0], nil
}

// AnalyzeAll jalankan analisis untuk semua scan pasien yang belum dianalisis
func (s *Service) AnalyzeAll(ctx context.Context, patientID string, force bool, limit int) (analysis.BatchResult, error) {
	items, err := s.Repo.ListByPatient(ctx, patientID, 0)
	if err != nil {
		return analysis.BatchResult{}, fmt.Errorf("list scans: %w", err)
	}
	return s.Analysis.EnsureAnalyzed(ctx, items, analysis.Request{Force: force, Limit: limit}), nil
}

// discard removes an uploaded object that has no scan row. If that fails too
// the key is logged so the object can be cleaned up by hand.
func (s *Service) discard(ctx context.Context, key string) {
	if err := s.Images.Remove(context.WithoutCancel(ctx), key); err != nil {
		s.log().Error("orphaned scan image", logging.String("image_ref", key), logging.Err(err))
		return
	}
	s.log().Warn("scan image removed after failed save", logging.String("image_ref", key))
}

func (s *Service) log() logging.Logger {
	if s.Log == nil {
		return logging.Default()
	}
	return s.Log
}
