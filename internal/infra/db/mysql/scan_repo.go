package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/infra/db"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

const scanColumns = `id, patient_id, doctor_id, modality, image_ref, description, uploaded_at, finding_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*domain.Scan, error) {
	var s domain.Scan
	var doctor, desc, finding sql.NullString
	if err := row.Scan(&s.ID, &s.PatientID, &doctor, &s.Modality, &s.ImageRef, &desc, &s.UploadedAt, &finding); err != nil {
		return nil, err
	}
	s.DoctorID = doctor.String
	s.Description = desc.String
	f, err := db.DecodeFinding(finding)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.ID, err)
	}
	s.Finding = f
	return &s, nil
}

// Save insert/update Scan record
func (r *ScanRepository) Save(ctx context.Context, s *domain.Scan) error {
	const q = `
INSERT INTO radiology_scans
(id, patient_id, doctor_id, modality, image_ref, description, uploaded_at,
 finding_json, risk_level, confidence_score, disease_classification, analyzed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 doctor_id=VALUES(doctor_id), description=VALUES(description),
 finding_json=VALUES(finding_json), risk_level=VALUES(risk_level),
 confidence_score=VALUES(confidence_score), disease_classification=VALUES(disease_classification),
 analyzed_at=VALUES(analyzed_at);
`
	cols, err := db.EncodeFinding(s.Finding)
	if err != nil {
		return err
	}
	uploaded := s.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, q,
		s.ID, db.StringOrDash(s.PatientID), nullString(s.DoctorID), s.Modality, s.ImageRef, nullString(s.Description), uploaded,
		cols.JSON, cols.Risk, cols.Confidence, cols.Classification, cols.AnalyzedAt,
	)
	return err
}

// SaveFinding update hasil analisis satu scan saja
func (r *ScanRepository) SaveFinding(ctx context.Context, id domain.ScanID, f *domain.Finding) error {
	const q = `
UPDATE radiology_scans
SET finding_json = ?, risk_level = ?, confidence_score = ?, disease_classification = ?, analyzed_at = ?
WHERE id = ?;`
	cols, err := db.EncodeFinding(f)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, cols.JSON, cols.Risk, cols.Confidence, cols.Classification, cols.AnalyzedAt, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 when values are unchanged, so check existence
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM radiology_scans WHERE id = ? LIMIT 1;`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

// Get by ID + Patient
func (r *ScanRepository) Get(ctx context.Context, patientID string, id domain.ScanID) (*domain.Scan, error) {
	q := `SELECT ` + scanColumns + ` FROM radiology_scans WHERE patient_id=? AND id=? LIMIT 1;`
	s, err := scanRow(r.db.QueryRowContext(ctx, q, patientID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

func (r *ScanRepository) GetByID(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	q := `SELECT ` + scanColumns + ` FROM radiology_scans WHERE id=? LIMIT 1;`
	s, err := scanRow(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

// ListByPatient scans pasien, terbaru dulu
func (r *ScanRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.Scan, error) {
	q := `SELECT ` + scanColumns + ` FROM radiology_scans WHERE patient_id=? ORDER BY uploaded_at DESC, id DESC`
	args := []any{patientID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Paginate with offset + limit (classic pagination)
func (r *ScanRepository) Paginate(ctx context.Context, patientID string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `SELECT ` + scanColumns + ` FROM radiology_scans WHERE patient_id=? ORDER BY uploaded_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, patientID, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var items []*domain.Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		items = append(items, s)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM radiology_scans WHERE patient_id = ?`, patientID).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}
	return domain.NewPage(items, page, pageSize, total), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
