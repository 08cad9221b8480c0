package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/radiology-ai/internal/domain/analyst"
	"github.com/bryanwahyu/radiology-ai/internal/infra/db"
)

type AnalystRepository struct {
	db *sql.DB
}

func NewAnalystRepository(db *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

// Save inserts or updates an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO radiology_analyses
  (id, patient_id, scan_id, image_ref, raw_output, result_json, structured, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  raw_output=EXCLUDED.raw_output,
  result_json=EXCLUDED.result_json,
  structured=EXCLUDED.structured;
`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID, db.StringOrDash(a.PatientID), a.ScanID, db.StringOrDash(a.ImageRef),
		a.Raw, db.ValidJSON(a.Result), a.Structured, createdAt,
	)
	return err
}

// ListByScan returns analyses ordered by created_at desc
func (r *AnalystRepository) ListByScan(ctx context.Context, scanID string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, patient_id, scan_id, image_ref, raw_output, result_json, structured, created_at
FROM radiology_analyses
WHERE scan_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, scanID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		var a domain.Analysis
		if err := rows.Scan(&a.ID, &a.PatientID, &a.ScanID, &a.ImageRef, &a.Raw, &a.Result, &a.Structured, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// LatestByScan returns the latest analysis for a given scan, nil when none
func (r *AnalystRepository) LatestByScan(ctx context.Context, scanID string) (*domain.Analysis, error) {
	list, err := r.ListByScan(ctx, scanID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}
