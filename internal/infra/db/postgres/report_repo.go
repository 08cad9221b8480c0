package postgres

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/bryanwahyu/radiology-ai/internal/domain/reports"
)

type ReportRepository struct{ db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

const reportColumns = `id, patient_id, scan_id, doctor_id, report_type, content, doctor_notes, diagnosis,
  recommended_treatment, medicine_suggestions, status, generated_at, validated_at`

func scanReport(row rowScanner) (*domain.Report, error) {
	var r domain.Report
	var scanID, doctor, notes, diagnosis, treatment, medicines sql.NullString
	var validated sql.NullTime
	if err := row.Scan(&r.ID, &r.PatientID, &scanID, &doctor, &r.ReportType, &r.Content, &notes, &diagnosis,
		&treatment, &medicines, &r.Status, &r.GeneratedAt, &validated); err != nil {
		return nil, err
	}
	r.ScanID = scanID.String
	r.DoctorID = doctor.String
	r.DoctorNotes = notes.String
	r.Diagnosis = diagnosis.String
	r.RecommendedTreatment = treatment.String
	r.MedicineSuggestions = medicines.String
	if validated.Valid {
		t := validated.Time
		r.ValidatedAt = &t
	}
	return &r, nil
}

func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	q := `INSERT INTO medical_reports (` + reportColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err := r.db.ExecContext(ctx, q,
		rep.ID, rep.PatientID, nullString(rep.ScanID), nullString(rep.DoctorID), rep.ReportType, rep.Content,
		nullString(rep.DoctorNotes), nullString(rep.Diagnosis), nullString(rep.RecommendedTreatment),
		nullString(rep.MedicineSuggestions), rep.Status, rep.GeneratedAt, rep.ValidatedAt,
	)
	return err
}

func (r *ReportRepository) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM medical_reports WHERE id = $1 LIMIT 1;`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rep, err
}

// Update writes the review. Postgres counts matched rows, so zero means missing.
func (r *ReportRepository) Update(ctx context.Context, rep *domain.Report) error {
	const q = `
UPDATE medical_reports
SET doctor_id = $1, doctor_notes = $2, diagnosis = $3, recommended_treatment = $4, medicine_suggestions = $5,
    status = $6, validated_at = $7
WHERE id = $8;`
	res, err := r.db.ExecContext(ctx, q,
		nullString(rep.DoctorID), nullString(rep.DoctorNotes), nullString(rep.Diagnosis),
		nullString(rep.RecommendedTreatment), nullString(rep.MedicineSuggestions),
		rep.Status, rep.ValidatedAt, rep.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + reportColumns + ` FROM medical_reports WHERE patient_id = $1 ORDER BY generated_at DESC LIMIT $2;`
	return r.list(ctx, q, patientID, limit)
}

func (r *ReportRepository) ListPending(ctx context.Context, offset, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + reportColumns + ` FROM medical_reports WHERE status = $1 ORDER BY generated_at DESC LIMIT $2 OFFSET $3;`
	return r.list(ctx, q, domain.StatusPending, limit, offset)
}

func (r *ReportRepository) list(ctx context.Context, q string, args ...any) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
