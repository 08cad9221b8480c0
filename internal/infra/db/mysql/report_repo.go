package mysql

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/bryanwahyu/radiology-ai/internal/domain/reports"
)

type ReportRepository struct {
	db *sql.DB
}

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
	q := `INSERT INTO medical_reports (` + reportColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?);`
	_, err := r.db.ExecContext(ctx, q,
		rep.ID, rep.PatientID, nullString(rep.ScanID), nullString(rep.DoctorID), rep.ReportType, rep.Content,
		nullString(rep.DoctorNotes), nullString(rep.Diagnosis), nullString(rep.RecommendedTreatment),
		nullString(rep.MedicineSuggestions), rep.Status, rep.GeneratedAt, rep.ValidatedAt,
	)
	return err
}

func (r *ReportRepository) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM medical_reports WHERE id = ? LIMIT 1;`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rep, err
}

// Update simpan hasil review dokter
func (r *ReportRepository) Update(ctx context.Context, rep *domain.Report) error {
	const q = `
UPDATE medical_reports
SET doctor_id = ?, doctor_notes = ?, diagnosis = ?, recommended_treatment = ?, medicine_suggestions = ?,
    status = ?, validated_at = ?
WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q,
		nullString(rep.DoctorID), nullString(rep.DoctorNotes), nullString(rep.Diagnosis),
		nullString(rep.RecommendedTreatment), nullString(rep.MedicineSuggestions),
		rep.Status, rep.ValidatedAt, rep.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM medical_reports WHERE id = ? LIMIT 1;`, rep.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *ReportRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + reportColumns + ` FROM medical_reports WHERE patient_id = ? ORDER BY generated_at DESC LIMIT ?;`
	return r.list(ctx, q, patientID, limit)
}

// ListPending laporan yang belum direview, terbaru dulu
func (r *ReportRepository) ListPending(ctx context.Context, offset, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + reportColumns + ` FROM medical_reports WHERE status = ? ORDER BY generated_at DESC LIMIT ? OFFSET ?;`
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
