package reports

import "context"

// Repository port untuk laporan medis
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id ReportID) (*Report, error)
	// Update writes the review fields; ErrNotFound when the row is missing.
	Update(ctx context.Context, r *Report) error
	// ListByPatient returns newest first; limit <= 0 means 20.
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*Report, error)
	ListPending(ctx context.Context, offset, limit int) ([]*Report, error)
}
