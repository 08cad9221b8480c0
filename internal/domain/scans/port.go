package scans

import (
	"context"
	"io"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, s *Scan) error
	Get(ctx context.Context, patientID string, id ScanID) (*Scan, error)
	GetByID(ctx context.Context, id ScanID) (*Scan, error)
	// ListByPatient returns scans newest first; limit <= 0 means all.
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*Scan, error)
	Paginate(ctx context.Context, patientID string, page, pageSize int) (PaginatedResult, error)

	// SaveFinding commits one scan's finding on its own.
	SaveFinding(ctx context.Context, id ScanID, f *Finding) error
}

// ImageStore port (interface untuk penyimpanan gambar)
type ImageStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}
