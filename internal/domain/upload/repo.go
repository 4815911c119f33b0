package upload

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("attachment not found")
	ErrForbidden       = errors.New("attachment belongs to another user")
	ErrUnknownCategory = errors.New("unknown attachment category")
)

// Repository defines persistence operations for attachment rows.
type Repository interface {
	Create(ctx context.Context, f *FileUpload) error
	// GetByRecord finds the attachment owned by a record, whichever
	// category the record belongs to.
	GetByRecord(ctx context.Context, recordID uuid.UUID) (*FileUpload, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
