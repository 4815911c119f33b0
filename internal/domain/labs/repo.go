package labs

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("lab result not found")
	ErrForbidden = errors.New("lab result belongs to another user")
)

// Repository defines persistence operations for lab results and tests.
type Repository interface {
	Create(ctx context.Context, r *LabResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabResult, error)
	Update(ctx context.Context, r *LabResult) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*LabResult, int, error)
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]*LabResult, error)
	// GetManyOwned fetches the given ids scoped to the owner; ids that do
	// not exist or belong to someone else are silently absent.
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*LabResult, error)
	// AllByUser returns every result the user has, newest collection first,
	// for the grouped test view.
	AllByUser(ctx context.Context, userID uuid.UUID) ([]*LabResult, error)

	// GetOrCreateTest resolves a test by code, creating it on first use.
	GetOrCreateTest(ctx context.Context, name, code string) (*LabTest, error)
	ListTests(ctx context.Context) ([]LabTest, error)
}
