package vaccine

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("vaccine not found")
	ErrForbidden = errors.New("vaccine belongs to another user")
)

// Repository defines persistence operations for vaccines.
type Repository interface {
	Create(ctx context.Context, v *Vaccine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vaccine, error)
	Update(ctx context.Context, v *Vaccine) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Vaccine, int, error)
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]*Vaccine, error)
	// GetManyOwned fetches the given ids scoped to the owner; ids that do
	// not exist or belong to someone else are silently absent.
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Vaccine, error)
}
