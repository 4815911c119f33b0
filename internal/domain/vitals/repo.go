package vitals

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("health data not found")
	ErrForbidden   = errors.New("health data belongs to another user")
	ErrUnknownType = errors.New("unknown measurement type")
)

// Repository defines persistence operations for vitals measurements.
type Repository interface {
	Create(ctx context.Context, v *Vital, typeID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vital, error)
	Update(ctx context.Context, v *Vital) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Vital, int, error)
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]*Vital, error)
	// LatestPerType returns the newest measurement of each type the user has
	// recorded, ordered by type name.
	LatestPerType(ctx context.Context, userID uuid.UUID) ([]*Vital, error)
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Vital, error)

	ListTypes(ctx context.Context) ([]Type, error)
	GetTypeByName(ctx context.Context, name string) (*Type, error)
}
