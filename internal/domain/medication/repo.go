package medication

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("medication not found")
	ErrForbidden    = errors.New("medication belongs to another user")
	ErrUnknownVocab = errors.New("unknown vocabulary entry")
)

// Repository defines persistence operations for medications.
type Repository interface {
	Create(ctx context.Context, m *Medication, routeID, formID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication, routeID, formID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Medication, int, error)
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]*Medication, error)
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Medication, error)

	ListRoutes(ctx context.Context) ([]VocabEntry, error)
	ListForms(ctx context.Context) ([]VocabEntry, error)
	ResolveRoute(ctx context.Context, name string) (uuid.UUID, error)
	ResolveForm(ctx context.Context, name string) (uuid.UUID, error)
}
