package medhistory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("consultation not found")
	ErrForbidden    = errors.New("consultation belongs to another user")
	ErrUnknownVocab = errors.New("unknown category or subcategory")
)

// Repository defines persistence operations for medical history entries.
type Repository interface {
	Create(ctx context.Context, m *MedicalHistory, categoryID, subcategoryID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalHistory, error)
	Update(ctx context.Context, m *MedicalHistory, categoryID, subcategoryID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*MedicalHistory, int, error)
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]*MedicalHistory, error)
	// GetManyOwned fetches the given ids scoped to the owner; ids that do
	// not exist or belong to someone else are silently absent.
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*MedicalHistory, error)

	ListCategories(ctx context.Context) ([]VocabEntry, error)
	ListSubcategories(ctx context.Context, categoryID uuid.UUID) ([]Subcategory, error)
	// ResolveSubcategory maps a (category, subcategory) name pair to the
	// reference ids, checking that the subcategory belongs to the category.
	ResolveSubcategory(ctx context.Context, category, subcategory string) (categoryID, subcategoryID uuid.UUID, err error)
}
