package allergy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("allergy not found")
	ErrForbidden    = errors.New("allergy belongs to another user")
	ErrUnknownVocab = errors.New("unknown vocabulary entry")
)

// Repository defines persistence operations for allergies and their
// vocabularies. Create and Update replace the allergen/reaction link rows
// and must run inside a transaction supplied through the context.
type Repository interface {
	Create(ctx context.Context, a *Allergy, severityID uuid.UUID, allergenIDs, reactionIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Allergy, error)
	Update(ctx context.Context, a *Allergy, severityID uuid.UUID, allergenIDs, reactionIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Allergy, int, error)
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]*Allergy, error)
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Allergy, error)

	// Vocabulary reference data.
	ListAllergens(ctx context.Context) ([]VocabEntry, error)
	ListReactions(ctx context.Context) ([]VocabEntry, error)
	ListSeverities(ctx context.Context) ([]VocabEntry, error)
	ResolveAllergens(ctx context.Context, names []string) ([]uuid.UUID, error)
	ResolveReactions(ctx context.Context, names []string) ([]uuid.UUID, error)
	ResolveSeverity(ctx context.Context, name string) (uuid.UUID, error)
}
