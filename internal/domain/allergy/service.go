package allergy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/db"
)

// Service provides business logic for the allergy domain.
type Service struct {
	allergies Repository
	pool      *pgxpool.Pool
}

// NewService creates a new allergy service. The pool drives the transaction
// wrapping multi-row writes; nil runs them untransacted (tests).
func NewService(allergies Repository, pool *pgxpool.Pool) *Service {
	return &Service{allergies: allergies, pool: pool}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Allergy, error) {
	if req.Severity == "" {
		return nil, fmt.Errorf("severity is required")
	}
	if len(req.Allergens) == 0 {
		return nil, fmt.Errorf("at least one allergen is required")
	}
	if req.DateDiagnosed.IsZero() {
		return nil, fmt.Errorf("date_diagnosed is required")
	}

	a := &Allergy{
		UserID:        userID,
		DateDiagnosed: req.DateDiagnosed,
		Notes:         req.Notes,
		Severity:      req.Severity,
		Allergens:     req.Allergens,
		Reactions:     req.Reactions,
	}
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		severityID, allergenIDs, reactionIDs, err := s.resolveVocab(ctx, req.Severity, req.Allergens, req.Reactions)
		if err != nil {
			return err
		}
		return s.allergies.Create(ctx, a, severityID, allergenIDs, reactionIDs)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) resolveVocab(ctx context.Context, severity string, allergens, reactions []string) (uuid.UUID, []uuid.UUID, []uuid.UUID, error) {
	severityID, err := s.allergies.ResolveSeverity(ctx, severity)
	if err != nil {
		return uuid.Nil, nil, nil, err
	}
	allergenIDs, err := s.allergies.ResolveAllergens(ctx, allergens)
	if err != nil {
		return uuid.Nil, nil, nil, err
	}
	var reactionIDs []uuid.UUID
	if len(reactions) > 0 {
		if reactionIDs, err = s.allergies.ResolveReactions(ctx, reactions); err != nil {
			return uuid.Nil, nil, nil, err
		}
	}
	return severityID, allergenIDs, reactionIDs, nil
}

// Owned fetches an allergy and verifies ownership.
func (s *Service) Owned(ctx context.Context, id, userID uuid.UUID) (*Allergy, error) {
	a, err := s.allergies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrForbidden
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req UpdateRequest) (*Allergy, error) {
	a, err := s.Owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	// Merge into a copy so a rejected update leaves the fetched record untouched.
	next := *a
	if req.Severity != nil {
		next.Severity = *req.Severity
	}
	if req.Allergens != nil {
		next.Allergens = req.Allergens
	}
	if req.Reactions != nil {
		next.Reactions = req.Reactions
	}
	if req.Notes != nil {
		next.Notes = req.Notes
	}
	if req.DateDiagnosed != nil {
		next.DateDiagnosed = *req.DateDiagnosed
	}
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		severityID, allergenIDs, reactionIDs, err := s.resolveVocab(ctx, next.Severity, next.Allergens, next.Reactions)
		if err != nil {
			return err
		}
		return s.allergies.Update(ctx, &next, severityID, allergenIDs, reactionIDs)
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Owned(ctx, id, userID); err != nil {
		return err
	}
	return s.allergies.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Response, int, error) {
	items, total, err := s.allergies.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toResponses(items), total, nil
}

func (s *Service) Newest(ctx context.Context, userID uuid.UUID, n int) ([]Response, error) {
	items, err := s.allergies.Newest(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

// GetManyOwned resolves ids scoped to the owner for the share collector;
// unknown or foreign ids are silently skipped.
func (s *Service) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Response, error) {
	items, err := s.allergies.GetManyOwned(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func (s *Service) Allergens(ctx context.Context) ([]VocabEntry, error) {
	return s.allergies.ListAllergens(ctx)
}

func (s *Service) Reactions(ctx context.Context) ([]VocabEntry, error) {
	return s.allergies.ListReactions(ctx)
}

func (s *Service) Severities(ctx context.Context) ([]VocabEntry, error) {
	return s.allergies.ListSeverities(ctx)
}

func toResponses(items []*Allergy) []Response {
	out := make([]Response, len(items))
	for i, a := range items {
		out[i] = a.ToResponse()
	}
	return out
}
