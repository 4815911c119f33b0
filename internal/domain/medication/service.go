package medication

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service provides business logic for the medication domain.
type Service struct {
	medications Repository
}

// NewService creates a new medication service.
func NewService(medications Repository) *Service {
	return &Service{medications: medications}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Medication, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.Dosage == "" {
		return nil, fmt.Errorf("dosage is required")
	}
	if req.Frequency == "" {
		return nil, fmt.Errorf("frequency is required")
	}
	if req.DatePrescribed.IsZero() {
		return nil, fmt.Errorf("date_prescribed is required")
	}

	routeID, err := s.medications.ResolveRoute(ctx, req.Route)
	if err != nil {
		return nil, err
	}
	formID, err := s.medications.ResolveForm(ctx, req.Form)
	if err != nil {
		return nil, err
	}

	m := &Medication{
		UserID:         userID,
		Name:           req.Name,
		Dosage:         req.Dosage,
		Frequency:      req.Frequency,
		TimeOfDay:      req.TimeOfDay,
		DurationDays:   req.DurationDays,
		Notes:          req.Notes,
		DatePrescribed: req.DatePrescribed,
		Route:          req.Route,
		Form:           req.Form,
	}
	if err := s.medications.Create(ctx, m, routeID, formID); err != nil {
		return nil, err
	}
	return m, nil
}

// Owned fetches a medication and verifies ownership.
func (s *Service) Owned(ctx context.Context, id, userID uuid.UUID) (*Medication, error) {
	m, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrForbidden
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req UpdateRequest) (*Medication, error) {
	m, err := s.Owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	// Merge into a copy so a rejected update leaves the fetched record untouched.
	next := *m
	if req.Name != nil {
		next.Name = *req.Name
	}
	if req.Dosage != nil {
		next.Dosage = *req.Dosage
	}
	if req.Frequency != nil {
		next.Frequency = *req.Frequency
	}
	if req.TimeOfDay != nil {
		next.TimeOfDay = req.TimeOfDay
	}
	if req.DurationDays != nil {
		next.DurationDays = req.DurationDays
	}
	if req.Notes != nil {
		next.Notes = req.Notes
	}
	if req.DatePrescribed != nil {
		next.DatePrescribed = *req.DatePrescribed
	}
	if req.Route != nil {
		next.Route = *req.Route
	}
	if req.Form != nil {
		next.Form = *req.Form
	}

	routeID, err := s.medications.ResolveRoute(ctx, next.Route)
	if err != nil {
		return nil, err
	}
	formID, err := s.medications.ResolveForm(ctx, next.Form)
	if err != nil {
		return nil, err
	}
	if err := s.medications.Update(ctx, &next, routeID, formID); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Owned(ctx, id, userID); err != nil {
		return err
	}
	return s.medications.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Response, int, error) {
	items, total, err := s.medications.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toResponses(items), total, nil
}

func (s *Service) Newest(ctx context.Context, userID uuid.UUID, n int) ([]Response, error) {
	items, err := s.medications.Newest(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

// GetManyOwned resolves ids scoped to the owner for the share collector;
// unknown or foreign ids are silently skipped.
func (s *Service) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Response, error) {
	items, err := s.medications.GetManyOwned(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func (s *Service) Routes(ctx context.Context) ([]VocabEntry, error) {
	return s.medications.ListRoutes(ctx)
}

func (s *Service) Forms(ctx context.Context) ([]VocabEntry, error) {
	return s.medications.ListForms(ctx)
}

func toResponses(items []*Medication) []Response {
	out := make([]Response, len(items))
	for i, m := range items {
		out[i] = m.ToResponse()
	}
	return out
}
