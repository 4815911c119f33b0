package vitals

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service provides business logic for the vitals domain.
type Service struct {
	vitals Repository
}

// NewService creates a new vitals service.
func NewService(vitals Repository) *Service {
	return &Service{vitals: vitals}
}

// Create records a simple single-value measurement. Compound types must go
// through CreateBloodPressure.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Vital, error) {
	if req.DateRecorded.IsZero() {
		return nil, fmt.Errorf("date_recorded is required")
	}
	t, err := s.vitals.GetTypeByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if t.IsCompound {
		return nil, fmt.Errorf("%s requires systolic and diastolic values", t.Name)
	}

	value := req.Value
	v := &Vital{
		UserID:       userID,
		Value:        &value,
		Notes:        req.Notes,
		DateRecorded: req.DateRecorded,
		TypeName:     t.Name,
		Unit:         t.Unit,
		NormalRange:  t.NormalRange,
	}
	if err := s.vitals.Create(ctx, v, t.ID); err != nil {
		return nil, err
	}
	return v, nil
}

// CreateBloodPressure records a compound systolic/diastolic measurement.
func (s *Service) CreateBloodPressure(ctx context.Context, userID uuid.UUID, req BloodPressureRequest) (*Vital, error) {
	if req.DateRecorded.IsZero() {
		return nil, fmt.Errorf("date_recorded is required")
	}
	t, err := s.vitals.GetTypeByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if !t.IsCompound {
		return nil, fmt.Errorf("%s takes a single value", t.Name)
	}

	systolic, diastolic := req.ValueSystolic, req.ValueDiastolic
	v := &Vital{
		UserID:         userID,
		ValueSystolic:  &systolic,
		ValueDiastolic: &diastolic,
		Notes:          req.Notes,
		DateRecorded:   req.DateRecorded,
		TypeName:       t.Name,
		Unit:           t.Unit,
		IsCompound:     true,
		NormalRange:    t.NormalRange,
	}
	if err := s.vitals.Create(ctx, v, t.ID); err != nil {
		return nil, err
	}
	return v, nil
}

// Owned fetches a measurement and verifies ownership.
func (s *Service) Owned(ctx context.Context, id, userID uuid.UUID) (*Vital, error) {
	v, err := s.vitals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, ErrForbidden
	}
	return v, nil
}

func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req UpdateRequest) (*Vital, error) {
	v, err := s.Owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if req.Value != nil {
		if v.IsCompound {
			return nil, fmt.Errorf("%s takes systolic and diastolic values", v.TypeName)
		}
		v.Value = req.Value
	}
	if req.ValueSystolic != nil || req.ValueDiastolic != nil {
		if !v.IsCompound {
			return nil, fmt.Errorf("%s takes a single value", v.TypeName)
		}
		if req.ValueSystolic != nil {
			v.ValueSystolic = req.ValueSystolic
		}
		if req.ValueDiastolic != nil {
			v.ValueDiastolic = req.ValueDiastolic
		}
	}
	if req.Notes != nil {
		v.Notes = req.Notes
	}
	if req.DateRecorded != nil {
		v.DateRecorded = *req.DateRecorded
	}
	if err := s.vitals.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Owned(ctx, id, userID); err != nil {
		return err
	}
	return s.vitals.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Response, int, error) {
	items, total, err := s.vitals.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toResponses(items), total, nil
}

// Latest returns the newest measurement per type, each annotated with its
// trend against the type's normal range.
func (s *Service) Latest(ctx context.Context, userID uuid.UUID) ([]Response, error) {
	items, err := s.vitals.LatestPerType(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Response, len(items))
	for i, v := range items {
		resp := v.ToResponse()
		trend := ComputeTrend(v)
		resp.Trend = &trend
		out[i] = resp
	}
	return out, nil
}

func (s *Service) Newest(ctx context.Context, userID uuid.UUID, n int) ([]Response, error) {
	items, err := s.vitals.Newest(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

// GetManyOwned resolves ids scoped to the owner for the share collector;
// unknown or foreign ids are silently skipped.
func (s *Service) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Response, error) {
	items, err := s.vitals.GetManyOwned(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func (s *Service) Types(ctx context.Context) ([]Type, error) {
	return s.vitals.ListTypes(ctx)
}

func toResponses(items []*Vital) []Response {
	out := make([]Response, len(items))
	for i, v := range items {
		out[i] = v.ToResponse()
	}
	return out
}
