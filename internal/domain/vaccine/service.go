package vaccine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AttachmentRemover deletes the stored attachment for a record, row and disk
// file both. Implemented by the upload service; nil disables cleanup.
type AttachmentRemover interface {
	RemoveForRecord(ctx context.Context, recordID uuid.UUID) error
}

// Service provides business logic for the vaccine domain.
type Service struct {
	vaccines    Repository
	attachments AttachmentRemover
}

// NewService creates a new vaccine service.
func NewService(vaccines Repository, attachments AttachmentRemover) *Service {
	return &Service{vaccines: vaccines, attachments: attachments}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Vaccine, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.Provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if req.DateReceived.IsZero() {
		return nil, fmt.Errorf("date_received is required")
	}
	v := &Vaccine{UserID: userID, Name: req.Name, Provider: req.Provider, DateReceived: req.DateReceived}
	if err := s.vaccines.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Owned fetches a vaccine and verifies ownership. A record belonging to
// another user is Forbidden, not NotFound.
func (s *Service) Owned(ctx context.Context, id, userID uuid.UUID) (*Vaccine, error) {
	v, err := s.vaccines.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, ErrForbidden
	}
	return v, nil
}

func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req UpdateRequest) (*Vaccine, error) {
	v, err := s.Owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		v.Name = *req.Name
	}
	if req.Provider != nil {
		v.Provider = *req.Provider
	}
	if req.DateReceived != nil {
		v.DateReceived = *req.DateReceived
	}
	if err := s.vaccines.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes the vaccine together with its certificate file.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Owned(ctx, id, userID); err != nil {
		return err
	}
	if s.attachments != nil {
		if err := s.attachments.RemoveForRecord(ctx, id); err != nil {
			return err
		}
	}
	return s.vaccines.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Response, int, error) {
	items, total, err := s.vaccines.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toResponses(items), total, nil
}

// Newest returns the user's most recently added vaccines for the dashboard.
func (s *Service) Newest(ctx context.Context, userID uuid.UUID, n int) ([]Response, error) {
	items, err := s.vaccines.Newest(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

// GetManyOwned resolves ids scoped to the owner for the share collector;
// unknown or foreign ids are silently skipped.
func (s *Service) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Response, error) {
	items, err := s.vaccines.GetManyOwned(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func toResponses(items []*Vaccine) []Response {
	out := make([]Response, len(items))
	for i, v := range items {
		out[i] = v.ToResponse()
	}
	return out
}
