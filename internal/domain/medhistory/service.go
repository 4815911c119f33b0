package medhistory

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

// Service provides business logic for the medical history domain.
type Service struct {
	history     Repository
	attachments AttachmentRemover
}

// NewService creates a new medical history service.
func NewService(history Repository, attachments AttachmentRemover) *Service {
	return &Service{history: history, attachments: attachments}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*MedicalHistory, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.DoctorName == "" {
		return nil, fmt.Errorf("doctor_name is required")
	}
	if req.Category == "" || req.Subcategory == "" {
		return nil, fmt.Errorf("category and subcategory are required")
	}
	if req.DateConsultation.IsZero() {
		return nil, fmt.Errorf("date_consultation is required")
	}
	categoryID, subcategoryID, err := s.history.ResolveSubcategory(ctx, req.Category, req.Subcategory)
	if err != nil {
		return nil, err
	}
	m := &MedicalHistory{
		UserID:           userID,
		Name:             req.Name,
		DoctorName:       req.DoctorName,
		Place:            req.Place,
		Notes:            req.Notes,
		Category:         req.Category,
		Subcategory:      req.Subcategory,
		DateConsultation: req.DateConsultation,
	}
	if err := s.history.Create(ctx, m, categoryID, subcategoryID); err != nil {
		return nil, err
	}
	return m, nil
}

// Owned fetches a consultation and verifies ownership. A record belonging
// to another user is Forbidden, not NotFound.
func (s *Service) Owned(ctx context.Context, id, userID uuid.UUID) (*MedicalHistory, error) {
	m, err := s.history.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrForbidden
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req UpdateRequest) (*MedicalHistory, error) {
	m, err := s.Owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	// Merge into a copy so a rejected update leaves the fetched record
	// untouched; nothing is assigned back before validation passes.
	next := *m
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		next.Name = *req.Name
	}
	if req.DoctorName != nil {
		next.DoctorName = *req.DoctorName
	}
	if req.Place != nil {
		next.Place = req.Place
	}
	if req.Notes != nil {
		next.Notes = req.Notes
	}
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.Subcategory != nil {
		next.Subcategory = *req.Subcategory
	}
	if req.DateConsultation != nil {
		next.DateConsultation = *req.DateConsultation
	}
	// Category and subcategory always travel together through resolution
	// so a partial change is still validated as a pair.
	categoryID, subcategoryID, err := s.history.ResolveSubcategory(ctx, next.Category, next.Subcategory)
	if err != nil {
		return nil, err
	}
	if err := s.history.Update(ctx, &next, categoryID, subcategoryID); err != nil {
		return nil, err
	}
	return &next, nil
}

// Delete removes the consultation together with its attached report.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Owned(ctx, id, userID); err != nil {
		return err
	}
	if s.attachments != nil {
		if err := s.attachments.RemoveForRecord(ctx, id); err != nil {
			return err
		}
	}
	return s.history.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Response, int, error) {
	items, total, err := s.history.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toResponses(items), total, nil
}

// Newest returns the user's most recently added consultations for the dashboard.
func (s *Service) Newest(ctx context.Context, userID uuid.UUID, n int) ([]Response, error) {
	items, err := s.history.Newest(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

// GetManyOwned resolves ids scoped to the owner for the share collector;
// unknown or foreign ids are silently skipped.
func (s *Service) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Response, error) {
	items, err := s.history.GetManyOwned(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func (s *Service) Categories(ctx context.Context) ([]VocabEntry, error) {
	return s.history.ListCategories(ctx)
}

func (s *Service) Subcategories(ctx context.Context, categoryID uuid.UUID) ([]Subcategory, error) {
	return s.history.ListSubcategories(ctx, categoryID)
}

func toResponses(items []*MedicalHistory) []Response {
	out := make([]Response, len(items))
	for i, m := range items {
		out[i] = m.ToResponse()
	}
	return out
}
