package labs

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/db"
)

// AttachmentOpener streams the decrypted attachment of a record the user
// owns. Implemented by the upload service; it verifies ownership itself.
type AttachmentOpener interface {
	OpenOwnedForRecord(ctx context.Context, recordID, userID uuid.UUID) (io.ReadCloser, string, error)
}

// AttachmentRemover deletes the stored attachment for a record, row and disk
// file both. Implemented by the upload service; nil disables cleanup.
type AttachmentRemover interface {
	RemoveForRecord(ctx context.Context, recordID uuid.UUID) error
}

// Service provides business logic for the lab results domain.
type Service struct {
	results     Repository
	pool        *pgxpool.Pool
	attachments AttachmentRemover
	reports     AttachmentOpener
	extractor   *Extractor
}

// NewService creates a new lab service. The pool drives the transaction
// around test-plus-result writes; nil runs them untransacted (tests).
func NewService(results Repository, pool *pgxpool.Pool, attachments AttachmentRemover, reports AttachmentOpener, extractor *Extractor) *Service {
	return &Service{results: results, pool: pool, attachments: attachments, reports: reports, extractor: extractor}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*LabResult, error) {
	if req.TestName == "" || req.TestCode == "" {
		return nil, fmt.Errorf("test_name and test_code are required")
	}
	if req.Value == "" {
		return nil, fmt.Errorf("value is required")
	}
	if req.DateCollection.IsZero() {
		return nil, fmt.Errorf("date_collection is required")
	}
	var lr *LabResult
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		test, err := s.results.GetOrCreateTest(ctx, req.TestName, req.TestCode)
		if err != nil {
			return err
		}
		lr = &LabResult{
			UserID:           userID,
			LabTestID:        test.ID,
			MedicalHistoryID: req.MedicalHistoryID,
			Value:            req.Value,
			IsNumeric:        isNumericValue(req.Value),
			Unit:             req.Unit,
			ReferenceRange:   req.ReferenceRange,
			Method:           req.Method,
			DateCollection:   req.DateCollection,
			TestName:         test.Name,
			TestCode:         test.Code,
		}
		return s.results.Create(ctx, lr)
	})
	if err != nil {
		return nil, err
	}
	return lr, nil
}

// Owned fetches a result and verifies ownership. A record belonging to
// another user is Forbidden, not NotFound.
func (s *Service) Owned(ctx context.Context, id, userID uuid.UUID) (*LabResult, error) {
	lr, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lr.UserID != userID {
		return nil, ErrForbidden
	}
	return lr, nil
}

func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req UpdateRequest) (*LabResult, error) {
	lr, err := s.Owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if req.Value != nil {
		if *req.Value == "" {
			return nil, fmt.Errorf("value cannot be empty")
		}
		lr.Value = *req.Value
		lr.IsNumeric = isNumericValue(*req.Value)
	}
	if req.Unit != nil {
		lr.Unit = req.Unit
	}
	if req.ReferenceRange != nil {
		lr.ReferenceRange = req.ReferenceRange
	}
	if req.Method != nil {
		lr.Method = req.Method
	}
	if req.DateCollection != nil {
		lr.DateCollection = *req.DateCollection
	}
	if err := s.results.Update(ctx, lr); err != nil {
		return nil, err
	}
	return lr, nil
}

// Delete removes the result together with any attached report file.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Owned(ctx, id, userID); err != nil {
		return err
	}
	if s.attachments != nil {
		if err := s.attachments.RemoveForRecord(ctx, id); err != nil {
			return err
		}
	}
	return s.results.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Response, int, error) {
	items, total, err := s.results.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toResponses(items), total, nil
}

// Newest returns the user's most recently added results for the dashboard.
func (s *Service) Newest(ctx context.Context, userID uuid.UUID, n int) ([]Response, error) {
	items, err := s.results.Newest(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

// Grouped returns all of the user's results regrouped by test, newest
// collection first within each test.
func (s *Service) Grouped(ctx context.Context, userID uuid.UUID) ([]GroupedTest, error) {
	items, err := s.results.AllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GroupByTest(items), nil
}

// GetManyOwned resolves ids scoped to the owner for the share collector;
// unknown or foreign ids are silently skipped. Results are regrouped by
// test so the viewer sees series, not loose rows.
func (s *Service) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]GroupedTest, error) {
	items, err := s.results.GetManyOwned(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	return GroupByTest(items), nil
}

// ExtractFromConsultation runs the extraction service over the report
// attached to a consultation and returns the rows it found. Nothing is
// saved; the client reviews the rows and creates results explicitly.
func (s *Service) ExtractFromConsultation(ctx context.Context, medhistoryID, userID uuid.UUID) ([]ExtractedResult, error) {
	if !s.extractor.Enabled() {
		return nil, ErrExtractorDisabled
	}
	rc, contentType, err := s.reports.OpenOwnedForRecord(ctx, medhistoryID, userID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(ctx, content, contentType)
}

// GroupByTest folds results into one entry per test, preserving input
// order within each group. Input ordered newest collection first therefore
// yields groups ordered the same way.
func GroupByTest(items []*LabResult) []GroupedTest {
	var groups []GroupedTest
	index := make(map[uuid.UUID]int)
	for _, lr := range items {
		i, ok := index[lr.LabTestID]
		if !ok {
			i = len(groups)
			index[lr.LabTestID] = i
			groups = append(groups, GroupedTest{ID: lr.LabTestID, Name: lr.TestName, Code: lr.TestCode})
		}
		groups[i].Results = append(groups[i].Results, lr.ToResponse())
	}
	return groups
}

func toResponses(items []*LabResult) []Response {
	out := make([]Response, len(items))
	for i, lr := range items {
		out[i] = lr.ToResponse()
	}
	return out
}
