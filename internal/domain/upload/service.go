package upload

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/platform/filestore"
)

// OwnerChecker verifies that a record exists and belongs to the user.
// Implementations translate their domain errors to ErrNotFound and
// ErrForbidden so the attachment layer stays category-agnostic.
type OwnerChecker func(ctx context.Context, recordID, userID uuid.UUID) error

// Service stores and serves record attachments. A record carries at most
// one attachment; uploading again replaces it.
type Service struct {
	files    Repository
	store    *filestore.Store
	checkers map[Category]OwnerChecker
}

// NewService creates a new attachment service.
func NewService(files Repository, store *filestore.Store, checkers map[Category]OwnerChecker) *Service {
	return &Service{files: files, store: store, checkers: checkers}
}

func (s *Service) checkOwner(ctx context.Context, category Category, recordID, userID uuid.UUID) error {
	if !category.Valid() {
		return ErrUnknownCategory
	}
	check, ok := s.checkers[category]
	if !ok {
		return ErrUnknownCategory
	}
	return check(ctx, recordID, userID)
}

// Upload validates, encrypts, and stores a file against a record the user
// owns, replacing any previous attachment.
func (s *Service) Upload(ctx context.Context, category Category, recordID, userID uuid.UUID, originalName, contentType string, r io.Reader) (*FileUpload, error) {
	if err := s.checkOwner(ctx, category, recordID, userID); err != nil {
		return nil, err
	}
	content, err := s.store.Validate(contentType, r)
	if err != nil {
		return nil, err
	}

	if existing, err := s.files.GetByRecord(ctx, recordID); err == nil {
		s.store.Remove(existing.FilePath)
		if err := s.files.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	f := &FileUpload{
		ID:       uuid.New(),
		FileType: contentType,
		FileSize: int64(len(content)),
	}
	switch category {
	case CategoryVaccines:
		f.VaccineID = &recordID
	case CategoryMedicalHistory:
		f.MedHistoryID = &recordID
	case CategoryLabResults:
		f.LabResultID = &recordID
	}

	name, path, err := s.store.Save(content, recordID, userID, f.ID, originalName)
	if err != nil {
		return nil, err
	}
	f.Name = name
	f.FilePath = path

	if err := s.files.Create(ctx, f); err != nil {
		s.store.Remove(path)
		return nil, err
	}
	return f, nil
}

// Metadata returns the attachment descriptor for a record the user owns.
func (s *Service) Metadata(ctx context.Context, category Category, recordID, userID uuid.UUID) (*Metadata, error) {
	if err := s.checkOwner(ctx, category, recordID, userID); err != nil {
		return nil, err
	}
	f, err := s.files.GetByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	meta := f.ToMetadata()
	return &meta, nil
}

// Open streams the decrypted attachment of a record the user owns.
func (s *Service) Open(ctx context.Context, category Category, recordID, userID uuid.UUID) (io.ReadCloser, *FileUpload, error) {
	if err := s.checkOwner(ctx, category, recordID, userID); err != nil {
		return nil, nil, err
	}
	f, err := s.files.GetByRecord(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(f.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

// OpenOwnedForRecord streams the decrypted attachment of a consultation the
// user owns. Satisfies the opener the lab extraction flow depends on.
func (s *Service) OpenOwnedForRecord(ctx context.Context, recordID, userID uuid.UUID) (io.ReadCloser, string, error) {
	rc, f, err := s.Open(ctx, CategoryMedicalHistory, recordID, userID)
	if err != nil {
		return nil, "", err
	}
	return rc, f.FileType, nil
}

// Delete removes the attachment of a record the user owns.
func (s *Service) Delete(ctx context.Context, category Category, recordID, userID uuid.UUID) error {
	if err := s.checkOwner(ctx, category, recordID, userID); err != nil {
		return err
	}
	return s.RemoveForRecord(ctx, recordID)
}

// RemoveForRecord deletes a record's attachment, row and disk file both.
// Records without an attachment are a no-op; record services call this
// unconditionally on delete.
func (s *Service) RemoveForRecord(ctx context.Context, recordID uuid.UUID) error {
	f, err := s.files.GetByRecord(ctx, recordID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.files.Delete(ctx, f.ID); err != nil {
		return err
	}
	s.store.Remove(f.FilePath)
	return nil
}

// ForRecord looks up a record's attachment without an ownership check.
// Callers are responsible for access control; the share flow authorizes
// through its token before reaching here.
func (s *Service) ForRecord(ctx context.Context, recordID uuid.UUID) (*FileUpload, error) {
	return s.files.GetByRecord(ctx, recordID)
}

// OpenFile streams a previously looked-up attachment.
func (s *Service) OpenFile(f *FileUpload) (io.ReadCloser, error) {
	return s.store.Open(f.FilePath)
}
