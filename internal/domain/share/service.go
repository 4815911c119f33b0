package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/allergy"
	"github.com/medvault/medvault/internal/domain/labs"
	"github.com/medvault/medvault/internal/domain/medhistory"
	"github.com/medvault/medvault/internal/domain/medication"
	"github.com/medvault/medvault/internal/domain/upload"
	"github.com/medvault/medvault/internal/domain/user"
	"github.com/medvault/medvault/internal/domain/vaccine"
	"github.com/medvault/medvault/internal/domain/vitals"
	"github.com/medvault/medvault/internal/platform/auth"
)

// maxTokenMinutes caps a link's lifetime at seven days.
const maxTokenMinutes = 7 * 24 * 60

// codeRetries bounds regeneration attempts on a code collision.
const codeRetries = 5

// ErrInvalidRequest marks creation inputs the caller can correct. Errors not
// wrapping it surface as a generic failure, never with internal detail.
var ErrInvalidRequest = errors.New("invalid share request")

// Sources are the owner-scoped readers the payload is collected from. Every
// read is keyed by the token owner's id, so a token can never expose records
// its issuer does not own.
type Sources struct {
	Users          UserSource
	Vaccines       VaccineSource
	Allergies      AllergySource
	Medications    MedicationSource
	Vitals         VitalsSource
	MedicalHistory HistorySource
	Labs           LabSource
}

type UserSource interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type VaccineSource interface {
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]vaccine.Response, error)
}

type AllergySource interface {
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]allergy.Response, error)
}

type MedicationSource interface {
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]medication.Response, error)
}

type VitalsSource interface {
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]vitals.Response, error)
}

type HistorySource interface {
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]medhistory.Response, error)
}

type LabSource interface {
	GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]labs.GroupedTest, error)
}

// AttachmentSource resolves and streams record attachments for verified
// viewers. Access control happens here in the share service, not there.
type AttachmentSource interface {
	ForRecord(ctx context.Context, recordID uuid.UUID) (*upload.FileUpload, error)
	OpenFile(f *upload.FileUpload) (io.ReadCloser, error)
}

// Service issues, verifies, and revokes PIN-protected share links.
type Service struct {
	tokens      Repository
	src         Sources
	attachments AttachmentSource
	logger      zerolog.Logger
}

// NewService creates a new share service.
func NewService(tokens Repository, src Sources, attachments AttachmentSource, logger zerolog.Logger) *Service {
	return &Service{tokens: tokens, src: src, attachments: attachments,
		logger: logger.With().Str("component", "share").Logger()}
}

func validatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return fmt.Errorf("%w: pin must be 4 to 8 digits", ErrInvalidRequest)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: pin must contain only digits", ErrInvalidRequest)
		}
	}
	return nil
}

// Create issues a share link. The item set is normalized before storage and
// the PIN is stored hashed; the response never echoes either.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*CreateResponse, error) {
	if err := validatePIN(req.PIN); err != nil {
		return nil, err
	}
	if req.TokenLength <= 0 || req.TokenLength > maxTokenMinutes {
		return nil, fmt.Errorf("%w: token_length must be between 1 and %d minutes", ErrInvalidRequest, maxTokenMinutes)
	}
	items, err := req.Items.Normalize()
	if err != nil {
		return nil, err
	}
	if items.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one record must be shared", ErrInvalidRequest)
	}

	hashedPIN, err := auth.Hash(req.PIN)
	if err != nil {
		return nil, err
	}
	t := &Token{
		UserID:         userID,
		HashedPIN:      hashedPIN,
		Items:          items,
		ExpirationTime: time.Now().Add(time.Duration(req.TokenLength) * time.Minute),
	}
	for attempt := 0; ; attempt++ {
		t.ShareCode, err = generateCode()
		if err != nil {
			return nil, err
		}
		err = s.tokens.Create(ctx, t)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrCodeTaken) || attempt == codeRetries {
			return nil, err
		}
	}
	s.logger.Info().Str("code", t.ShareCode).Time("expires", t.ExpirationTime).Msg("share link issued")
	return &CreateResponse{ID: t.ID, ShareCode: t.ShareCode, ExpirationTime: t.ExpirationTime}, nil
}

// authorize runs the access checks in fixed order: the code must resolve,
// the token must be live, and only then is the PIN compared. An expired
// token answers Expired even to a wrong PIN.
func (s *Service) authorize(ctx context.Context, code, pin string) (*Token, error) {
	t, err := s.tokens.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if t.Expired() {
		return nil, ErrExpired
	}
	if !auth.Verify(pin, t.HashedPIN) {
		return nil, ErrInvalidPIN
	}
	return t, nil
}

// Check reports whether a code resolves to a live link without asking for
// the PIN, so clients can show the PIN prompt only for links worth opening.
func (s *Service) Check(ctx context.Context, code string) error {
	t, err := s.tokens.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if t.Expired() {
		return ErrExpired
	}
	return nil
}

// Verify authorizes a viewer and collects the shared payload. Ids that no
// longer resolve to owned records are silently absent; a record deleted
// after sharing simply disappears from the view.
func (s *Service) Verify(ctx context.Context, code, pin string) (*Payload, error) {
	t, err := s.authorize(ctx, code, pin)
	if err != nil {
		return nil, err
	}

	owner, err := s.src.Users.Get(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	p := &Payload{
		ExpirationTime: t.ExpirationTime,
		Patient:        Patient{Name: owner.Name, DOB: owner.DOB},
	}

	for category, ids := range t.Items {
		if len(ids) == 0 {
			continue
		}
		switch category {
		case CatVaccines:
			p.Vaccines, err = s.src.Vaccines.GetManyOwned(ctx, t.UserID, ids)
		case CatAllergies:
			p.Allergies, err = s.src.Allergies.GetManyOwned(ctx, t.UserID, ids)
		case CatMedications:
			p.Medications, err = s.src.Medications.GetManyOwned(ctx, t.UserID, ids)
		case CatVitals:
			p.Vitals, err = s.src.Vitals.GetManyOwned(ctx, t.UserID, ids)
		case CatMedicalHistory:
			p.MedicalHistory, err = s.src.MedicalHistory.GetManyOwned(ctx, t.UserID, ids)
		case CatLabResults:
			p.LabTests, err = s.src.Labs.GetManyOwned(ctx, t.UserID, ids)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// recordOwned reports whether a record id still resolves to a record the
// token issuer owns in the given category. The owner-scoped readers silently
// drop foreign ids, so an empty result means no access.
func (s *Service) recordOwned(ctx context.Context, userID uuid.UUID, category string, recordID uuid.UUID) (bool, error) {
	ids := []uuid.UUID{recordID}
	switch category {
	case CatVaccines:
		rs, err := s.src.Vaccines.GetManyOwned(ctx, userID, ids)
		return len(rs) > 0, err
	case CatAllergies:
		rs, err := s.src.Allergies.GetManyOwned(ctx, userID, ids)
		return len(rs) > 0, err
	case CatMedications:
		rs, err := s.src.Medications.GetManyOwned(ctx, userID, ids)
		return len(rs) > 0, err
	case CatVitals:
		rs, err := s.src.Vitals.GetManyOwned(ctx, userID, ids)
		return len(rs) > 0, err
	case CatMedicalHistory:
		rs, err := s.src.MedicalHistory.GetManyOwned(ctx, userID, ids)
		return len(rs) > 0, err
	case CatLabResults:
		groups, err := s.src.Labs.GetManyOwned(ctx, userID, ids)
		if err != nil {
			return false, err
		}
		for _, g := range groups {
			if len(g.Results) > 0 {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

// sharedFile authorizes the viewer and resolves the attachment. The record
// must be in the token's item set AND resolve through the issuer's own
// records; an item set listing a record id the issuer does not own grants
// nothing, same as the payload collectors.
func (s *Service) sharedFile(ctx context.Context, code, pin string, recordID uuid.UUID) (*upload.FileUpload, error) {
	t, err := s.authorize(ctx, code, pin)
	if err != nil {
		return nil, err
	}
	category, ok := t.Items.CategoryOf(recordID)
	if !ok {
		return nil, ErrForbidden
	}
	owned, err := s.recordOwned(ctx, t.UserID, category, recordID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrForbidden
	}
	return s.attachments.ForRecord(ctx, recordID)
}

// SharedFileMetadata describes the attachment of a shared record.
func (s *Service) SharedFileMetadata(ctx context.Context, code, pin string, recordID uuid.UUID) (*upload.Metadata, error) {
	f, err := s.sharedFile(ctx, code, pin, recordID)
	if err != nil {
		return nil, err
	}
	meta := f.ToMetadata()
	return &meta, nil
}

// OpenSharedFile streams the decrypted attachment of a shared record. Every
// call re-runs the full authorization; a token revoked or expired between
// requests cuts file access off immediately.
func (s *Service) OpenSharedFile(ctx context.Context, code, pin string, recordID uuid.UUID) (io.ReadCloser, *upload.FileUpload, error) {
	f, err := s.sharedFile(ctx, code, pin, recordID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.attachments.OpenFile(f)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

// ListMine returns the user's issued tokens, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]Summary, error) {
	items, err := s.tokens.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(items))
	for i, t := range items {
		out[i] = t.ToSummary()
	}
	return out, nil
}

// Revoke deletes a token the user issued. Revocation is immediate: the next
// lookup by code fails and file access with it.
func (s *Service) Revoke(ctx context.Context, id, userID uuid.UUID) error {
	t, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return ErrForbidden
	}
	return s.tokens.Delete(ctx, id)
}

// PurgeExpired removes expired tokens and reports how many went.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}
