package share

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/allergy"
	"github.com/medvault/medvault/internal/domain/labs"
	"github.com/medvault/medvault/internal/domain/medhistory"
	"github.com/medvault/medvault/internal/domain/medication"
	"github.com/medvault/medvault/internal/domain/vaccine"
	"github.com/medvault/medvault/internal/domain/vitals"
	"github.com/medvault/medvault/pkg/dateonly"
)

// Token maps to the share_tokens table. The PIN is stored hashed; the code
// is the short identifier embedded in the link handed to the viewer.
type Token struct {
	ID             uuid.UUID `db:"id"`
	UserID         uuid.UUID `db:"user_id"`
	ShareCode      string    `db:"share_code"`
	HashedPIN      string    `db:"hashed_pin"`
	Items          ItemSet   `db:"items"`
	ExpirationTime time.Time `db:"expiration_time"`
	CreatedAt      time.Time `db:"created_at"`
}

// Expired reports whether the token is past its expiration time.
func (t *Token) Expired() bool {
	return time.Now().After(t.ExpirationTime)
}

// CreateRequest issues a new share link. TokenLength is the lifetime in
// minutes.
type CreateRequest struct {
	PIN         string  `json:"pin"`
	TokenLength int     `json:"token_length"`
	Items       ItemSet `json:"items"`
}

// CreateResponse hands back only what the owner needs to build the link.
// The PIN never round-trips and the item set is not echoed.
type CreateResponse struct {
	ID             uuid.UUID `json:"id"`
	ShareCode      string    `json:"share_code"`
	ExpirationTime time.Time `json:"expiration_time"`
}

// Summary is the owner-facing listing shape for an issued token.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	ShareCode      string    `json:"share_code"`
	Items          ItemSet   `json:"items"`
	ExpirationTime time.Time `json:"expiration_time"`
	CreatedAt      time.Time `json:"created_at"`
	Expired        bool      `json:"expired"`
}

// ToSummary converts a Token into its owner-facing shape.
func (t *Token) ToSummary() Summary {
	return Summary{
		ID:             t.ID,
		ShareCode:      t.ShareCode,
		Items:          t.Items,
		ExpirationTime: t.ExpirationTime,
		CreatedAt:      t.CreatedAt,
		Expired:        t.Expired(),
	}
}

// VerifyRequest carries the viewer's PIN attempt.
type VerifyRequest struct {
	PIN string `json:"pin"`
}

// Patient is the record owner as presented to the viewer.
type Patient struct {
	Name string         `json:"name"`
	DOB  *dateonly.Date `json:"dob,omitempty"`
}

// Payload is everything a verified viewer sees. Only categories the token
// actually exposes are present.
type Payload struct {
	ExpirationTime time.Time             `json:"expiration_time"`
	Patient        Patient               `json:"patient"`
	Vaccines       []vaccine.Response    `json:"vaccines,omitempty"`
	Allergies      []allergy.Response    `json:"allergies,omitempty"`
	Medications    []medication.Response `json:"medications,omitempty"`
	Vitals         []vitals.Response     `json:"vitals,omitempty"`
	MedicalHistory []medhistory.Response `json:"medicalhistory,omitempty"`
	LabTests       []labs.GroupedTest    `json:"labtests,omitempty"`
}
