package allergy

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// Allergy maps to the allergies table. Allergens and reactions are
// many-to-many links resolved to plain names by the repository.
type Allergy struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	UserID        uuid.UUID     `db:"user_id" json:"-"`
	DateDiagnosed dateonly.Date `db:"date_diagnosed" json:"date_diagnosed"`
	DateAdded     time.Time     `db:"date_added" json:"date_added"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`

	Severity  string   `db:"-" json:"severity"`
	Allergens []string `db:"-" json:"allergens"`
	Reactions []string `db:"-" json:"reactions"`
}

// Response is the transport shape; vocabulary links collapse to names.
type Response struct {
	ID            uuid.UUID     `json:"id"`
	Severity      string        `json:"severity"`
	Allergens     []string      `json:"allergens"`
	Reactions     []string      `json:"reactions"`
	Notes         *string       `json:"notes,omitempty"`
	DateDiagnosed dateonly.Date `json:"date_diagnosed"`
	DateAdded     time.Time     `json:"date_added"`
}

// ToResponse converts an Allergy into its transport shape.
func (a *Allergy) ToResponse() Response {
	return Response{
		ID:            a.ID,
		Severity:      a.Severity,
		Allergens:     a.Allergens,
		Reactions:     a.Reactions,
		Notes:         a.Notes,
		DateDiagnosed: a.DateDiagnosed,
		DateAdded:     a.DateAdded,
	}
}

// CreateRequest names vocabulary entries; the service resolves them to ids.
type CreateRequest struct {
	Severity      string        `json:"severity"`
	Allergens     []string      `json:"allergens"`
	Reactions     []string      `json:"reactions"`
	Notes         *string       `json:"notes,omitempty"`
	DateDiagnosed dateonly.Date `json:"date_diagnosed"`
}

// UpdateRequest carries optional changes; nil fields are untouched.
type UpdateRequest struct {
	Severity      *string        `json:"severity,omitempty"`
	Allergens     []string       `json:"allergens,omitempty"`
	Reactions     []string       `json:"reactions,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
	DateDiagnosed *dateonly.Date `json:"date_diagnosed,omitempty"`
}

// VocabEntry is a reference-data row (allergen, reaction, or severity).
type VocabEntry struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}
