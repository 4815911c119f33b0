package vaccine

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// Vaccine maps to the vaccines table.
type Vaccine struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	UserID       uuid.UUID     `db:"user_id" json:"-"`
	Name         string        `db:"name" json:"name"`
	Provider     string        `db:"provider" json:"provider"`
	DateReceived dateonly.Date `db:"date_received" json:"date_received"`
	DateAdded    time.Time     `db:"date_added" json:"date_added"`

	// HasCertificate is resolved by the repository from the file_uploads
	// table; it is not a column on vaccines.
	HasCertificate bool `db:"-" json:"-"`
}

// Response is the transport shape; certificate collapses to presence.
type Response struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Provider     string        `json:"provider"`
	DateReceived dateonly.Date `json:"date_received"`
	DateAdded    time.Time     `json:"date_added"`
	Certificate  bool          `json:"certificate"`
}

// ToResponse converts a Vaccine into its transport shape.
func (v *Vaccine) ToResponse() Response {
	return Response{
		ID:           v.ID,
		Name:         v.Name,
		Provider:     v.Provider,
		DateReceived: v.DateReceived,
		DateAdded:    v.DateAdded,
		Certificate:  v.HasCertificate,
	}
}

// CreateRequest is the creation payload.
type CreateRequest struct {
	Name         string        `json:"name"`
	Provider     string        `json:"provider"`
	DateReceived dateonly.Date `json:"date_received"`
}

// UpdateRequest carries optional changes; nil fields are untouched.
type UpdateRequest struct {
	Name         *string        `json:"name,omitempty"`
	Provider     *string        `json:"provider,omitempty"`
	DateReceived *dateonly.Date `json:"date_received,omitempty"`
}
