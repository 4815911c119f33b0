package medhistory

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// MedicalHistory maps to the medical_history table. Category and
// Subcategory are resolved names; the table stores reference ids.
type MedicalHistory struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	UserID           uuid.UUID     `db:"user_id" json:"-"`
	Name             string        `db:"name" json:"name"`
	DoctorName       string        `db:"doctor_name" json:"doctor_name"`
	Place            *string       `db:"place" json:"place,omitempty"`
	Notes            *string       `db:"notes" json:"notes,omitempty"`
	DateConsultation dateonly.Date `db:"date_consultation" json:"date_consultation"`
	DateAdded        time.Time     `db:"date_added" json:"date_added"`

	Category    string `db:"-" json:"category"`
	Subcategory string `db:"-" json:"subcategory"`

	// HasFile is resolved from file_uploads; consultations can carry a
	// scanned report.
	HasFile bool `db:"-" json:"-"`
}

// Response is the transport shape; the attachment collapses to presence.
type Response struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	DoctorName       string        `json:"doctor_name"`
	Place            *string       `json:"place,omitempty"`
	Notes            *string       `json:"notes,omitempty"`
	Category         string        `json:"category"`
	Subcategory      string        `json:"subcategory"`
	DateConsultation dateonly.Date `json:"date_consultation"`
	DateAdded        time.Time     `json:"date_added"`
	File             bool          `json:"file"`
}

// ToResponse converts a MedicalHistory into its transport shape.
func (m *MedicalHistory) ToResponse() Response {
	return Response{
		ID:               m.ID,
		Name:             m.Name,
		DoctorName:       m.DoctorName,
		Place:            m.Place,
		Notes:            m.Notes,
		Category:         m.Category,
		Subcategory:      m.Subcategory,
		DateConsultation: m.DateConsultation,
		DateAdded:        m.DateAdded,
		File:             m.HasFile,
	}
}

// CreateRequest is the creation payload. Category and subcategory are
// given by name and resolved against the reference tables.
type CreateRequest struct {
	Name             string        `json:"name"`
	DoctorName       string        `json:"doctor_name"`
	Place            *string       `json:"place,omitempty"`
	Notes            *string       `json:"notes,omitempty"`
	Category         string        `json:"category"`
	Subcategory      string        `json:"subcategory"`
	DateConsultation dateonly.Date `json:"date_consultation"`
}

// UpdateRequest carries optional changes; nil fields are untouched.
type UpdateRequest struct {
	Name             *string        `json:"name,omitempty"`
	DoctorName       *string        `json:"doctor_name,omitempty"`
	Place            *string        `json:"place,omitempty"`
	Notes            *string        `json:"notes,omitempty"`
	Category         *string        `json:"category,omitempty"`
	Subcategory      *string        `json:"subcategory,omitempty"`
	DateConsultation *dateonly.Date `json:"date_consultation,omitempty"`
}

// VocabEntry is a reference table row.
type VocabEntry struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// Subcategory belongs to a category; listing is grouped by parent.
type Subcategory struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	CategoryID uuid.UUID `db:"category_id" json:"category_id"`
}
