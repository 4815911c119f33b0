package medication

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// Medication maps to the medications table. Route and form are vocabulary
// references resolved to names by the repository.
type Medication struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	UserID         uuid.UUID     `db:"user_id" json:"-"`
	Name           string        `db:"name" json:"name"`
	Dosage         string        `db:"dosage" json:"dosage"`
	Frequency      string        `db:"frequency" json:"frequency"`
	TimeOfDay      *string       `db:"time_of_day" json:"time_of_day,omitempty"`
	DurationDays   *int          `db:"duration_days" json:"duration_days,omitempty"`
	Notes          *string       `db:"notes" json:"notes,omitempty"`
	DatePrescribed dateonly.Date `db:"date_prescribed" json:"date_prescribed"`
	DateAdded      time.Time     `db:"date_added" json:"date_added"`

	Route string `db:"-" json:"route"`
	Form  string `db:"-" json:"form"`
}

// Response is the transport shape with route and form as plain names.
type Response struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	Dosage         string        `json:"dosage"`
	Frequency      string        `json:"frequency"`
	TimeOfDay      *string       `json:"time_of_day,omitempty"`
	DurationDays   *int          `json:"duration_days,omitempty"`
	Route          string        `json:"route"`
	Form           string        `json:"form"`
	Notes          *string       `json:"notes,omitempty"`
	DatePrescribed dateonly.Date `json:"date_prescribed"`
	DateAdded      time.Time     `json:"date_added"`
}

// ToResponse converts a Medication into its transport shape.
func (m *Medication) ToResponse() Response {
	return Response{
		ID:             m.ID,
		Name:           m.Name,
		Dosage:         m.Dosage,
		Frequency:      m.Frequency,
		TimeOfDay:      m.TimeOfDay,
		DurationDays:   m.DurationDays,
		Route:          m.Route,
		Form:           m.Form,
		Notes:          m.Notes,
		DatePrescribed: m.DatePrescribed,
		DateAdded:      m.DateAdded,
	}
}

// CreateRequest names the route and form; the service resolves them to ids.
type CreateRequest struct {
	Name           string        `json:"name"`
	Dosage         string        `json:"dosage"`
	Frequency      string        `json:"frequency"`
	TimeOfDay      *string       `json:"time_of_day,omitempty"`
	DurationDays   *int          `json:"duration_days,omitempty"`
	Route          string        `json:"route"`
	Form           string        `json:"form"`
	Notes          *string       `json:"notes,omitempty"`
	DatePrescribed dateonly.Date `json:"date_prescribed"`
}

// UpdateRequest carries optional changes; nil fields are untouched.
type UpdateRequest struct {
	Name           *string        `json:"name,omitempty"`
	Dosage         *string        `json:"dosage,omitempty"`
	Frequency      *string        `json:"frequency,omitempty"`
	TimeOfDay      *string        `json:"time_of_day,omitempty"`
	DurationDays   *int           `json:"duration_days,omitempty"`
	Route          *string        `json:"route,omitempty"`
	Form           *string        `json:"form,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	DatePrescribed *dateonly.Date `json:"date_prescribed,omitempty"`
}

// VocabEntry is a reference-data row (route or form).
type VocabEntry struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}
