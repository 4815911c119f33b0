package vitals

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// Vital maps to the health_data table. The measurement type (name, unit,
// compoundness, normal range) is resolved from vital_types by the repository.
type Vital struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	UserID         uuid.UUID     `db:"user_id" json:"-"`
	Value          *float64      `db:"value" json:"value,omitempty"`
	ValueSystolic  *float64      `db:"value_systolic" json:"value_systolic,omitempty"`
	ValueDiastolic *float64      `db:"value_diastolic" json:"value_diastolic,omitempty"`
	Notes          *string       `db:"notes" json:"notes,omitempty"`
	DateRecorded   dateonly.Date `db:"date_recorded" json:"date_recorded"`
	DateAdded      time.Time     `db:"date_added" json:"date_added"`

	TypeName    string  `db:"-" json:"name"`
	Unit        string  `db:"-" json:"unit"`
	IsCompound  bool    `db:"-" json:"-"`
	NormalRange *string `db:"-" json:"normal_range,omitempty"`
}

// Response is the transport shape. Trend is only set on latest-per-type
// reads; it compares the newest value against the type's normal range.
type Response struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	Unit           string        `json:"unit"`
	Value          *float64      `json:"value,omitempty"`
	ValueSystolic  *float64      `json:"value_systolic,omitempty"`
	ValueDiastolic *float64      `json:"value_diastolic,omitempty"`
	Notes          *string       `json:"notes,omitempty"`
	NormalRange    *string       `json:"normal_range,omitempty"`
	Trend          *string       `json:"trend,omitempty"`
	DateRecorded   dateonly.Date `json:"date_recorded"`
	DateAdded      time.Time     `json:"date_added"`
}

// ToResponse converts a Vital into its transport shape.
func (v *Vital) ToResponse() Response {
	return Response{
		ID:             v.ID,
		Name:           v.TypeName,
		Unit:           v.Unit,
		Value:          v.Value,
		ValueSystolic:  v.ValueSystolic,
		ValueDiastolic: v.ValueDiastolic,
		Notes:          v.Notes,
		NormalRange:    v.NormalRange,
		DateRecorded:   v.DateRecorded,
		DateAdded:      v.DateAdded,
	}
}

// CreateRequest records a simple single-value measurement.
type CreateRequest struct {
	Name         string        `json:"name"`
	Value        float64       `json:"value"`
	Notes        *string       `json:"notes,omitempty"`
	DateRecorded dateonly.Date `json:"date_recorded"`
}

// BloodPressureRequest records a compound systolic/diastolic measurement.
type BloodPressureRequest struct {
	Name           string        `json:"name"`
	ValueSystolic  float64       `json:"value_systolic"`
	ValueDiastolic float64       `json:"value_diastolic"`
	Notes          *string       `json:"notes,omitempty"`
	DateRecorded   dateonly.Date `json:"date_recorded"`
}

// UpdateRequest carries optional changes; nil fields are untouched.
type UpdateRequest struct {
	Value          *float64       `json:"value,omitempty"`
	ValueSystolic  *float64       `json:"value_systolic,omitempty"`
	ValueDiastolic *float64       `json:"value_diastolic,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	DateRecorded   *dateonly.Date `json:"date_recorded,omitempty"`
}

// Type is a measurement type reference row.
type Type struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Unit        string    `db:"unit" json:"unit"`
	IsCompound  bool      `db:"is_compound" json:"is_compound"`
	NormalRange *string   `db:"normal_range" json:"normal_range,omitempty"`
}
