package labs

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// LabTest is a test reference row, shared by all results recorded against
// the same test. Tests are created lazily the first time a result names them.
type LabTest struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Code string    `db:"code" json:"code"`
}

// LabResult maps to the lab_results table. Values are kept as text; numeric
// values are flagged so clients can chart them.
type LabResult struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	UserID           uuid.UUID     `db:"user_id" json:"-"`
	LabTestID        uuid.UUID     `db:"labtest_id" json:"-"`
	MedicalHistoryID *uuid.UUID    `db:"medicalhistory_id" json:"medicalhistory_id,omitempty"`
	Value            string        `db:"value" json:"value"`
	IsNumeric        bool          `db:"is_numeric" json:"is_numeric"`
	Unit             *string       `db:"unit" json:"unit,omitempty"`
	ReferenceRange   *string       `db:"reference_range" json:"reference_range,omitempty"`
	Method           *string       `db:"method" json:"method,omitempty"`
	DateCollection   dateonly.Date `db:"date_collection" json:"date_collection"`
	DateAdded        time.Time     `db:"date_added" json:"date_added"`

	TestName string `db:"-" json:"test_name"`
	TestCode string `db:"-" json:"test_code"`
}

// Response is the transport shape for a single result.
type Response struct {
	ID               uuid.UUID     `json:"id"`
	TestName         string        `json:"test_name"`
	TestCode         string        `json:"test_code"`
	Value            string        `json:"value"`
	IsNumeric        bool          `json:"is_numeric"`
	Unit             *string       `json:"unit,omitempty"`
	ReferenceRange   *string       `json:"reference_range,omitempty"`
	Method           *string       `json:"method,omitempty"`
	MedicalHistoryID *uuid.UUID    `json:"medicalhistory_id,omitempty"`
	DateCollection   dateonly.Date `json:"date_collection"`
	DateAdded        time.Time     `json:"date_added"`
}

// ToResponse converts a LabResult into its transport shape.
func (r *LabResult) ToResponse() Response {
	return Response{
		ID:               r.ID,
		TestName:         r.TestName,
		TestCode:         r.TestCode,
		Value:            r.Value,
		IsNumeric:        r.IsNumeric,
		Unit:             r.Unit,
		ReferenceRange:   r.ReferenceRange,
		Method:           r.Method,
		MedicalHistoryID: r.MedicalHistoryID,
		DateCollection:   r.DateCollection,
		DateAdded:        r.DateAdded,
	}
}

// GroupedTest is the test-centric view: one entry per test with its results
// ordered newest collection first.
type GroupedTest struct {
	ID      uuid.UUID  `json:"id"`
	Name    string     `json:"name"`
	Code    string     `json:"code"`
	Results []Response `json:"results"`
}

// CreateRequest records a result; the test is referenced by name and code
// and created on first use.
type CreateRequest struct {
	TestName         string        `json:"test_name"`
	TestCode         string        `json:"test_code"`
	Value            string        `json:"value"`
	Unit             *string       `json:"unit,omitempty"`
	ReferenceRange   *string       `json:"reference_range,omitempty"`
	Method           *string       `json:"method,omitempty"`
	MedicalHistoryID *uuid.UUID    `json:"medicalhistory_id,omitempty"`
	DateCollection   dateonly.Date `json:"date_collection"`
}

// UpdateRequest carries optional changes; nil fields are untouched.
type UpdateRequest struct {
	Value          *string        `json:"value,omitempty"`
	Unit           *string        `json:"unit,omitempty"`
	ReferenceRange *string        `json:"reference_range,omitempty"`
	Method         *string        `json:"method,omitempty"`
	DateCollection *dateonly.Date `json:"date_collection,omitempty"`
}

// isNumericValue reports whether a value can be charted. Lab reports in
// Romanian locales use the decimal comma.
func isNumericValue(value string) bool {
	v := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}
