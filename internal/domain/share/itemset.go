package share

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Canonical item set categories. Each key selects a record domain; the ids
// under it are the records the token exposes.
const (
	CatVaccines       = "vaccines"
	CatAllergies      = "allergies"
	CatMedications    = "medications"
	CatVitals         = "vitals"
	CatMedicalHistory = "medicalhistory"
	CatLabResults     = "labresults"
)

// aliases maps display names older clients send to canonical keys.
var aliases = map[string]string{
	"vaccinuri":   CatVaccines,
	"alergii":     CatAllergies,
	"medicamente": CatMedications,
	"analize":     CatLabResults,
}

var validCategories = map[string]bool{
	CatVaccines:       true,
	CatAllergies:      true,
	CatMedications:    true,
	CatVitals:         true,
	CatMedicalHistory: true,
	CatLabResults:     true,
}

// ItemSet maps categories to record ids. It is stored as jsonb on the token
// row, always in canonical form.
type ItemSet map[string][]uuid.UUID

// Normalize folds aliases into canonical keys, validating every category and
// dropping duplicate ids. Tokens are only ever stored normalized, so reads
// never re-run this.
func (s ItemSet) Normalize() (ItemSet, error) {
	out := make(ItemSet, len(s))
	for key, ids := range s {
		canonical := strings.ToLower(strings.TrimSpace(key))
		if alias, ok := aliases[canonical]; ok {
			canonical = alias
		}
		if !validCategories[canonical] {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, key)
		}
		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			if id == uuid.Nil || seen[id] {
				continue
			}
			seen[id] = true
			out[canonical] = append(out[canonical], id)
		}
	}
	return out, nil
}

// IsEmpty reports whether the set exposes no records at all.
func (s ItemSet) IsEmpty() bool {
	for _, ids := range s {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// Contains reports whether a record id appears anywhere in the set.
func (s ItemSet) Contains(recordID uuid.UUID) bool {
	_, ok := s.CategoryOf(recordID)
	return ok
}

// CategoryOf returns the category a record id is shared under. File access
// through a token is gated on membership, and the category drives the
// owner-scoped lookup that follows.
func (s ItemSet) CategoryOf(recordID uuid.UUID) (string, bool) {
	for category, ids := range s {
		for _, id := range ids {
			if id == recordID {
				return category, true
			}
		}
	}
	return "", false
}
