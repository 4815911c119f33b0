package upload

import (
	"time"

	"github.com/google/uuid"
)

// Category names the kind of record an attachment belongs to. Each category
// maps to one foreign key column on file_uploads.
type Category string

const (
	CategoryVaccines       Category = "vaccines"
	CategoryMedicalHistory Category = "medicalhistory"
	CategoryLabResults     Category = "labresults"
)

// Valid reports whether the category is one we store attachments for.
func (c Category) Valid() bool {
	switch c {
	case CategoryVaccines, CategoryMedicalHistory, CategoryLabResults:
		return true
	}
	return false
}

// FileUpload maps to the file_uploads table. Exactly one of the record
// foreign keys is set.
type FileUpload struct {
	ID         uuid.UUID `db:"id"`
	Name       string    `db:"name"`
	FilePath   string    `db:"file_path"`
	FileType   string    `db:"file_type"`
	FileSize   int64     `db:"file_size"`
	UploadedAt time.Time `db:"uploaded_at"`

	VaccineID    *uuid.UUID `db:"vaccine_id"`
	MedHistoryID *uuid.UUID `db:"medhistory_id"`
	LabResultID  *uuid.UUID `db:"labresult_id"`
}

// Metadata is the transport shape. The storage path stays server-side;
// clients address files only through their owning record.
type Metadata struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	FileType string    `json:"file_type"`
	FileSize int64     `json:"file_size"`
}

// ToMetadata converts a FileUpload into its transport shape.
func (f *FileUpload) ToMetadata() Metadata {
	return Metadata{ID: f.ID, Name: f.Name, FileType: f.FileType, FileSize: f.FileSize}
}
