package upload

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed attachment repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const uploadCols = `id, name, file_path, file_type, file_size, uploaded_at,
	vaccine_id, medhistory_id, labresult_id`

func scanUpload(row pgx.Row) (*FileUpload, error) {
	var f FileUpload
	err := row.Scan(&f.ID, &f.Name, &f.FilePath, &f.FileType, &f.FileSize, &f.UploadedAt,
		&f.VaccineID, &f.MedHistoryID, &f.LabResultID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repoPG) Create(ctx context.Context, f *FileUpload) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO file_uploads (id, name, file_path, file_type, file_size, vaccine_id, medhistory_id, labresult_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING uploaded_at`,
		f.ID, f.Name, f.FilePath, f.FileType, f.FileSize,
		f.VaccineID, f.MedHistoryID, f.LabResultID).Scan(&f.UploadedAt)
}

func (r *repoPG) GetByRecord(ctx context.Context, recordID uuid.UUID) (*FileUpload, error) {
	// Record ids are uuids, so one lookup covers all three categories.
	return scanUpload(r.conn(ctx).QueryRow(ctx, `
		SELECT `+uploadCols+` FROM file_uploads
		WHERE vaccine_id = $1 OR medhistory_id = $1 OR labresult_id = $1`, recordID))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM file_uploads WHERE id = $1`, id)
	return err
}
