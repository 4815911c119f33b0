package labs

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

// NewRepoPG creates a Postgres-backed lab repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const resultSelect = `
	SELECT r.id, r.user_id, r.labtest_id, r.medicalhistory_id, r.value, r.is_numeric,
		r.unit, r.reference_range, r.method, r.date_collection, r.date_added,
		t.name, t.code
	FROM lab_results r
	JOIN lab_tests t ON t.id = r.labtest_id`

func scanResult(row pgx.Row) (*LabResult, error) {
	var lr LabResult
	err := row.Scan(&lr.ID, &lr.UserID, &lr.LabTestID, &lr.MedicalHistoryID, &lr.Value, &lr.IsNumeric,
		&lr.Unit, &lr.ReferenceRange, &lr.Method, &lr.DateCollection, &lr.DateAdded,
		&lr.TestName, &lr.TestCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func collectResults(rows pgx.Rows) ([]*LabResult, error) {
	defer rows.Close()
	var items []*LabResult
	for rows.Next() {
		lr, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lr)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, lr *LabResult) error {
	lr.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_results (id, user_id, labtest_id, medicalhistory_id, value, is_numeric,
			unit, reference_range, method, date_collection)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING date_added`,
		lr.ID, lr.UserID, lr.LabTestID, lr.MedicalHistoryID, lr.Value, lr.IsNumeric,
		lr.Unit, lr.ReferenceRange, lr.Method, lr.DateCollection).Scan(&lr.DateAdded)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabResult, error) {
	return scanResult(r.conn(ctx).QueryRow(ctx, resultSelect+` WHERE r.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, lr *LabResult) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_results
		SET value = $2, is_numeric = $3, unit = $4, reference_range = $5,
			method = $6, date_collection = $7
		WHERE id = $1`,
		lr.ID, lr.Value, lr.IsNumeric, lr.Unit, lr.ReferenceRange, lr.Method, lr.DateCollection)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_results WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*LabResult, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_results WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, resultSelect+`
		WHERE r.user_id = $1
		ORDER BY r.date_collection DESC, r.date_added DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectResults(rows)
	return items, total, err
}

func (r *repoPG) Newest(ctx context.Context, userID uuid.UUID, n int) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx, resultSelect+`
		WHERE r.user_id = $1
		ORDER BY r.date_added DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, err
	}
	return collectResults(rows)
}

func (r *repoPG) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx, resultSelect+`
		WHERE r.user_id = $1 AND r.id = ANY($2)
		ORDER BY r.date_collection DESC, r.date_added DESC`, userID, ids)
	if err != nil {
		return nil, err
	}
	return collectResults(rows)
}

func (r *repoPG) AllByUser(ctx context.Context, userID uuid.UUID) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx, resultSelect+`
		WHERE r.user_id = $1
		ORDER BY r.date_collection DESC, r.date_added DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectResults(rows)
}

func (r *repoPG) GetOrCreateTest(ctx context.Context, name, code string) (*LabTest, error) {
	t := &LabTest{Name: name, Code: code}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name FROM lab_tests WHERE code = $1`, code).Scan(&t.ID, &t.Name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	t.ID = uuid.New()
	// Concurrent first use of the same code loses to the unique index;
	// fall back to the winner's row.
	_, err = r.conn(ctx).Exec(ctx,
		`INSERT INTO lab_tests (id, name, code) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`,
		t.ID, t.Name, t.Code)
	if err != nil {
		return nil, err
	}
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name FROM lab_tests WHERE code = $1`, code).Scan(&t.ID, &t.Name); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repoPG) ListTests(ctx context.Context) ([]LabTest, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, code FROM lab_tests ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LabTest
	for rows.Next() {
		var t LabTest
		if err := rows.Scan(&t.ID, &t.Name, &t.Code); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
