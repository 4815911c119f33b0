package vaccine

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

// NewRepoPG creates a Postgres-backed vaccine repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const vaccineCols = `v.id, v.user_id, v.name, v.provider, v.date_received, v.date_added,
	EXISTS (SELECT 1 FROM file_uploads f WHERE f.vaccine_id = v.id)`

func scanVaccine(row pgx.Row) (*Vaccine, error) {
	var v Vaccine
	err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.Provider, &v.DateReceived, &v.DateAdded, &v.HasCertificate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVaccines(rows pgx.Rows) ([]*Vaccine, error) {
	defer rows.Close()
	var items []*Vaccine
	for rows.Next() {
		v, err := scanVaccine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, v *Vaccine) error {
	v.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaccines (id, user_id, name, provider, date_received)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING date_added`,
		v.ID, v.UserID, v.Name, v.Provider, v.DateReceived).Scan(&v.DateAdded)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	return scanVaccine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vaccineCols+` FROM vaccines v WHERE v.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, v *Vaccine) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE vaccines SET name = $2, provider = $3, date_received = $4 WHERE id = $1`,
		v.ID, v.Name, v.Provider, v.DateReceived)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM vaccines WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Vaccine, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vaccines WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+vaccineCols+` FROM vaccines v
		WHERE v.user_id = $1
		ORDER BY v.date_received DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectVaccines(rows)
	return items, total, err
}

func (r *repoPG) Newest(ctx context.Context, userID uuid.UUID, n int) ([]*Vaccine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+vaccineCols+` FROM vaccines v
		WHERE v.user_id = $1
		ORDER BY v.date_added DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, err
	}
	return collectVaccines(rows)
}

func (r *repoPG) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Vaccine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+vaccineCols+` FROM vaccines v
		WHERE v.user_id = $1 AND v.id = ANY($2)
		ORDER BY v.date_received DESC`, userID, ids)
	if err != nil {
		return nil, err
	}
	return collectVaccines(rows)
}
