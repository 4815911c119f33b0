package vitals

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

// NewRepoPG creates a Postgres-backed vitals repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const vitalSelect = `
	SELECT h.id, h.user_id, h.value, h.value_systolic, h.value_diastolic,
		h.notes, h.date_recorded, h.date_added,
		t.name, t.unit, t.is_compound, t.normal_range
	FROM health_data h
	JOIN vital_types t ON t.id = h.type_id`

func scanVital(row pgx.Row) (*Vital, error) {
	var v Vital
	err := row.Scan(&v.ID, &v.UserID, &v.Value, &v.ValueSystolic, &v.ValueDiastolic,
		&v.Notes, &v.DateRecorded, &v.DateAdded,
		&v.TypeName, &v.Unit, &v.IsCompound, &v.NormalRange)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVitals(rows pgx.Rows) ([]*Vital, error) {
	defer rows.Close()
	var items []*Vital
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, v *Vital, typeID uuid.UUID) error {
	v.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO health_data (id, user_id, type_id, value, value_systolic, value_diastolic, notes, date_recorded)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING date_added`,
		v.ID, v.UserID, typeID, v.Value, v.ValueSystolic, v.ValueDiastolic, v.Notes, v.DateRecorded).Scan(&v.DateAdded)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Vital, error) {
	return scanVital(r.conn(ctx).QueryRow(ctx, vitalSelect+` WHERE h.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, v *Vital) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE health_data SET value=$2, value_systolic=$3, value_diastolic=$4,
			notes=$5, date_recorded=$6
		WHERE id = $1`,
		v.ID, v.Value, v.ValueSystolic, v.ValueDiastolic, v.Notes, v.DateRecorded)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM health_data WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Vital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM health_data WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		vitalSelect+` WHERE h.user_id = $1 ORDER BY h.date_recorded DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectVitals(rows)
	return items, total, err
}

func (r *repoPG) Newest(ctx context.Context, userID uuid.UUID, n int) ([]*Vital, error) {
	rows, err := r.conn(ctx).Query(ctx,
		vitalSelect+` WHERE h.user_id = $1 ORDER BY h.date_added DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, err
	}
	return collectVitals(rows)
}

func (r *repoPG) LatestPerType(ctx context.Context, userID uuid.UUID) ([]*Vital, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT ON (t.name)
			h.id, h.user_id, h.value, h.value_systolic, h.value_diastolic,
			h.notes, h.date_recorded, h.date_added,
			t.name, t.unit, t.is_compound, t.normal_range
		FROM health_data h
		JOIN vital_types t ON t.id = h.type_id
		WHERE h.user_id = $1
		ORDER BY t.name, h.date_recorded DESC, h.date_added DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectVitals(rows)
}

func (r *repoPG) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Vital, error) {
	rows, err := r.conn(ctx).Query(ctx,
		vitalSelect+` WHERE h.user_id = $1 AND h.id = ANY($2) ORDER BY h.date_recorded DESC`, userID, ids)
	if err != nil {
		return nil, err
	}
	return collectVitals(rows)
}

func (r *repoPG) ListTypes(ctx context.Context) ([]Type, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, unit, is_compound, normal_range FROM vital_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Type
	for rows.Next() {
		var t Type
		if err := rows.Scan(&t.ID, &t.Name, &t.Unit, &t.IsCompound, &t.NormalRange); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *repoPG) GetTypeByName(ctx context.Context, name string) (*Type, error) {
	var t Type
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, unit, is_compound, normal_range FROM vital_types WHERE name = $1`, name).
		Scan(&t.ID, &t.Name, &t.Unit, &t.IsCompound, &t.NormalRange)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownType
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
