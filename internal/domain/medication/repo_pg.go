package medication

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

// NewRepoPG creates a Postgres-backed medication repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const medicationSelect = `
	SELECT m.id, m.user_id, m.name, m.dosage, m.frequency, m.time_of_day,
		m.duration_days, m.notes, m.date_prescribed, m.date_added, r.name, f.name
	FROM medications m
	JOIN medication_routes r ON r.id = m.route_id
	JOIN medication_forms f ON f.id = m.form_id`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.Frequency, &m.TimeOfDay,
		&m.DurationDays, &m.Notes, &m.DatePrescribed, &m.DateAdded, &m.Route, &m.Form)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMedications(rows pgx.Rows) ([]*Medication, error) {
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, m *Medication, routeID, formID uuid.UUID) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medications (id, user_id, name, dosage, frequency, time_of_day,
			duration_days, notes, date_prescribed, route_id, form_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING date_added`,
		m.ID, m.UserID, m.Name, m.Dosage, m.Frequency, m.TimeOfDay,
		m.DurationDays, m.Notes, m.DatePrescribed, routeID, formID).Scan(&m.DateAdded)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx, medicationSelect+` WHERE m.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medication, routeID, formID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medications SET name=$2, dosage=$3, frequency=$4, time_of_day=$5,
			duration_days=$6, notes=$7, date_prescribed=$8, route_id=$9, form_id=$10
		WHERE id = $1`,
		m.ID, m.Name, m.Dosage, m.Frequency, m.TimeOfDay,
		m.DurationDays, m.Notes, m.DatePrescribed, routeID, formID)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		medicationSelect+` WHERE m.user_id = $1 ORDER BY m.date_prescribed DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectMedications(rows)
	return items, total, err
}

func (r *repoPG) Newest(ctx context.Context, userID uuid.UUID, n int) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx,
		medicationSelect+` WHERE m.user_id = $1 ORDER BY m.date_added DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (r *repoPG) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx,
		medicationSelect+` WHERE m.user_id = $1 AND m.id = ANY($2) ORDER BY m.date_prescribed DESC`, userID, ids)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (r *repoPG) listVocab(ctx context.Context, table string) ([]VocabEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []VocabEntry
	for rows.Next() {
		var v VocabEntry
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *repoPG) ListRoutes(ctx context.Context) ([]VocabEntry, error) {
	return r.listVocab(ctx, "medication_routes")
}

func (r *repoPG) ListForms(ctx context.Context) ([]VocabEntry, error) {
	return r.listVocab(ctx, "medication_forms")
}

func (r *repoPG) resolveName(ctx context.Context, table, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, `SELECT id FROM `+table+` WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrUnknownVocab
	}
	return id, err
}

func (r *repoPG) ResolveRoute(ctx context.Context, name string) (uuid.UUID, error) {
	return r.resolveName(ctx, "medication_routes", name)
}

func (r *repoPG) ResolveForm(ctx context.Context, name string) (uuid.UUID, error) {
	return r.resolveName(ctx, "medication_forms", name)
}
