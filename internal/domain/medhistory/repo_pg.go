package medhistory

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

// NewRepoPG creates a Postgres-backed medical history repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const historySelect = `
	SELECT m.id, m.user_id, m.name, m.doctor_name, m.place, m.notes,
		m.date_consultation, m.date_added, c.name, s.name,
		EXISTS (SELECT 1 FROM file_uploads f WHERE f.medhistory_id = m.id)
	FROM medical_history m
	JOIN medical_categories c ON c.id = m.category_id
	JOIN medical_subcategories s ON s.id = m.subcategory_id`

func scanHistory(row pgx.Row) (*MedicalHistory, error) {
	var m MedicalHistory
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.DoctorName, &m.Place, &m.Notes,
		&m.DateConsultation, &m.DateAdded, &m.Category, &m.Subcategory, &m.HasFile)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectHistory(rows pgx.Rows) ([]*MedicalHistory, error) {
	defer rows.Close()
	var items []*MedicalHistory
	for rows.Next() {
		m, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, m *MedicalHistory, categoryID, subcategoryID uuid.UUID) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_history (id, user_id, name, doctor_name, place, notes, category_id, subcategory_id, date_consultation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING date_added`,
		m.ID, m.UserID, m.Name, m.DoctorName, m.Place, m.Notes,
		categoryID, subcategoryID, m.DateConsultation).Scan(&m.DateAdded)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalHistory, error) {
	return scanHistory(r.conn(ctx).QueryRow(ctx, historySelect+` WHERE m.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *MedicalHistory, categoryID, subcategoryID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_history
		SET name = $2, doctor_name = $3, place = $4, notes = $5,
			category_id = $6, subcategory_id = $7, date_consultation = $8
		WHERE id = $1`,
		m.ID, m.Name, m.DoctorName, m.Place, m.Notes, categoryID, subcategoryID, m.DateConsultation)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_history WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*MedicalHistory, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_history WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, historySelect+`
		WHERE m.user_id = $1
		ORDER BY m.date_consultation DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectHistory(rows)
	return items, total, err
}

func (r *repoPG) Newest(ctx context.Context, userID uuid.UUID, n int) ([]*MedicalHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, historySelect+`
		WHERE m.user_id = $1
		ORDER BY m.date_added DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

func (r *repoPG) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*MedicalHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, historySelect+`
		WHERE m.user_id = $1 AND m.id = ANY($2)
		ORDER BY m.date_consultation DESC`, userID, ids)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

func (r *repoPG) ListCategories(ctx context.Context) ([]VocabEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM medical_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []VocabEntry
	for rows.Next() {
		var e VocabEntry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *repoPG) ListSubcategories(ctx context.Context, categoryID uuid.UUID) ([]Subcategory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, category_id FROM medical_subcategories
		WHERE category_id = $1 ORDER BY name`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Subcategory
	for rows.Next() {
		var s Subcategory
		if err := rows.Scan(&s.ID, &s.Name, &s.CategoryID); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) ResolveSubcategory(ctx context.Context, category, subcategory string) (uuid.UUID, uuid.UUID, error) {
	var categoryID, subcategoryID uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT c.id, s.id FROM medical_subcategories s
		JOIN medical_categories c ON c.id = s.category_id
		WHERE c.name = $1 AND s.name = $2`, category, subcategory).Scan(&categoryID, &subcategoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, uuid.Nil, ErrUnknownVocab
	}
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return categoryID, subcategoryID, nil
}
