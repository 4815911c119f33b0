package allergy

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

// NewRepoPG creates a Postgres-backed allergy repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// allergySelect aggregates the vocabulary links into name arrays in one query.
const allergySelect = `
	SELECT a.id, a.user_id, a.date_diagnosed, a.date_added, a.notes, s.name,
		COALESCE(array_agg(DISTINCT al.name) FILTER (WHERE al.name IS NOT NULL), '{}'),
		COALESCE(array_agg(DISTINCT re.name) FILTER (WHERE re.name IS NOT NULL), '{}')
	FROM allergies a
	JOIN severities s ON s.id = a.severity_id
	LEFT JOIN allergy_allergens aa ON aa.allergy_id = a.id
	LEFT JOIN allergens al ON al.id = aa.allergen_id
	LEFT JOIN allergy_reactions ar ON ar.allergy_id = a.id
	LEFT JOIN reactions re ON re.id = ar.reaction_id`

const allergyGroup = ` GROUP BY a.id, s.name`

func scanAllergy(row pgx.Row) (*Allergy, error) {
	var a Allergy
	err := row.Scan(&a.ID, &a.UserID, &a.DateDiagnosed, &a.DateAdded, &a.Notes,
		&a.Severity, &a.Allergens, &a.Reactions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAllergies(rows pgx.Rows) ([]*Allergy, error) {
	defer rows.Close()
	var items []*Allergy
	for rows.Next() {
		a, err := scanAllergy(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, a *Allergy, severityID uuid.UUID, allergenIDs, reactionIDs []uuid.UUID) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO allergies (id, user_id, severity_id, date_diagnosed, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING date_added`,
		a.ID, a.UserID, severityID, a.DateDiagnosed, a.Notes).Scan(&a.DateAdded)
	if err != nil {
		return err
	}
	return r.insertLinks(ctx, a.ID, allergenIDs, reactionIDs)
}

func (r *repoPG) insertLinks(ctx context.Context, allergyID uuid.UUID, allergenIDs, reactionIDs []uuid.UUID) error {
	for _, id := range allergenIDs {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO allergy_allergens (allergy_id, allergen_id) VALUES ($1, $2)`, allergyID, id); err != nil {
			return err
		}
	}
	for _, id := range reactionIDs {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO allergy_reactions (allergy_id, reaction_id) VALUES ($1, $2)`, allergyID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Allergy, error) {
	return scanAllergy(r.conn(ctx).QueryRow(ctx, allergySelect+` WHERE a.id = $1`+allergyGroup, id))
}

func (r *repoPG) Update(ctx context.Context, a *Allergy, severityID uuid.UUID, allergenIDs, reactionIDs []uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE allergies SET severity_id = $2, date_diagnosed = $3, notes = $4 WHERE id = $1`,
		a.ID, severityID, a.DateDiagnosed, a.Notes)
	if err != nil {
		return err
	}
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM allergy_allergens WHERE allergy_id = $1`, a.ID); err != nil {
		return err
	}
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM allergy_reactions WHERE allergy_id = $1`, a.ID); err != nil {
		return err
	}
	return r.insertLinks(ctx, a.ID, allergenIDs, reactionIDs)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM allergies WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Allergy, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM allergies WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		allergySelect+` WHERE a.user_id = $1`+allergyGroup+` ORDER BY a.date_diagnosed DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectAllergies(rows)
	return items, total, err
}

func (r *repoPG) Newest(ctx context.Context, userID uuid.UUID, n int) ([]*Allergy, error) {
	rows, err := r.conn(ctx).Query(ctx,
		allergySelect+` WHERE a.user_id = $1`+allergyGroup+` ORDER BY a.date_added DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, err
	}
	return collectAllergies(rows)
}

func (r *repoPG) GetManyOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Allergy, error) {
	rows, err := r.conn(ctx).Query(ctx,
		allergySelect+` WHERE a.user_id = $1 AND a.id = ANY($2)`+allergyGroup+` ORDER BY a.date_diagnosed DESC`,
		userID, ids)
	if err != nil {
		return nil, err
	}
	return collectAllergies(rows)
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

func (r *repoPG) ListAllergens(ctx context.Context) ([]VocabEntry, error) {
	return r.listVocab(ctx, "allergens")
}

func (r *repoPG) ListReactions(ctx context.Context) ([]VocabEntry, error) {
	return r.listVocab(ctx, "reactions")
}

func (r *repoPG) ListSeverities(ctx context.Context) ([]VocabEntry, error) {
	return r.listVocab(ctx, "severities")
}

func (r *repoPG) resolveNames(ctx context.Context, table string, names []string) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id FROM `+table+` WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != len(names) {
		return nil, ErrUnknownVocab
	}
	return ids, nil
}

func (r *repoPG) ResolveAllergens(ctx context.Context, names []string) ([]uuid.UUID, error) {
	return r.resolveNames(ctx, "allergens", names)
}

func (r *repoPG) ResolveReactions(ctx context.Context, names []string) ([]uuid.UUID, error) {
	return r.resolveNames(ctx, "reactions", names)
}

func (r *repoPG) ResolveSeverity(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, `SELECT id FROM severities WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrUnknownVocab
	}
	return id, err
}
