package share

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

// NewRepoPG creates a Postgres-backed share token repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const tokenCols = `id, user_id, share_code, hashed_pin, items, expiration_time, created_at`

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	err := row.Scan(&t.ID, &t.UserID, &t.ShareCode, &t.HashedPIN, &t.Items, &t.ExpirationTime, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) Create(ctx context.Context, t *Token) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO share_tokens (id, user_id, share_code, hashed_pin, items, expiration_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		t.ID, t.UserID, t.ShareCode, t.HashedPIN, t.Items, t.ExpirationTime).Scan(&t.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrCodeTaken
	}
	return err
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Token, error) {
	return scanToken(r.conn(ctx).QueryRow(ctx,
		`SELECT `+tokenCols+` FROM share_tokens WHERE share_code = $1`, code))
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	return scanToken(r.conn(ctx).QueryRow(ctx,
		`SELECT `+tokenCols+` FROM share_tokens WHERE id = $1`, id))
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Token, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+tokenCols+` FROM share_tokens
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM share_tokens WHERE id = $1`, id)
	return err
}

func (r *repoPG) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM share_tokens WHERE expiration_time < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
