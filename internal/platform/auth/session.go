package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/db"
)

// ErrSessionNotFound is returned when a session id does not resolve to a
// live session row.
var ErrSessionNotFound = errors.New("session not found")

// Session is a server-side login session. The cookie handed to the client
// only carries the session id (inside a signed token); deleting the row
// revokes the login immediately.
type Session struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired() bool { return time.Now().After(s.ExpiresAt) }

// SessionStore defines persistence operations for login sessions.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*Session, error)
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type sessionStorePG struct{ pool *pgxpool.Pool }

// NewSessionStorePG creates a Postgres-backed session store.
func NewSessionStorePG(pool *pgxpool.Pool) SessionStore {
	return &sessionStorePG{pool: pool}
}

func (s *sessionStorePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

func (s *sessionStorePG) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*Session, error) {
	sess := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		sess.ID, sess.UserID, sess.ExpiresAt).Scan(&sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *sessionStorePG) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, expires_at, created_at
		FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStorePG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *sessionStorePG) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *sessionStorePG) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
