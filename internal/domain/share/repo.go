package share

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("share link not found")
	ErrForbidden  = errors.New("share link belongs to another user")
	ErrExpired    = errors.New("share link has expired")
	ErrInvalidPIN = errors.New("invalid pin")
	ErrCodeTaken  = errors.New("share code already in use")
)

// Repository defines persistence operations for share tokens.
type Repository interface {
	Create(ctx context.Context, t *Token) error
	GetByCode(ctx context.Context, code string) (*Token, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Token, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Token, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpired removes tokens past their expiration and reports how
	// many went.
	DeleteExpired(ctx context.Context) (int64, error)
}
