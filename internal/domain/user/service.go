package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/filestore"
)

// ErrInvalidCredentials covers both unknown email and wrong password so a
// login failure never reveals which of the two it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLength = 8

// Service provides registration, login, and profile management.
type Service struct {
	users      Repository
	sessions   auth.SessionStore
	files      *filestore.Store
	pool       *pgxpool.Pool
	sessionTTL time.Duration
}

// NewService creates the user service. pool may be nil in tests that never
// exercise transactional paths.
func NewService(users Repository, sessions auth.SessionStore, files *filestore.Store, pool *pgxpool.Pool, sessionTTL time.Duration) *Service {
	return &Service{users: users, sessions: sessions, files: files, pool: pool, sessionTTL: sessionTTL}
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hashed, err := auth.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Name: req.Name, Email: req.Email, DOB: req.DOB, HashedPassword: hashed}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and opens a new session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, *auth.Session, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !auth.Verify(req.Password, u.HashedPassword) {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, u.ID, s.sessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return u, sess, nil
}

// Logout revokes the session that authenticated the current request.
func (s *Service) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateRequest) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		u.Name = *req.Name
	}
	if req.Email != nil {
		if err := validateEmail(*req.Email); err != nil {
			return nil, err
		}
		u.Email = *req.Email
	}
	if req.DOB != nil {
		u.DOB = req.DOB
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password and replaces it. All other
// sessions are revoked; the caller's session is recreated by the handler.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, req PasswordChangeRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.Verify(req.CurrentPassword, u.HashedPassword) {
		return ErrInvalidCredentials
	}

	hashed, err := auth.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.users.UpdatePassword(ctx, id, hashed); err != nil {
			return err
		}
		return s.sessions.DeleteByUser(ctx, id)
	})
}

// DeleteAccount removes the user row; owned records cascade in the database.
// The upload directory is cleaned up after the commit, best effort.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.sessions.DeleteByUser(ctx, id); err != nil {
			return err
		}
		return s.users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if s.files != nil {
		s.files.RemoveUserDir(id)
	}
	return nil
}
