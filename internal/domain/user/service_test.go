package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/platform/auth"
)

// =========== Mock Repository ===========

type mockRepo struct {
	store   map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*User), byEmail: make(map[string]uuid.UUID)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	if _, taken := m.byEmail[u.Email]; taken {
		return ErrEmailTaken
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.store[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return m.store[id], nil
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	old, ok := m.store[u.ID]
	if !ok {
		return ErrNotFound
	}
	if u.Email != old.Email {
		if _, taken := m.byEmail[u.Email]; taken {
			return ErrEmailTaken
		}
		delete(m.byEmail, old.Email)
		m.byEmail[u.Email] = u.ID
	}
	m.store[u.ID] = u
	return nil
}

func (m *mockRepo) UpdatePassword(_ context.Context, id uuid.UUID, hashed string) error {
	u, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	u.HashedPassword = hashed
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if u, ok := m.store[id]; ok {
		delete(m.byEmail, u.Email)
		delete(m.store, id)
	}
	return nil
}

// =========== Mock Session Store ===========

type mockSessions struct {
	store map[uuid.UUID]*auth.Session
}

func newMockSessions() *mockSessions {
	return &mockSessions{store: make(map[uuid.UUID]*auth.Session)}
}

func (m *mockSessions) Create(_ context.Context, userID uuid.UUID, ttl time.Duration) (*auth.Session, error) {
	sess := &auth.Session{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(ttl)}
	m.store[sess.ID] = sess
	return sess, nil
}

func (m *mockSessions) Get(_ context.Context, id uuid.UUID) (*auth.Session, error) {
	sess, ok := m.store[id]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return sess, nil
}

func (m *mockSessions) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockSessions) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	for id, sess := range m.store {
		if sess.UserID == userID {
			delete(m.store, id)
		}
	}
	return nil
}

func (m *mockSessions) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

// =========== Helpers ===========

func newTestService() (*Service, *mockRepo, *mockSessions) {
	repo := newMockRepo()
	sessions := newMockSessions()
	return NewService(repo, sessions, nil, nil, time.Hour), repo, sessions
}

func register(t *testing.T, svc *Service, email, password string) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterRequest{Name: "Ana Popescu", Email: email, Password: password})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return u
}

// =========== Tests ===========

func TestRegister_Success(t *testing.T) {
	svc, _, _ := newTestService()
	u := register(t, svc, "ana@example.com", "correct-horse")
	if u.ID == uuid.Nil {
		t.Error("expected id to be set")
	}
	if u.HashedPassword == "correct-horse" {
		t.Error("password must be stored hashed")
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "short"})
	if err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Ana", Email: "not-an-email", Password: "correct-horse"})
	if err == nil {
		t.Fatal("expected error for invalid email")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "ana@example.com", "correct-horse")
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Alt", Email: "ana@example.com", Password: "correct-horse"})
	if err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _, sessions := newTestService()
	register(t, svc, "ana@example.com", "correct-horse")

	u, sess, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.UserID != u.ID {
		t.Error("session must belong to the logged-in user")
	}
	if _, ok := sessions.store[sess.ID]; !ok {
		t.Error("expected session to be persisted")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "ana@example.com", "correct-horse")

	_, _, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "wrong"})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestService()
	_, _, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever-pw"})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, sessions := newTestService()
	u := register(t, svc, "ana@example.com", "correct-horse")
	_, sess, _ := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "correct-horse"})

	err := svc.ChangePassword(context.Background(), u.ID, PasswordChangeRequest{
		CurrentPassword: "correct-horse", NewPassword: "battery-staple",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sessions.store[sess.ID]; ok {
		t.Error("expected existing sessions to be revoked")
	}
	if _, _, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "battery-staple"}); err != nil {
		t.Errorf("expected login with new password to succeed, got %v", err)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc, _, _ := newTestService()
	u := register(t, svc, "ana@example.com", "correct-horse")

	err := svc.ChangePassword(context.Background(), u.ID, PasswordChangeRequest{
		CurrentPassword: "wrong", NewPassword: "battery-staple",
	})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := newTestService()
	u := register(t, svc, "ana@example.com", "correct-horse")

	name := "Ana Ionescu"
	updated, err := svc.UpdateProfile(context.Background(), u.ID, UpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Ana Ionescu" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if updated.Email != "ana@example.com" {
		t.Errorf("email must be unchanged, got %q", updated.Email)
	}
}

func TestDeleteAccount(t *testing.T) {
	svc, repo, sessions := newTestService()
	u := register(t, svc, "ana@example.com", "correct-horse")
	svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "correct-horse"})

	if err := svc.DeleteAccount(context.Background(), u.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), u.ID); err != ErrNotFound {
		t.Error("expected user row to be gone")
	}
	if len(sessions.store) != 0 {
		t.Error("expected all sessions to be revoked")
	}
}
