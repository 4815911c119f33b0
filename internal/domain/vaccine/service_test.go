package vaccine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// =========== Mock Repository ===========

type mockRepo struct {
	store map[uuid.UUID]*Vaccine
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Vaccine)}
}

func (m *mockRepo) Create(_ context.Context, v *Vaccine) error {
	v.ID = uuid.New()
	v.DateAdded = time.Now()
	m.store[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Vaccine, error) {
	v, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *mockRepo) Update(_ context.Context, v *Vaccine) error {
	if _, ok := m.store[v.ID]; !ok {
		return ErrNotFound
	}
	m.store[v.ID] = v
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Vaccine, int, error) {
	var items []*Vaccine
	for _, v := range m.store {
		if v.UserID == userID {
			items = append(items, v)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) Newest(_ context.Context, userID uuid.UUID, n int) ([]*Vaccine, error) {
	items, _, _ := m.ListByUser(context.Background(), userID, n, 0)
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

func (m *mockRepo) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Vaccine, error) {
	var items []*Vaccine
	for _, id := range ids {
		if v, ok := m.store[id]; ok && v.UserID == userID {
			items = append(items, v)
		}
	}
	return items, nil
}

type mockRemover struct {
	removed []uuid.UUID
}

func (m *mockRemover) RemoveForRecord(_ context.Context, recordID uuid.UUID) error {
	m.removed = append(m.removed, recordID)
	return nil
}

// =========== Tests ===========

func testDate(t *testing.T) dateonly.Date {
	t.Helper()
	d, err := dateonly.Parse("15-03-2024")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestCreate_Success(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	v, err := svc.Create(context.Background(), uuid.New(), CreateRequest{
		Name: "BCG", Provider: "Institutul Cantacuzino", DateReceived: testDate(t),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID == uuid.Nil {
		t.Error("expected id to be set")
	}
}

func TestCreate_MissingFields(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	cases := []CreateRequest{
		{Provider: "p", DateReceived: testDate(t)},
		{Name: "BCG", DateReceived: testDate(t)},
		{Name: "BCG", Provider: "p"},
	}
	for i, req := range cases {
		if _, err := svc.Create(context.Background(), uuid.New(), req); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestOwned_ForeignRecord(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	owner := uuid.New()
	v, _ := svc.Create(context.Background(), owner, CreateRequest{Name: "BCG", Provider: "p", DateReceived: testDate(t)})

	if _, err := svc.Owned(context.Background(), v.ID, uuid.New()); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Owned(context.Background(), uuid.New(), owner); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	owner := uuid.New()
	v, _ := svc.Create(context.Background(), owner, CreateRequest{Name: "BCG", Provider: "p", DateReceived: testDate(t)})

	name := "BCG rappel"
	updated, err := svc.Update(context.Background(), v.ID, owner, UpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "BCG rappel" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if updated.Provider != "p" {
		t.Errorf("provider must be unchanged, got %q", updated.Provider)
	}
}

func TestDelete_RemovesAttachment(t *testing.T) {
	repo := newMockRepo()
	remover := &mockRemover{}
	svc := NewService(repo, remover)
	owner := uuid.New()
	v, _ := svc.Create(context.Background(), owner, CreateRequest{Name: "BCG", Provider: "p", DateReceived: testDate(t)})

	if err := svc.Delete(context.Background(), v.ID, owner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remover.removed) != 1 || remover.removed[0] != v.ID {
		t.Error("expected attachment removal for the deleted record")
	}
	if _, err := repo.GetByID(context.Background(), v.ID); err != ErrNotFound {
		t.Error("expected record to be gone")
	}
}

func TestGetManyOwned_SkipsForeignIDs(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	owner, other := uuid.New(), uuid.New()
	mine, _ := svc.Create(context.Background(), owner, CreateRequest{Name: "BCG", Provider: "p", DateReceived: testDate(t)})
	theirs, _ := svc.Create(context.Background(), other, CreateRequest{Name: "HPV", Provider: "p", DateReceived: testDate(t)})

	items, err := svc.GetManyOwned(context.Background(), owner, []uuid.UUID{mine.ID, theirs.ID, uuid.New()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != mine.ID {
		t.Fatalf("expected exactly the owner's record, got %d items", len(items))
	}
}
