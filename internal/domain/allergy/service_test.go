package allergy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// =========== Mock Repository ===========

type mockRepo struct {
	store      map[uuid.UUID]*Allergy
	allergens  map[string]uuid.UUID
	reactions  map[string]uuid.UUID
	severities map[string]uuid.UUID
}

func newMockRepo() *mockRepo {
	m := &mockRepo{
		store:      make(map[uuid.UUID]*Allergy),
		allergens:  make(map[string]uuid.UUID),
		reactions:  make(map[string]uuid.UUID),
		severities: make(map[string]uuid.UUID),
	}
	for _, name := range []string{"Polen", "Arahide", "Penicilină"} {
		m.allergens[name] = uuid.New()
	}
	for _, name := range []string{"Urticarie", "Anafilaxie"} {
		m.reactions[name] = uuid.New()
	}
	for _, name := range []string{"Ușoară", "Moderată", "Severă"} {
		m.severities[name] = uuid.New()
	}
	return m
}

func (m *mockRepo) Create(_ context.Context, a *Allergy, _ uuid.UUID, _, _ []uuid.UUID) error {
	a.ID = uuid.New()
	a.DateAdded = time.Now()
	m.store[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Allergy, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockRepo) Update(_ context.Context, a *Allergy, _ uuid.UUID, _, _ []uuid.UUID) error {
	if _, ok := m.store[a.ID]; !ok {
		return ErrNotFound
	}
	m.store[a.ID] = a
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Allergy, int, error) {
	var items []*Allergy
	for _, a := range m.store {
		if a.UserID == userID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) Newest(_ context.Context, userID uuid.UUID, n int) ([]*Allergy, error) {
	items, _, _ := m.ListByUser(context.Background(), userID, n, 0)
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

func (m *mockRepo) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Allergy, error) {
	var items []*Allergy
	for _, id := range ids {
		if a, ok := m.store[id]; ok && a.UserID == userID {
			items = append(items, a)
		}
	}
	return items, nil
}

func vocabList(m map[string]uuid.UUID) []VocabEntry {
	var items []VocabEntry
	for name, id := range m {
		items = append(items, VocabEntry{ID: id, Name: name})
	}
	return items
}

func (m *mockRepo) ListAllergens(_ context.Context) ([]VocabEntry, error) {
	return vocabList(m.allergens), nil
}

func (m *mockRepo) ListReactions(_ context.Context) ([]VocabEntry, error) {
	return vocabList(m.reactions), nil
}

func (m *mockRepo) ListSeverities(_ context.Context) ([]VocabEntry, error) {
	return vocabList(m.severities), nil
}

func resolve(m map[string]uuid.UUID, names []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		id, ok := m[name]
		if !ok {
			return nil, ErrUnknownVocab
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockRepo) ResolveAllergens(_ context.Context, names []string) ([]uuid.UUID, error) {
	return resolve(m.allergens, names)
}

func (m *mockRepo) ResolveReactions(_ context.Context, names []string) ([]uuid.UUID, error) {
	return resolve(m.reactions, names)
}

func (m *mockRepo) ResolveSeverity(_ context.Context, name string) (uuid.UUID, error) {
	id, ok := m.severities[name]
	if !ok {
		return uuid.Nil, ErrUnknownVocab
	}
	return id, nil
}

// =========== Tests ===========

func testDate(t *testing.T) dateonly.Date {
	t.Helper()
	d, err := dateonly.Parse("10-01-2024")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func validCreate(t *testing.T) CreateRequest {
	return CreateRequest{
		Severity:      "Severă",
		Allergens:     []string{"Arahide"},
		Reactions:     []string{"Anafilaxie"},
		DateDiagnosed: testDate(t),
	}
}

func TestCreate_Success(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	a, err := svc.Create(context.Background(), uuid.New(), validCreate(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Severity != "Severă" || len(a.Allergens) != 1 {
		t.Errorf("unexpected resolved data: %+v", a)
	}
}

func TestCreate_UnknownAllergen(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	req := validCreate(t)
	req.Allergens = []string{"Nu există"}
	if _, err := svc.Create(context.Background(), uuid.New(), req); err != ErrUnknownVocab {
		t.Fatalf("expected ErrUnknownVocab, got %v", err)
	}
}

func TestCreate_NoAllergens(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	req := validCreate(t)
	req.Allergens = nil
	if _, err := svc.Create(context.Background(), uuid.New(), req); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestOwned_ForeignRecord(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	owner := uuid.New()
	a, _ := svc.Create(context.Background(), owner, validCreate(t))

	if _, err := svc.Owned(context.Background(), a.ID, uuid.New()); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdate_ReplacesVocab(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	owner := uuid.New()
	a, _ := svc.Create(context.Background(), owner, validCreate(t))

	severity := "Ușoară"
	updated, err := svc.Update(context.Background(), a.ID, owner, UpdateRequest{
		Severity:  &severity,
		Allergens: []string{"Polen", "Penicilină"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Severity != "Ușoară" || len(updated.Allergens) != 2 {
		t.Errorf("unexpected update result: %+v", updated)
	}
}

func TestUpdate_RejectedVocabLeavesRecordUnchanged(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	owner := uuid.New()
	a, _ := svc.Create(context.Background(), owner, validCreate(t))
	want := a.Severity

	severity := "Apocaliptică"
	if _, err := svc.Update(context.Background(), a.ID, owner, UpdateRequest{Severity: &severity}); !errors.Is(err, ErrUnknownVocab) {
		t.Fatalf("expected ErrUnknownVocab, got %v", err)
	}

	stored, err := svc.Owned(context.Background(), a.ID, owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Severity != want {
		t.Errorf("rejected update must not change the severity, got %q", stored.Severity)
	}
}

func TestGetManyOwned_SkipsForeignIDs(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	owner, other := uuid.New(), uuid.New()
	mine, _ := svc.Create(context.Background(), owner, validCreate(t))
	theirs, _ := svc.Create(context.Background(), other, validCreate(t))

	items, err := svc.GetManyOwned(context.Background(), owner, []uuid.UUID{mine.ID, theirs.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != mine.ID {
		t.Fatalf("expected exactly the owner's record, got %d items", len(items))
	}
}
