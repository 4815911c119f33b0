package vitals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// =========== Mock Repository ===========

type mockRepo struct {
	store map[uuid.UUID]*Vital
	types map[string]*Type
}

func newMockRepo() *mockRepo {
	m := &mockRepo{store: make(map[uuid.UUID]*Vital), types: make(map[string]*Type)}
	m.types["Glicemie"] = &Type{ID: uuid.New(), Name: "Glicemie", Unit: "mg/dL", NormalRange: strPtr("70 - 100 mg/dL")}
	m.types["Greutate"] = &Type{ID: uuid.New(), Name: "Greutate", Unit: "kg"}
	m.types["Tensiune arterială"] = &Type{
		ID: uuid.New(), Name: "Tensiune arterială", Unit: "mmHg",
		IsCompound: true, NormalRange: strPtr("90/60 - 120/80 mmHg"),
	}
	return m
}

func (m *mockRepo) Create(_ context.Context, v *Vital, _ uuid.UUID) error {
	v.ID = uuid.New()
	v.DateAdded = time.Now()
	m.store[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Vital, error) {
	v, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *mockRepo) Update(_ context.Context, v *Vital) error {
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

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Vital, int, error) {
	var items []*Vital
	for _, v := range m.store {
		if v.UserID == userID {
			items = append(items, v)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) Newest(_ context.Context, userID uuid.UUID, n int) ([]*Vital, error) {
	items, _, _ := m.ListByUser(context.Background(), userID, n, 0)
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

func (m *mockRepo) LatestPerType(_ context.Context, userID uuid.UUID) ([]*Vital, error) {
	latest := make(map[string]*Vital)
	for _, v := range m.store {
		if v.UserID != userID {
			continue
		}
		cur, ok := latest[v.TypeName]
		if !ok || v.DateRecorded.After(cur.DateRecorded) {
			latest[v.TypeName] = v
		}
	}
	var items []*Vital
	for _, v := range latest {
		items = append(items, v)
	}
	return items, nil
}

func (m *mockRepo) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Vital, error) {
	var items []*Vital
	for _, id := range ids {
		if v, ok := m.store[id]; ok && v.UserID == userID {
			items = append(items, v)
		}
	}
	return items, nil
}

func (m *mockRepo) ListTypes(_ context.Context) ([]Type, error) {
	var items []Type
	for _, t := range m.types {
		items = append(items, *t)
	}
	return items, nil
}

func (m *mockRepo) GetTypeByName(_ context.Context, name string) (*Type, error) {
	t, ok := m.types[name]
	if !ok {
		return nil, ErrUnknownType
	}
	return t, nil
}

// =========== Tests ===========

func testDate(t *testing.T, s string) dateonly.Date {
	t.Helper()
	d, err := dateonly.Parse(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestCreate_Simple(t *testing.T) {
	svc := NewService(newMockRepo())
	v, err := svc.Create(context.Background(), uuid.New(), CreateRequest{
		Name: "Glicemie", Value: 92, DateRecorded: testDate(t, "01-03-2024"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Unit != "mg/dL" || v.Value == nil || *v.Value != 92 {
		t.Errorf("unexpected measurement: %+v", v)
	}
}

func TestCreate_CompoundTypeRejected(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Create(context.Background(), uuid.New(), CreateRequest{
		Name: "Tensiune arterială", Value: 120, DateRecorded: testDate(t, "01-03-2024"),
	})
	if err == nil {
		t.Fatal("expected error for compound type on simple create")
	}
}

func TestCreateBloodPressure(t *testing.T) {
	svc := NewService(newMockRepo())
	v, err := svc.CreateBloodPressure(context.Background(), uuid.New(), BloodPressureRequest{
		Name: "Tensiune arterială", ValueSystolic: 125, ValueDiastolic: 82,
		DateRecorded: testDate(t, "01-03-2024"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ValueSystolic == nil || *v.ValueSystolic != 125 || v.Value != nil {
		t.Errorf("unexpected measurement: %+v", v)
	}
}

func TestCreateBloodPressure_SimpleTypeRejected(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.CreateBloodPressure(context.Background(), uuid.New(), BloodPressureRequest{
		Name: "Glicemie", ValueSystolic: 120, ValueDiastolic: 80,
		DateRecorded: testDate(t, "01-03-2024"),
	})
	if err == nil {
		t.Fatal("expected error for simple type on blood pressure create")
	}
}

func TestCreate_UnknownType(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Create(context.Background(), uuid.New(), CreateRequest{
		Name: "Inexistent", Value: 1, DateRecorded: testDate(t, "01-03-2024"),
	})
	if err != ErrUnknownType {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestLatest_Trends(t *testing.T) {
	svc := NewService(newMockRepo())
	userID := uuid.New()

	svc.Create(context.Background(), userID, CreateRequest{
		Name: "Glicemie", Value: 85, DateRecorded: testDate(t, "01-01-2024"),
	})
	svc.Create(context.Background(), userID, CreateRequest{
		Name: "Glicemie", Value: 130, DateRecorded: testDate(t, "01-03-2024"),
	})
	svc.Create(context.Background(), userID, CreateRequest{
		Name: "Greutate", Value: 80, DateRecorded: testDate(t, "01-03-2024"),
	})

	items, err := svc.Latest(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected one entry per type, got %d", len(items))
	}
	trends := make(map[string]string)
	for _, item := range items {
		trends[item.Name] = *item.Trend
	}
	if trends["Glicemie"] != TrendUp {
		t.Errorf("expected latest glucose above range to trend up, got %s", trends["Glicemie"])
	}
	if trends["Greutate"] != TrendStable {
		t.Errorf("expected weight to be stable, got %s", trends["Greutate"])
	}
}

func TestOwned_ForeignRecord(t *testing.T) {
	svc := NewService(newMockRepo())
	owner := uuid.New()
	v, _ := svc.Create(context.Background(), owner, CreateRequest{
		Name: "Glicemie", Value: 85, DateRecorded: testDate(t, "01-03-2024"),
	})
	if _, err := svc.Owned(context.Background(), v.ID, uuid.New()); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
