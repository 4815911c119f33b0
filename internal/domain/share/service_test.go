package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/allergy"
	"github.com/medvault/medvault/internal/domain/labs"
	"github.com/medvault/medvault/internal/domain/medhistory"
	"github.com/medvault/medvault/internal/domain/medication"
	"github.com/medvault/medvault/internal/domain/upload"
	"github.com/medvault/medvault/internal/domain/user"
	"github.com/medvault/medvault/internal/domain/vaccine"
	"github.com/medvault/medvault/internal/domain/vitals"
	"github.com/medvault/medvault/internal/platform/auth"
)

// =========== Mock Repository ===========

type mockTokens struct {
	store map[uuid.UUID]*Token
}

func newMockTokens() *mockTokens {
	return &mockTokens{store: make(map[uuid.UUID]*Token)}
}

func (m *mockTokens) Create(_ context.Context, t *Token) error {
	for _, existing := range m.store {
		if existing.ShareCode == t.ShareCode {
			return ErrCodeTaken
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	m.store[t.ID] = t
	return nil
}

func (m *mockTokens) GetByCode(_ context.Context, code string) (*Token, error) {
	for _, t := range m.store {
		if t.ShareCode == code {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockTokens) GetByID(_ context.Context, id uuid.UUID) (*Token, error) {
	t, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (m *mockTokens) ListByUser(_ context.Context, userID uuid.UUID) ([]*Token, error) {
	var items []*Token
	for _, t := range m.store {
		if t.UserID == userID {
			items = append(items, t)
		}
	}
	return items, nil
}

func (m *mockTokens) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockTokens) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	for id, t := range m.store {
		if t.Expired() {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

// =========== Mock Sources ===========

// ownedSource answers GetManyOwned the way the domain services do: ids the
// owner does not hold are silently absent.
type ownedSource struct {
	owner uuid.UUID
	ids   map[uuid.UUID]bool
}

func (s *ownedSource) held(userID uuid.UUID, ids []uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	if userID != s.owner {
		return out
	}
	for _, id := range ids {
		if s.ids[id] {
			out = append(out, id)
		}
	}
	return out
}

type vaccineSource struct{ ownedSource }

func (s *vaccineSource) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]vaccine.Response, error) {
	var out []vaccine.Response
	for _, id := range s.held(userID, ids) {
		out = append(out, vaccine.Response{ID: id})
	}
	return out, nil
}

type allergySource struct{ ownedSource }

func (s *allergySource) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]allergy.Response, error) {
	var out []allergy.Response
	for _, id := range s.held(userID, ids) {
		out = append(out, allergy.Response{ID: id})
	}
	return out, nil
}

type medicationSource struct{ ownedSource }

func (s *medicationSource) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]medication.Response, error) {
	var out []medication.Response
	for _, id := range s.held(userID, ids) {
		out = append(out, medication.Response{ID: id})
	}
	return out, nil
}

type vitalsSource struct{ ownedSource }

func (s *vitalsSource) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]vitals.Response, error) {
	var out []vitals.Response
	for _, id := range s.held(userID, ids) {
		out = append(out, vitals.Response{ID: id})
	}
	return out, nil
}

type historySource struct{ ownedSource }

func (s *historySource) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]medhistory.Response, error) {
	var out []medhistory.Response
	for _, id := range s.held(userID, ids) {
		out = append(out, medhistory.Response{ID: id})
	}
	return out, nil
}

type labSource struct{ ownedSource }

func (s *labSource) GetManyOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]labs.GroupedTest, error) {
	held := s.held(userID, ids)
	if len(held) == 0 {
		return nil, nil
	}
	group := labs.GroupedTest{ID: uuid.New(), Name: "Glicemie", Code: "GLU"}
	for _, id := range held {
		group.Results = append(group.Results, labs.Response{ID: id})
	}
	return []labs.GroupedTest{group}, nil
}

type userSource struct{ owner *user.User }

func (s *userSource) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	if s.owner == nil || s.owner.ID != id {
		return nil, user.ErrNotFound
	}
	return s.owner, nil
}

type mockAttachments struct {
	byRecord map[uuid.UUID]*upload.FileUpload
}

func (m *mockAttachments) ForRecord(_ context.Context, recordID uuid.UUID) (*upload.FileUpload, error) {
	f, ok := m.byRecord[recordID]
	if !ok {
		return nil, upload.ErrNotFound
	}
	return f, nil
}

func (m *mockAttachments) OpenFile(_ *upload.FileUpload) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte("decrypted"))), nil
}

// =========== Tests ===========

type fixture struct {
	svc     *Service
	tokens  *mockTokens
	ownerID uuid.UUID
	records map[string]uuid.UUID
	files   *mockAttachments
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ownerID := uuid.New()
	records := map[string]uuid.UUID{
		"vaccine":    uuid.New(),
		"allergy":    uuid.New(),
		"medication": uuid.New(),
		"vital":      uuid.New(),
		"history":    uuid.New(),
		"labresult":  uuid.New(),
	}
	owned := func(keys ...string) ownedSource {
		ids := make(map[uuid.UUID]bool)
		for _, k := range keys {
			ids[records[k]] = true
		}
		return ownedSource{owner: ownerID, ids: ids}
	}
	files := &mockAttachments{byRecord: map[uuid.UUID]*upload.FileUpload{
		records["history"]: {ID: uuid.New(), Name: "report.pdf", FileType: "application/pdf"},
	}}
	tokens := newMockTokens()
	svc := NewService(tokens, Sources{
		Users:          &userSource{owner: &user.User{ID: ownerID, Name: "Ana Pop"}},
		Vaccines:       &vaccineSource{owned("vaccine")},
		Allergies:      &allergySource{owned("allergy")},
		Medications:    &medicationSource{owned("medication")},
		Vitals:         &vitalsSource{owned("vital")},
		MedicalHistory: &historySource{owned("history")},
		Labs:           &labSource{owned("labresult")},
	}, files, zerolog.Nop())
	return &fixture{svc: svc, tokens: tokens, ownerID: ownerID, records: records, files: files}
}

func (f *fixture) issue(t *testing.T, req CreateRequest) *CreateResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), f.ownerID, req)
	if err != nil {
		t.Fatalf("issue share link: %v", err)
	}
	return resp
}

func TestCreate_CodeShape(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})
	if len(resp.ShareCode) != codeLength {
		t.Fatalf("expected %d-character code, got %q", codeLength, resp.ShareCode)
	}
	for _, r := range resp.ShareCode {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("code contains character outside alphabet: %q", r)
		}
	}
	if strings.ContainsAny(resp.ShareCode, "IO01") {
		t.Errorf("code contains ambiguous character: %q", resp.ShareCode)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	valid := CreateRequest{PIN: "1234", TokenLength: 60, Items: ItemSet{CatVaccines: {f.records["vaccine"]}}}

	bad := valid
	bad.PIN = "12ab"
	if _, err := f.svc.Create(context.Background(), f.ownerID, bad); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for non-digit pin, got %v", err)
	}
	bad = valid
	bad.PIN = "12"
	if _, err := f.svc.Create(context.Background(), f.ownerID, bad); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for short pin, got %v", err)
	}
	bad = valid
	bad.TokenLength = 0
	if _, err := f.svc.Create(context.Background(), f.ownerID, bad); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for zero lifetime, got %v", err)
	}
	bad = valid
	bad.Items = ItemSet{}
	if _, err := f.svc.Create(context.Background(), f.ownerID, bad); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for empty item set, got %v", err)
	}
	bad = valid
	bad.Items = ItemSet{"diagnoze": {uuid.New()}}
	if _, err := f.svc.Create(context.Background(), f.ownerID, bad); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for unknown category, got %v", err)
	}
}

func TestVerify_AliasCategories(t *testing.T) {
	f := newFixture(t)
	// Display-name keys must land in the canonical categories.
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{
			"Alergii": {f.records["allergy"]},
			"Analize": {f.records["labresult"]},
		},
	})

	payload, err := f.svc.Verify(context.Background(), resp.ShareCode, "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Allergies) != 1 || payload.Allergies[0].ID != f.records["allergy"] {
		t.Errorf("expected shared allergy in payload, got %+v", payload.Allergies)
	}
	if len(payload.LabTests) != 1 || len(payload.LabTests[0].Results) != 1 {
		t.Errorf("expected shared lab results grouped by test, got %+v", payload.LabTests)
	}
	if payload.Patient.Name != "Ana Pop" {
		t.Errorf("expected patient header, got %+v", payload.Patient)
	}
}

func TestVerify_WrongPIN(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})
	if _, err := f.svc.Verify(context.Background(), resp.ShareCode, "9999"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
}

func TestVerify_UnknownCode(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Verify(context.Background(), "XXXXXXXX", "1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerify_ExpiredBeforePIN(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})
	f.tokens.store[resp.ID].ExpirationTime = time.Now().Add(-time.Minute)

	// Expiry is answered before the PIN is even looked at.
	if _, err := f.svc.Verify(context.Background(), resp.ShareCode, "9999"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired for wrong pin on dead token, got %v", err)
	}
	if _, err := f.svc.Verify(context.Background(), resp.ShareCode, "1234"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_ForeignIDsSkipped(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"], uuid.New()}},
	})
	payload, err := f.svc.Verify(context.Background(), resp.ShareCode, "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Vaccines) != 1 {
		t.Fatalf("expected unresolvable ids to be skipped, got %+v", payload.Vaccines)
	}
}

func TestSharedFile_MembershipRequired(t *testing.T) {
	f := newFixture(t)
	// Token shares the vaccine only; the consultation's file stays off-limits
	// even though the attachment exists and the PIN is right.
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})
	_, err := f.svc.SharedFileMetadata(context.Background(), resp.ShareCode, "1234", f.records["history"])
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for record outside the item set, got %v", err)
	}
}

func TestSharedFile_ForeignRecordDenied(t *testing.T) {
	f := newFixture(t)
	foreign := uuid.New()
	f.files.byRecord[foreign] = &upload.FileUpload{ID: uuid.New(), Name: "victim-report.pdf", FileType: "application/pdf"}

	hashed, err := auth.Hash("1234")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	// A token whose item set names a record its issuer does not own.
	tok := &Token{
		ID:             uuid.New(),
		UserID:         f.ownerID,
		ShareCode:      "AAAA2222",
		HashedPIN:      hashed,
		Items:          ItemSet{CatMedicalHistory: {foreign}},
		ExpirationTime: time.Now().Add(time.Hour),
	}
	f.tokens.store[tok.ID] = tok

	// Membership in the item set alone grants nothing: the record must also
	// resolve through the issuer's own records.
	if _, err := f.svc.SharedFileMetadata(context.Background(), tok.ShareCode, "1234", foreign); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a record the issuer does not own, got %v", err)
	}
	if _, _, err := f.svc.OpenSharedFile(context.Background(), tok.ShareCode, "1234", foreign); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on download, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})

	if err := f.svc.Check(context.Background(), resp.ShareCode); err != nil {
		t.Fatalf("expected live code to check out, got %v", err)
	}
	if err := f.svc.Check(context.Background(), "XXXXXXXX"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	f.tokens.store[resp.ID].ExpirationTime = time.Now().Add(-time.Minute)
	if err := f.svc.Check(context.Background(), resp.ShareCode); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestCheckHandler(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})
	h := NewHandler(f.svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("code")
	c.SetParamValues(resp.ShareCode)
	if err := h.Check(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"valid":true`) {
		t.Fatalf("expected valid answer, got %d %s", rec.Code, rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("code")
	c.SetParamValues("XXXXXXXX")
	he, ok := h.Check(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %v", he)
	}
}

func TestSharedFile_Download(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatMedicalHistory: {f.records["history"]}},
	})

	meta, err := f.svc.SharedFileMetadata(context.Background(), resp.ShareCode, "1234", f.records["history"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Name != "report.pdf" {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	rc, file, err := f.svc.OpenSharedFile(context.Background(), resp.ShareCode, "1234", f.records["history"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	if file.FileType != "application/pdf" {
		t.Errorf("unexpected file: %+v", file)
	}
	content, _ := io.ReadAll(rc)
	if string(content) != "decrypted" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	resp := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})

	if err := f.svc.Revoke(context.Background(), resp.ID, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign revoke, got %v", err)
	}
	if err := f.svc.Revoke(context.Background(), resp.ID, f.ownerID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Verify(context.Background(), resp.ShareCode, "1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected revoked link to vanish, got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t)
	live := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})
	dead := f.issue(t, CreateRequest{
		PIN: "1234", TokenLength: 60,
		Items: ItemSet{CatVaccines: {f.records["vaccine"]}},
	})
	f.tokens.store[dead.ID].ExpirationTime = time.Now().Add(-time.Hour)

	n, err := f.svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged token, got %d", n)
	}
	if _, err := f.svc.Verify(context.Background(), live.ShareCode, "1234"); err != nil {
		t.Errorf("expected live token to survive the purge: %v", err)
	}
}

// failingTokens simulates the repository being unavailable.
type failingTokens struct{ mockTokens }

func (f *failingTokens) Create(context.Context, *Token) error {
	return fmt.Errorf("dial tcp: connection refused")
}

func postShares(t *testing.T, h *Handler, body string) *echo.HTTPError {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/shares", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	err := h.Create(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he
}

func TestCreateHandler_ErrorStatuses(t *testing.T) {
	f := newFixture(t)
	body := fmt.Sprintf(`{"pin":"12","token_length":60,"items":{"vaccines":[%q]}}`, f.records["vaccine"])
	if he := postShares(t, NewHandler(f.svc), body); he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad pin, got %d", he.Code)
	}

	// Repository failures answer 500 with a generic message, never the
	// underlying error text.
	svc := NewService(&failingTokens{}, Sources{}, nil, zerolog.Nop())
	body = fmt.Sprintf(`{"pin":"1234","token_length":60,"items":{"vaccines":[%q]}}`, uuid.New())
	he := postShares(t, NewHandler(svc), body)
	if he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a repository failure, got %d", he.Code)
	}
	if msg, _ := he.Message.(string); strings.Contains(msg, "refused") {
		t.Errorf("internal error text leaked to the client: %q", msg)
	}
}

func TestItemSet_Normalize(t *testing.T) {
	id := uuid.New()
	set, err := ItemSet{"Vaccinuri": {id, id}, "Medicamente": {uuid.New()}}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set[CatVaccines]) != 1 {
		t.Errorf("expected duplicates dropped, got %v", set[CatVaccines])
	}
	if len(set[CatMedications]) != 1 {
		t.Errorf("expected alias folded to canonical key, got %+v", set)
	}
	if _, err := (ItemSet{"unknown": {id}}).Normalize(); err == nil {
		t.Error("expected error for unknown category")
	}
}
