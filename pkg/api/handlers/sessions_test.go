package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/store"
)

// fakeSessionStore serves sessions from a map and records filters.
type fakeSessionStore struct {
	sessions map[string]*models.ScanSession
	shares   []models.Share
	findings []models.Finding
	summary  *models.SessionSummary

	deleted       []string
	gotShareFlt   *store.ShareFilter
	gotFindingFlt *store.FindingFilter
	gotLimit      int
	gotOffset     int
}

func (f *fakeSessionStore) GetSession(ctx context.Context, id string) (*models.ScanSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) ListSessions(ctx context.Context, limit, offset int) ([]models.ScanSession, error) {
	f.gotLimit, f.gotOffset = limit, offset
	out := make([]models.ScanSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessionStore) DeleteSession(ctx context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return models.ErrSessionNotFound
	}
	delete(f.sessions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSessionStore) Summary(ctx context.Context, id string) (*models.SessionSummary, error) {
	if _, ok := f.sessions[id]; !ok {
		return nil, models.ErrSessionNotFound
	}
	return f.summary, nil
}

func (f *fakeSessionStore) ListShares(ctx context.Context, filter store.ShareFilter) ([]models.Share, error) {
	f.gotShareFlt = &filter
	return f.shares, nil
}

func (f *fakeSessionStore) ListFindings(ctx context.Context, filter store.FindingFilter) ([]models.Finding, error) {
	f.gotFindingFlt = &filter
	return f.findings, nil
}

func testSessionStore() *fakeSessionStore {
	start := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	return &fakeSessionStore{
		sessions: map[string]*models.ScanSession{
			"session-1": {
				ID:          "session-1",
				Domain:      "corp.local",
				Status:      string(models.SessionCompleted),
				StartTime:   start,
				TotalHosts:  4,
				TotalShares: 9,
			},
		},
		shares: []models.Share{
			{ID: "share-1", SessionID: "session-1", Hostname: "ws01", ShareName: "Finance", AccessLevel: "FULL_ACCESS"},
		},
		findings: []models.Finding{
			{Hostname: "ws01", ShareName: "Finance", FileName: "passwords.xlsx", DetectionType: "credentials"},
		},
		summary: &models.SessionSummary{
			Session:      models.ScanSession{ID: "session-1", Domain: "corp.local"},
			AccessLevels: map[string]int{"FULL_ACCESS": 1},
			ShareCount:   1,
		},
	}
}

func TestListSessions(t *testing.T) {
	st := testSessionStore()
	handler := NewSessionHandler(st)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=10&offset=5", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("List() status = %d, want %d", w.Code, http.StatusOK)
	}
	if st.gotLimit != 10 || st.gotOffset != 5 {
		t.Errorf("pagination = (%d, %d), want (10, 5)", st.gotLimit, st.gotOffset)
	}

	var resp []models.ScanSession
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != "session-1" {
		t.Errorf("unexpected sessions: %+v", resp)
	}
}

func TestListSessions_DefaultPagination(t *testing.T) {
	st := testSessionStore()
	handler := NewSessionHandler(st)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=bogus", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if st.gotLimit != defaultPageSize || st.gotOffset != 0 {
		t.Errorf("pagination = (%d, %d), want (%d, 0)", st.gotLimit, st.gotOffset, defaultPageSize)
	}
}

func TestGetSession(t *testing.T) {
	handler := NewSessionHandler(testSessionStore())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/session-1", nil), "id", "session-1")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Get() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp models.ScanSession
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.Domain != "corp.local" || resp.TotalShares != 9 {
		t.Errorf("unexpected session: %+v", resp)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	handler := NewSessionHandler(testSessionStore())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope", nil), "id", "nope")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Get() status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSessionSummary(t *testing.T) {
	handler := NewSessionHandler(testSessionStore())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/session-1/summary", nil), "id", "session-1")
	w := httptest.NewRecorder()

	handler.Summary(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Summary() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp models.SessionSummary
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.AccessLevels["FULL_ACCESS"] != 1 {
		t.Errorf("unexpected summary: %+v", resp)
	}
}

func TestDeleteSession(t *testing.T) {
	st := testSessionStore()
	handler := NewSessionHandler(st)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/session-1", nil), "id", "session-1")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Delete() status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if len(st.deleted) != 1 || st.deleted[0] != "session-1" {
		t.Errorf("deleted = %v", st.deleted)
	}

	// Second delete is a 404
	w = httptest.NewRecorder()
	handler.Delete(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second Delete() status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSessionShares(t *testing.T) {
	st := testSessionStore()
	handler := NewSessionHandler(st)

	req := withURLParam(
		httptest.NewRequest(http.MethodGet, "/api/v1/sessions/session-1/shares?hostname=ws01&access_level=FULL_ACCESS", nil),
		"id", "session-1")
	w := httptest.NewRecorder()

	handler.Shares(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Shares() status = %d, want %d", w.Code, http.StatusOK)
	}
	if st.gotShareFlt == nil {
		t.Fatal("store was not queried")
	}
	if st.gotShareFlt.SessionID != "session-1" ||
		st.gotShareFlt.Hostname != "ws01" ||
		st.gotShareFlt.AccessLevel != "FULL_ACCESS" {
		t.Errorf("filter = %+v", st.gotShareFlt)
	}

	var resp []models.Share
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(resp) != 1 || resp[0].ShareName != "Finance" {
		t.Errorf("unexpected shares: %+v", resp)
	}
}

func TestSessionShares_UnknownSession(t *testing.T) {
	st := testSessionStore()
	handler := NewSessionHandler(st)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope/shares", nil), "id", "nope")
	w := httptest.NewRecorder()

	handler.Shares(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Shares() status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if st.gotShareFlt != nil {
		t.Error("share query ran for an unknown session")
	}
}

func TestSessionFindings(t *testing.T) {
	st := testSessionStore()
	handler := NewSessionHandler(st)

	req := withURLParam(
		httptest.NewRequest(http.MethodGet, "/api/v1/sessions/session-1/findings?category=credentials", nil),
		"id", "session-1")
	w := httptest.NewRecorder()

	handler.Findings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Findings() status = %d, want %d", w.Code, http.StatusOK)
	}
	if st.gotFindingFlt == nil || st.gotFindingFlt.Category != "credentials" {
		t.Errorf("filter = %+v", st.gotFindingFlt)
	}

	var resp []models.Finding
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(resp) != 1 || resp[0].FileName != "passwords.xlsx" {
		t.Errorf("unexpected findings: %+v", resp)
	}
}
