package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkessler/brandscope/internal/config"
	"github.com/mkessler/brandscope/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()
	db := openTestDB(t)
	cfg := &config.Config{}
	cfg.Brand.Name = "HelloFresh"
	cfg.Server.Port = 8000
	return New(cfg, db), db
}

func TestListRunsEmpty(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/runs", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %q", ct)
	}
}

func TestListRunsReturnsSummaries(t *testing.T) {
	srv, db := testServer(t)
	db.InsertRun("HelloFresh", false, 42.5, 20, 40, 17, `{"brand":"HelloFresh"}`, "# Report")

	req := httptest.NewRequest("GET", "/api/runs", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var runs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0]["brand"] != "HelloFresh" {
		t.Errorf("got %v", runs[0])
	}
	if runs[0]["visibility_score"] != 42.5 {
		t.Errorf("score %v, want 42.5", runs[0]["visibility_score"])
	}
}

func TestGetRunServesStoredJSON(t *testing.T) {
	srv, db := testServer(t)
	id, _ := db.InsertRun("HelloFresh", false, 42.5, 20, 40, 17, `{"brand":"HelloFresh","visibility_score":42.5}`, "# Report")

	req := httptest.NewRequest("GET", "/api/runs/1", nil)
	if id != 1 {
		t.Fatalf("unexpected run id %d", id)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rep map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rep["visibility_score"] != 42.5 {
		t.Errorf("got %v", rep)
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/runs/99", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetRunBadID(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/runs/abc", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestReportPageRendersMarkdown(t *testing.T) {
	srv, db := testServer(t)
	db.InsertRun("HelloFresh", false, 42.5, 20, 40, 17, "{}", "# Visibility Report: HelloFresh\n\n**Visibility Score: 42.5%**")

	req := httptest.NewRequest("GET", "/runs/1/report", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1") {
		t.Error("expected rendered markdown heading")
	}
	if !strings.Contains(body, "Visibility Report: HelloFresh") {
		t.Error("expected report title in page")
	}
}

func TestAnalyzeRequiresPost(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestAnalyzeStreamsErrorForBadConfig(t *testing.T) {
	// No models configured: the stream must carry an error event instead
	// of failing the connection.
	db := openTestDB(t)
	cfg := &config.Config{}
	cfg.Brand.Name = "HelloFresh"
	srv := New(cfg, db)

	req := httptest.NewRequest("POST", "/api/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type %q, want text/event-stream", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"type":"error"`) {
		t.Errorf("expected error event, got %q", body)
	}
}
