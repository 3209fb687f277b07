package database

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGetRun(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertRun("HelloFresh", false, 42.5, 20, 40, 17, `{"brand":"HelloFresh"}`, "# Report")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero run id")
	}

	run, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run == nil {
		t.Fatal("expected run, got nil")
	}
	if run.Brand != "HelloFresh" || run.VisibilityScore != 42.5 {
		t.Errorf("got %+v", run)
	}
	if run.TotalQueries != 20 || run.TotalResponses != 40 || run.TotalMentions != 17 {
		t.Errorf("totals %+v", run)
	}
	if run.ReportMarkdown != "# Report" {
		t.Errorf("markdown %q", run.ReportMarkdown)
	}
	if run.Partial {
		t.Error("unexpected partial flag")
	}
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	run, err := db.GetRun(99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil for missing run, got %+v", run)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	db.InsertRun("HelloFresh", false, 10, 1, 1, 0, "", "")
	db.InsertRun("HelloFresh", true, 20, 2, 2, 1, "", "")

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].VisibilityScore != 20 {
		t.Errorf("expected newest run first, got %+v", runs[0])
	}
	if !runs[0].Partial {
		t.Error("expected partial flag on newest run")
	}
}

func TestResponseCacheRoundTrip(t *testing.T) {
	db := openTestDB(t)
	cache := NewResponseCache(db, time.Hour)

	if _, ok := cache.Get("chatgpt", "best meal kits"); ok {
		t.Error("expected miss on empty cache")
	}

	cache.Set("chatgpt", "best meal kits", "HelloFresh tops the list")
	text, ok := cache.Get("chatgpt", "best meal kits")
	if !ok || text != "HelloFresh tops the list" {
		t.Errorf("got (%q, %v)", text, ok)
	}

	// Different model, same query: separate entry.
	if _, ok := cache.Get("gemini", "best meal kits"); ok {
		t.Error("expected miss for different model")
	}
}

func TestResponseCacheOverwrite(t *testing.T) {
	db := openTestDB(t)
	cache := NewResponseCache(db, time.Hour)

	cache.Set("chatgpt", "q", "old")
	cache.Set("chatgpt", "q", "new")

	text, ok := cache.Get("chatgpt", "q")
	if !ok || text != "new" {
		t.Errorf("got (%q, %v), want new", text, ok)
	}
}

func TestResponseCacheExpiry(t *testing.T) {
	db := openTestDB(t)

	// A negative TTL makes every entry already expired.
	expired := NewResponseCache(db, -time.Hour)
	expired.Set("chatgpt", "q", "stale")
	if _, ok := expired.Get("chatgpt", "q"); ok {
		t.Error("expected expired entry to miss")
	}

	// TTL zero disables expiry.
	forever := NewResponseCache(db, 0)
	if text, ok := forever.Get("chatgpt", "q"); !ok || text != "stale" {
		t.Errorf("got (%q, %v), want stale entry without expiry", text, ok)
	}
}

func TestPruneExpired(t *testing.T) {
	db := openTestDB(t)
	cache := NewResponseCache(db, -time.Hour)
	cache.Set("chatgpt", "q1", "a")
	cache.Set("chatgpt", "q2", "b")

	removed, err := cache.PruneExpired()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed %d, want 2", removed)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.InsertRun("HelloFresh", false, 10, 1, 1, 0, "", "")
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected data to survive reopen, got %d runs", len(runs))
	}
}
