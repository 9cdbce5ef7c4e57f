package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.Set(ctx, KeyLocale, "en"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	v, ok, err := s2.Get(ctx, KeyLocale)
	if err != nil || !ok || v != "en" {
		t.Errorf("Get() = (%q, %v, %v), want (\"en\", true, nil)", v, ok, err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"kv", "attempts"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.pragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestSchema_UserVersion(t *testing.T) {
	s := createTestStore(t)
	if err := s.pragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestSchema_AttemptsIndex(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_attempts_chapter_seq'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		t.Fatal("idx_attempts_chapter_seq missing")
	}
	if err != nil {
		t.Fatalf("query index: %v", err)
	}
}

func TestStore_KVContract(t *testing.T) {
	runKVContract(t, func(t *testing.T) KV { return createTestStore(t) })
}

func TestStore_ClearDropsJournal(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.RecordAttempt(ctx, AttemptRecord{ID: "a-1", ChapterID: "1-0", Outcome: "success", Seq: 1}); err != nil {
		t.Fatalf("RecordAttempt() failed: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	records, err := s.ListAttempts(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListAttempts() failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("journal has %d records after Clear, want 0", len(records))
	}
}
