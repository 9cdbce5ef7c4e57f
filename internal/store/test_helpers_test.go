package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

// createTestStore creates a new SQLite store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// pragma reads a pragma and compares it with expected.
func (s *Store) pragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, want %q", name, value, expected)
	}
	return nil
}

// runKVContract checks the behaviour every KV backend must share.
func runKVContract(t *testing.T, open func(t *testing.T) KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		kv := open(t)
		v, ok, err := kv.Get(ctx, "nope")
		if err != nil || ok || v != "" {
			t.Errorf("Get(missing) = (%q, %v, %v), want (\"\", false, nil)", v, ok, err)
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		kv := open(t)
		if err := kv.Set(ctx, "k", "1"); err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		if err := kv.Set(ctx, "k", "2"); err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		v, ok, err := kv.Get(ctx, "k")
		if err != nil || !ok || v != "2" {
			t.Errorf("Get() = (%q, %v, %v), want (\"2\", true, nil)", v, ok, err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		kv := open(t)
		_ = kv.Set(ctx, "k", "1")
		if err := kv.Remove(ctx, "k"); err != nil {
			t.Fatalf("Remove() failed: %v", err)
		}
		if err := kv.Remove(ctx, "k"); err != nil {
			t.Fatalf("second Remove() failed: %v", err)
		}
		if _, ok, _ := kv.Get(ctx, "k"); ok {
			t.Error("key still present after Remove")
		}
	})

	t.Run("clear", func(t *testing.T) {
		kv := open(t)
		for _, k := range CoreKeys {
			_ = kv.Set(ctx, k, "x")
		}
		if err := kv.Clear(ctx); err != nil {
			t.Fatalf("Clear() failed: %v", err)
		}
		for _, k := range CoreKeys {
			if _, ok, _ := kv.Get(ctx, k); ok {
				t.Errorf("key %q survived Clear", k)
			}
		}
	})
}
