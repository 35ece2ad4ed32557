package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPersistentMap_SetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	m := NewPersistentMap[string, int](path, testLogger())

	if _, ok := m.Get("a"); ok {
		t.Fatal("expected empty store to miss on Get")
	}

	if err := m.Set("a", 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, ok := m.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get() = %v, %v, want 1, true", v, ok)
	}

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}

	if err := m.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := m.Get("a"); ok {
		t.Fatal("expected Get() to miss after Delete")
	}
}

func TestPersistentMap_Delete_MissingKeyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	m := NewPersistentMap[string, int](path, testLogger())

	if err := m.Delete("missing"); err != nil {
		t.Fatalf("Delete() on missing key error = %v, want nil", err)
	}
}

func TestPersistentMap_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	logger := testLogger()

	m1 := NewPersistentMap[string, string](path, logger)
	if err := m1.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	m2 := NewPersistentMap[string, string](path, logger)
	v, ok := m2.Get("k")
	if !ok || v != "v" {
		t.Fatalf("Get() after reload = %v, %v, want v, true", v, ok)
	}
}

func TestPersistentMap_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	m := NewPersistentMap[string, int](path, testLogger())
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 for nonexistent file", m.Len())
	}
}

func TestPersistentMap_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	m := NewPersistentMap[string, int](path, testLogger())
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 for corrupt file", m.Len())
	}
}

func TestPersistentMap_All_ReturnsSnapshotCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	m := NewPersistentMap[string, int](path, testLogger())
	if err := m.Set("a", 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	snapshot := m.All()
	snapshot["a"] = 999

	v, _ := m.Get("a")
	if v != 1 {
		t.Fatalf("mutating snapshot leaked into store: Get() = %d, want 1", v)
	}
}

func TestPersistentMap_Mutate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	m := NewPersistentMap[string, int](path, testLogger())

	err := m.Mutate(func(data map[string]int) {
		data["x"] = 1
		data["x"]++
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	v, ok := m.Get("x")
	if !ok || v != 2 {
		t.Fatalf("Get() after Mutate = %v, %v, want 2, true", v, ok)
	}
}
