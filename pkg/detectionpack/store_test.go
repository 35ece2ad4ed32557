package detectionpack

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_CreateGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detection_packs.json")
	s := New(path, testLogger())

	pack, err := s.Create(CreateParams{Name: "et-open", Version: "2026.1", Source: "emergingthreats.net", Enabled: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if pack.ID == "" {
		t.Fatal("expected Create() to assign an ID")
	}

	got, ok := s.Get(pack.ID)
	if !ok || got.Name != "et-open" {
		t.Fatalf("Get() = %+v, %v, want the created pack", got, ok)
	}

	if err := s.Delete(pack.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := s.Get(pack.ID); ok {
		t.Fatal("expected pack to be gone after Delete()")
	}
}

func TestStore_SetEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detection_packs.json")
	s := New(path, testLogger())

	pack, _ := s.Create(CreateParams{Name: "custom-rules", Enabled: true})

	updated, found, err := s.SetEnabled(pack.ID, false)
	if err != nil {
		t.Fatalf("SetEnabled() error = %v", err)
	}
	if !found {
		t.Fatal("expected SetEnabled() to find the pack")
	}
	if updated.Enabled {
		t.Fatal("expected Enabled=false after SetEnabled(false)")
	}

	_, found, err = s.SetEnabled("missing", true)
	if err != nil {
		t.Fatalf("SetEnabled() on missing pack error = %v, want nil", err)
	}
	if found {
		t.Fatal("expected found=false for a nonexistent pack")
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detection_packs.json")
	s := New(path, testLogger())

	first, _ := s.Create(CreateParams{Name: "first"})
	second, _ := s.Create(CreateParams{Name: "second"})
	// Back-to-back creates can share a timestamp; move "first" earlier so the
	// expected order is unambiguous.
	if err := s.packs.Mutate(func(m map[string]Pack) {
		p := m[first.ID]
		p.InstalledAt = second.InstalledAt.Add(-time.Minute)
		m[first.ID] = p
	}); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d packs, want 2", len(list))
	}
	if list[0].ID != second.ID {
		t.Fatalf("List()[0] = %q, want the newest pack %q", list[0].Name, "second")
	}
}
