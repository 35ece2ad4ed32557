package investigation

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

func TestStore_CreateDedupesInputLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "investigations.json")
	s := New(path, testLogger())

	inv, err := s.Create(CreateParams{
		Title:     "suspicious scan",
		Severity:  SeverityHigh,
		AlertIDs:  []string{"a1", "a1", "", "a2"},
		DeviceIPs: []string{"10.0.0.5", "10.0.0.5"},
		Tags:      []string{"scan", "scan", "external"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(inv.AlertIDs) != 2 {
		t.Fatalf("AlertIDs = %v, want 2 deduped entries", inv.AlertIDs)
	}
	if len(inv.DeviceIPs) != 1 {
		t.Fatalf("DeviceIPs = %v, want 1 deduped entry", inv.DeviceIPs)
	}
	if len(inv.Tags) != 2 {
		t.Fatalf("Tags = %v, want 2 deduped entries", inv.Tags)
	}
	if inv.Status != StatusOpen {
		t.Fatalf("Status = %q, want %q", inv.Status, StatusOpen)
	}
}

func TestStore_SetStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "investigations.json")
	s := New(path, testLogger())

	inv, _ := s.Create(CreateParams{Title: "x"})

	updated, err := s.SetStatus(inv.ID, StatusResolved)
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if updated.Status != StatusResolved {
		t.Fatalf("Status = %q, want %q", updated.Status, StatusResolved)
	}

	if _, err := s.SetStatus("missing-id", StatusResolved); err == nil {
		t.Fatal("expected error transitioning a nonexistent investigation")
	}
}

func TestStore_LinkAlertDedupes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "investigations.json")
	s := New(path, testLogger())

	inv, _ := s.Create(CreateParams{Title: "x", AlertIDs: []string{"a1"}})

	updated, err := s.LinkAlert(inv.ID, "a1")
	if err != nil {
		t.Fatalf("LinkAlert() error = %v", err)
	}
	if len(updated.AlertIDs) != 1 {
		t.Fatalf("AlertIDs = %v, want linking an existing alert to stay deduped at 1", updated.AlertIDs)
	}

	updated, err = s.LinkAlert(inv.ID, "a2")
	if err != nil {
		t.Fatalf("LinkAlert() error = %v", err)
	}
	if len(updated.AlertIDs) != 2 {
		t.Fatalf("AlertIDs = %v, want 2 after linking a new alert", updated.AlertIDs)
	}
}

func TestStore_AddNote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "investigations.json")
	s := New(path, testLogger())

	inv, _ := s.Create(CreateParams{Title: "x"})
	updated, err := s.AddNote(inv.ID, "checked firewall logs")
	if err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	if len(updated.Notes) != 1 || updated.Notes[0].Content != "checked firewall logs" {
		t.Fatalf("Notes = %+v, want one note with the given content", updated.Notes)
	}
}

func TestStore_ListOrdersNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "investigations.json")
	s := New(path, testLogger())

	first, _ := s.Create(CreateParams{Title: "first"})
	second, _ := s.Create(CreateParams{Title: "second"})
	// Back-to-back creates can share a timestamp; move "first" earlier so the
	// expected order is unambiguous.
	if err := s.cases.Mutate(func(m map[string]Investigation) {
		inv := m[first.ID]
		inv.CreatedAt = second.CreatedAt.Add(-time.Minute)
		m[first.ID] = inv
	}); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d investigations, want 2", len(list))
	}
	if list[0].ID != second.ID {
		t.Fatalf("List()[0] = %q, want the newest investigation %q", list[0].Title, "second")
	}
}
