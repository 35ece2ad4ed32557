package alertstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_AcknowledgeAndUnacknowledge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert_acks.json")
	s := New(path, testLogger())

	if s.IsAcked("alert-1") {
		t.Fatal("expected alert-1 to be unacked initially")
	}

	if err := s.Acknowledge("alert-1", "jdoe", "investigating"); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	ack, ok := s.Get("alert-1")
	if !ok {
		t.Fatal("expected Get() to find ack after Acknowledge()")
	}
	if ack.AckedBy != "jdoe" || ack.Note != "investigating" {
		t.Fatalf("ack = %+v, want AckedBy=jdoe Note=investigating", ack)
	}
	if ack.AckedAt.IsZero() {
		t.Fatal("expected AckedAt to be set")
	}

	if !s.IsAcked("alert-1") {
		t.Fatal("expected alert-1 to be acked")
	}

	if err := s.Unacknowledge("alert-1"); err != nil {
		t.Fatalf("Unacknowledge() error = %v", err)
	}
	if s.IsAcked("alert-1") {
		t.Fatal("expected alert-1 to be unacked after Unacknowledge()")
	}
}

func TestStore_Acknowledge_OverwritesPrior(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert_acks.json")
	s := New(path, testLogger())

	if err := s.Acknowledge("a1", "alice", "first"); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}
	if err := s.Acknowledge("a1", "bob", "second"); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	ack, _ := s.Get("a1")
	if ack.AckedBy != "bob" || ack.Note != "second" {
		t.Fatalf("ack = %+v, want latest ack from bob", ack)
	}
}

func TestStore_All(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert_acks.json")
	s := New(path, testLogger())

	_ = s.Acknowledge("a1", "alice", "")
	_ = s.Acknowledge("a2", "bob", "")

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d entries, want 2", len(all))
	}
}
