package devicestore

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_MACNormalization(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_baseline.json")
	s := New(path, testLogger())

	if err := s.Set(" aa:bb:cc:dd:ee:ff ", Baseline{Name: "nas", Trusted: true}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	b, ok := s.Get("AA:BB:CC:DD:EE:FF")
	if !ok {
		t.Fatal("expected Get() with uppercase MAC to find the baseline set with lowercase MAC")
	}
	if b.Name != "nas" || !b.Trusted {
		t.Fatalf("baseline = %+v, want Name=nas Trusted=true", b)
	}
	if b.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be set by Set()")
	}

	all := s.All()
	if _, ok := all["AA:BB:CC:DD:EE:FF"]; !ok {
		t.Fatalf("All() keys = %v, want canonical uppercase MAC", all)
	}
}

func TestStore_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_baseline.json")
	s := New(path, testLogger())

	_ = s.Set("aa:bb:cc:dd:ee:ff", Baseline{Name: "nas"})
	if err := s.Remove("AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := s.Get("aa:bb:cc:dd:ee:ff"); ok {
		t.Fatal("expected baseline to be gone after Remove()")
	}
}
