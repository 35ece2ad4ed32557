package reportschedule

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

func TestNextRunAfter(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		freq Frequency
		want time.Time
	}{
		{FrequencyDaily, base.AddDate(0, 0, 1)},
		{FrequencyWeekly, base.AddDate(0, 0, 7)},
		{FrequencyMonthly, base.AddDate(0, 1, 0)},
		{"unknown", base.AddDate(0, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			if got := nextRunAfter(tt.freq, base); !got.Equal(tt.want) {
				t.Errorf("nextRunAfter(%q, base) = %v, want %v", tt.freq, got, tt.want)
			}
		})
	}
}

func TestStore_Create_EnabledSchedulesGetNextRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_schedules.json")
	s := New(path, testLogger())

	enabled, err := s.Create(CreateParams{Name: "weekly summary", Frequency: FrequencyWeekly, Enabled: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if enabled.NextRun == nil {
		t.Fatal("expected NextRun to be set for an enabled schedule")
	}

	disabled, err := s.Create(CreateParams{Name: "ad-hoc", Frequency: FrequencyDaily, Enabled: false})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if disabled.NextRun != nil {
		t.Fatalf("NextRun = %v, want nil for a disabled schedule", disabled.NextRun)
	}
}

func TestStore_Due(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_schedules.json")
	s := New(path, testLogger())

	overdue, _ := s.Create(CreateParams{Name: "overdue", Frequency: FrequencyDaily, Enabled: true})
	_, _ = s.Create(CreateParams{Name: "disabled", Frequency: FrequencyDaily, Enabled: false})

	future := time.Now().UTC().Add(48 * time.Hour)
	due := s.Due(future)

	found := false
	for _, sched := range due {
		if sched.ID == overdue.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("Due(%v) = %+v, want the enabled overdue schedule to be included", future, due)
	}
	if len(due) != 1 {
		t.Fatalf("Due() returned %d schedules, want 1 (disabled schedule must be excluded)", len(due))
	}
}

func TestStore_MarkRun_AdvancesNextRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_schedules.json")
	s := New(path, testLogger())

	sched, _ := s.Create(CreateParams{Name: "daily", Frequency: FrequencyDaily, Enabled: true})
	originalNext := *sched.NextRun

	now := time.Now().UTC()
	updated, err := s.MarkRun(sched.ID, now)
	if err != nil {
		t.Fatalf("MarkRun() error = %v", err)
	}
	if updated.LastRun == nil || !updated.LastRun.Equal(now) {
		t.Fatalf("LastRun = %v, want %v", updated.LastRun, now)
	}
	if updated.NextRun == nil || !updated.NextRun.After(originalNext) {
		t.Fatalf("NextRun = %v, want advanced past %v", updated.NextRun, originalNext)
	}

	if _, err := s.MarkRun("missing", now); err == nil {
		t.Fatal("expected error marking a nonexistent schedule as run")
	}
}
