package alertnotify

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsEnabled(t *testing.T) {
	if (&Notifier{}).IsEnabled() {
		t.Error("expected a Notifier with no webhook URL to be disabled")
	}
	if !New("https://hooks.slack.example/x", discardLogger()).IsEnabled() {
		t.Error("expected a Notifier with a webhook URL to be enabled")
	}
}

func TestSeverityLabel(t *testing.T) {
	tests := []struct {
		severity int
		want     string
	}{
		{1, "critical"},
		{2, "high"},
		{3, "medium"},
		{4, "low"},
		{99, "low"},
	}
	for _, tt := range tests {
		if got := severityLabel(tt.severity); got != tt.want {
			t.Errorf("severityLabel(%d) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestNotifyCritical_DisabledIsNoop(t *testing.T) {
	n := New("", discardLogger())
	if err := n.NotifyCritical(context.Background(), AlertInfo{AlertID: "a1", Severity: 1}); err != nil {
		t.Errorf("NotifyCritical() on a disabled notifier error = %v, want nil", err)
	}
}
