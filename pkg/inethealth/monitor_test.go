package inethealth

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f(v float64) *float64 { return &v }

func TestDetermineStatus(t *testing.T) {
	tests := []struct {
		name    string
		latency *float64
		dns     *float64
		loss    float64
		want    string
	}{
		{"healthy", f(20.0), f(50.0), 0.0, StatusHealthy},
		{"healthy boundary", f(99.9), f(499.9), 4.9, StatusHealthy},
		{"degraded high latency", f(100.0), f(50.0), 0.0, StatusDegraded},
		{"degraded high dns", f(50.0), f(500.0), 0.0, StatusDegraded},
		{"degraded high packet loss", f(50.0), f(50.0), 5.0, StatusDegraded},
		{"degraded latency none dns ok", nil, f(50.0), 0.0, StatusDegraded},
		{"degraded dns none latency ok", f(50.0), nil, 0.0, StatusDegraded},
		{"down both none", nil, nil, 0.0, StatusDown},
		{"down high packet loss", f(50.0), f(50.0), 50.0, StatusDown},
		{"down 100 percent loss", f(50.0), f(50.0), 100.0, StatusDown},
		{"down none and high loss", nil, nil, 80.0, StatusDown},
		{"degraded very high latency", f(450.0), f(50.0), 0.0, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determineStatus(tt.latency, tt.dns, tt.loss); got != tt.want {
				t.Errorf("determineStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatisticsEmptyHistory(t *testing.T) {
	m := New(nil, nil, 10, discardLogger())
	stats := m.Statistics()
	if stats.TotalChecks != 0 {
		t.Errorf("expected 0 checks, got %d", stats.TotalChecks)
	}
	if stats.AverageLatencyMS != nil || stats.P95LatencyMS != nil || stats.MinLatencyMS != nil || stats.MaxLatencyMS != nil {
		t.Errorf("expected nil latency stats for empty history")
	}
	if stats.UptimePct != nil {
		t.Errorf("expected nil uptime for empty history")
	}
	if stats.HistorySpanHours != 0 {
		t.Errorf("expected 0 history span, got %v", stats.HistorySpanHours)
	}
}

func TestStatisticsPopulated(t *testing.T) {
	m := New(nil, nil, 20, discardLogger())
	base := time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i*5) * time.Minute).Format(time.RFC3339)
		m.history.Append(Sample{
			Timestamp:     ts,
			LatencyMS:     f(20.0 + float64(i)),
			DNSResolveMS:  f(50.0 + float64(i)),
			PacketLossPct: 0.0,
			Status:        StatusHealthy,
		})
	}

	stats := m.Statistics()
	if got := *stats.AverageLatencyMS; got != 24.5 {
		t.Errorf("expected avg latency 24.5, got %v", got)
	}
	if got := *stats.MinLatencyMS; got != 20.0 {
		t.Errorf("expected min latency 20.0, got %v", got)
	}
	if got := *stats.MaxLatencyMS; got != 29.0 {
		t.Errorf("expected max latency 29.0, got %v", got)
	}
	if stats.P95LatencyMS == nil {
		t.Errorf("expected non-nil p95 latency")
	}
	if got := *stats.AverageDNSMS; got != 54.5 {
		t.Errorf("expected avg dns 54.5, got %v", got)
	}
	if got := *stats.UptimePct; got != 100.0 {
		t.Errorf("expected 100%% uptime, got %v", got)
	}
	if stats.TotalChecks != 10 {
		t.Errorf("expected 10 total checks, got %d", stats.TotalChecks)
	}
	if got := stats.HistorySpanHours; got != 0.75 {
		t.Errorf("expected 0.75h span, got %v", got)
	}

	// Add 5 down checks: 10 healthy + 5 down = 10/15 uptime.
	base2 := base.Add(time.Hour)
	for i := 0; i < 5; i++ {
		ts := base2.Add(time.Duration(i*5) * time.Minute).Format(time.RFC3339)
		m.history.Append(Sample{
			Timestamp:     ts,
			LatencyMS:     nil,
			DNSResolveMS:  nil,
			PacketLossPct: 100.0,
			Status:        StatusDown,
		})
	}
	stats = m.Statistics()
	if got := *stats.UptimePct; round2(got) != 66.67 {
		t.Errorf("expected 66.67%% uptime, got %v", got)
	}
}

func TestCurrentStatusEmpty(t *testing.T) {
	m := New(nil, nil, 10, discardLogger())
	status, ts := m.CurrentStatus()
	if status != StatusUnknown {
		t.Errorf("expected unknown status, got %v", status)
	}
	if ts != nil {
		t.Errorf("expected nil timestamp, got %v", *ts)
	}
}

func TestCurrentStatusReturnsLastCheck(t *testing.T) {
	m := New(nil, nil, 10, discardLogger())
	m.history.Append(Sample{Timestamp: "ts1", Status: StatusHealthy})
	m.history.Append(Sample{Timestamp: "ts2", Status: StatusDegraded})
	status, ts := m.CurrentStatus()
	if status != StatusDegraded {
		t.Errorf("expected degraded, got %v", status)
	}
	if ts == nil || *ts != "ts2" {
		t.Errorf("expected ts2, got %v", ts)
	}
}

func TestHistoryNewestFirstAndLimit(t *testing.T) {
	m := New(nil, nil, 20, discardLogger())
	for i := 0; i < 10; i++ {
		m.history.Append(Sample{Timestamp: string(rune('a' + i)), Status: StatusHealthy})
	}
	hist := m.History(3)
	if len(hist) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(hist))
	}
	if hist[0].Timestamp != string(rune('a'+9)) {
		t.Errorf("expected newest-first ordering, got %v", hist[0].Timestamp)
	}
}

func TestDefaultTargetsApplied(t *testing.T) {
	m := New(nil, nil, 0, discardLogger())
	if len(m.pingTargets) != len(DefaultPingTargets) {
		t.Errorf("expected default ping targets applied")
	}
	if len(m.dnsTargets) != len(DefaultDNSTargets) {
		t.Errorf("expected default dns targets applied")
	}
}

func TestCustomTargetsOverrideDefaults(t *testing.T) {
	m := New([]string{"1.2.3.4"}, []string{"test.com"}, 5, discardLogger())
	if len(m.pingTargets) != 1 || m.pingTargets[0] != "1.2.3.4" {
		t.Errorf("expected custom ping targets, got %v", m.pingTargets)
	}
	if len(m.dnsTargets) != 1 || m.dnsTargets[0] != "test.com" {
		t.Errorf("expected custom dns targets, got %v", m.dnsTargets)
	}
}
