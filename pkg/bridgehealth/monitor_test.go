package bridgehealth

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDetermineStatus(t *testing.T) {
	tests := []struct {
		name         string
		bridgeState  string
		wanLink      bool
		lanLink      bool
		bypassActive bool
		want         HealthStatus
	}{
		{"bypass wins over everything", "up", true, true, true, StatusBypass},
		{"down bridge", "down", true, true, false, StatusDown},
		{"both nics unlinked", "up", false, false, false, StatusDown},
		{"unknown bridge state", "unknown", true, true, false, StatusDegraded},
		{"one nic unlinked", "up", false, true, false, StatusDegraded},
		{"fully normal", "up", true, true, false, StatusNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determineStatus(tt.bridgeState, tt.wanLink, tt.lanLink, tt.bypassActive); got != tt.want {
				t.Errorf("determineStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateLatency(t *testing.T) {
	if got := estimateLatency("down", true, true); got != 0 {
		t.Errorf("expected 0 latency when bridge is down, got %v", got)
	}
	if got := estimateLatency("up", true, true); got != 50.0 {
		t.Errorf("expected base latency 50, got %v", got)
	}
	if got := estimateLatency("up", false, true); got != 150.0 {
		t.Errorf("expected degraded latency 150, got %v", got)
	}
}

func TestCalculateDeltasFirstSampleIsZero(t *testing.T) {
	m := New("br0", "eth0", "eth1", 10, discardLogger())
	rx, tx, rxp, txp := m.calculateDeltas(&ifaceStats{rxBytes: 100, txBytes: 200, rxPackets: 5, txPackets: 10})
	if rx != 0 || tx != 0 || rxp != 0 || txp != 0 {
		t.Errorf("expected all-zero deltas on first sample, got %d %d %d %d", rx, tx, rxp, txp)
	}
}

func TestCalculateDeltasCounterWrapYieldsZero(t *testing.T) {
	m := New("br0", "eth0", "eth1", 10, discardLogger())
	m.prevStats = &ifaceStats{rxBytes: 1000, txBytes: 1000, rxPackets: 50, txPackets: 50}
	rx, tx, rxp, txp := m.calculateDeltas(&ifaceStats{rxBytes: 10, txBytes: 2000, rxPackets: 5, txPackets: 60})
	if rx != 0 {
		t.Errorf("expected 0 for wrapped rx_bytes counter, got %d", rx)
	}
	if tx != 1000 {
		t.Errorf("expected 1000 tx_bytes delta, got %d", tx)
	}
	if rxp != 0 {
		t.Errorf("expected 0 for wrapped rx_packets counter, got %d", rxp)
	}
	if txp != 10 {
		t.Errorf("expected 10 tx_packets delta, got %d", txp)
	}
}

func TestStatisticsEmptyHistory(t *testing.T) {
	m := New("br0", "eth0", "eth1", 10, discardLogger())
	stats := m.Statistics()
	if stats.TotalChecks != 0 {
		t.Errorf("expected 0 checks, got %d", stats.TotalChecks)
	}
	if stats.AverageLatencyUS != nil {
		t.Errorf("expected nil average latency, got %v", *stats.AverageLatencyUS)
	}
}

func TestStatisticsLongestDownStreak(t *testing.T) {
	m := New("br0", "eth0", "eth1", 10, discardLogger())
	statuses := []HealthStatus{StatusNormal, StatusDown, StatusDown, StatusDown, StatusNormal, StatusDown}
	for _, s := range statuses {
		m.history.Append(Sample{HealthStatus: s})
	}
	stats := m.Statistics()
	if stats.LongestDowntimeSeconds != 3*checkIntervalSeconds {
		t.Errorf("expected longest streak of 3 checks (%ds), got %d", 3*checkIntervalSeconds, stats.LongestDowntimeSeconds)
	}
	if stats.TotalChecks != 6 {
		t.Errorf("expected 6 total checks, got %d", stats.TotalChecks)
	}
}
