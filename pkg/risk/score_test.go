package risk

import "testing"

func TestAlertCountBands(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 0}, {1, 10}, {2, 10}, {3, 20}, {5, 20}, {6, 30}, {10, 30}, {11, 35}, {100, 35},
	}
	for _, tt := range tests {
		if got := alertCountFactor(tt.count).Score; got != tt.want {
			t.Errorf("alertCountFactor(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestConnectionAnomalyFactor(t *testing.T) {
	if got := connectionAnomalyFactor(10, 0, 0).Score; got != 0 {
		t.Errorf("expected 0 when stddev/avg are zero, got %d", got)
	}
	if got := connectionAnomalyFactor(10, 5, 5).Score; got != 0 {
		t.Errorf("d=1 should score 0, got %d", got)
	}
	if got := connectionAnomalyFactor(20, 5, 5).Score; got != 15 {
		t.Errorf("d=3 should score 15, got %d", got)
	}
	if got := connectionAnomalyFactor(50, 5, 5).Score; got != 20 {
		t.Errorf("d=9 should score 20, got %d", got)
	}
}

func TestExternalRatioFactor(t *testing.T) {
	if got := externalRatioFactor(0, 0).Score; got != 0 {
		t.Errorf("expected 0 for zero total, got %d", got)
	}
	if got := externalRatioFactor(9, 10).Score; got != 15 {
		t.Errorf("r=0.9 should be max score 15, got %d", got)
	}
}

func TestSuspiciousPortsFactor(t *testing.T) {
	if got := suspiciousPortsFactor([]int{4444}).Score; got != 15 {
		t.Errorf("known bad port should score 15, got %d", got)
	}
	if got := suspiciousPortsFactor([]int{80, 443}).Score; got != 0 {
		t.Errorf("common ports should score 0, got %d", got)
	}
	if got := suspiciousPortsFactor([]int{80, 31000}).Score; got != 8 {
		t.Errorf("uncommon non-blacklisted port should score 8, got %d", got)
	}
	if got := suspiciousPortsFactor(nil).Score; got != 0 {
		t.Errorf("no ports should score 0, got %d", got)
	}
}

func TestDataExfiltrationFactor(t *testing.T) {
	if got := dataExfiltrationFactor(0, 0).Score; got != 0 {
		t.Errorf("expected 0 for zero total, got %d", got)
	}
	if got := dataExfiltrationFactor(900, 100).Score; got != 15 {
		t.Errorf("u=0.9 should be max score 15, got %d", got)
	}
}

func TestComputeCapsAtHundredAndBands(t *testing.T) {
	stats := DeviceStats{
		AlertCount:               20,
		ConnectionCount:          100,
		NetworkAvgConnections:    10,
		NetworkStddevConnections: 5,
		ExternalConnectionCount:  90,
		TotalConnectionCount:     100,
		PortsUsed:                []int{4444},
		OrigBytes:                900,
		RespBytes:                100,
	}
	got := Compute(stats)
	if got.Score != 100 {
		t.Fatalf("expected capped score 100, got %d", got.Score)
	}
	if got.Level != LevelCritical {
		t.Errorf("expected critical level, got %v", got.Level)
	}
	if len(got.Factors) != 5 {
		t.Errorf("expected 5 factors, got %d", len(got.Factors))
	}
}

func TestComputeLowRisk(t *testing.T) {
	got := Compute(DeviceStats{})
	if got.Score != 0 {
		t.Fatalf("expected score 0 for empty stats, got %d", got.Score)
	}
	if got.Level != LevelLow {
		t.Errorf("expected low level, got %v", got.Level)
	}
}
