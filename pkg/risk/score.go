// Package risk scores a device's recent network behavior against five
// weighted factors and bands the result into a risk level.
package risk

// suspiciousPorts are ports commonly associated with backdoors/RATs.
var suspiciousPorts = map[int]bool{
	4444: true, 5555: true, 6666: true, 8888: true,
	9999: true, 31337: true, 12345: true, 65535: true,
}

// commonPorts are treated as safe and never contribute the "uncommon port"
// penalty.
var commonPorts = map[int]bool{
	20: true, 21: true, 22: true, 25: true, 53: true, 80: true, 110: true,
	123: true, 143: true, 443: true, 993: true, 995: true, 3389: true,
}

// Level is a risk band.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// DeviceStats is the per-device-per-window input to the scorer.
type DeviceStats struct {
	AlertCount               int
	ConnectionCount          int
	NetworkAvgConnections    float64
	NetworkStddevConnections float64
	ExternalConnectionCount  int
	TotalConnectionCount     int
	PortsUsed                []int
	OrigBytes                int64
	RespBytes                int64
}

// Factor is one scored dimension contributing to the overall score.
type Factor struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	Max         int    `json:"max"`
	Description string `json:"description"`
}

// Score is the full scoring result for one device.
type Score struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Factors []Factor `json:"factors"`
}

// Compute scores stats across the five weighted factors and bands the
// total. Factor weights sum to exactly 100.
func Compute(stats DeviceStats) Score {
	factors := []Factor{
		alertCountFactor(stats.AlertCount),
		connectionAnomalyFactor(stats.ConnectionCount, stats.NetworkAvgConnections, stats.NetworkStddevConnections),
		externalRatioFactor(stats.ExternalConnectionCount, stats.TotalConnectionCount),
		suspiciousPortsFactor(stats.PortsUsed),
		dataExfiltrationFactor(stats.OrigBytes, stats.RespBytes),
	}

	total := 0
	for _, f := range factors {
		total += f.Score
	}
	if total > 100 {
		total = 100
	}

	return Score{
		Score:   total,
		Level:   levelFor(total),
		Factors: factors,
	}
}

func levelFor(score int) Level {
	switch {
	case score >= 75:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 25:
		return LevelMedium
	default:
		return LevelLow
	}
}

func alertCountFactor(count int) Factor {
	var score int
	switch {
	case count == 0:
		score = 0
	case count <= 2:
		score = 10
	case count <= 5:
		score = 20
	case count <= 10:
		score = 30
	default:
		score = 35
	}
	return Factor{Name: "alert_count", Score: score, Max: 35, Description: "Security alerts triggered by this device"}
}

func connectionAnomalyFactor(count int, avg, stddev float64) Factor {
	score := 0
	if stddev > 0 && avg > 0 {
		d := (float64(count) - avg) / stddev
		switch {
		case d <= 1:
			score = 0
		case d <= 2:
			score = 10
		case d <= 3:
			score = 15
		default:
			score = 20
		}
	}
	return Factor{Name: "connection_anomaly", Score: score, Max: 20, Description: "Deviation from the network's average connection volume"}
}

func externalRatioFactor(external, total int) Factor {
	score := 0
	if total > 0 {
		r := float64(external) / float64(total)
		switch {
		case r < 0.3:
			score = 0
		case r < 0.6:
			score = 5
		case r < 0.8:
			score = 10
		default:
			score = 15
		}
	}
	return Factor{Name: "external_ratio", Score: score, Max: 15, Description: "Proportion of connections leaving the local network"}
}

func suspiciousPortsFactor(ports []int) Factor {
	score := 0
	for _, p := range ports {
		if suspiciousPorts[p] {
			score = 15
			break
		}
	}
	if score == 0 {
		for _, p := range ports {
			if !commonPorts[p] {
				score = 8
				break
			}
		}
	}
	return Factor{Name: "suspicious_ports", Score: score, Max: 15, Description: "Use of known-malicious or uncommon ports"}
}

func dataExfiltrationFactor(origBytes, respBytes int64) Factor {
	score := 0
	total := origBytes + respBytes
	if total > 0 {
		u := float64(origBytes) / float64(total)
		switch {
		case u < 0.1:
			score = 0
		case u < 0.3:
			score = 5
		case u < 0.5:
			score = 10
		default:
			score = 15
		}
	}
	return Factor{Name: "data_exfiltration", Score: score, Max: 15, Description: "Ratio of uploaded to downloaded bytes"}
}
