// Package bridgehealth monitors the Linux bridge forwarding WAN/LAN traffic
// through the tap appliance: interface state, link carrier, counter deltas,
// bypass mode, and the watchdog heartbeat.
package bridgehealth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wisbric/nightowl/internal/platform"
	"github.com/wisbric/nightowl/internal/store"
)

const (
	sysfsNet        = "/sys/class/net"
	bypassStateFile = "/var/run/nettap-bypass-active"

	// DefaultMaxHistory covers 24h of samples at a 30s check interval.
	DefaultMaxHistory = 2880

	checkIntervalSeconds = 30
)

// HealthStatus is the overall bridge health classification.
type HealthStatus string

const (
	StatusNormal   HealthStatus = "normal"
	StatusDegraded HealthStatus = "degraded"
	StatusBypass   HealthStatus = "bypass"
	StatusDown     HealthStatus = "down"
)

// Sample is the result of a single health check cycle.
type Sample struct {
	BridgeState     string       `json:"bridge_state"`
	WANLink         bool         `json:"wan_link"`
	LANLink         bool         `json:"lan_link"`
	BypassActive    bool         `json:"bypass_active"`
	WatchdogActive  bool         `json:"watchdog_active"`
	LatencyUS       float64      `json:"latency_us"`
	RXBytesDelta    int64        `json:"rx_bytes_delta"`
	TXBytesDelta    int64        `json:"tx_bytes_delta"`
	RXPacketsDelta  int64        `json:"rx_packets_delta"`
	TXPacketsDelta  int64        `json:"tx_packets_delta"`
	UptimeSeconds   float64      `json:"uptime_seconds"`
	HealthStatus    HealthStatus `json:"health_status"`
	Issues          []string     `json:"issues"`
	LastCheck       string       `json:"last_check"`
}

type ifaceStats struct {
	rxBytes, txBytes, rxPackets, txPackets int64
}

// Monitor tracks bridge health across successive check cycles.
type Monitor struct {
	bridgeName string
	wanIface   string
	lanIface   string
	logger     *slog.Logger

	history *store.BoundedHistory[Sample]

	mu            sync.Mutex
	prevStats     *ifaceStats
	bridgeUpSince *time.Time
	lastState     string
	bypassActive  bool
}

// New creates a Monitor for the given bridge and NIC names.
func New(bridgeName, wanIface, lanIface string, maxHistory int, logger *slog.Logger) *Monitor {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Monitor{
		bridgeName: bridgeName,
		wanIface:   wanIface,
		lanIface:   lanIface,
		logger:     logger,
		history:    store.NewBoundedHistory[Sample](maxHistory),
	}
}

// CheckHealth runs one sampling cycle, appends the result to history, and
// returns it.
func (m *Monitor) CheckHealth(ctx context.Context) Sample {
	now := time.Now().UTC()

	bridgeState := readOperState(m.bridgeName)
	wanLink := readCarrier(m.wanIface)
	lanLink := readCarrier(m.lanIface)

	stats := readInterfaceStats(m.bridgeName)

	m.mu.Lock()
	rxBytesDelta, txBytesDelta, rxPacketsDelta, txPacketsDelta := m.calculateDeltas(stats)
	m.prevStats = stats

	if bridgeState != m.lastState {
		if bridgeState == "up" {
			t := time.Now()
			m.bridgeUpSince = &t
		} else {
			m.bridgeUpSince = nil
		}
		m.lastState = bridgeState
	}
	var uptime float64
	if m.bridgeUpSince != nil {
		uptime = time.Since(*m.bridgeUpSince).Seconds()
	}
	bypassActive := m.bypassActive || bypassFileExists()
	m.mu.Unlock()

	watchdogActive := m.checkWatchdog(ctx)
	latency := estimateLatency(bridgeState, wanLink, lanLink)

	var issues []string
	switch bridgeState {
	case "down":
		issues = append(issues, "Bridge interface is down")
	case "unknown":
		issues = append(issues, "Bridge interface state could not be determined")
	}
	if !wanLink {
		issues = append(issues, fmt.Sprintf("WAN interface %s has no carrier", m.wanIface))
	}
	if !lanLink {
		issues = append(issues, fmt.Sprintf("LAN interface %s has no carrier", m.lanIface))
	}
	if bypassActive {
		issues = append(issues, "Bypass mode is active -- traffic is not being inspected")
	}
	if !watchdogActive {
		issues = append(issues, "Watchdog service is not running")
	}

	sample := Sample{
		BridgeState:    bridgeState,
		WANLink:        wanLink,
		LANLink:        lanLink,
		BypassActive:   bypassActive,
		WatchdogActive: watchdogActive,
		LatencyUS:      latency,
		RXBytesDelta:   rxBytesDelta,
		TXBytesDelta:   txBytesDelta,
		RXPacketsDelta: rxPacketsDelta,
		TXPacketsDelta: txPacketsDelta,
		UptimeSeconds:  round2(uptime),
		HealthStatus:   determineStatus(bridgeState, wanLink, lanLink, bypassActive),
		Issues:         issues,
		LastCheck:      now.Format(time.RFC3339),
	}

	m.history.Append(sample)
	return sample
}

// History returns up to limit most-recent samples, newest first.
func (m *Monitor) History(limit int) []Sample {
	all := m.history.SnapshotReversed()
	if limit > 0 && limit < len(all) {
		return all[:limit]
	}
	return all
}

// Statistics aggregates over the full retained history.
type Statistics struct {
	AverageLatencyUS        *float64       `json:"average_latency_us"`
	TotalRXBytes            int64          `json:"total_rx_bytes"`
	TotalTXBytes            int64          `json:"total_tx_bytes"`
	TotalRXPackets          int64          `json:"total_rx_packets"`
	TotalTXPackets          int64          `json:"total_tx_packets"`
	UptimePercentage        *float64       `json:"uptime_percentage"`
	LongestDowntimeSeconds  int            `json:"longest_downtime_seconds"`
	TotalChecks             int            `json:"total_checks"`
	StatusCounts            map[string]int `json:"status_counts"`
}

// Statistics computes aggregate stats over the retained history.
func (m *Monitor) Statistics() Statistics {
	samples := m.history.Snapshot()
	statusCounts := map[string]int{"normal": 0, "degraded": 0, "bypass": 0, "down": 0}

	if len(samples) == 0 {
		return Statistics{StatusCounts: statusCounts}
	}

	var latencySum float64
	var latencyCount int
	var rxBytes, txBytes, rxPackets, txPackets int64

	for _, s := range samples {
		if s.LatencyUS > 0 {
			latencySum += s.LatencyUS
			latencyCount++
		}
		rxBytes += s.RXBytesDelta
		txBytes += s.TXBytesDelta
		rxPackets += s.RXPacketsDelta
		txPackets += s.TXPacketsDelta
		if _, ok := statusCounts[string(s.HealthStatus)]; ok {
			statusCounts[string(s.HealthStatus)]++
		}
	}

	var avgLatency *float64
	if latencyCount > 0 {
		v := round2(latencySum / float64(latencyCount))
		avgLatency = &v
	}

	total := len(samples)
	upCount := statusCounts["normal"] + statusCounts["degraded"]
	uptimePct := round2(float64(upCount) / float64(total) * 100)

	longestDown, currentDown := 0, 0
	for _, s := range samples {
		if s.HealthStatus == StatusDown {
			currentDown++
			if currentDown > longestDown {
				longestDown = currentDown
			}
		} else {
			currentDown = 0
		}
	}

	return Statistics{
		AverageLatencyUS:       avgLatency,
		TotalRXBytes:           rxBytes,
		TotalTXBytes:           txBytes,
		TotalRXPackets:         rxPackets,
		TotalTXPackets:         txPackets,
		UptimePercentage:       &uptimePct,
		LongestDowntimeSeconds: longestDown * checkIntervalSeconds,
		TotalChecks:            total,
		StatusCounts:           statusCounts,
	}
}

// TriggerBypass activates bypass mode, tolerating filesystem failures.
func (m *Monitor) TriggerBypass() {
	m.mu.Lock()
	m.bypassActive = true
	m.mu.Unlock()

	ts := time.Now().UTC().Format(time.RFC3339)
	if err := os.MkdirAll(filepath.Dir(bypassStateFile), 0o755); err == nil {
		_ = os.WriteFile(bypassStateFile, []byte(ts), 0o644)
	}
	m.logger.Warn("bypass mode activated", "at", ts)
}

// DisableBypass deactivates bypass mode, tolerating filesystem failures.
func (m *Monitor) DisableBypass() {
	m.mu.Lock()
	m.bypassActive = false
	m.mu.Unlock()

	_ = os.Remove(bypassStateFile)
	m.logger.Info("bypass mode deactivated")
}

func (m *Monitor) calculateDeltas(current *ifaceStats) (rxBytes, txBytes, rxPackets, txPackets int64) {
	if m.prevStats == nil || current == nil {
		return 0, 0, 0, 0
	}
	rxBytes = maxInt64(0, current.rxBytes-m.prevStats.rxBytes)
	txBytes = maxInt64(0, current.txBytes-m.prevStats.txBytes)
	rxPackets = maxInt64(0, current.rxPackets-m.prevStats.rxPackets)
	txPackets = maxInt64(0, current.txPackets-m.prevStats.txPackets)
	return
}

func (m *Monitor) checkWatchdog(ctx context.Context) bool {
	result, err := platform.RunCommand(ctx, 5*time.Second, 4096, "systemctl", "is-active", "nettap-watchdog")
	if err != nil {
		m.logger.Debug("watchdog check unavailable", "error", err)
	}
	return strings.TrimSpace(result.Stdout) == "active"
}

func determineStatus(bridgeState string, wanLink, lanLink, bypassActive bool) HealthStatus {
	if bypassActive {
		return StatusBypass
	}
	if bridgeState == "down" || (!wanLink && !lanLink) {
		return StatusDown
	}
	if bridgeState == "unknown" || !wanLink || !lanLink {
		return StatusDegraded
	}
	return StatusNormal
}

func estimateLatency(bridgeState string, wanLink, lanLink bool) float64 {
	if bridgeState != "up" {
		return 0
	}
	const base = 50.0
	if !wanLink || !lanLink {
		return base * 3
	}
	return base
}

func readOperState(iface string) string {
	content, err := readSysfsFile(filepath.Join(sysfsNet, iface, "operstate"))
	if err != nil {
		return "unknown"
	}
	switch strings.ToLower(strings.TrimSpace(content)) {
	case "up":
		return "up"
	case "down", "lowerlayerdown":
		return "down"
	default:
		return "unknown"
	}
}

func readCarrier(iface string) bool {
	content, err := readSysfsFile(filepath.Join(sysfsNet, iface, "carrier"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(content) == "1"
}

func readInterfaceStats(iface string) *ifaceStats {
	statsDir := filepath.Join(sysfsNet, iface, "statistics")
	stats := &ifaceStats{}

	if v, err := readSysfsInt(filepath.Join(statsDir, "rx_bytes")); err == nil {
		stats.rxBytes = v
	}
	if v, err := readSysfsInt(filepath.Join(statsDir, "tx_bytes")); err == nil {
		stats.txBytes = v
	}
	if v, err := readSysfsInt(filepath.Join(statsDir, "rx_packets")); err == nil {
		stats.rxPackets = v
	}
	if v, err := readSysfsInt(filepath.Join(statsDir, "tx_packets")); err == nil {
		stats.txPackets = v
	}
	return stats
}

func readSysfsFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readSysfsInt(path string) (int64, error) {
	content, err := readSysfsFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(content), 10, 64)
}

func bypassFileExists() bool {
	_, err := os.Stat(bypassStateFile)
	return err == nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
