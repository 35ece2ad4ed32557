// Package inethealth probes upstream internet reachability with concurrent
// ping and DNS checks and tracks the result in a bounded history.
package inethealth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"regexp"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wisbric/nightowl/internal/platform"
	"github.com/wisbric/nightowl/internal/store"
)

// Status values for an InternetHealthSample.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusDown     = "down"
	StatusUnknown  = "unknown"
)

const (
	// DefaultHistorySize keeps roughly 24h of samples at a 1-minute cadence.
	DefaultHistorySize = 1440

	pingTimeout = 2 * time.Second
	dnsTimeout  = 3 * time.Second

	degradedLatencyMS  = 100.0
	degradedDNSMS      = 500.0
	degradedLossPct    = 5.0
	downLossPct        = 50.0
)

// DefaultPingTargets mirrors well-known, highly available resolvers so the
// probe has no dependency on DNS working before DNS itself is checked.
var DefaultPingTargets = []string{"8.8.8.8", "1.1.1.1"}

// DefaultDNSTargets are resolved through the system resolver each cycle.
var DefaultDNSTargets = []string{"google.com", "cloudflare.com"}

var pingTimeRe = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)

// Sample is one internet health reading.
type Sample struct {
	Timestamp     string   `json:"timestamp"`
	LatencyMS     *float64 `json:"latency_ms"`
	DNSResolveMS  *float64 `json:"dns_resolve_ms"`
	PacketLossPct float64  `json:"packet_loss_pct"`
	Status        string   `json:"status"`
}

// Monitor runs concurrent ping/DNS probes against a configured target set.
type Monitor struct {
	pingTargets []string
	dnsTargets  []string
	logger      *slog.Logger
	history     *store.BoundedHistory[Sample]
}

// New creates a Monitor. Empty target slices fall back to the package
// defaults.
func New(pingTargets, dnsTargets []string, historySize int, logger *slog.Logger) *Monitor {
	if len(pingTargets) == 0 {
		pingTargets = DefaultPingTargets
	}
	if len(dnsTargets) == 0 {
		dnsTargets = DefaultDNSTargets
	}
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Monitor{
		pingTargets: pingTargets,
		dnsTargets:  dnsTargets,
		logger:      logger,
		history:     store.NewBoundedHistory[Sample](historySize),
	}
}

// CheckHealth runs one probe cycle and appends the result to history.
func (m *Monitor) CheckHealth(ctx context.Context) Sample {
	var mu sync.Mutex
	var latencies []float64
	var dnsTimes []float64
	total := len(m.pingTargets)
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range m.pingTargets {
		target := target
		g.Go(func() error {
			ms, ok := m.checkLatency(gctx, target)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				latencies = append(latencies, ms)
			} else {
				failed++
			}
			return nil
		})
	}
	for _, domain := range m.dnsTargets {
		domain := domain
		g.Go(func() error {
			ms, ok := m.checkDNS(gctx, domain)
			if !ok {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			dnsTimes = append(dnsTimes, ms)
			return nil
		})
	}
	_ = g.Wait()

	var latency *float64
	if len(latencies) > 0 {
		v := minFloat(latencies)
		latency = &v
	}
	var dnsResolve *float64
	if len(dnsTimes) > 0 {
		v := minFloat(dnsTimes)
		dnsResolve = &v
	}
	lossPct := 0.0
	if total > 0 {
		lossPct = (float64(failed) / float64(total)) * 100
	}

	status := determineStatus(latency, dnsResolve, lossPct)
	sample := Sample{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		LatencyMS:     latency,
		DNSResolveMS:  dnsResolve,
		PacketLossPct: round2(lossPct),
		Status:        status,
	}
	m.history.Append(sample)
	return sample
}

// determineStatus applies the health banding rules: both probes failing, or
// loss at or above 50%, is down; a missing probe or a degraded metric is
// degraded; otherwise healthy.
func determineStatus(latency, dns *float64, lossPct float64) string {
	if latency == nil && dns == nil {
		return StatusDown
	}
	if lossPct >= downLossPct {
		return StatusDown
	}
	if latency == nil || dns == nil {
		return StatusDegraded
	}
	if *latency >= degradedLatencyMS || *dns >= degradedDNSMS || lossPct >= degradedLossPct {
		return StatusDegraded
	}
	return StatusHealthy
}

// checkLatency pings target once and parses the round-trip time from the
// output. It never invokes a shell -- argv is a fixed list plus the target.
func (m *Monitor) checkLatency(ctx context.Context, target string) (float64, bool) {
	result, err := platform.RunCommand(ctx, pingTimeout, 64*1024, "ping", "-n", "-c", "1", "-W", "2", target)
	if err != nil && result.Stdout == "" {
		m.logger.Debug("ping probe failed", "target", target, "error", err)
		return 0, false
	}
	if result.TimedOut || result.ExitCode != 0 {
		return 0, false
	}
	match := pingTimeRe.FindStringSubmatch(result.Stdout)
	if match == nil {
		return 0, false
	}
	var ms float64
	if _, err := fmt.Sscanf(match[1], "%f", &ms); err != nil {
		return 0, false
	}
	return ms, true
}

// checkDNS resolves domain through the system resolver and times it.
func (m *Monitor) checkDNS(ctx context.Context, domain string) (float64, bool) {
	dctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	start := time.Now()
	resolver := net.Resolver{}
	addrs, err := resolver.LookupHost(dctx, domain)
	elapsed := time.Since(start)
	if err != nil || len(addrs) == 0 {
		m.logger.Debug("dns probe failed", "domain", domain, "error", err)
		return 0, false
	}
	return float64(elapsed.Microseconds()) / 1000.0, true
}

// History returns up to limit samples, newest first.
func (m *Monitor) History(limit int) []Sample {
	all := m.history.SnapshotReversed()
	if limit > 0 && limit < len(all) {
		return all[:limit]
	}
	return all
}

// CurrentStatus reports the most recent sample's status, or "unknown" when
// no check has run yet.
func (m *Monitor) CurrentStatus() (status string, timestamp *string) {
	recent := m.history.SnapshotReversed()
	if len(recent) == 0 {
		return StatusUnknown, nil
	}
	ts := recent[0].Timestamp
	return recent[0].Status, &ts
}

// Statistics summarizes the entire retained history.
type Statistics struct {
	AverageLatencyMS  *float64 `json:"avg_latency_ms"`
	P95LatencyMS      *float64 `json:"p95_latency_ms"`
	MinLatencyMS      *float64 `json:"min_latency_ms"`
	MaxLatencyMS      *float64 `json:"max_latency_ms"`
	AverageDNSMS      *float64 `json:"avg_dns_ms"`
	AveragePacketLoss *float64 `json:"avg_packet_loss_pct"`
	UptimePct         *float64 `json:"uptime_pct"`
	TotalChecks       int      `json:"total_checks"`
	HistorySpanHours  float64  `json:"history_span_hours"`
}

func (m *Monitor) Statistics() Statistics {
	samples := m.history.Snapshot()
	stats := Statistics{TotalChecks: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	var latencies, dnsTimes, losses []float64
	healthyOrDegraded := 0
	for _, s := range samples {
		if s.LatencyMS != nil {
			latencies = append(latencies, *s.LatencyMS)
		}
		if s.DNSResolveMS != nil {
			dnsTimes = append(dnsTimes, *s.DNSResolveMS)
		}
		losses = append(losses, s.PacketLossPct)
		if s.Status == StatusHealthy || s.Status == StatusDegraded {
			healthyOrDegraded++
		}
	}

	if len(latencies) > 0 {
		avg := mean(latencies)
		mn := minFloat(latencies)
		mx := maxFloat(latencies)
		p95 := percentile(latencies, 95)
		stats.AverageLatencyMS = &avg
		stats.MinLatencyMS = &mn
		stats.MaxLatencyMS = &mx
		stats.P95LatencyMS = &p95
	}
	if len(dnsTimes) > 0 {
		avgDNS := mean(dnsTimes)
		stats.AverageDNSMS = &avgDNS
	}
	if len(losses) > 0 {
		avgLoss := round2(mean(losses))
		stats.AveragePacketLoss = &avgLoss
	}

	uptime := round2((float64(healthyOrDegraded) / float64(len(samples))) * 100)
	stats.UptimePct = &uptime

	first, errFirst := time.Parse(time.RFC3339, samples[0].Timestamp)
	last, errLast := time.Parse(time.RFC3339, samples[len(samples)-1].Timestamp)
	if errFirst == nil && errLast == nil {
		stats.HistorySpanHours = round2(last.Sub(first).Hours())
	}
	return stats
}

func mean(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func minFloat(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// percentile computes the nearest-rank percentile over an unsorted slice
// without mutating the caller's copy.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
